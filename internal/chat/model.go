// Package chat implements the stateful conversation engine: it drives chat
// sessions through the static flow script, captures and validates visitor
// data, scores sessions, materializes leads and reclaims abandoned sessions.
package chat

import (
	"time"

	"github.com/aqualeads/crm-platform/internal/flow"
)

// Message senders.
const (
	SenderBot  = "bot"
	SenderUser = "user"
)

// IntentWelcome tags the first bot message of a session.
const IntentWelcome = "welcome"

// Lead origins, recorded in metrics.
const (
	LeadOriginFlow      = "flow"
	LeadOriginReclaimer = "reclaimer"
)

// ChatSession is one persistent conversation.
type ChatSession struct {
	ID                 string            `json:"session_id"`
	CurrentStepID      string            `json:"current_step_id"`
	CurrentStage       int               `json:"current_stage"`
	IsActive           bool              `json:"is_active"`
	CapturedName       string            `json:"captured_name,omitempty"`
	CapturedEmail      string            `json:"captured_email,omitempty"`
	CapturedPhone      string            `json:"captured_phone,omitempty"`
	Interest           string            `json:"interest,omitempty"`
	Segment            string            `json:"segment,omitempty"`
	MarketingOptIn     bool              `json:"marketing_opt_in"`
	IsQualified        bool              `json:"is_qualified"`
	UserResponses      map[string]string `json:"user_responses"`
	QualificationScore int               `json:"qualification_score"`
	LeadID             string            `json:"lead_id,omitempty"`
	UserAgent          string            `json:"user_agent,omitempty"`
	IPAddress          string            `json:"ip_address,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	EndedAt            *time.Time        `json:"ended_at,omitempty"`
}

// Fields projects the session's captured data into the scoring input.
func (s *ChatSession) Fields() flow.Fields {
	return flow.Fields{
		Name:     s.CapturedName,
		Phone:    s.CapturedPhone,
		Email:    s.CapturedEmail,
		Interest: s.Interest,
		Segment:  s.Segment,
		Stage:    s.CurrentStage,
	}
}

// ChatMessage is one transcript entry, append-only and ordered by creation.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StartRequest carries opaque client metadata recorded on the session.
type StartRequest struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// StartResult is the response to starting a session.
type StartResult struct {
	Session *ChatSession  `json:"session"`
	Message string        `json:"message"`
	Options []flow.Option `json:"options"`
	Step    flow.Step     `json:"step"`
}

// TurnResult is the response to one processed turn. IsError marks a locally
// recovered validation failure: the reply explains the problem and the
// session did not advance.
type TurnResult struct {
	Message string        `json:"message"`
	Options []flow.Option `json:"options"`
	Step    *flow.Step    `json:"step,omitempty"`
	Session *ChatSession  `json:"session,omitempty"`
	IsError bool          `json:"is_error,omitempty"`
}

// History is a session plus its ordered transcript.
type History struct {
	Session  *ChatSession   `json:"session"`
	Messages []*ChatMessage `json:"messages"`
}
