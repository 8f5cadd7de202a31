package leads

import (
	"strings"
	"time"

	"github.com/aqualeads/crm-platform/internal/flow"
)

// Lead statuses and priorities.
const (
	StatusNew      = "NOVO"
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"

	// SourceChatbot marks leads materialized from chat sessions.
	SourceChatbot = "Chatbot"
)

// Metadata carries the session audit trail attached to a materialized lead.
type Metadata struct {
	SessionID      string            `json:"session_id"`
	Interest       string            `json:"interest,omitempty"`
	Segment        string            `json:"segment,omitempty"`
	MarketingOptIn bool              `json:"marketing_opt_in"`
	UserResponses  map[string]string `json:"user_responses,omitempty"`
}

// Lead is a persistent sales lead.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	LeadScore int       `json:"lead_score"`
	OwnerID   string    `json:"owner_id"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateLeadRequest is the input for creating a lead.
type CreateLeadRequest struct {
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Source    string   `json:"source"`
	LeadScore int      `json:"lead_score"`
	OwnerID   string   `json:"owner_id"`
	Metadata  Metadata `json:"metadata"`
}

// Validate checks the request is complete enough to persist.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(r.Phone) == "" {
		return ErrMissingPhone
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return ErrMissingOwner
	}
	return nil
}

// PriorityForScore maps a qualification score onto a lead priority. The
// threshold lives next to the scoring weights so the two never diverge.
func PriorityForScore(score int) string {
	if score >= flow.HighPriorityThreshold {
		return PriorityHigh
	}
	return PriorityMedium
}
