package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aqualeads/crm-platform/internal/company"
	"github.com/aqualeads/crm-platform/internal/flow"
	"github.com/aqualeads/crm-platform/internal/leads"
	"github.com/aqualeads/crm-platform/internal/observability/metrics"
	"github.com/aqualeads/crm-platform/pkg/logging"
)

// DefaultFallbackMessage is used when the company config carries none.
const DefaultFallbackMessage = "Desculpe, não entendi. Pode escolher uma das opções? 🤔"

// genericInterest renders {interesse} when no interest was captured yet.
const genericInterest = "nossos produtos"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Engine orchestrates conversation turns. It owns all session mutation.
type Engine struct {
	graph      *flow.Graph
	sessions   SessionStore
	messages   MessageStore
	config     company.Store
	leadRepo   leads.Repository
	transcript *TranscriptCache
	metrics    *metrics.ChatbotMetrics
	logger     *logging.Logger
	locks      *sessionLocks
	now        func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithTranscriptCache wires the Redis transcript cache.
func WithTranscriptCache(cache *TranscriptCache) EngineOption {
	return func(e *Engine) { e.transcript = cache }
}

// WithMetrics wires chatbot metrics.
func WithMetrics(m *metrics.ChatbotMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a conversation engine over the given collaborators.
func NewEngine(
	graph *flow.Graph,
	sessions SessionStore,
	messages MessageStore,
	config company.Store,
	leadRepo leads.Repository,
	logger *logging.Logger,
	opts ...EngineOption,
) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		graph:    graph,
		sessions: sessions,
		messages: messages,
		config:   config,
		leadRepo: leadRepo,
		logger:   logger,
		locks:    newSessionLocks(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession creates a new session at the entry step and returns the
// rendered welcome message.
func (e *Engine) StartSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	entry := e.graph.Entry()
	session := &ChatSession{
		ID:            uuid.NewString(),
		CurrentStepID: entry.ID,
		CurrentStage:  entry.Stage,
		IsActive:      true,
		UserResponses: map[string]string{},
		UserAgent:     req.UserAgent,
		IPAddress:     req.IPAddress,
	}
	if err := e.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("chat: create session: %w", err)
	}

	message := flow.ReplaceVariables(entry.BotMessage, e.substitutions(cfg, session, turnCapture{}))
	if err := e.appendBotMessage(ctx, session.ID, message, IntentWelcome); err != nil {
		return nil, err
	}

	e.metrics.ObserveSessionStarted()
	e.logger.Info("chat session started", "session_id", session.ID)

	return &StartResult{
		Session: session,
		Message: message,
		Options: optionsOrEmpty(entry),
		Step:    entry,
	}, nil
}

// turnCapture accumulates data captured during a single turn before it is
// folded into the session.
type turnCapture struct {
	name      string
	email     string
	phone     string
	interest  string
	segment   string
	optIn     bool
	responses map[string]string
}

func (c *turnCapture) record(key, value string) {
	if c.responses == nil {
		c.responses = map[string]string{}
	}
	c.responses[key] = value
}

// ProcessMessage runs one conversational turn. Validation failures are
// returned as a TurnResult with IsError set; script-integrity and
// session-lifecycle problems are returned as errors.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, userText, optionID string) (*TurnResult, error) {
	release := e.locks.acquire(sessionID)
	defer release()

	started := e.now()
	defer func() {
		e.metrics.ObserveTurnLatency(e.now().Sub(started).Seconds())
	}()

	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionInactive
	}
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	// The transcript records what the visitor actually sent, even when the
	// input is later rejected.
	if err := e.appendUserMessage(ctx, session.ID, userText); err != nil {
		return nil, err
	}

	current, ok := e.graph.Step(session.CurrentStepID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, session.CurrentStepID)
	}

	capture := turnCapture{}
	nextStepID := ""

	switch {
	case optionID != "" && len(current.Options) > 0:
		if opt, found := current.Option(optionID); found {
			nextStepID = opt.NextStepID
			if opt.CaptureAs != "" {
				capture.record(opt.CaptureAs, opt.Label)
				switch opt.CaptureAs {
				case flow.FieldSegment:
					capture.segment = opt.Label
				case flow.CaptureMarketingIn:
					// Only the literal opt-in capture key sets the flag;
					// opt-out is recorded as a response string only.
					capture.optIn = true
				}
			}
		}
	case current.Capture != nil:
		result, captured := e.applyCaptureInput(current, userText, &capture)
		if result != nil {
			e.metrics.ObserveTurn("validation_error")
			return result, nil
		}
		if captured {
			nextStepID = current.Capture.NextStepID
		}
	}

	if nextStepID == "" {
		return e.fallback(ctx, cfg, session)
	}
	next, ok := e.graph.Step(nextStepID)
	if !ok {
		e.logger.Warn("script gap: unknown next step", "session_id", session.ID, "step_id", nextStepID)
		return e.fallback(ctx, cfg, session)
	}

	e.applyCapture(session, capture)

	// Side effects declared on the step being left, in declared order.
	for _, action := range current.Actions {
		switch action.Type {
		case flow.ActionIncrementScore:
			// Scoring is always recomputed in full below.
		case flow.ActionSetQualified:
			session.IsQualified = action.Qualified
		case flow.ActionCreateLead:
			if _, err := e.MaterializeLead(ctx, session, LeadOriginFlow); err != nil {
				e.logger.Error("lead materialization failed", "error", err, "session_id", session.ID)
			}
		case flow.ActionSendNotification:
			// Reserved for team alerting.
		}
	}

	session.CurrentStepID = next.ID
	session.CurrentStage = next.Stage
	session.QualificationScore = flow.CalculateQualificationScore(session.Fields())

	if err := e.sessions.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("chat: persist turn: %w", err)
	}

	message := flow.ReplaceVariables(next.BotMessage, e.substitutions(cfg, session, capture))
	if err := e.appendBotMessage(ctx, session.ID, message, ""); err != nil {
		return nil, err
	}

	reloaded, err := e.sessions.GetSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	e.metrics.ObserveTurn("advanced")
	return &TurnResult{
		Message: message,
		Options: optionsOrEmpty(next),
		Step:    &next,
		Session: reloaded,
	}, nil
}

// applyCaptureInput validates free text per the step's capture directive.
// It returns a non-nil TurnResult when validation failed, otherwise reports
// whether a value was captured.
func (e *Engine) applyCaptureInput(step flow.Step, userText string, capture *turnCapture) (*TurnResult, bool) {
	directive := step.Capture
	text := strings.TrimSpace(userText)

	switch directive.Type {
	case flow.CaptureName:
		capture.name = text
		capture.record(directive.Field, text)
	case flow.CaptureEmail:
		if !emailPattern.MatchString(text) {
			return &TurnResult{
				Message: "Hmm, esse e-mail não parece válido. Pode conferir e enviar de novo? 📧",
				Options: []flow.Option{},
				IsError: true,
			}, false
		}
		capture.email = text
		capture.record(directive.Field, text)
	case flow.CapturePhone:
		if len(digitsOnly(text)) < 10 {
			return &TurnResult{
				Message: "Esse número parece incompleto. Me envia com o DDD, por exemplo (11) 98765-4321. 📱",
				Options: []flow.Option{},
				IsError: true,
			}, false
		}
		capture.phone = text
		capture.record(directive.Field, text)
	case flow.CaptureText:
		capture.record(directive.Field, text)
		if directive.Field == flow.FieldInterest {
			capture.interest = text
		}
	default:
		return nil, false
	}
	return nil, true
}

// applyCapture folds a turn's captured data into the session. Capture only
// widens the field set.
func (e *Engine) applyCapture(session *ChatSession, capture turnCapture) {
	if session.UserResponses == nil {
		session.UserResponses = map[string]string{}
	}
	for key, value := range capture.responses {
		session.UserResponses[key] = value
	}
	if capture.name != "" {
		session.CapturedName = capture.name
	}
	if capture.email != "" {
		session.CapturedEmail = capture.email
	}
	if capture.phone != "" {
		session.CapturedPhone = capture.phone
	}
	if capture.interest != "" {
		session.Interest = capture.interest
	}
	if capture.segment != "" {
		session.Segment = capture.segment
	}
	if capture.optIn {
		session.MarketingOptIn = true
	}
}

// fallback answers a turn that resolved no next step without mutating the
// session: same step, same stage, same score.
func (e *Engine) fallback(ctx context.Context, cfg *company.Config, session *ChatSession) (*TurnResult, error) {
	message := cfg.FallbackMessage
	if message == "" {
		message = DefaultFallbackMessage
	}
	if err := e.appendBotMessage(ctx, session.ID, message, ""); err != nil {
		return nil, err
	}
	e.metrics.ObserveTurn("fallback")
	return &TurnResult{
		Message: message,
		Options: []flow.Option{},
	}, nil
}

// SessionHistory returns the session and its transcript, oldest-first.
func (e *Engine) SessionHistory(ctx context.Context, sessionID string) (*History, error) {
	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := e.messages.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat: load history: %w", err)
	}
	return &History{Session: session, Messages: messages}, nil
}

// EndSession deactivates the session. Ending an already-ended session is
// harmless.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	if err := e.sessions.EndSession(ctx, sessionID, e.now()); err != nil {
		return err
	}
	e.logger.Info("chat session ended", "session_id", sessionID)
	return nil
}

// MaterializeLead creates a Lead from the session's captured fields. It is
// idempotent: a session that already has a lead, or lacks name or phone, is
// silently skipped. A missing system actor is likewise a silent no-op. The
// session's lead pointer is claimed atomically; the loser of a concurrent
// race deletes its duplicate row.
func (e *Engine) MaterializeLead(ctx context.Context, session *ChatSession, origin string) (bool, error) {
	if session.LeadID != "" {
		return false, nil
	}
	if session.CapturedName == "" || session.CapturedPhone == "" {
		return false, nil
	}

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		if errors.Is(err, ErrConfigMissing) {
			return false, nil
		}
		return false, err
	}
	if cfg.OwnerUserID == "" {
		return false, nil
	}

	lead, err := e.leadRepo.Create(ctx, &leads.CreateLeadRequest{
		Name:      session.CapturedName,
		Phone:     session.CapturedPhone,
		Email:     session.CapturedEmail,
		Source:    leads.SourceChatbot,
		LeadScore: session.QualificationScore,
		OwnerID:   cfg.OwnerUserID,
		Metadata: leads.Metadata{
			SessionID:      session.ID,
			Interest:       session.Interest,
			Segment:        session.Segment,
			MarketingOptIn: session.MarketingOptIn,
			UserResponses:  session.UserResponses,
		},
	})
	if err != nil {
		return false, fmt.Errorf("chat: create lead: %w", err)
	}

	claimed, err := e.sessions.AttachLead(ctx, session.ID, lead.ID)
	if err != nil {
		_ = e.leadRepo.Delete(ctx, lead.ID)
		return false, fmt.Errorf("chat: attach lead: %w", err)
	}
	if !claimed {
		// Another writer won the race; drop the duplicate.
		_ = e.leadRepo.Delete(ctx, lead.ID)
		return false, nil
	}

	session.LeadID = lead.ID
	e.metrics.ObserveLeadCreated(origin)
	e.logger.Info("lead materialized from chat session",
		"session_id", session.ID,
		"lead_id", lead.ID,
		"score", session.QualificationScore,
		"origin", origin,
	)
	return true, nil
}

func (e *Engine) loadConfig(ctx context.Context) (*company.Config, error) {
	cfg, err := e.config.Get(ctx)
	if err != nil {
		if errors.Is(err, company.ErrConfigNotFound) {
			return nil, ErrConfigMissing
		}
		return nil, fmt.Errorf("chat: load company config: %w", err)
	}
	return cfg, nil
}

// substitutions builds the placeholder map for message rendering. This
// turn's captures win over stored session fields.
func (e *Engine) substitutions(cfg *company.Config, session *ChatSession, capture turnCapture) map[string]string {
	name := capture.name
	if name == "" {
		name = session.CapturedName
	}
	interest := capture.interest
	if interest == "" {
		interest = session.Interest
	}
	if interest == "" {
		interest = genericInterest
	}
	phone := capture.phone
	if phone == "" {
		phone = session.CapturedPhone
	}
	return map[string]string{
		"nome":           name,
		"interesse":      interest,
		"companyName":    cfg.CompanyName,
		"companyAddress": cfg.CompanyAddress,
		"companyPhone":   cfg.CompanyPhone,
		"productList":    cfg.ProductList,
		"capturedPhone":  phone,
	}
}

func (e *Engine) appendUserMessage(ctx context.Context, sessionID, content string) error {
	return e.appendMessage(ctx, sessionID, SenderUser, content, "")
}

func (e *Engine) appendBotMessage(ctx context.Context, sessionID, content, intent string) error {
	return e.appendMessage(ctx, sessionID, SenderBot, content, intent)
}

func (e *Engine) appendMessage(ctx context.Context, sessionID, sender, content, intent string) error {
	msg := &ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		Intent:    intent,
	}
	if err := e.messages.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("chat: persist message: %w", err)
	}
	// Cache writes are best-effort.
	_ = e.transcript.Append(ctx, sessionID, TranscriptEntry{
		ID:        msg.ID,
		Sender:    sender,
		Content:   content,
		Intent:    intent,
		Timestamp: msg.CreatedAt,
	})
	return nil
}

func optionsOrEmpty(step flow.Step) []flow.Option {
	if step.Options == nil {
		return []flow.Option{}
	}
	return step.Options
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
