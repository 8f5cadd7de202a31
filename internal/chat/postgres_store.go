package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists sessions and messages to PostgreSQL. It implements
// SessionStore and MessageStore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		panic("chat: db handle required")
	}
	return &PostgresStore{db: db}
}

const sessionColumns = `
	id, current_step_id, current_stage, is_active,
	captured_name, captured_email, captured_phone, interest, segment,
	marketing_opt_in, is_qualified, user_responses, qualification_score,
	lead_id, user_agent, ip_address, created_at, updated_at, ended_at
`

func (s *PostgresStore) CreateSession(ctx context.Context, session *ChatSession) error {
	responses, err := json.Marshal(session.UserResponses)
	if err != nil {
		return fmt.Errorf("chat: marshal user responses: %w", err)
	}

	query := `
		INSERT INTO chat_sessions (
			id, current_step_id, current_stage, is_active,
			captured_name, captured_email, captured_phone, interest, segment,
			marketing_opt_in, is_qualified, user_responses, qualification_score,
			user_agent, ip_address
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		session.ID,
		session.CurrentStepID,
		session.CurrentStage,
		session.IsActive,
		nullable(session.CapturedName),
		nullable(session.CapturedEmail),
		nullable(session.CapturedPhone),
		nullable(session.Interest),
		nullable(session.Segment),
		session.MarketingOptIn,
		session.IsQualified,
		responses,
		session.QualificationScore,
		nullable(session.UserAgent),
		nullable(session.IPAddress),
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("chat: insert session failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, session *ChatSession) error {
	responses, err := json.Marshal(session.UserResponses)
	if err != nil {
		return fmt.Errorf("chat: marshal user responses: %w", err)
	}

	// lead_id is intentionally not written here; AttachLead is the only
	// writer, so the pointer stays one-way.
	query := `
		UPDATE chat_sessions SET
			current_step_id = $2,
			current_stage = $3,
			is_active = $4,
			captured_name = $5,
			captured_email = $6,
			captured_phone = $7,
			interest = $8,
			segment = $9,
			marketing_opt_in = $10,
			is_qualified = $11,
			user_responses = $12,
			qualification_score = $13,
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.CurrentStepID,
		session.CurrentStage,
		session.IsActive,
		nullable(session.CapturedName),
		nullable(session.CapturedEmail),
		nullable(session.CapturedPhone),
		nullable(session.Interest),
		nullable(session.Segment),
		session.MarketingOptIn,
		session.IsQualified,
		responses,
		session.QualificationScore,
	)
	if err != nil {
		return fmt.Errorf("chat: update session failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("chat: update session rows: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) AttachLead(ctx context.Context, sessionID, leadID string) (bool, error) {
	// Conditional update keeps the claim atomic: only one caller can move
	// lead_id off NULL.
	query := `
		UPDATE chat_sessions
		SET lead_id = $2, updated_at = NOW()
		WHERE id = $1 AND lead_id IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, sessionID, leadID)
	if err != nil {
		return false, fmt.Errorf("chat: attach lead failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("chat: attach lead rows: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) EndSession(ctx context.Context, sessionID string, at time.Time) error {
	query := `
		UPDATE chat_sessions
		SET is_active = FALSE, ended_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, sessionID, at)
	if err != nil {
		return fmt.Errorf("chat: end session failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("chat: end session rows: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) ListIdleCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*ChatSession, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + sessionColumns + `
		FROM chat_sessions
		WHERE is_active = TRUE
		  AND lead_id IS NULL
		  AND captured_name IS NOT NULL
		  AND captured_phone IS NOT NULL
		  AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("chat: list idle candidates failed: %w", err)
	}
	defer rows.Close()

	var out []*ChatSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg *ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, session_id, sender, content, intent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		msg.ID,
		msg.SessionID,
		msg.Sender,
		msg.Content,
		nullable(msg.Intent),
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("chat: insert message failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string) ([]*ChatMessage, error) {
	query := `
		SELECT id, session_id, sender, content, intent, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat: list messages failed: %w", err)
	}
	defer rows.Close()

	out := []*ChatMessage{}
	for rows.Next() {
		var msg ChatMessage
		var intent sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Content, &intent, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat: scan message failed: %w", err)
		}
		msg.Intent = intent.String
		out = append(out, &msg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*ChatSession, error) {
	var (
		session       ChatSession
		capturedName  sql.NullString
		capturedEmail sql.NullString
		capturedPhone sql.NullString
		interest      sql.NullString
		segment       sql.NullString
		leadID        sql.NullString
		userAgent     sql.NullString
		ipAddress     sql.NullString
		endedAt       sql.NullTime
		rawResponses  []byte
	)
	if err := row.Scan(
		&session.ID,
		&session.CurrentStepID,
		&session.CurrentStage,
		&session.IsActive,
		&capturedName,
		&capturedEmail,
		&capturedPhone,
		&interest,
		&segment,
		&session.MarketingOptIn,
		&session.IsQualified,
		&rawResponses,
		&session.QualificationScore,
		&leadID,
		&userAgent,
		&ipAddress,
		&session.CreatedAt,
		&session.UpdatedAt,
		&endedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("chat: scan session failed: %w", err)
	}

	session.CapturedName = capturedName.String
	session.CapturedEmail = capturedEmail.String
	session.CapturedPhone = capturedPhone.String
	session.Interest = interest.String
	session.Segment = segment.String
	session.LeadID = leadID.String
	session.UserAgent = userAgent.String
	session.IPAddress = ipAddress.String
	if endedAt.Valid {
		ended := endedAt.Time
		session.EndedAt = &ended
	}

	session.UserResponses = map[string]string{}
	if len(rawResponses) > 0 {
		if err := json.Unmarshal(rawResponses, &session.UserResponses); err != nil {
			return nil, fmt.Errorf("chat: unmarshal user responses: %w", err)
		}
	}
	return &session, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
