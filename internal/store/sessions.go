package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"media-pipe/internal/logging"
	"media-pipe/internal/metrics"
)

// Session states. A session starts waiting for its side attachment
// (subtitle or audio file), moves to awaiting_input once the attachment
// is stored, and to processing while a pipeline run consumes it.
const (
	StateAwaitingSecondaryInput = "awaiting_secondary_input"
	StateAwaitingInput          = "awaiting_input"
	StateProcessing             = "processing"
)

// ErrSessionNotFound is returned when a session id does not exist or
// has expired.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidTransition is returned when a session is not in the state
// an operation requires.
var ErrInvalidTransition = errors.New("invalid session state transition")

// Session is one multi-step transcode interaction.
type Session struct {
	ID        string
	State     string
	Operation string
	// Param carries the operation parameter (resolution, audio format,
	// subtitle track index) as given by the client.
	Param string
	// AuxPath is the stored side input (subtitle or audio file), empty
	// until the attachment upload completes.
	AuxPath   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session's TTL has passed.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// CreateSession creates a session for a multi-step operation with the
// given TTL and returns it in StateAwaitingSecondaryInput.
func (st *Store) CreateSession(ctx context.Context, operation, param string, ttl time.Duration) (*Session, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_session", start, err) }()

	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		State:     StateAwaitingSecondaryInput,
		Operation: operation,
		Param:     param,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO sessions (id, state, operation, param, aux_path, created_at, expires_at)
		VALUES (?, ?, ?, ?, '', ?, ?)
	`, session.ID, session.State, session.Operation, session.Param,
		session.CreatedAt.Unix(), session.ExpiresAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.ActiveSessions.Inc()
	logging.Debug("Created session %s for %s", session.ID, operation)
	return session, nil
}

// GetSession returns the session with the given id. Expired sessions
// are reported as not found; the sweep removes them later.
func (st *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_session", start, err) }()

	var s Session
	var createdAt, expiresAt int64
	err = st.db.QueryRowContext(ctx, `
		SELECT id, state, operation, param, aux_path, created_at, expires_at
		FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.State, &s.Operation, &s.Param, &s.AuxPath, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.CreatedAt = time.Unix(createdAt, 0)
	s.ExpiresAt = time.Unix(expiresAt, 0)
	if s.Expired() {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// AttachAuxInput stores the side input path and moves the session from
// awaiting_secondary_input to awaiting_input.
func (st *Store) AttachAuxInput(ctx context.Context, id, auxPath string) (*Session, error) {
	return st.transition(ctx, id, StateAwaitingSecondaryInput, StateAwaitingInput, auxPath)
}

// MarkProcessing moves the session from awaiting_input to processing so
// a second concurrent run cannot claim it.
func (st *Store) MarkProcessing(ctx context.Context, id string) (*Session, error) {
	return st.transition(ctx, id, StateAwaitingInput, StateProcessing, "")
}

// ReleaseProcessing returns a session from processing to awaiting_input
// so a failed run can be retried without re-uploading the attachment.
func (st *Store) ReleaseProcessing(ctx context.Context, id string) (*Session, error) {
	return st.transition(ctx, id, StateProcessing, StateAwaitingInput, "")
}

func (st *Store) transition(ctx context.Context, id, fromState, toState, auxPath string) (*Session, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_session", start, err) }()

	var res sql.Result
	if auxPath != "" {
		res, err = st.db.ExecContext(ctx, `
			UPDATE sessions SET state = ?, aux_path = ?
			WHERE id = ? AND state = ? AND expires_at > strftime('%s', 'now')
		`, toState, auxPath, id, fromState)
	} else {
		res, err = st.db.ExecContext(ctx, `
			UPDATE sessions SET state = ?
			WHERE id = ? AND state = ? AND expires_at > strftime('%s', 'now')
		`, toState, id, fromState)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check session update: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing session from a state conflict.
		current, gerr := st.GetSession(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("%w: session %s is %s, need %s",
			ErrInvalidTransition, id, current.State, fromState)
	}

	return st.GetSession(ctx, id)
}

// DeleteSession removes a session. Missing sessions are not an error.
func (st *Store) DeleteSession(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_session", start, err) }()

	res, err := st.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, aerr := res.RowsAffected(); aerr == nil && n > 0 {
		metrics.ActiveSessions.Dec()
	}
	return nil
}

// CleanExpiredSessions removes sessions past their TTL and returns the
// stored aux file paths of the removed sessions so the caller can
// delete the files too.
func (st *Store) CleanExpiredSessions(ctx context.Context) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("clean_expired_sessions", start, err) }()

	rows, err := st.db.QueryContext(ctx, `
		SELECT id, aux_path FROM sessions WHERE expires_at <= strftime('%s', 'now')
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logging.Error("failed to close rows: %v", cerr)
		}
	}()

	var ids []string
	var auxPaths []string
	for rows.Next() {
		var id, auxPath string
		if err = rows.Scan(&id, &auxPath); err != nil {
			return nil, fmt.Errorf("failed to scan expired session: %w", err)
		}
		ids = append(ids, id)
		if auxPath != "" {
			auxPaths = append(auxPaths, auxPath)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired sessions: %w", err)
	}

	for _, id := range ids {
		if _, err = st.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to delete expired session %s: %w", id, err)
		}
		metrics.ActiveSessions.Dec()
		metrics.SessionsExpiredTotal.Inc()
	}

	if len(ids) > 0 {
		logging.Info("Cleaned %d expired sessions", len(ids))
	}
	return auxPaths, nil
}
