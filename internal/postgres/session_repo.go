package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwrk-planet/duet/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository keeps the history of drawing sessions.
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Record persists a lifecycle event: started inserts the row, ended
// finalises counters and outcome.
func (r *SessionRepository) Record(ctx context.Context, ev domain.SessionEvent) error {
	switch ev.Kind {
	case domain.SessionStarted:
		return r.insert(ctx, ev.Session)
	case domain.SessionEnded:
		return r.finish(ctx, ev.Session)
	}
	return fmt.Errorf("unknown session event %q", ev.Kind)
}

func (r *SessionRepository) insert(ctx context.Context, s domain.Session) error {
	query := `
		INSERT INTO drawing_sessions
			(id, player_one, player_two, duration_seconds, outcome, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.db.Exec(ctx, query, s.ID, s.PlayerOne, s.PlayerTwo, s.DurationSeconds, string(s.Outcome), s.StartedAt)
	return err
}

func (r *SessionRepository) finish(ctx context.Context, s domain.Session) error {
	query := `
		INSERT INTO drawing_sessions
			(id, player_one, player_two, duration_seconds, strokes_player_one, strokes_player_two, outcome, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			strokes_player_one = EXCLUDED.strokes_player_one,
			strokes_player_two = EXCLUDED.strokes_player_two,
			outcome            = EXCLUDED.outcome,
			ended_at           = EXCLUDED.ended_at`
	_, err := r.db.Exec(ctx, query,
		s.ID, s.PlayerOne, s.PlayerTwo, s.DurationSeconds,
		s.StrokesPlayerOne, s.StrokesPlayerTwo, string(s.Outcome), s.StartedAt, s.EndedAt)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, player_one, player_two, duration_seconds, strokes_player_one, strokes_player_two,
		       outcome, started_at, ended_at
		FROM drawing_sessions WHERE id=$1`
	return scanSession(r.db.QueryRow(ctx, query, id))
}

// List returns sessions newest first. The cursor is the id of the last
// session of the previous page.
func (r *SessionRepository) List(ctx context.Context, limit int, cursor string) ([]domain.Session, string, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT id, player_one, player_two, duration_seconds, strokes_player_one, strokes_player_two,
		       outcome, started_at, ended_at
		FROM drawing_sessions
		WHERE ($1::text = '' OR id < $1)
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, after, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, "", err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(sessions) == limit {
		next = EncodeCursor(sessions[len(sessions)-1].ID)
	}
	return sessions, next, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		s       domain.Session
		outcome string
	)
	err := row.Scan(&s.ID, &s.PlayerOne, &s.PlayerTwo, &s.DurationSeconds,
		&s.StrokesPlayerOne, &s.StrokesPlayerTwo, &outcome, &s.StartedAt, &s.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Outcome = domain.SessionOutcome(outcome)
	return &s, nil
}
