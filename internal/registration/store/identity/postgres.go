package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

// PostgresIndex backs the duplicate-identity index with the
// identity_registrations table. The primary key on identity_hash plus
// INSERT ... ON CONFLICT DO NOTHING supplies the atomic check-and-set.
type PostgresIndex struct {
	db    *sql.DB
	clock func() time.Time
}

type PostgresIndexOption func(*PostgresIndex)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) PostgresIndexOption {
	return func(s *PostgresIndex) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresIndexOption) *PostgresIndex {
	s := &PostgresIndex{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *PostgresIndex) Reserve(ctx context.Context, hash domain.IdentityHash) (Reservation, error) {
	res := newReservation(hash)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_registrations (identity_hash, state, token, reserved_at)
		VALUES ($1, 'reserved', $2, $3)
		ON CONFLICT (identity_hash) DO NOTHING
	`, string(hash), res.Token.String(), s.clock())
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve identity: %w", err)
	}
	if affected == 1 {
		return res, nil
	}

	var state string
	err = s.db.QueryRowContext(ctx,
		`SELECT state FROM identity_registrations WHERE identity_hash = $1`, string(hash),
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		// Row released between insert and select; the caller retries.
		return Reservation{}, sentinel.ErrConflict
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve identity: %w", err)
	}
	if state == "committed" {
		return Reservation{}, sentinel.ErrAlreadyUsed
	}
	return Reservation{}, sentinel.ErrConflict
}

func (s *PostgresIndex) Commit(ctx context.Context, res Reservation, urid domain.URID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE identity_registrations
		SET state = 'committed', urid = $3, committed_at = $4
		WHERE identity_hash = $1 AND state = 'reserved' AND token = $2
	`, string(res.IdentityHash), res.Token.String(), string(urid), s.clock())
	if err != nil {
		return fmt.Errorf("commit identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit identity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresIndex) Release(ctx context.Context, res Reservation) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM identity_registrations
		WHERE identity_hash = $1 AND state = 'reserved' AND token = $2
	`, string(res.IdentityHash), res.Token.String())
	if err != nil {
		return fmt.Errorf("release identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release identity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresIndex) Lookup(ctx context.Context, hash domain.IdentityHash) (domain.URID, error) {
	var urid sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT urid FROM identity_registrations
		WHERE identity_hash = $1 AND state = 'committed'
	`, string(hash)).Scan(&urid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup identity: %w", err)
	}
	if !urid.Valid {
		return "", sentinel.ErrNotFound
	}
	return domain.URID(urid.String), nil
}
