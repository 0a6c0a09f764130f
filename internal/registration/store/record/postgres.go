package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"reliefcore/internal/registration/models"
	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

// PostgresStore persists registration records in the households table.
// Schema: scripts/schema.sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, rec models.RegistrationRecord) error {
	query := `
		INSERT INTO households (urid, lookup_key, identity_hash, household_size, location, contact, registered_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(rec.URID), string(rec.LookupKey), string(rec.IdentityHash),
		rec.HouseholdSize, rec.Location, rec.Contact, rec.RegisteredAt, rec.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// The identity_hash constraint backstops the identity index;
			// any other unique violation is an identifier collision.
			if strings.Contains(pgErr.ConstraintName, "identity_hash") {
				return sentinel.ErrAlreadyUsed
			}
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create household: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, urid domain.URID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM households WHERE urid = $1)`, string(urid),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check household exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) FindByURID(ctx context.Context, urid domain.URID) (models.RegistrationRecord, error) {
	return s.findBy(ctx, "urid", string(urid))
}

func (s *PostgresStore) FindByLookupKey(ctx context.Context, key domain.LookupKey) (models.RegistrationRecord, error) {
	return s.findBy(ctx, "lookup_key", string(key))
}

func (s *PostgresStore) findBy(ctx context.Context, column, value string) (models.RegistrationRecord, error) {
	query := fmt.Sprintf(`
		SELECT urid, lookup_key, identity_hash, household_size, location, contact, registered_at, active
		FROM households WHERE %s = $1
	`, column)

	var rec models.RegistrationRecord
	var urid, lookupKey, identityHash string
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&urid, &lookupKey, &identityHash,
		&rec.HouseholdSize, &rec.Location, &rec.Contact, &rec.RegisteredAt, &rec.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RegistrationRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.RegistrationRecord{}, fmt.Errorf("find household: %w", err)
	}
	rec.URID = domain.URID(urid)
	rec.LookupKey = domain.LookupKey(lookupKey)
	rec.IdentityHash = domain.IdentityHash(identityHash)
	return rec, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, urid domain.URID, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE households SET active = FALSE, deactivated_at = $2 WHERE urid = $1 AND active`,
		string(urid), now,
	)
	if err != nil {
		return fmt.Errorf("deactivate household: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate household: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from already-inactive for callers.
		exists, err := s.Exists(ctx, urid)
		if err != nil {
			return err
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}
