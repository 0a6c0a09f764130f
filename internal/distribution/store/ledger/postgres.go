package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"reliefcore/internal/distribution/models"
	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

// PostgresStore persists the append-only ledger in the distribution_events
// table. Schema: scripts/schema.sql. Atomicity of check-then-append uses a
// transaction-scoped advisory lock keyed on {lookup_key, category}, so two
// agents recording for the same household and category serialize while
// everything else proceeds in parallel.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertEvent = `
	INSERT INTO distribution_events (id, lookup_key, agent_id, category, quantity, location, occurred_at, confirmed)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectEvent = `
	SELECT id, lookup_key, agent_id, category, quantity, location, occurred_at, confirmed
	FROM distribution_events
`

func (s *PostgresStore) Append(ctx context.Context, event models.DistributionEvent) (domain.EventID, error) {
	if err := event.Validate(); err != nil {
		return domain.EventID{}, err
	}
	if err := insert(ctx, s.db, event); err != nil {
		return domain.EventID{}, err
	}
	return event.ID, nil
}

// execer covers *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, event models.DistributionEvent) error {
	_, err := db.ExecContext(ctx, insertEvent,
		uuid.UUID(event.ID), string(event.LookupKey), uuid.UUID(event.AgentID),
		string(event.Category), event.Quantity, event.Location, event.Timestamp, event.Confirmed,
	)
	if err != nil {
		return fmt.Errorf("append distribution event: %w", err)
	}
	return nil
}

// ExecuteAppend serializes on pg_advisory_xact_lock(hashtext(key || '|' ||
// category)) for the duration of the transaction: the lock is taken, the
// latest event is read, check runs, and the new event lands — or nothing
// does. The lock releases automatically at commit or rollback.
func (s *PostgresStore) ExecuteAppend(
	ctx context.Context,
	key domain.LookupKey,
	category models.AidCategory,
	check func(last *models.DistributionEvent) error,
	build func() models.DistributionEvent,
) (models.DistributionEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.DistributionEvent{}, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		string(key)+"|"+string(category),
	); err != nil {
		return models.DistributionEvent{}, fmt.Errorf("acquire ledger lock: %w", err)
	}

	var last *models.DistributionEvent
	ev, err := scanOne(tx.QueryRowContext(ctx,
		selectEvent+` WHERE lookup_key = $1 AND category = $2 ORDER BY occurred_at DESC, id DESC LIMIT 1`,
		string(key), string(category),
	))
	switch {
	case err == nil:
		last = &ev
	case errors.Is(err, sentinel.ErrNotFound):
		// First event for this {key, category}.
	default:
		return models.DistributionEvent{}, err
	}

	if err := check(last); err != nil {
		return models.DistributionEvent{}, err
	}

	event := build()
	if err := event.Validate(); err != nil {
		return models.DistributionEvent{}, err
	}
	if err := insert(ctx, tx, event); err != nil {
		return models.DistributionEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.DistributionEvent{}, fmt.Errorf("commit ledger tx: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) LatestByCategory(ctx context.Context, key domain.LookupKey, category models.AidCategory) (models.DistributionEvent, error) {
	return scanOne(s.db.QueryRowContext(ctx,
		selectEvent+` WHERE lookup_key = $1 AND category = $2 ORDER BY occurred_at DESC, id DESC LIMIT 1`,
		string(key), string(category),
	))
}

// LatestPerCategory fetches the most recent event per requested category in
// one round trip via DISTINCT ON.
func (s *PostgresStore) LatestPerCategory(ctx context.Context, key domain.LookupKey, categories []models.AidCategory) (map[models.AidCategory]models.DistributionEvent, error) {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	rows, err := s.db.QueryContext(ctx, selectEvent+`
		WHERE (lookup_key, category, occurred_at, id) IN (
			SELECT DISTINCT ON (category) lookup_key, category, occurred_at, id
			FROM distribution_events
			WHERE lookup_key = $1 AND category = ANY($2)
			ORDER BY category, occurred_at DESC, id DESC
		)`,
		string(key), pq.Array(names),
	)
	if err != nil {
		return nil, fmt.Errorf("latest per category: %w", err)
	}
	defer rows.Close()

	out := make(map[models.AidCategory]models.DistributionEvent)
	for rows.Next() {
		ev, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out[ev.Category] = ev
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest per category: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) History(ctx context.Context, key domain.LookupKey, category *models.AidCategory) ([]models.DistributionEvent, error) {
	query := selectEvent + ` WHERE lookup_key = $1`
	args := []any{string(key)}
	if category != nil {
		query += ` AND category = $2`
		args = append(args, string(*category))
	}
	query += ` ORDER BY occurred_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger history: %w", err)
	}
	defer rows.Close()

	var out []models.DistributionEvent
	for rows.Next() {
		ev, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger history: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scan(r rowScanner) (models.DistributionEvent, error) {
	var ev models.DistributionEvent
	var id, agentID uuid.UUID
	var lookupKey, category string
	err := r.Scan(&id, &lookupKey, &agentID, &category, &ev.Quantity, &ev.Location, &ev.Timestamp, &ev.Confirmed)
	if err != nil {
		return models.DistributionEvent{}, fmt.Errorf("scan distribution event: %w", err)
	}
	ev.ID = domain.EventID(id)
	ev.AgentID = domain.AgentID(agentID)
	ev.LookupKey = domain.LookupKey(lookupKey)
	ev.Category = models.AidCategory(category)
	return ev, nil
}

func scanOne(row *sql.Row) (models.DistributionEvent, error) {
	ev, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DistributionEvent{}, sentinel.ErrNotFound
	}
	return ev, err
}
