// Package postgres provides PostgreSQL implementation of the queue repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	pgutil "github.com/bissquit/barber-queue/internal/pkg/postgres"
	"github.com/bissquit/barber-queue/internal/queue"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `id, barber_id, customer_name, phone, position, join_time, status, estimated_wait_minutes`

// Repository implements queue.Repository and queue.BarberRepository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert stores a new queue entry and sets its ID and join time.
func (r *Repository) Insert(ctx context.Context, entry *domain.QueueEntry) error {
	if !validID(entry.BarberID) {
		return queue.ErrBarberNotFound
	}

	var joinTime *time.Time
	if !entry.JoinTime.IsZero() {
		joinTime = &entry.JoinTime
	}

	query := `
		INSERT INTO queue_entries (barber_id, customer_name, phone, position, join_time, status, estimated_wait_minutes)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), $6, $7)
		RETURNING id, join_time
	`
	err := r.db.QueryRow(ctx, query,
		entry.BarberID,
		entry.CustomerName,
		entry.Phone,
		entry.Position,
		joinTime,
		entry.Status,
		entry.EstimatedWaitMinutes,
	).Scan(&entry.ID, &entry.JoinTime)

	if err != nil {
		switch {
		case pgutil.IsErrorCode(err, pgutil.CodeUniqueViolation):
			return queue.ErrDuplicateEntry
		case pgutil.IsErrorCode(err, pgutil.CodeForeignKeyViolation):
			return queue.ErrBarberNotFound
		}
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of patch to a single entry.
func (r *Repository) Update(ctx context.Context, id string, patch domain.QueueEntryPatch) error {
	if !validID(id) {
		return queue.ErrEntryNotFound
	}
	if patch.IsEmpty() {
		return nil
	}

	sets := make([]string, 0, 4)
	args := make([]any, 0, 4)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Position != nil {
		set("position", *patch.Position)
	}
	if patch.EstimatedWaitMinutes != nil {
		set("estimated_wait_minutes", *patch.EstimatedWaitMinutes)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE queue_entries SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if pgutil.IsErrorCode(err, pgutil.CodeUniqueViolation) {
			return queue.ErrDuplicateEntry
		}
		return fmt.Errorf("update queue entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrEntryNotFound
	}
	return nil
}

// Get retrieves a queue entry by ID.
func (r *Repository) Get(ctx context.Context, id string) (*domain.QueueEntry, error) {
	if !validID(id) {
		return nil, queue.ErrEntryNotFound
	}

	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	return entry, nil
}

// QueryActive returns waiting and in_progress entries ordered by position, then join time.
func (r *Repository) QueryActive(ctx context.Context, barberID string) ([]domain.QueueEntry, error) {
	if !validID(barberID) {
		return []domain.QueueEntry{}, nil
	}

	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE barber_id = $1 AND status IN ('waiting', 'in_progress')
		ORDER BY position, join_time, id
	`
	return r.queryEntries(ctx, "query active entries", query, barberID)
}

// QueryByStatus returns entries with the given status ordered by join time.
func (r *Repository) QueryByStatus(ctx context.Context, barberID string, status domain.QueueStatus) ([]domain.QueueEntry, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown queue status %q", status)
	}
	if !validID(barberID) {
		return []domain.QueueEntry{}, nil
	}

	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE barber_id = $1 AND status = $2
		ORDER BY join_time, id
	`
	return r.queryEntries(ctx, "query entries by status", query, barberID, status)
}

// GetBarber retrieves a barber by ID.
func (r *Repository) GetBarber(ctx context.Context, id string) (*domain.Barber, error) {
	if !validID(id) {
		return nil, queue.ErrBarberNotFound
	}

	query := `
		SELECT id, name, salon_name, accepts_walkins, is_available, created_at, updated_at
		FROM barbers
		WHERE id = $1
	`
	barber, err := scanBarber(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrBarberNotFound
		}
		return nil, fmt.Errorf("get barber: %w", err)
	}
	return barber, nil
}

// UpdateAvailability sets the walk-in flags of a barber.
func (r *Repository) UpdateAvailability(ctx context.Context, id string, acceptsWalkIns, isAvailable bool) (*domain.Barber, error) {
	if !validID(id) {
		return nil, queue.ErrBarberNotFound
	}

	query := `
		UPDATE barbers
		SET accepts_walkins = $2, is_available = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, salon_name, accepts_walkins, is_available, created_at, updated_at
	`
	barber, err := scanBarber(r.db.QueryRow(ctx, query, id, acceptsWalkIns, isAvailable))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrBarberNotFound
		}
		return nil, fmt.Errorf("update barber availability: %w", err)
	}
	return barber, nil
}

// CreateBarber inserts a barber record. Profile management lives outside this
// service; this is used to seed barbers.
func (r *Repository) CreateBarber(ctx context.Context, barber *domain.Barber) error {
	query := `
		INSERT INTO barbers (name, salon_name, accepts_walkins, is_available)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		barber.Name,
		barber.SalonName,
		barber.AcceptsWalkIns,
		barber.IsAvailable,
	).Scan(&barber.ID, &barber.CreatedAt, &barber.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create barber: %w", err)
	}
	return nil
}

func (r *Repository) queryEntries(ctx context.Context, op, query string, args ...any) ([]domain.QueueEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := make([]domain.QueueEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := row.Scan(
		&e.ID,
		&e.BarberID,
		&e.CustomerName,
		&e.Phone,
		&e.Position,
		&e.JoinTime,
		&e.Status,
		&e.EstimatedWaitMinutes,
	)
	if err != nil {
		return nil, err
	}
	e.JoinTime = e.JoinTime.UTC()
	return &e, nil
}

func scanBarber(row pgx.Row) (*domain.Barber, error) {
	var b domain.Barber
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.SalonName,
		&b.AcceptsWalkIns,
		&b.IsAvailable,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// validID reports whether id can be a row key. Malformed IDs cannot match any row.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}
