package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mrctran/mnemo/internal/domain"
)

// SlotStore persists versioned structured slots keyed by
// (user, agent, key).
type SlotStore struct {
	db *sql.DB
}

func NewSlotStore(db *sql.DB) *SlotStore {
	return &SlotStore{db: db}
}

const slotColumns = `id, user_id, agent_id, key, category, value, source, confidence, version, created_at, updated_at, expires_at`

// Set upserts a slot. An existing row keeps its created_at and gets
// version+1; a new row starts at version 1. Atomic per key.
func (s *SlotStore) Set(ctx context.Context, scope domain.Scope, w domain.SlotWrite) (*domain.Slot, error) {
	if w.Key == "" {
		return nil, fmt.Errorf("slot key is required")
	}

	category := w.Category
	if category == "" {
		category = domain.InferCategory(w.Key)
	}
	source := w.Source
	if source == "" {
		source = domain.SlotSourceManual
	}
	confidence := w.Confidence
	if confidence == 0 {
		confidence = 1.0
	}

	value, err := json.Marshal(w.Value)
	if err != nil {
		return nil, fmt.Errorf("encode slot value: %w", err)
	}

	now := time.Now().UTC()
	var expires sql.NullTime
	if w.ExpiresAt != nil {
		expires = sql.NullTime{Time: w.ExpiresAt.UTC(), Valid: true}
	}

	slot := &domain.Slot{
		User:       scope.User,
		Agent:      scope.Agent,
		Key:        w.Key,
		Category:   category,
		Value:      w.Value,
		Source:     source,
		Confidence: confidence,
		UpdatedAt:  now,
		ExpiresAt:  w.ExpiresAt,
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO slots (user_id, agent_id, key, category, value, source, confidence, version, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		 ON CONFLICT(user_id, agent_id, key) DO UPDATE SET
		     category   = excluded.category,
		     value      = excluded.value,
		     source     = excluded.source,
		     confidence = excluded.confidence,
		     version    = slots.version + 1,
		     updated_at = excluded.updated_at,
		     expires_at = excluded.expires_at
		 RETURNING id, version, created_at`,
		scope.User, scope.Agent, w.Key, category, string(value), string(source), confidence, now, now, expires,
	).Scan(&slot.ID, &slot.Version, &slot.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert slot %s: %w", w.Key, err)
	}

	return slot, nil
}

// Get returns a single slot by key, or ErrNotFound.
func (s *SlotStore) Get(ctx context.Context, scope domain.Scope, key string) (*domain.Slot, error) {
	if err := s.cleanExpired(ctx, scope); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE user_id = ? AND agent_id = ? AND key = ?`,
		scope.User, scope.Agent, key,
	)
	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return slot, nil
}

// GetByCategory returns the slots of one category, ordered by key.
func (s *SlotStore) GetByCategory(ctx context.Context, scope domain.Scope, category string) ([]domain.Slot, error) {
	return s.List(ctx, scope, domain.SlotFilter{Category: category})
}

// GetAll returns every slot in the scope, ordered by category then key.
func (s *SlotStore) GetAll(ctx context.Context, scope domain.Scope) ([]domain.Slot, error) {
	return s.List(ctx, scope, domain.SlotFilter{})
}

// List returns slots matching the filter. Prefix matches keys beginning
// with the given string.
func (s *SlotStore) List(ctx context.Context, scope domain.Scope, f domain.SlotFilter) ([]domain.Slot, error) {
	if err := s.cleanExpired(ctx, scope); err != nil {
		return nil, err
	}

	query := `SELECT ` + slotColumns + ` FROM slots WHERE user_id = ? AND agent_id = ?`
	args := []any{scope.User, scope.Agent}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Prefix != "" {
		query += ` AND key LIKE ?`
		args = append(args, f.Prefix+"%")
	}
	query += ` ORDER BY category, key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

// Delete removes a slot by key. Returns true if a live row was removed;
// a slot whose TTL already elapsed counts as absent.
func (s *SlotStore) Delete(ctx context.Context, scope domain.Scope, key string) (bool, error) {
	if err := s.cleanExpired(ctx, scope); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM slots WHERE user_id = ? AND agent_id = ? AND key = ?`,
		scope.User, scope.Agent, key,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CurrentState returns the category -> key -> value snapshot, skipping
// internal keys.
func (s *SlotStore) CurrentState(ctx context.Context, scope domain.Scope) (domain.CurrentState, error) {
	slots, err := s.GetAll(ctx, scope)
	if err != nil {
		return nil, err
	}

	state := domain.CurrentState{}
	for _, slot := range slots {
		if domain.IsInternalKey(slot.Key) {
			continue
		}
		if state[slot.Category] == nil {
			state[slot.Category] = map[string]any{}
		}
		state[slot.Category][slot.Key] = slot.Value
	}
	return state, nil
}

// Count returns the number of live slots in the scope.
func (s *SlotStore) Count(ctx context.Context, scope domain.Scope) (int, error) {
	if err := s.cleanExpired(ctx, scope); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slots WHERE user_id = ? AND agent_id = ?`,
		scope.User, scope.Agent,
	).Scan(&n)
	return n, err
}

// cleanExpired removes rows whose TTL has elapsed. Runs before every read
// so expired slots are never observable.
func (s *SlotStore) cleanExpired(ctx context.Context, scope domain.Scope) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM slots WHERE user_id = ? AND agent_id = ? AND expires_at IS NOT NULL AND expires_at < ?`,
		scope.User, scope.Agent, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("clean expired slots: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*domain.Slot, error) {
	var (
		slot    domain.Slot
		value   string
		source  string
		expires sql.NullTime
	)
	if err := row.Scan(&slot.ID, &slot.User, &slot.Agent, &slot.Key, &slot.Category,
		&value, &source, &slot.Confidence, &slot.Version,
		&slot.CreatedAt, &slot.UpdatedAt, &expires); err != nil {
		return nil, err
	}
	slot.Source = domain.SlotSource(source)
	if expires.Valid {
		t := expires.Time
		slot.ExpiresAt = &t
	}
	if err := json.Unmarshal([]byte(value), &slot.Value); err != nil {
		return nil, fmt.Errorf("decode slot value for %s: %w", slot.Key, err)
	}
	return &slot, nil
}
