package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

var _ ports.Service = (*Store)(nil)

// Store persists entities in PostgreSQL using GORM. Payloads live in a jsonb column.
type Store struct {
	db          *gorm.DB
	transitions ports.TransitionTable
	now         func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithTransitions lets Update advance lifecycle states for the described models.
func WithTransitions(table ports.TransitionTable) Option {
	return func(s *Store) {
		s.transitions = table
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore wires a PostgreSQL-backed store. Caller manages DB lifecycle and migrations.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// entityRecord maps an entity with its metadata to the entities table.
type entityRecord struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;column:id"`
	ModelName      string         `gorm:"column:model_name;type:varchar(64);index:idx_entities_model_state"`
	ModelVersion   int            `gorm:"column:model_version;index:idx_entities_model_state"`
	State          string         `gorm:"column:state;type:varchar(64);index:idx_entities_model_state"`
	LastTransition string         `gorm:"column:last_transition;type:varchar(64)"`
	Transitions    pq.StringArray `gorm:"column:transitions;type:text[]"`
	Data           string         `gorm:"column:data;type:jsonb"`
	CreatedAt      time.Time      `gorm:"column:created_at;index"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (entityRecord) TableName() string { return "entities" }

// Create inserts a new entity in the given initial state.
func (s *Store) Create(ctx context.Context, model entity.ModelSpec, state string, payload any) (*entity.Raw, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	raw, err := ports.EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", model, err)
	}
	timestamp := s.now().UTC()
	record := entityRecord{
		ID:           uuid.New(),
		ModelName:    model.Name,
		ModelVersion: model.Version,
		State:        state,
		Transitions:  pq.StringArray{},
		Data:         string(raw),
		CreatedAt:    timestamp,
		UpdatedAt:    timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return record.toRaw(), nil
}

// Search returns every entity of the model matching the condition, oldest first.
func (s *Store) Search(ctx context.Context, model entity.ModelSpec, cond entity.Condition) ([]*entity.Raw, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	where, args := buildWhere(cond)
	var records []entityRecord
	err := s.db.WithContext(ctx).
		Where("model_name = ? AND model_version = ?", model.Name, model.Version).
		Where(where, args...).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	result := make([]*entity.Raw, 0, len(records))
	for i := range records {
		result = append(result, records[i].toRaw())
	}
	return result, nil
}

// FindByBusinessID returns the single match for field == value, or nil when absent.
func (s *Store) FindByBusinessID(ctx context.Context, model entity.ModelSpec, value any, field string) (*entity.Raw, error) {
	matches, err := s.Search(ctx, model, entity.Equals(field, value))
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s %s=%v", ports.ErrAmbiguous, model, field, value)
	}
}

// GetByID loads an entity by technical id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID, model entity.ModelSpec) (*entity.Raw, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record entityRecord
	err := s.db.WithContext(ctx).
		First(&record, "id = ? AND model_name = ? AND model_version = ?", id, model.Name, model.Version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toRaw(), nil
}

// Update replaces the payload and optionally records a transition inside one transaction.
func (s *Store) Update(ctx context.Context, id uuid.UUID, mutated any, transition string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	var payload json.RawMessage
	if mutated != nil {
		raw, err := ports.EncodePayload(mutated)
		if err != nil {
			return fmt.Errorf("encode payload for %s: %w", id, err)
		}
		payload = raw
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record entityRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrNotFound
			}
			return err
		}
		model := entity.ModelSpec{Name: record.ModelName, Version: record.ModelVersion}
		updates := map[string]any{"updated_at": s.now().UTC()}
		if transition != "" {
			if s.transitions.Knows(model) {
				target, ok := s.transitions.Target(model, record.State, transition)
				if !ok {
					return fmt.Errorf("%w: %s from %s", ports.ErrInvalidTransition, transition, record.State)
				}
				updates["state"] = target
			}
			updates["last_transition"] = transition
			updates["transitions"] = gorm.Expr("array_append(transitions, ?)", transition)
		}
		if payload != nil {
			updates["data"] = string(payload)
		}
		return tx.Model(&entityRecord{}).Where("id = ?", id).Updates(updates).Error
	})
}

// Delete removes an entity by technical id.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&entityRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// History lists the transitions triggered on an entity, oldest first.
func (s *Store) History(ctx context.Context, id uuid.UUID) ([]string, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record entityRecord
	if err := s.db.WithContext(ctx).Select("transitions").First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return []string(record.Transitions), nil
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres entity store not configured")
	}
	return nil
}

// buildWhere translates a condition into a SQL fragment over the jsonb payload.
func buildWhere(cond entity.Condition) (string, []any) {
	if cond.IsGroup() {
		if len(cond.Conditions) == 0 {
			if cond.Group == entity.GroupOr {
				return "FALSE", nil
			}
			return "TRUE", nil
		}
		joiner := " AND "
		if cond.Group == entity.GroupOr {
			joiner = " OR "
		}
		parts := make([]string, 0, len(cond.Conditions))
		var args []any
		for _, nested := range cond.Conditions {
			sql, nestedArgs := buildWhere(nested)
			parts = append(parts, "("+sql+")")
			args = append(args, nestedArgs...)
		}
		return strings.Join(parts, joiner), args
	}
	if cond.Field == entity.StateField {
		return "state = ?", []any{entity.ValueString(cond.Value)}
	}
	if cond.Value == nil {
		return "data #>> string_to_array(?, '.') IS NULL", []any{cond.Field}
	}
	return "data #>> string_to_array(?, '.') = ?", []any{cond.Field, entity.ValueString(cond.Value)}
}

func (r entityRecord) toRaw() *entity.Raw {
	return &entity.Raw{
		Entity: json.RawMessage(r.Data),
		Metadata: entity.Metadata{
			ID:         r.ID,
			Model:      entity.ModelSpec{Name: r.ModelName, Version: r.ModelVersion},
			State:      r.State,
			Transition: r.LastTransition,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		},
	}
}
