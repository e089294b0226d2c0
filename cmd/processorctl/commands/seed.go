package commands

import (
	"context"
	"encoding/json"
	"fmt"

	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// seedRecord is one related entity created before a run.
type seedRecord struct {
	Model   string          `json:"model"`
	Version int             `json:"version"`
	State   string          `json:"state"`
	Entity  json.RawMessage `json:"entity"`
}

func seed(ctx context.Context, store entityports.Service, raw []byte) error {
	var records []seedRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}
	for i, record := range records {
		if record.Model == "" || len(record.Entity) == 0 {
			return fmt.Errorf("seed record %d: model and entity are required", i)
		}
		if record.Version == 0 {
			record.Version = 1
		}
		model := entity.ModelSpec{Name: record.Model, Version: record.Version}
		if _, err := store.Create(ctx, model, record.State, record.Entity); err != nil {
			return fmt.Errorf("seed record %d (%s): %w", i, model, err)
		}
	}
	return nil
}
