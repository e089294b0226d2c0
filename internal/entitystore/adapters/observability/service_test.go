package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-entity-processors/internal/entitystore/adapters/memory"
	"github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

func TestService_DelegatesAndLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	svc := New(memory.NewStore(), WithLogger(logger))
	ctx := context.Background()
	model := entity.ModelSpec{Name: "pet", Version: 1}

	created, err := svc.Create(ctx, model, "available", map[string]any{"id": "p-1"})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.Metadata.ID, model)
	require.NoError(t, err)
	assert.Equal(t, created.Metadata.ID, got.Metadata.ID)

	hits, err := svc.Search(ctx, model, entity.Equals("id", "p-1"))
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	require.NoError(t, svc.Update(ctx, created.Metadata.ID, nil, "reserve"))
	require.NoError(t, svc.Delete(ctx, created.Metadata.ID))

	err = svc.Delete(ctx, created.Metadata.ID)
	require.ErrorIs(t, err, ports.ErrNotFound)
	assert.Contains(t, buf.String(), "entity delete failed")
	assert.Contains(t, buf.String(), "entity created")
}
