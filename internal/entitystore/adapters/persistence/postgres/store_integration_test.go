//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/platform/migrations"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

var orderModel = entity.ModelSpec{Name: "order", Version: 1}

func setupEntityPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("entities_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}
	return db, cleanup
}

func TestStore_CreateAndSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupEntityPostgresContainer(t)
	defer cleanup()

	store := NewStore(db)
	ctx := context.Background()

	_, err := store.Create(ctx, orderModel, "placed", map[string]any{"orderId": "o-1", "petId": "p-1", "quantity": 2})
	require.NoError(t, err)
	_, err = store.Create(ctx, orderModel, "approved", map[string]any{"orderId": "o-2", "petId": "p-1", "quantity": 1})
	require.NoError(t, err)

	all, err := store.Search(ctx, orderModel, entity.Equals("petId", "p-1"))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	placed, err := store.Search(ctx, orderModel, entity.And(entity.Equals("petId", "p-1"), entity.InState("placed")))
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.JSONEq(t, `{"orderId":"o-1","petId":"p-1","quantity":2}`, string(placed[0].Entity))

	byQty, err := store.Search(ctx, orderModel, entity.Equals("quantity", 1))
	require.NoError(t, err)
	assert.Len(t, byQty, 1)

	found, err := store.FindByBusinessID(ctx, orderModel, "o-2", "orderId")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "approved", found.Metadata.State)

	_, err = store.FindByBusinessID(ctx, orderModel, "p-1", "petId")
	assert.ErrorIs(t, err, ports.ErrAmbiguous)
}

func TestStore_UpdateWithTransitions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupEntityPostgresContainer(t)
	defer cleanup()

	store := NewStore(db, WithTransitions(ports.TransitionTable{
		"order": {"placed": {"cancel": "cancelled"}},
	}))
	ctx := context.Background()

	created, err := store.Create(ctx, orderModel, "placed", map[string]any{"orderId": "o-1"})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, created.Metadata.ID, map[string]any{"orderId": "o-1", "status": "cancelled"}, "cancel"))
	got, err := store.GetByID(ctx, created.Metadata.ID, orderModel)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Metadata.State)
	assert.Equal(t, "cancel", got.Metadata.Transition)
	assert.JSONEq(t, `{"orderId":"o-1","status":"cancelled"}`, string(got.Entity))

	err = store.Update(ctx, created.Metadata.ID, nil, "cancel")
	assert.ErrorIs(t, err, ports.ErrInvalidTransition)

	history, err := store.History(ctx, created.Metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cancel"}, history)
}

func TestStore_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupEntityPostgresContainer(t)
	defer cleanup()

	store := NewStore(db)
	ctx := context.Background()

	created, err := store.Create(ctx, orderModel, "placed", map[string]any{"orderId": "o-1"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, created.Metadata.ID))

	_, err = store.GetByID(ctx, created.Metadata.ID, orderModel)
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, created.Metadata.ID), ports.ErrNotFound)
}
