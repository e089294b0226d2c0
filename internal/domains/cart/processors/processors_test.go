package processors

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-entity-processors/internal/domains/cart/domain"
	inventorydomain "github.com/Apurer/go-entity-processors/internal/domains/inventory/domain"
	"github.com/Apurer/go-entity-processors/internal/entitystore"
	"github.com/Apurer/go-entity-processors/internal/entitystore/adapters/memory"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/processing/processingtest"
)

func twoLineCart() domain.Cart {
	return domain.Cart{CartID: "cart-1", Lines: []domain.Line{
		{SKU: "food", Name: "Dog food", Price: 19.99, Quantity: 3},
		{SKU: "leash", Name: "Leash", Price: 7.5, Quantity: 1},
	}}
}

func TestRecalculate_GrandTotalIsSumOfLines(t *testing.T) {
	deps := processingtest.Deps(memory.NewStore(), nil)

	out, err := processingtest.Process(context.Background(), Recalculate(deps), uuid.Nil, "active", twoLineCart())
	require.NoError(t, err)
	assert.InDelta(t, 59.97, out.Lines[0].LineTotal, 1e-9)
	assert.InDelta(t, 7.5, out.Lines[1].LineTotal, 1e-9)
	assert.InDelta(t, out.Lines[0].LineTotal+out.Lines[1].LineTotal, out.GrandTotal, 1e-9)
	assert.Equal(t, 4, out.TotalItems)

	again, err := processingtest.Process(context.Background(), Recalculate(deps), uuid.Nil, "active", out)
	require.NoError(t, err)
	assert.Equal(t, out.GrandTotal, again.GrandTotal)
	assert.Equal(t, out.Lines, again.Lines)
}

func TestRecalculate_RejectsInvalidLines(t *testing.T) {
	deps := processingtest.Deps(memory.NewStore(), nil)
	in := twoLineCart()
	in.Lines[1].Quantity = 0

	_, err := processingtest.Process(context.Background(), Recalculate(deps), uuid.Nil, "active", in)
	require.ErrorIs(t, err, domain.ErrInvalidLine)
}

func TestCheckout_ReservesStockBestEffort(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	food, err := entitystore.Create(ctx, store, "active", inventorydomain.Product{SKU: "food", StockOnHand: 10})
	require.NoError(t, err)
	deps := processingtest.Deps(store, nil)

	// "leash" has no product entity; its reservation fails without failing checkout.
	out, err := processingtest.Process(ctx, Checkout(deps), uuid.Nil, "active", twoLineCart())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCheckingOut, out.Status)
	assert.InDelta(t, 67.47, out.GrandTotal, 1e-9)

	product, err := entitystore.GetByID[inventorydomain.Product](ctx, store, food.Metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, product.Entity.RequestedQuantity)
	assert.Equal(t, "reserve_stock", product.Metadata.Transition)
}

func TestCheckout_Preconditions(t *testing.T) {
	deps := processingtest.Deps(memory.NewStore(), nil)

	_, err := processingtest.Process(context.Background(), Checkout(deps), uuid.Nil, "checking_out", twoLineCart())
	require.ErrorIs(t, err, processing.ErrPreconditionFailed)

	_, err = processingtest.Process(context.Background(), Checkout(deps), uuid.Nil, "active", domain.Cart{CartID: "cart-2"})
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestHasItems(t *testing.T) {
	outcome, err := processingtest.Evaluate(context.Background(), HasItems(), "active", twoLineCart())
	require.NoError(t, err)
	assert.True(t, outcome.Matches)

	outcome, err = processingtest.Evaluate(context.Background(), HasItems(), "active", domain.Cart{CartID: "cart-2"})
	require.NoError(t, err)
	assert.False(t, outcome.Matches)
	assert.Equal(t, processing.CategoryValidation, outcome.Category)
}
