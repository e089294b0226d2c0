package processors

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentdomain "github.com/Apurer/go-entity-processors/internal/domains/payment/domain"
	petdomain "github.com/Apurer/go-entity-processors/internal/domains/pets/domain"
	"github.com/Apurer/go-entity-processors/internal/domains/store/domain"
	"github.com/Apurer/go-entity-processors/internal/entitystore"
	"github.com/Apurer/go-entity-processors/internal/entitystore/adapters/memory"
	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/processing/processingtest"
)

func TestPlace_TotalEqualsSumOfLines(t *testing.T) {
	deps := processingtest.Deps(memory.NewStore(), nil)
	in := domain.Order{OrderID: "o-1", Lines: []domain.Line{
		{SKU: "food", Price: 12.5, Quantity: 2},
		{SKU: "toy", Price: 3.33, Quantity: 3},
	}}

	out, err := processingtest.Process(context.Background(), Place(deps), uuid.Nil, "new", in)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Quantity)
	assert.InDelta(t, 34.99, out.Total, 1e-9)
	assert.Equal(t, domain.StatusPlaced, out.Status)

	again, err := processingtest.Process(context.Background(), Place(deps), uuid.Nil, "new", out)
	require.NoError(t, err)
	assert.Equal(t, out.Total, again.Total)

	_, err = processingtest.Process(context.Background(), Place(deps), uuid.Nil, "new", domain.Order{OrderID: "o-2"})
	require.ErrorIs(t, err, processing.ErrPreconditionFailed)
	_, err = processingtest.Process(context.Background(), Place(deps), uuid.Nil, "new", domain.Order{OrderID: "o-3", PetID: "pet-1"})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestPlace_ReservesPetBestEffort(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithTransitions(entityports.TransitionTable{
		"pet": {"available": {"reserve": "pending"}},
	}))
	pet, err := entitystore.Create(ctx, store, "available", petdomain.Pet{ID: "pet-1", Name: "Rex", PhotoURLs: []string{"u"}})
	require.NoError(t, err)
	deps := processingtest.Deps(store, nil)

	_, err = processingtest.Process(ctx, Place(deps), uuid.Nil, "new", domain.Order{OrderID: "o-1", PetID: "pet-1", Quantity: 1})
	require.NoError(t, err)
	reserved, err := entitystore.GetByID[petdomain.Pet](ctx, store, pet.Metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", reserved.Metadata.State)

	// The pet is no longer available; the reservation fails but placement still succeeds.
	out, err := processingtest.Process(ctx, Place(deps), uuid.Nil, "new", domain.Order{OrderID: "o-2", PetID: "pet-1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaced, out.Status)

	_, err = processingtest.Process(ctx, Place(deps), uuid.Nil, "new", domain.Order{OrderID: "o-3", PetID: "pet-404", Quantity: 1})
	require.NoError(t, err)
}

func TestApprove_RequiresPaidPayment(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	deps := processingtest.Deps(store, nil)
	in := domain.Order{OrderID: "o-1", CartID: "cart-1", Quantity: 1, PetID: "pet-1"}

	_, err := processingtest.Process(ctx, Approve(deps), uuid.Nil, "placed", in)
	require.ErrorIs(t, err, processing.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "no payment found")

	payment, err := entitystore.Create(ctx, store, "processing", paymentdomain.Payment{
		PaymentID: "pay-1", CartID: "cart-1", Amount: 10, Status: paymentdomain.StatusProcessing,
	})
	require.NoError(t, err)
	_, err = processingtest.Process(ctx, Approve(deps), uuid.Nil, "placed", in)
	require.ErrorIs(t, err, processing.ErrPreconditionFailed)

	paid := payment.Entity
	paid.MarkPaid(processingtest.Clock)
	require.NoError(t, store.Update(ctx, payment.Metadata.ID, paid, ""))
	out, err := processingtest.Process(ctx, Approve(deps), uuid.Nil, "placed", in)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, out.Status)

	_, err = processingtest.Process(ctx, Approve(deps), uuid.Nil, "approved", in)
	require.ErrorIs(t, err, processing.ErrPreconditionFailed)
}

func TestShip_MovesWeekendShipDateToMonday(t *testing.T) {
	deps := processingtest.Deps(memory.NewStore(), nil)
	in := domain.Order{OrderID: "o-1", PetID: "pet-1", Quantity: 1, Status: domain.StatusApproved}

	// The fixed clock is a Friday; two days later is a Sunday.
	out, err := processingtest.Process(context.Background(), Ship(deps, 2), uuid.Nil, "approved", in)
	require.NoError(t, err)
	require.NotNil(t, out.ShipDate)
	assert.Equal(t, time.Monday, out.ShipDate.Weekday())
	assert.Equal(t, 18, out.ShipDate.Day())
	assert.Equal(t, domain.StatusShipped, out.Status)

	out, err = processingtest.Process(context.Background(), Ship(deps, 4), uuid.Nil, "approved", in)
	require.NoError(t, err)
	assert.Equal(t, 19, out.ShipDate.Day())

	_, err = processingtest.Process(context.Background(), Ship(deps, 2), uuid.Nil, "placed", in)
	require.ErrorIs(t, err, processing.ErrPreconditionFailed)
}

func TestDeliverAndIsComplete(t *testing.T) {
	deps := processingtest.Deps(memory.NewStore(), nil)
	in := domain.Order{OrderID: "o-1", PetID: "pet-1", Quantity: 1, Status: domain.StatusShipped}

	outcome, err := processingtest.Evaluate(context.Background(), IsComplete(), "shipped", in)
	require.NoError(t, err)
	assert.False(t, outcome.Matches)

	out, err := processingtest.Process(context.Background(), Deliver(deps), uuid.Nil, "shipped", in)
	require.NoError(t, err)
	assert.True(t, out.Complete)
	assert.Equal(t, domain.StatusDelivered, out.Status)

	outcome, err = processingtest.Evaluate(context.Background(), IsComplete(), "delivered", out)
	require.NoError(t, err)
	assert.True(t, outcome.Matches)
}

func TestCancel_IsIdempotent(t *testing.T) {
	deps := processingtest.Deps(memory.NewStore(), nil)
	in := domain.Order{OrderID: "o-1", PetID: "pet-1", Quantity: 1, CancelledReason: "customer request"}

	first, err := processingtest.Process(context.Background(), Cancel(deps), uuid.Nil, "placed", in)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, first.Status)
	assert.Equal(t, "customer request", first.CancelledReason)

	second, err := processingtest.Process(context.Background(), Cancel(deps), uuid.Nil, "cancelled", first)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	in.Status = domain.StatusDelivered
	_, err = processingtest.Process(context.Background(), Cancel(deps), uuid.Nil, "delivered", in)
	require.ErrorIs(t, err, processing.ErrPreconditionFailed)
}
