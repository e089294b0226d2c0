package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentdomain "github.com/Apurer/go-entity-processors/internal/domains/payment/domain"
	"github.com/Apurer/go-entity-processors/internal/entitystore"
	"github.com/Apurer/go-entity-processors/internal/entitystore/adapters/memory"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/processing/processingtest"
	"github.com/Apurer/go-entity-processors/internal/scheduling/adapters/inline"
)

func TestRegister_ExposesEveryFamily(t *testing.T) {
	reg := processing.NewRegistry()
	require.NoError(t, Register(reg, processingtest.Deps(memory.NewStore(), nil)))

	assert.Equal(t, []string{
		"cart_checkout", "cart_recalculate",
		"customer_anonymize", "customer_register",
		"loan_approve", "loan_fund", "loan_record_repayment",
		"order_approve", "order_cancel", "order_deliver", "order_place", "order_ship",
		"payment_create", "payment_mark_paid", "payment_start",
		"pet_adopt", "pet_groom", "pet_reserve", "pet_validate",
		"product_reserve_stock", "product_validate_stock",
	}, reg.Processors())
	assert.Equal(t, []string{
		"cart_has_items", "customer_is_anonymized", "loan_is_matured", "order_is_complete",
		"payment_is_paid", "pet_is_available", "product_in_stock",
	}, reg.Criteria())

	require.ErrorIs(t, Register(reg, processingtest.Deps(memory.NewStore(), nil)), processing.ErrDuplicateHandler)
}

func TestRegister_PaymentDelayOption(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithTransitions(Transitions()))
	scheduler := inline.NewScheduler(store)
	defer scheduler.Close()
	reg := processing.NewRegistry()
	require.NoError(t, Register(reg, processingtest.Deps(store, scheduler), WithPaymentConfirmationDelay(20*time.Millisecond)))

	created, err := entitystore.Create(ctx, store, "created", paymentdomain.Payment{PaymentID: "pay-1", CartID: "cart-1", Amount: 5})
	require.NoError(t, err)
	payload, err := store.GetByID(ctx, created.Metadata.ID, paymentdomain.Model)
	require.NoError(t, err)

	resp, err := reg.Process(ctx, processing.ProcessRequest{
		RequestID:     "req-1",
		ProcessorName: "payment_start",
		EntityID:      created.Metadata.ID,
		Model:         paymentdomain.Model,
		State:         "created",
		Payload:       payload.Entity,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NoError(t, store.Update(ctx, created.Metadata.ID, resp.Payload, "start"))

	require.Eventually(t, func() bool {
		got, err := store.GetByID(ctx, created.Metadata.ID, paymentdomain.Model)
		return err == nil && got.Metadata.State == "paid"
	}, time.Second, 5*time.Millisecond)
}
