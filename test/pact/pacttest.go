//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "entity-processors"
	ConsumerName = "workflow-engine"

	StateHandlersBaseline = "handlers registered"
	StateCartPaid         = "payment for cart pact-cart is paid"
	StateCartUnpaid       = "no payment for cart pact-cart"
)

const (
	PetEntityID   = "5b0c1d7e-3f0a-4c8e-9a51-2d8f6c1b7e01"
	OrderEntityID = "5b0c1d7e-3f0a-4c8e-9a51-2d8f6c1b7e02"

	PactCartID    = "pact-cart"
	PactPaymentID = "pact-payment"
)

const (
	examplePhotoURL = "https://example.pact/pets/fluffy.png"
	examplePetName  = "Fluffy Pact Cat"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the engine consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExamplePetPayload provides stable pet data for processor interactions.
func ExamplePetPayload() map[string]any {
	return map[string]any{
		"id":        "pact-pet",
		"name":      examplePetName,
		"photoUrls": []string{examplePhotoURL},
		"status":    "available",
	}
}

// ExampleOrderPayload provides a placed order settled by the pact cart.
func ExampleOrderPayload() map[string]any {
	return map[string]any{
		"orderId":  "pact-order",
		"cartId":   PactCartID,
		"quantity": 1,
		"total":    40,
		"status":   "placed",
	}
}

// ExamplePaymentPayload provides the paid payment seeded by the provider.
func ExamplePaymentPayload() map[string]any {
	return map[string]any{
		"paymentId": PactPaymentID,
		"cartId":    PactCartID,
		"amount":    40,
		"status":    "paid",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
