//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/go-entity-processors/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	RequestID  string         `json:"requestId"`
	EntityID   string         `json:"entityId"`
	Model      modelSpec      `json:"model"`
	State      string         `json:"state"`
	Transition string         `json:"transition,omitempty"`
	Payload    map[string]any `json:"payload"`
}

type modelSpec struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type reply struct {
	RequestID string         `json:"requestId"`
	EntityID  string         `json:"entityId"`
	Success   bool           `json:"success"`
	Matches   bool           `json:"matches"`
	Payload   map[string]any `json:"payload"`
	Error     *errorDetail   `json:"error"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
}

func TestWorkflowEngineContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	petRequest := envelope{
		RequestID: "req-pet",
		EntityID:  pacttest.PetEntityID,
		Model:     modelSpec{Name: "pet", Version: 1},
		State:     "available",
		Payload:   pacttest.ExamplePetPayload(),
	}
	orderRequest := envelope{
		RequestID:  "req-order",
		EntityID:   pacttest.OrderEntityID,
		Model:      modelSpec{Name: "order", Version: 1},
		State:      "placed",
		Transition: "approve",
		Payload:    pacttest.ExampleOrderPayload(),
	}

	pact.AddInteraction().
		Given(pacttest.StateHandlersBaseline).
		UponReceiving("a request to validate a pet").
		WithRequest("POST", "/v1/processors/pet_validate", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(petRequest)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"requestId": matchers.S(petRequest.RequestID),
				"entityId":  matchers.S(pacttest.PetEntityID),
				"success":   matchers.Like(true),
				"payload": matchers.Map{
					"id":     matchers.S("pact-pet"),
					"name":   matchers.Like("Fluffy Pact Cat"),
					"status": matchers.Term("available", "available|pending|sold"),
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateHandlersBaseline).
		UponReceiving("a request to evaluate pet availability").
		WithRequest("POST", "/v1/criteria/pet_is_available", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(petRequest)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"requestId": matchers.S(petRequest.RequestID),
				"success":   matchers.Like(true),
				"matches":   matchers.Like(true),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCartPaid).
		UponReceiving("a request to approve a paid order").
		WithRequest("POST", "/v1/processors/order_approve", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(orderRequest)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"success": matchers.Like(true),
				"payload": matchers.Map{
					"orderId": matchers.S("pact-order"),
					"status":  matchers.S("approved"),
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCartUnpaid).
		UponReceiving("a request to approve an unpaid order").
		WithRequest("POST", "/v1/processors/order_approve", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(orderRequest)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"success": matchers.Like(false),
				"error": matchers.Map{
					"code":    matchers.S("PRECONDITION_FAILED"),
					"message": matchers.Like("precondition failed: no payment found for cart pact-cart"),
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateHandlersBaseline).
		UponReceiving("a request for an unknown processor").
		WithRequest("POST", "/v1/processors/pet_fly", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(petRequest)
		}).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/unknown-handler"),
				"title":  matchers.S("Unknown Handler"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newEngineClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		validated, _, err := client.Post(ctx, "/v1/processors/pet_validate", petRequest)
		if err != nil {
			return fmt.Errorf("validate pet: %w", err)
		}
		if !validated.Success || validated.Payload["id"] != "pact-pet" {
			return fmt.Errorf("unexpected validate reply %+v", validated)
		}

		evaluated, _, err := client.Post(ctx, "/v1/criteria/pet_is_available", petRequest)
		if err != nil {
			return fmt.Errorf("evaluate pet: %w", err)
		}
		if !evaluated.Matches {
			return fmt.Errorf("expected available pet to match")
		}

		approved, _, err := client.Post(ctx, "/v1/processors/order_approve", orderRequest)
		if err != nil {
			return fmt.Errorf("approve order: %w", err)
		}
		if approved.Success && approved.Payload["status"] != "approved" {
			return fmt.Errorf("unexpected approve reply %+v", approved)
		}
		if !approved.Success && (approved.Error == nil || approved.Error.Code != "PRECONDITION_FAILED") {
			return fmt.Errorf("unexpected approve failure %+v", approved)
		}

		if _, status, err := client.Post(ctx, "/v1/processors/pet_fly", petRequest); err == nil {
			return fmt.Errorf("expected unknown processor to fail")
		} else if status != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %d", status)
		}
		return nil
	})
	require.NoError(t, err)
}

type engineClient struct {
	baseURL    string
	httpClient *http.Client
}

func newEngineClient(config pactconsumer.MockServerConfig) *engineClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &engineClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *engineClient) Post(ctx context.Context, path string, body envelope) (*reply, int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var problem problemDetail
		_ = json.NewDecoder(res.Body).Decode(&problem)
		return nil, res.StatusCode, fmt.Errorf("%s (status %d)", problem.Title, res.StatusCode)
	}
	var out reply
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, res.StatusCode, err
	}
	return &out, res.StatusCode, nil
}
