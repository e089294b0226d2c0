package processing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

type counter struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

func (counter) Model() entity.ModelSpec { return entity.ModelSpec{Name: "counter", Version: 1} }

func (c counter) Validate() error {
	if c.Label == "" {
		return errors.New("label is required")
	}
	return nil
}

func counterRequest(t *testing.T, name, state string, value counter) ProcessRequest {
	t.Helper()
	payload, err := json.Marshal(value)
	require.NoError(t, err)
	return ProcessRequest{
		RequestID:     "req-1",
		ProcessorName: name,
		EntityID:      uuid.New(),
		Model:         value.Model(),
		State:         state,
		Payload:       payload,
	}
}

func incrementProcessor(applied *int) Processor[counter] {
	return ProcessorFunc[counter]("counter_increment",
		func(_ context.Context, in entity.WithMetadata[counter]) error {
			return RequireState(in.Metadata, "open")
		},
		func(_ context.Context, in *entity.WithMetadata[counter]) error {
			*applied++
			in.Entity.Value++
			return nil
		},
	)
}

func TestAdaptProcessor_AppliesMutation(t *testing.T) {
	applied := 0
	handler := AdaptProcessor(incrementProcessor(&applied))
	req := counterRequest(t, "counter_increment", "open", counter{Label: "a", Value: 1})

	resp, err := handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, req.RequestID, resp.RequestID)
	assert.Equal(t, req.EntityID, resp.EntityID)
	assert.JSONEq(t, `{"label":"a","value":2}`, string(resp.Payload))
	assert.JSONEq(t, `{"label":"a","value":1}`, string(req.Payload))
	assert.Equal(t, 1, applied)
}

func TestAdaptProcessor_FailedCheckSkipsApply(t *testing.T) {
	applied := 0
	handler := AdaptProcessor(incrementProcessor(&applied))

	_, err := handler.Handle(context.Background(), counterRequest(t, "counter_increment", "closed", counter{Label: "a"}))
	require.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Zero(t, applied)

	_, err = handler.Handle(context.Background(), counterRequest(t, "counter_increment", "open", counter{}))
	require.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "label is required")
	assert.Zero(t, applied)
}

func TestAdaptProcessor_MalformedPayload(t *testing.T) {
	handler := AdaptProcessor(incrementProcessor(new(int)))
	req := counterRequest(t, "counter_increment", "open", counter{Label: "a"})
	req.Payload = json.RawMessage(`{"label":`)

	_, err := handler.Handle(context.Background(), req)
	require.ErrorIs(t, err, ErrMalformedPayload)
	assert.Equal(t, CodeMalformedPayload, CodeOf(err))
}

func TestAdaptProcessor_ApplyFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	handler := AdaptProcessor(ProcessorFunc[counter]("counter_fail", nil,
		func(context.Context, *entity.WithMetadata[counter]) error { return boom }))

	resp, err := handler.Handle(context.Background(), counterRequest(t, "counter_fail", "open", counter{Label: "a"}))
	require.ErrorIs(t, err, boom)
	assert.Nil(t, resp)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestAdaptCriterion(t *testing.T) {
	evaluator := AdaptCriterion(CriterionFunc[counter]("counter_positive",
		func(_ context.Context, in entity.WithMetadata[counter]) (Outcome, error) {
			if in.Entity.Value > 0 {
				return Match(), nil
			}
			return NoMatch(CategoryBusinessRule, "value must be positive"), nil
		}))
	payload, err := json.Marshal(counter{Label: "a"})
	require.NoError(t, err)

	resp, err := evaluator.Evaluate(context.Background(), CriterionRequest{RequestID: "r", CriterionName: "counter_positive", Payload: payload})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Matches)
	assert.Equal(t, CategoryBusinessRule, resp.Category)
	assert.Equal(t, "value must be positive", resp.Reason)
	assert.True(t, evaluator.Supports("counter_positive"))
}

func TestFailedProcessResponse(t *testing.T) {
	req := ProcessRequest{RequestID: "r-9", EntityID: uuid.New()}
	resp := FailedProcessResponse(req, Rejectf("pet %s is not available", "p-1"))

	assert.False(t, resp.Success)
	assert.Equal(t, "r-9", resp.RequestID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodePreconditionFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "pet p-1 is not available")
}
