package processing

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// ProcessRequest is the envelope the engine sends when a transition runs a processor.
type ProcessRequest struct {
	RequestID     string           `json:"requestId"`
	ProcessorName string           `json:"processorName"`
	EntityID      uuid.UUID        `json:"entityId"`
	Model         entity.ModelSpec `json:"model"`
	State         string           `json:"state"`
	Transition    string           `json:"transition,omitempty"`
	Payload       json.RawMessage  `json:"payload"`
}

// Metadata rebuilds the lifecycle metadata carried by the request.
func (r ProcessRequest) Metadata() entity.Metadata {
	return entity.Metadata{ID: r.EntityID, Model: r.Model, State: r.State, Transition: r.Transition}
}

// ErrorDetail describes why a handler rejected or failed an invocation.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ProcessResponse wraps the mutated, unpersisted entity.
type ProcessResponse struct {
	RequestID string          `json:"requestId"`
	EntityID  uuid.UUID       `json:"entityId"`
	Success   bool            `json:"success"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     *ErrorDetail    `json:"error,omitempty"`
}

// CriterionRequest is the envelope the engine sends to evaluate a transition guard.
type CriterionRequest struct {
	RequestID     string           `json:"requestId"`
	CriterionName string           `json:"criterionName"`
	EntityID      uuid.UUID        `json:"entityId"`
	Model         entity.ModelSpec `json:"model"`
	State         string           `json:"state"`
	Transition    string           `json:"transition,omitempty"`
	Payload       json.RawMessage  `json:"payload"`
}

func (r CriterionRequest) Metadata() entity.Metadata {
	return entity.Metadata{ID: r.EntityID, Model: r.Model, State: r.State, Transition: r.Transition}
}

// CriterionResponse carries the evaluation outcome.
type CriterionResponse struct {
	RequestID string         `json:"requestId"`
	EntityID  uuid.UUID      `json:"entityId"`
	Success   bool           `json:"success"`
	Matches   bool           `json:"matches"`
	Reason    string         `json:"reason,omitempty"`
	Category  ReasonCategory `json:"category,omitempty"`
	Error     *ErrorDetail   `json:"error,omitempty"`
}

// FailedProcessResponse converts a handler error into a failure envelope.
func FailedProcessResponse(req ProcessRequest, err error) *ProcessResponse {
	return &ProcessResponse{
		RequestID: req.RequestID,
		EntityID:  req.EntityID,
		Error:     detailOf(err),
	}
}

// FailedCriterionResponse converts an evaluation error into a failure envelope.
func FailedCriterionResponse(req CriterionRequest, err error) *CriterionResponse {
	return &CriterionResponse{
		RequestID: req.RequestID,
		EntityID:  req.EntityID,
		Error:     detailOf(err),
	}
}

func detailOf(err error) *ErrorDetail {
	if err == nil {
		return &ErrorDetail{Code: CodeInternal, Message: "unknown failure"}
	}
	return &ErrorDetail{Code: CodeOf(err), Message: err.Error()}
}
