package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	transitionworkflows "github.com/Apurer/go-entity-processors/internal/platform/temporal/workflows/transitions"
	"github.com/Apurer/go-entity-processors/internal/scheduling/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

func deferredTask() ports.DeferredTransition {
	return ports.DeferredTransition{
		Key:        "pay-1:auto_mark_paid",
		EntityID:   uuid.New(),
		Model:      entity.ModelSpec{Name: "payment", Version: 1},
		Transition: "auto_mark_paid",
		Delay:      3 * time.Second,
	}
}

func TestScheduler_StartsWorkflowWithDeterministicID(t *testing.T) {
	c := &mocks.Client{}
	task := deferredTask()
	c.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
			return opts.ID == BuildWorkflowID(task.Key) &&
				opts.TaskQueue == transitionworkflows.DeferredTransitionTaskQueue &&
				opts.WorkflowExecutionErrorWhenAlreadyStarted
		}),
		transitionworkflows.DeferredTransitionWorkflowName,
		mock.MatchedBy(func(in transitionworkflows.DeferredTransitionWorkflowInput) bool {
			return in.Trigger.EntityID == task.EntityID && in.Trigger.Transition == task.Transition && in.Delay == task.Delay
		}),
	).Return(&mocks.WorkflowRun{}, nil).Once()

	require.NoError(t, NewScheduler(c).ScheduleTransition(context.Background(), task))
	c.AssertExpectations(t)
}

func TestScheduler_AlreadyStartedIsSuccess(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &serviceerror.WorkflowExecutionAlreadyStarted{Message: "running"}).Once()

	require.NoError(t, NewScheduler(c).ScheduleTransition(context.Background(), deferredTask()))
	c.AssertExpectations(t)
}

func TestScheduler_StartFailureIsReported(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("frontend unavailable")).Once()

	err := NewScheduler(c).ScheduleTransition(context.Background(), deferredTask())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frontend unavailable")
}

func TestScheduler_RejectsInvalidTask(t *testing.T) {
	c := &mocks.Client{}
	task := deferredTask()
	task.Transition = ""
	require.Error(t, NewScheduler(c).ScheduleTransition(context.Background(), task))
	c.AssertNotCalled(t, "ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuildWorkflowID_IsStable(t *testing.T) {
	assert.Equal(t, BuildWorkflowID("a"), BuildWorkflowID("a"))
	assert.NotEqual(t, BuildWorkflowID("a"), BuildWorkflowID("b"))
}
