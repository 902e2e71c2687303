package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/wms-platform/pick-ticket-service/pkg/metrics"
)

func TestDefaultActivityOptions_ToWorkflowOptions(t *testing.T) {
	opts := DefaultActivityOptions()
	opts.RetryPolicy.NonRetryableErrorTypes = []string{"JobIntegrityViolation"}

	wo := opts.ToWorkflowOptions()

	assert.Equal(t, 5*time.Minute, wo.StartToCloseTimeout)
	assert.NotNil(t, wo.RetryPolicy)
	assert.Equal(t, int32(3), wo.RetryPolicy.MaximumAttempts)
	assert.Equal(t, 2.0, wo.RetryPolicy.BackoffCoefficient)
	assert.Equal(t, []string{"JobIntegrityViolation"}, wo.RetryPolicy.NonRetryableErrorTypes)
}

func TestDefaultWorkerOptions(t *testing.T) {
	opts := DefaultWorkerOptions(TaskQueues.PickTicket)

	assert.Equal(t, "pick-ticket-queue", opts.TaskQueue)
	assert.Positive(t, opts.MaxConcurrentActivities)
}

func TestClient_StartWorkflow(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("pick-ticket-service"))

	run := &mocks.WorkflowRun{}
	sdk := &mocks.Client{}
	sdk.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.ID == "pick-ticket-PT-1" && o.TaskQueue == TaskQueues.PickTicket
		}),
		WorkflowNames.PickTicket, "input").Return(run, nil).Once()
	sdk.On("ExecuteWorkflow", mock.Anything, mock.Anything, WorkflowNames.PickTicket, "bad").
		Return(nil, errors.New("namespace not found")).Once()

	c := (&Client{client: sdk, config: DefaultConfig()}).WithMetrics(m)

	got, err := c.StartWorkflow(context.Background(), "pick-ticket-PT-1", TaskQueues.PickTicket, WorkflowNames.PickTicket, "input")
	require.NoError(t, err)
	assert.Same(t, run, got)

	_, err = c.StartWorkflow(context.Background(), "pick-ticket-PT-2", TaskQueues.PickTicket, WorkflowNames.PickTicket, "bad")
	assert.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowsStarted.WithLabelValues("pick-ticket-service", WorkflowNames.PickTicket)))
	sdk.AssertExpectations(t)
}
