package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/pick-ticket-service/internal/activities"
	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/pkg/temporal"
)

// PickTicketWorkflowInput is the snapshot to batch plus run options
type PickTicketWorkflowInput struct {
	RunID         string                 `json:"runId,omitempty"`
	Lines         []domain.OrderLine     `json:"lines"`
	SKUMaster     []domain.SKUAttributes `json:"skuMaster"`
	Options       domain.RunOptions      `json:"options"`
	Strategy      string                 `json:"strategy,omitempty"`
	CorrelationID string                 `json:"correlationId,omitempty"`
	// Export writes the run's CSV tables on the worker
	Export bool `json:"export"`
}

// PickTicketWorkflowResult summarizes the workflow outcome
type PickTicketWorkflowResult struct {
	RunID         string   `json:"runId"`
	Status        string   `json:"status"`
	JobCount      int      `json:"jobCount"`
	RowCount      int      `json:"rowCount"`
	ExcludedCount int      `json:"excludedCount"`
	ExportedFiles []string `json:"exportedFiles,omitempty"`
}

// PickTicketWorkflow generates and archives a pick ticket, then optionally
// exports it
func PickTicketWorkflow(ctx workflow.Context, input PickTicketWorkflowInput) (*PickTicketWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	runID := input.RunID
	if runID == "" {
		runID = domain.NewRunID(workflow.GetInfo(ctx).WorkflowExecution.RunID)
	}

	logger.Info("Starting pick ticket workflow", "runId", runID, "lines", len(input.Lines))

	ao := temporal.DefaultActivityOptions()
	ao.RetryPolicy.NonRetryableErrorTypes = []string{
		activities.ErrTypeJobIntegrityViolation,
		activities.ErrTypeInvalidInput,
	}
	ctx = workflow.WithActivityOptions(ctx, ao.ToWorkflowOptions())

	var generated activities.GeneratePickTicketResult
	err := workflow.ExecuteActivity(ctx, temporal.ActivityNames.GeneratePickTicket, activities.GeneratePickTicketInput{
		RunID:         runID,
		Lines:         input.Lines,
		SKUMaster:     input.SKUMaster,
		Options:       input.Options,
		Strategy:      input.Strategy,
		CorrelationID: input.CorrelationID,
	}).Get(ctx, &generated)
	if err != nil {
		logger.Error("Pick ticket generation failed", "runId", runID, "error", err)
		return nil, fmt.Errorf("failed to generate pick ticket: %w", err)
	}

	result := &PickTicketWorkflowResult{
		RunID:         generated.RunID,
		Status:        generated.Status,
		JobCount:      generated.JobCount,
		RowCount:      generated.RowCount,
		ExcludedCount: generated.ExcludedCount,
	}

	if !input.Export {
		logger.Info("Pick ticket workflow completed", "runId", runID, "jobs", result.JobCount)
		return result, nil
	}

	exportOpts := temporal.DefaultActivityOptions()
	exportOpts.StartToCloseTimeout = 2 * time.Minute
	exportOpts.HeartbeatTimeout = 30 * time.Second
	exportCtx := workflow.WithActivityOptions(ctx, exportOpts.ToWorkflowOptions())

	var exported activities.ExportPickTicketResult
	err = workflow.ExecuteActivity(exportCtx, temporal.ActivityNames.ExportPickTicket, activities.ExportPickTicketInput{
		RunID: result.RunID,
	}).Get(exportCtx, &exported)
	if err != nil {
		// The run is archived; a failed export leaves it retrievable
		logger.Warn("Pick ticket export failed", "runId", runID, "error", err)
		return result, nil
	}
	result.ExportedFiles = exported.Files

	logger.Info("Pick ticket workflow completed", "runId", runID, "jobs", result.JobCount, "files", len(result.ExportedFiles))
	return result, nil
}
