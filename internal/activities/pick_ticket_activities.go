package activities

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/wms-platform/pick-ticket-service/internal/application"
	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/internal/infrastructure/tabular"
	"github.com/wms-platform/pick-ticket-service/pkg/errors"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
	"github.com/wms-platform/pick-ticket-service/pkg/metrics"
)

// Application error types returned to workflows. Both are non-retryable.
const (
	ErrTypeJobIntegrityViolation = "JobIntegrityViolation"
	ErrTypeInvalidInput          = "InvalidInput"
)

// GeneratePickTicketInput is the input of the GeneratePickTicket activity
type GeneratePickTicketInput struct {
	RunID         string                 `json:"runId"`
	Lines         []domain.OrderLine     `json:"lines"`
	SKUMaster     []domain.SKUAttributes `json:"skuMaster"`
	Options       domain.RunOptions      `json:"options"`
	Strategy      string                 `json:"strategy,omitempty"`
	CorrelationID string                 `json:"correlationId,omitempty"`
}

// GeneratePickTicketResult summarizes an archived run
type GeneratePickTicketResult struct {
	RunID         string `json:"runId"`
	Status        string `json:"status"`
	JobCount      int    `json:"jobCount"`
	RowCount      int    `json:"rowCount"`
	ExcludedCount int    `json:"excludedCount"`
}

// ExportPickTicketInput is the input of the ExportPickTicket activity
type ExportPickTicketInput struct {
	RunID string `json:"runId"`
}

// ExportPickTicketResult lists the files written
type ExportPickTicketResult struct {
	Files []string `json:"files"`
}

// PickTicketActivities contains the activities of the pick ticket workflow
type PickTicketActivities struct {
	service   *application.PickTicketService
	exportDir string
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewPickTicketActivities creates a new PickTicketActivities instance. An
// empty exportDir disables file export.
func NewPickTicketActivities(service *application.PickTicketService, exportDir string, m *metrics.Metrics, logger *logging.Logger) *PickTicketActivities {
	return &PickTicketActivities{
		service:   service,
		exportDir: exportDir,
		metrics:   m,
		logger:    logger.WithComponent("pick-ticket-activities"),
	}
}

// GeneratePickTicket runs the engine and archives the run. An integrity
// violation or invalid input fails the activity without retries.
func (a *PickTicketActivities) GeneratePickTicket(ctx context.Context, input GeneratePickTicketInput) (*GeneratePickTicketResult, error) {
	logger := activity.GetLogger(ctx)
	info := activity.GetInfo(ctx)
	start := time.Now()

	logger.Info("Generating pick ticket", "runId", input.RunID, "lines", len(input.Lines), "attempt", info.Attempt)

	run, err := a.service.Run(ctx, application.GeneratePickTicketCommand{
		RunID:         input.RunID,
		Source:        domain.RunSourceWorkflow,
		Lines:         input.Lines,
		Master:        domain.NewSKUMaster(input.SKUMaster),
		Options:       input.Options,
		Strategy:      input.Strategy,
		CorrelationID: input.CorrelationID,
		WorkflowID:    info.WorkflowExecution.ID,
	})
	a.complete(ctx, info.ActivityType.Name, start, err == nil)
	if err != nil {
		logger.Error("Failed to generate pick ticket", "runId", input.RunID, "error", err)
		return nil, toApplicationError(err)
	}

	return &GeneratePickTicketResult{
		RunID:         run.RunID,
		Status:        string(run.Status),
		JobCount:      len(run.Ticket.Jobs),
		RowCount:      len(run.Ticket.Rows),
		ExcludedCount: len(run.Ticket.Excluded),
	}, nil
}

// ExportPickTicket writes the run's tables as CSV files named
// <runId>-<table>.csv into the export directory
func (a *PickTicketActivities) ExportPickTicket(ctx context.Context, input ExportPickTicketInput) (*ExportPickTicketResult, error) {
	logger := activity.GetLogger(ctx)
	info := activity.GetInfo(ctx)
	start := time.Now()

	result := &ExportPickTicketResult{Files: []string{}}
	if a.exportDir == "" {
		logger.Info("Export directory not configured, skipping export", "runId", input.RunID)
		return result, nil
	}

	if err := os.MkdirAll(a.exportDir, 0o755); err != nil {
		a.complete(ctx, info.ActivityType.Name, start, false)
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	for _, table := range []string{tabular.TablePrimary, tabular.TableExcluded, tabular.TablePickByOrder} {
		path := filepath.Join(a.exportDir, fmt.Sprintf("%s-%s.csv", input.RunID, table))
		if err := a.exportTable(ctx, input.RunID, table, path); err != nil {
			a.complete(ctx, info.ActivityType.Name, start, false)
			logger.Error("Failed to export pick ticket", "runId", input.RunID, "table", table, "error", err)
			return nil, toApplicationError(err)
		}
		result.Files = append(result.Files, path)
		activity.RecordHeartbeat(ctx, table)
	}

	a.complete(ctx, info.ActivityType.Name, start, true)
	logger.Info("Exported pick ticket", "runId", input.RunID, "files", len(result.Files))
	return result, nil
}

func (a *PickTicketActivities) exportTable(ctx context.Context, runID, table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	err = a.service.ExportPickTicket(ctx, application.ExportPickTicketQuery{RunID: runID, Table: table}, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (a *PickTicketActivities) complete(ctx context.Context, activityType string, start time.Time, success bool) {
	duration := time.Since(start)
	if a.metrics != nil {
		a.metrics.RecordActivityCompleted(activityType, success, duration)
	}
	a.logger.ActivityComplete(ctx, activityType, duration, success)
}

// toApplicationError marks errors that cannot succeed on retry
func toApplicationError(err error) error {
	var integrity *domain.JobIntegrityError
	if stderrors.As(err, &integrity) {
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeJobIntegrityViolation, err, integrity.IssueNos)
	}
	if appErr, ok := errors.AsAppError(err); ok {
		switch appErr.Code {
		case errors.CodeValidationError, errors.CodeBadRequest, errors.CodeNotFound:
			return temporal.NewNonRetryableApplicationError(appErr.Message, ErrTypeInvalidInput, err)
		}
	}
	return err
}
