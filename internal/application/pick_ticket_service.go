package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/internal/infrastructure/tabular"
	"github.com/wms-platform/pick-ticket-service/pkg/api"
	"github.com/wms-platform/pick-ticket-service/pkg/errors"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
	"github.com/wms-platform/pick-ticket-service/pkg/metrics"
	"github.com/wms-platform/pick-ticket-service/pkg/tracing"
)

const tracerName = "pick-ticket-service/application"

// PickTicketService handles pick ticket use cases
type PickTicketService struct {
	repo    domain.PickTicketRunRepository
	config  domain.EngineConfig
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *logging.Logger
	now     func() time.Time
}

// NewPickTicketService creates a new PickTicketService. repo and m may be nil:
// without a repository runs are not archived and lookups are unavailable.
func NewPickTicketService(
	repo domain.PickTicketRunRepository,
	config domain.EngineConfig,
	m *metrics.Metrics,
	logger *logging.Logger,
) (*PickTicketService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PickTicketService{
		repo:    repo,
		config:  config,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
		logger:  logger.WithComponent("pick-ticket-service"),
		now:     time.Now,
	}, nil
}

// Config returns the engine configuration runs start from
func (s *PickTicketService) Config() domain.EngineConfig {
	return s.config
}

// GeneratePickTicket runs the engine, archives the run and returns it
func (s *PickTicketService) GeneratePickTicket(ctx context.Context, cmd GeneratePickTicketCommand) (*PickTicketRunDTO, error) {
	run, err := s.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return ToPickTicketRunDTO(run), nil
}

// Run runs the engine and archives the result when a repository is
// configured. The run's domain events are written to the outbox by the
// repository in the same transaction.
func (s *PickTicketService) Run(ctx context.Context, cmd GeneratePickTicketCommand) (*domain.PickTicketRun, error) {
	runID := cmd.RunID
	if runID == "" {
		runID = domain.NewRunID(uuid.New().String())
	}
	source := cmd.Source
	if source == "" {
		source = domain.RunSourceAPI
	}

	cfg := s.config
	if cmd.Strategy != "" {
		cfg.MultiLine.Strategy = cmd.Strategy
	}

	ctx = logging.ContextWithRunID(ctx, runID)
	ctx, span := s.tracer.Start(ctx, "pickticket.Generate",
		trace.WithAttributes(tracing.RunSpanAttributes(runID, string(source), cfg.MultiLine.Strategy, len(cmd.Lines))...))
	defer span.End()
	spanHelper := tracing.NewSpanHelper(span)

	engine, err := domain.NewEngine(cfg)
	if err != nil {
		spanHelper.SetError(err)
		return nil, mapDomainError(err)
	}

	start := s.now()
	ticket, err := engine.Run(domain.Input{Lines: cmd.Lines, Master: cmd.Master, Options: cmd.Options})
	duration := s.now().Sub(start)
	if err != nil {
		spanHelper.SetError(err)
		s.recordFailure(source, cfg.MultiLine.Strategy, duration)
		s.logger.WithContext(ctx).WithError(err).Error("Pick ticket run failed",
			"source", source,
			"inputLines", len(cmd.Lines),
		)
		return nil, mapDomainError(err)
	}

	run := domain.NewPickTicketRun(runID, source, cfg, cmd.Options, ticket, start.UTC(), duration)
	run.CorrelationID = cmd.CorrelationID
	run.WorkflowID = cmd.WorkflowID

	if s.repo != nil {
		if err := s.archive(ctx, run); err != nil {
			spanHelper.SetError(err)
			s.recordFailure(source, cfg.MultiLine.Strategy, duration)
			return nil, err
		}
	}

	s.recordRun(run, duration)
	spanHelper.SetAttributes(map[string]interface{}{
		"pick_ticket.status":   string(ticket.Status),
		"pick_ticket.jobs":     len(ticket.Jobs),
		"pick_ticket.rows":     len(ticket.Rows),
		"pick_ticket.excluded": len(ticket.Excluded),
	})
	spanHelper.SetOK()

	s.logger.Event(ctx, "pick_ticket.generated", map[string]any{
		"source":      string(source),
		"status":      string(ticket.Status),
		"strategy":    ticket.Summary.Strategy,
		"jobs":        len(ticket.Jobs),
		"rows":        len(ticket.Rows),
		"excluded":    len(ticket.Excluded),
		"pickByOrder": len(ticket.PickByOrder),
	})
	s.logger.Performance(ctx, "pick_ticket.run", duration, true, map[string]any{
		"inputLines": len(cmd.Lines),
	})

	return run, nil
}

func (s *PickTicketService) archive(ctx context.Context, run *domain.PickTicketRun) error {
	ctx, span := s.tracer.Start(ctx, "pickticket.Archive")
	defer span.End()

	if err := s.repo.Save(ctx, run); err != nil {
		tracing.NewSpanHelper(span).SetError(err)
		s.logger.WithContext(ctx).WithError(err).Error("Failed to archive pick ticket run")
		return fmt.Errorf("failed to archive pick ticket run: %w", err)
	}
	return nil
}

// GetPickTicket retrieves an archived run
func (s *PickTicketService) GetPickTicket(ctx context.Context, query GetPickTicketQuery) (*PickTicketRunDTO, error) {
	run, err := s.findRun(ctx, query.RunID)
	if err != nil {
		return nil, err
	}
	return ToPickTicketRunDTO(run), nil
}

// ListPickTickets pages through archived runs, newest first
func (s *PickTicketService) ListPickTickets(ctx context.Context, query ListPickTicketsQuery) (*api.PageResponse[PickTicketRunSummaryDTO], error) {
	if s.repo == nil {
		return nil, errors.ErrServiceUnavailable("run archive")
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to count pick ticket runs")
		return nil, fmt.Errorf("failed to count pick ticket runs: %w", err)
	}

	runs, err := s.repo.FindRecent(ctx, query.Page.GetOffset(), query.Page.GetLimit())
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list pick ticket runs")
		return nil, fmt.Errorf("failed to list pick ticket runs: %w", err)
	}

	summaries := make([]PickTicketRunSummaryDTO, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, ToPickTicketRunSummaryDTO(run))
	}

	page := api.NewPageResponse(summaries, query.Page, total)
	return &page, nil
}

// ExportPickTicket writes one table of an archived run as CSV
func (s *PickTicketService) ExportPickTicket(ctx context.Context, query ExportPickTicketQuery, w io.Writer) error {
	switch query.Table {
	case "", tabular.TablePrimary, tabular.TableExcluded, tabular.TablePickByOrder:
	default:
		return errors.ErrValidation(fmt.Sprintf("unknown table %q", query.Table)).
			WithDetail("table", "must be one of primary, excluded, pickByOrder")
	}

	run, err := s.findRun(ctx, query.RunID)
	if err != nil {
		return err
	}

	_, span := s.tracer.Start(ctx, "pickticket.Export")
	defer span.End()

	if err := tabular.WriteTable(w, &run.Ticket, query.Table); err != nil {
		tracing.NewSpanHelper(span).SetError(err)
		s.logger.WithContext(ctx).WithOperation("export").WithRunID(query.RunID).WithError(err).
			Error("Failed to export pick ticket", "table", query.Table)
		return fmt.Errorf("failed to export pick ticket %s: %w", query.RunID, err)
	}
	return nil
}

func (s *PickTicketService) findRun(ctx context.Context, runID string) (*domain.PickTicketRun, error) {
	if s.repo == nil {
		return nil, errors.ErrServiceUnavailable("run archive")
	}

	run, err := s.repo.FindByRunID(ctx, runID)
	if err != nil {
		if stderrors.Is(err, domain.ErrRunNotFound) {
			return nil, errors.ErrNotFoundWithID("pick ticket run", runID)
		}
		s.logger.WithContext(ctx).WithRunID(runID).WithError(err).Error("Failed to get pick ticket run")
		return nil, fmt.Errorf("failed to get pick ticket run: %w", err)
	}
	return run, nil
}

func (s *PickTicketService) recordRun(run *domain.PickTicketRun, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	ticket := run.Ticket
	s.metrics.RecordRun(string(run.Source), string(ticket.Status), ticket.Summary.Strategy, duration)
	for _, job := range ticket.Jobs {
		s.metrics.RecordJobCreated(job.Strategy, string(job.Kind))
	}
	s.metrics.RecordOrdersClassified("bin", ticket.Summary.BinOrders)
	s.metrics.RecordOrdersClassified("layer", ticket.Summary.LayerOrders)
	s.metrics.RecordOrdersClassified("oversize", ticket.Summary.OversizeOrders)
	for _, ex := range ticket.Excluded {
		s.metrics.RecordOrderExcluded(string(ex.Reason))
	}
	s.metrics.RecordRowsEmitted(len(ticket.Rows))
}

func (s *PickTicketService) recordFailure(source domain.RunSource, strategy string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRun(string(source), "failed", strategy, duration)
}

// mapDomainError converts engine errors to AppErrors
func mapDomainError(err error) error {
	var integrity *domain.JobIntegrityError
	switch {
	case stderrors.As(err, &integrity):
		return errors.ErrJobIntegrity(integrity.IssueNos).Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidConfig),
		stderrors.Is(err, domain.ErrUnknownStrategy),
		stderrors.Is(err, domain.ErrInvalidOrderKind):
		return errors.ErrValidation(err.Error()).Wrap(err)
	default:
		return errors.MapDomainError(err)
	}
}
