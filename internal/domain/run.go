package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunSource identifies how a run was requested
type RunSource string

const (
	RunSourceAPI      RunSource = "api"
	RunSourceUpload   RunSource = "upload"
	RunSourceWorkflow RunSource = "workflow"
	RunSourceCLI      RunSource = "cli"
)

// PickTicketRun is the aggregate root of the archive: one engine result with
// the configuration and options that produced it.
type PickTicketRun struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RunID       string             `bson:"runId" json:"runId"`
	Source      RunSource          `bson:"source" json:"source"`
	Status      Status             `bson:"status" json:"status"`
	Config      EngineConfig       `bson:"config" json:"config"`
	Options     RunOptions         `bson:"options" json:"options"`
	Ticket      PickTicket         `bson:"ticket" json:"ticket"`
	GeneratedAt time.Time          `bson:"generatedAt" json:"generatedAt"`
	DurationMs  int64              `bson:"durationMs" json:"durationMs"`

	CorrelationID string `bson:"correlationId,omitempty" json:"correlationId,omitempty"`
	WorkflowID    string `bson:"workflowId,omitempty" json:"workflowId,omitempty"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewPickTicketRun wraps an engine result and records its domain events
func NewPickTicketRun(runID string, source RunSource, cfg EngineConfig, opts RunOptions, ticket *PickTicket, generatedAt time.Time, duration time.Duration) *PickTicketRun {
	run := &PickTicketRun{
		RunID:        runID,
		Source:       source,
		Status:       ticket.Status,
		Config:       cfg,
		Options:      opts,
		Ticket:       *ticket,
		GeneratedAt:  generatedAt,
		DurationMs:   duration.Milliseconds(),
		DomainEvents: make([]DomainEvent, 0),
	}

	run.AddDomainEvent(&PickTicketGeneratedEvent{
		RunID:            runID,
		Source:           string(source),
		Status:           string(ticket.Status),
		Strategy:         ticket.Summary.Strategy,
		OrderCount:       ticket.Summary.BinOrders + ticket.Summary.LayerOrders,
		JobCount:         len(ticket.Jobs),
		RowCount:         len(ticket.Rows),
		ExcludedCount:    len(ticket.Excluded),
		PickByOrderCount: len(ticket.PickByOrder),
		GeneratedAt:      generatedAt,
	})

	for _, job := range ticket.Jobs {
		flags := make([]string, 0, len(job.Flags))
		for _, f := range job.Flags {
			flags = append(flags, string(f))
		}
		run.AddDomainEvent(&PickJobCreatedEvent{
			RunID:        runID,
			JobID:        job.JobID,
			Kind:         string(job.Kind),
			Strategy:     job.Strategy,
			DeliveryDate: job.DeliveryDate.Format(DateLayout),
			IssueNos:     job.IssueNos,
			TotalVolume:  job.TotalVolume,
			Flags:        flags,
			CreatedAt:    generatedAt,
		})
	}

	if len(ticket.Excluded) > 0 {
		orders := make([]ExcludedOrderInfo, 0, len(ticket.Excluded))
		for _, ex := range ticket.Excluded {
			orders = append(orders, ExcludedOrderInfo{IssueNo: ex.IssueNo, Reason: string(ex.Reason)})
		}
		run.AddDomainEvent(&OrdersExcludedEvent{
			RunID:      runID,
			Orders:     orders,
			ExcludedAt: generatedAt,
		})
	}

	return run
}

// NewRunID returns a run identifier with the PT- prefix
func NewRunID(id string) string {
	return "PT-" + strings.ToUpper(id)
}

// AddDomainEvent adds a domain event
func (r *PickTicketRun) AddDomainEvent(event DomainEvent) {
	r.DomainEvents = append(r.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (r *PickTicketRun) ClearDomainEvents() {
	r.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (r *PickTicketRun) GetDomainEvents() []DomainEvent {
	return r.DomainEvents
}
