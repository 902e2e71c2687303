package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/pkg/cloudevents"
	"github.com/wms-platform/pick-ticket-service/pkg/kafka"
	pkgmongo "github.com/wms-platform/pick-ticket-service/pkg/mongodb"
	"github.com/wms-platform/pick-ticket-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/pick-ticket-service/pkg/outbox/mongodb"
)

const (
	// RunsCollection holds one document per archived run
	RunsCollection = "pick_ticket_runs"

	aggregateType = "PickTicketRun"
)

// PickTicketRunRepository archives runs in MongoDB and writes their domain
// events to the outbox in the same transaction
type PickTicketRunRepository struct {
	client       *pkgmongo.CircuitBreakerClient
	collection   *pkgmongo.CircuitBreakerCollection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewPickTicketRunRepository creates a new run repository
func NewPickTicketRunRepository(client *pkgmongo.CircuitBreakerClient, eventFactory *cloudevents.EventFactory) *PickTicketRunRepository {
	return &PickTicketRunRepository{
		client:       client,
		collection:   client.Collection(RunsCollection),
		outboxRepo:   outboxMongo.NewOutboxRepository(client.Database()),
		eventFactory: eventFactory,
	}
}

// OutboxRepository returns the outbox the repository writes to
func (r *PickTicketRunRepository) OutboxRepository() *outboxMongo.OutboxRepository {
	return r.outboxRepo
}

// EnsureIndexes creates the run and outbox indexes
func (r *PickTicketRunRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "runId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_runId"),
		},
		{
			Keys:    bson.D{{Key: "generatedAt", Value: -1}},
			Options: options.Index().SetName("idx_generatedAt"),
		},
		{
			Keys:    bson.D{{Key: "source", Value: 1}, {Key: "generatedAt", Value: -1}},
			Options: options.Index().SetName("idx_source_generatedAt"),
		},
	}
	if err := r.collection.CreateIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create run indexes: %w", err)
	}
	return r.outboxRepo.EnsureIndexes(ctx)
}

// Save upserts the run by runId and stores its pending domain events as
// outbox entries. Events are cleared only after the transaction commits.
func (r *PickTicketRunRepository) Save(ctx context.Context, run *domain.PickTicketRun) error {
	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		filter := bson.M{"runId": run.RunID}
		update := bson.M{"$set": run}
		if _, err := r.collection.UpdateOne(sessCtx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("failed to save pick ticket run: %w", err)
		}

		outboxEvents, err := r.toOutboxEvents(sessCtx, run)
		if err != nil {
			return err
		}
		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	run.ClearDomainEvents()
	return nil
}

func (r *PickTicketRunRepository) toOutboxEvents(ctx context.Context, run *domain.PickTicketRun) ([]*outbox.OutboxEvent, error) {
	domainEvents := run.GetDomainEvents()
	events := make([]*outbox.OutboxEvent, 0, len(domainEvents))

	for _, event := range domainEvents {
		switch event.(type) {
		case *domain.PickTicketGeneratedEvent, *domain.PickJobCreatedEvent, *domain.OrdersExcludedEvent:
		default:
			continue
		}

		cloudEvent := r.eventFactory.CreateRunEvent(ctx, event.EventType(), run.RunID, event, run.CorrelationID, run.WorkflowID)
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(run.RunID, aggregateType, kafka.Topics.PickTicketEvents, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		events = append(events, outboxEvent)
	}
	return events, nil
}

// FindByRunID retrieves a run with its full result
func (r *PickTicketRunRepository) FindByRunID(ctx context.Context, runID string) (*domain.PickTicketRun, error) {
	var run domain.PickTicketRun
	err := r.collection.FindOne(ctx, bson.M{"runId": runID}, &run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pick ticket run %s: %w", runID, err)
	}
	return &run, nil
}

// FindRecent retrieves runs newest first. Result sets are not loaded; only
// the summary and metadata are.
func (r *PickTicketRunRepository) FindRecent(ctx context.Context, offset, limit int64) ([]*domain.PickTicketRun, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "generatedAt", Value: -1}, {Key: "runId", Value: 1}}).
		SetSkip(offset).
		SetLimit(limit).
		SetProjection(bson.M{
			"ticket.rows":        0,
			"ticket.jobs":        0,
			"ticket.excluded":    0,
			"ticket.pickByOrder": 0,
		})

	runs := make([]*domain.PickTicketRun, 0)
	if err := r.collection.FindAll(ctx, bson.M{}, &runs, opts); err != nil {
		return nil, fmt.Errorf("failed to list pick ticket runs: %w", err)
	}
	return runs, nil
}

// Count returns the number of archived runs
func (r *PickTicketRunRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count pick ticket runs: %w", err)
	}
	return count, nil
}
