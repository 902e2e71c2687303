package api_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apispec "github.com/wms-platform/pick-ticket-service/api"
	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/pkg/cloudevents"
	"github.com/wms-platform/pick-ticket-service/pkg/contracts/asyncapi"
	"github.com/wms-platform/pick-ticket-service/pkg/contracts/openapi"
)

var deliveryDate = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func line(seq int, issueNo, sku string, qty float64) domain.OrderLine {
	return domain.OrderLine{
		Seq:          seq,
		IssueNo:      issueNo,
		SKU:          sku,
		PickingQty:   qty,
		ShipTo:       "CUST-A",
		DeliveryDate: deliveryDate,
		LocationType: "picking",
	}
}

func sampleRun(t *testing.T) *domain.PickTicketRun {
	t.Helper()
	lines := []domain.OrderLine{
		line(1, "GI-1", "SKU-1", 12),
		line(2, "GI-1", "SKU-2", 4),
		line(3, "GI-2", "SKU-1", 6),
		line(4, "GI-3", "SKU-X", 1),
	}
	master := domain.NewSKUMaster([]domain.SKUAttributes{
		{SKUCode: "SKU-1", ItemVolume: domain.Float(100), QtyPerCarton: domain.Float(12), QtyPerCommercialBox: domain.Float(1)},
		{SKUCode: "SKU-2", ItemVolume: domain.Float(250), QtyPerCarton: domain.Float(4), QtyPerCommercialBox: domain.Float(1)},
	})

	cfg := domain.DefaultEngineConfig()
	engine, err := domain.NewEngine(cfg)
	require.NoError(t, err)
	ticket, err := engine.Run(domain.Input{Lines: lines, Master: master})
	require.NoError(t, err)
	require.NotEmpty(t, ticket.Excluded)

	return domain.NewPickTicketRun("PT-CONTRACT", domain.RunSourceAPI, cfg, domain.RunOptions{}, ticket, time.Now().UTC(), time.Millisecond)
}

func TestOpenAPIDocumentLoads(t *testing.T) {
	v, err := openapi.NewValidatorFromBytes(apispec.OpenAPI)
	require.NoError(t, err)
	assert.Contains(t, v.GetPaths(), "/api/v1/pick-tickets")
	assert.Contains(t, v.GetPaths(), "/api/v1/pick-tickets/{runId}/export")
}

func TestDomainEventsMatchAsyncAPI(t *testing.T) {
	validator, err := asyncapi.NewEventValidatorFromBytes(apispec.AsyncAPI)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		cloudevents.PickTicketGenerated,
		cloudevents.PickJobCreated,
		cloudevents.OrdersExcluded,
	}, validator.GetSupportedEventTypes())

	run := sampleRun(t)
	factory := cloudevents.NewEventFactory(cloudevents.SourcePickTicket)

	seen := make(map[string]int)
	for _, event := range run.GetDomainEvents() {
		ce := factory.CreateRunEvent(context.Background(), event.EventType(), run.RunID, event, "corr-1", "")
		raw, err := json.Marshal(ce)
		require.NoError(t, err)

		assert.NoError(t, validator.ValidateEventJSON(raw), event.EventType())
		seen[event.EventType()]++
	}

	assert.Equal(t, 1, seen[cloudevents.PickTicketGenerated])
	assert.Equal(t, len(run.Ticket.Jobs), seen[cloudevents.PickJobCreated])
	assert.Equal(t, 1, seen[cloudevents.OrdersExcluded])
}

func TestAsyncAPIRejectsBrokenPayload(t *testing.T) {
	validator, err := asyncapi.NewEventValidatorFromBytes(apispec.AsyncAPI)
	require.NoError(t, err)

	factory := cloudevents.NewEventFactory(cloudevents.SourcePickTicket)
	ce := factory.CreateRunEvent(context.Background(), cloudevents.PickJobCreated, "PT-1",
		map[string]any{"runId": "PT-1", "jobId": "J-1"}, "", "")
	raw, err := json.Marshal(ce)
	require.NoError(t, err)

	assert.Error(t, validator.ValidateEventJSON(raw))
}
