package cloudevents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFactory_CreateRunEvent(t *testing.T) {
	factory := NewEventFactory(SourcePickTicket)
	factory.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)) }

	event := factory.CreateRunEvent(context.Background(), PickTicketGenerated, "PT-1",
		map[string]any{"jobCount": 2}, "corr-1", "")

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, SourcePickTicket, event.Source)
	assert.Equal(t, "run/PT-1", event.Subject)
	assert.Equal(t, time.UTC, event.Time.Location())
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, map[string]string{ExtRunID: "PT-1", ExtCorrelationID: "corr-1"}, event.Extensions())

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "PT-1", decoded["wmsrunid"])
	assert.NotContains(t, decoded, "wmsworkflowid")
	assert.NotContains(t, decoded, "traceparent")
}
