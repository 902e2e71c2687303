package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms-platform/pick-ticket-service/pkg/cloudevents"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
	"github.com/wms-platform/pick-ticket-service/pkg/metrics"
	"github.com/wms-platform/pick-ticket-service/pkg/resilience"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestEvent() *cloudevents.WMSCloudEvent {
	factory := cloudevents.NewEventFactory(cloudevents.SourcePickTicket)
	return factory.CreateRunEvent(context.Background(), cloudevents.PickTicketGenerated, "PT-ABC",
		map[string]any{"jobCount": 1}, "corr-9", "")
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_PublishEvent(t *testing.T) {
	writers := map[string]*fakeWriter{}
	producer := NewProducerWithWriterFactory(DefaultConfig(), func(topic string) MessageWriter {
		w := &fakeWriter{}
		writers[topic] = w
		return w
	})

	event := newTestEvent()
	require.NoError(t, producer.PublishEvent(context.Background(), Topics.PickTicketEvents, event))
	require.NoError(t, producer.PublishEvent(context.Background(), Topics.PickTicketEvents, event))

	w := writers[Topics.PickTicketEvents]
	require.NotNil(t, w)
	require.Len(t, w.messages, 2)

	msg := w.messages[0]
	assert.Equal(t, "run/PT-ABC", string(msg.Key))
	assert.Equal(t, cloudevents.PickTicketGenerated, header(msg, "ce-type"))
	assert.Equal(t, "PT-ABC", header(msg, "ce-wmsrunid"))
	assert.Equal(t, "corr-9", header(msg, "ce-wmscorrelationid"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "1.0", body["specversion"])

	require.NoError(t, producer.Close())
	assert.True(t, w.closed)
}

func TestCircuitBreakerProducer_OpensOnFailures(t *testing.T) {
	failing := &fakeWriter{err: errors.New("broker down")}
	base := NewProducerWithWriterFactory(DefaultConfig(), func(string) MessageWriter { return failing })
	m := metrics.New(metrics.DefaultConfig("test"))
	producer := NewCircuitBreakerProducer(NewInstrumentedProducer(base, m, logging.NewNop()), m, logging.NewNop())

	var err error
	for i := 0; i < 6; i++ {
		err = producer.PublishEvent(context.Background(), Topics.PickTicketEvents, newTestEvent())
	}
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
