package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := loadConfig()

		assert.Empty(t, cfg.ExportDir)
		assert.False(t, cfg.RelayOutbox)
		assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
		assert.Equal(t, "pick-ticket-worker", cfg.Temporal.Identity)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("EXPORT_DIR", "/var/lib/pick-tickets")
		t.Setenv("OUTBOX_RELAY", "true")
		t.Setenv("KAFKA_BROKERS", "k1:9092")
		t.Setenv("TEMPORAL_NAMESPACE", "wms")

		cfg := loadConfig()

		assert.Equal(t, "/var/lib/pick-tickets", cfg.ExportDir)
		assert.True(t, cfg.RelayOutbox)
		assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "wms", cfg.Temporal.Namespace)
	})
}
