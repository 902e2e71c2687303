// Package config loads the engine configuration: defaults, then an optional
// YAML file, then PICK_TICKET_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/pick-ticket-service/internal/domain"
)

// EnvPrefix is the prefix of every engine override variable
const EnvPrefix = "PICK_TICKET_"

// LookupEnv matches os.LookupEnv; tests substitute a map
type LookupEnv func(key string) (string, bool)

// Load reads the engine configuration from path (optional) and the process
// environment, and validates the result.
func Load(path string) (domain.EngineConfig, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment
func LoadWithEnv(path string, lookup LookupEnv) (domain.EngineConfig, error) {
	cfg := domain.DefaultEngineConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read engine config %s: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse engine config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *domain.EngineConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *domain.EngineConfig, lookup LookupEnv) error {
	var errs []error

	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = splitList(v)
		}
	}

	float("BIN_MAX_VOLUME", &cfg.Classification.BinMaxVolume)
	float("LAYER_MAX_VOLUME", &cfg.Classification.LayerMaxVolume)
	integer("SINGLE_LINE_BATCH_SIZE", &cfg.SingleLine.BatchSize)
	boolean("SINGLE_LINE_GROUP_BY_ZONE", &cfg.SingleLine.GroupByZone)
	if v, ok := lookup(EnvPrefix + "STRATEGY"); ok {
		cfg.MultiLine.Strategy = strings.ToLower(strings.TrimSpace(v))
	}
	float("MAX_JOB_VOLUME", &cfg.MultiLine.MaxJobVolume)
	boolean("EXCLUDE_STORAGE_ORDERS", &cfg.Filters.ExcludeStorageOrders)
	list("PICK_ZONES", &cfg.Filters.PickZones)
	list("LOCATION_PREFIXES", &cfg.Filters.LocationPrefixes)
	integer("PARALLELISM", &cfg.Parallelism)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Marshal renders a configuration as YAML
func Marshal(cfg domain.EngineConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode engine config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
