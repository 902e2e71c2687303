package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// EventValidator validates CloudEvents against AsyncAPI message payload schemas.
type EventValidator struct {
	schemas map[string]*jsonschema.Schema
}

// CloudEvent represents the CloudEvents envelope as it appears on the wire.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	ID              string          `json:"id"`
	Time            string          `json:"time,omitempty"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// AsyncAPISpec represents the relevant parts of an AsyncAPI specification.
type AsyncAPISpec struct {
	AsyncAPI   string                     `yaml:"asyncapi"`
	Info       AsyncAPIInfo               `yaml:"info"`
	Channels   map[string]AsyncAPIChannel `yaml:"channels"`
	Components AsyncAPIComponents         `yaml:"components"`
}

// AsyncAPIInfo contains AsyncAPI info section.
type AsyncAPIInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// AsyncAPIChannel represents a channel in AsyncAPI.
type AsyncAPIChannel struct {
	Address  string                 `yaml:"address"`
	Messages map[string]interface{} `yaml:"messages"`
}

// AsyncAPIMessage is a component message; Name carries the CloudEvent type.
type AsyncAPIMessage struct {
	Name    string            `yaml:"name"`
	Payload map[string]string `yaml:"payload"`
}

// AsyncAPIComponents contains reusable components.
type AsyncAPIComponents struct {
	Schemas  map[string]interface{}     `yaml:"schemas"`
	Messages map[string]AsyncAPIMessage `yaml:"messages"`
}

const schemaRefPrefix = "#/components/schemas/"

// NewEventValidatorFromBytes compiles one payload schema per component
// message. Local schema references are resolved by the compiler.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec AsyncAPISpec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI spec: %w", err)
	}

	// Round-trip through JSON so numbers and maps have JSON types
	componentsJSON, err := json.Marshal(map[string]interface{}{
		"components": map[string]interface{}{"schemas": spec.Components.Schemas},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode schemas: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(componentsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to decode schemas: %w", err)
	}

	const docURI = "asyncapi://spec.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(docURI, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schemas := make(map[string]*jsonschema.Schema)
	for key, msg := range spec.Components.Messages {
		ref := msg.Payload["$ref"]
		if msg.Name == "" || !strings.HasPrefix(ref, schemaRefPrefix) {
			return nil, fmt.Errorf("message %s needs a name and a local payload $ref", key)
		}

		compiled, err := compiler.Compile(docURI + ref)
		if err != nil {
			return nil, fmt.Errorf("failed to compile payload schema for %s: %w", msg.Name, err)
		}
		schemas[msg.Name] = compiled
	}

	return &EventValidator{schemas: schemas}, nil
}

// ValidateEvent validates the envelope and the data payload of an event.
func (v *EventValidator) ValidateEvent(event CloudEvent) error {
	if event.SpecVersion != "1.0" {
		return fmt.Errorf("unsupported specversion %q", event.SpecVersion)
	}
	if event.ID == "" || event.Source == "" || event.Type == "" {
		return fmt.Errorf("event id, source and type are required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}
	if len(event.Data) == 0 {
		return fmt.Errorf("event data is required")
	}

	data, err := jsonschema.UnmarshalJSON(bytes.NewReader(event.Data))
	if err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}
	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", event.Type, err)
	}

	return nil
}

// ValidateEventJSON validates a CloudEvent from JSON bytes.
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event CloudEvent
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("failed to parse CloudEvent: %w", err)
	}
	return v.ValidateEvent(event)
}

// GetSupportedEventTypes returns all event types that have registered schemas.
func (v *EventValidator) GetSupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}

