package cloudevents

import (
	"time"
)

// Event types published by the pick ticket service
const (
	PickTicketGenerated = "wms.pick-ticket.generated"
	PickJobCreated      = "wms.pick-ticket.job-created"
	OrdersExcluded      = "wms.pick-ticket.orders-excluded"
)

// SourcePickTicket is the CloudEvents source of every event this service emits
const SourcePickTicket = "/wms/pick-ticket-service"

// Extension attribute names carried as ce- headers
const (
	ExtCorrelationID = "wmscorrelationid"
	ExtWorkflowID    = "wmsworkflowid"
	ExtRunID         = "wmsrunid"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	WorkflowID    string `json:"wmsworkflowid,omitempty"`
	RunID         string `json:"wmsrunid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// Extensions returns the non-empty extension attributes keyed by their
// CloudEvents name
func (e *WMSCloudEvent) Extensions() map[string]string {
	ext := make(map[string]string)
	if e.CorrelationID != "" {
		ext[ExtCorrelationID] = e.CorrelationID
	}
	if e.WorkflowID != "" {
		ext[ExtWorkflowID] = e.WorkflowID
	}
	if e.RunID != "" {
		ext[ExtRunID] = e.RunID
	}
	if e.TraceParent != "" {
		ext["traceparent"] = e.TraceParent
	}
	if e.TraceState != "" {
		ext["tracestate"] = e.TraceState
	}
	return ext
}
