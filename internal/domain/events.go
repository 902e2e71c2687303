package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// PickTicketGeneratedEvent is published when a run has been archived
type PickTicketGeneratedEvent struct {
	RunID            string    `json:"runId"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	Strategy         string    `json:"strategy"`
	OrderCount       int       `json:"orderCount"`
	JobCount         int       `json:"jobCount"`
	RowCount         int       `json:"rowCount"`
	ExcludedCount    int       `json:"excludedCount"`
	PickByOrderCount int       `json:"pickByOrderCount"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

func (e *PickTicketGeneratedEvent) EventType() string     { return "wms.pick-ticket.generated" }
func (e *PickTicketGeneratedEvent) OccurredAt() time.Time { return e.GeneratedAt }

// PickJobCreatedEvent is published for every job of a run
type PickJobCreatedEvent struct {
	RunID        string    `json:"runId"`
	JobID        string    `json:"jobId"`
	Kind         string    `json:"kind"`
	Strategy     string    `json:"strategy"`
	DeliveryDate string    `json:"deliveryDate"`
	IssueNos     []string  `json:"issueNos"`
	TotalVolume  float64   `json:"totalVolume"`
	Flags        []string  `json:"flags,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e *PickJobCreatedEvent) EventType() string     { return "wms.pick-ticket.job-created" }
func (e *PickJobCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// ExcludedOrderInfo identifies one excluded order in an event
type ExcludedOrderInfo struct {
	IssueNo string `json:"issueNo"`
	Reason  string `json:"reason"`
}

// OrdersExcludedEvent is published when a run excluded any orders
type OrdersExcludedEvent struct {
	RunID      string              `json:"runId"`
	Orders     []ExcludedOrderInfo `json:"orders"`
	ExcludedAt time.Time           `json:"excludedAt"`
}

func (e *OrdersExcludedEvent) EventType() string     { return "wms.pick-ticket.orders-excluded" }
func (e *OrdersExcludedEvent) OccurredAt() time.Time { return e.ExcludedAt }
