package application

import (
	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/pkg/api"
)

// GeneratePickTicketCommand runs the engine over one input snapshot
type GeneratePickTicketCommand struct {
	// RunID is optional; a new one is allocated when empty
	RunID         string
	Source        domain.RunSource
	Lines         []domain.OrderLine
	Master        domain.SKUMaster
	Options       domain.RunOptions
	Strategy      string
	CorrelationID string
	WorkflowID    string
}

// GetPickTicketQuery retrieves an archived run
type GetPickTicketQuery struct {
	RunID string
}

// ListPickTicketsQuery pages through archived runs, newest first
type ListPickTicketsQuery struct {
	Page api.PageRequest
}

// ExportPickTicketQuery selects one table of an archived run
type ExportPickTicketQuery struct {
	RunID string
	Table string
}
