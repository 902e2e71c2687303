package application

import (
	"time"

	"github.com/wms-platform/pick-ticket-service/internal/domain"
)

// ToPickTicketRunDTO converts a run aggregate to its full DTO
func ToPickTicketRunDTO(run *domain.PickTicketRun) *PickTicketRunDTO {
	if run == nil {
		return nil
	}

	ticket := run.Ticket
	dto := &PickTicketRunDTO{
		RunID:          run.RunID,
		Source:         string(run.Source),
		Status:         string(run.Status),
		GeneratedAt:    run.GeneratedAt,
		DurationMs:     run.DurationMs,
		CorrelationID:  run.CorrelationID,
		WorkflowID:     run.WorkflowID,
		Options:        ToRunOptionsDTO(run.Options),
		Config:         run.Config,
		Summary:        ticket.Summary,
		Rows:           make([]PickTicketRowDTO, 0, len(ticket.Rows)),
		Jobs:           make([]JobDTO, 0, len(ticket.Jobs)),
		Excluded:       make([]ExcludedOrderDTO, 0, len(ticket.Excluded)),
		PickByOrder:    make([]PickByOrderDTO, 0, len(ticket.PickByOrder)),
		MultiBatchSKUs: nonNil(ticket.MultiBatchSKUs),
		Warnings:       nonNil(ticket.Warnings),
	}

	for _, row := range ticket.Rows {
		dto.Rows = append(dto.Rows, ToPickTicketRowDTO(row))
	}
	for _, job := range ticket.Jobs {
		dto.Jobs = append(dto.Jobs, ToJobDTO(job))
	}
	for _, ex := range ticket.Excluded {
		dto.Excluded = append(dto.Excluded, ExcludedOrderDTO{
			IssueNo:   ex.IssueNo,
			Reason:    string(ex.Reason),
			LineCount: ex.LineCount,
			Details:   ex.Details,
		})
	}
	for _, o := range ticket.PickByOrder {
		dto.PickByOrder = append(dto.PickByOrder, PickByOrderDTO{
			IssueNo:      o.IssueNo,
			LineCount:    o.LineCount,
			TotalVolume:  o.TotalVolume,
			ShipTo:       o.ShipTo,
			DeliveryDate: formatDate(o.DeliveryDate),
		})
	}

	return dto
}

// ToPickTicketRunSummaryDTO converts a run aggregate to its list view
func ToPickTicketRunSummaryDTO(run *domain.PickTicketRun) PickTicketRunSummaryDTO {
	return PickTicketRunSummaryDTO{
		RunID:       run.RunID,
		Source:      string(run.Source),
		Status:      string(run.Status),
		Strategy:    run.Ticket.Summary.Strategy,
		GeneratedAt: run.GeneratedAt,
		DurationMs:  run.DurationMs,
		Summary:     run.Ticket.Summary,
	}
}

// ToRunOptionsDTO formats run options for responses
func ToRunOptionsDTO(opts domain.RunOptions) RunOptionsDTO {
	dto := RunOptionsDTO{OrderKind: string(opts.OrderKind)}
	if dto.OrderKind == "" {
		dto.OrderKind = string(domain.OrderKindAll)
	}
	if opts.DeliveryFrom != nil {
		dto.DeliveryFrom = formatDate(*opts.DeliveryFrom)
	}
	if opts.DeliveryTo != nil {
		dto.DeliveryTo = formatDate(*opts.DeliveryTo)
	}
	return dto
}

// ToPickTicketRowDTO converts one pick ticket row
func ToPickTicketRowDTO(row domain.PickTicketRow) PickTicketRowDTO {
	return PickTicketRowDTO{
		JobID:              row.JobID,
		IssueNo:            row.IssueNo,
		SKU:                row.SKU,
		SKUDescription:     row.SKUDescription,
		Location:           row.Location,
		BatchNo:            row.BatchNo,
		PickingQty:         row.PickingQty,
		QtyPerCarton:       row.QtyPerCarton,
		CommercialBoxCount: row.CommercialBoxCount,
		DeliveryDate:       formatDate(row.DeliveryDate),
		ShipTo:             row.ShipTo,
		Type:               row.Type,
		CartonDescription:  row.CartonDescription,
		ContainerCount:     row.ContainerCount,
		TotalOrderVolume:   row.TotalOrderVolume,
		LineCount:          row.LineCount,
		MultiBatchSKU:      row.MultiBatchSKU,
	}
}

// ToJobDTO converts one job
func ToJobDTO(job domain.Job) JobDTO {
	var flags []string
	for _, f := range job.Flags {
		flags = append(flags, string(f))
	}
	return JobDTO{
		JobID:        job.JobID,
		Strategy:     job.Strategy,
		Kind:         string(job.Kind),
		DeliveryDate: formatDate(job.DeliveryDate),
		IssueNos:     job.IssueNos,
		OrderCount:   job.OrderCount,
		TotalVolume:  job.TotalVolume,
		Flags:        flags,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
