package domain

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome of an engine run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNoData    Status = "no_data"
)

// Summary counts what happened to the input snapshot
type Summary struct {
	InputLines       int    `bson:"inputLines" json:"inputLines"`
	OutOfScopeLines  int    `bson:"outOfScopeLines" json:"outOfScopeLines"`
	OutOfRangeLines  int    `bson:"outOfRangeLines" json:"outOfRangeLines"`
	Orders           int    `bson:"orders" json:"orders"`
	BinOrders        int    `bson:"binOrders" json:"binOrders"`
	LayerOrders      int    `bson:"layerOrders" json:"layerOrders"`
	OversizeOrders   int    `bson:"oversizeOrders" json:"oversizeOrders"`
	SingleLineOrders int    `bson:"singleLineOrders" json:"singleLineOrders"`
	MultiLineOrders  int    `bson:"multiLineOrders" json:"multiLineOrders"`
	ExcludedOrders   int    `bson:"excludedOrders" json:"excludedOrders"`
	Jobs             int    `bson:"jobs" json:"jobs"`
	Rows             int    `bson:"rows" json:"rows"`
	InvalidCartons   int    `bson:"invalidCartons" json:"invalidCartons"`
	Strategy         string `bson:"strategy" json:"strategy"`
}

// PickTicket is the complete result of one engine run
type PickTicket struct {
	Status         Status          `bson:"status" json:"status"`
	Rows           []PickTicketRow `bson:"rows" json:"rows"`
	Jobs           []Job           `bson:"jobs" json:"jobs"`
	Excluded       []ExcludedOrder `bson:"excluded" json:"excluded"`
	PickByOrder    []PickByOrder   `bson:"pickByOrder" json:"pickByOrder"`
	MultiBatchSKUs []string        `bson:"multiBatchSkus,omitempty" json:"multiBatchSkus,omitempty"`
	Warnings       []string        `bson:"warnings,omitempty" json:"warnings,omitempty"`
	Summary        Summary         `bson:"summary" json:"summary"`
}

// Input is the snapshot an engine run works on
type Input struct {
	Lines   []OrderLine
	Master  SKUMaster
	Options RunOptions
}

// Engine turns an order-line snapshot into a pick ticket. It holds only
// configuration and is safe for concurrent use.
type Engine struct {
	cfg        EngineConfig
	filter     LineFilter
	classifier Classifier
	packer     *CartonPacker
	batcher    *Batcher
	assembler  Assembler
}

// NewEngine validates the configuration and builds an engine
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	batcher, err := NewBatcher(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		filter:     NewLineFilter(cfg.Filters),
		classifier: NewClassifier(cfg.Classification),
		packer:     NewCartonPacker(cfg.CartonTiers, cfg.CartonOverflowLabel),
		batcher:    batcher,
	}, nil
}

// Config returns the configuration the engine was built with
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Run executes the pipeline. It either returns a complete pick ticket or an
// error; a JobIntegrityError means no rows were emitted.
func (e *Engine) Run(in Input) (*PickTicket, error) {
	filtered := e.filter.Apply(in.Lines, in.Options)
	enriched, missing := EnrichLines(filtered.Lines, in.Master)

	excluded := append(filtered.Excluded, missing...)
	sort.SliceStable(excluded, func(i, j int) bool {
		return excluded[i].IssueNo < excluded[j].IssueNo
	})

	orders := AggregateOrders(enriched)
	included, oversize := e.classifier.ClassifyOrders(orders)

	ticket := &PickTicket{
		Status:      StatusNoData,
		Rows:        []PickTicketRow{},
		Jobs:        []Job{},
		Excluded:    excluded,
		PickByOrder: pickByOrder(oversize),
		Summary: Summary{
			InputLines:      len(in.Lines),
			OutOfScopeLines: filtered.OutOfScopeLines,
			OutOfRangeLines: filtered.OutOfRangeLines,
			Orders:          len(orders),
			OversizeOrders:  len(oversize),
			ExcludedOrders:  len(excluded),
			Strategy:        e.batcher.MultiLineStrategy(),
		},
	}
	if ticket.Excluded == nil {
		ticket.Excluded = []ExcludedOrder{}
	}
	for _, order := range included {
		if order.Class == ClassBin {
			ticket.Summary.BinOrders++
		} else {
			ticket.Summary.LayerOrders++
		}
		if order.IsSingleLine() {
			ticket.Summary.SingleLineOrders++
		} else {
			ticket.Summary.MultiLineOrders++
		}
	}

	if len(included) == 0 {
		return ticket, nil
	}

	var (
		jobs        []Job
		assignments map[string]string
		plans       map[int]CartonPlan
		g           errgroup.Group
	)
	g.Go(func() error {
		var err error
		jobs, assignments, err = e.batcher.Batch(included)
		return err
	})
	g.Go(func() error {
		plans = e.planCartons(included)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := e.assembler.Assemble(included, plans, assignments, in.Options.OrderKind)
	if err := VerifyJobIntegrity(rows); err != nil {
		return nil, err
	}

	ticket.Rows = rows
	ticket.Jobs = jobs
	ticket.MultiBatchSKUs = FlagMultiBatchSKUs(rows)
	ticket.Warnings = jobWarnings(jobs, e.cfg.MultiLine.MaxJobVolume)
	ticket.Summary.Jobs = len(jobs)
	ticket.Summary.Rows = len(rows)
	for _, row := range rows {
		if row.CartonDescription == InvalidCarton {
			ticket.Summary.InvalidCartons++
		}
	}
	if len(rows) > 0 {
		ticket.Status = StatusCompleted
	}

	return ticket, nil
}

func (e *Engine) planCartons(orders []Order) map[int]CartonPlan {
	plans := make(map[int]CartonPlan)
	for _, order := range orders {
		for _, line := range order.Lines {
			plans[line.Seq] = e.packer.Plan(line.PickingQty, line.Attributes)
		}
	}
	return plans
}

func pickByOrder(orders []Order) []PickByOrder {
	out := make([]PickByOrder, 0, len(orders))
	for _, order := range orders {
		out = append(out, PickByOrder{
			IssueNo:      order.IssueNo,
			LineCount:    order.LineCount,
			TotalVolume:  order.TotalVolume,
			ShipTo:       order.ShipTo,
			DeliveryDate: order.DeliveryDate,
		})
	}
	return out
}

func jobWarnings(jobs []Job, maxJobVolume float64) []string {
	var warnings []string
	for _, job := range jobs {
		if job.HasFlag(FlagOverCapacity) {
			warnings = append(warnings, fmt.Sprintf("%s: order %s volume %.0f exceeds job volume cap %.0f",
				job.JobID, job.IssueNos[0], job.TotalVolume, maxJobVolume))
		}
		if job.HasFlag(FlagRemainder) {
			warnings = append(warnings, fmt.Sprintf("%s: order %s left over after scenario grouping, batched alone",
				job.JobID, job.IssueNos[0]))
		}
	}
	return warnings
}
