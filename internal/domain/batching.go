package domain

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Strategy names
const (
	StrategySingleLine = "single_line"
	StrategyScenario   = "scenario"
	StrategyCapacity   = "capacity"
)

// BatchStrategy groups orders into unnumbered jobs. Assign must be
// deterministic for a given input and must place every order in exactly one
// draft.
type BatchStrategy interface {
	Name() string
	Assign(orders []Order) ([]JobDraft, error)
}

// SingleLineStrategy batches single-line orders by count, per ship-to and
// delivery date (and optionally zone).
type SingleLineStrategy struct {
	BatchSize   int
	GroupByZone bool
}

// Name implements BatchStrategy
func (s SingleLineStrategy) Name() string { return StrategySingleLine }

type singleLineKey struct {
	date   string
	shipTo string
	zone   string
}

// Assign implements BatchStrategy
func (s SingleLineStrategy) Assign(orders []Order) ([]JobDraft, error) {
	if s.BatchSize < 1 {
		return nil, fmt.Errorf("%w: single-line batch size must be at least 1", ErrInvalidConfig)
	}

	groups := make(map[singleLineKey][]Order)
	var keys []singleLineKey
	for _, order := range orders {
		key := singleLineKey{date: order.DateKey(), shipTo: order.ShipTo}
		if s.GroupByZone {
			key.zone = order.Zone
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], order)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.date != b.date {
			return a.date < b.date
		}
		if a.shipTo != b.shipTo {
			return a.shipTo < b.shipTo
		}
		return a.zone < b.zone
	})

	var drafts []JobDraft
	for _, key := range keys {
		group := sortedByIssueNo(groups[key])
		for start := 0; start < len(group); start += s.BatchSize {
			end := min(start+s.BatchSize, len(group))
			drafts = append(drafts, JobDraft{
				Strategy:     StrategySingleLine,
				Kind:         JobKindSingleLine,
				DeliveryDate: group[start].DeliveryDate,
				Orders:       group[start:end],
			})
		}
	}
	return drafts, nil
}

// ScenarioStrategy composes multi-line jobs from Bin and Layer pools per
// delivery date: 2 Bins + 1 Layer first, then Bin-only jobs of 4 (or 3),
// then Layer-only jobs of 3 (or 2). Leftovers become flagged singletons.
type ScenarioStrategy struct {
	Parallelism int
}

// Name implements BatchStrategy
func (s ScenarioStrategy) Name() string { return StrategyScenario }

// Assign implements BatchStrategy
func (s ScenarioStrategy) Assign(orders []Order) ([]JobDraft, error) {
	return assignPerDate(orders, s.Parallelism, s.assignDate)
}

func (s ScenarioStrategy) assignDate(orders []Order) ([]JobDraft, error) {
	var bins, layers []Order
	for _, order := range sortedByIssueNo(orders) {
		switch order.Class {
		case ClassBin:
			bins = append(bins, order)
		case ClassLayer:
			layers = append(layers, order)
		default:
			return nil, fmt.Errorf("order %s has class %q: scenario batching accepts Bin and Layer orders only",
				order.IssueNo, order.Class)
		}
	}

	var drafts []JobDraft
	emit := func(kind JobKind, members []Order, flags ...JobFlag) {
		drafts = append(drafts, JobDraft{
			Strategy:     StrategyScenario,
			Kind:         kind,
			DeliveryDate: members[0].DeliveryDate,
			Orders:       members,
			Flags:        flags,
		})
	}

	for len(bins) >= 2 && len(layers) >= 1 {
		members := []Order{bins[0], bins[1], layers[0]}
		bins, layers = bins[2:], layers[1:]
		emit(JobKindMixed, members)
	}

	for len(bins) >= 3 {
		n := min(4, len(bins))
		emit(JobKindBin, bins[:n])
		bins = bins[n:]
	}

	for len(layers) >= 2 {
		n := min(3, len(layers))
		emit(JobKindLayer, layers[:n])
		layers = layers[n:]
	}

	for _, order := range append(bins, layers...) {
		emit(JobKindRemainder, []Order{order}, FlagRemainder)
	}

	return drafts, nil
}

// CapacityStrategy packs multi-line orders per delivery date in ascending
// volume order, closing a job when the next order would push it over
// MaxJobVolume.
type CapacityStrategy struct {
	MaxJobVolume float64
	Parallelism  int
}

// Name implements BatchStrategy
func (s CapacityStrategy) Name() string { return StrategyCapacity }

// Assign implements BatchStrategy
func (s CapacityStrategy) Assign(orders []Order) ([]JobDraft, error) {
	if s.MaxJobVolume <= 0 {
		return nil, fmt.Errorf("%w: max job volume must be positive", ErrInvalidConfig)
	}
	return assignPerDate(orders, s.Parallelism, s.assignDate)
}

func (s CapacityStrategy) assignDate(orders []Order) ([]JobDraft, error) {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalVolume != sorted[j].TotalVolume {
			return sorted[i].TotalVolume < sorted[j].TotalVolume
		}
		return sorted[i].IssueNo < sorted[j].IssueNo
	})

	var drafts []JobDraft
	var current []Order
	var volume float64

	closeJob := func() {
		if len(current) == 0 {
			return
		}
		draft := JobDraft{
			Strategy:     StrategyCapacity,
			Kind:         JobKindCapacity,
			DeliveryDate: current[0].DeliveryDate,
			Orders:       current,
		}
		if len(current) == 1 && volume > s.MaxJobVolume {
			draft.Flags = []JobFlag{FlagOverCapacity}
		}
		drafts = append(drafts, draft)
		current, volume = nil, 0
	}

	for _, order := range sorted {
		if len(current) > 0 && volume+order.TotalVolume > s.MaxJobVolume {
			closeJob()
		}
		current = append(current, order)
		volume += order.TotalVolume
	}
	closeJob()

	return drafts, nil
}

// NewMultiLineStrategy selects the multi-line strategy named in config
func NewMultiLineStrategy(cfg MultiLineConfig, parallelism int) (BatchStrategy, error) {
	switch cfg.Strategy {
	case StrategyScenario:
		return ScenarioStrategy{Parallelism: parallelism}, nil
	case StrategyCapacity:
		return CapacityStrategy{MaxJobVolume: cfg.MaxJobVolume, Parallelism: parallelism}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// assignPerDate partitions orders by delivery date and runs assign on each
// partition concurrently. Drafts are concatenated in ascending date order so
// the result does not depend on scheduling.
func assignPerDate(orders []Order, parallelism int, assign func([]Order) ([]JobDraft, error)) ([]JobDraft, error) {
	partitions := partitionByDate(orders)
	results := make([][]JobDraft, len(partitions))

	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, partition := range partitions {
		g.Go(func() error {
			drafts, err := assign(partition)
			if err != nil {
				return err
			}
			results[i] = drafts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var drafts []JobDraft
	for _, r := range results {
		drafts = append(drafts, r...)
	}
	return drafts, nil
}

func partitionByDate(orders []Order) [][]Order {
	byDate := make(map[string][]Order)
	var dates []string
	for _, order := range orders {
		key := order.DateKey()
		if _, ok := byDate[key]; !ok {
			dates = append(dates, key)
		}
		byDate[key] = append(byDate[key], order)
	}
	sort.Strings(dates)

	partitions := make([][]Order, 0, len(dates))
	for _, date := range dates {
		partitions = append(partitions, byDate[date])
	}
	return partitions
}

func sortedByIssueNo(orders []Order) []Order {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IssueNo < sorted[j].IssueNo
	})
	return sorted
}

// Batcher runs the single-line and multi-line strategies and numbers the
// resulting jobs, single-line jobs first.
type Batcher struct {
	singleLine BatchStrategy
	multiLine  BatchStrategy
}

// NewBatcher creates a batcher from engine configuration
func NewBatcher(cfg EngineConfig) (*Batcher, error) {
	multi, err := NewMultiLineStrategy(cfg.MultiLine, cfg.Parallelism)
	if err != nil {
		return nil, err
	}
	return &Batcher{
		singleLine: SingleLineStrategy{
			BatchSize:   cfg.SingleLine.BatchSize,
			GroupByZone: cfg.SingleLine.GroupByZone,
		},
		multiLine: multi,
	}, nil
}

// NewBatcherWithStrategies creates a batcher from explicit strategies
func NewBatcherWithStrategies(singleLine, multiLine BatchStrategy) *Batcher {
	return &Batcher{singleLine: singleLine, multiLine: multiLine}
}

// MultiLineStrategy returns the name of the multi-line strategy in use
func (b *Batcher) MultiLineStrategy() string {
	return b.multiLine.Name()
}

// Batch assigns every order to exactly one job. It returns the numbered jobs
// and the IssueNo to JobID assignment.
func (b *Batcher) Batch(orders []Order) ([]Job, map[string]string, error) {
	var single, multi []Order
	for _, order := range orders {
		if order.IsSingleLine() {
			single = append(single, order)
		} else {
			multi = append(multi, order)
		}
	}

	singleDrafts, err := b.singleLine.Assign(single)
	if err != nil {
		return nil, nil, fmt.Errorf("single-line batching: %w", err)
	}
	multiDrafts, err := b.multiLine.Assign(multi)
	if err != nil {
		return nil, nil, fmt.Errorf("%s batching: %w", b.multiLine.Name(), err)
	}

	seq := NewJobSequence()
	jobs := seq.Number(append(singleDrafts, multiDrafts...))

	assignments, err := VerifyJobAssignments(orders, jobs)
	if err != nil {
		return nil, nil, err
	}
	return jobs, assignments, nil
}

// VerifyJobAssignments checks that every order appears exactly once across
// all jobs and that jobs reference no unknown orders.
func VerifyJobAssignments(orders []Order, jobs []Job) (map[string]string, error) {
	known := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		known[order.IssueNo] = struct{}{}
	}

	assignments := make(map[string]string, len(orders))
	violations := make(map[string]struct{})
	for _, job := range jobs {
		for _, issueNo := range job.IssueNos {
			if _, ok := known[issueNo]; !ok {
				violations[issueNo] = struct{}{}
				continue
			}
			if _, ok := assignments[issueNo]; ok {
				violations[issueNo] = struct{}{}
				continue
			}
			assignments[issueNo] = job.JobID
		}
	}
	for issueNo := range known {
		if _, ok := assignments[issueNo]; !ok {
			violations[issueNo] = struct{}{}
		}
	}

	if len(violations) > 0 {
		return nil, newJobIntegrityError(violations)
	}
	return assignments, nil
}
