package domain

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JobKind describes how a job's orders were grouped
type JobKind string

const (
	JobKindSingleLine JobKind = "single_line" // chunk of single-line orders
	JobKindMixed      JobKind = "mixed"       // 2 Bins + 1 Layer
	JobKindBin        JobKind = "bin"         // 3 or 4 Bins
	JobKindLayer      JobKind = "layer"       // 2 or 3 Layers
	JobKindRemainder  JobKind = "remainder"   // scenario leftover, one order
	JobKindCapacity   JobKind = "capacity"    // volume-capped group
)

// JobFlag marks a job that needs attention on the floor
type JobFlag string

const (
	FlagRemainder    JobFlag = "remainder"
	FlagOverCapacity JobFlag = "over_capacity"
)

// JobDraft is a group of orders formed by a strategy, before numbering
type JobDraft struct {
	Strategy     string
	Kind         JobKind
	DeliveryDate time.Time
	Orders       []Order
	Flags        []JobFlag
}

// Job is a numbered batch of orders picked together
type Job struct {
	JobID        string    `bson:"jobId" json:"jobId"`
	Strategy     string    `bson:"strategy" json:"strategy"`
	Kind         JobKind   `bson:"kind" json:"kind"`
	IssueNos     []string  `bson:"issueNos" json:"issueNos"`
	OrderCount   int       `bson:"orderCount" json:"orderCount"`
	TotalVolume  float64   `bson:"totalVolume" json:"totalVolume"`
	DeliveryDate time.Time `bson:"deliveryDate" json:"deliveryDate"`
	Flags        []JobFlag `bson:"flags,omitempty" json:"flags,omitempty"`
}

// HasFlag reports whether the job carries a flag
func (j Job) HasFlag(flag JobFlag) bool {
	for _, f := range j.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

const jobIDPrefix = "Job"

// JobSequence hands out monotonically increasing JobIDs for one run
type JobSequence struct {
	next int
}

// NewJobSequence creates a sequence starting at Job001
func NewJobSequence() *JobSequence {
	return &JobSequence{next: 1}
}

// Next returns the next JobID
func (s *JobSequence) Next() string {
	id := fmt.Sprintf(jobIDPrefix+"%03d", s.next)
	s.next++
	return id
}

// Number assigns JobIDs to drafts in slice order
func (s *JobSequence) Number(drafts []JobDraft) []Job {
	jobs := make([]Job, 0, len(drafts))
	for _, draft := range drafts {
		job := Job{
			JobID:        s.Next(),
			Strategy:     draft.Strategy,
			Kind:         draft.Kind,
			IssueNos:     make([]string, 0, len(draft.Orders)),
			OrderCount:   len(draft.Orders),
			DeliveryDate: draft.DeliveryDate,
			Flags:        draft.Flags,
		}
		for _, order := range draft.Orders {
			job.IssueNos = append(job.IssueNos, order.IssueNo)
			job.TotalVolume += order.TotalVolume
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// CompareJobIDs orders JobIDs by sequence number, so Job1000 follows Job999.
// IDs without a numeric suffix sort first, by text.
func CompareJobIDs(a, b string) int {
	na, okA := jobOrdinal(a)
	nb, okB := jobOrdinal(b)
	switch {
	case okA && okB && na != nb:
		return cmp.Compare(na, nb)
	case okA && !okB:
		return 1
	case !okA && okB:
		return -1
	}
	return strings.Compare(a, b)
}

func jobOrdinal(id string) (int, bool) {
	digits, found := strings.CutPrefix(id, jobIDPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
