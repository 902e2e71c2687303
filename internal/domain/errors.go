package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors
var (
	ErrInvalidConfig    = errors.New("invalid engine configuration")
	ErrUnknownStrategy  = errors.New("unknown batching strategy")
	ErrRunNotFound      = errors.New("pick ticket run not found")
	ErrInvalidOrderKind = errors.New("invalid order kind")
)

// JobIntegrityError reports orders whose lines ended up under more than one
// JobID, or under none. It is fatal for the run: no output is emitted.
type JobIntegrityError struct {
	IssueNos []string
}

func newJobIntegrityError(issueNos map[string]struct{}) *JobIntegrityError {
	ids := make([]string, 0, len(issueNos))
	for id := range issueNos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &JobIntegrityError{IssueNos: ids}
}

func (e *JobIntegrityError) Error() string {
	return fmt.Sprintf("job integrity violation: orders split across jobs or unassigned: %s",
		strings.Join(e.IssueNos, ", "))
}

// IsJobIntegrityViolation reports whether err carries a JobIntegrityError.
func IsJobIntegrityViolation(err error) bool {
	var target *JobIntegrityError
	return errors.As(err, &target)
}
