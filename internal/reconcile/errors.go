package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrRemote matches every failed gateway call.
	ErrRemote = errors.New("remote operation failed")
	// ErrBusy is returned when the product already has an operation in flight.
	ErrBusy = errors.New("operation in progress")
	// ErrForbidden is returned when the role may not perform the intent.
	ErrForbidden = errors.New("forbidden for role")
	// ErrUnknownProduct is returned when the id is not in confirmed state.
	ErrUnknownProduct = errors.New("unknown product")
)

// RemoteError is a failed gateway call. The engine has already rolled back.
type RemoteError struct {
	Op  Op
	ID  string
	Err error
}

func (e *RemoteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRemote) hold.
func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// BulkError reports a bulk reset where at least one call failed. The whole
// batch was rolled back locally even if some calls committed remotely.
type BulkError struct {
	Failed map[string]error
	Total  int
}

func (e *BulkError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("bulk reset: %d of %d failed (%s)", len(e.Failed), e.Total, strings.Join(ids, ", "))
}

// Is makes errors.Is(err, ErrRemote) hold.
func (e *BulkError) Is(target error) bool { return target == ErrRemote }
