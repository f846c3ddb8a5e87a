package engine

import (
	"errors"
	"fmt"
)

// OperationError reports which verb failed on which entity kind. The
// underlying error (a *queryir.QueryError, *store.ExecError or transaction
// failure) is available through Unwrap.
type OperationError struct {
	// Op is the verb, e.g. "save/upsert" or "remove".
	Op string

	// Entity is the canonical name of the entity kind.
	Entity string

	// ID identifies the entity when the operation targeted one.
	ID any

	Err error
}

func (e *OperationError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s %s (id=%v): %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// ErrNoID is returned when an insert left the entity without an id to
// reload it by, e.g. an auto-increment table that reported no insert id.
var ErrNoID = errors.New("entity has no id after insert")

// OpOf returns the verb of the OperationError in err's chain, or "".
func OpOf(err error) string {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Op
	}
	return ""
}
