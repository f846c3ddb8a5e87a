package store

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the adapter classifies.
const (
	errDupEntry        = 1062
	errBadField        = 1054
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
	errNoSuchTable     = 1146
	errLockWaitTimeout = 1205
	errLockDeadlock    = 1213
)

// ErrNestedTransaction is returned when WithTransaction is called with a
// context that already carries a transaction.
var ErrNestedTransaction = errors.New("store: nested transactions are not supported")

// ExecError wraps a failed statement with its expanded SQL and bindings.
type ExecError struct {
	Op       string
	SQL      string
	Bindings []any
	Err      error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.SQL, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

func mysqlNumber(err error) (uint16, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number, true
	}
	return 0, false
}

func hasNumber(err error, numbers ...uint16) bool {
	n, ok := mysqlNumber(err)
	if !ok {
		return false
	}
	for _, want := range numbers {
		if n == want {
			return true
		}
	}
	return false
}

// IsDuplicateEntry reports whether err is a unique key violation.
func IsDuplicateEntry(err error) bool {
	return hasNumber(err, errDupEntry)
}

// IsForeignKeyViolation reports whether err is a foreign key failure in
// either direction.
func IsForeignKeyViolation(err error) bool {
	return hasNumber(err, errRowIsReferenced, errNoReferencedRow)
}

// IsBadField reports whether err names an unknown column.
func IsBadField(err error) bool {
	return hasNumber(err, errBadField)
}

// IsMissingTable reports whether err names an unknown table.
func IsMissingTable(err error) bool {
	return hasNumber(err, errNoSuchTable)
}

// IsRetryable reports whether the statement failed on a lock wait timeout or
// deadlock and may succeed if run again.
func IsRetryable(err error) bool {
	return hasNumber(err, errLockWaitTimeout, errLockDeadlock)
}
