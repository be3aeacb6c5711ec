package sqlitemaster

import (
	"database/sql"
	"database/sql/driver"

	"github.com/pkg/errors"
)

// Error kinds. Every error returned by this package is an *Error
// whose Kind is one of these, so callers can test with errors.Is.
var (
	// ErrConnection means the connection passed in was nil,
	// closed or otherwise unusable.
	ErrConnection = errors.New("sqlitemaster: unusable connection")

	// ErrQuery means the schema catalog could not be read.
	ErrQuery = errors.New("sqlitemaster: catalog query failed")

	// ErrStatement means a DROP statement failed. Objects dropped
	// earlier in the same call are not restored.
	ErrStatement = errors.New("sqlitemaster: statement failed")
)

// Error describes a failed catalog query or DROP statement.
type Error struct {
	Kind      error  // ErrConnection, ErrQuery or ErrStatement
	Statement string // The DROP statement that failed, if any.
	Err       error
}

func newError(kind error, stmt string, err error) *Error {
	if kind != ErrConnection && isConnErr(err) {
		kind = ErrConnection
	}
	return &Error{
		Kind:      kind,
		Statement: stmt,
		Err:       err,
	}
}

func (e *Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes both the kind and the underlying cause to
// errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// errDBClosed matches the unexported error database/sql returns
// once a *sql.DB has been closed.
const errDBClosed = "sql: database is closed"

func isConnErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if e.Error() == errDBClosed {
			return true
		}
	}
	return false
}

func isNilConn(conn Conn) bool {
	switch c := conn.(type) {
	case nil:
		return true
	case *sql.DB:
		return c == nil
	case *sql.Conn:
		return c == nil
	case *sql.Tx:
		return c == nil
	default:
		return false
	}
}
