package errors

import (
	"errors"
	"fmt"
)

var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

type Category string

const (
	CategoryNotFound   Category = "NOT_FOUND"       // Unknown download id
	CategoryLock       Category = "LOCK"            // Registry unavailable
	CategorySpawn      Category = "SPAWN"           // Helper missing or unlaunchable
	CategoryMalformed  Category = "MALFORMED_EVENT" // Unparseable status line
	CategoryPersist    Category = "PERSISTENCE"     // Disk write failed
	CategoryInvalid    Category = "INVALID"         // Bad request arguments
	CategoryIO         Category = "IO"              // File system issues
	CategoryUnexpected Category = "UNKNOWN"         // Unclassified errors
)

// Error is a categorized failure raised by the download core.
type Error struct {
	Err      error    // Original error
	Category Category // General category
	Op       string   // Operation that failed
	ID       string   // Download id, when one applies
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s %s: %v", e.Category, e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	ErrNotFound       = New("no active download found")
	ErrRegistryClosed = New("registry is closed")
	ErrAlreadyActive  = New("download already active")
	ErrBinaryNotFound = New("helper binary not found")
	ErrMissingID      = New("missing download identifier")
)

func newError(category Category, op, id string, err error) *Error {
	return &Error{Err: err, Category: category, Op: op, ID: id}
}

// NewNotFoundError reports an operation against an unknown id.
func NewNotFoundError(op, id string) *Error {
	return newError(CategoryNotFound, op, id, ErrNotFound)
}

// NewLockError reports that the registry could not be locked for op.
func NewLockError(op, id string, err error) *Error {
	return newError(CategoryLock, op, id, err)
}

// NewSpawnError reports a helper process that could not be started.
func NewSpawnError(binary string, err error) *Error {
	return newError(CategorySpawn, "spawn "+binary, "", err)
}

// NewMalformedError reports a helper output line that is not a status event.
func NewMalformedError(line string, err error) *Error {
	return newError(CategoryMalformed, fmt.Sprintf("decode %q", line), "", err)
}

// NewPersistenceError reports a failed write of the durable store.
func NewPersistenceError(resource string, err error) *Error {
	return newError(CategoryPersist, "persist "+resource, "", err)
}

// NewInvalidError reports a request rejected before any state change.
func NewInvalidError(op, id string, err error) *Error {
	return newError(CategoryInvalid, op, id, err)
}

func NewIOError(op, resource string, err error) *Error {
	return newError(CategoryIO, op+" "+resource, "", err)
}

// CategoryOf returns the category of err, or CategoryUnexpected.
func CategoryOf(err error) Category {
	var e *Error
	if As(err, &e) {
		return e.Category
	}
	return CategoryUnexpected
}

func IsNotFound(err error) bool {
	return err != nil && CategoryOf(err) == CategoryNotFound
}

func IsLock(err error) bool {
	return err != nil && CategoryOf(err) == CategoryLock
}

func IsSpawn(err error) bool {
	return err != nil && CategoryOf(err) == CategorySpawn
}

func IsMalformed(err error) bool {
	return err != nil && CategoryOf(err) == CategoryMalformed
}

// IsPersistence determines if err came from a failed disk write. The state
// change that triggered the write is still applied in memory.
func IsPersistence(err error) bool {
	return err != nil && CategoryOf(err) == CategoryPersist
}

func IsInvalid(err error) bool {
	return err != nil && CategoryOf(err) == CategoryInvalid
}
