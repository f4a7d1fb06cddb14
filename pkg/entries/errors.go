package entries

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when an entry does not exist or is hidden from the caller.
	// The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("entry not found")
	// ErrDuplicateSlug is returned when a write would give two entries the same slug.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrInvalidInput is returned for an empty title or a malformed field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIndexSync is returned when the search index could not be updated. The enclosing
	// write has been rolled back.
	ErrIndexSync = errors.New("search index sync failed")
	// ErrStorage wraps any other failure of the storage engine.
	ErrStorage = errors.New("storage error")
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
