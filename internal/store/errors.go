package store

import (
	"errors"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicate reports a uniqueness-constraint violation. It is part of the
// store contract, not an incidental failure: the get-or-create path treats it
// as "someone else won the race, re-read", and the participation path treats
// it the same as finding an existing row.
var ErrDuplicate = errors.New("duplicate row")

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
