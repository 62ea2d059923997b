// Package sqliterepos implements the core repositories on the sqlite store.
package sqliterepos

import (
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// sb builds statements with `?` placeholders, which is what sqlite expects.
var sb = sq.StatementBuilder

// isUniqueErr reports whether err is a uniqueness violation on the given
// column ("table.column"). The sqlite driver only exposes this through the
// error text.
func isUniqueErr(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

// isFKErr reports whether err is a foreign key violation.
func isFKErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// trapNoRowsErr maps sql "no rows" to the given domain error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}
