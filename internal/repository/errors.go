// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist. Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when the users.email unique index rejects a
// write.
var ErrEmailExists = errors.New("email already exists")

// ErrAlreadyFavorite is returned when the (user_id, book_id) unique index
// rejects a favorite insert.
var ErrAlreadyFavorite = errors.New("book already in favorites")

// ErrNoFields is returned by partial updates that carry no field.
var ErrNoFields = errors.New("no fields to update")

// MySQL server error numbers the repositories translate.
const (
	errDuplicateEntry   = 1062
	errNoReferencedRow  = 1452
	errNoReferencedRow1 = 1216
)

// isDuplicateEntry reports whether err is a unique-index violation.
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errDuplicateEntry
	}
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}

// isMissingReference reports whether err is a foreign-key violation on insert.
func isMissingReference(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errNoReferencedRow || me.Number == errNoReferencedRow1
	}
	return false
}

// likePattern builds a LIKE operand matching s anywhere, with LIKE
// metacharacters in s taken literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
