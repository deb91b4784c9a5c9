// Package repository defines error types that are reused across multiple
// repositories. Handlers and services compare against these sentinels with
// errors.Is; raw driver errors never cross the repository boundary unwrapped.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

var (
	// ErrEmailExists is returned when the users.email unique key rejects an insert.
	ErrEmailExists = errors.New("email already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrCategoryNotFound is returned when a category id does not exist,
	// including foreign key rejections on products.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrProductNotFound is returned when a product id does not exist.
	ErrProductNotFound = errors.New("product not found")
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}
