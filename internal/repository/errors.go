package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/rodetes-party/rodetes/internal/store"
)

// ErrForbidden is returned when an account exists but may not act, for
// example a deactivated staff user.
var ErrForbidden = errors.New("forbidden")

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the store sentinels so services never
// depend on database/sql or the MySQL driver.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return store.ErrDuplicate
	}
	return err
}

// mustAffect turns a zero-row UPDATE/DELETE into store.ErrNotFound.
func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
