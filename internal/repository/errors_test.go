package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/rodetes-party/rodetes/internal/store"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(sql.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("scan: %w", sql.ErrNoRows)), store.ErrNotFound)
	assert.ErrorIs(t, translate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), store.ErrDuplicate)

	other := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	assert.Same(t, other, translate(other))
}

type fakeResult struct {
	n   int64
	err error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.n, r.err }

func TestMustAffect(t *testing.T) {
	assert.NoError(t, mustAffect(fakeResult{n: 1}, nil))
	assert.ErrorIs(t, mustAffect(fakeResult{n: 0}, nil), store.ErrNotFound)

	boom := errors.New("boom")
	assert.ErrorIs(t, mustAffect(nil, boom), boom)
	assert.ErrorIs(t, mustAffect(fakeResult{err: boom}, nil), boom)
}
