package simpledb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medatechnology/simpledb/tabular"
)

func record(pairs ...interface{}) Record {
	var r Record
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}
	return r
}

func TestExecute(t *testing.T) {
	f := newFake()
	f.execResult = BasicSQLResult{RowsAffected: 3}
	n, err := newTestDB(f).Execute(context.Background(), "UPDATE users SET Active = @a", With("a", false))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, f.execs, 1)
	assert.Equal(t, "UPDATE users SET Active = @a", f.execs[0].Query)
}

func TestTransaction(t *testing.T) {
	f := newFake()
	affected, err := newTestDB(f).Transaction(context.Background(), "INSERT INTO a VALUES (1);\nGO\nUPDATE a SET x = 'a;b'")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, affected)
	require.Len(t, f.batches, 1)
	assert.Equal(t, "INSERT INTO a VALUES (1)", f.batches[0][0].Query)
	assert.Equal(t, "UPDATE a SET x = 'a;b'", f.batches[0][1].Query)

	none, err := newTestDB(f).Transaction(context.Background(), "  -- nothing\n")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Len(t, f.batches, 1)
}

func TestInsert(t *testing.T) {
	f := newFake()
	n, err := newTestDB(f).Insert(context.Background(), "users", record("Name", "Ann", "Active", true))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, f.execs, 1)
	assert.Equal(t, "INSERT INTO users (Name,Active) VALUES (?,?)", f.execs[0].Query)
	assert.Equal(t, []interface{}{"Ann", true}, f.execs[0].Values())

	_, err = newTestDB(f).Insert(context.Background(), "users", Record{})
	assert.ErrorContains(t, err, ErrEmptyRecord.Error())
}

func TestUpdate(t *testing.T) {
	f := newFake()
	_, err := newTestDB(f).Update(context.Background(), "users", record("id", 7, "Name", "Ann", "Active", false), "")
	require.NoError(t, err)
	require.Len(t, f.execs, 1)
	assert.Equal(t, "UPDATE users SET Name = ?, Active = ? WHERE Id = ?", f.execs[0].Query)
	assert.Equal(t, []interface{}{"Ann", false, 7}, f.execs[0].Values())

	_, err = newTestDB(f).Update(context.Background(), "users", record("Name", "Ann"), "Code")
	assert.ErrorContains(t, err, ErrMissingPrimaryKey.Error())
	assert.Len(t, f.execs, 1)
}

func TestSaveInsert(t *testing.T) {
	f := newFake()
	f.execResult = BasicSQLResult{RowsAffected: 1, LastInsertID: 42}
	id, err := newTestDB(f).Save(context.Background(), "users", record("Id", int64(0), "Name", "Ann"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.Len(t, f.execs, 1)
	assert.Equal(t, "INSERT INTO users (Name) VALUES (?)", f.execs[0].Query)
}

func TestSaveInsertReturning(t *testing.T) {
	f := newFake(rows([]tabular.Column{tabular.Col("Id", tabular.Numeric)}, []any{int64(9)}))
	f.caps.Returning = true
	id, err := newTestDB(f).Save(context.Background(), "users", record("Id", 0.0, "Name", "Ann"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	require.Len(t, f.queries, 1)
	assert.Equal(t, "INSERT INTO users (Name) VALUES (?) RETURNING Id", f.queries[0].Query)
	assert.Empty(t, f.execs)
}

func TestSaveUpdate(t *testing.T) {
	f := newFake()
	id, err := newTestDB(f).Save(context.Background(), "users", record("Id", int64(5), "Name", "Ann"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	require.Len(t, f.execs, 1)
	assert.Equal(t, "UPDATE users SET Name = ? WHERE Id = ?", f.execs[0].Query)

	_, err = newTestDB(f).Save(context.Background(), "users", record("Name", "Ann"))
	assert.ErrorContains(t, err, ErrMissingPrimaryKey.Error())
}

func TestSaveAll(t *testing.T) {
	f := newFake()
	records := []Record{
		record("Id", int64(0), "Name", "a"),
		record("Id", int64(3), "Name", "b"),
		record("Id", int64(0), "Name", "c"),
	}
	total, err := newTestDB(f).SaveAll(context.Background(), "users", records, "4,5", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	require.Len(t, f.batches, 1)
	batch := f.batches[0]
	require.Len(t, batch, 3)
	assert.Equal(t, "DELETE FROM users WHERE Id IN (?,?)", batch[0].Query)
	assert.Equal(t, []interface{}{int64(4), int64(5)}, batch[0].Values())
	assert.Equal(t, "UPDATE users SET Name = ? WHERE Id = ?", batch[1].Query)
	assert.Equal(t, []interface{}{"b", int64(3)}, batch[1].Values())
	assert.Equal(t, "INSERT INTO users (Name) VALUES (?),(?)", batch[2].Query)
	assert.Equal(t, []interface{}{"a", "c"}, batch[2].Values())
}

func TestSaveAllInvalidIDs(t *testing.T) {
	for _, ids := range []string{"4, 5", "4;DROP TABLE users", "a,b", "4,"} {
		f := newFake()
		_, err := newTestDB(f).SaveAll(context.Background(), "users", []Record{record("Id", int64(0), "Name", "a")}, ids, "Id")
		assert.ErrorContains(t, err, ErrInvalidIDList.Error(), ids)
		assert.Empty(t, f.batches, ids)
	}
}

func TestDelete(t *testing.T) {
	f := newFake()
	ok, err := newTestDB(f).Delete(context.Background(), "users", 7, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DELETE FROM users WHERE Id = ?", f.execs[0].Query)

	f.execResult = BasicSQLResult{}
	ok, err = newTestDB(f).Delete(context.Background(), "users", 8, "UserId")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "DELETE FROM users WHERE UserId = ?", f.execs[1].Query)
}
