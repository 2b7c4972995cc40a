package sqldb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/sqldb"
	"github.com/medatechnology/simpledb/sqlite"
	"github.com/medatechnology/simpledb/tabular"
)

const schema = `
CREATE TABLE users (
	Id      INTEGER PRIMARY KEY,
	Name    TEXT,
	Score   REAL,
	Created DATETIME,
	Active  BOOLEAN
)`

func openUsers(t *testing.T) *sqldb.Backend {
	t.Helper()
	b, err := sqlite.Open(*sqlite.NewDefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ctx := context.Background()
	_, err = b.Exec(ctx, simpledb.NewCommand(schema))
	require.NoError(t, err)

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err = b.Exec(ctx, simpledb.NewCommand(
		"INSERT INTO users (Id, Name, Score, Created, Active) VALUES (@id, @name, @score, @created, @active)",
		simpledb.With("id", 1), simpledb.With("name", "Ann"), simpledb.With("score", 1.5),
		simpledb.With("created", created), simpledb.With("active", true)))
	require.NoError(t, err)
	_, err = b.Exec(ctx, simpledb.NewCommand(
		"INSERT INTO users (Id, Name, Score, Created, Active) VALUES (?, ?, ?, ?, ?)",
		simpledb.Args(2, nil, nil, nil, false)))
	require.NoError(t, err)
	return b
}

func TestQueryEncodesDeclaredKinds(t *testing.T) {
	b := openUsers(t)
	cur, err := b.Query(context.Background(), simpledb.NewCommand("SELECT Id, Name, Score, Created, Active FROM users ORDER BY Id"))
	require.NoError(t, err)
	defer cur.Close()

	blob, err := tabular.NewEncoder(tabular.Seconds).Encode(context.Background(), cur)
	require.NoError(t, err)
	require.NotNil(t, blob)
	assert.Equal(t, "!Id~$Name~%Score~#Created~^Active|1~Ann~1.5~1704164645~1|2~Ø~Ø~Ø~0", *blob)
}

func TestQueryMultipleResultSets(t *testing.T) {
	b := openUsers(t)
	cur, err := b.Query(context.Background(), simpledb.NewCommand(
		"SELECT Name FROM users WHERE Id = @id; SELECT Id FROM users WHERE 1 = 0; SELECT COUNT(*) AS n FROM users",
		simpledb.With("id", 1)))
	require.NoError(t, err)
	defer cur.Close()

	blobs, err := tabular.NewEncoder(tabular.Seconds).EncodeAll(context.Background(), cur)
	require.NoError(t, err)
	require.Len(t, blobs, 3)
	assert.Equal(t, "$Name|Ann", *blobs[0])
	assert.Nil(t, blobs[1])
	assert.Equal(t, "!n|2", *blobs[2])
}

func TestQuerySkipsStatementsWithoutRows(t *testing.T) {
	b := openUsers(t)
	cur, err := b.Query(context.Background(), simpledb.NewCommand(
		"INSERT INTO users (Id, Name) VALUES (?, ?); SELECT Name FROM users WHERE Id = ?",
		simpledb.Args(3, "Cid", 3)))
	require.NoError(t, err)
	defer cur.Close()

	blob, err := tabular.NewEncoder(tabular.Seconds).Encode(context.Background(), cur)
	require.NoError(t, err)
	assert.Equal(t, "$Name|Cid", *blob)
	assert.False(t, cur.NextResultSet())
}

func TestQueryFailures(t *testing.T) {
	b := openUsers(t)
	_, err := b.Query(context.Background(), simpledb.NewCommand("SELECT * FROM nothing"))
	assert.Error(t, err)

	_, err = b.Query(context.Background(), simpledb.NewCommand("SELECT @missing"))
	assert.ErrorContains(t, err, sqldb.ErrMissingParameter.Error())

	_, err = b.Query(context.Background(), simpledb.NewCommand("  ;  "))
	assert.ErrorContains(t, err, sqldb.ErrEmptyQuery.Error())

	// the failing second statement surfaces through Err
	cur, err := b.Query(context.Background(), simpledb.NewCommand("SELECT 1 AS a; SELECT * FROM nothing"))
	require.NoError(t, err)
	defer cur.Close()
	assert.False(t, cur.NextResultSet())
	assert.Error(t, cur.Err())
}

func TestExec(t *testing.T) {
	b := openUsers(t)
	res, err := b.Exec(context.Background(), simpledb.NewCommand("INSERT INTO users (Name) VALUES (@name)", simpledb.With("name", "Dee")))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Equal(t, int64(3), res.LastInsertID)

	res, err = b.Exec(context.Background(), simpledb.NewCommand("UPDATE users SET Active = ?; DELETE FROM users WHERE Id = ?", simpledb.Args(true, 3)))
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.RowsAffected)
}

func TestExecBatchRollsBack(t *testing.T) {
	b := openUsers(t)
	ctx := context.Background()
	_, err := b.ExecBatch(ctx, []simpledb.Command{
		simpledb.NewCommand("DELETE FROM users"),
		simpledb.NewCommand("INSERT INTO nothing VALUES (1)"),
	})
	require.Error(t, err)

	cur, err := b.Query(ctx, simpledb.NewCommand("SELECT COUNT(*) FROM users"))
	require.NoError(t, err)
	defer cur.Close()
	require.True(t, cur.Next())
	vals, err := cur.Values()
	require.NoError(t, err)
	assert.Equal(t, int64(2), vals[0])
}

func TestExecBatch(t *testing.T) {
	b := openUsers(t)
	results, err := b.ExecBatch(context.Background(), []simpledb.Command{
		simpledb.NewCommand("UPDATE users SET Score = @s", simpledb.With("s", 2.0)),
		simpledb.NewCommand("DELETE FROM users WHERE Id = ?", simpledb.Args(2)),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].RowsAffected)
	assert.Equal(t, int64(1), results[1].RowsAffected)
}

func TestStatus(t *testing.T) {
	b := openUsers(t)
	status, err := b.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.DBMS)
	assert.Equal(t, sqlite.DriverName, status.DBMSDriver)
	assert.NotEmpty(t, status.Version)
	assert.Equal(t, 1, status.MaxPool)
	assert.False(t, b.Capabilities().StoredProcedures)
}

func TestQueryCancelled(t *testing.T) {
	b := openUsers(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Query(ctx, simpledb.NewCommand("SELECT Id FROM users"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClosed(t *testing.T) {
	b := openUsers(t)
	require.NoError(t, b.Close())
	assert.NoError(t, b.Close())

	ctx := context.Background()
	_, err := b.Query(ctx, simpledb.NewCommand("SELECT Id FROM users"))
	assert.ErrorIs(t, err, sqldb.ErrClosed)
	_, err = b.Exec(ctx, simpledb.NewCommand("DELETE FROM users"))
	assert.ErrorIs(t, err, sqldb.ErrClosed)
	_, err = b.ExecBatch(ctx, []simpledb.Command{simpledb.NewCommand("DELETE FROM users")})
	assert.ErrorIs(t, err, sqldb.ErrClosed)
	_, err = b.Status(ctx)
	assert.ErrorIs(t, err, sqldb.ErrClosed)
}
