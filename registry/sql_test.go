package registry

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConnector opens in-memory driver connections whose close and
// iteration failures can be injected.
type fakeConnector struct {
	closeConnErr error
	closeStmtErr error
	closeRowsErr error
	iterErr      error

	connCloses int
	rowsCloses int
}

func (c *fakeConnector) Connect(context.Context) (driver.Conn, error) {
	return &fakeConn{c: c}, nil
}

func (c *fakeConnector) Driver() driver.Driver {
	return fakeDriver{c: c}
}

type fakeDriver struct {
	c *fakeConnector
}

func (d fakeDriver) Open(string) (driver.Conn, error) {
	return d.c.Connect(context.Background())
}

type fakeConn struct {
	c *fakeConnector
}

func (fc *fakeConn) Prepare(string) (driver.Stmt, error) {
	return &fakeStmt{c: fc.c}, nil
}

func (fc *fakeConn) Close() error {
	fc.c.connCloses++
	return fc.c.closeConnErr
}

func (fc *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("fake: transactions not supported")
}

type fakeStmt struct {
	c *fakeConnector
}

func (s *fakeStmt) Close() error  { return s.c.closeStmtErr }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(0), nil
}

func (s *fakeStmt) Query([]driver.Value) (driver.Rows, error) {
	return &fakeRows{c: s.c, remaining: 3}, nil
}

type fakeRows struct {
	c         *fakeConnector
	remaining int
}

func (r *fakeRows) Columns() []string { return []string{"n"} }

func (r *fakeRows) Close() error {
	r.c.rowsCloses++
	return r.c.closeRowsErr
}

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.c.iterErr != nil {
		return r.c.iterErr
	}
	if r.remaining == 0 {
		return io.EOF
	}
	dest[0] = int64(r.remaining)
	r.remaining--
	return nil
}

func TestRegistry_SQLResources(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)
	connector := &fakeConnector{}

	db := sql.OpenDB(connector)
	assert.Same(t, db, reg.RegisterDB(db))

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	assert.Same(t, conn, reg.RegisterConn(conn))

	stmt, err := conn.PrepareContext(ctx, "SELECT n FROM numbers")
	require.NoError(t, err)
	assert.Same(t, stmt, reg.RegisterStmt(stmt))

	rows, err := stmt.QueryContext(ctx)
	require.NoError(t, err)
	assert.Same(t, rows, reg.RegisterRows(rows))

	require.True(t, rows.Next())
	var n int64
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, int64(3), n)

	assert.Equal(t, 4, reg.Len())
	require.NoError(t, reg.Close())
	assert.Equal(t, 0, reg.Len())

	assert.False(t, rows.Next())
	_, err = stmt.ExecContext(ctx)
	assert.Error(t, err)
	assert.ErrorIs(t, conn.PingContext(ctx), sql.ErrConnDone)
	assert.Error(t, db.PingContext(ctx))
	assert.Equal(t, 1, connector.rowsCloses)
	assert.Equal(t, 1, connector.connCloses)
}

func TestRegistry_SQLConnectionFailure(t *testing.T) {
	ctx := context.Background()
	reg, logs := newTestRegistry(t)

	db := sql.OpenDB(&fakeConnector{})
	defer db.Close()

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	reg.RegisterConn(conn)

	// Closing behind the registry's back makes the registered close fail.
	require.NoError(t, conn.Close())

	err = reg.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)

	re, ok := AsReleaseError(err)
	require.True(t, ok)
	assert.Equal(t, CategoryConnection, re.Category)
	assert.Equal(t, "close connection", re.Op)
	assert.Contains(t, logs.String(), "unable to close connection")
}

func TestRegistry_SQLDatabaseFailure(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)
	errConn := errors.New("socket already gone")

	db := reg.RegisterDB(sql.OpenDB(&fakeConnector{closeConnErr: errConn}))
	// Leave one idle driver connection for db.Close to shut down.
	require.NoError(t, db.PingContext(ctx))

	err := reg.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errConn)

	re, ok := AsReleaseError(err)
	require.True(t, ok)
	assert.Equal(t, CategoryConnection, re.Category)
	assert.Equal(t, "close database", re.Op)
}

func TestRegistry_SQLRowsCloseFailure(t *testing.T) {
	ctx := context.Background()
	reg, logs := newTestRegistry(t)
	errRows := errors.New("cursor close failed")
	var order []string

	db := sql.OpenDB(&fakeConnector{closeRowsErr: errRows})
	defer db.Close()

	Register(reg, &fakeResource{name: "outer", order: &order})
	rows, err := db.QueryContext(ctx, "SELECT n FROM numbers")
	require.NoError(t, err)
	reg.RegisterRows(rows)

	err = reg.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errRows)
	assert.ErrorIs(t, err, &ReleaseError{Category: CategoryCursor})
	assert.Contains(t, logs.String(), "unable to close rows")

	// Fail-fast: the resource registered before the rows is still pending.
	assert.Empty(t, order)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_SQLStatementFailure(t *testing.T) {
	ctx := context.Background()
	reg, logs := newTestRegistry(t)
	errStmt := errors.New("statement handle invalid")

	db := sql.OpenDB(&fakeConnector{closeStmtErr: errStmt})
	defer db.Close()

	conn := reg.RegisterConn(mustConn(t, db))
	stmt, err := conn.PrepareContext(ctx, "SELECT n FROM numbers")
	require.NoError(t, err)
	reg.RegisterStmt(stmt)

	err = reg.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errStmt)

	re, ok := AsReleaseError(err)
	require.True(t, ok)
	assert.Equal(t, CategoryStatement, re.Category)
	assert.Equal(t, "close statement", re.Op)
	assert.Contains(t, logs.String(), "unable to close statement")

	// Fail-fast: the connection below the statement is still pending.
	assert.Equal(t, 1, reg.Len())
	require.NoError(t, reg.Close())
	assert.ErrorIs(t, conn.PingContext(ctx), sql.ErrConnDone)
}

func TestRegistry_SQLRowsIterationErrorDoesNotStopTeardown(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)
	errIter := errors.New("network read failed")
	connector := &fakeConnector{iterErr: errIter}

	db := sql.OpenDB(connector)
	defer db.Close()

	conn := reg.RegisterConn(mustConn(t, db))
	rows, err := conn.QueryContext(ctx, "SELECT n FROM numbers")
	require.NoError(t, err)
	reg.RegisterRows(rows)

	assert.False(t, rows.Next())
	assert.ErrorIs(t, rows.Err(), errIter)

	reg.CloseQuietly()
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 1, connector.rowsCloses)
	assert.ErrorIs(t, conn.PingContext(ctx), sql.ErrConnDone)
	assert.Equal(t, 0, db.Stats().InUse)
}

func mustConn(t *testing.T, db *sql.DB) *sql.Conn {
	t.Helper()
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	return conn
}
