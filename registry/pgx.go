package registry

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxCloser is implemented by *pgx.Conn and *pgconn.PgConn.
type PgxCloser interface {
	Close(ctx context.Context) error
}

// PgxDeallocator is implemented by *pgx.Conn.
type PgxDeallocator interface {
	Deallocate(ctx context.Context, name string) error
}

var (
	_ PgxCloser      = (*pgx.Conn)(nil)
	_ PgxCloser      = (*pgconn.PgConn)(nil)
	_ PgxDeallocator = (*pgx.Conn)(nil)
)

// RegisterPgxConn pushes conn.Close(ctx) and returns conn unchanged. ctx is
// retained and used when the connection is released.
func RegisterPgxConn[C PgxCloser](r *Registry, ctx context.Context, conn C) C {
	r.RegisterFunc(CategoryConnection, "pgx connection", func() error {
		return conn.Close(ctx)
	})
	return conn
}

// RegisterPgxStatement pushes the deallocation of the prepared statement sd
// on conn and returns sd unchanged.
func RegisterPgxStatement[C PgxDeallocator](r *Registry, ctx context.Context, conn C, sd *pgconn.StatementDescription) *pgconn.StatementDescription {
	r.RegisterFunc(CategoryStatement, "pgx statement", func() error {
		return conn.Deallocate(ctx, sd.Name)
	})
	return sd
}

// RegisterPgxRows pushes rows.Close and returns rows unchanged. pgx reports
// close failures only through rows.Err, which becomes the release error, so
// a query or iteration error left on rows also fails the release and stops
// Close before older resources.
func (r *Registry) RegisterPgxRows(rows pgx.Rows) pgx.Rows {
	r.RegisterFunc(CategoryCursor, "pgx rows", func() error {
		rows.Close()
		return rows.Err()
	})
	return rows
}
