package registry

import (
	"database/sql"
)

// RegisterDB pushes db.Close and returns db unchanged.
func (r *Registry) RegisterDB(db *sql.DB) *sql.DB {
	r.RegisterFunc(CategoryConnection, "database", func() error {
		return db.Close()
	})
	return db
}

// RegisterConn pushes conn.Close and returns conn unchanged.
func (r *Registry) RegisterConn(conn *sql.Conn) *sql.Conn {
	r.RegisterFunc(CategoryConnection, "connection", func() error {
		return conn.Close()
	})
	return conn
}

// RegisterStmt pushes stmt.Close and returns stmt unchanged.
func (r *Registry) RegisterStmt(stmt *sql.Stmt) *sql.Stmt {
	r.RegisterFunc(CategoryStatement, "statement", func() error {
		return stmt.Close()
	})
	return stmt
}

// RegisterRows pushes rows.Close and returns rows unchanged. Iteration
// errors stay with rows.Err and do not fail the release.
func (r *Registry) RegisterRows(rows *sql.Rows) *sql.Rows {
	r.RegisterFunc(CategoryCursor, "rows", func() error {
		return rows.Close()
	})
	return rows
}
