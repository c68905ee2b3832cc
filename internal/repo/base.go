package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM handle shared by the domain repositories.
type Base struct {
	conn *gorm.DB
}

// NewBase wraps a GORM connection for embedding in a repository.
func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB binds the connection to the caller's context so cancellation
// propagates into queries.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}
