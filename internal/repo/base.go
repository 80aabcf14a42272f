package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is the shared foundation for the sale, earning, payment, publisher
// and cut repositories. Their WithTx variants swap the connection while the
// rest of the repository stays the same.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
