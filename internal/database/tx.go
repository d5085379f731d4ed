package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tresesenta/pkg/apperr"

	"gorm.io/gorm"
)

const DefaultTxTimeout = 5 * time.Second

// TxManager runs units of work in one transaction bounded by a timeout.
// Any error returned by fn, or an expired deadline, rolls the whole unit back.
type TxManager struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewTxManager(db *gorm.DB, timeout time.Duration) *TxManager {
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	return &TxManager{db: db, timeout: timeout}
}

// DB returns the pool handle for reads outside a transaction.
func (m *TxManager) DB() *gorm.DB {
	return m.db
}

// WithTransaction executes fn inside a transaction. Inside fn only tx may
// be used; touching the pool handle would escape the unit of work.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	if apperr.IsTimeout(err) {
		return apperr.Persistence(apperr.CodeStorageTimeout, err)
	}
	return apperr.Persistence(apperr.CodeStorage, err)
}
