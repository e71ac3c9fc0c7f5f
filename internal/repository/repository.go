// Package repository wraps all gorm access. Every query on tenant-owned
// data takes the tenant id as an explicit argument and filters on it.
package repository

import (
	"errors"
	"fmt"

	"invoice-reconciliation-backend/internal/errs"

	"gorm.io/gorm"
)

// translate maps driver-level failures onto the service error taxonomy.
// Unique-constraint and not-found errors keep their gorm identity; anything
// else is treated as a transient store failure.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
}
