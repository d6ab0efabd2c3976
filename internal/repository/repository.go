// Package repository provides data access interfaces and implementations
// for the researcher profile service.
//
// Repository implementations accept the DBTX interface so they work against
// both a connection pool and a transaction from database.DB.WithTransaction.
// All methods return domain-specific errors; database errors are wrapped with
// context using the %w verb.
package repository

import (
	"github.com/scholarmap/researcher-profile-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
