package repository

import (
	"context"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
)

// ProfileRepository handles researcher profile persistence. Profiles are
// keyed by the bibliographic source PID, which is stable across refreshes.
type ProfileRepository interface {
	// Upsert inserts a new profile or updates an existing one matched by PID.
	// On conflict the stored publications are fully replaced, while a
	// non-empty stored description is preserved when the incoming one is
	// blank. Returns the persisted profile with database-generated fields
	// (ID, CreatedAt, UpdatedAt) populated.
	// Returns domain.ErrInvalidInput if the profile has no PID.
	Upsert(ctx context.Context, profile *domain.ResearcherProfile) (*domain.ResearcherProfile, error)

	// GetByPID retrieves a profile by its bibliographic source PID.
	// Returns domain.ErrNotFound if no matching profile exists.
	GetByPID(ctx context.Context, pid string) (*domain.ResearcherProfile, error)

	// List retrieves profiles matching the filter criteria, newest first.
	// Returns the matching profiles and the total count for pagination.
	List(ctx context.Context, filter ProfileFilter) ([]*domain.ResearcherProfile, int64, error)

	// Delete removes a profile by PID.
	// Returns domain.ErrNotFound if no matching profile exists.
	Delete(ctx context.Context, pid string) error
}

// ProfileFilter specifies criteria for listing profiles.
type ProfileFilter struct {
	// Name filters by case-insensitive substring match on the researcher
	// name (optional).
	Name string

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *ProfileFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
