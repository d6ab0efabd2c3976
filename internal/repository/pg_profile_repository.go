package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
)

// Compile-time interface verification.
var _ ProfileRepository = (*PgProfileRepository)(nil)

// PgProfileRepository is a PostgreSQL implementation of ProfileRepository.
type PgProfileRepository struct {
	db DBTX
}

// NewPgProfileRepository creates a new PostgreSQL profile repository.
func NewPgProfileRepository(db DBTX) *PgProfileRepository {
	return &PgProfileRepository{db: db}
}

// Upsert inserts a new profile or updates an existing one matched by PID.
// Publications are fully replaced, but abstracts already stored for a title
// survive a refresh that arrives without them, and a stored description is
// kept when the incoming profile has none.
func (r *PgProfileRepository) Upsert(ctx context.Context, profile *domain.ResearcherProfile) (*domain.ResearcherProfile, error) {
	if profile == nil {
		return nil, domain.NewValidationError("profile", "profile cannot be nil")
	}
	if profile.PID == "" {
		return nil, domain.NewValidationError("pid", "pid is required")
	}

	if err := r.carryOverAbstracts(ctx, profile); err != nil {
		return nil, err
	}

	affiliationsJSON, err := json.Marshal(profile.Affiliations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal affiliations: %w", err)
	}
	publicationsJSON, err := json.Marshal(profile.Publications)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal publications: %w", err)
	}

	now := time.Now().UTC()
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	query := `
		INSERT INTO researcher_profiles (
			id, pid, name, affiliations, description, source_url,
			publications, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (pid) DO UPDATE SET
			name = EXCLUDED.name,
			affiliations = EXCLUDED.affiliations,
			description = COALESCE(NULLIF(EXCLUDED.description, ''), researcher_profiles.description),
			source_url = COALESCE(NULLIF(EXCLUDED.source_url, ''), researcher_profiles.source_url),
			publications = EXCLUDED.publications,
			updated_at = NOW()
		RETURNING id, description, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		profile.ID,
		profile.PID,
		profile.Name,
		affiliationsJSON,
		profile.Description,
		profile.SourceURL,
		publicationsJSON,
		now,
		now,
	).Scan(&profile.ID, &profile.Description, &profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	return profile, nil
}

// carryOverAbstracts copies stored abstracts onto incoming publications that
// arrive without one, matched by normalized title. A profile that does not
// exist yet is left untouched.
func (r *PgProfileRepository) carryOverAbstracts(ctx context.Context, profile *domain.ResearcherProfile) error {
	missing := false
	for i := range profile.Publications {
		if profile.Publications[i].Abstract == "" {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}

	var storedJSON []byte
	err := r.db.QueryRow(ctx,
		`SELECT publications FROM researcher_profiles WHERE pid = $1`,
		profile.PID,
	).Scan(&storedJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to load stored publications: %w", err)
	}

	var stored []domain.Publication
	if err := json.Unmarshal(storedJSON, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal stored publications: %w", err)
	}

	abstracts := make(map[string]string, len(stored))
	for i := range stored {
		if stored[i].Abstract != "" {
			abstracts[domain.NormalizeTitle(stored[i].Title)] = stored[i].Abstract
		}
	}
	if len(abstracts) == 0 {
		return nil
	}

	for i := range profile.Publications {
		if profile.Publications[i].Abstract != "" {
			continue
		}
		if abstract, ok := abstracts[domain.NormalizeTitle(profile.Publications[i].Title)]; ok {
			profile.Publications[i].Abstract = abstract
		}
	}
	return nil
}

// GetByPID retrieves a profile by its bibliographic source PID.
func (r *PgProfileRepository) GetByPID(ctx context.Context, pid string) (*domain.ResearcherProfile, error) {
	if pid == "" {
		return nil, domain.NewValidationError("pid", "pid is required")
	}

	query := `
		SELECT id, pid, name, affiliations, description, source_url,
			publications, created_at, updated_at
		FROM researcher_profiles
		WHERE pid = $1`

	row := r.db.QueryRow(ctx, query, pid)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("profile", pid)
		}
		return nil, fmt.Errorf("failed to get profile by pid: %w", err)
	}

	return profile, nil
}

// List retrieves profiles matching the filter criteria, newest first.
func (r *PgProfileRepository) List(ctx context.Context, filter ProfileFilter) ([]*domain.ResearcherProfile, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Name+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM researcher_profiles %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT id, pid, name, affiliations, description, source_url,
			publications, created_at, updated_at
		FROM researcher_profiles
		%s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*domain.ResearcherProfile, 0, filter.Limit)
	for rows.Next() {
		profile, err := scanProfileFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, totalCount, nil
}

// Delete removes a profile by PID.
func (r *PgProfileRepository) Delete(ctx context.Context, pid string) error {
	if pid == "" {
		return domain.NewValidationError("pid", "pid is required")
	}

	result, err := r.db.Exec(ctx, `DELETE FROM researcher_profiles WHERE pid = $1`, pid)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("profile", pid)
	}

	return nil
}

// profileScanDest holds the destination pointers for scanning a profile row.
type profileScanDest struct {
	profile          domain.ResearcherProfile
	affiliationsJSON []byte
	publicationsJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *profileScanDest) destinations() []interface{} {
	return []interface{}{
		&d.profile.ID, &d.profile.PID, &d.profile.Name, &d.affiliationsJSON,
		&d.profile.Description, &d.profile.SourceURL, &d.publicationsJSON,
		&d.profile.CreatedAt, &d.profile.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *profileScanDest) finalize() (*domain.ResearcherProfile, error) {
	if len(d.affiliationsJSON) > 0 {
		if err := json.Unmarshal(d.affiliationsJSON, &d.profile.Affiliations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal affiliations: %w", err)
		}
	}

	if len(d.publicationsJSON) > 0 {
		if err := json.Unmarshal(d.publicationsJSON, &d.profile.Publications); err != nil {
			return nil, fmt.Errorf("failed to unmarshal publications: %w", err)
		}
	}

	return &d.profile, nil
}

// scanProfile scans a single row into a ResearcherProfile.
func scanProfile(row pgx.Row) (*domain.ResearcherProfile, error) {
	var dest profileScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanProfileFromRows scans the current row from pgx.Rows into a ResearcherProfile.
func scanProfileFromRows(rows pgx.Rows) (*domain.ResearcherProfile, error) {
	var dest profileScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
