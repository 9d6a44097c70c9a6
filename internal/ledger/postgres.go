// File: internal/ledger/postgres.go
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/metrics"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db         *sql.DB
	config     *StoreConfig
	logger     *logrus.Logger
	migrations []*Migration

	metricsManager *metrics.Manager
}

// NewPostgresStore creates a new PostgreSQL ledger store
func NewPostgresStore(config *StoreConfig) *PostgresStore {
	return &PostgresStore{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetPostgresMigrations(),
	}
}

// SetMetricsManager attaches the metrics manager for database operation metrics
func (s *PostgresStore) SetMetricsManager(m *metrics.Manager) {
	s.metricsManager = m
}

// Connect establishes database connection
func (s *PostgresStore) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	s.db = db
	s.logger.Info("PostgreSQL ledger connected")

	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("PostgreSQL ledger connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	s.logger.Info("Starting ledger migrations")

	for _, migration := range s.migrations {
		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
	}

	s.logger.Info("Ledger migrations completed")
	return nil
}

// CreateProfile inserts a profile with children and one audit entry in a
// single transaction
func (s *PostgresStore) CreateProfile(ctx context.Context, input *models.ProfileInput) (string, error) {
	start := time.Now()

	profileID := input.ProfileID
	if profileID == "" {
		profileID = utils.NewProfileID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", utils.NewAppError(utils.ErrCodeDatabase, "Failed to begin transaction", err.Error())
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE profile_id = $1", profileID).Scan(&exists)
	if err != nil {
		return "", utils.NewAppError(utils.ErrCodeDatabase, "Failed to check profile existence", err.Error())
	}
	if exists > 0 {
		return "", utils.NewAppError(utils.ErrCodeDuplicate, "Profile already exists", profileID)
	}

	customJSON, err := json.Marshal(customOrEmpty(input.CustomFields))
	if err != nil {
		return "", utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal custom fields", err.Error())
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles
		(profile_id, company_name, location, timezone, phone, email, website,
		 address, hours, bulletin, pests_not_covered, holidays, custom_fields,
		 sync_status, sync_attempts, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, $15, $16)
	`,
		profileID, input.CompanyName, input.Location, input.Timezone, input.Phone,
		input.Email, input.Website, input.Address, input.Hours, input.Bulletin,
		input.PestsNotCovered, input.Holidays, string(customJSON),
		string(models.StatusPendingRemoteSync), now, now)
	if err != nil {
		return "", utils.NewAppError(utils.ErrCodeDatabase, "Failed to insert profile", err.Error())
	}

	for _, kind := range models.AllChildKinds {
		if err := s.insertChildrenTx(ctx, tx, profileID, kind, &input.Children); err != nil {
			return "", err
		}
	}

	if err := s.appendAuditTx(ctx, tx, &models.AuditEntry{
		Timestamp: now,
		ProfileID: profileID,
		Action:    models.ActionCreateProfile,
		Source:    models.StoreIntakeForm,
		Target:    models.StoreLedger,
		Status:    models.AuditSuccess,
		Detail: fmt.Sprintf("created with %d services, %d technicians, %d policies, %d service areas",
			len(input.Children.Services), len(input.Children.Technicians),
			len(input.Children.Policies), len(input.Children.ServiceAreas)),
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", utils.NewAppError(utils.ErrCodeDatabase, "Failed to commit transaction", err.Error())
	}

	s.recordOperation("insert", "profiles", start)
	return profileID, nil
}

// GetProfile retrieves a profile with all child collections; nil, nil when absent
func (s *PostgresStore) GetProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE profile_id = $1", profileID)

	profile, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get profile", err.Error())
	}

	if err := s.loadChildren(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// ListProfiles retrieves all profiles in ledger row order, without children
func (s *PostgresStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles ORDER BY created_at ASC, profile_id ASC")
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query profiles", err.Error())
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan profile", err.Error())
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// UpdateProfile merges only the given fields, advances last_updated and
// appends one audit entry
func (s *PostgresStore) UpdateProfile(ctx context.Context, profileID string, update *models.ProfileUpdate) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to begin transaction", err.Error())
	}
	defer tx.Rollback()

	var prev time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT last_updated FROM profiles WHERE profile_id = $1 FOR UPDATE", profileID).Scan(&prev)
	if err != nil {
		if err == sql.ErrNoRows {
			return utils.NewAppError(utils.ErrCodeNotFound, "Profile not found", profileID)
		}
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to read profile", err.Error())
	}

	now := time.Now().UTC()
	if now.Before(prev) {
		now = prev
	}

	setClauses := []string{"last_updated = $1"}
	args := []interface{}{now}
	argIndex := 2

	for column, value := range updateColumns(update) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if update.CustomFields != nil {
		customJSON, err := json.Marshal(update.CustomFields)
		if err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal custom fields", err.Error())
		}
		setClauses = append(setClauses, fmt.Sprintf("custom_fields = $%d", argIndex))
		args = append(args, string(customJSON))
		argIndex++
	}

	query := "UPDATE profiles SET " + joinClauses(setClauses) +
		fmt.Sprintf(" WHERE profile_id = $%d", argIndex)
	args = append(args, profileID)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to update profile", err.Error())
	}

	if err := s.appendAuditTx(ctx, tx, &models.AuditEntry{
		Timestamp: now,
		ProfileID: profileID,
		Action:    models.ActionUpdateProfile,
		Source:    models.StoreSyncEngine,
		Target:    models.StoreLedger,
		Status:    models.AuditSuccess,
		Detail:    fmt.Sprintf("merged %d fields", len(setClauses)-1),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to commit transaction", err.Error())
	}

	s.recordOperation("update", "profiles", start)
	return nil
}

// SetSyncStatus writes the sync control fields without touching last_updated
func (s *PostgresStore) SetSyncStatus(ctx context.Context, profileID string, status models.SyncStatus, attempts int, lastPushAt *time.Time) error {
	if !status.Valid() {
		return utils.NewAppError(utils.ErrCodeValidation, "Invalid sync status", string(status))
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE profiles SET sync_status = $1, sync_attempts = $2, last_push_at = $3 WHERE profile_id = $4",
		string(status), attempts, lastPushAt, profileID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to set sync status", err.Error())
	}

	return requireRowAffected(result, profileID)
}

// SetRemoteRef records the remote content store reference for a profile
func (s *PostgresStore) SetRemoteRef(ctx context.Context, profileID, remoteRef, remoteURL string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE profiles SET remote_ref = $1, remote_url = $2 WHERE profile_id = $3",
		remoteRef, remoteURL, profileID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to set remote ref", err.Error())
	}

	return requireRowAffected(result, profileID)
}

// ReplaceChildren is a full delete-then-insert for one child kind
func (s *PostgresStore) ReplaceChildren(ctx context.Context, profileID string, kind models.ChildKind, set *models.ChildSet) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to begin transaction", err.Error())
	}
	defer tx.Rollback()

	if err := s.replaceChildrenTx(ctx, tx, profileID, kind, set); err != nil {
		return err
	}

	if err := s.appendAuditTx(ctx, tx, &models.AuditEntry{
		Timestamp: time.Now().UTC(),
		ProfileID: profileID,
		Action:    models.ActionReplaceChildren,
		Source:    models.StoreSyncEngine,
		Target:    models.StoreLedger,
		Status:    models.AuditSuccess,
		Detail:    fmt.Sprintf("replaced %s with %d rows", kind, set.Count(kind)),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to commit transaction", err.Error())
	}

	s.recordOperation("replace", string(kind), start)
	return nil
}

// ReplaceAllChildren replaces all four child kinds in one transaction
func (s *PostgresStore) ReplaceAllChildren(ctx context.Context, profileID string, set *models.ChildSet) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to begin transaction", err.Error())
	}
	defer tx.Rollback()

	for _, kind := range models.AllChildKinds {
		if err := s.replaceChildrenTx(ctx, tx, profileID, kind, set); err != nil {
			return err
		}
	}

	if err := s.appendAuditTx(ctx, tx, &models.AuditEntry{
		Timestamp: time.Now().UTC(),
		ProfileID: profileID,
		Action:    models.ActionReplaceChildren,
		Source:    models.StoreSyncEngine,
		Target:    models.StoreLedger,
		Status:    models.AuditSuccess,
		Detail:    fmt.Sprintf("replaced all child kinds with %d rows", set.Total()),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to commit transaction", err.Error())
	}

	s.recordOperation("replace", "children", start)
	return nil
}

// AppendAudit appends one audit entry
func (s *PostgresStore) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (timestamp, profile_id, action, source, target, status, detail, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.Timestamp, entry.ProfileID, entry.Action, entry.Source, entry.Target,
		entry.Status, entry.Detail, entry.ErrorMessage)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to append audit entry", err.Error())
	}
	return nil
}

// GetAuditEntries retrieves audit entries based on filter, newest first
func (s *PostgresStore) GetAuditEntries(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, timestamp, profile_id, action, source, target, status, detail, error_message
		FROM audit_log WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if filter.ProfileID != nil {
		query += fmt.Sprintf(" AND profile_id = $%d", argIndex)
		args = append(args, *filter.ProfileID)
		argIndex++
	}
	if filter.Action != nil {
		query += fmt.Sprintf(" AND action = $%d", argIndex)
		args = append(args, *filter.Action)
		argIndex++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	query += " ORDER BY id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query audit entries", err.Error())
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.ProfileID, &entry.Action,
			&entry.Source, &entry.Target, &entry.Status, &entry.Detail, &entry.ErrorMessage); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan audit entry", err.Error())
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// GetSyncState reads a sync bookkeeping value; empty string when absent
func (s *PostgresStore) GetSyncState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM sync_state WHERE key = $1", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", utils.NewAppError(utils.ErrCodeDatabase, "Failed to get sync state", err.Error())
	}
	return value, nil
}

// SetSyncState upserts a sync bookkeeping value
func (s *PostgresStore) SetSyncState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to set sync state", err.Error())
	}
	return nil
}

// AcquireLease takes the per-profile advisory lease if it is free or expired
func (s *PostgresStore) AcquireLease(ctx context.Context, profileID, holder string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_leases (profile_id, holder, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (profile_id) DO UPDATE SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
		WHERE sync_leases.expires_at <= $4
	`, profileID, holder, now.Add(ttl), now)
	if err != nil {
		return false, utils.NewAppError(utils.ErrCodeDatabase, "Failed to acquire lease", err.Error())
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get rows affected", err.Error())
	}

	return affected > 0, nil
}

// ReleaseLease releases the lease if still held by holder
func (s *PostgresStore) ReleaseLease(ctx context.Context, profileID, holder string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sync_leases WHERE profile_id = $1 AND holder = $2", profileID, holder)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to release lease", err.Error())
	}
	return nil
}

// GetStats returns ledger statistics
func (s *PostgresStore) GetStats(ctx context.Context) (*LedgerStats, error) {
	stats := &LedgerStats{ProfilesByStatus: map[string]int64{}}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&stats.TotalProfiles); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count profiles", err.Error())
	}

	rows, err := s.db.QueryContext(ctx, "SELECT sync_status, COUNT(*) FROM profiles GROUP BY sync_status")
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count profiles by status", err.Error())
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan status count", err.Error())
		}
		stats.ProfilesByStatus[status] = count
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&stats.TotalAuditEntries); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count audit entries", err.Error())
	}

	if raw, err := s.GetSyncState(ctx, StateLastSyncTime); err == nil && raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			stats.LastSyncTime = &t
		}
	}

	return stats, nil
}

// GetHealth returns store health
func (s *PostgresStore) GetHealth() *LedgerHealth {
	return &LedgerHealth{
		StoreType: "PostgreSQL",
		Healthy:   s.Ping() == nil,
		LastPing:  time.Now(),
	}
}

func (s *PostgresStore) loadChildren(ctx context.Context, profile *models.Profile) error {
	var err error
	if profile.Services, err = s.getServices(ctx, profile.ProfileID); err != nil {
		return err
	}
	if profile.Technicians, err = s.getTechnicians(ctx, profile.ProfileID); err != nil {
		return err
	}
	if profile.Policies, err = s.getPolicies(ctx, profile.ProfileID); err != nil {
		return err
	}
	if profile.ServiceAreas, err = s.getServiceAreas(ctx, profile.ProfileID); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) getServices(ctx context.Context, profileID string) ([]models.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, name, type, frequency, description, pests_covered, contract,
		       guarantee, duration, product_type, billing_frequency, agent_note, pricing_tiers
		FROM services WHERE profile_id = $1 ORDER BY id ASC
	`, profileID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query services", err.Error())
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		var tiersJSON []byte
		if err := rows.Scan(&svc.ProfileID, &svc.Name, &svc.Type, &svc.Frequency, &svc.Description,
			&svc.PestsCovered, &svc.Contract, &svc.Guarantee, &svc.Duration, &svc.ProductType,
			&svc.BillingFrequency, &svc.AgentNote, &tiersJSON); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan service", err.Error())
		}
		if err := json.Unmarshal(tiersJSON, &svc.PricingTiers); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to unmarshal pricing tiers", err.Error())
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (s *PostgresStore) getTechnicians(ctx context.Context, profileID string) ([]models.Technician, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, name, company, role, phone, schedule, max_stops, does_not_service, notes, zip_codes
		FROM technicians WHERE profile_id = $1 ORDER BY id ASC
	`, profileID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query technicians", err.Error())
	}
	defer rows.Close()

	var technicians []models.Technician
	for rows.Next() {
		var tech models.Technician
		var zipsJSON []byte
		if err := rows.Scan(&tech.ProfileID, &tech.Name, &tech.Company, &tech.Role, &tech.Phone,
			&tech.Schedule, &tech.MaxStops, &tech.DoesNotService, &tech.Notes, &zipsJSON); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan technician", err.Error())
		}
		if err := json.Unmarshal(zipsJSON, &tech.ZipCodes); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to unmarshal zip codes", err.Error())
		}
		technicians = append(technicians, tech)
	}
	return technicians, rows.Err()
}

func (s *PostgresStore) getPolicies(ctx context.Context, profileID string) ([]models.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, category, type, title, description, options, default_value, sort_order
		FROM policies WHERE profile_id = $1 ORDER BY sort_order ASC, id ASC
	`, profileID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query policies", err.Error())
	}
	defer rows.Close()

	var policies []models.Policy
	for rows.Next() {
		var pol models.Policy
		var optionsJSON []byte
		if err := rows.Scan(&pol.ProfileID, &pol.Category, &pol.Type, &pol.Title, &pol.Description,
			&optionsJSON, &pol.DefaultValue, &pol.SortOrder); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan policy", err.Error())
		}
		if err := json.Unmarshal(optionsJSON, &pol.Options); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to unmarshal policy options", err.Error())
		}
		policies = append(policies, pol)
	}
	return policies, rows.Err()
}

func (s *PostgresStore) getServiceAreas(ctx context.Context, profileID string) ([]models.ServiceArea, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, zip, city, state, branch, territory, in_service
		FROM service_areas WHERE profile_id = $1 ORDER BY id ASC
	`, profileID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query service areas", err.Error())
	}
	defer rows.Close()

	var areas []models.ServiceArea
	for rows.Next() {
		var area models.ServiceArea
		if err := rows.Scan(&area.ProfileID, &area.Zip, &area.City, &area.State,
			&area.Branch, &area.Territory, &area.InService); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan service area", err.Error())
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

func (s *PostgresStore) replaceChildrenTx(ctx context.Context, tx *sql.Tx, profileID string, kind models.ChildKind, set *models.ChildSet) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE profile_id = $1", kind), profileID); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase,
			fmt.Sprintf("Failed to delete %s", kind), err.Error())
	}
	return s.insertChildrenTx(ctx, tx, profileID, kind, set)
}

func (s *PostgresStore) insertChildrenTx(ctx context.Context, tx *sql.Tx, profileID string, kind models.ChildKind, set *models.ChildSet) error {
	switch kind {
	case models.ChildServices:
		for _, svc := range set.Services {
			tiersJSON, err := json.Marshal(tiersOrEmpty(svc.PricingTiers))
			if err != nil {
				return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal pricing tiers", err.Error())
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO services
				(profile_id, name, type, frequency, description, pests_covered, contract,
				 guarantee, duration, product_type, billing_frequency, agent_note, pricing_tiers)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			`, profileID, svc.Name, svc.Type, svc.Frequency, svc.Description, svc.PestsCovered,
				svc.Contract, svc.Guarantee, svc.Duration, svc.ProductType, svc.BillingFrequency,
				svc.AgentNote, string(tiersJSON)); err != nil {
				return utils.NewAppError(utils.ErrCodeDatabase, "Failed to insert service", err.Error())
			}
		}
	case models.ChildTechnicians:
		for _, tech := range set.Technicians {
			zipsJSON, err := json.Marshal(stringsOrEmpty(tech.ZipCodes))
			if err != nil {
				return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal zip codes", err.Error())
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO technicians
				(profile_id, name, company, role, phone, schedule, max_stops, does_not_service, notes, zip_codes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, profileID, tech.Name, tech.Company, tech.Role, tech.Phone, tech.Schedule,
				tech.MaxStops, tech.DoesNotService, tech.Notes, string(zipsJSON)); err != nil {
				return utils.NewAppError(utils.ErrCodeDatabase, "Failed to insert technician", err.Error())
			}
		}
	case models.ChildPolicies:
		for _, pol := range set.Policies {
			optionsJSON, err := json.Marshal(stringsOrEmpty(pol.Options))
			if err != nil {
				return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal policy options", err.Error())
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO policies
				(profile_id, category, type, title, description, options, default_value, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, profileID, pol.Category, pol.Type, pol.Title, pol.Description,
				string(optionsJSON), pol.DefaultValue, pol.SortOrder); err != nil {
				return utils.NewAppError(utils.ErrCodeDatabase, "Failed to insert policy", err.Error())
			}
		}
	case models.ChildServiceAreas:
		for _, area := range set.ServiceAreas {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO service_areas (profile_id, zip, city, state, branch, territory, in_service)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, profileID, area.Zip, area.City, area.State, area.Branch, area.Territory, area.InService); err != nil {
				return utils.NewAppError(utils.ErrCodeDatabase, "Failed to insert service area", err.Error())
			}
		}
	default:
		return utils.NewAppError(utils.ErrCodeValidation, "Unknown child kind", string(kind))
	}
	return nil
}

func (s *PostgresStore) appendAuditTx(ctx context.Context, tx *sql.Tx, entry *models.AuditEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (timestamp, profile_id, action, source, target, status, detail, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.Timestamp, entry.ProfileID, entry.Action, entry.Source, entry.Target,
		entry.Status, entry.Detail, entry.ErrorMessage)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to append audit entry", err.Error())
	}
	return nil
}

func (s *PostgresStore) recordOperation(operation, table string, start time.Time) {
	if s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().RecordDatabaseOperation(
			operation, table, "success", time.Since(start))
	}
}
