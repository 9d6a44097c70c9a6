package ledger

import (
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version     string    `db:"version"`
	Description string    `db:"description"`
	SQL         string    `db:"sql"`
	AppliedAt   time.Time `db:"applied_at"`
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create profiles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS profiles (
					profile_id TEXT PRIMARY KEY,
					company_name TEXT NOT NULL,
					location TEXT NOT NULL DEFAULT '',
					timezone TEXT NOT NULL DEFAULT '',
					phone TEXT NOT NULL DEFAULT '',
					email TEXT NOT NULL DEFAULT '',
					website TEXT NOT NULL DEFAULT '',
					address TEXT NOT NULL DEFAULT '',
					hours TEXT NOT NULL DEFAULT '',
					bulletin TEXT NOT NULL DEFAULT '',
					pests_not_covered TEXT NOT NULL DEFAULT '',
					holidays TEXT NOT NULL DEFAULT '',
					custom_fields TEXT NOT NULL DEFAULT '{}', -- JSON
					client_document_ref TEXT NOT NULL DEFAULT '',
					edit_url TEXT NOT NULL DEFAULT '',
					remote_ref TEXT NOT NULL DEFAULT '',
					remote_url TEXT NOT NULL DEFAULT '',
					sync_status TEXT NOT NULL DEFAULT 'pending_remote_sync',
					sync_attempts INTEGER NOT NULL DEFAULT 0,
					last_push_at DATETIME,
					last_updated DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_profiles_sync_status ON profiles(sync_status);
				CREATE INDEX IF NOT EXISTS idx_profiles_last_updated ON profiles(last_updated);
			`,
		},
		{
			Version:     "002",
			Description: "Create child tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS services (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					profile_id TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL DEFAULT '',
					frequency TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					pests_covered TEXT NOT NULL DEFAULT '',
					contract TEXT NOT NULL DEFAULT '',
					guarantee TEXT NOT NULL DEFAULT '',
					duration TEXT NOT NULL DEFAULT '',
					product_type TEXT NOT NULL DEFAULT '',
					billing_frequency TEXT NOT NULL DEFAULT '',
					agent_note TEXT NOT NULL DEFAULT '',
					pricing_tiers TEXT NOT NULL DEFAULT '[]', -- JSON
					FOREIGN KEY (profile_id) REFERENCES profiles (profile_id)
				);

				CREATE TABLE IF NOT EXISTS technicians (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					profile_id TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					company TEXT NOT NULL DEFAULT '',
					role TEXT NOT NULL DEFAULT '',
					phone TEXT NOT NULL DEFAULT '',
					schedule TEXT NOT NULL DEFAULT '',
					max_stops TEXT NOT NULL DEFAULT '',
					does_not_service TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					zip_codes TEXT NOT NULL DEFAULT '[]', -- JSON
					FOREIGN KEY (profile_id) REFERENCES profiles (profile_id)
				);

				CREATE TABLE IF NOT EXISTS policies (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					profile_id TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL DEFAULT '',
					title TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					options TEXT NOT NULL DEFAULT '[]', -- JSON
					default_value TEXT NOT NULL DEFAULT '',
					sort_order INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (profile_id) REFERENCES profiles (profile_id)
				);

				CREATE TABLE IF NOT EXISTS service_areas (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					profile_id TEXT NOT NULL,
					zip TEXT NOT NULL DEFAULT '',
					city TEXT NOT NULL DEFAULT '',
					state TEXT NOT NULL DEFAULT '',
					branch TEXT NOT NULL DEFAULT '',
					territory TEXT NOT NULL DEFAULT '',
					in_service BOOLEAN NOT NULL DEFAULT TRUE,
					FOREIGN KEY (profile_id) REFERENCES profiles (profile_id)
				);

				CREATE INDEX IF NOT EXISTS idx_services_profile ON services(profile_id);
				CREATE INDEX IF NOT EXISTS idx_technicians_profile ON technicians(profile_id);
				CREATE INDEX IF NOT EXISTS idx_policies_profile ON policies(profile_id);
				CREATE INDEX IF NOT EXISTS idx_service_areas_profile ON service_areas(profile_id);
			`,
		},
		{
			Version:     "003",
			Description: "Create audit_log table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_log (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp DATETIME NOT NULL,
					profile_id TEXT NOT NULL,
					action TEXT NOT NULL,
					source TEXT NOT NULL,
					target TEXT NOT NULL,
					status TEXT NOT NULL,
					detail TEXT NOT NULL DEFAULT '',
					error_message TEXT NOT NULL DEFAULT ''
				);

				CREATE INDEX IF NOT EXISTS idx_audit_profile ON audit_log(profile_id);
				CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
				CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);
			`,
		},
		{
			Version:     "004",
			Description: "Create sync_state table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sync_state (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			Version:     "005",
			Description: "Create sync_leases table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sync_leases (
					profile_id TEXT PRIMARY KEY,
					holder TEXT NOT NULL,
					expires_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_leases_expires ON sync_leases(expires_at);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create profiles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS profiles (
					profile_id TEXT PRIMARY KEY,
					company_name TEXT NOT NULL,
					location TEXT NOT NULL DEFAULT '',
					timezone TEXT NOT NULL DEFAULT '',
					phone TEXT NOT NULL DEFAULT '',
					email TEXT NOT NULL DEFAULT '',
					website TEXT NOT NULL DEFAULT '',
					address TEXT NOT NULL DEFAULT '',
					hours TEXT NOT NULL DEFAULT '',
					bulletin TEXT NOT NULL DEFAULT '',
					pests_not_covered TEXT NOT NULL DEFAULT '',
					holidays TEXT NOT NULL DEFAULT '',
					custom_fields JSONB NOT NULL DEFAULT '{}',
					client_document_ref TEXT NOT NULL DEFAULT '',
					edit_url TEXT NOT NULL DEFAULT '',
					remote_ref TEXT NOT NULL DEFAULT '',
					remote_url TEXT NOT NULL DEFAULT '',
					sync_status TEXT NOT NULL DEFAULT 'pending_remote_sync',
					sync_attempts INTEGER NOT NULL DEFAULT 0,
					last_push_at TIMESTAMP WITH TIME ZONE,
					last_updated TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_profiles_sync_status ON profiles(sync_status);
				CREATE INDEX IF NOT EXISTS idx_profiles_last_updated ON profiles(last_updated);
			`,
		},
		{
			Version:     "002",
			Description: "Create child tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS services (
					id BIGSERIAL PRIMARY KEY,
					profile_id TEXT NOT NULL REFERENCES profiles (profile_id),
					name TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL DEFAULT '',
					frequency TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					pests_covered TEXT NOT NULL DEFAULT '',
					contract TEXT NOT NULL DEFAULT '',
					guarantee TEXT NOT NULL DEFAULT '',
					duration TEXT NOT NULL DEFAULT '',
					product_type TEXT NOT NULL DEFAULT '',
					billing_frequency TEXT NOT NULL DEFAULT '',
					agent_note TEXT NOT NULL DEFAULT '',
					pricing_tiers JSONB NOT NULL DEFAULT '[]'
				);

				CREATE TABLE IF NOT EXISTS technicians (
					id BIGSERIAL PRIMARY KEY,
					profile_id TEXT NOT NULL REFERENCES profiles (profile_id),
					name TEXT NOT NULL DEFAULT '',
					company TEXT NOT NULL DEFAULT '',
					role TEXT NOT NULL DEFAULT '',
					phone TEXT NOT NULL DEFAULT '',
					schedule TEXT NOT NULL DEFAULT '',
					max_stops TEXT NOT NULL DEFAULT '',
					does_not_service TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					zip_codes JSONB NOT NULL DEFAULT '[]'
				);

				CREATE TABLE IF NOT EXISTS policies (
					id BIGSERIAL PRIMARY KEY,
					profile_id TEXT NOT NULL REFERENCES profiles (profile_id),
					category TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL DEFAULT '',
					title TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					options JSONB NOT NULL DEFAULT '[]',
					default_value TEXT NOT NULL DEFAULT '',
					sort_order INTEGER NOT NULL DEFAULT 0
				);

				CREATE TABLE IF NOT EXISTS service_areas (
					id BIGSERIAL PRIMARY KEY,
					profile_id TEXT NOT NULL REFERENCES profiles (profile_id),
					zip TEXT NOT NULL DEFAULT '',
					city TEXT NOT NULL DEFAULT '',
					state TEXT NOT NULL DEFAULT '',
					branch TEXT NOT NULL DEFAULT '',
					territory TEXT NOT NULL DEFAULT '',
					in_service BOOLEAN NOT NULL DEFAULT TRUE
				);

				CREATE INDEX IF NOT EXISTS idx_services_profile ON services(profile_id);
				CREATE INDEX IF NOT EXISTS idx_technicians_profile ON technicians(profile_id);
				CREATE INDEX IF NOT EXISTS idx_policies_profile ON policies(profile_id);
				CREATE INDEX IF NOT EXISTS idx_service_areas_profile ON service_areas(profile_id);
			`,
		},
		{
			Version:     "003",
			Description: "Create audit_log table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_log (
					id BIGSERIAL PRIMARY KEY,
					timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
					profile_id TEXT NOT NULL,
					action TEXT NOT NULL,
					source TEXT NOT NULL,
					target TEXT NOT NULL,
					status TEXT NOT NULL,
					detail TEXT NOT NULL DEFAULT '',
					error_message TEXT NOT NULL DEFAULT ''
				);

				CREATE INDEX IF NOT EXISTS idx_audit_profile ON audit_log(profile_id);
				CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
				CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);
			`,
		},
		{
			Version:     "004",
			Description: "Create sync_state table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sync_state (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);
			`,
		},
		{
			Version:     "005",
			Description: "Create sync_leases table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sync_leases (
					profile_id TEXT PRIMARY KEY,
					holder TEXT NOT NULL,
					expires_at TIMESTAMP WITH TIME ZONE NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_leases_expires ON sync_leases(expires_at);
			`,
		},
	}
}
