package db

import (
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Clients form a tree via parent_id; only non-individual types may be parents
CREATE TABLE clients (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'business',
    parent_id TEXT REFERENCES clients(id),
    email TEXT,
    notes TEXT,
    rate REAL NOT NULL DEFAULT 0,
    is_archived INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Billing rates: client price and internal cost per hour
CREATE TABLE billing_rates (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    rate REAL NOT NULL DEFAULT 0,
    cost REAL NOT NULL DEFAULT 0,
    is_default INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Per-client rate overrides, at most one per (client, base rate)
CREATE TABLE client_rate_overrides (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    base_rate_id TEXT NOT NULL REFERENCES billing_rates(id) ON DELETE CASCADE,
    override_type TEXT NOT NULL,
    value REAL NOT NULL,
    UNIQUE (client_id, base_rate_id)
);

-- Ticket workflow statuses
CREATE TABLE ticket_statuses (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    color TEXT,
    is_default INTEGER NOT NULL DEFAULT 0,
    is_closed INTEGER NOT NULL DEFAULT 0,
    sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE tickets (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    client_id TEXT REFERENCES clients(id),
    status_id TEXT NOT NULL REFERENCES ticket_statuses(id),
    notes TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Flat-amount billable items attached to tickets
CREATE TABLE ticket_addons (
    id TEXT PRIMARY KEY,
    ticket_id TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
    description TEXT NOT NULL,
    amount REAL NOT NULL DEFAULT 0,
    cost REAL NOT NULL DEFAULT 0,
    billed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Invoices with denormalized totals kept in sync with their items
CREATE TABLE invoices (
    id TEXT PRIMARY KEY,
    invoice_number TEXT NOT NULL UNIQUE,
    client_id TEXT NOT NULL REFERENCES clients(id),
    date TEXT NOT NULL,
    total_minutes INTEGER NOT NULL DEFAULT 0,
    total_amount REAL NOT NULL DEFAULT 0,
    total_cost REAL NOT NULL DEFAULT 0,
    total_profit REAL NOT NULL DEFAULT 0,
    sent INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE invoice_addons (
    id TEXT PRIMARY KEY,
    invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
    description TEXT NOT NULL,
    amount REAL NOT NULL DEFAULT 0,
    cost REAL NOT NULL DEFAULT 0,
    quantity INTEGER NOT NULL DEFAULT 1,
    profit REAL NOT NULL DEFAULT 0,
    ticket_addon_id TEXT REFERENCES ticket_addons(id)
);

-- Time entries; minutes is canonical, billed/locked tie entries to invoices
CREATE TABLE time_entries (
    id TEXT PRIMARY KEY,
    description TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT,
    minutes INTEGER NOT NULL,
    date TEXT NOT NULL,
    client_id TEXT REFERENCES clients(id),
    ticket_id TEXT REFERENCES tickets(id),
    billing_rate_id TEXT REFERENCES billing_rates(id),
    billable INTEGER NOT NULL DEFAULT 1,
    billed INTEGER NOT NULL DEFAULT 0,
    locked INTEGER NOT NULL DEFAULT 0,
    invoice_id TEXT REFERENCES invoices(id),
    billed_rate REAL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Typed key/value settings
CREATE TABLE settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'general',
    label TEXT,
    description TEXT,
    type TEXT NOT NULL DEFAULT 'string'
);

-- Active timer (singleton for crash recovery)
CREATE TABLE active_timer (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    client_id TEXT REFERENCES clients(id),
    ticket_id TEXT REFERENCES tickets(id),
    description TEXT,
    start_time TEXT NOT NULL,
    paused_at TEXT,
    total_paused_seconds INTEGER NOT NULL DEFAULT 0
);

-- Indexes
CREATE INDEX idx_clients_parent ON clients(parent_id);
CREATE INDEX idx_overrides_client ON client_rate_overrides(client_id);
CREATE INDEX idx_entries_client ON time_entries(client_id);
CREATE INDEX idx_entries_date ON time_entries(date);
CREATE INDEX idx_entries_unbilled ON time_entries(client_id, billed) WHERE billed = 0;
CREATE INDEX idx_tickets_client ON tickets(client_id);
CREATE INDEX idx_addons_invoice ON invoice_addons(invoice_id);
CREATE INDEX idx_invoices_client ON invoices(client_id);

-- Seed settings
INSERT INTO settings (key, value, category, label, description, type) VALUES
    ('invoice_prefix', 'INV', 'invoice', 'Invoice Number Prefix', 'Prefix used for automatic invoice numbering', 'string'),
    ('next_invoice_number', '1001', 'invoice', 'Next Invoice Number', 'Next number to be used for automatic invoice numbering', 'number'),
    ('default_hourly_cost', '50', 'billing', 'Default Hourly Cost', 'Internal hourly cost rate used for profit calculations', 'number'),
    ('company_name', '', 'company', 'Company Name', 'Your company name as shown on invoices', 'string'),
    ('company_address', '', 'company', 'Company Address', 'Your company address as shown on invoices', 'string'),
    ('company_email', '', 'company', 'Company Email', 'Your company email as shown on invoices', 'string'),
    ('time_entry_format', 'minutes', 'time', 'Time Entry Format', 'Format for tracking time (minutes or hh:mm)', 'string');

-- Seed ticket statuses
INSERT INTO ticket_statuses (id, name, color, is_default, is_closed, sort_order) VALUES
    ('status-open', 'Open', '#22C55E', 1, 0, 0),
    ('status-in-progress', 'In Progress', '#3B82F6', 0, 0, 1),
    ('status-on-hold', 'On Hold', '#F59E0B', 0, 0, 2),
    ('status-waiting', 'Waiting for Client', '#8B5CF6', 0, 0, 3),
    ('status-review', 'Pending Review', '#EC4899', 0, 0, 4),
    ('status-closed', 'Closed', '#6B7280', 0, 1, 5);
`,
	},
}

// RunMigrations applies all pending database migrations
func (db *DB) RunMigrations() error {
	// Ensure schema_version table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Get current schema version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Apply pending migrations in a transaction
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		// Execute migration SQL
		if _, err := tx.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		// Record migration
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}
