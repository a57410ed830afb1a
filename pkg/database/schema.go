package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for the laboratory
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	tables := []string{
		createUsersTable,
		createPatientsTable,
		createTestsTable,
		createOrdersTable,
		createResultsTable,
		createOrderCommentsTable,
		createArchiveEntriesTable,
		createAuditLogsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createPatientsIndexes,
		createOrdersIndexes,
		createResultsIndexes,
		createOrderCommentsIndexes,
		createArchiveEntriesIndexes,
		createAuditLogsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// SQL DDL statements for table creation
const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(100) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	// PII columns (title, name, contact, address) hold AES-GCM ciphertext,
	// base64 encoded. The pid is a human-facing sequential identifier; it
	// carries no uniqueness constraint because restore re-inserts archived
	// PIDs verbatim and the same snapshot may be restored more than once.
	// The sequence generator keeps newly issued PIDs distinct.
	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id BIGSERIAL PRIMARY KEY,
			title TEXT,
			pid VARCHAR(20),
			name TEXT NOT NULL,
			age INTEGER,
			gender VARCHAR(10),
			contact TEXT,
			address TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createTestsTable = `
		CREATE TABLE IF NOT EXISTS tests (
			id BIGSERIAL PRIMARY KEY,
			code VARCHAR(20) UNIQUE NOT NULL,
			name VARCHAR(200) NOT NULL,
			department VARCHAR(100),
			rate_inr DOUBLE PRECISION NOT NULL DEFAULT 0,
			template JSONB,
			notes TEXT
		);`

	createOrdersTable = `
		CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
			test_id BIGINT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
			order_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			status VARCHAR(20) NOT NULL DEFAULT 'Pending',
			referring_physician VARCHAR(200),
			payment_method VARCHAR(100),
			discount DOUBLE PRECISION NOT NULL DEFAULT 0,
			group_id UUID
		);`

	createResultsTable = `
		CREATE TABLE IF NOT EXISTS results (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
			result_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			results JSONB,
			notes TEXT
		);`

	createOrderCommentsTable = `
		CREATE TABLE IF NOT EXISTS order_comments (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			comment TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	// No foreign key from data back to live rows: the payload is the sole
	// source of truth for recovery.
	createArchiveEntriesTable = `
		CREATE TABLE IF NOT EXISTS archive_entries (
			id BIGSERIAL PRIMARY KEY,
			entity_type VARCHAR(50) NOT NULL,
			entity_id BIGINT NOT NULL,
			deleted_by BIGINT REFERENCES users(id),
			deleted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			data JSONB NOT NULL
		);`

	createAuditLogsTable = `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			action VARCHAR(100) NOT NULL,
			entity_id BIGINT NOT NULL,
			entity_type VARCHAR(50) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			details TEXT
		);`
)

// SQL DDL statements for index creation
const (
	createPatientsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_patients_pid ON patients(pid);
		CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients(created_at);`

	createOrdersIndexes = `
		CREATE INDEX IF NOT EXISTS idx_orders_patient_id ON orders(patient_id);
		CREATE INDEX IF NOT EXISTS idx_orders_test_id ON orders(test_id);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
		CREATE INDEX IF NOT EXISTS idx_orders_group_id ON orders(group_id);
		CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders(order_date);`

	createResultsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_results_order_id ON results(order_id);`

	createOrderCommentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_order_comments_order_id ON order_comments(order_id);`

	createArchiveEntriesIndexes = `
		CREATE INDEX IF NOT EXISTS idx_archive_entries_entity ON archive_entries(entity_type, entity_id);
		CREATE INDEX IF NOT EXISTS idx_archive_entries_deleted_at ON archive_entries(deleted_at);`

	createAuditLogsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id);`
)
