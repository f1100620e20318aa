package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createUsersTable,
		createUserProfilesTable,
		createSchedulesTable,
		createAppointmentsTable,
		createMedicalRecordsTable,
		createPrescriptionsTable,
		createMedicalFilesTable,
		createAuditLogsTable,
		createNotificationsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createUsersIndexes,
		createSchedulesIndexes,
		createAppointmentsIndexes,
		createMedicalRecordsIndexes,
		createMedicalFilesIndexes,
		createAuditLogsIndexes,
		createNotificationsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			username VARCHAR(150) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(128) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'Patient',
			first_name VARCHAR(30) NOT NULL DEFAULT '',
			last_name VARCHAR(30) NOT NULL DEFAULT '',
			gender VARCHAR(10) NOT NULL DEFAULT '',
			phone VARCHAR(20) NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN DEFAULT TRUE,
			is_verified BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createUserProfilesTable = `
		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			insurance_number VARCHAR(50) NOT NULL DEFAULT '',
			insurance_company VARCHAR(100) NOT NULL DEFAULT '',
			blood_type VARCHAR(3) NOT NULL DEFAULT '',
			chronic_conditions TEXT NOT NULL DEFAULT '',
			license_number VARCHAR(50) NOT NULL DEFAULT '',
			specialty VARCHAR(50) NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			years_experience INTEGER NOT NULL DEFAULT 0,
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			verified BOOLEAN DEFAULT FALSE
		);`

	createSchedulesTable = `
		CREATE TABLE IF NOT EXISTS schedules (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			doctor_id UUID NOT NULL REFERENCES users(id),
			weekday INTEGER NOT NULL,
			start_time VARCHAR(5) NOT NULL,
			end_time VARCHAR(5) NOT NULL,
			location VARCHAR(100) NOT NULL DEFAULT '',
			is_active BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			doctor_id UUID NOT NULL REFERENCES users(id),
			patient_id UUID NOT NULL REFERENCES users(id),
			schedule_id UUID REFERENCES schedules(id),
			appointment_time TIMESTAMP WITH TIME ZONE NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'Pending',
			created_by UUID NOT NULL REFERENCES users(id),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			cancelled_at TIMESTAMP WITH TIME ZONE,
			notes TEXT NOT NULL DEFAULT ''
		);`

	createMedicalRecordsTable = `
		CREATE TABLE IF NOT EXISTS medical_records (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id UUID NOT NULL REFERENCES users(id),
			doctor_id UUID NOT NULL REFERENCES users(id),
			visit_reason TEXT NOT NULL DEFAULT '',
			diagnosis TEXT NOT NULL DEFAULT '',
			status VARCHAR(10) NOT NULL DEFAULT 'Open',
			is_sensitive BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createPrescriptionsTable = `
		CREATE TABLE IF NOT EXISTS prescriptions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			record_id UUID NOT NULL REFERENCES medical_records(id) ON DELETE CASCADE,
			medication VARCHAR(255) NOT NULL,
			dosage VARCHAR(100) NOT NULL DEFAULT '',
			instructions TEXT NOT NULL DEFAULT '',
			start_date TIMESTAMP WITH TIME ZONE NOT NULL,
			end_date TIMESTAMP WITH TIME ZONE NOT NULL,
			renewable BOOLEAN DEFAULT FALSE,
			status VARCHAR(20) NOT NULL DEFAULT 'Active',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createMedicalFilesTable = `
		CREATE TABLE IF NOT EXISTS medical_files (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			record_id UUID NOT NULL REFERENCES medical_records(id) ON DELETE CASCADE,
			uploader_id UUID NOT NULL REFERENCES users(id),
			file_name VARCHAR(255) NOT NULL,
			file_path VARCHAR(500) NOT NULL,
			file_type VARCHAR(50) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			size_bytes BIGINT NOT NULL,
			is_private BOOLEAN DEFAULT FALSE,
			uploaded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createAuditLogsTable = `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL REFERENCES users(id),
			action VARCHAR(255) NOT NULL,
			target VARCHAR(255) NOT NULL,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			ip_address INET,
			details TEXT NOT NULL DEFAULT ''
		);`

	createNotificationsTable = `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL REFERENCES users(id),
			type VARCHAR(20) NOT NULL,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			is_read BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

// SQL DDL statements for index creation
const (
	createUsersIndexes = `
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`

	createSchedulesIndexes = `
		CREATE INDEX IF NOT EXISTS idx_schedules_doctor_id ON schedules(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_schedules_weekday ON schedules(weekday);`

	createAppointmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_doctor_id ON appointments(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_patient_id ON appointments(patient_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status);
		CREATE INDEX IF NOT EXISTS idx_appointments_time ON appointments(appointment_time);`

	createMedicalRecordsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_medical_records_patient_id ON medical_records(patient_id);
		CREATE INDEX IF NOT EXISTS idx_medical_records_doctor_id ON medical_records(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_medical_records_status ON medical_records(status);`

	createMedicalFilesIndexes = `
		CREATE INDEX IF NOT EXISTS idx_medical_files_record_id ON medical_files(record_id);
		CREATE INDEX IF NOT EXISTS idx_medical_files_uploader_id ON medical_files(uploader_id);`

	createAuditLogsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);`

	createNotificationsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
		CREATE INDEX IF NOT EXISTS idx_notifications_is_read ON notifications(is_read);`
)
