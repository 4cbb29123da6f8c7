package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// migration is one idempotent schema step.
type migration struct {
	name string
	stmt string
}

var migrations = []migration{
	{"create users", `CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('SUPERADMIN', 'ADMIN')),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"create refresh_tokens", `CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_at TIMESTAMPTZ,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT ''
	)`},
	{"create audit_logs", `CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		user_id UUID,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		resource_id TEXT,
		old_values JSONB,
		new_values JSONB,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"create student_code_seq", `CREATE SEQUENCE IF NOT EXISTS student_code_seq START 1`},
	{"create students", `CREATE TABLE IF NOT EXISTS students (
		id UUID PRIMARY KEY,
		code TEXT NOT NULL UNIQUE DEFAULT 'STU' || LPAD(nextval('student_code_seq')::TEXT, 3, '0'),
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		course TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('Active', 'Pending', 'Inactive')),
		fee_offered NUMERIC(14,2) NOT NULL CHECK (fee_offered > 0),
		down_payment NUMERIC(14,2) NOT NULL CHECK (down_payment >= 0),
		fees_paid NUMERIC(14,2) NOT NULL CHECK (fees_paid >= 0),
		joined_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"index students email", `CREATE UNIQUE INDEX IF NOT EXISTS students_email_lower_idx ON students (LOWER(email))`},
	{"create transactions", `CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		student_id UUID NOT NULL,
		student_name TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		type TEXT NOT NULL CHECK (type IN ('Credit', 'Debit', 'Refund')),
		date TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('Completed', 'Pending', 'Failed', 'Cancelled')),
		payment_mode TEXT NOT NULL CHECK (payment_mode IN ('Cash', 'Cheque', 'UPI', 'Online Transfer', 'Other')),
		recorded_by TEXT NOT NULL,
		receipt_number TEXT NOT NULL,
		previous_balance NUMERIC(14,2) NOT NULL,
		new_balance NUMERIC(14,2) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT transactions_receipt_number_key UNIQUE (receipt_number)
	)`},
	{"index transactions student", `CREATE INDEX IF NOT EXISTS transactions_student_date_idx ON transactions (student_id, date DESC)`},
	{"index transactions date", `CREATE INDEX IF NOT EXISTS transactions_date_idx ON transactions (date)`},
	{"index transactions status", `CREATE INDEX IF NOT EXISTS transactions_status_idx ON transactions (status)`},
	{"transactions guard function", `CREATE OR REPLACE FUNCTION transactions_guard() RETURNS TRIGGER AS $$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			RAISE EXCEPTION 'transactions are append-only';
		END IF;
		IF NEW.student_id IS DISTINCT FROM OLD.student_id
			OR NEW.student_name IS DISTINCT FROM OLD.student_name
			OR NEW.amount IS DISTINCT FROM OLD.amount
			OR NEW.type IS DISTINCT FROM OLD.type
			OR NEW.date IS DISTINCT FROM OLD.date
			OR NEW.payment_mode IS DISTINCT FROM OLD.payment_mode
			OR NEW.recorded_by IS DISTINCT FROM OLD.recorded_by
			OR NEW.receipt_number IS DISTINCT FROM OLD.receipt_number
			OR NEW.previous_balance IS DISTINCT FROM OLD.previous_balance
			OR NEW.new_balance IS DISTINCT FROM OLD.new_balance
			OR NEW.description IS DISTINCT FROM OLD.description THEN
			RAISE EXCEPTION 'transaction % has write-once fields', OLD.id;
		END IF;
		IF NEW.status IS DISTINCT FROM OLD.status
			AND NOT (OLD.status = 'Completed' AND NEW.status IN ('Failed', 'Cancelled')) THEN
			RAISE EXCEPTION 'transaction % cannot move from % to %', OLD.id, OLD.status, NEW.status;
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`},
	{"drop transactions guard trigger", `DROP TRIGGER IF EXISTS transactions_guard_trg ON transactions`},
	{"create transactions guard trigger", `CREATE TRIGGER transactions_guard_trg BEFORE UPDATE OR DELETE ON transactions
		FOR EACH ROW EXECUTE FUNCTION transactions_guard()`},
	{"students down payment guard function", `CREATE OR REPLACE FUNCTION students_down_payment_guard() RETURNS TRIGGER AS $$
	BEGIN
		IF NEW.down_payment IS DISTINCT FROM OLD.down_payment THEN
			RAISE EXCEPTION 'student % down payment is immutable', OLD.id;
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`},
	{"drop students down payment trigger", `DROP TRIGGER IF EXISTS students_down_payment_trg ON students`},
	{"create students down payment trigger", `CREATE TRIGGER students_down_payment_trg BEFORE UPDATE ON students
		FOR EACH ROW EXECUTE FUNCTION students_down_payment_guard()`},
	{"create receipt_counters", `CREATE TABLE IF NOT EXISTS receipt_counters (
		period TEXT PRIMARY KEY,
		last_value INTEGER NOT NULL CHECK (last_value > 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"create emi_plans", `CREATE TABLE IF NOT EXISTS emi_plans (
		id UUID PRIMARY KEY,
		student_id UUID NOT NULL UNIQUE REFERENCES students(id) ON DELETE CASCADE,
		total_amount NUMERIC(14,2) NOT NULL,
		down_payment NUMERIC(14,2) NOT NULL,
		remaining_amount NUMERIC(14,2) NOT NULL CHECK (remaining_amount > 0),
		number_of_installments INTEGER NOT NULL CHECK (number_of_installments BETWEEN 1 AND 24),
		frequency TEXT NOT NULL CHECK (frequency IN ('Weekly', 'Bi-Weekly', 'Monthly', 'Quarterly', 'Custom')),
		interval_days INTEGER,
		start_date TIMESTAMPTZ NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"create emi_installments", `CREATE TABLE IF NOT EXISTS emi_installments (
		plan_id UUID NOT NULL REFERENCES emi_plans(id) ON DELETE CASCADE,
		installment_number INTEGER NOT NULL CHECK (installment_number > 0),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		due_date TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (plan_id, installment_number)
	)`},
}

// Migrate applies the schema inside a single transaction. Every step is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrate tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, m := range migrations {
		if _, err = tx.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
		logger.Debug("migration applied", zap.String("migration", m.name))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migrate tx: %w", err)
	}
	logger.Info("database schema up to date", zap.Int("steps", len(migrations)))
	return nil
}
