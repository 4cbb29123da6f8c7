package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

const transactionColumns = `id, student_id, student_name, amount, type, date, status, payment_mode, recorded_by, receipt_number,
        previous_balance, new_balance, description, notes, updated_at`

// TransactionRepository persists the append-only fee ledger.
type TransactionRepository struct {
	db             *sqlx.DB
	loc            *time.Location
	receiptRetries int
}

// NewTransactionRepository constructs a TransactionRepository. Receipt periods are computed in loc.
func NewTransactionRepository(db *sqlx.DB, loc *time.Location, receiptRetries int) *TransactionRepository {
	if loc == nil {
		loc = time.UTC
	}
	if receiptRetries <= 0 {
		receiptRetries = 1
	}
	return &TransactionRepository{db: db, loc: loc, receiptRetries: receiptRetries}
}

// Create inserts a transaction, assigning its receipt number inside the same database transaction.
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	return withReceiptRetry(r.receiptRetries, func() (err error) {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction insert: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		if err = insertTransaction(ctx, tx, txn, r.loc); err != nil {
			return err
		}
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction insert: %w", err)
		}
		return nil
	})
}

// FindByID fetches a single ledger entry.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	var txn models.Transaction
	if err := r.db.GetContext(ctx, &txn, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return &txn, nil
}

// ListByStudent returns every entry for a student, newest first.
func (r *TransactionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE student_id = $1 ORDER BY date DESC, receipt_number DESC`
	txns := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &txns, query, studentID); err != nil {
		return nil, fmt.Errorf("list student transactions: %w", err)
	}
	return txns, nil
}

// ListCompletedCredits returns the entries that make up a student's balance, oldest first.
func (r *TransactionRepository) ListCompletedCredits(ctx context.Context, studentID string) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE student_id = $1 AND status = $2 AND type = $3 ORDER BY date ASC, receipt_number ASC`
	txns := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &txns, query, studentID, models.TransactionStatusCompleted, models.TransactionTypeCredit); err != nil {
		return nil, fmt.Errorf("list completed credits: %w", err)
	}
	return txns, nil
}

// SumCompletedCredits totals Completed Credit amounts per student.
func (r *TransactionRepository) SumCompletedCredits(ctx context.Context) (map[string]decimal.Decimal, error) {
	const query = `SELECT student_id, COALESCE(SUM(amount), 0) AS total FROM transactions WHERE status = $1 AND type = $2 GROUP BY student_id`
	var rows []models.StudentCreditTotal
	if err := r.db.SelectContext(ctx, &rows, query, models.TransactionStatusCompleted, models.TransactionTypeCredit); err != nil {
		return nil, fmt.Errorf("sum completed credits: %w", err)
	}
	totals := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.StudentID] = row.Total
	}
	return totals, nil
}

// TransitionStatus moves a transaction between statuses and appends a note. The update only applies
// while the row is still in the expected status.
func (r *TransactionRepository) TransitionStatus(ctx context.Context, id string, from, to models.TransactionStatus, note string) error {
	if !models.CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return transitionStatus(ctx, r.db, id, from, to, note)
}

// UpdateNotes replaces the free-text notes of a transaction.
func (r *TransactionRepository) UpdateNotes(ctx context.Context, id, notes string) error {
	const query = `UPDATE transactions SET notes = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update transaction notes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction notes: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CancelCredit voids a Completed credit and takes its amount off the student's balance in one
// database transaction. The balance update is conditional on the balance the caller observed.
func (r *TransactionRepository) CancelCredit(ctx context.Context, txn *models.Transaction, expectedBalance, nextBalance decimal.Decimal, note string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel credit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = transitionStatus(ctx, tx, txn.ID, models.TransactionStatusCompleted, models.TransactionStatusCancelled, note); err != nil {
		return err
	}
	if err = updateFeesPaidIf(ctx, tx, txn.StudentID, expectedBalance, nextBalance); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel credit: %w", err)
	}
	return nil
}

func transitionStatus(ctx context.Context, db sqlx.ExecerContext, id string, from, to models.TransactionStatus, note string) error {
	const query = `UPDATE transactions SET status = $3,
        notes = CASE WHEN $4::TEXT = '' THEN notes WHEN notes = '' THEN $4::TEXT ELSE notes || E'\n' || $4::TEXT END,
        updated_at = $5
        WHERE id = $1 AND status = $2`
	res, err := db.ExecContext(ctx, query, id, from, to, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transition transaction status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition transaction status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s is no longer %s", ErrInvalidTransition, id, from)
	}
	return nil
}

// insertTransaction assigns the next receipt number for the transaction's period and inserts the row.
// The counter never falls behind receipts already stored for the period.
func insertTransaction(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction, loc *time.Location) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if txn.Date.IsZero() {
		txn.Date = now
	}
	txn.UpdatedAt = now

	period := models.ReceiptPeriod(txn.Date, loc)
	const counterQuery = `INSERT INTO receipt_counters (period, last_value, updated_at)
        VALUES ($1, COALESCE((SELECT MAX(CAST(SUBSTRING(receipt_number FROM 10) AS INTEGER)) FROM transactions WHERE receipt_number LIKE $2), 0) + 1, $3)
        ON CONFLICT (period) DO UPDATE SET last_value = GREATEST(receipt_counters.last_value + 1, EXCLUDED.last_value), updated_at = EXCLUDED.updated_at
        RETURNING last_value`
	var seq int
	if err := tx.GetContext(ctx, &seq, counterQuery, period, models.ReceiptPeriodPattern(period), now); err != nil {
		return fmt.Errorf("next receipt number: %w", err)
	}
	txn.ReceiptNumber = models.FormatReceiptNumber(period, seq)

	const insertQuery = `INSERT INTO transactions (` + transactionColumns + `)
        VALUES (:id, :student_id, :student_name, :amount, :type, :date, :status, :payment_mode, :recorded_by, :receipt_number,
        :previous_balance, :new_balance, :description, :notes, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, txn); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// withReceiptRetry reruns fn when it fails on a duplicate receipt number.
func withReceiptRetry(attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !uniqueViolationOn(err, receiptNumberConstraint) {
			return err
		}
	}
	return fmt.Errorf("receipt number still taken after %d attempts: %w", attempts, err)
}
