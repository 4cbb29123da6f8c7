package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

// EMIRepository persists installment plans. Installment status is never stored.
type EMIRepository struct {
	db *sqlx.DB
}

// NewEMIRepository constructs an EMIRepository.
func NewEMIRepository(db *sqlx.DB) *EMIRepository {
	return &EMIRepository{db: db}
}

// Create stores a plan and its installments atomically.
func (r *EMIRepository) Create(ctx context.Context, plan *models.EMIPlan) (err error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin emi plan insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const planQuery = `INSERT INTO emi_plans (id, student_id, total_amount, down_payment, remaining_amount, number_of_installments,
        frequency, interval_days, start_date, created_by, created_at)
        VALUES (:id, :student_id, :total_amount, :down_payment, :remaining_amount, :number_of_installments,
        :frequency, :interval_days, :start_date, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, planQuery, plan); err != nil {
		if uniqueViolationOn(err, emiPlanStudentKey) {
			return ErrPlanExists
		}
		return fmt.Errorf("insert emi plan: %w", err)
	}

	const installmentQuery = `INSERT INTO emi_installments (plan_id, installment_number, amount, due_date) VALUES ($1, $2, $3, $4)`
	for i := range plan.Installments {
		inst := &plan.Installments[i]
		inst.PlanID = plan.ID
		if _, err = tx.ExecContext(ctx, installmentQuery, plan.ID, inst.InstallmentNumber, inst.Amount, inst.DueDate); err != nil {
			return fmt.Errorf("insert emi installment %d: %w", inst.InstallmentNumber, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit emi plan: %w", err)
	}
	return nil
}

// FindByStudent loads a student's plan with installments in order.
func (r *EMIRepository) FindByStudent(ctx context.Context, studentID string) (*models.EMIPlan, error) {
	const planQuery = `SELECT id, student_id, total_amount, down_payment, remaining_amount, number_of_installments,
        frequency, interval_days, start_date, created_by, created_at FROM emi_plans WHERE student_id = $1`
	var plan models.EMIPlan
	if err := r.db.GetContext(ctx, &plan, planQuery, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find emi plan: %w", err)
	}

	const installmentQuery = `SELECT plan_id, installment_number, amount, due_date FROM emi_installments
        WHERE plan_id = $1 ORDER BY installment_number ASC`
	plan.Installments = []models.Installment{}
	if err := r.db.SelectContext(ctx, &plan.Installments, installmentQuery, plan.ID); err != nil {
		return nil, fmt.Errorf("list emi installments: %w", err)
	}
	return &plan, nil
}

// ExistsForStudent reports whether a plan is already stored for the student.
func (r *EMIRepository) ExistsForStudent(ctx context.Context, studentID string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM emi_plans WHERE student_id = $1 LIMIT 1`, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check emi plan: %w", err)
	}
	return true, nil
}

// DeleteByStudent removes a student's plan. Installments cascade.
func (r *EMIRepository) DeleteByStudent(ctx context.Context, studentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM emi_plans WHERE student_id = $1`, studentID)
	if err != nil {
		return fmt.Errorf("delete emi plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete emi plan: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
