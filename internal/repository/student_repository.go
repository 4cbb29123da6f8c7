package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

const studentColumns = `id, code, name, email, phone, course, status, fee_offered, down_payment, fees_paid, joined_date, created_at, updated_at`

// StudentRepository manages persistence for student records and their cached fee balance.
type StudentRepository struct {
	db             *sqlx.DB
	loc            *time.Location
	receiptRetries int
}

// NewStudentRepository constructs a StudentRepository. loc and receiptRetries apply to the
// down payment receipt written at enrollment.
func NewStudentRepository(db *sqlx.DB, loc *time.Location, receiptRetries int) *StudentRepository {
	if loc == nil {
		loc = time.UTC
	}
	if receiptRetries <= 0 {
		receiptRetries = 1
	}
	return &StudentRepository{db: db, loc: loc, receiptRetries: receiptRetries}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Course != "" {
		args = append(args, filter.Course)
		conditions = append(conditions, fmt.Sprintf("course = $%d", len(args)))
	}
	base := "FROM students WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"code":        "code",
		"name":        "name",
		"joined_date": "joined_date",
		"fees_paid":   "fees_paid",
		"created_at":  "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student ordered by code. Used by reconciliation and analytics.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students ORDER BY code ASC"
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by internal identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sql.ErrNoRows
	}
	return r.findOne(ctx, "id", id)
}

// FindByCode fetches a student by human-facing code such as STU001.
func (r *StudentRepository) FindByCode(ctx context.Context, code string) (*models.Student, error) {
	return r.findOne(ctx, "code", strings.ToUpper(code))
}

func (r *StudentRepository) findOne(ctx context.Context, column, value string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s = $1", studentColumns, column)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by %s: %w", column, err)
	}
	return &student, nil
}

// ExistsByEmail checks for a case-insensitive email match, optionally excluding one student.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// CreateWithDownPayment inserts a student with fees_paid seeded from the down payment. When downPayment
// is non-nil the matching credit is written in the same database transaction.
func (r *StudentRepository) CreateWithDownPayment(ctx context.Context, student *models.Student, downPayment *models.Transaction) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.JoinedDate.IsZero() {
		student.JoinedDate = now
	}
	student.UpdatedAt = now
	student.FeesPaid = student.DownPayment

	return withReceiptRetry(r.receiptRetries, func() (err error) {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin create student: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		const insertQuery = `INSERT INTO students (id, name, email, phone, course, status, fee_offered, down_payment, fees_paid, joined_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING code`
		if err = tx.GetContext(ctx, &student.Code, insertQuery, student.ID, student.Name, student.Email, student.Phone, student.Course,
			student.Status, student.FeeOffered, student.DownPayment, student.FeesPaid, student.JoinedDate, student.CreatedAt, student.UpdatedAt); err != nil {
			if uniqueViolationOn(err, studentEmailConstraint) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("create student: %w", err)
		}

		if downPayment != nil {
			downPayment.StudentID = student.ID
			downPayment.StudentName = student.Name
			if err = insertTransaction(ctx, tx, downPayment, r.loc); err != nil {
				return err
			}
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit create student: %w", err)
		}
		return nil
	})
}

// Update modifies the non-financial fields of a student. fees_paid and down_payment are never written here.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, email = :email, phone = :phone, course = :course, status = :status,
        fee_offered = :fee_offered, joined_date = :joined_date, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		if uniqueViolationOn(err, studentEmailConstraint) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student. Ledger rows stay behind with their cached student name.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateFeesPaidIf sets fees_paid to next only while it still equals expected.
// ErrBalanceChanged is returned when another writer got there first and sql.ErrNoRows when the
// student has been deleted.
func (r *StudentRepository) UpdateFeesPaidIf(ctx context.Context, id string, expected, next decimal.Decimal) error {
	return updateFeesPaidIf(ctx, r.db, id, expected, next)
}

func updateFeesPaidIf(ctx context.Context, db sqlx.ExtContext, id string, expected, next decimal.Decimal) error {
	const query = `UPDATE students SET fees_paid = $3, updated_at = $4 WHERE id = $1 AND fees_paid = $2`
	res, err := db.ExecContext(ctx, query, id, expected, next, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update fees paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fees paid: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, db, &exists, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("check student after fees paid miss: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return ErrBalanceChanged
}
