package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrBalanceChanged means the conditional fees_paid update matched no row.
	ErrBalanceChanged = errors.New("student balance changed concurrently")
	// ErrInvalidTransition means the transaction was not in the expected status.
	ErrInvalidTransition = errors.New("transaction status transition not allowed")
	// ErrDuplicateEmail is returned when a student email is already registered.
	ErrDuplicateEmail = errors.New("student email already exists")
	// ErrDuplicateUser is returned when a staff account with the email already exists.
	ErrDuplicateUser = errors.New("user email already exists")
	// ErrPlanExists is returned when the student already has an EMI plan.
	ErrPlanExists = errors.New("emi plan already exists")
)

const (
	uniqueViolation = "23505"

	receiptNumberConstraint = "transactions_receipt_number_key"
	studentEmailConstraint  = "students_email_lower_idx"
	userEmailConstraint     = "users_email_key"
	emiPlanStudentKey       = "emi_plans_student_id_key"
)

// uniqueViolationOn reports whether err is a Postgres unique violation on the named constraint.
// An empty constraint matches any unique violation.
func uniqueViolationOn(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
