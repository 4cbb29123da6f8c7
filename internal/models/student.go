package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StudentStatus is the enrollment state of a student.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "Active"
	StudentStatusPending  StudentStatus = "Pending"
	StudentStatusInactive StudentStatus = "Inactive"
)

// Valid reports whether the status is one of the known values.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusActive, StudentStatusPending, StudentStatusInactive:
		return true
	}
	return false
}

// Student is a fee-paying learner. FeesPaid is a cached projection of the ledger and is only written by
// the ledger paths (collect, void, reconciliation fix).
type Student struct {
	ID          string          `db:"id" json:"id"`
	Code        string          `db:"code" json:"code"`
	Name        string          `db:"name" json:"name"`
	Email       string          `db:"email" json:"email"`
	Phone       string          `db:"phone" json:"phone"`
	Course      string          `db:"course" json:"course"`
	Status      StudentStatus   `db:"status" json:"status"`
	FeeOffered  decimal.Decimal `db:"fee_offered" json:"feeOffered"`
	DownPayment decimal.Decimal `db:"down_payment" json:"downPayment"`
	FeesPaid    decimal.Decimal `db:"fees_paid" json:"feesPaid"`
	JoinedDate  time.Time       `db:"joined_date" json:"joinedDate"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// PendingAmount is what remains of the offered fee, never negative.
func (s Student) PendingAmount() decimal.Decimal {
	pending := s.FeeOffered.Sub(s.FeesPaid)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Status    StudentStatus
	Course    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
