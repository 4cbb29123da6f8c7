package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EMIFrequency is the spacing between installments.
type EMIFrequency string

const (
	EMIFrequencyWeekly    EMIFrequency = "Weekly"
	EMIFrequencyBiWeekly  EMIFrequency = "Bi-Weekly"
	EMIFrequencyMonthly   EMIFrequency = "Monthly"
	EMIFrequencyQuarterly EMIFrequency = "Quarterly"
	EMIFrequencyCustom    EMIFrequency = "Custom"
)

// Valid reports whether the frequency is a known value.
func (f EMIFrequency) Valid() bool {
	switch f {
	case EMIFrequencyWeekly, EMIFrequencyBiWeekly, EMIFrequencyMonthly, EMIFrequencyQuarterly, EMIFrequencyCustom:
		return true
	}
	return false
}

// InstallmentStatus is derived on every read from the ledger and the clock.
type InstallmentStatus string

const (
	InstallmentStatusPending       InstallmentStatus = "Pending"
	InstallmentStatusPaid          InstallmentStatus = "Paid"
	InstallmentStatusOverdue       InstallmentStatus = "Overdue"
	InstallmentStatusPartiallyPaid InstallmentStatus = "Partially Paid"
)

const (
	MinInstallments = 1
	MaxInstallments = 24
)

// EMIPlan is the persisted definition of a student's installment schedule.
type EMIPlan struct {
	ID                   string          `db:"id" json:"id"`
	StudentID            string          `db:"student_id" json:"studentId"`
	TotalAmount          decimal.Decimal `db:"total_amount" json:"totalAmount"`
	DownPayment          decimal.Decimal `db:"down_payment" json:"downPayment"`
	RemainingAmount      decimal.Decimal `db:"remaining_amount" json:"remainingAmount"`
	NumberOfInstallments int             `db:"number_of_installments" json:"numberOfInstallments"`
	Frequency            EMIFrequency    `db:"frequency" json:"frequency"`
	IntervalDays         *int            `db:"interval_days" json:"intervalDays,omitempty"`
	StartDate            time.Time       `db:"start_date" json:"startDate"`
	CreatedBy            string          `db:"created_by" json:"createdBy"`
	CreatedAt            time.Time       `db:"created_at" json:"createdAt"`
	Installments         []Installment   `db:"-" json:"installments"`
}

// Installment is one scheduled payment. Only number, amount and due date are stored; the rest is projected.
type Installment struct {
	PlanID            string            `db:"plan_id" json:"-"`
	InstallmentNumber int               `db:"installment_number" json:"installmentNumber"`
	Amount            decimal.Decimal   `db:"amount" json:"amount"`
	DueDate           time.Time         `db:"due_date" json:"dueDate"`
	Status            InstallmentStatus `db:"-" json:"status"`
	PaidAmount        decimal.Decimal   `db:"-" json:"paidAmount"`
	PaidDate          *time.Time        `db:"-" json:"paidDate,omitempty"`
	TransactionID     *string           `db:"-" json:"transactionId,omitempty"`
}

// EMISummary holds the derived counters of a plan view.
type EMISummary struct {
	PaidCount            int             `json:"paidCount"`
	OverdueCount         int             `json:"overdueCount"`
	CompletionPercentage int             `json:"completionPercentage"`
	TotalPaid            decimal.Decimal `json:"totalPaid"`
	PendingAmount        decimal.Decimal `json:"pendingAmount"`
	NextDue              *Installment    `json:"nextDue,omitempty"`
}

// EMIPlanView is a plan projected against the current ledger state.
type EMIPlanView struct {
	EMIPlan
	StudentCode string          `json:"studentCode"`
	StudentName string          `json:"studentName"`
	FeesPaid    decimal.Decimal `json:"feesPaid"`
	Summary     EMISummary      `json:"summary"`
	AsOf        time.Time       `json:"asOf"`
}
