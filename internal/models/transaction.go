package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "Credit"
	TransactionTypeDebit  TransactionType = "Debit"
	TransactionTypeRefund TransactionType = "Refund"
)

// TransactionStatus is the only mutable attribute of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "Completed"
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusFailed    TransactionStatus = "Failed"
	TransactionStatusCancelled TransactionStatus = "Cancelled"
)

// transitions lists every permitted status change. Anything absent is rejected.
var transitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusCompleted: {TransactionStatusFailed, TransactionStatusCancelled},
}

// CanTransition reports whether a transaction may move from one status to another.
func CanTransition(from, to TransactionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PaymentMode is how the money was received.
type PaymentMode string

const (
	PaymentModeCash           PaymentMode = "Cash"
	PaymentModeCheque         PaymentMode = "Cheque"
	PaymentModeUPI            PaymentMode = "UPI"
	PaymentModeOnlineTransfer PaymentMode = "Online Transfer"
	PaymentModeOther          PaymentMode = "Other"
)

// PaymentModes lists the accepted modes in display order.
var PaymentModes = []PaymentMode{PaymentModeCash, PaymentModeCheque, PaymentModeUPI, PaymentModeOnlineTransfer, PaymentModeOther}

// Valid reports whether the mode is one of PaymentModes.
func (m PaymentMode) Valid() bool {
	for _, mode := range PaymentModes {
		if m == mode {
			return true
		}
	}
	return false
}

// DownPaymentDescription marks the synthetic credit written at enrollment.
const DownPaymentDescription = "Initial down payment at enrollment"

// Transaction is an append-only ledger entry. Everything except Status and Notes is write-once.
type Transaction struct {
	ID              string            `db:"id" json:"id"`
	StudentID       string            `db:"student_id" json:"studentId"`
	StudentName     string            `db:"student_name" json:"studentName"`
	Amount          decimal.Decimal   `db:"amount" json:"amount"`
	Type            TransactionType   `db:"type" json:"type"`
	Date            time.Time         `db:"date" json:"date"`
	Status          TransactionStatus `db:"status" json:"status"`
	PaymentMode     PaymentMode       `db:"payment_mode" json:"paymentMode"`
	RecordedBy      string            `db:"recorded_by" json:"recordedBy"`
	ReceiptNumber   string            `db:"receipt_number" json:"receiptNumber"`
	PreviousBalance decimal.Decimal   `db:"previous_balance" json:"previousBalance"`
	NewBalance      decimal.Decimal   `db:"new_balance" json:"newBalance"`
	Description     string            `db:"description" json:"description"`
	Notes           string            `db:"notes" json:"notes"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updatedAt"`
}

// CountsTowardBalance reports whether the entry is part of the cached fees-paid projection.
func (t Transaction) CountsTowardBalance() bool {
	return t.Status == TransactionStatusCompleted && t.Type == TransactionTypeCredit
}

// StudentCreditTotal is the ledger-side total for one student.
type StudentCreditTotal struct {
	StudentID string          `db:"student_id"`
	Total     decimal.Decimal `db:"total"`
}
