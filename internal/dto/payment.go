package dto

import (
	"encoding/json"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

// CollectPaymentRequest captures POST /payments/collect. Amount accepts a JSON number or a numeric string.
type CollectPaymentRequest struct {
	StudentID   string          `json:"studentId"`
	Amount      json.RawMessage `json:"amount" swaggertype:"number"`
	PaymentMode string          `json:"paymentMode,omitempty"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	Notes       string          `json:"notes,omitempty" validate:"max=2000"`
}

// CollectPaymentResponse is returned after a successful collection.
type CollectPaymentResponse struct {
	Transaction *models.Transaction `json:"transaction"`
	Student     *models.Student     `json:"student"`
	Warning     string              `json:"warning,omitempty"`
}

// VoidTransactionRequest captures POST /transactions/:id/cancel.
type VoidTransactionRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// VoidTransactionResponse reports the voided entry and the adjusted student.
type VoidTransactionResponse struct {
	Transaction *models.Transaction `json:"transaction"`
	Student     *models.Student     `json:"student,omitempty"`
}

// UpdateTransactionRequest captures PATCH /transactions/:id. Only notes may change.
type UpdateTransactionRequest struct {
	Notes *string `json:"notes" validate:"required"`
}
