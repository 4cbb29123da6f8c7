package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

// ReceiptOrganization is the letterhead printed on receipts.
type ReceiptOrganization struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// ReceiptStudent is the student block of a receipt.
type ReceiptStudent struct {
	ID     string `json:"id"`
	Code   string `json:"code,omitempty"`
	Name   string `json:"name"`
	Course string `json:"course,omitempty"`
}

// Receipt is the printable view of a transaction, composed at read time.
type Receipt struct {
	Organization  ReceiptOrganization `json:"organization"`
	ReceiptNumber string              `json:"receiptNumber"`
	Date          time.Time           `json:"date"`
	Student       ReceiptStudent      `json:"student"`
	Transaction   *models.Transaction `json:"transaction"`
	TotalFee      *decimal.Decimal    `json:"totalFee,omitempty"`
	TotalPaid     *decimal.Decimal    `json:"totalPaid,omitempty"`
	PendingAmount *decimal.Decimal    `json:"pendingAmount,omitempty"`
	AmountInWords string              `json:"amountInWords"`
	StudentExists bool                `json:"studentExists"`
}

// ReceiptLinkResponse is returned by POST /transactions/:id/receipt/link.
type ReceiptLinkResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
