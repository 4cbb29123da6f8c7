package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/export"
	"github.com/noah-isme/lms-admin-api/pkg/signedlink"
)

type receiptTransactionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
}

type receiptStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type receiptRenderer interface {
	RenderReceipt(doc export.ReceiptDocument) ([]byte, error)
}

type receiptLinkSigner interface {
	Generate(transactionID, receiptNumber string) (string, time.Time, error)
	Parse(token string) (*signedlink.Claims, error)
}

// ReceiptConfig carries the letterhead and link settings for receipts.
type ReceiptConfig struct {
	Organization    dto.ReceiptOrganization
	CurrencyUnit    string
	CurrencySubunit string
	// SharedURLBase is the absolute URL that share tokens are appended to.
	SharedURLBase string
	Location      *time.Location
}

// ReceiptService composes receipts from a transaction snapshot and the student's current totals.
type ReceiptService struct {
	transactions receiptTransactionRepository
	students     receiptStudentRepository
	renderer     receiptRenderer
	signer       receiptLinkSigner
	cfg          ReceiptConfig
	logger       *zap.Logger
}

// NewReceiptService constructs a ReceiptService.
func NewReceiptService(transactions receiptTransactionRepository, students receiptStudentRepository, renderer receiptRenderer, signer receiptLinkSigner, cfg ReceiptConfig, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if renderer == nil {
		renderer = export.NewPDFExporter()
	}
	return &ReceiptService{
		transactions: transactions,
		students:     students,
		renderer:     renderer,
		signer:       signer,
		cfg:          cfg,
		logger:       logger,
	}
}

// View renders the receipt of a transaction. Totals are omitted when the student no longer exists.
func (s *ReceiptService) View(ctx context.Context, transactionID string) (*dto.Receipt, error) {
	txn, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found").WithDetails("transactionId", transactionID)
		}
		return nil, appErrors.Persistence(err, "failed to load transaction")
	}

	receipt := &dto.Receipt{
		Organization:  s.cfg.Organization,
		ReceiptNumber: txn.ReceiptNumber,
		Date:          txn.Date,
		Student:       dto.ReceiptStudent{ID: txn.StudentID, Name: txn.StudentName},
		Transaction:   txn,
		AmountInWords: AmountInWords(txn.Amount, s.cfg.CurrencyUnit, s.cfg.CurrencySubunit),
	}

	student, err := s.students.FindByID(ctx, txn.StudentID)
	switch {
	case err == nil:
		totalFee := student.FeeOffered
		totalPaid := student.FeesPaid
		pending := student.PendingAmount()
		receipt.Student = dto.ReceiptStudent{ID: student.ID, Code: student.Code, Name: student.Name, Course: student.Course}
		receipt.TotalFee = &totalFee
		receipt.TotalPaid = &totalPaid
		receipt.PendingAmount = &pending
		receipt.StudentExists = true
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Persistence(err, "failed to load student")
	}
	return receipt, nil
}

// PDF renders the receipt of a transaction as a PDF document.
func (s *ReceiptService) PDF(ctx context.Context, transactionID string) ([]byte, *dto.Receipt, error) {
	receipt, err := s.View(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.renderer.RenderReceipt(s.document(receipt))
	if err != nil {
		s.logger.Error("failed to render receipt pdf", zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return data, receipt, nil
}

// Link issues a signed, expiring URL that serves the receipt PDF without authentication.
func (s *ReceiptService) Link(ctx context.Context, transactionID string) (*dto.ReceiptLinkResponse, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "receipt links are not configured")
	}
	receipt, err := s.View(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(receipt.Transaction.ID, receipt.ReceiptNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	url := strings.TrimRight(s.cfg.SharedURLBase, "/") + "/" + token
	return &dto.ReceiptLinkResponse{URL: url, Token: token, ExpiresAt: expiresAt}, nil
}

// Shared validates a share token and renders the receipt it points at.
func (s *ReceiptService) Shared(ctx context.Context, token string) ([]byte, *dto.Receipt, error) {
	if s.signer == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "receipt link not found")
	}
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, signedlink.ErrExpired) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "receipt link has expired")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid receipt link")
	}
	data, receipt, err := s.PDF(ctx, claims.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	if receipt.ReceiptNumber != claims.ReceiptNumber {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid receipt link")
	}
	return data, receipt, nil
}

func (s *ReceiptService) document(receipt *dto.Receipt) export.ReceiptDocument {
	txn := receipt.Transaction
	studentLabel := receipt.Student.Name
	if receipt.Student.Code != "" {
		studentLabel = fmt.Sprintf("%s (%s)", receipt.Student.Name, receipt.Student.Code)
	}
	lines := []export.ReceiptLine{
		{Label: "Student", Value: studentLabel},
	}
	if receipt.Student.Course != "" {
		lines = append(lines, export.ReceiptLine{Label: "Course", Value: receipt.Student.Course})
	}
	lines = append(lines,
		export.ReceiptLine{Label: "Description", Value: txn.Description},
		export.ReceiptLine{Label: "Payment Mode", Value: string(txn.PaymentMode)},
		export.ReceiptLine{Label: "Amount", Value: txn.Amount.StringFixed(models.Cents)},
		export.ReceiptLine{Label: "Status", Value: string(txn.Status)},
		export.ReceiptLine{Label: "Recorded By", Value: txn.RecordedBy},
	)

	var summary []export.ReceiptLine
	if receipt.StudentExists {
		summary = []export.ReceiptLine{
			{Label: "Total Fee", Value: receipt.TotalFee.StringFixed(models.Cents)},
			{Label: "Total Paid", Value: receipt.TotalPaid.StringFixed(models.Cents)},
			{Label: "Pending", Value: receipt.PendingAmount.StringFixed(models.Cents)},
		}
	}

	footer := "This is a computer generated receipt."
	if txn.Status != models.TransactionStatusCompleted {
		footer = fmt.Sprintf("This transaction is %s and does not count toward the fee paid.", strings.ToLower(string(txn.Status)))
	}
	return export.ReceiptDocument{
		Letterhead: export.Letterhead{
			Name:    receipt.Organization.Name,
			Address: receipt.Organization.Address,
			Phone:   receipt.Organization.Phone,
			Email:   receipt.Organization.Email,
			Website: receipt.Organization.Website,
		},
		Title:         "Fee Receipt",
		ReceiptNumber: receipt.ReceiptNumber,
		Date:          receipt.Date.In(s.cfg.Location).Format("02 Jan 2006 15:04"),
		Lines:         lines,
		Summary:       summary,
		AmountInWords: receipt.AmountInWords,
		Footer:        footer,
	}
}
