package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type transactionReader interface {
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Transaction, error)
	UpdateNotes(ctx context.Context, id, notes string) error
}

// TransactionService exposes the read side of the ledger plus the one mutable free-text field.
type TransactionService struct {
	transactions transactionReader
	students     studentFinder
	audit        auditRecorder
	logger       *zap.Logger
}

// NewTransactionService constructs a TransactionService.
func NewTransactionService(transactions transactionReader, students studentFinder, audit auditRecorder, logger *zap.Logger) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{transactions: transactions, students: students, audit: audit, logger: logger}
}

// ListByStudent returns a student's history, newest first. A deleted student's history is still returned
// when addressed by internal id.
func (s *TransactionService) ListByStudent(ctx context.Context, studentRef string) ([]models.Transaction, error) {
	studentID := studentRef
	student, err := resolveStudent(ctx, s.students, studentRef)
	switch {
	case err == nil:
		studentID = student.ID
	case errors.Is(err, appErrors.ErrNotFound):
	default:
		return nil, err
	}

	items, err := s.transactions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list transactions")
	}
	if student == nil && len(items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found").WithDetails("studentId", studentRef)
	}
	if items == nil {
		items = []models.Transaction{}
	}
	return items, nil
}

// Get returns a single transaction.
func (s *TransactionService) Get(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found").WithDetails("transactionId", id)
		}
		return nil, appErrors.Persistence(err, "failed to load transaction")
	}
	return txn, nil
}

// UpdateNotes replaces the notes of a transaction. No other field can change.
func (s *TransactionService) UpdateNotes(ctx context.Context, id string, req dto.UpdateTransactionRequest, actor dto.Actor) (*models.Transaction, error) {
	if req.Notes == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "notes is required")
	}
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transactions.UpdateNotes(ctx, id, *req.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found").WithDetails("transactionId", id)
		}
		return nil, appErrors.Persistence(err, "failed to update transaction notes")
	}
	updated := *before
	updated.Notes = *req.Notes
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionTransactionUpdate, "transaction", id,
		map[string]string{"notes": before.Notes}, map[string]string{"notes": updated.Notes})
	return &updated, nil
}
