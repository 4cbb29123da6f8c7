package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

const defaultPaymentDescription = "Fee payment"

type paymentStudentRepository interface {
	studentFinder
	UpdateFeesPaidIf(ctx context.Context, id string, expected, next decimal.Decimal) error
}

type paymentTransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	TransitionStatus(ctx context.Context, id string, from, to models.TransactionStatus, note string) error
	CancelCredit(ctx context.Context, txn *models.Transaction, expectedBalance, nextBalance decimal.Decimal, note string) error
}

// PaymentService records fee collections and voids against the ledger.
type PaymentService struct {
	students     paymentStudentRepository
	transactions paymentTransactionRepository
	audit        auditRecorder
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(students paymentStudentRepository, transactions paymentTransactionRepository, audit auditRecorder, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{
		students:     students,
		transactions: transactions,
		audit:        audit,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Collect records a Completed credit and advances the student's cached balance with a compare-and-set.
// If the balance moved underneath, the new entry is marked Failed and ConcurrentModification is returned.
func (s *PaymentService) Collect(ctx context.Context, req dto.CollectPaymentRequest, actor dto.Actor) (*dto.CollectPaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid payment payload")
	}
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return nil, appErrors.Validation(err, AmountMessage).WithDetails("studentId", req.StudentID, "amount", string(req.Amount))
	}
	mode := models.PaymentMode(req.PaymentMode)
	if mode == "" {
		mode = models.PaymentModeCash
	}
	if !mode.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("paymentMode must be one of %v", models.PaymentModes)).
			WithDetails("paymentMode", req.PaymentMode)
	}

	student, err := resolveStudent(ctx, s.students, req.StudentID)
	if err != nil {
		return nil, err
	}

	previous := student.FeesPaid
	next := previous.Add(amount)
	if next.GreaterThan(models.MaxAmount) {
		return nil, appErrors.Validation(errAmountTooLarge, AmountMessage).WithDetails("studentId", student.ID, "amount", amount.String())
	}
	var warning string
	if next.GreaterThan(student.FeeOffered) {
		warning = fmt.Sprintf("Payment exceeds the offered fee by %s", next.Sub(student.FeeOffered).StringFixed(models.Cents))
	}

	description := req.Description
	if description == "" {
		description = defaultPaymentDescription
	}
	txn := &models.Transaction{
		StudentID:       student.ID,
		StudentName:     student.Name,
		Amount:          amount,
		Type:            models.TransactionTypeCredit,
		Date:            s.now(),
		Status:          models.TransactionStatusCompleted,
		PaymentMode:     mode,
		RecordedBy:      actor.Name,
		PreviousBalance: previous,
		NewBalance:      next,
		Description:     description,
		Notes:           req.Notes,
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		s.logger.Error("failed to persist payment", zap.String("student_id", student.ID), zap.String("amount", amount.String()), zap.Error(err))
		return nil, appErrors.Persistence(err, "failed to record payment").WithDetails("studentId", student.ID, "amount", amount.String())
	}

	if err := s.students.UpdateFeesPaidIf(ctx, student.ID, previous, next); err != nil {
		if errors.Is(err, repository.ErrBalanceChanged) {
			s.metrics.IncLedgerConflict("collect")
			s.logger.Warn("fees paid changed during collection",
				zap.String("student_id", student.ID), zap.String("receipt_number", txn.ReceiptNumber), zap.String("expected_balance", previous.String()))
			s.markFailed(ctx, txn, "Balance changed by a concurrent payment; not applied")
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "").
				WithDetails("studentId", student.ID, "amount", amount.String(), "transactionId", txn.ID)
		}
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("student deleted during collection", zap.String("student_id", student.ID), zap.String("receipt_number", txn.ReceiptNumber))
			s.markFailed(ctx, txn, "Student deleted before the balance was updated; not applied")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found").
				WithDetails("studentId", student.ID, "transactionId", txn.ID)
		}
		s.logger.Error("failed to update fees paid", zap.String("student_id", student.ID), zap.String("receipt_number", txn.ReceiptNumber), zap.Error(err))
		s.markFailed(ctx, txn, "Balance update failed; not applied")
		return nil, appErrors.Persistence(err, "failed to update student balance").
			WithDetails("studentId", student.ID, "amount", amount.String(), "transactionId", txn.ID)
	}

	student.FeesPaid = next
	s.metrics.ObservePayment(string(mode), amount.InexactFloat64())
	s.logger.Info("payment collected",
		zap.String("student_id", student.ID),
		zap.String("amount", amount.String()),
		zap.String("receipt_number", txn.ReceiptNumber),
		zap.String("recorded_by", actor.Name),
		zap.Bool("exceeds_fee", warning != ""))
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPaymentCollect, "transaction", txn.ID, nil, txn)
	s.cache.InvalidateFeeAnalytics(ctx)

	return &dto.CollectPaymentResponse{Transaction: txn, Student: student, Warning: warning}, nil
}

// Void cancels a Completed credit and takes it off the student's balance atomically.
func (s *PaymentService) Void(ctx context.Context, transactionID string, req dto.VoidTransactionRequest, actor dto.Actor) (*dto.VoidTransactionResponse, error) {
	if !actor.IsSuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super administrators can cancel transactions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "a cancellation reason is required")
	}

	txn, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found").WithDetails("transactionId", transactionID)
		}
		return nil, appErrors.Persistence(err, "failed to load transaction")
	}
	if !models.CanTransition(txn.Status, models.TransactionStatusCancelled) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a %s transaction cannot be cancelled", txn.Status)).
			WithDetails("transactionId", txn.ID)
	}

	note := fmt.Sprintf("Cancelled by %s: %s", actor.Name, req.Reason)
	if txn.Type != models.TransactionTypeCredit {
		if err := s.transactions.TransitionStatus(ctx, txn.ID, txn.Status, models.TransactionStatusCancelled, note); err != nil {
			return nil, s.voidError(err, txn)
		}
		return s.finishVoid(ctx, txn, nil, actor)
	}

	student, err := s.students.FindByID(ctx, txn.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Persistence(err, "failed to load student")
	}
	if student == nil {
		return s.voidOrphan(ctx, txn, note, actor)
	}

	previous := student.FeesPaid
	next := previous.Sub(txn.Amount)
	if err := s.transactions.CancelCredit(ctx, txn, previous, next, note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.voidOrphan(ctx, txn, note, actor)
		}
		return nil, s.voidError(err, txn)
	}
	student.FeesPaid = next
	return s.finishVoid(ctx, txn, student, actor)
}

// voidOrphan cancels an entry whose student is gone, so there is no cached balance left to adjust.
func (s *PaymentService) voidOrphan(ctx context.Context, txn *models.Transaction, note string, actor dto.Actor) (*dto.VoidTransactionResponse, error) {
	if err := s.transactions.TransitionStatus(ctx, txn.ID, txn.Status, models.TransactionStatusCancelled, note); err != nil {
		return nil, s.voidError(err, txn)
	}
	return s.finishVoid(ctx, txn, nil, actor)
}

func (s *PaymentService) finishVoid(ctx context.Context, txn *models.Transaction, student *models.Student, actor dto.Actor) (*dto.VoidTransactionResponse, error) {
	before := *txn
	updated, err := s.transactions.FindByID(ctx, txn.ID)
	if err != nil {
		updated = txn
		updated.Status = models.TransactionStatusCancelled
	}
	s.logger.Info("transaction cancelled",
		zap.String("transaction_id", txn.ID),
		zap.String("student_id", txn.StudentID),
		zap.String("amount", txn.Amount.String()),
		zap.String("receipt_number", txn.ReceiptNumber),
		zap.String("cancelled_by", actor.Name))
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionTransactionCancel, "transaction", txn.ID, before, updated)
	s.cache.InvalidateFeeAnalytics(ctx)
	return &dto.VoidTransactionResponse{Transaction: updated, Student: student}, nil
}

func (s *PaymentService) voidError(err error, txn *models.Transaction) error {
	switch {
	case errors.Is(err, repository.ErrBalanceChanged):
		s.metrics.IncLedgerConflict("void")
		s.logger.Warn("fees paid changed during cancellation", zap.String("transaction_id", txn.ID), zap.String("student_id", txn.StudentID))
		return appErrors.Clone(appErrors.ErrConcurrentModification, "").WithDetails("transactionId", txn.ID, "studentId", txn.StudentID)
	case errors.Is(err, repository.ErrInvalidTransition):
		return appErrors.Clone(appErrors.ErrConflict, "transaction status changed, reload and retry").WithDetails("transactionId", txn.ID)
	default:
		return appErrors.Persistence(err, "failed to cancel transaction").WithDetails("transactionId", txn.ID)
	}
}

// markFailed moves a just-created entry to Failed so it never counts toward the balance.
func (s *PaymentService) markFailed(ctx context.Context, txn *models.Transaction, note string) {
	if err := s.transactions.TransitionStatus(ctx, txn.ID, models.TransactionStatusCompleted, models.TransactionStatusFailed, note); err != nil {
		s.logger.Error("failed to mark orphaned payment as failed",
			zap.String("transaction_id", txn.ID), zap.String("student_id", txn.StudentID), zap.String("receipt_number", txn.ReceiptNumber), zap.Error(err))
		return
	}
	txn.Status = models.TransactionStatusFailed
	if txn.Notes == "" {
		txn.Notes = note
	} else {
		txn.Notes += "\n" + note
	}
}
