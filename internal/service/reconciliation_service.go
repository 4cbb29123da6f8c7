package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

// DefaultDriftTolerance is the largest |feesPaid - ledger total| treated as consistent.
var DefaultDriftTolerance = decimal.RequireFromString("0.01")

type reconciliationStudentRepository interface {
	ListAll(ctx context.Context) ([]models.Student, error)
	UpdateFeesPaidIf(ctx context.Context, id string, expected, next decimal.Decimal) error
}

type reconciliationTransactionRepository interface {
	SumCompletedCredits(ctx context.Context) (map[string]decimal.Decimal, error)
}

// ReconciliationService audits cached balances against the ledger and repairs drift.
type ReconciliationService struct {
	students     reconciliationStudentRepository
	transactions reconciliationTransactionRepository
	audit        auditRecorder
	cache        *CacheService
	metrics      *MetricsService
	tolerance    decimal.Decimal
	logger       *zap.Logger
	now          func() time.Time
}

// NewReconciliationService constructs a ReconciliationService. A non-positive tolerance falls back to 0.01.
func NewReconciliationService(students reconciliationStudentRepository, transactions reconciliationTransactionRepository, audit auditRecorder, cache *CacheService, metrics *MetricsService, tolerance decimal.Decimal, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !tolerance.IsPositive() {
		tolerance = DefaultDriftTolerance
	}
	return &ReconciliationService{
		students:     students,
		transactions: transactions,
		audit:        audit,
		cache:        cache,
		metrics:      metrics,
		tolerance:    tolerance,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Verify compares every student's cached balance with the sum of their Completed credits. It never writes.
func (s *ReconciliationService) Verify(ctx context.Context) (*dto.LedgerReport, error) {
	start := time.Now()
	issues, checked, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	drift := decimal.Zero
	for _, issue := range issues {
		drift = drift.Add(issue.Difference.Abs())
	}
	report := &dto.LedgerReport{
		Healthy: len(issues) == 0,
		Issues:  issues,
		Summary: dto.LedgerSummary{
			StudentsChecked: checked,
			IssuesFound:     len(issues),
			TotalDrift:      drift,
			CheckedAt:       s.now(),
		},
	}
	s.metrics.ObserveLedgerVerify(len(issues), time.Since(start))
	return report, nil
}

// Fix overwrites each drifted balance with its ledger total. Each write is conditional on the balance
// observed during the scan; students whose balance moved in between are reported as skipped.
func (s *ReconciliationService) Fix(ctx context.Context, actor dto.Actor) (*dto.LedgerFixResult, error) {
	if !actor.IsSuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super administrators can fix ledger inconsistencies")
	}

	issues, _, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	result := &dto.LedgerFixResult{Corrections: []dto.LedgerCorrection{}, FixedAt: s.now()}
	for _, issue := range issues {
		err := s.students.UpdateFeesPaidIf(ctx, issue.StudentID, issue.FeesPaid, issue.TransactionTotal)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrBalanceChanged), errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("skipping ledger fix, balance moved", zap.String("student_id", issue.StudentID))
			result.Skipped = append(result.Skipped, issue)
			continue
		default:
			return nil, appErrors.Persistence(err, "failed to correct student balance").WithDetails("studentId", issue.StudentID)
		}

		correction := dto.LedgerCorrection{
			StudentID:         issue.StudentID,
			StudentCode:       issue.StudentCode,
			StudentName:       issue.StudentName,
			PreviousFeesPaid:  issue.FeesPaid,
			CorrectedFeesPaid: issue.TransactionTotal,
			Difference:        issue.TransactionTotal.Sub(issue.FeesPaid),
		}
		result.Corrections = append(result.Corrections, correction)
		s.logger.Warn("ledger drift corrected",
			zap.String("student_id", issue.StudentID),
			zap.String("previous_fees_paid", issue.FeesPaid.String()),
			zap.String("corrected_fees_paid", issue.TransactionTotal.String()),
			zap.String("fixed_by", actor.Name))
		recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionLedgerFix, "student", issue.StudentID,
			map[string]string{"feesPaid": issue.FeesPaid.String()},
			map[string]string{"feesPaid": issue.TransactionTotal.String()})
	}
	result.Fixed = len(result.Corrections)

	if result.Fixed > 0 {
		s.cache.InvalidateFeeAnalytics(ctx)
	}
	return result, nil
}

// scan reads balances before ledger totals so a payment landing mid-scan shows up as drift on the
// balance side, which the conditional fix then refuses to overwrite.
func (s *ReconciliationService) scan(ctx context.Context) ([]dto.LedgerIssue, int, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, 0, appErrors.Persistence(err, "failed to load students")
	}
	totals, err := s.transactions.SumCompletedCredits(ctx)
	if err != nil {
		return nil, 0, appErrors.Persistence(err, "failed to total ledger credits")
	}

	issues := []dto.LedgerIssue{}
	for _, student := range students {
		total, ok := totals[student.ID]
		if !ok {
			total = decimal.Zero
		}
		diff := student.FeesPaid.Sub(total)
		if diff.Abs().LessThanOrEqual(s.tolerance) {
			continue
		}
		issues = append(issues, dto.LedgerIssue{
			StudentID:        student.ID,
			StudentCode:      student.Code,
			StudentName:      student.Name,
			FeesPaid:         student.FeesPaid,
			TransactionTotal: total,
			Difference:       diff,
		})
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].StudentCode == issues[j].StudentCode {
			return issues[i].StudentID < issues[j].StudentID
		}
		return issues[i].StudentCode < issues[j].StudentCode
	})
	return issues, len(students), nil
}
