package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/pkg/jobs"
)

// LedgerVerifyJob is the job type for scheduled ledger verification.
const LedgerVerifyJob = "ledger.verify"

// LedgerVerifyHandler returns a queue handler that runs Verify and logs the outcome.
func LedgerVerifyHandler(svc *ReconciliationService, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		report, err := svc.Verify(ctx)
		if err != nil {
			return err
		}
		fields := []zap.Field{
			zap.String("job_id", job.ID),
			zap.Int("students_checked", report.Summary.StudentsChecked),
			zap.Int("issues_found", report.Summary.IssuesFound),
			zap.String("total_drift", report.Summary.TotalDrift.String()),
		}
		if report.Healthy {
			logger.Info("scheduled ledger verification passed", fields...)
			return nil
		}
		for _, issue := range report.Issues {
			logger.Warn("ledger drift detected",
				zap.String("student_id", issue.StudentID),
				zap.String("student_code", issue.StudentCode),
				zap.String("fees_paid", issue.FeesPaid.String()),
				zap.String("transaction_total", issue.TransactionTotal.String()))
		}
		logger.Warn("scheduled ledger verification found drift", fields...)
		return nil
	}
}

// ScheduleLedgerVerify enqueues a verify job on the queue every interval. A non-positive interval
// disables the schedule.
func ScheduleLedgerVerify(queue *jobs.Queue, interval time.Duration) {
	if queue == nil || interval <= 0 {
		return
	}
	queue.Every(interval, func() jobs.Job {
		return jobs.Job{Type: LedgerVerifyJob}
	})
}
