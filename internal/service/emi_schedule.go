package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

const (
	minCustomIntervalDays = 1
	maxCustomIntervalDays = 365
)

var (
	errIntervalDaysRequired = fmt.Errorf("intervalDays must be between %d and %d for a Custom frequency", minCustomIntervalDays, maxCustomIntervalDays)
	errInstallmentsTooSmall = errors.New("remaining amount is too small to split into whole-unit installments")
)

// InstallmentDueDate returns the due date of installment n (1-based).
func InstallmentDueDate(start time.Time, freq models.EMIFrequency, intervalDays *int, n int) (time.Time, error) {
	switch freq {
	case models.EMIFrequencyWeekly:
		return start.AddDate(0, 0, 7*n), nil
	case models.EMIFrequencyBiWeekly:
		return start.AddDate(0, 0, 14*n), nil
	case models.EMIFrequencyMonthly:
		return start.AddDate(0, n, 0), nil
	case models.EMIFrequencyQuarterly:
		return start.AddDate(0, 3*n, 0), nil
	case models.EMIFrequencyCustom:
		if intervalDays == nil || *intervalDays < minCustomIntervalDays || *intervalDays > maxCustomIntervalDays {
			return time.Time{}, errIntervalDaysRequired
		}
		return start.AddDate(0, 0, *intervalDays*n), nil
	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", freq)
	}
}

// BuildInstallments splits remaining into count whole-unit installments. Every installment but the last
// gets floor(remaining / count); the last absorbs the rest so the amounts always sum to remaining.
func BuildInstallments(remaining decimal.Decimal, count int, freq models.EMIFrequency, intervalDays *int, start time.Time) ([]models.Installment, error) {
	if count < models.MinInstallments || count > models.MaxInstallments {
		return nil, fmt.Errorf("numberOfInstallments must be between %d and %d", models.MinInstallments, models.MaxInstallments)
	}
	if !remaining.IsPositive() {
		return nil, errors.New("nothing left to schedule")
	}

	base := remaining.Div(decimal.NewFromInt(int64(count))).Floor()
	if count > 1 && !base.IsPositive() {
		return nil, errInstallmentsTooSmall
	}
	last := remaining.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))

	installments := make([]models.Installment, 0, count)
	for n := 1; n <= count; n++ {
		due, err := InstallmentDueDate(start, freq, intervalDays, n)
		if err != nil {
			return nil, err
		}
		amount := base
		if n == count {
			amount = last
		}
		installments = append(installments, models.Installment{
			InstallmentNumber: n,
			Amount:            amount,
			DueDate:           due,
			Status:            models.InstallmentStatusPending,
			PaidAmount:        decimal.Zero,
		})
	}
	return installments, nil
}

// ProjectSchedule derives installment statuses from the amount paid so far. Payments are allocated to
// installments strictly in order after the down payment. credits must be the student's Completed credits
// in chronological order; they only supply paidDate and transactionId and may be nil.
func ProjectSchedule(plan models.EMIPlan, paid decimal.Decimal, credits []models.Transaction, now time.Time) ([]models.Installment, models.EMISummary) {
	installments := make([]models.Installment, len(plan.Installments))
	copy(installments, plan.Installments)

	summary := models.EMISummary{TotalPaid: decimal.Zero, PendingAmount: decimal.Zero}
	lower := plan.DownPayment
	for i := range installments {
		inst := &installments[i]
		upper := lower.Add(inst.Amount)

		share := paid.Sub(lower)
		if share.IsNegative() {
			share = decimal.Zero
		}
		if share.GreaterThan(inst.Amount) {
			share = inst.Amount
		}
		inst.PaidAmount = share
		inst.PaidDate = nil
		inst.TransactionID = nil

		switch {
		case paid.GreaterThanOrEqual(upper):
			inst.Status = models.InstallmentStatusPaid
			summary.PaidCount++
			if credit := creditCrossing(credits, upper); credit != nil {
				date := credit.Date
				id := credit.ID
				inst.PaidDate = &date
				inst.TransactionID = &id
			}
		case paid.GreaterThan(lower):
			inst.Status = models.InstallmentStatusPartiallyPaid
		case inst.DueDate.Before(now):
			inst.Status = models.InstallmentStatusOverdue
			summary.OverdueCount++
		default:
			inst.Status = models.InstallmentStatusPending
		}

		summary.TotalPaid = summary.TotalPaid.Add(share)
		summary.PendingAmount = summary.PendingAmount.Add(inst.Amount.Sub(share))
		if summary.NextDue == nil && (inst.Status == models.InstallmentStatusPending || inst.Status == models.InstallmentStatusPartiallyPaid) {
			next := *inst
			summary.NextDue = &next
		}
		lower = upper
	}

	if total := len(installments); total > 0 {
		summary.CompletionPercentage = int(math.Round(float64(summary.PaidCount) / float64(total) * 100))
	}
	return installments, summary
}

// creditCrossing returns the first credit whose running total reaches threshold.
func creditCrossing(credits []models.Transaction, threshold decimal.Decimal) *models.Transaction {
	running := decimal.Zero
	for i := range credits {
		running = running.Add(credits[i].Amount)
		if running.GreaterThanOrEqual(threshold) {
			return &credits[i]
		}
	}
	return nil
}
