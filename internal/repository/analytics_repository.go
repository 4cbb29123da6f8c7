package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

// AnalyticsRepository exposes read-optimised fee aggregation queries.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// FeeTotalsByStatus aggregates offered and collected fees per student status.
func (r *AnalyticsRepository) FeeTotalsByStatus(ctx context.Context) ([]models.FeeStatusBreakdown, error) {
	const query = `SELECT status, COUNT(*) AS students, COALESCE(SUM(fee_offered), 0) AS offered, COALESCE(SUM(fees_paid), 0) AS collected
        FROM students GROUP BY status ORDER BY status ASC`
	rows := []models.FeeStatusBreakdown{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query fee totals by status: %w", err)
	}
	return rows, nil
}

// CollectionsByMode sums Completed credits per payment mode within the filter window.
func (r *AnalyticsRepository) CollectionsByMode(ctx context.Context, filter models.FeeAnalyticsFilter) ([]models.FeeModeTotal, error) {
	where, args := completedCreditWhere(filter)
	query := `SELECT payment_mode, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total FROM transactions ` + where +
		` GROUP BY payment_mode ORDER BY total DESC`
	rows := []models.FeeModeTotal{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query collections by mode: %w", err)
	}
	return rows, nil
}

// CollectionsByMonth sums Completed credits per calendar month within the filter window.
func (r *AnalyticsRepository) CollectionsByMonth(ctx context.Context, filter models.FeeAnalyticsFilter) ([]models.FeeMonthTotal, error) {
	where, args := completedCreditWhere(filter)
	query := `SELECT TO_CHAR(date, 'YYYY-MM') AS month, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total FROM transactions ` + where +
		` GROUP BY month ORDER BY month ASC`
	rows := []models.FeeMonthTotal{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query collections by month: %w", err)
	}
	return rows, nil
}

func completedCreditWhere(filter models.FeeAnalyticsFilter) (string, []interface{}) {
	var builder strings.Builder
	builder.WriteString("WHERE status = $1 AND type = $2")
	args := []interface{}{models.TransactionStatusCompleted, models.TransactionTypeCredit}
	if filter.From != nil {
		args = append(args, *filter.From)
		builder.WriteString(fmt.Sprintf(" AND date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		builder.WriteString(fmt.Sprintf(" AND date < $%d", len(args)))
	}
	return builder.String(), args
}
