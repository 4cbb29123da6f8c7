package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
)

// fakeLedger keeps students, transactions and audit rows in memory with the same
// compare-and-set and status-machine rules as the Postgres repositories.
type fakeLedger struct {
	mu       sync.Mutex
	students map[string]*models.Student
	txns     []*models.Transaction
	audits   []*models.AuditLog
	receipts int
	codes    int

	// beforeCAS runs outside the lock just before a balance compare-and-set.
	beforeCAS func(id string)
	// beforeCancel runs outside the lock just before a credit is voided.
	beforeCancel func(studentID string)
	casErr       error
	createErr    error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{students: make(map[string]*models.Student)}
}

func (l *fakeLedger) studentRepo() *fakeStudentRepo { return &fakeStudentRepo{l} }
func (l *fakeLedger) txnRepo() *fakeTxnRepo         { return &fakeTxnRepo{l} }

// addStudent seeds a student whose balance is backed by a single down payment credit.
func (l *fakeLedger) addStudent(name string, feeOffered, downPayment string) *models.Student {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.codes++
	s := &models.Student{
		ID:          uuid.NewString(),
		Code:        fmt.Sprintf("STU%03d", l.codes),
		Name:        name,
		Email:       strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Course:      "Data Science",
		Status:      models.StudentStatusActive,
		FeeOffered:  decimal.RequireFromString(feeOffered),
		DownPayment: decimal.RequireFromString(downPayment),
		FeesPaid:    decimal.RequireFromString(downPayment),
		JoinedDate:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	l.students[s.ID] = s
	if s.DownPayment.IsPositive() {
		l.insertLocked(&models.Transaction{
			StudentID:   s.ID,
			StudentName: s.Name,
			Amount:      s.DownPayment,
			Type:        models.TransactionTypeCredit,
			Date:        s.JoinedDate,
			Status:      models.TransactionStatusCompleted,
			PaymentMode: models.PaymentModeCash,
			NewBalance:  s.DownPayment,
			Description: models.DownPaymentDescription,
		})
	}
	copy := *s
	return &copy
}

func (l *fakeLedger) balance(id string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.students[id].FeesPaid
}

func (l *fakeLedger) setBalance(id string, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.students[id].FeesPaid = decimal.RequireFromString(value)
}

func (l *fakeLedger) ledgerTotal(id string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, t := range l.txns {
		if t.StudentID == id && t.CountsTowardBalance() {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func (l *fakeLedger) transactions() []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Transaction, 0, len(l.txns))
	for _, t := range l.txns {
		out = append(out, *t)
	}
	return out
}

func (l *fakeLedger) auditActions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var actions []string
	for _, a := range l.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

func (l *fakeLedger) insertLocked(txn *models.Transaction) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	l.receipts++
	txn.ReceiptNumber = models.FormatReceiptNumber(models.ReceiptPeriod(txn.Date, time.UTC), l.receipts)
	copy := *txn
	l.txns = append(l.txns, &copy)
}

func (l *fakeLedger) findTxnLocked(id string) *models.Transaction {
	for _, t := range l.txns {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (l *fakeLedger) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audits = append(l.audits, log)
	return nil
}

type fakeStudentRepo struct{ *fakeLedger }

func (r *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *s
	return &copy, nil
}

func (r *fakeStudentRepo) FindByCode(ctx context.Context, code string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if strings.EqualFold(s.Code, code) {
			copy := *s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	all, _ := r.ListAll(ctx)
	var out []models.Student
	for _, s := range all {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *fakeStudentRepo) ListAll(ctx context.Context) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Student, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *fakeStudentRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if strings.EqualFold(s.Email, email) && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeStudentRepo) CreateWithDownPayment(ctx context.Context, student *models.Student, downPayment *models.Transaction) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if strings.EqualFold(s.Email, student.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	r.codes++
	student.ID = uuid.NewString()
	student.Code = fmt.Sprintf("STU%03d", r.codes)
	student.FeesPaid = student.DownPayment
	copy := *student
	r.students[student.ID] = &copy
	if downPayment != nil {
		downPayment.StudentID = student.ID
		downPayment.StudentName = student.Name
		r.insertLocked(downPayment)
		downPayment.ReceiptNumber = r.txns[len(r.txns)-1].ReceiptNumber
		downPayment.ID = r.txns[len(r.txns)-1].ID
	}
	return nil
}

func (r *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.students[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	updated := *student
	updated.FeesPaid = existing.FeesPaid
	updated.DownPayment = existing.DownPayment
	r.students[student.ID] = &updated
	return nil
}

func (r *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.students, id)
	return nil
}

func (r *fakeStudentRepo) UpdateFeesPaidIf(ctx context.Context, id string, expected, next decimal.Decimal) error {
	if r.beforeCAS != nil {
		r.beforeCAS(id)
	}
	if r.casErr != nil {
		return r.casErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	if !s.FeesPaid.Equal(expected) {
		return repository.ErrBalanceChanged
	}
	s.FeesPaid = next
	return nil
}

type fakeTxnRepo struct{ *fakeLedger }

func (r *fakeTxnRepo) Create(ctx context.Context, txn *models.Transaction) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(txn)
	stored := r.txns[len(r.txns)-1]
	txn.ID = stored.ID
	txn.ReceiptNumber = stored.ReceiptNumber
	return nil
}

func (r *fakeTxnRepo) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.findTxnLocked(id)
	if t == nil {
		return nil, sql.ErrNoRows
	}
	copy := *t
	return &copy, nil
}

func (r *fakeTxnRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for i := len(r.txns) - 1; i >= 0; i-- {
		if r.txns[i].StudentID == studentID {
			out = append(out, *r.txns[i])
		}
	}
	return out, nil
}

func (r *fakeTxnRepo) ListCompletedCredits(ctx context.Context, studentID string) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, t := range r.txns {
		if t.StudentID == studentID && t.CountsTowardBalance() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTxnRepo) SumCompletedCredits(ctx context.Context) (map[string]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := make(map[string]decimal.Decimal)
	for _, t := range r.txns {
		if t.CountsTowardBalance() {
			totals[t.StudentID] = totals[t.StudentID].Add(t.Amount)
		}
	}
	return totals, nil
}

func (r *fakeTxnRepo) TransitionStatus(ctx context.Context, id string, from, to models.TransactionStatus, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !models.CanTransition(from, to) {
		return repository.ErrInvalidTransition
	}
	t := r.findTxnLocked(id)
	if t == nil {
		return sql.ErrNoRows
	}
	if t.Status != from {
		return repository.ErrInvalidTransition
	}
	t.Status = to
	if note != "" {
		if t.Notes != "" {
			t.Notes += "\n"
		}
		t.Notes += note
	}
	return nil
}

func (r *fakeTxnRepo) UpdateNotes(ctx context.Context, id, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.findTxnLocked(id)
	if t == nil {
		return sql.ErrNoRows
	}
	t.Notes = notes
	return nil
}

func (r *fakeTxnRepo) CancelCredit(ctx context.Context, txn *models.Transaction, expectedBalance, nextBalance decimal.Decimal, note string) error {
	if r.beforeCancel != nil {
		r.beforeCancel(txn.StudentID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.findTxnLocked(txn.ID)
	if t == nil {
		return sql.ErrNoRows
	}
	if t.Status != models.TransactionStatusCompleted {
		return repository.ErrInvalidTransition
	}
	s, ok := r.students[t.StudentID]
	if !ok {
		return sql.ErrNoRows
	}
	if !s.FeesPaid.Equal(expectedBalance) {
		return repository.ErrBalanceChanged
	}
	t.Status = models.TransactionStatusCancelled
	if t.Notes != "" {
		t.Notes += "\n"
	}
	t.Notes += note
	s.FeesPaid = nextBalance
	return nil
}
