package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/service"
)

type fakeUsers struct {
	got   service.CreateUserRequest
	actor dto.Actor
}

func (f *fakeUsers) Create(_ context.Context, req service.CreateUserRequest, actor dto.Actor) (*models.User, error) {
	f.got = req
	f.actor = actor
	return &models.User{ID: "user-1", Email: req.Email, Role: req.Role}, nil
}

type fakeLedger struct {
	report   dto.LedgerReport
	fixCalls int
}

func (f *fakeLedger) Verify(context.Context) (*dto.LedgerReport, error) {
	return &f.report, nil
}

func (f *fakeLedger) Fix(context.Context, dto.Actor) (*dto.LedgerFixResult, error) {
	f.fixCalls++
	return &dto.LedgerFixResult{Fixed: 1, Corrections: []dto.LedgerCorrection{{
		StudentCode:       "STU001",
		PreviousFeesPaid:  decimal.RequireFromString("1500"),
		CorrectedFeesPaid: decimal.RequireFromString("1000"),
	}}}, nil
}

func setup() (*commandLine, *fakeUsers, *fakeLedger, *bytes.Buffer) {
	out := &bytes.Buffer{}
	users := &fakeUsers{}
	ledger := &fakeLedger{report: dto.LedgerReport{Healthy: true, Issues: []dto.LedgerIssue{}}}
	return &commandLine{
		out:     out,
		logger:  zap.NewNop(),
		migrate: func(context.Context) error { return nil },
		users:   users,
		ledger:  ledger,
	}, users, ledger, out
}

func withPassword(t *testing.T, pwd string, err error) {
	t.Helper()
	original := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = original })
}

func TestCommandLineUsage(t *testing.T) {
	cli, _, _, out := setup()
	assert.Equal(t, errHelp, cli.run(context.Background(), []string{"lms-admin"}))
	assert.Equal(t, errHelp, cli.run(context.Background(), []string{"lms-admin", "unknown"}))
	assert.Contains(t, out.String(), "create-user")
}

func TestCommandLineMigrate(t *testing.T) {
	cli, _, _, _ := setup()
	migrated := false
	cli.migrate = func(context.Context) error { migrated = true; return nil }
	require.NoError(t, cli.run(context.Background(), []string{"lms-admin", "migrate"}))
	assert.True(t, migrated)
}

func TestCommandLineCreateUser(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		password string
		pwdErr   error
		wantErr  error
	}{
		{name: "missing email", args: []string{"-name", "Ops"}, password: "secret123", wantErr: errHelp},
		{name: "empty password", args: []string{"-email", "ops@lms.test", "-name", "Ops"}, password: "", wantErr: errHelp},
		{name: "prompt failure", args: []string{"-email", "ops@lms.test", "-name", "Ops"}, pwdErr: errors.New("not a terminal"), wantErr: errors.New("not a terminal")},
		{name: "created", args: []string{"-email", "ops@lms.test", "-name", "Ops", "-role", "superadmin"}, password: "secret123"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cli, users, _, out := setup()
			withPassword(t, tc.password, tc.pwdErr)
			err := cli.run(context.Background(), append([]string{"lms-admin", "create-user"}, tc.args...))
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tc.wantErr.Error(), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.RoleSuperAdmin, users.got.Role)
			assert.Equal(t, "secret123", users.got.Password)
			assert.Equal(t, cliActor, users.actor)
			assert.Contains(t, out.String(), "created SUPERADMIN ops@lms.test")
		})
	}
}

func TestCommandLineVerifyLedger(t *testing.T) {
	cli, _, ledger, out := setup()
	require.NoError(t, cli.run(context.Background(), []string{"lms-admin", "verify-ledger"}))
	assert.Contains(t, out.String(), `"healthy": true`)

	ledger.report = dto.LedgerReport{Healthy: false, Summary: dto.LedgerSummary{IssuesFound: 2}}
	err := cli.run(context.Background(), []string{"lms-admin", "verify-ledger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 inconsistent")
}

func TestCommandLineFixLedgerNeedsConfirmation(t *testing.T) {
	cli, _, ledger, out := setup()
	assert.Equal(t, errHelp, cli.run(context.Background(), []string{"lms-admin", "fix-ledger"}))
	assert.Zero(t, ledger.fixCalls)

	out.Reset()
	require.NoError(t, cli.run(context.Background(), []string{"lms-admin", "fix-ledger", "-yes"}))
	assert.Equal(t, 1, ledger.fixCalls)
	assert.Contains(t, out.String(), `"fixed": 1`)
}
