package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/service"
)

var (
	readPasswordFunc = term.ReadPassword

	errHelp = errors.New("help provided")
)

// cliActor is recorded on audit rows written from the command line.
var cliActor = dto.Actor{Name: "lms-admin", Role: models.RoleSuperAdmin, UserAgent: "lms-admin-cli"}

type userCreator interface {
	Create(ctx context.Context, req service.CreateUserRequest, actor dto.Actor) (*models.User, error)
}

type ledgerChecker interface {
	Verify(ctx context.Context) (*dto.LedgerReport, error)
	Fix(ctx context.Context, actor dto.Actor) (*dto.LedgerFixResult, error)
}

type commandLine struct {
	out     io.Writer
	logger  *zap.Logger
	migrate func(ctx context.Context) error
	users   userCreator
	ledger  ledgerChecker
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                          - apply the database schema")
	fmt.Fprintln(cli.out, "  create-user -email EMAIL -name NAME [-role ROLE] - create a staff account, password is prompted")
	fmt.Fprintln(cli.out, "  verify-ledger                                    - print the ledger consistency report as JSON")
	fmt.Fprintln(cli.out, "  fix-ledger -yes                                  - overwrite drifted balances with ledger totals")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(ctx)
	case "create-user":
		return cli.createUser(ctx, args[2:])
	case "verify-ledger":
		report, err := cli.ledger.Verify(ctx)
		if err != nil {
			return err
		}
		if err := cli.printJSON(report); err != nil {
			return err
		}
		if !report.Healthy {
			return fmt.Errorf("ledger has %d inconsistent balances", report.Summary.IssuesFound)
		}
		return nil
	case "fix-ledger":
		return cli.fixLedger(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) createUser(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("create-user", flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	email := cmd.String("email", "", "The user's email, used to log in.")
	name := cmd.String("name", "", "The user's full name.")
	role := cmd.String("role", string(models.RoleAdmin), "SUPERADMIN or ADMIN.")
	if err := cmd.Parse(args); err != nil {
		return errHelp
	}
	if *email == "" || *name == "" {
		cmd.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return errHelp
	}

	user, err := cli.users.Create(ctx, service.CreateUserRequest{
		Email:    *email,
		FullName: *name,
		Role:     models.UserRole(strings.ToUpper(*role)),
		Password: string(pwd),
	}, cliActor)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}

func (cli *commandLine) fixLedger(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("fix-ledger", flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	confirmed := cmd.Bool("yes", false, "Confirm that drifted balances should be overwritten.")
	if err := cmd.Parse(args); err != nil {
		return errHelp
	}
	if !*confirmed {
		fmt.Fprintln(cli.out, "refusing to modify balances without -yes")
		return errHelp
	}

	result, err := cli.ledger.Fix(ctx, cliActor)
	if err != nil {
		return err
	}
	for _, c := range result.Corrections {
		cli.logger.Info("balance corrected",
			zap.String("student_code", c.StudentCode),
			zap.String("previous", c.PreviousFeesPaid.StringFixed(models.Cents)),
			zap.String("corrected", c.CorrectedFeesPaid.StringFixed(models.Cents)))
	}
	for _, s := range result.Skipped {
		cli.logger.Warn("balance moved during fix, skipped", zap.String("student_code", s.StudentCode))
	}
	return cli.printJSON(result)
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
