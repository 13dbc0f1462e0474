// issue-token mints an access token for an account so operators can call
// the program API without a login flow. The signing secret comes from
// --secret or JWT_SECRET (a .env file is honored).
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ticketmint/event-program/internal/auth"
	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
)

var accountPattern = regexp.MustCompile(`^[A-Z0-9]{1,64}$`)

func main() {
	// Missing .env is fine.
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Getenv("JWT_SECRET"), os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func run(args []string, envSecret string, stdout, stderr io.Writer) error {
	var (
		account string
		role    string
		secret  string
		ttl     time.Duration
	)

	flagSet := pflag.NewFlagSet("issue-token", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&account, "account", "a", "", "account the token authenticates (required)")
	flagSet.StringVarP(&role, "role", "r", ports.RoleHolder, "caller role: holder, gate or organizer")
	flagSet.StringVar(&secret, "secret", envSecret, "HMAC signing secret (default $JWT_SECRET)")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	switch {
	case !accountPattern.MatchString(account):
		return fmt.Errorf("--account must be 1-64 uppercase letters or digits, got %q", account)
	case role != ports.RoleHolder && role != ports.RoleGate && role != ports.RoleOrganizer:
		return fmt.Errorf("unknown --role %q", role)
	case secret == "":
		return errors.New("no signing secret: set JWT_SECRET or pass --secret")
	case ttl <= 0:
		return errors.New("--ttl must be positive")
	}

	token, err := auth.NewTokenManager(secret, ttl).GenerateToken(domain.AccountID(account), role)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	_, err = fmt.Fprintln(stdout, token)
	return err
}
