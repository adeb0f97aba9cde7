package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/secgroups/internal/authz/app"
	"github.com/aussiebroadwan/secgroups/pkg/slogx"
)

var sessionID string

// execute runs the CLI and returns the process exit code.
func execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "secgroupsctl",
		Short:         "Administer the security-group membership store",
		Long:          "Administrative tooling for the group-inclusion membership data layer: groups, inclusion edges, direct memberships, resolution queries and the audit trail.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Every administrative action runs under a session id so the
			// audit trail can attribute it. Generate one when not supplied.
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id recorded in the audit trail (default: fresh UUID)")

	rootCmd.AddCommand(newGroupCmd())
	rootCmd.AddCommand(newIncludeCmd())
	rootCmd.AddCommand(newMemberCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newAuditCmd())

	return rootCmd
}

// withApp opens the store, runs fn and closes it again. CLI invocations are
// one-shot, so there is no long-lived application process to connect to. The
// context carries a session-scoped logger so every log line can be attributed.
func withApp(fn func(context.Context, *app.Application) error) error {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	ctx := slogx.WithContext(context.Background(), application.Logger())
	ctx = slogx.WithSessionID(ctx, sessionID)

	return fn(ctx, application)
}
