package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/secgroups/internal/authz/app"
)

func newResolveCmd() *cobra.Command {
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve transitive group membership",
	}

	resolveCmd.AddCommand(&cobra.Command{
		Use:   "groups <scope-id> <user-id>",
		Short: "Every group the user effectively belongs to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				groups, err := a.Resolution.EffectiveGroupsOf(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				for _, g := range groups {
					fmt.Fprintln(os.Stdout, g)
				}
				return nil
			})
		},
	})

	resolveCmd.AddCommand(&cobra.Command{
		Use:   "members <scope-id> <group-id>",
		Short: "Every user effectively in the group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				users, err := a.Resolution.EffectiveMembersOf(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				for _, u := range users {
					fmt.Fprintln(os.Stdout, u)
				}
				return nil
			})
		},
	})

	return resolveCmd
}

func newAuditCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "audit <subject-id>",
		Short: "Show a subject's audit trail in timestamp order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				if verify {
					if err := a.Audit.VerifyTrail(ctx, args[0]); err != nil {
						return err
					}
				}

				records, err := a.Audit.RecordsFor(ctx, args[0])
				if err != nil {
					return err
				}
				for _, rec := range records {
					fmt.Fprintf(os.Stdout, "%s\t%s\trev=%d\tsession=%s\t%s\n",
						rec.Time().Format("2006-01-02T15:04:05.000000Z"),
						rec.Action, rec.Revision, rec.SessionID, rec.Snapshot)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "re-check snapshot fingerprints before printing")
	return cmd
}
