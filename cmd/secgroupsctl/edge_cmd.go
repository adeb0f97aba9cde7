package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/secgroups/internal/authz/app"
)

func newIncludeCmd() *cobra.Command {
	includeCmd := &cobra.Command{
		Use:   "include",
		Short: "Manage group-inclusion edges",
	}

	includeCmd.AddCommand(newIncludeAddCmd())
	includeCmd.AddCommand(newIncludeRemoveCmd())

	return includeCmd
}

func newIncludeAddCmd() *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:   "add <scope-id> <container-group-id> <subgroup-id>",
		Short: "Make one group a subgroup of another",
		Long:  "Adds an inclusion edge after the cycle check. --revision is the container group's expected revision; the container is bumped alongside the edge insert.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				edge, newRev, err := a.Inclusions.AddInclusion(ctx, args[0], args[1], args[2], revision, sessionID)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%s\tcontainer-rev=%d\n", edge.ID, newRev)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&revision, "revision", 0, "expected current revision of the container group")
	_ = cmd.MarkFlagRequired("revision")
	return cmd
}

func newIncludeRemoveCmd() *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:   "remove <scope-id> <container-group-id> <subgroup-id>",
		Short: "Remove an inclusion edge at its expected revision",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				return a.Inclusions.RemoveInclusion(ctx, args[0], args[1], args[2], revision, sessionID)
			})
		},
	}

	cmd.Flags().Int64Var(&revision, "revision", 0, "expected current revision of the edge")
	_ = cmd.MarkFlagRequired("revision")
	return cmd
}

func newMemberCmd() *cobra.Command {
	memberCmd := &cobra.Command{
		Use:   "member",
		Short: "Manage direct user memberships",
	}

	memberCmd.AddCommand(newMemberAddCmd())
	memberCmd.AddCommand(newMemberRemoveCmd())

	return memberCmd
}

func newMemberAddCmd() *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:   "add <scope-id> <group-id> <user-id>",
		Short: "Place a user directly into a group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				edge, newRev, err := a.Memberships.AddMembership(ctx, args[0], args[1], args[2], revision, sessionID)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%s\tgroup-rev=%d\n", edge.ID, newRev)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&revision, "revision", 0, "expected current revision of the group")
	_ = cmd.MarkFlagRequired("revision")
	return cmd
}

func newMemberRemoveCmd() *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:   "remove <scope-id> <group-id> <user-id>",
		Short: "Remove a user's direct membership at its expected revision",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				return a.Memberships.RemoveMembership(ctx, args[0], args[1], args[2], revision, sessionID)
			})
		},
	}

	cmd.Flags().Int64Var(&revision, "revision", 0, "expected current revision of the edge")
	_ = cmd.MarkFlagRequired("revision")
	return cmd
}
