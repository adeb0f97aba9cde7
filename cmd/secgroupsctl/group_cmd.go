package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/secgroups/internal/authz/app"
)

func newGroupCmd() *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage security groups",
	}

	groupCmd.AddCommand(newGroupCreateCmd())
	groupCmd.AddCommand(newGroupListCmd())
	groupCmd.AddCommand(newGroupRenameCmd())
	groupCmd.AddCommand(newGroupDeleteCmd())

	return groupCmd
}

func newGroupCreateCmd() *cobra.Command {
	var (
		id     string
		hidden bool
	)

	cmd := &cobra.Command{
		Use:   "create <scope-id> <name>",
		Short: "Create a group in a scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				g, err := a.Groups.CreateGroup(ctx, args[0], id, args[1], !hidden, sessionID)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%s\trev=%d\t%s\n", g.ID, g.Revision, g.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "caller-supplied group key (default: assigned)")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "create the group with visibility off")
	return cmd
}

func newGroupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <scope-id>",
		Short: "List a scope's groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				groups, err := a.Groups.ListGroups(ctx, args[0])
				if err != nil {
					return err
				}
				for _, g := range groups {
					fmt.Fprintf(os.Stdout, "%s\trev=%d\tvisible=%t\t%s\n", g.ID, g.Revision, g.Visible, g.Name)
				}
				return nil
			})
		},
	}
}

func newGroupRenameCmd() *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:   "rename <group-id> <new-name>",
		Short: "Rename a group at the expected revision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				g, err := a.Groups.RenameGroup(ctx, args[0], revision, args[1], sessionID)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%s\trev=%d\t%s\n", g.ID, g.Revision, g.Name)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&revision, "revision", 0, "expected current revision of the group")
	_ = cmd.MarkFlagRequired("revision")
	return cmd
}

func newGroupDeleteCmd() *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete an unreferenced group at the expected revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				return a.Groups.DeleteGroup(ctx, args[0], revision, sessionID)
			})
		},
	}

	cmd.Flags().Int64Var(&revision, "revision", 0, "expected current revision of the group")
	_ = cmd.MarkFlagRequired("revision")
	return cmd
}
