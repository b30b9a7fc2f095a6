package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"canvaslink/internal/application/commands"
	"canvaslink/internal/bootstrap"
)

var resetConfirm bool

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List linkage groups",
	Long: `List every linkage group with its members.

Examples:
  canvaslink-cli groups
  canvaslink-cli groups unlink 6f1c...
  canvaslink-cli groups remove MapC2.canvas
  canvaslink-cli groups reset --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), bootstrap.Options{}, func(rt *bootstrap.Runtime) error {
			groups, err := commands.NewListGroupsCommand(rt.Registry).Execute(cmd.Context())
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Println("No linkage groups")
				return nil
			}

			for _, g := range groups {
				synced := "never synced"
				if !g.LastSyncedAt.IsZero() {
					synced = "synced " + g.LastSyncedAt.Local().Format(time.DateTime)
				}
				fmt.Printf("%s (%s)\n", g.ID, synced)
				for _, m := range g.Members {
					fmt.Printf("  %s\n", m)
				}
			}
			return nil
		})
	},
}

var groupsUnlinkCmd = &cobra.Command{
	Use:   "unlink <group-id>",
	Short: "Remove a linkage group, keeping its canvases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), bootstrap.Options{}, func(rt *bootstrap.Runtime) error {
			result, err := commands.NewUnlinkGroupCommand(rt.Registry, args[0]).Execute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		})
	},
}

var groupsRemoveCmd = &cobra.Command{
	Use:   "remove <canvas>",
	Short: "Take one canvas out of its group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), bootstrap.Options{}, func(rt *bootstrap.Runtime) error {
			result, err := commands.NewUnlinkDocumentCommand(rt.Registry, args[0]).Execute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		})
	},
}

var groupsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every linkage group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirm {
			return errors.New("reset removes every linkage group; pass --yes to confirm")
		}
		return withRuntime(cmd.Context(), bootstrap.Options{}, func(rt *bootstrap.Runtime) error {
			result, err := commands.NewResetGroupsCommand(rt.Registry).Execute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		})
	},
}

func init() {
	groupsResetCmd.Flags().BoolVarP(&resetConfirm, "yes", "y", false, "confirm the reset")

	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsUnlinkCmd)
	groupsCmd.AddCommand(groupsRemoveCmd)
	groupsCmd.AddCommand(groupsResetCmd)
}
