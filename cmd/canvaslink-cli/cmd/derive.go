package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"canvaslink/internal/application/commands"
	"canvaslink/internal/bootstrap"
)

var deriveOpen bool

var deriveCmd = &cobra.Command{
	Use:   "derive <canvas>",
	Short: "Create the next linked version of a canvas",
	Long: `Copy a canvas to its next version name and link both.

The version name keeps the source's prefix (its name without a trailing
"C<digits>") and numbers the copy one past the highest version of that
prefix in the source's group. An ungrouped source gets its own number
plus one. Nothing is overwritten: if that name is already taken the
derivation fails.

Examples:
  canvaslink-cli derive Map.canvas          # creates MapC1.canvas
  canvaslink-cli derive boards/MapC1.canvas # creates boards/MapC2.canvas
  canvaslink-cli derive MapC1.canvas        # group {Map, MapC1, MapC3}: creates MapC4.canvas
  canvaslink-cli derive Map.canvas --open`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), bootstrap.Options{}, func(rt *bootstrap.Runtime) error {
			deriveCmd := commands.NewDeriveCommand(rt.Engine, rt.Opener, args[0], deriveOpen)
			result, err := deriveCmd.Execute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		})
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <canvas> <canvas>...",
	Short: "Link existing canvases",
	Long: `Put canvases in the same linkage group.

If one of them already belongs to a group, the others join it.
Linking canvases from two different groups is refused.

Examples:
  canvaslink-cli link Map.canvas Plan.canvas
  canvaslink-cli link MapC1.canvas Archive/Map-old.canvas`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), bootstrap.Options{}, func(rt *bootstrap.Runtime) error {
			linkCmd := commands.NewLinkCommand(rt.Registry, rt.Store, args)
			result, err := linkCmd.Execute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		})
	},
}

func init() {
	deriveCmd.Flags().BoolVarP(&deriveOpen, "open", "o", false, "open the new version in Obsidian")
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(linkCmd)
}
