package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"canvaslink/internal/application/commands"
	"canvaslink/internal/bootstrap"
	"canvaslink/internal/domain"
)

var nodeSpec commands.NodeSpec

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Edit canvas nodes and propagate the edit to linked canvases",
	Long: `Apply a structural edit to a canvas. When the canvas is linked, the
same edit is applied to every other member of its group.

Examples:
  canvaslink-cli node create Map.canvas --type text --content "Idea"
  canvaslink-cli node create Map.canvas --type file --content notes/idea.md --x 300
  canvaslink-cli node set-text Map.canvas 1f2e3d "Better idea"
  canvaslink-cli node delete Map.canvas 1f2e3d`,
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create <canvas>",
	Short: "Add a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := nodeSpec.Build()
		if err != nil {
			return err
		}
		return runNodeEdit(cmd, func(rt *bootstrap.Runtime) *commands.EditNodeCommand {
			return commands.NewCreateNodeCommand(rt.Store, rt.Engine, rt.Registry, args[0], node)
		})
	},
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete <canvas> <node-id>",
	Short: "Remove a node and the edges touching it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNodeEdit(cmd, func(rt *bootstrap.Runtime) *commands.EditNodeCommand {
			return commands.NewDeleteNodeCommand(rt.Store, rt.Engine, rt.Registry, args[0], args[1])
		})
	},
}

var nodeSetTextCmd = &cobra.Command{
	Use:   "set-text <canvas> <node-id> <text>",
	Short: "Replace the text of a node",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNodeEdit(cmd, func(rt *bootstrap.Runtime) *commands.EditNodeCommand {
			return commands.NewSetNodeTextCommand(rt.Store, rt.Engine, rt.Registry, args[0], args[1], args[2])
		})
	},
}

func runNodeEdit(cmd *cobra.Command, build func(rt *bootstrap.Runtime) *commands.EditNodeCommand) error {
	return withRuntime(cmd.Context(), bootstrap.Options{}, func(rt *bootstrap.Runtime) error {
		result, err := build(rt).Execute(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	})
}

func init() {
	flags := nodeCreateCmd.Flags()
	flags.StringVar(&nodeSpec.ID, "id", "", "node id (default: generated)")
	flags.StringVarP((*string)(&nodeSpec.Type), "type", "t", string(domain.NodeTypeText), "node type: text, file, link or group")
	flags.StringVar(&nodeSpec.Content, "content", "", "text, file path, URL or group label")
	flags.IntVar(&nodeSpec.X, "x", 0, "x position")
	flags.IntVar(&nodeSpec.Y, "y", 0, "y position")
	flags.IntVar(&nodeSpec.Width, "width", commands.DefaultNodeWidth, "width")
	flags.IntVar(&nodeSpec.Height, "height", commands.DefaultNodeHeight, "height")

	rootCmd.AddCommand(nodeCmd)
	nodeCmd.AddCommand(nodeCreateCmd)
	nodeCmd.AddCommand(nodeDeleteCmd)
	nodeCmd.AddCommand(nodeSetTextCmd)
}
