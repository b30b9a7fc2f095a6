package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"canvaslink/internal/bootstrap"
	"canvaslink/internal/config"
)

var (
	vaultPath  string
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "canvaslink-cli",
	Short: "Keep linked Obsidian canvases in sync",
	Long: `canvaslink-cli manages linkage groups of Obsidian canvases.

Canvases in the same group share structural edits: a node created,
deleted or retitled in one member is applied to every other member.
New members are usually derived from an existing canvas ("MapC1",
"MapC2", ...) but any canvases can be linked by hand.

Run "canvaslink-cli watch" to propagate edits made in Obsidian.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("vault") {
			loaded.Vault = config.ExpandHome(vaultPath)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&vaultPath, "vault", "v", config.VaultPath(), "path to the vault")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
}

// withRuntime opens the vault, runs fn and closes the runtime, waiting for
// queued propagation to finish
func withRuntime(ctx context.Context, opts bootstrap.Options, fn func(rt *bootstrap.Runtime) error) (err error) {
	rt, err := bootstrap.New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(rt)
}
