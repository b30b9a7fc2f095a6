package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"canvaslink/internal/adapters/notice"
	"canvaslink/internal/bootstrap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Propagate edits made in Obsidian to linked canvases",
	Long: `Watch the vault and apply every structural edit of a linked canvas
to the rest of its group. Runs until interrupted.

Groups changed by other canvaslink processes are picked up every
watch.registry_poll. Set metrics_addr (or CANVASLINK_METRICS_ADDR) to
serve Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := bootstrap.Options{
			Notifier: notice.NewConsole(os.Stdout, nil),
			Watch:    true,
			Metrics:  cfg.MetricsAddr != "",
		}
		return withRuntime(cmd.Context(), opts, func(rt *bootstrap.Runtime) error {
			return watch(cmd.Context(), rt)
		})
	},
}

func watch(ctx context.Context, rt *bootstrap.Runtime) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := rt.Start(ctx); err != nil {
			return err
		}
		fmt.Printf("Watching %s (%d groups)\n", rt.Repo.VaultPath(), len(rt.Registry.All()))
		<-ctx.Done()
		return nil
	})

	g.Go(func() error {
		return rt.PollRegistry(ctx, rt.Config.Watch.RegistryPoll)
	})

	if rt.Metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rt.Metrics.Handler())
		srv := &http.Server{
			Addr:              rt.Config.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			rt.Logger.Info("serving metrics", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
