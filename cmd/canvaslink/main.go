package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"canvaslink/internal/adapters/editor"
	"canvaslink/internal/adapters/notice"
	"canvaslink/internal/adapters/tui"
	"canvaslink/internal/adapters/tui/views"
	"canvaslink/internal/bootstrap"
	"canvaslink/internal/config"
	"canvaslink/internal/ports"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "config file (default "+config.DefaultPath()+")")
	vaultFlag := flag.String("vault", "", "path to the vault")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}
	if *vaultFlag != "" {
		cfg.Vault = config.ExpandHome(*vaultFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Notices from propagation land in the status line
	var program atomic.Pointer[tea.Program]
	notifier := notice.Func(func(n ports.Notice) {
		if p := program.Load(); p != nil {
			p.Send(views.NoticeMsg{Notice: n})
		}
	})

	rt, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		LogOutput: io.Discard,
		Notifier:  notifier,
		Watch:     true,
	})
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	if err := rt.Start(ctx); err != nil {
		return err
	}
	go rt.PollRegistry(ctx, cfg.Watch.RegistryPoll)

	app := tui.NewApp(tui.Deps{
		Registry: rt.Registry,
		Engine:   rt.Engine,
		Store:    rt.Store,
		Opener:   rt.Opener,
		Editor:   editor.NewOpener(),
		AbsPath:  rt.Repo.GetPath,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	program.Store(p)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
