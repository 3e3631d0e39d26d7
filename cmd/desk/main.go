// Command desk is the terminal dashboard for reviewing product submissions.
//
//	DESK_CLIENT_PASSWORD=... desk --server http://localhost:8080
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/product-desk/internal/desk"
	"github.com/xenking/product-desk/internal/gateway"
	"github.com/xenking/product-desk/internal/reconcile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "desk:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := desk.LoadConfig()
	if err != nil {
		return err
	}

	logCfg := zap.NewDevelopmentConfig()
	logCfg.OutputPaths = []string{cfg.LogFile}
	logCfg.ErrorOutputPaths = []string{cfg.LogFile}
	lg, err := logCfg.Build()
	if err != nil {
		return errors.Wrap(err, "logger")
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client, err := gateway.NewClient(cfg.ServerURL)
	if err != nil {
		return err
	}
	loginCtx, loginCancel := context.WithTimeout(ctx, 10*time.Second)
	role, err := client.Login(loginCtx, cfg.Password)
	loginCancel()
	if err != nil {
		return errors.Wrap(err, "login")
	}
	lg.Info("Signed in", zap.String("server", cfg.ServerURL), zap.String("role", string(role)))

	var p *tea.Program
	engine := reconcile.New(client, role,
		reconcile.WithLogger(lg.Named("reconcile")),
		reconcile.WithBulkConcurrency(cfg.BulkConcurrency),
		reconcile.WithObserver(func(s reconcile.Snapshot) {
			if p != nil {
				p.Send(desk.SnapshotMsg(s))
			}
		}),
	)

	p = tea.NewProgram(desk.New(desk.Options{
		Context:   ctx,
		Engine:    engine,
		Logger:    lg.Named("ui"),
		PrefsPath: cfg.PrefsPath,
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run dashboard")
	}
	return nil
}
