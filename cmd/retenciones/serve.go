package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vinochelo/extractor/internal/ingest"
	"github.com/vinochelo/extractor/internal/server"
)

var (
	serveAddr  string
	serveInbox string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, optionally watching an inbox directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var owner string
		if serveInbox != "" {
			o, err := ownerID()
			if err != nil {
				return err
			}
			owner = o
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		srvCfg := cfg.Server
		if serveAddr != "" {
			srvCfg.HTTPAddr = serveAddr
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.NewServer(a.svc, srvCfg, logger).ListenAndServe(gctx)
		})
		if serveInbox != "" {
			g.Go(func() error {
				return runInbox(gctx, a, owner, serveInbox, true)
			})
		}
		return g.Wait()
	},
}

// runInbox watches dir and submits new PDFs for owner until ctx ends.
func runInbox(ctx context.Context, a *app, owner, dir string, initialScan bool) error {
	q := ingest.NewQueue(ingest.NewFSIngestor(a.svc, logger), logger,
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithQueueSize(cfg.Ingest.QueueSize),
		ingest.WithProcessTimeout(cfg.LLM.Timeout+30*time.Second),
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+30*time.Second)
		defer cancel()
		q.Shutdown(shutdownCtx)
	}()

	return ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: initialScan,
		SkipHidden:  true,
		Debounce:    cfg.Ingest.Debounce,
		Logger:      logger,
	}, owner, q)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveInbox, "inbox", "", "directory to watch for new PDFs")
	rootCmd.AddCommand(serveCmd)
}
