package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/brd-generator/internal/llm"
	"github.com/jonathan/brd-generator/internal/server"
	"github.com/jonathan/brd-generator/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the project API over HTTP",
	Long: `Start the REST API for uploading files, classifying chunks and generating or editing BRDs.
Without an API key the server still ingests and lists projects; model endpoints answer 503.`,
	RunE: runServe,
}

var (
	servePort      int
	serveMaxUpload int64
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().Int64Var(&serveMaxUpload, "max-upload", server.DefaultMaxUploadBytes, "Largest accepted upload in bytes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client llm.Client
	if c, err := newLLMClient(ctx, a.cfg); err != nil {
		a.logger.Warn("model calls disabled", "error", err)
	} else {
		client = c
		defer func() { _ = client.Close() }()
	}

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rateCfg, err := ratelimit.LoadConfig()
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:           servePort,
		OwnerKey:       a.cfg.OwnerKey,
		MaxUploadBytes: serveMaxUpload,
		RateLimit:      rateCfg,
		Logger:         a.logger,
	}, store, a.runner(client))
	return srv.Start(ctx)
}
