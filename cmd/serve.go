package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelsmith/tailor-cli/internal/api"
	"github.com/modelsmith/tailor-cli/internal/retrieval"
	"github.com/spf13/cobra"
)

var (
	flagServeHost string
	flagServePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the retrieval HTTP API",
	Long: `Serve the model catalog and retrieval over HTTP: GET /v1/models,
POST /v1/retrieve, GET /health, and Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeHost, "host", "", "Listen host (default from config)")
	serveCmd.Flags().IntVar(&flagServePort, "port", 0, "Listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host = flagServeHost
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port = flagServePort
	}

	retriever, cat, err := newRetriever(cfg, retrieval.Options{})
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(cat, retriever, version).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("tailor serving on http://%s\n", addr)
	fmt.Printf("  Catalog: %d model(s) from %s\n", cat.Len(), cfg.CatalogDir)
	fmt.Printf("  Metrics: http://%s/metrics\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
