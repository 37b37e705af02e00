package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/metrics"
	"github.com/ppiankov/clausewise/internal/pipeline"
	"github.com/ppiankov/clausewise/internal/server"
	"github.com/ppiankov/clausewise/internal/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the contract analysis HTTP API",
	Long: `Serve starts the HTTP API:

  POST   /contracts                    upload a contract (multipart field "file")
  GET    /contracts                    list stored contracts
  GET    /contracts/{id}               stored contract with text
  DELETE /contracts/{id}               delete a contract
  GET    /contracts/{id}/clauses       typed clauses
  GET    /contracts/{id}/obligations   obligations
  GET    /contracts/{id}/rights        rights
  GET    /contracts/{id}/risk?type=    risk report calibrated for the type
  GET    /contracts/{id}/metadata      document metadata
  POST   /analyze                      analyze {"text", "contract_type"} or {"contract_id"}
  GET    /health                       liveness
  GET    /metrics                      Prometheus metrics

Example:
  clausewise serve --addr :8080
  CLAUSEWISE_STORE_DRIVER=postgres CLAUSEWISE_STORE_DSN=postgres://... clausewise serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().String("store-driver", "", "contract store driver (sqlite, postgres)")
	serveCmd.Flags().String("store-dsn", "", "contract store DSN")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("store.driver", serveCmd.Flags().Lookup("store-driver"))
	_ = viper.BindPFlag("store.dsn", serveCmd.Flags().Lookup("store-dsn"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn(context.Background(), "Failed to close store", logger.Error(err))
		}
	}()

	m := metrics.NewManager()
	analyzer := pipeline.NewAnalyzer(cfg, pipeline.WithLogger(log), pipeline.WithMetrics(m))

	warmCtx, cancel := context.WithTimeout(ctx, warmTimeout)
	if err := analyzer.Warm(warmCtx); err != nil {
		log.Warn(ctx, "Model classifier unavailable at startup, rules will be used until it loads",
			logger.String("provider", cfg.LLM.Provider),
			logger.Error(err))
	}
	cancel()

	log.Info(ctx, "Starting server",
		logger.String("addr", cfg.Server.Addr),
		logger.String("store", cfg.Store.Driver),
		logger.String("llm_provider", cfg.LLM.Provider),
		logger.Bool("model_classifier", cfg.Classifier.UseModel),
		logger.Bool("risk_signal", cfg.Classifier.RiskSignal))

	srv := server.New(cfg.Server, analyzer, st,
		server.WithLogger(log.Named("http")),
		server.WithMetrics(m))
	return srv.ListenAndServe(ctx)
}
