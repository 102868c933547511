package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"obra-dashboard/internal/api"
	"obra-dashboard/internal/config"
	"obra-dashboard/internal/logging"
	"obra-dashboard/internal/service"
	"obra-dashboard/internal/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	portFlag   string
	csvURLFlag string
	formatFlag string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "obra",
	Short: "Backend of the obra progress dashboard",
	Long: `Fetches the published progress report of the obra, normalizes its columns
into the dashboard schema and serves the result to the dashboard renderer.

When the report cannot be loaded a built-in sample dataset is served instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if portFlag != "" {
			cfg.Server.Port = portFlag
		}
		if csvURLFlag != "" {
			cfg.Source.Type = "csv"
			cfg.Source.CSVURL = csvURLFlag
		}
		logger, err = logging.New(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	RunE:  runServe,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one ingestion and print the records",
	RunE:  runFetch,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "obra.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&csvURLFlag, "csv-url", "", "published CSV report URL or file path")
	serveCmd.Flags().StringVarP(&portFlag, "port", "p", "", "HTTP port")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	fetchCmd.Flags().StringVarP(&formatFlag, "format", "f", "json", "output format: json or csv")

	rootCmd.AddCommand(serveCmd, fetchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildLoader(c *config.Config) (service.Loader, error) {
	src := c.Source
	switch src.Type {
	case "sql":
		return service.NewSQLLoader(service.DataSourceConfig{
			Driver:  src.SQL.Driver,
			DSN:     src.SQL.DSN,
			Table:   src.SQL.Table,
			Limit:   src.SQL.Limit,
			Timeout: c.GetFetchTimeout(),
		})
	default:
		l := service.NewCSVLoader(src.CSVURL)
		l.Timeout = c.GetFetchTimeout()
		if src.MaxBodyBytes > 0 {
			l.MaxBodyBytes = src.MaxBodyBytes
		}
		return l, nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	loader, err := buildLoader(cfg)
	if err != nil {
		return err
	}
	store := state.NewStore()
	ingestor := service.NewIngestor(loader, store, logger)
	handler := api.NewHandler(ingestor, store, logger)

	// Router Setup
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// CORS - Allow the dashboard renderer
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Obra Dashboard Backend is Running"))
	})
	handler.RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", zap.String("addr", srv.Addr), zap.Strings("cors", cfg.Server.AllowedOrigins))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Initial load, as when the dashboard is first opened
		_, err := ingestor.Refresh(gctx)
		if errors.Is(err, service.ErrRefreshInProgress) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runFetch(cmd *cobra.Command, args []string) error {
	loader, err := buildLoader(cfg)
	if err != nil {
		return err
	}
	store := state.NewStore()
	snap, err := service.NewIngestor(loader, store, logger).Refresh(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch formatFlag {
	case "csv":
		w := csv.NewWriter(out)
		w.Comma = ';'
		return gocsv.MarshalCSV(&snap.Records, w)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("unknown format %q", formatFlag)
	}
}
