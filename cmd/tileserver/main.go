// Command tileserver serves a raster tile pyramid over HTTP: one
// worker-pooled handler per request, raw bytes forwarded straight out
// of a container wherever possible, metrics on /metrics, health on
// /healthz.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pspoerri/rastertiles/internal/config"
	"github.com/pspoerri/rastertiles/internal/logging"
	"github.com/pspoerri/rastertiles/internal/server"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tileserver",
	Short: "Serve a raster tile pyramid over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./tileserver.yaml)")
	rootCmd.Flags().String("addr", ":8080", "listen address")
	rootCmd.Flags().Int("concurrency", 0, "max concurrent tile requests (0 = number of CPUs)")
	rootCmd.Flags().StringSlice("allowed-origins", []string{"*"}, "CORS allowed origins")
	rootCmd.Flags().Bool("debug", false, "enable debug-level logging")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, rootCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
	mustBind("addr", "addr")
	mustBind("concurrency", "concurrency")
	mustBind("allowed_origins", "allowed-origins")
	mustBind("debug", "debug")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("tileserver")
	}
	viper.SetEnvPrefix("TILESERVER")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.ReadInConfig() // a missing config file just means flags/env alone describe the process
}

func runServe(cmd *cobra.Command, args []string) error {
	initConfig()

	var cfg config.ServerConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("tileserver: decode config: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("tileserver: build logger: %w", err)
	}
	defer logger.Sync()

	pyramids, err := config.BuildPyramids(cfg)
	if err != nil {
		return fmt.Errorf("tileserver: %w", err)
	}
	ctx := config.NewContext(logger, pyramids, cfg.Concurrency)
	defer ctx.Close()

	reg := prometheus.NewRegistry()
	handler := server.NewHandler(pyramids, server.Options{
		Concurrency:    cfg.Concurrency,
		Logger:         logger,
		MetricsReg:     reg,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", zap.String("addr", cfg.Addr), zap.Int("layers", len(pyramids)))

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("tileserver: %w", err)
		}
	case <-sig:
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("tileserver: shutdown: %w", err)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
