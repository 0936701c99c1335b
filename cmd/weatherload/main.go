package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dw-loader/internal/client"
	"github.com/kjstillabower/weather-dw-loader/internal/config"
	"github.com/kjstillabower/weather-dw-loader/internal/observability"
	"github.com/kjstillabower/weather-dw-loader/internal/service"
	"github.com/kjstillabower/weather-dw-loader/internal/warehouse"
)

// Exit codes.
const (
	exitOK        = 0
	exitSetup     = 1
	exitTransport = 2
	exitTransform = 3
	exitLoad      = 4
)

const flushTimeout = 10 * time.Second

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(exitSetup)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", zap.Error(err))
		_ = logger.Sync()
		fmt.Fprintf(os.Stdout, "Error: %v\n", err)
		os.Exit(exitSetup)
	}

	runID := uuid.NewString()
	logger = observability.WithRun(logger, runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = client.WithCorrelationID(ctx, runID)

	code := run(ctx, cfg, logger, os.Stdout)
	stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	if err := observability.FlushTelemetry(flushCtx, logger, observability.PushConfig{
		URL:      cfg.PushgatewayURL,
		Job:      cfg.MetricsJob,
		Location: cfg.Location,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
	cancel()

	os.Exit(code)
}

// run performs one load and writes the human-readable outcome to out.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) int {
	weatherClient, err := client.NewTimelineClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Error("weather client", zap.Error(err))
		fmt.Fprintf(out, "Error: %v\n", err)
		return exitSetup
	}

	query := client.Query{
		Location:  cfg.Location,
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
		UnitGroup: cfg.UnitGroup,
		Elements:  cfg.Elements,
		Include:   cfg.Include,
	}
	dbCfg := warehouse.Config{
		Driver:      cfg.DBDriver,
		Host:        cfg.DBHost,
		Port:        cfg.DBPort,
		Name:        cfg.DBName,
		Auth:        cfg.DBAuth,
		User:        cfg.DBUser,
		Password:    cfg.DBPassword,
		Table:       cfg.DBTable,
		DSN:         cfg.DBDSN,
		CreateTable: cfg.DBCreateTable,
	}
	open := func(ctx context.Context) (service.BatchStore, error) {
		store, err := warehouse.Open(ctx, dbCfg, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, cfg.WeatherAPITimeout+cfg.DBTimeout)
	defer cancel()

	loader := service.NewLoader(weatherClient, open, query, logger)
	res, err := loader.Run(loadCtx)

	outcome := service.Outcome(err)
	observability.RecordRun(outcome)
	if err != nil {
		logger.Error("run failed", zap.String("outcome", outcome), zap.Error(err))
	}
	return report(out, cfg.DBTable, res, err)
}

// report prints the result line and maps the outcome to an exit code.
func report(out io.Writer, table string, res service.Result, err error) int {
	var (
		te *service.TransportError
		fe *service.TransformError
		le *service.LoadError
	)
	switch {
	case err == nil:
		fmt.Fprintf(out, "Weather data successfully loaded into %s. Rows: %d\n", table, res.Rows)
		return exitOK
	case errors.As(err, &te):
		if code := te.StatusCode(); code != 0 {
			fmt.Fprintf(out, "Failed to retrieve data. HTTP Status code: %d\n", code)
		} else {
			fmt.Fprintf(out, "Failed to retrieve data: %v\n", te.Err)
		}
		return exitTransport
	case errors.As(err, &fe):
		fmt.Fprintf(out, "Error: %v\n", err)
		return exitTransform
	case errors.As(err, &le):
		fmt.Fprintf(out, "Error: %v\n", err)
		return exitLoad
	default:
		fmt.Fprintf(out, "Error: %v\n", err)
		return exitLoad
	}
}
