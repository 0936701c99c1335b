package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dw-loader/internal/client"
	"github.com/kjstillabower/weather-dw-loader/internal/models"
	"github.com/kjstillabower/weather-dw-loader/internal/observability"
)

// BatchStore is the destination of one load.
type BatchStore interface {
	InsertBatch(ctx context.Context, records []models.DailyWeatherRecord) (int64, error)
	Close() error
}

// StoreOpener connects to the destination. It is called only after a successful
// transform, so failed fetches never touch the database.
type StoreOpener func(ctx context.Context) (BatchStore, error)

// Result summarizes a successful run.
type Result struct {
	Location string
	Records  int
	Rows     int64
	Duration time.Duration
}

// Loader runs one fetch -> transform -> load cycle for a fixed query.
type Loader struct {
	fetcher client.ReportFetcher
	open    StoreOpener
	query   client.Query
	logger  *zap.Logger
}

// NewLoader wires the three stages. A nil logger discards output.
func NewLoader(fetcher client.ReportFetcher, open StoreOpener, query client.Query, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher: fetcher,
		open:    open,
		query:   query,
		logger:  logger,
	}
}

// Run performs the cycle. The returned error is a *TransportError, *TransformError
// or *LoadError.
func (l *Loader) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	l.logger.Info("fetching report",
		zap.String("location", l.query.Location),
		zap.String("start_date", l.query.StartDate),
		zap.String("end_date", l.query.EndDate),
		zap.String("unit_group", l.query.UnitGroup))

	report, err := l.fetcher.FetchReport(ctx, l.query)
	if err != nil {
		return Result{}, &TransportError{Err: err}
	}
	l.logger.Debug("report fetched", zap.String("resolved_address", report.ResolvedAddress), zap.Int("days", len(report.Days)))

	records, err := ToRecords(report)
	if err != nil {
		return Result{}, &TransformError{Err: err}
	}
	observability.RecordsTransformedTotal.Add(float64(len(records)))

	rows, err := l.Load(ctx, records)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Records:  len(records),
		Rows:     rows,
		Duration: time.Since(start),
	}
	if len(records) > 0 {
		res.Location = records[0].Location
	}
	l.logger.Info("load complete", zap.Int("records", res.Records), zap.Int64("rows", res.Rows), zap.Duration("duration", res.Duration))
	return res, nil
}

// Load opens the store, writes records as one batch, and closes the store exactly
// once on every path. A close error after commit is logged only; the rows are in.
func (l *Loader) Load(ctx context.Context, records []models.DailyWeatherRecord) (int64, error) {
	store, err := l.open(ctx)
	if err != nil {
		return 0, &LoadError{Stage: "connect", Err: err}
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.logger.Warn("close database", zap.Error(err))
		}
	}()

	rows, err := store.InsertBatch(ctx, records)
	if err != nil {
		return 0, &LoadError{Stage: "insert", Err: err}
	}
	return rows, nil
}
