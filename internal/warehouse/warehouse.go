package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dw-loader/internal/models"
	"github.com/kjstillabower/weather-dw-loader/internal/observability"
)

// Supported drivers; the value is the database/sql driver name.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite3"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrInvalidTable      = errors.New("invalid table name")
)

// tableNamePattern allows name or schema.name; the table is interpolated into SQL.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Columns in insert order.
var Columns = []string{"date", "Location", "Latitude", "Longitude", "Temperature", "WindSpeed", "Description"}

// Config describes the destination database.
type Config struct {
	Driver      string
	Host        string
	Port        int
	Name        string
	Auth        string // "integrated" or "sql"
	User        string
	Password    string
	Table       string
	DSN         string // overrides the assembled connection string when set
	CreateTable bool
}

// Store writes weather records into one warehouse table over a single connection.
type Store struct {
	db     *sql.DB
	driver string
	table  string
	logger *zap.Logger
}

// Open connects to the database described by cfg and verifies the connection.
// The caller must Close the store.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, cfg.Table)
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: cfg.Driver, table: cfg.Table, logger: logger}
	if cfg.CreateTable {
		if err := s.ensureTable(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	logger.Debug("database connected", zap.String("driver", cfg.Driver), zap.String("table", cfg.Table))
	return s, nil
}

// DSN assembles the driver connection string. Integrated auth on sqlserver omits
// credentials so the driver falls back to the process identity.
func DSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	switch cfg.Driver {
	case DriverSQLServer:
		u := &url.URL{
			Scheme: "sqlserver",
			Host:   hostPort(cfg.Host, cfg.Port),
		}
		if cfg.Auth == "sql" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		q := url.Values{}
		q.Set("database", cfg.Name)
		u.RawQuery = q.Encode()
		return u.String(), nil
	case DriverPostgres:
		u := &url.URL{
			Scheme: "postgres",
			Host:   hostPort(cfg.Host, cfg.Port),
			Path:   "/" + cfg.Name,
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		u.RawQuery = "sslmode=disable"
		return u.String(), nil
	case DriverSQLite:
		if cfg.Name == "" {
			return "", errors.New("sqlite3 requires a database file name")
		}
		return cfg.Name, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

func hostPort(host string, port int) string {
	if port <= 0 {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

// placeholder returns the positional bind marker for the 1-based argument n.
func placeholder(driver string, n int) string {
	switch driver {
	case DriverSQLServer:
		return "@p" + strconv.Itoa(n)
	case DriverPostgres:
		return "$" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// InsertSQL returns the parameterised insert statement for driver and table.
func InsertSQL(driver, table string) string {
	marks := make([]string, len(Columns))
	for i := range Columns {
		marks[i] = placeholder(driver, i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(Columns, ", "), strings.Join(marks, ", "))
}

func createTableSQL(driver, table string) string {
	switch driver {
	case DriverSQLServer:
		return fmt.Sprintf(`IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
	date DATE NOT NULL,
	Location NVARCHAR(255) NOT NULL,
	Latitude FLOAT NULL,
	Longitude FLOAT NULL,
	Temperature FLOAT NULL,
	WindSpeed FLOAT NULL,
	Description NVARCHAR(MAX) NULL
)`, table)
	case DriverPostgres:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	date DATE NOT NULL,
	Location TEXT NOT NULL,
	Latitude DOUBLE PRECISION,
	Longitude DOUBLE PRECISION,
	Temperature DOUBLE PRECISION,
	WindSpeed DOUBLE PRECISION,
	Description TEXT
)`, table)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	date TEXT NOT NULL,
	Location TEXT NOT NULL,
	Latitude REAL,
	Longitude REAL,
	Temperature REAL,
	WindSpeed REAL,
	Description TEXT
)`, table)
	}
}

func (s *Store) ensureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL(s.driver, s.table)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// InsertBatch writes all records in one transaction with one prepared statement.
// On any error the transaction is rolled back and no row of the batch remains.
func (s *Store) InsertBatch(ctx context.Context, records []models.DailyWeatherRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	start := time.Now()

	n, err := s.insertTx(ctx, records)
	if err != nil {
		observability.LoadDuration.WithLabelValues("rolled_back").Observe(time.Since(start).Seconds())
		return 0, err
	}

	observability.LoadDuration.WithLabelValues("committed").Observe(time.Since(start).Seconds())
	observability.RowsLoadedTotal.Add(float64(n))
	s.logger.Info("batch committed", zap.String("table", s.table), zap.Int64("rows", n), zap.Duration("duration", time.Since(start)))
	return n, nil
}

func (s *Store) insertTx(ctx context.Context, records []models.DailyWeatherRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, InsertSQL(s.driver, s.table))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, rowArgs(r)...); err != nil {
			return 0, fmt.Errorf("insert row %s: %w", r.DateString(), err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func rowArgs(r models.DailyWeatherRecord) []any {
	return []any{
		r.DateString(),
		r.Location,
		nullFloat(r.Latitude),
		nullFloat(r.Longitude),
		nullFloat(r.Temperature),
		nullFloat(r.WindSpeed),
		nullString(r.Description),
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}
