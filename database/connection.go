package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Dialect captures the SQL differences between the supported drivers
type Dialect struct {
	Name       string
	driverName string
	schemaFile string
	numbered   bool
	lockClause string
}

var (
	PostgresDialect = Dialect{
		Name:       shared.DatabaseDriverPostgres,
		driverName: "postgres",
		schemaFile: "schema/postgres.sql",
		numbered:   true,
		lockClause: " FOR UPDATE",
	}
	SQLiteDialect = Dialect{
		Name:       shared.DatabaseDriverSQLite,
		driverName: "sqlite",
		schemaFile: "schema/sqlite.sql",
	}
)

// Placeholder returns the bind marker for the n-th (1-based) argument
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// DialectFor maps a configured driver name to its dialect
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case shared.DatabaseDriverPostgres:
		return PostgresDialect, nil
	case shared.DatabaseDriverSQLite:
		return SQLiteDialect, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// ConnectWithConfig opens a pooled connection and verifies it with a ping
func ConnectWithConfig(ctx context.Context, dialect Dialect, dsn string, config *shared.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(dialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if dialect.Name == shared.DatabaseDriverSQLite {
		// One writer at a time, and ":memory:" databases are per connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, config.PingTimeout)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component":          "Database",
		"driver":             dialect.Name,
		"max_open_conns":     config.MaxOpenConns,
		"conn_max_lifetime":  config.ConnMaxLifetime,
		"conn_max_idle_time": config.ConnMaxIdleTime,
	}).Info("Connected to database successfully")

	return db, nil
}

// Migrate applies the embedded schema for the dialect. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	content, err := schemaFiles.ReadFile(dialect.schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	statements := parseSQLStatements(string(content))
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement failed: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"component":  "Database",
		"driver":     dialect.Name,
		"statements": len(statements),
	}).Info("Database migration completed successfully")
	return nil
}

// parseSQLStatements splits SQL content into statements, skipping comment lines
func parseSQLStatements(content string) []string {
	var statements []string
	var currentStatement strings.Builder

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if currentStatement.Len() > 0 {
			currentStatement.WriteString(" ")
		}
		currentStatement.WriteString(line)

		if strings.HasSuffix(line, ";") {
			stmt := strings.TrimSpace(strings.TrimSuffix(currentStatement.String(), ";"))
			if stmt != "" {
				statements = append(statements, stmt)
			}
			currentStatement.Reset()
		}
	}

	if stmt := strings.TrimSpace(currentStatement.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// OpenRecordStore builds the store selected by config: memory, or a migrated SQL store
func OpenRecordStore(ctx context.Context, config *shared.DatabaseConfig, dsn string) (RecordStore, error) {
	if config.Driver == shared.DatabaseDriverMemory {
		logrus.WithField("component", "Database").Warn("Using in-memory record store, data is lost on restart")
		return NewMemoryRecordStore(), nil
	}

	dialect, err := DialectFor(config.Driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "MISSING_DSN",
			"DATABASE_URL is required for driver "+config.Driver, "Database", "OpenRecordStore", false, nil)
	}

	db, err := ConnectWithConfig(ctx, dialect, dsn, config)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}

	return NewSQLRecordStore(db, dialect), nil
}
