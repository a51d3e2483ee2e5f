package bootstrap

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// MigrationRunner applies ordered SQL schema files before the server starts.
//
// The runner is the in-process equivalent of the deployment's migrate-then-serve
// entrypoint: Run either brings the schema fully up to date or returns an error,
// in which case the caller must not start serving traffic.
type MigrationRunner struct {
	pool       *pgxpool.Pool
	schemaPath string
	logger     *zap.Logger
}

// Migration is a single schema file tracked in schema_migrations.
type Migration struct {
	Name          string
	Version       int
	Checksum      string
	SQL           string
	AppliedAt     *time.Time
	ExecutionTime time.Duration
}

// NewMigrationRunner creates a migration runner reading .sql files from schemaPath.
func NewMigrationRunner(pool *pgxpool.Pool, schemaPath string, logger *zap.Logger) *MigrationRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MigrationRunner{
		pool:       pool,
		schemaPath: schemaPath,
		logger:     logger.With(zap.String("component", "migrations")),
	}
}

// Initialize creates the schema_migrations tracking table if it doesn't exist.
func (mr *MigrationRunner) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			checksum VARCHAR(64) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			execution_time_ms INTEGER NOT NULL
		);
	`

	if _, err := mr.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize schema_migrations table: %w", err)
	}
	return nil
}

// LoadMigrations reads the .sql files from the schema directory in lexical
// order. File naming carries the ordering (001_..., 002_...).
func (mr *MigrationRunner) LoadMigrations() ([]*Migration, error) {
	if mr.schemaPath == "" {
		return nil, fmt.Errorf("schema path not configured")
	}

	files, err := filepath.Glob(filepath.Join(mr.schemaPath, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration directory: %w", err)
	}
	sort.Strings(files)

	migrations := make([]*Migration, 0, len(files))
	for i, filePath := range files {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", filePath, err)
		}

		migrations = append(migrations, &Migration{
			Name:     filepath.Base(filePath),
			Version:  i + 1,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
	}

	if len(migrations) == 0 {
		return nil, fmt.Errorf("no migration files found in %s", mr.schemaPath)
	}

	return migrations, nil
}

// GetAppliedMigrations retrieves already applied migrations keyed by name.
func (mr *MigrationRunner) GetAppliedMigrations(ctx context.Context) (map[string]*Migration, error) {
	query := `
		SELECT version, name, checksum, applied_at, execution_time_ms
		FROM schema_migrations
		ORDER BY version
	`

	rows, err := mr.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]*Migration)
	for rows.Next() {
		var m Migration
		var executionTimeMs int
		if err := rows.Scan(&m.Version, &m.Name, &m.Checksum, &m.AppliedAt, &executionTimeMs); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		m.ExecutionTime = time.Duration(executionTimeMs) * time.Millisecond
		applied[m.Name] = &m
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}

	return applied, nil
}

// Run applies all pending migrations in order. Any error aborts the startup
// sequence: an applied migration whose file changed on disk (checksum
// mismatch) is treated as corruption and requires manual intervention.
func (mr *MigrationRunner) Run(ctx context.Context) error {
	if err := mr.Initialize(ctx); err != nil {
		return err
	}

	migrations, err := mr.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := mr.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	mr.logger.Info("Loaded migrations",
		zap.Int("total", len(migrations)),
		zap.Int("applied", len(applied)))

	pending := 0
	for _, migration := range migrations {
		if prior, exists := applied[migration.Name]; exists {
			if prior.Checksum != migration.Checksum {
				return fmt.Errorf("migration %s has different checksum (applied: %s, current: %s) - manual intervention required",
					migration.Name, prior.Checksum[:8], migration.Checksum[:8])
			}
			continue
		}

		mr.logger.Info("Applying migration",
			zap.String("name", migration.Name),
			zap.Int("version", migration.Version))

		if err := mr.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Name, err)
		}

		pending++
		mr.logger.Info("Migration applied",
			zap.String("name", migration.Name),
			zap.Duration("execution_time", migration.ExecutionTime))
	}

	if pending == 0 {
		mr.logger.Info("No pending migrations, database schema is up to date")
	} else {
		mr.logger.Info("All migrations applied", zap.Int("applied", pending))
	}

	return nil
}

// applyMigration executes one migration and records it, atomically.
func (mr *MigrationRunner) applyMigration(ctx context.Context, migration *Migration) error {
	startTime := time.Now()

	tx, err := mr.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	executionTime := time.Since(startTime)

	recordQuery := `
		INSERT INTO schema_migrations (version, name, checksum, applied_at, execution_time_ms)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.Exec(ctx, recordQuery,
		migration.Version,
		migration.Name,
		migration.Checksum,
		time.Now(),
		int(executionTime.Milliseconds()),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	migration.ExecutionTime = executionTime
	migration.AppliedAt = &startTime

	return nil
}

// MigrationStatus reports whether a known migration file has been applied.
type MigrationStatus struct {
	Name          string
	Version       int
	Applied       bool
	AppliedAt     *time.Time
	ChecksumMatch bool
}

// Status returns the apply state of every known migration file.
func (mr *MigrationRunner) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := mr.Initialize(ctx); err != nil {
		return nil, err
	}

	migrations, err := mr.LoadMigrations()
	if err != nil {
		return nil, err
	}

	applied, err := mr.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, migration := range migrations {
		status := MigrationStatus{
			Name:    migration.Name,
			Version: migration.Version,
		}
		if prior, exists := applied[migration.Name]; exists {
			status.Applied = true
			status.AppliedAt = prior.AppliedAt
			status.ChecksumMatch = prior.Checksum == migration.Checksum
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}
