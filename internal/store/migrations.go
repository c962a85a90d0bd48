package store

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/terraincognita07/shrine/internal/logger"
	embeddedmigrations "github.com/terraincognita07/shrine/migrations"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_.*\.sql$`)

const schemaMigrationsDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// schemaMigration is one numbered SQL file, e.g. 001_collections.sql.
type schemaMigration struct {
	Version string
	Order   int
	Name    string
	SQL     string
}

type appliedMigration struct {
	Version   string    `gorm:"column:version;primaryKey"`
	Name      string    `gorm:"column:name"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (appliedMigration) TableName() string {
	return "schema_migrations"
}

// applyEmbeddedMigrations runs every migration in files that is not yet
// recorded in schema_migrations, each in its own transaction. A nil files
// uses the migrations compiled into the binary.
func applyEmbeddedMigrations(database *gorm.DB, files fs.FS) error {
	if err := database.Exec(schemaMigrationsDDL).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	pending, err := pendingMigrations(database, files)
	if err != nil {
		return err
	}
	for _, migration := range pending {
		if err := database.Transaction(func(tx *gorm.DB) error {
			return runMigration(tx, migration)
		}); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		logger.Infof("store: applied %d schema migration(s)", len(pending))
	}
	return nil
}

func pendingMigrations(database *gorm.DB, files fs.FS) ([]schemaMigration, error) {
	migrations, err := loadEmbeddedMigrations(files)
	if err != nil {
		return nil, err
	}

	var versions []string
	if err := database.Model(&appliedMigration{}).Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("load applied migration versions: %w", err)
	}

	return slices.DeleteFunc(migrations, func(migration schemaMigration) bool {
		return slices.Contains(versions, migration.Version)
	}), nil
}

func loadEmbeddedMigrations(files fs.FS) ([]schemaMigration, error) {
	if files == nil {
		files = embeddedmigrations.Files
	}

	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	migrations := make([]schemaMigration, 0, len(names))
	owners := make(map[string]string, len(names))
	for _, name := range names {
		matches := migrationFilePattern.FindStringSubmatch(name)
		if matches == nil {
			continue
		}
		version := matches[1]
		if owner, taken := owners[version]; taken {
			return nil, fmt.Errorf("duplicate migration version %s in %s and %s", version, owner, name)
		}
		owners[version] = name

		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", name, err)
		}
		body, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, schemaMigration{Version: version, Order: order, Name: name, SQL: string(body)})
	}

	slices.SortFunc(migrations, func(a, b schemaMigration) int {
		if order := cmp.Compare(a.Order, b.Order); order != 0 {
			return order
		}
		return strings.Compare(a.Name, b.Name)
	})
	return migrations, nil
}

func runMigration(tx *gorm.DB, migration schemaMigration) error {
	statements := splitSQLStatements(migration.SQL)
	if len(statements) == 0 {
		return errors.New("migration has no SQL statements")
	}
	for _, statement := range statements {
		if err := tx.Exec(statement).Error; err != nil {
			return fmt.Errorf("execute migration %s statement %q: %w", migration.Name, statement, err)
		}
	}

	record := appliedMigration{Version: migration.Version, Name: migration.Name, AppliedAt: time.Now().UTC()}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("record migration %s: %w", migration.Name, err)
	}
	return nil
}

// splitSQLStatements cuts a migration on semicolons. Migrations must not put
// semicolons inside string literals or triggers.
func splitSQLStatements(sqlText string) []string {
	var statements []string
	for _, part := range strings.Split(sqlText, ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}
