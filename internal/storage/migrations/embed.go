// Package migrations applies the custody schema to PostgreSQL and ClickHouse.
// Each store records applied versions in a schema_migrations table, so a file
// runs at most once per database.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"stakepool-custody/internal/observability"
)

// PostgresFS embeds all PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// Migration is one versioned SQL file named NNN_description.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// load reads the migrations in dir ordered by version. Empty files are skipped.
func load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var migs []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a positive version and an underscore", entry.Name())
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration %s: version %d already used by %s", entry.Name(), version, prev)
		}
		seen[version] = entry.Name()

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		migs = append(migs, Migration{Version: version, Name: entry.Name(), SQL: string(data)})
	}

	sort.Slice(migs, func(i, j int) bool {
		return migs[i].Version < migs[j].Version
	})
	return migs, nil
}

// Option configures a migration run.
type Option func(*runner)

// WithLogger sets the logger for applied migrations.
func WithLogger(log *logrus.Entry) Option {
	return func(r *runner) {
		r.log = log
	}
}

type runner struct {
	database string
	log      *logrus.Entry
}

func newRunner(database string, opts []Option) *runner {
	r := &runner{
		database: database,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithFields(logrus.Fields{"component": "migrations", "database": database})
	return r
}

// pending returns the migrations whose version is not in applied.
func pending(migs []Migration, applied map[int]bool) []Migration {
	var out []Migration
	for _, m := range migs {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

func (r *runner) applied(m Migration) {
	r.log.WithFields(logrus.Fields{"version": m.Version, "name": m.Name}).Info("migration applied")
}

func (r *runner) finish(migs []Migration, appliedNow int) {
	latest := 0
	if len(migs) > 0 {
		latest = migs[len(migs)-1].Version
	}
	observability.RecordSchemaVersion(r.database, latest)
	r.log.WithFields(logrus.Fields{"version": latest, "applied": appliedNow}).Info("schema up to date")
}
