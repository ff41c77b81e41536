package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kenilGamer/restodrive-dbsetup/schema"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Snapshot is what currently exists on the server.
type Snapshot struct {
	DatabaseExists bool
	Roles          map[string]bool
	Tables         map[string]bool // "schema.table"
	Extensions     map[string]bool
}

// Presence pairs a configured object with whether it already exists.
type Presence struct {
	Name   string
	Exists bool
}

// Report compares a config with a Snapshot.
type Report struct {
	Database   Presence
	Users      []Presence
	Tables     []Presence
	Extensions []Presence
}

// Pending counts the configured objects that do not exist yet.
func (r *Report) Pending() int {
	n := 0
	if !r.Database.Exists {
		n++
	}
	for _, group := range [][]Presence{r.Users, r.Tables, r.Extensions} {
		for _, p := range group {
			if !p.Exists {
				n++
			}
		}
	}
	return n
}

// ServerState reads cluster-wide facts: whether the database exists and
// which of the given roles are present. It runs on any database.
func ServerState(ctx context.Context, q Querier, dbName string, roles []string) (*Snapshot, error) {
	snap := &Snapshot{Roles: map[string]bool{}, Tables: map[string]bool{}, Extensions: map[string]bool{}}

	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbName).Scan(&snap.DatabaseExists)
	if err != nil {
		return nil, fmt.Errorf("checking database %s: %w", dbName, err)
	}

	rows, err := q.Query(ctx, `SELECT rolname FROM pg_roles WHERE rolname = ANY($1)`, roles)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan roles: %w", err)
	}
	for _, name := range names {
		snap.Roles[name] = true
	}

	return snap, nil
}

// DatabaseState fills in the tables and extensions of the database q is
// connected to.
func DatabaseState(ctx context.Context, q Querier, snap *Snapshot) error {
	rows, err := q.Query(ctx, `
		SELECT table_schema || '.' || table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		AND table_schema NOT IN ('pg_catalog', 'information_schema')
	`)
	if err != nil {
		return fmt.Errorf("query tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scan tables: %w", err)
	}
	for _, t := range tables {
		snap.Tables[t] = true
	}

	rows, err = q.Query(ctx, `SELECT extname FROM pg_extension`)
	if err != nil {
		return fmt.Errorf("query extensions: %w", err)
	}
	extensions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scan extensions: %w", err)
	}
	for _, e := range extensions {
		snap.Extensions[e] = true
	}

	return nil
}

// RoleNames lists every username declared in cfg.
func RoleNames(cfg *schema.Config) []string {
	names := make([]string, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		names = append(names, u.Username)
	}
	return names
}

// Compare matches cfg against snap. Objects are reported in config order.
func Compare(cfg *schema.Config, snap *Snapshot) *Report {
	report := &Report{
		Database: Presence{Name: cfg.Database.Name, Exists: snap.DatabaseExists},
	}
	for _, u := range cfg.Users {
		report.Users = append(report.Users, Presence{Name: u.Username, Exists: snap.Roles[u.Username]})
	}
	for _, t := range cfg.Tables {
		key := t.Schema + "." + t.Name
		report.Tables = append(report.Tables, Presence{Name: key, Exists: snap.Tables[key]})
	}
	for _, task := range cfg.Tasks {
		if ext, ok := task.(schema.ExtensionTask); ok && ext.Complete() {
			report.Extensions = append(report.Extensions, Presence{Name: ext.Extension, Exists: snap.Extensions[ext.Extension]})
		}
	}
	return report
}
