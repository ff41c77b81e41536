package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgquery "github.com/pganalyze/pg_query_go/v6"
	"go.uber.org/zap"
)

// Batch is a run of statements executed against one database. An empty
// Database means the connection the script starts on.
type Batch struct {
	Database   string
	Statements []string
}

// Conn is the part of *pgxpool.Pool the runner needs.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// Opener connects to the named database.
type Opener func(ctx context.Context, dbName string) (Conn, error)

// Report summarizes an Apply run.
type Report struct {
	Batches    int
	Statements int
	Elapsed    time.Duration
}

// SplitScript cuts a script at psql \c (or \connect) directives and splits
// every batch into individual statements.
func SplitScript(script string) ([]Batch, error) {
	batches := []Batch{{}}
	var current strings.Builder

	flush := func() error {
		stmts, err := SplitStatements(current.String())
		if err != nil {
			return err
		}
		batches[len(batches)-1].Statements = stmts
		current.Reset()
		return nil
	}

	for _, line := range strings.Split(script, "\n") {
		if db, ok := connectTarget(line); ok {
			if err := flush(); err != nil {
				return nil, err
			}
			batches = append(batches, Batch{Database: db})
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if err := flush(); err != nil {
		return nil, err
	}

	out := batches[:0]
	for _, b := range batches {
		if b.Database != "" || len(b.Statements) > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

// SplitStatements splits SQL text into statements with PostgreSQL's own
// scanner, so semicolons inside literals, quoted identifiers and dollar
// quoted bodies are left alone. Comment-only fragments are dropped.
func SplitStatements(sql string) ([]string, error) {
	parts, err := pgquery.SplitWithScanner(sql, true)
	if err != nil {
		return nil, fmt.Errorf("splitting statements: %w", err)
	}
	stmts := make([]string, 0, len(parts))
	for _, part := range parts {
		if !commentOnly(part) {
			stmts = append(stmts, part)
		}
	}
	return stmts, nil
}

func commentOnly(sql string) bool {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

func connectTarget(line string) (string, bool) {
	line = strings.TrimSpace(line)
	var rest string
	switch {
	case strings.HasPrefix(line, `\c `):
		rest = line[len(`\c `):]
	case strings.HasPrefix(line, `\connect `):
		rest = line[len(`\connect `):]
	default:
		return "", false
	}
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ";")
	if len(rest) >= 2 && strings.HasPrefix(rest, `"`) && strings.HasSuffix(rest, `"`) {
		rest = strings.ReplaceAll(rest[1:len(rest)-1], `""`, `"`)
	}
	return rest, rest != ""
}

// Apply executes script batch by batch, opening a fresh connection for every
// \c directive. startDB is used for statements before the first directive.
// Execution stops at the first failing statement.
func Apply(ctx context.Context, script, startDB string, open Opener, logger *zap.SugaredLogger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	started := time.Now()

	batches, err := SplitScript(script)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, batch := range batches {
		dbName := batch.Database
		if dbName == "" {
			dbName = startDB
		}
		if err := applyBatch(ctx, dbName, batch.Statements, open, logger, report); err != nil {
			return report, err
		}
		report.Batches++
	}

	report.Elapsed = time.Since(started)
	return report, nil
}

func applyBatch(ctx context.Context, dbName string, stmts []string, open Opener, logger *zap.SugaredLogger, report *Report) error {
	if len(stmts) == 0 {
		return nil
	}
	conn, err := open(ctx, dbName)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", dbName, err)
	}
	defer conn.Close()

	logger.Infow("applying batch", "database", dbName, "statements", len(stmts))
	for i, stmt := range stmts {
		logger.Debugw("executing statement", "database", dbName, "index", i, "sql", stmt)
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d on %s failed: %w\n%s", i+1, dbName, err, stmt)
		}
		report.Statements++
	}
	return nil
}
