package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenilGamer/restodrive-dbsetup/generator"
	"github.com/kenilGamer/restodrive-dbsetup/schema"
)

func exampleScript(t *testing.T) string {
	t.Helper()
	def := "gen_random_uuid()"
	cfg := &schema.Config{
		Database: schema.Database{Name: "Resto Drive"},
		Users:    []schema.User{{Username: "app_user", Password: "it's; secret", Databases: []string{"Resto Drive"}}},
		Tables: []schema.Table{{
			Name:   "orders",
			Schema: "public",
			Columns: []schema.Column{
				{Name: "id", Type: "uuid", Default: &def, Constraints: []string{"PRIMARY KEY"}, Nullable: true},
			},
			Indexes: []schema.Index{{Name: "idx_orders_id", Columns: []string{"id"}}},
		}},
		Tasks: []schema.Task{
			schema.GrantTask{Name: "broken", User: "app_user"},
			schema.CustomTask{Name: "fn", SQL: "CREATE FUNCTION one() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql;"},
		},
	}
	script, err := generator.GenerateScript(cfg, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return script
}

func assertStatements(t *testing.T, got []string, prefixes ...string) {
	t.Helper()
	require.Len(t, got, len(prefixes))
	for i, prefix := range prefixes {
		assert.Contains(t, got[i], prefix, "statement %d", i)
	}
}

func TestSplitScript_GeneratedScript(t *testing.T) {
	batches, err := SplitScript(exampleScript(t))
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, "", batches[0].Database)
	assertStatements(t, batches[0].Statements, `CREATE DATABASE "Resto Drive"`)

	assert.Equal(t, "Resto Drive", batches[1].Database)
	assertStatements(t, batches[1].Statements,
		"CREATE USER app_user WITH PASSWORD 'it''s; secret'",
		`GRANT CONNECT ON DATABASE "Resto Drive" TO app_user`,
		"CREATE TABLE IF NOT EXISTS public.orders",
		"CREATE INDEX IF NOT EXISTS idx_orders_id",
		"GRANT ALL PRIVILEGES ON TABLE public.orders TO app_user",
		"$$ SELECT 1; $$",
	)
}

func TestSplitScript_MultiLineNamesDoNotBecomeStatements(t *testing.T) {
	cfg := &schema.Config{
		Database: schema.Database{Name: "mydb"},
		Tables: []schema.Table{{
			Name:    "orders\nDROP TABLE victim;",
			Schema:  "public",
			Columns: []schema.Column{{Name: "id", Type: "int", Nullable: true}},
		}},
		Tasks: []schema.Task{schema.ExtensionTask{Name: "x\nDROP TABLE victim;", Extension: "pgcrypto"}},
	}
	script, err := generator.GenerateScript(cfg, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	batches, err := SplitScript(script)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assertStatements(t, batches[1].Statements,
		`CREATE TABLE IF NOT EXISTS public."orders`,
		"CREATE EXTENSION IF NOT EXISTS pgcrypto",
	)
}

func TestSplitStatements_DropsCommentOnlyFragments(t *testing.T) {
	stmts, err := SplitStatements("-- header\nSELECT 1;\n-- Error: nothing here\n")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "SELECT 1")
}

func TestConnectTarget(t *testing.T) {
	tests := []struct {
		line string
		db   string
		ok   bool
	}{
		{`\c mydb`, "mydb", true},
		{`\c mydb;`, "mydb", true},
		{`  \connect other  `, "other", true},
		{`\c "My ""Quoted"" DB"`, `My "Quoted" DB`, true},
		{`\c `, "", false},
		{`-- \c mydb`, "", false},
		{`SELECT 1;`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			db, ok := connectTarget(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.db, db)
		})
	}
}

type fakeConn struct {
	db       string
	executed *[]string
	failOn   string
	closed   bool
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if c.failOn != "" && strings.Contains(sql, c.failOn) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	*c.executed = append(*c.executed, c.db+": "+sql)
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestApply_RoutesBatchesToDatabases(t *testing.T) {
	var executed []string
	var conns []*fakeConn
	open := func(_ context.Context, dbName string) (Conn, error) {
		c := &fakeConn{db: dbName, executed: &executed}
		conns = append(conns, c)
		return c, nil
	}

	report, err := Apply(context.Background(), exampleScript(t), "postgres", open, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 7, report.Statements)
	require.Len(t, conns, 2)
	assert.Equal(t, "postgres", conns[0].db)
	assert.Equal(t, "Resto Drive", conns[1].db)
	for _, c := range conns {
		assert.True(t, c.closed)
	}
	assert.True(t, strings.HasPrefix(executed[0], "postgres: "))
	assert.True(t, strings.HasPrefix(executed[6], "Resto Drive: "))
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	var executed []string
	open := func(_ context.Context, dbName string) (Conn, error) {
		return &fakeConn{db: dbName, executed: &executed, failOn: "CREATE TABLE"}, nil
	}

	report, err := Apply(context.Background(), exampleScript(t), "postgres", open, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 3 on Resto Drive failed")
	assert.Equal(t, 3, report.Statements)
	assert.Len(t, executed, 3)
}

func TestApply_ConnectFailure(t *testing.T) {
	open := func(_ context.Context, dbName string) (Conn, error) {
		return nil, errors.New("refused")
	}

	_, err := Apply(context.Background(), "SELECT 1;", "postgres", open, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to postgres")
}
