package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenilGamer/restodrive-dbsetup/pipeline"
)

const exampleConfig = `{
  "database": { "name": "mydb", "host": "localhost", "port": 5432, "adminUser": "postgres" },
  "users": [ { "username": "app_user", "password": "secret", "databases": ["mydb"] } ],
  "tables": [
    {
      "name": "orders",
      "columns": [
        { "name": "id", "type": "uuid", "default": "gen_random_uuid()", "constraints": ["PRIMARY KEY"] },
        { "name": "total", "type": "numeric(10,2)", "nullable": false }
      ],
      "indexes": [ { "name": "idx_orders_total", "columns": ["total"] } ]
    }
  ],
  "tasks": [ { "name": "enable uuid", "type": "CREATE_EXTENSION", "extension": "pgcrypto" } ]
}`

type result struct {
	stdout string
	stderr string
	code   int
}

func resetFlags() {
	workDir = "."
	verbose = false
	forceInit = false
	dryRunGenerate = false
	validateFormat = "text"
	validateStrict = false
	sqlgenConfig = ""
	sqlgenOutput = pipeline.DefaultOutputFile
	sqlgenInteractive = false
	sqlgenDryRun = false
}

func execute(t *testing.T, root *cobra.Command, args ...string) result {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	code := run(root)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func writeExample(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o600))
}

func withoutTimestamp(sql string) string {
	lines := strings.Split(sql, "\n")
	out := lines[:0]
	for _, line := range lines {
		if !strings.HasPrefix(line, "-- Generated:") {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func TestInit_CreatesConfig(t *testing.T) {
	dir := t.TempDir()

	res := execute(t, rootCmd, "init", "--dir", dir)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "✅ Created")

	content, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, pipeline.Template(), content)
}

func TestInit_TwiceLeavesConfigUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	require.Equal(t, 0, execute(t, rootCmd, "init", "--dir", dir).code)
	edited := []byte(`{"database": {"name": "mine"}}`)
	require.NoError(t, os.WriteFile(path, edited, 0o600))

	res := execute(t, rootCmd, "init", "--dir", dir)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "already exists")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, edited, content)
}

func TestInit_Force(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, "{}")

	res := execute(t, rootCmd, "init", "--force", "--dir", dir)
	require.Equal(t, 0, res.code)

	content, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, pipeline.Template(), content)
}

func TestGenerate_MissingConfig(t *testing.T) {
	dir := t.TempDir()

	res := execute(t, rootCmd, "generate", "--dir", dir)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "❌")
	assert.Contains(t, res.stderr, "not found")
	assert.NoFileExists(t, filepath.Join(dir, pipeline.DefaultOutputFile))
}

func TestGenerate_Example(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, exampleConfig)

	res := execute(t, rootCmd, "generate", "--dir", dir)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Tables: 1")
	assert.Contains(t, res.stdout, "Users: 1")
	assert.Contains(t, res.stdout, "Tasks: 1")

	content, err := os.ReadFile(filepath.Join(dir, pipeline.DefaultOutputFile))
	require.NoError(t, err)
	sql := string(content)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS public.orders (")
	assert.Contains(t, sql, "  total numeric(10,2) NOT NULL\n")
	assert.Contains(t, sql, "CREATE INDEX IF NOT EXISTS idx_orders_total ON public.orders (total);")
	assert.Contains(t, sql, "CREATE EXTENSION IF NOT EXISTS pgcrypto;")
}

func TestGenerate_OutputPathArgument(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, exampleConfig)
	out := filepath.Join(dir, "custom", "setup.sql")

	res := execute(t, rootCmd, "generate", out, "--dir", dir)
	require.Equal(t, 0, res.code, res.stderr)
	assert.FileExists(t, out)
	assert.NoFileExists(t, filepath.Join(dir, pipeline.DefaultOutputFile))
}

func TestGenerate_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, exampleConfig)

	res := execute(t, rootCmd, "generate", "--dry-run", "--dir", dir)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "CREATE DATABASE mydb;")
	assert.NoFileExists(t, filepath.Join(dir, pipeline.DefaultOutputFile))
}

func TestValidate_Success(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, exampleConfig)

	res := execute(t, rootCmd, "validate", "--dir", dir)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "✅ Configuration is valid")
	assert.Contains(t, res.stdout, "Database: mydb")
	assert.Contains(t, res.stdout, "Tables: 1")
	assert.Contains(t, res.stdout, "Users: 1")
	assert.NoFileExists(t, filepath.Join(dir, pipeline.DefaultOutputFile))
}

func TestValidate_ListsEveryError(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, `{
		"database": {},
		"tables": [{"name": "t", "columns": [], "indexes": [{"name": "i", "columns": []}]}],
		"tasks": [{"name": "x", "type": "DROP"}]
	}`)

	res := execute(t, rootCmd, "validate", "--dir", dir)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "database.name")
	assert.Contains(t, res.stderr, "tables.0.indexes.0.columns")
	assert.Contains(t, res.stderr, "tasks.0.type")
}

func TestValidate_MissingConfig(t *testing.T) {
	res := execute(t, rootCmd, "validate", "--dir", t.TempDir())
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not found")
}

func TestValidate_JSON(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, exampleConfig)

	res := execute(t, rootCmd, "validate", "--format", "json", "--dir", dir)
	require.Equal(t, 0, res.code, res.stderr)

	var report validationReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, "mydb", report.Database)
	assert.Equal(t, 1, report.Tables)
	assert.Empty(t, report.Issues)
}

func TestValidate_JSONInvalid(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, `{"database": {"name": 7}}`)

	res := execute(t, rootCmd, "validate", "--format", "json", "--dir", dir)
	assert.Equal(t, 1, res.code)

	var report validationReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "database.name", report.Issues[0].Path)
}

func TestValidate_Strict(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, `{
		"database": {"name": "mydb"},
		"tasks": [{"name": "g", "type": "GRANT"}]
	}`)

	res := execute(t, rootCmd, "validate", "--dir", dir)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "Warnings (1)")

	res = execute(t, rootCmd, "validate", "--strict", "--dir", dir)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--strict")
}

func TestRoot_HelpAndUnknownCommand(t *testing.T) {
	res := execute(t, rootCmd)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "Usage:")

	res = execute(t, rootCmd, "help")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "generate")

	res = execute(t, rootCmd, "bogus")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "unknown command")
	assert.Contains(t, res.stdout, "Usage:")
}

func TestSQLGen_MatchesGenerate(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, exampleConfig)
	fromFlags := filepath.Join(dir, "flags.sql")
	fromSubcommand := filepath.Join(dir, "subcommand.sql")

	res := execute(t, sqlgenCmd, "--config", filepath.Join(dir, "config.json"), "--output", fromFlags)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Tables: 1")

	res = execute(t, rootCmd, "generate", fromSubcommand, "--dir", dir)
	require.Equal(t, 0, res.code, res.stderr)

	a, err := os.ReadFile(fromFlags)
	require.NoError(t, err)
	b, err := os.ReadFile(fromSubcommand)
	require.NoError(t, err)
	assert.Equal(t, withoutTimestamp(string(a)), withoutTimestamp(string(b)))
}

func TestSQLGen_YAMLConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "db.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  name: yamldb\n"), 0o600))

	res := execute(t, sqlgenCmd, "--config", cfgPath, "--dry-run")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "CREATE DATABASE yamldb;")
}

func TestSQLGen_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, `{"database": {"name": ""}}`)
	out := filepath.Join(dir, "out.sql")

	res := execute(t, sqlgenCmd, "--config", filepath.Join(dir, "config.json"), "--output", out)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "database.name")
	assert.NoFileExists(t, out)
}

func TestSQLGen_Interactive(t *testing.T) {
	res := execute(t, sqlgenCmd, "--interactive")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "dbsetup init")
	assert.Contains(t, res.stdout, "sqlgen --config")
}

func TestSQLGen_RequiresConfig(t *testing.T) {
	res := execute(t, sqlgenCmd)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--config is required")
}
