package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kenilGamer/restodrive-dbsetup/schema"
)

const banner = "-- ============================================"

var bareIdent = regexp.MustCompile(`(?i)^[a-z_][a-z0-9_]*$`)

// Line breaks would end a "--" comment and leak the rest of a name into SQL.
var commentReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func commentSafe(s string) string {
	return commentReplacer.Replace(s)
}

// QuoteIdent returns name unchanged when it is a plain identifier, otherwise
// wraps it in double quotes with embedded quotes doubled. Dotted paths must be
// quoted one part at a time.
func QuoteIdent(name string) string {
	if bareIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral renders s as a single-quoted SQL string literal. Only single
// quotes are escaped.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// GenerateScript renders cfg as a provisioning script. Sections are always
// written in the order database, users, tables, tasks. generatedAt only
// affects the header comment.
func GenerateScript(cfg *schema.Config, generatedAt time.Time) (string, error) {
	if cfg == nil {
		return "", errors.New("config is nil")
	}
	if cfg.Database.Name == "" {
		return "", errors.New("config has no database name; parse it with schema.Parse first")
	}

	var b strings.Builder

	b.WriteString(banner + "\n")
	b.WriteString("-- Database Setup Script\n")
	fmt.Fprintf(&b, "-- Generated: %s\n", generatedAt.UTC().Format("2006-01-02T15:04:05.000Z"))
	fmt.Fprintf(&b, "-- Database: %s\n", commentSafe(cfg.Database.Name))
	b.WriteString(banner + "\n\n")

	section(&b, "DATABASE SETUP")
	writeLines(&b, databaseSQL(cfg.Database))

	if len(cfg.Users) > 0 {
		section(&b, "USERS")
		writeLines(&b, usersSQL(cfg.Users))
	}

	section(&b, "TABLES")
	for _, table := range cfg.Tables {
		writeLines(&b, tableSQL(table, cfg.Users))
	}

	section(&b, "TASKS")
	for _, task := range cfg.Tasks {
		writeLines(&b, taskSQL(task))
	}

	section(&b, "COMPLETED")

	return b.String(), nil
}

func section(b *strings.Builder, title string) {
	b.WriteString(banner + "\n")
	b.WriteString("-- " + title + "\n")
	b.WriteString(banner + "\n")
}

// writeLines writes a block of statements followed by a blank line.
func writeLines(b *strings.Builder, lines []string) {
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func databaseSQL(db schema.Database) []string {
	name := QuoteIdent(db.Name)
	return []string{
		fmt.Sprintf("CREATE DATABASE %s;", name),
		fmt.Sprintf(`\c %s`, name),
	}
}

func usersSQL(users []schema.User) []string {
	var lines []string
	for _, u := range users {
		username := QuoteIdent(u.Username)
		lines = append(lines, fmt.Sprintf("CREATE USER %s WITH PASSWORD %s;", username, QuoteLiteral(u.Password)))
		for _, db := range u.Databases {
			lines = append(lines, fmt.Sprintf("GRANT CONNECT ON DATABASE %s TO %s;", QuoteIdent(db), username))
		}
	}
	return lines
}

func qualified(schemaName, name string) string {
	return QuoteIdent(schemaName) + "." + QuoteIdent(name)
}

func tableSQL(table schema.Table, users []schema.User) []string {
	target := qualified(table.Schema, table.Name)

	lines := []string{
		fmt.Sprintf("-- Table: %s.%s", commentSafe(table.Schema), commentSafe(table.Name)),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (", target),
	}
	for i, col := range table.Columns {
		def := "  " + columnSQL(col)
		if i < len(table.Columns)-1 {
			def += ","
		}
		lines = append(lines, def)
	}
	lines = append(lines, ");")

	for _, idx := range table.Indexes {
		lines = append(lines, indexSQL(idx, target))
	}

	// Every user gets every privilege on every table; User.Permissions is not consulted.
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("GRANT ALL PRIVILEGES ON TABLE %s TO %s;", target, QuoteIdent(u.Username)))
	}

	return lines
}

func columnSQL(col schema.Column) string {
	def := QuoteIdent(col.Name) + " " + col.Type
	if col.Default != nil && *col.Default != "" {
		def += " DEFAULT " + *col.Default
	}

	constraints := col.Constraints
	if !col.Nullable && !col.HasConstraint("NOT NULL") {
		constraints = append(append([]string{}, constraints...), "NOT NULL")
	}
	if len(constraints) > 0 {
		def += " " + strings.Join(constraints, " ")
	}
	return def
}

func indexSQL(idx schema.Index, target string) string {
	stmt := "CREATE"
	if idx.Unique {
		stmt += " UNIQUE"
	}

	cols := make([]string, len(idx.Columns))
	for i, col := range idx.Columns {
		cols[i] = QuoteIdent(col)
	}
	stmt += fmt.Sprintf(" INDEX IF NOT EXISTS %s ON %s (%s)", QuoteIdent(idx.Name), target, strings.Join(cols, ", "))

	if idx.Where != nil && *idx.Where != "" {
		stmt += " WHERE " + *idx.Where
	}
	return stmt + ";"
}

func taskSQL(task schema.Task) []string {
	if task == nil {
		return []string{"-- Unknown task type: <nil>"}
	}
	lines := []string{fmt.Sprintf("-- Task: %s", commentSafe(task.TaskName()))}

	switch t := task.(type) {
	case schema.GrantTask:
		if !t.Complete() {
			return append(lines, "-- Error: GRANT task requires user, database, and permissions")
		}
		return append(lines, fmt.Sprintf("GRANT %s ON DATABASE %s TO %s;",
			strings.Join(t.Permissions, ", "), QuoteIdent(t.Database), QuoteIdent(t.User)))

	case schema.RevokeTask:
		if !t.Complete() {
			return append(lines, "-- Error: REVOKE task requires user, database, and permissions")
		}
		return append(lines, fmt.Sprintf("REVOKE %s ON DATABASE %s FROM %s;",
			strings.Join(t.Permissions, ", "), QuoteIdent(t.Database), QuoteIdent(t.User)))

	case schema.ExtensionTask:
		if !t.Complete() {
			return append(lines, "-- Error: CREATE_EXTENSION task requires extension")
		}
		return append(lines, fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s;", QuoteIdent(t.Extension)))

	case schema.CustomTask:
		if !t.Complete() {
			return append(lines, "-- Error: CUSTOM task requires sql")
		}
		return append(lines, t.SQL)

	default:
		return append(lines, fmt.Sprintf("-- Unknown task type: %s", commentSafe(string(task.Kind()))))
	}
}

// WriteScript saves the rendered script to path, creating parent directories
// as needed.
func WriteScript(path, script string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return fmt.Errorf("writing script file: %w", err)
	}
	return nil
}
