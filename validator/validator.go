package validator

import (
	"fmt"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/kenilGamer/restodrive-dbsetup/generator"
	"github.com/kenilGamer/restodrive-dbsetup/schema"
)

// Finding is a non-fatal observation about a parsed config.
type Finding struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Index    string `json:"index,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "warning", "info"
}

// Result collects every Finding produced by Lint.
type Result struct {
	Warnings []Finding `json:"warnings"`
	Info     []Finding `json:"info"`
}

// Clean reports whether Lint found nothing worth a warning.
func (r *Result) Clean() bool {
	return len(r.Warnings) == 0
}

const maxIdentifierLength = 63

var reservedKeywords = map[string]bool{
	"all": true, "and": true, "any": true, "as": true, "check": true, "column": true,
	"constraint": true, "create": true, "default": true, "desc": true, "from": true,
	"grant": true, "group": true, "index": true, "limit": true, "not": true, "null": true,
	"order": true, "primary": true, "references": true, "schema": true, "select": true,
	"table": true, "to": true, "union": true, "unique": true, "user": true, "view": true,
	"where": true, "with": true,
}

// Lint inspects a config that already passed schema.Parse and reports
// anything likely to surprise at provisioning time. It never fails.
func Lint(cfg *schema.Config) *Result {
	l := &linter{result: &Result{Warnings: []Finding{}, Info: []Finding{}}}

	l.identifier("database.name", cfg.Database.Name, Finding{})
	l.users(cfg)

	seenTables := make(map[string]bool)
	for i, table := range cfg.Tables {
		path := fmt.Sprintf("tables.%d", i)
		key := table.Schema + "." + table.Name
		if seenTables[key] {
			l.warn(Finding{
				Type:    "duplicate_table",
				Path:    path,
				Table:   key,
				Message: fmt.Sprintf("Table '%s' is declared more than once", key),
			})
		}
		seenTables[key] = true
		l.table(path, table)
	}

	l.tasks(cfg)

	return l.result
}

type linter struct {
	result *Result
}

func (l *linter) warn(f Finding) {
	f.Severity = "warning"
	l.result.Warnings = append(l.result.Warnings, f)
}

func (l *linter) info(f Finding) {
	f.Severity = "info"
	l.result.Info = append(l.result.Info, f)
}

// identifier checks a single name; ctx supplies the table/column/index labels.
func (l *linter) identifier(path, name string, ctx Finding) {
	ctx.Path = path

	if len(name) > maxIdentifierLength {
		f := ctx
		f.Type = "identifier_length"
		f.Message = fmt.Sprintf("'%s' is too long (max %d characters) and will be truncated", name, maxIdentifierLength)
		l.warn(f)
	}

	quoted := generator.QuoteIdent(name)
	switch {
	case quoted != name:
		f := ctx
		f.Type = "quoted_identifier"
		f.Message = fmt.Sprintf("'%s' will be emitted as %s", name, quoted)
		l.info(f)
	case reservedKeywords[strings.ToLower(name)]:
		f := ctx
		f.Type = "reserved_keyword"
		f.Message = fmt.Sprintf("'%s' is a reserved keyword and is emitted unquoted", name)
		l.warn(f)
	case strings.ToLower(name) != name:
		f := ctx
		f.Type = "case_folding"
		f.Message = fmt.Sprintf("'%s' is emitted unquoted and will be folded to '%s'", name, strings.ToLower(name))
		l.info(f)
	}
}

func (l *linter) users(cfg *schema.Config) {
	seen := make(map[string]bool)
	for i, u := range cfg.Users {
		path := fmt.Sprintf("users.%d", i)
		l.identifier(path+".username", u.Username, Finding{})

		if seen[u.Username] {
			l.warn(Finding{
				Type:    "duplicate_user",
				Path:    path + ".username",
				Message: fmt.Sprintf("User '%s' is declared more than once", u.Username),
			})
		}
		seen[u.Username] = true

		if len(u.Permissions) > 0 {
			l.warn(Finding{
				Type: "permissions_ignored",
				Path: path + ".permissions",
				Message: fmt.Sprintf("permissions %v of user '%s' are not applied; every user is granted ALL PRIVILEGES on every table",
					u.Permissions, u.Username),
			})
		}

		for j, db := range u.Databases {
			if db != cfg.Database.Name {
				l.info(Finding{
					Type:    "foreign_database",
					Path:    fmt.Sprintf("%s.databases.%d", path, j),
					Message: fmt.Sprintf("User '%s' is granted CONNECT on '%s', which this script does not create", u.Username, db),
				})
			}
		}
	}
}

func (l *linter) table(path string, table schema.Table) {
	label := table.Schema + "." + table.Name
	l.identifier(path+".schema", table.Schema, Finding{Table: label})
	l.identifier(path+".name", table.Name, Finding{Table: label})

	if len(table.Columns) == 0 {
		l.warn(Finding{
			Type:    "no_columns",
			Path:    path + ".columns",
			Table:   label,
			Message: fmt.Sprintf("Table '%s' has no columns", label),
		})
	}

	columnNames := make(map[string]bool)
	hasPrimaryKey := false
	for _, c := range table.Constraints {
		if strings.Contains(strings.ToUpper(c), "PRIMARY KEY") {
			hasPrimaryKey = true
		}
	}

	for i, column := range table.Columns {
		colPath := fmt.Sprintf("%s.columns.%d", path, i)
		if columnNames[column.Name] {
			l.warn(Finding{
				Type:    "duplicate_column",
				Path:    colPath,
				Table:   label,
				Column:  column.Name,
				Message: fmt.Sprintf("Duplicate column name '%s' in table '%s'", column.Name, label),
			})
			continue
		}
		columnNames[column.Name] = true
		l.identifier(colPath+".name", column.Name, Finding{Table: label, Column: column.Name})

		if column.HasConstraint("PRIMARY KEY") {
			hasPrimaryKey = true
		}
	}

	if !hasPrimaryKey && len(table.Columns) > 0 {
		l.info(Finding{
			Type:    "no_primary_key",
			Path:    path,
			Table:   label,
			Message: fmt.Sprintf("Table '%s' has no primary key defined", label),
		})
	}

	if len(table.Constraints) > 0 {
		l.info(Finding{
			Type:    "table_constraints",
			Path:    path + ".constraints",
			Table:   label,
			Message: fmt.Sprintf("%d table-level constraint(s) on '%s' are kept in the config but not rendered", len(table.Constraints), label),
		})
	}

	indexNames := make(map[string]bool)
	for i, index := range table.Indexes {
		idxPath := fmt.Sprintf("%s.indexes.%d", path, i)
		if indexNames[index.Name] {
			l.warn(Finding{
				Type:    "duplicate_index",
				Path:    idxPath,
				Table:   label,
				Index:   index.Name,
				Message: fmt.Sprintf("Duplicate index name '%s' in table '%s'", index.Name, label),
			})
			continue
		}
		indexNames[index.Name] = true
		l.identifier(idxPath+".name", index.Name, Finding{Table: label, Index: index.Name})

		for j, columnName := range index.Columns {
			if !columnNames[columnName] {
				l.warn(Finding{
					Type:    "index_column_not_found",
					Path:    fmt.Sprintf("%s.columns.%d", idxPath, j),
					Table:   label,
					Index:   index.Name,
					Column:  columnName,
					Message: fmt.Sprintf("Index '%s' references non-existent column '%s' in table '%s'", index.Name, columnName, label),
				})
			}
		}
	}
}

func (l *linter) tasks(cfg *schema.Config) {
	users := make(map[string]bool)
	for _, u := range cfg.Users {
		users[u.Username] = true
	}

	for i, task := range cfg.Tasks {
		path := fmt.Sprintf("tasks.%d", i)

		incomplete := func(fields string) {
			l.warn(Finding{
				Type:    "incomplete_task",
				Path:    path,
				Message: fmt.Sprintf("%s task '%s' is missing %s and will render as an error comment", task.Kind(), task.TaskName(), fields),
			})
		}
		undeclared := func(user string) {
			if user != "" && !users[user] {
				l.info(Finding{
					Type:    "undeclared_user",
					Path:    path + ".user",
					Message: fmt.Sprintf("%s task '%s' refers to user '%s', which is not declared in users", task.Kind(), task.TaskName(), user),
				})
			}
		}

		switch t := task.(type) {
		case schema.GrantTask:
			if !t.Complete() {
				incomplete("user, database, or permissions")
			}
			undeclared(t.User)
		case schema.RevokeTask:
			if !t.Complete() {
				incomplete("user, database, or permissions")
			}
			undeclared(t.User)
		case schema.ExtensionTask:
			if !t.Complete() {
				incomplete("extension")
			}
		case schema.CustomTask:
			if !t.Complete() {
				incomplete("sql")
				continue
			}
			if _, err := pgquery.Parse(t.SQL); err != nil {
				l.warn(Finding{
					Type:    "custom_sql_syntax",
					Path:    path + ".sql",
					Message: fmt.Sprintf("CUSTOM task '%s' does not parse as PostgreSQL: %v", t.Name, err),
				})
			}
		}
	}
}
