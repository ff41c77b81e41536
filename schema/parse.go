package schema

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultSchema    = "public"
	DefaultHost      = "localhost"
	DefaultPort      = 5432
	DefaultAdminUser = "postgres"
)

// Issue is a single shape violation found while parsing a config.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError carries every Issue found in a config, in document order.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return fmt.Sprintf("invalid config (%d issues): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Parse turns a decoded JSON (or YAML) document into a Config, filling in
// defaults. All violations are collected; when there is at least one, Parse
// returns a *ValidationError and no Config.
func Parse(raw any) (*Config, error) {
	p := &parser{}
	cfg := p.config(raw)
	if len(p.issues) > 0 {
		return nil, &ValidationError{Issues: p.issues}
	}
	return cfg, nil
}

type parser struct {
	issues []Issue
}

func (p *parser) fail(path, format string, args ...any) {
	p.issues = append(p.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) config(raw any) *Config {
	obj, ok := p.object("", raw, true)
	if !ok {
		return nil
	}

	cfg := &Config{}
	if db, ok := p.object("database", obj["database"], true); ok {
		cfg.Database = Database{
			Name:      p.requiredString("database.name", db["name"], true),
			Host:      p.optionalString("database.host", db["host"], DefaultHost),
			Port:      p.optionalInt("database.port", db["port"], DefaultPort, 1, 65535),
			AdminUser: p.optionalString("database.adminUser", db["adminUser"], DefaultAdminUser),
		}
	}

	users, _ := p.array("users", obj["users"], false)
	cfg.Users = make([]User, 0, len(users))
	for i, item := range users {
		path := at("users", i)
		u, ok := p.object(path, item, true)
		if !ok {
			continue
		}
		cfg.Users = append(cfg.Users, User{
			Username:    p.requiredString(at(path, "username"), u["username"], true),
			Password:    p.requiredString(at(path, "password"), u["password"], false),
			Permissions: p.stringList(at(path, "permissions"), u["permissions"], false),
			Databases:   p.stringList(at(path, "databases"), u["databases"], false),
		})
	}

	tables, _ := p.array("tables", obj["tables"], false)
	cfg.Tables = make([]Table, 0, len(tables))
	for i, item := range tables {
		if t, ok := p.table(at("tables", i), item); ok {
			cfg.Tables = append(cfg.Tables, t)
		}
	}

	tasks, _ := p.array("tasks", obj["tasks"], false)
	cfg.Tasks = make([]Task, 0, len(tasks))
	for i, item := range tasks {
		if t := p.task(at("tasks", i), item); t != nil {
			cfg.Tasks = append(cfg.Tasks, t)
		}
	}

	return cfg
}

func (p *parser) table(path string, raw any) (Table, bool) {
	obj, ok := p.object(path, raw, true)
	if !ok {
		return Table{}, false
	}
	t := Table{
		Name:        p.requiredString(at(path, "name"), obj["name"], true),
		Schema:      p.optionalString(at(path, "schema"), obj["schema"], DefaultSchema),
		Constraints: p.stringList(at(path, "constraints"), obj["constraints"], false),
	}

	columns, _ := p.array(at(path, "columns"), obj["columns"], true)
	t.Columns = make([]Column, 0, len(columns))
	for i, item := range columns {
		colPath := at(at(path, "columns"), i)
		c, ok := p.object(colPath, item, true)
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, Column{
			Name:        p.requiredString(at(colPath, "name"), c["name"], true),
			Type:        p.requiredString(at(colPath, "type"), c["type"], true),
			Default:     p.optionalStringPtr(at(colPath, "default"), c["default"]),
			Constraints: p.stringList(at(colPath, "constraints"), c["constraints"], false),
			Nullable:    p.optionalBool(at(colPath, "nullable"), c["nullable"], true),
		})
	}

	indexes, _ := p.array(at(path, "indexes"), obj["indexes"], false)
	t.Indexes = make([]Index, 0, len(indexes))
	for i, item := range indexes {
		idxPath := at(at(path, "indexes"), i)
		x, ok := p.object(idxPath, item, true)
		if !ok {
			continue
		}
		t.Indexes = append(t.Indexes, Index{
			Name:    p.requiredString(at(idxPath, "name"), x["name"], true),
			Columns: p.stringList(at(idxPath, "columns"), x["columns"], true),
			Unique:  p.optionalBool(at(idxPath, "unique"), x["unique"], false),
			Where:   p.optionalStringPtr(at(idxPath, "where"), x["where"]),
		})
	}

	return t, true
}

func (p *parser) task(path string, raw any) Task {
	obj, ok := p.object(path, raw, true)
	if !ok {
		return nil
	}
	name := p.requiredString(at(path, "name"), obj["name"], false)
	kind := p.taskKind(at(path, "type"), obj["type"])

	user := p.optionalString(at(path, "user"), obj["user"], "")
	database := p.optionalString(at(path, "database"), obj["database"], "")
	permissions := p.stringList(at(path, "permissions"), obj["permissions"], false)
	extension := p.optionalString(at(path, "extension"), obj["extension"], "")
	sql := p.optionalString(at(path, "sql"), obj["sql"], "")

	switch kind {
	case TaskGrant:
		return GrantTask{Name: name, User: user, Database: database, Permissions: permissions}
	case TaskRevoke:
		return RevokeTask{Name: name, User: user, Database: database, Permissions: permissions}
	case TaskCreateExtension:
		return ExtensionTask{Name: name, Extension: extension}
	case TaskCustom:
		return CustomTask{Name: name, SQL: sql}
	}
	return nil
}

func (p *parser) taskKind(path string, raw any) TaskKind {
	if raw == nil {
		p.fail(path, "Required")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		p.fail(path, "Expected string, received %s", typeName(raw))
		return ""
	}
	for _, kind := range TaskKinds {
		if TaskKind(s) == kind {
			return kind
		}
	}
	names := make([]string, len(TaskKinds))
	for i, kind := range TaskKinds {
		names[i] = string(kind)
	}
	p.fail(path, "Invalid enum value: %q is not one of {%s}", s, strings.Join(names, ", "))
	return ""
}

func (p *parser) object(path string, raw any, required bool) (map[string]any, bool) {
	if raw == nil {
		if required {
			p.fail(path, "Required")
		}
		return nil, false
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		p.fail(path, "Expected object, received %s", typeName(raw))
		return nil, false
	}
	return obj, true
}

func (p *parser) array(path string, raw any, required bool) ([]any, bool) {
	if raw == nil {
		if required {
			p.fail(path, "Required")
		}
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		p.fail(path, "Expected array, received %s", typeName(raw))
		return nil, false
	}
	return items, true
}

func (p *parser) requiredString(path string, raw any, nonEmpty bool) string {
	if raw == nil {
		p.fail(path, "Required")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		p.fail(path, "Expected string, received %s", typeName(raw))
		return ""
	}
	if nonEmpty && s == "" {
		p.fail(path, "String must contain at least 1 character(s)")
	}
	return s
}

func (p *parser) optionalString(path string, raw any, def string) string {
	if v := p.optionalStringPtr(path, raw); v != nil {
		return *v
	}
	return def
}

func (p *parser) optionalStringPtr(path string, raw any) *string {
	if raw == nil {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		p.fail(path, "Expected string, received %s", typeName(raw))
		return nil
	}
	return &s
}

func (p *parser) optionalBool(path string, raw any, def bool) bool {
	if raw == nil {
		return def
	}
	b, ok := raw.(bool)
	if !ok {
		p.fail(path, "Expected boolean, received %s", typeName(raw))
		return def
	}
	return b
}

// optionalInt accepts any integral number within [lo, hi]. Bounds are
// checked before conversion so huge floats cannot wrap around.
func (p *parser) optionalInt(path string, raw any, def, lo, hi int) int {
	var n float64
	switch v := raw.(type) {
	case nil:
		return def
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint64:
		n = float64(v)
	case float64:
		if v != math.Trunc(v) {
			p.fail(path, "Expected integer, received float")
			return def
		}
		n = v
	default:
		p.fail(path, "Expected number, received %s", typeName(raw))
		return def
	}

	switch {
	case n < float64(lo):
		p.fail(path, "Number must be greater than or equal to %d", lo)
		return def
	case n > float64(hi):
		p.fail(path, "Number must be less than or equal to %d", hi)
		return def
	}
	return int(n)
}

// stringList returns a non-nil slice so that absent lists and empty lists
// look the same to callers.
func (p *parser) stringList(path string, raw any, nonEmpty bool) []string {
	out := []string{}
	items, ok := p.array(path, raw, nonEmpty)
	if !ok {
		return out
	}
	if nonEmpty && len(items) == 0 {
		p.fail(path, "Array must contain at least 1 element(s)")
		return out
	}
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			p.fail(at(path, i), "Expected string, received %s", typeName(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func at(path string, key any) string {
	if path == "" {
		return fmt.Sprint(key)
	}
	return fmt.Sprintf("%s.%v", path, key)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
