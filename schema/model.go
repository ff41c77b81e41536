package schema

// Config is the root of a database provisioning description.
type Config struct {
	Database Database
	Users    []User
	Tables   []Table
	Tasks    []Task
}

type Database struct {
	Name      string
	Host      string
	Port      int
	AdminUser string
}

type User struct {
	Username    string
	Password    string
	Permissions []string // informational only, never rendered
	Databases   []string
}

type Table struct {
	Name        string
	Schema      string
	Columns     []Column
	Indexes     []Index
	Constraints []string
}

type Column struct {
	Name        string
	Type        string
	Default     *string
	Constraints []string
	Nullable    bool
}

type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Where   *string
}

type TaskKind string

const (
	TaskGrant           TaskKind = "GRANT"
	TaskRevoke          TaskKind = "REVOKE"
	TaskCreateExtension TaskKind = "CREATE_EXTENSION"
	TaskCustom          TaskKind = "CUSTOM"
)

// TaskKinds lists the accepted task types in the order they are reported.
var TaskKinds = []TaskKind{TaskGrant, TaskRevoke, TaskCreateExtension, TaskCustom}

// Task is one of GrantTask, RevokeTask, ExtensionTask or CustomTask.
// Fields a variant needs may still be empty: completeness is checked when
// the task is rendered, not when it is parsed.
type Task interface {
	TaskName() string
	Kind() TaskKind
	sealed()
}

type GrantTask struct {
	Name        string
	User        string
	Database    string
	Permissions []string
}

type RevokeTask struct {
	Name        string
	User        string
	Database    string
	Permissions []string
}

type ExtensionTask struct {
	Name      string
	Extension string
}

type CustomTask struct {
	Name string
	SQL  string
}

func (t GrantTask) TaskName() string     { return t.Name }
func (t RevokeTask) TaskName() string    { return t.Name }
func (t ExtensionTask) TaskName() string { return t.Name }
func (t CustomTask) TaskName() string    { return t.Name }

func (GrantTask) Kind() TaskKind     { return TaskGrant }
func (RevokeTask) Kind() TaskKind    { return TaskRevoke }
func (ExtensionTask) Kind() TaskKind { return TaskCreateExtension }
func (CustomTask) Kind() TaskKind    { return TaskCustom }

func (GrantTask) sealed()     {}
func (RevokeTask) sealed()    {}
func (ExtensionTask) sealed() {}
func (CustomTask) sealed()    {}

// Complete reports whether the task carries every field its kind needs.
func (t GrantTask) Complete() bool {
	return t.User != "" && t.Database != "" && len(t.Permissions) > 0
}

func (t RevokeTask) Complete() bool {
	return t.User != "" && t.Database != "" && len(t.Permissions) > 0
}

func (t ExtensionTask) Complete() bool { return t.Extension != "" }

func (t CustomTask) Complete() bool { return t.SQL != "" }

// HasConstraint reports whether the column already lists the given constraint,
// ignoring case and surrounding whitespace.
func (c Column) HasConstraint(constraint string) bool {
	for _, existing := range c.Constraints {
		if equalFoldTrim(existing, constraint) {
			return true
		}
	}
	return false
}
