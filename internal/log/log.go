// Package log provides centralised audit logging for tagd operations.
// Entries are stored in ~/.tagd/log/tagd-log.db and record every CLI
// command, MCP tool call and HTTP request across projects.
//
// # Fluent API
//
//	log.Event("tag:rename", "rename").
//		Author(cmd.Author()).
//		TagID(id).
//		Tag(newName).
//		Write(err)
//
//	log.Event("tag:resolve", "resolve").
//		Author(cmd.Author()).
//		Detail("names", names).
//		Detail("created", created).
//		Write(err)
//
// The source follows "{extension}:{command}" for CLI commands,
// "mcp:{tool}" for MCP tools and "http:{route}" for the HTTP API.
package log

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	global *Logger
	mu     sync.Mutex
)

// Entry represents a single log entry.
type Entry struct {
	Source string // e.g. "tag:resolve", "mcp:tagd_resolve"
	Author string // who performed the action
	Action string // verb: resolve, rename, enable, backfill, etc.
	Tag    string // input: tag name requested
	TagID  int64  // input: tag id requested

	// Output fields, populated after the operation succeeds
	ResolvedTag string // output: stored name when it differs from the input
	ResultID    int64  // output: id of the tag created or touched

	Start int64 // unix timestamp when Event() called
	End   int64 // unix timestamp when Write() called

	Success bool
	Error   string
	Detail  map[string]any // operation-specific data
}

// Builder constructs a log entry. Create with [Event], chain setters, then
// call [Builder.Write].
type Builder struct {
	entry Entry
}

// Event creates a new log entry builder for an operation.
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().Unix(),
		},
	}
}

// Author sets who performed the operation. CLI commands pass cmd.Author();
// MCP tools pass "mcp".
func (b *Builder) Author(author string) *Builder {
	b.entry.Author = author
	return b
}

// Tag sets the tag name the operation was asked about.
func (b *Builder) Tag(name string) *Builder {
	b.entry.Tag = name
	return b
}

// TagID sets the tag id the operation was asked about.
func (b *Builder) TagID(id int64) *Builder {
	b.entry.TagID = id
	return b
}

// Resolved records the stored name of the tag the operation landed on,
// for example when a case-insensitive lookup matched a differently cased
// name.
func (b *Builder) Resolved(name string) *Builder {
	b.entry.ResolvedTag = name
	return b
}

// ResultID records the id of the tag created or modified.
func (b *Builder) ResultID(id int64) *Builder {
	b.entry.ResultID = id
	return b
}

// Detail adds a key-value pair to the entry's detail map.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write records the entry, deriving success from err.
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().Unix()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global logger. Safe to call multiple times.
// Callers may ignore the error; logging is best-effort.
func Open() error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}

	p := dbPath()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", p+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	global = &Logger{db: db}
	return nil
}

// SetProject sets the project identifier for subsequent entries. dir is
// the absolute path of the .tagd directory.
func SetProject(dir string) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.project = hash(dir)
	}
}

// Log writes an entry. No-op when the logger is not open.
func Log(e Entry) {
	mu.Lock()
	l := global
	mu.Unlock()

	if l == nil {
		return
	}
	l.log(e)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}
