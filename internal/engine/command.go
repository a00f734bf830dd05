// Package engine owns the live indexer (context index, document table,
// schema) and executes the command surface against it under a
// single-writer / multi-reader discipline.
package engine

import (
	"github.com/seralab/contexture/internal/doctable"
	"github.com/seralab/contexture/internal/query"
	"github.com/seralab/contexture/internal/schema"
)

// Command is a control-plane command consumed by the engine.
type Command interface {
	isCommand()
	// Kind names the command for logs and metrics.
	Kind() string
}

// Search executes a query and returns a page of ranked document hits.
type Search struct {
	Query  query.Query
	Offset int
	Limit  int
}

// Completion executes a query and returns the top word completions by
// descending score.
type Completion struct {
	Query query.Query
	Limit int
}

// Insert ingests a new document. The URI must not exist, and every context
// the document mentions must exist.
type Insert struct {
	Doc doctable.Document
}

// Update replaces an existing document. The URI must exist.
type Update struct {
	Doc doctable.Document
}

// BatchDelete removes every document whose URI is listed; missing URIs are
// silently ignored.
type BatchDelete struct {
	URIs []string
}

// InsertContext creates a new context with the given schema.
type InsertContext struct {
	Context schema.Context
	Schema  schema.ContextSchema
}

// DeleteContext drops a context and all its postings. Idempotent.
type DeleteContext struct {
	Context schema.Context
}

// StoreIx persists the whole indexer to a file.
type StoreIx struct {
	Path string
}

// LoadIx replaces the live indexer with a persisted one.
type LoadIx struct {
	Path string
}

// Sequence executes its children in order, aborting on the first error.
type Sequence struct {
	Commands []Command
}

// Noop does nothing and succeeds.
type Noop struct{}

// Status reports engine statistics.
type Status struct{}

func (Search) isCommand()        {}
func (Completion) isCommand()    {}
func (Insert) isCommand()        {}
func (Update) isCommand()        {}
func (BatchDelete) isCommand()   {}
func (InsertContext) isCommand() {}
func (DeleteContext) isCommand() {}
func (StoreIx) isCommand()       {}
func (LoadIx) isCommand()        {}
func (Sequence) isCommand()      {}
func (Noop) isCommand()          {}
func (Status) isCommand()        {}

func (Search) Kind() string        { return "search" }
func (Completion) Kind() string    { return "completion" }
func (Insert) Kind() string        { return "insert" }
func (Update) Kind() string        { return "update" }
func (BatchDelete) Kind() string   { return "batch-delete" }
func (InsertContext) Kind() string { return "insert-context" }
func (DeleteContext) Kind() string { return "delete-context" }
func (StoreIx) Kind() string       { return "store-index" }
func (LoadIx) Kind() string        { return "load-index" }
func (Sequence) Kind() string      { return "sequence" }
func (Noop) Kind() string          { return "noop" }
func (Status) Kind() string        { return "status" }

// Result is the success value of a command.
type Result interface {
	isResult()
}

// ResOK is the result of commands that only change state.
type ResOK struct{}

// ResSearch carries a page of ranked document hits.
type ResSearch struct {
	Page ResultPage
}

// ResCompletion carries ranked word completions.
type ResCompletion struct {
	Words []WordScore
}

// ResStatus carries engine statistics.
type ResStatus struct {
	Documents int           `json:"documents"`
	Contexts  schema.Schema `json:"contexts"`
	Terms     int           `json:"terms"`
}

func (ResOK) isResult()         {}
func (ResSearch) isResult()     {}
func (ResCompletion) isResult() {}
func (ResStatus) isResult()     {}
