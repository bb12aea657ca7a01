package spreadsheet

import (
	"errors"
	"sync"
)

// ErrNoContext reports a value lookup before any successful rebuild.
var ErrNoContext = errors.New("no evaluation context")

// EvalContext is one built formula-evaluation state spanning every sheet of
// a document. Implementations wrap an external formula engine; the session
// treats them as opaque.
type EvalContext interface {
	// Value returns the evaluated display value of a cell.
	Value(sheet string, row, col int) (string, error)
	// Close releases the engine resources. A closed context returns errors
	// from Value.
	Close()
}

// Evaluator builds evaluation contexts from a document's sheet set.
type Evaluator interface {
	BuildContext(blocks []Block) (EvalContext, error)
}

// Session owns the spreadsheet state of one open document: the extracted
// blocks and the shared evaluation context across them. Any change to the
// block set rebuilds the context in full; previously evaluated values are
// invalid after a rebuild.
type Session struct {
	mu     sync.Mutex
	eval   Evaluator
	blocks []Block
	ctx    EvalContext
}

// NewSession creates an empty session evaluating through eval.
func NewSession(eval Evaluator) *Session {
	return &Session{eval: eval}
}

// Rebuild re-extracts the document's blocks and, when the set differs from
// the current one, tears down the old context and builds a fresh one.
// Rebuilding with an unchanged block set keeps the existing context.
func (s *Session) Rebuild(body string) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := Extract(body)
	if s.ctx != nil && sameBlocks(s.blocks, blocks) {
		return nil
	}

	if s.ctx != nil {
		s.ctx.Close()
		s.ctx = nil
	}
	s.blocks = blocks
	if len(blocks) == 0 || s.eval == nil {
		return nil
	}

	ctx, err := s.eval.BuildContext(blocks)
	if err != nil {
		return err
	}
	s.ctx = ctx
	return nil
}

// Sheets returns the sheet names in document order.
func (s *Session) Sheets() []string {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.blocks))
	for i, b := range s.blocks {
		names[i] = b.Name
	}
	return names
}

// Blocks returns the extracted blocks in document order.
func (s *Session) Blocks() []Block {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Value evaluates one cell through the current context.
func (s *Session) Value(sheet string, row, col int) (string, error) {
	if s == nil {
		return "", ErrNoContext
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil {
		return "", ErrNoContext
	}
	return ctx.Value(sheet, row, col)
}

// Close tears down the evaluation context. The session can be rebuilt after
// closing.
func (s *Session) Close() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		s.ctx.Close()
		s.ctx = nil
	}
	s.blocks = nil
}

func sameBlocks(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Raw != b[i].Raw {
			return false
		}
	}
	return true
}
