// Package spreadsheet extracts fenced tabular blocks from a document and
// manages the shared evaluation session spanning them, so formulas in one
// block can reference another block by sheet name.
package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Block is one fenced spreadsheet block of a document.
type Block struct {
	// Name is the unique sheet name within the document.
	Name string
	// Raw is the block's CSV-like text, verbatim.
	Raw string
	// Index is the block's position in document order, starting at 0.
	Index int
}

var (
	blockPattern    = regexp.MustCompile("(?is)```+[ \t]*spreadsheet([^\r\n]*)\r?\n(.*?)```")
	nameAttrPattern = regexp.MustCompile(`(?i)(?:name|title)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s,;]+))`)
)

// Extract returns the document's spreadsheet blocks in order. Sheet names
// come from a name="..." or title="..." attribute on the fence line (quoted
// or bare), falling back to "Sheet<n>"; duplicates get " (2)", " (3)"
// suffixes so every name is unique within the document.
func Extract(body string) []Block {
	matches := blockPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	taken := make(map[string]bool, len(matches))
	blocks := make([]Block, 0, len(matches))
	for i, match := range matches {
		raw := match[2]
		name := declaredName(match[1])
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}

		unique := name
		for n := 2; taken[unique]; n++ {
			unique = fmt.Sprintf("%s (%d)", name, n)
		}
		taken[unique] = true

		blocks = append(blocks, Block{Name: unique, Raw: raw, Index: i})
	}
	return blocks
}

// declaredName pulls the sheet name out of a fence info string. The first
// non-empty capture wins: double-quoted, single-quoted, then bare value.
func declaredName(meta string) string {
	m := nameAttrPattern.FindStringSubmatch(strings.TrimSpace(meta))
	if m == nil {
		return ""
	}
	for _, group := range m[1:] {
		if group != "" {
			return strings.TrimSpace(group)
		}
	}
	return ""
}

// Cells parses the block's raw text into rows of cells. Parsing is relaxed:
// ragged rows are allowed, quotes inside unquoted fields pass through, and
// empty cells come back as empty strings.
func (b Block) Cells() ([][]string, error) {
	r := csv.NewReader(strings.NewReader(b.Raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = false

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", b.Name, err)
		}
		rows = append(rows, record)
	}
}

// IsFormula reports whether a cell holds a formula rather than a literal.
func IsFormula(cell string) bool {
	return strings.HasPrefix(cell, "=")
}
