package frontmatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"
)

// Metadata holds the fields the pane engine cares about from a note's
// frontmatter. Unknown fields are preserved in the raw block, not here.
type Metadata struct {
	Title   string   `yaml:"title"`
	Banner  string   `yaml:"banner"`
	Tags    []string `yaml:"tags"`
	Created string   `yaml:"created"`
	Updated string   `yaml:"updated"`
}

// Split separates a leading frontmatter block from the body. The frontmatter
// is returned verbatim, including both marker lines and the trailing newline.
// Malformed or unterminated blocks degrade to ("", content).
func Split(content string) (front, body string) {
	if !strings.HasPrefix(content, "---\r\n") && !strings.HasPrefix(content, "---\n") {
		return "", content
	}

	lines := strings.SplitAfter(content, "\n")
	for i := 1; i < len(lines); i++ {
		if marker := strings.TrimRight(lines[i], "\r\n"); marker == "---" {
			split := strings.Join(lines[:i+1], "")
			return split, content[len(split):]
		}
	}

	return "", content
}

// Parse decodes the YAML inside a frontmatter block produced by Split.
func Parse(front string) (Metadata, error) {
	var meta Metadata
	inner := strings.TrimSpace(front)
	inner = strings.TrimPrefix(inner, "---")
	if idx := strings.LastIndex(inner, "---"); idx >= 0 {
		inner = inner[:idx]
	}

	if err := yaml.Unmarshal([]byte(inner), &meta); err != nil {
		return Metadata{}, fmt.Errorf("error parsing front matter: %w", err)
	}
	return meta, nil
}

// CreatedAt parses the created stamp with a permissive date parser.
func (m Metadata) CreatedAt() (time.Time, bool) {
	return parseStamp(m.Created)
}

// UpdatedAt parses the updated stamp with a permissive date parser.
func (m Metadata) UpdatedAt() (time.Time, bool) {
	return parseStamp(m.Updated)
}

func parseStamp(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(trimmed)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UpdateField updates or appends a scalar field inside the frontmatter block.
// Content without a leading frontmatter block is returned unchanged.
func UpdateField(content, field, value string) string {
	front, _ := Split(content)
	if front == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return content
	}

	prefix := field + ":"
	for i := 1; i < end; i++ {
		if strings.HasPrefix(strings.TrimLeft(lines[i], " \t"), prefix) {
			lines[i] = fmt.Sprintf("%s: %s", field, value)
			return strings.Join(lines, "\n")
		}
	}

	updated := append([]string{}, lines[:end]...)
	updated = append(updated, fmt.Sprintf("%s: %s", field, value))
	updated = append(updated, lines[end:]...)
	return strings.Join(updated, "\n")
}
