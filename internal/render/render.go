package render

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/granitemd/granite/internal/docindex"
	"github.com/granitemd/granite/internal/frontmatter"
)

// Typesetter renders a math expression to HTML. It may fail; the pipeline
// falls back to the raw delimited source text.
type Typesetter interface {
	RenderToString(expression string, displayMode bool) (string, error)
}

// Capabilities names the specialized fenced-block renderers available to the
// host. A nil capability leaves the block as an ordinary code block.
type Capabilities struct {
	Spreadsheet func(source string)
	Mermaid     func(source string)
}

// Pipeline converts note body markdown into sanitized HTML. It is not
// re-entrant on its own output; inputs must always be raw markdown.
type Pipeline struct {
	index    *docindex.Index
	typeset  Typesetter
	caps     Capabilities
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

var (
	blockMathPattern  = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	inlineMathPattern = regexp.MustCompile(`\$([^$\n]+?)\$`)
	wikilinkPattern   = regexp.MustCompile(`\[\[([^\]|]+?)(?:\|([^\]]+?))?\]\]`)
	embedPattern      = regexp.MustCompile(`!\[\[([^\]]+?)\]\]`)
	highlightPattern  = regexp.MustCompile(`==([^=\n][^=\n]*?)==`)
	headingPattern    = regexp.MustCompile(`(?s)<h1[^>]*>(.*?)</h1>\n?`)
)

func fencePattern(lang string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<pre><code class="language-` + lang + `">(.*?)</code></pre>`)
}

var (
	spreadsheetFence = fencePattern("spreadsheet")
	mermaidFence     = fencePattern("mermaid")
)

// NewPipeline wires the render pipeline against the shared document index,
// an optional math typesetter, and the host's fenced-block capabilities.
func NewPipeline(index *docindex.Index, typeset Typesetter, caps Capabilities) *Pipeline {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowDataAttributes()
	policy.AllowAttrs("class").Globally()
	policy.AllowElements("mark", "span")

	return &Pipeline{
		index:    index,
		typeset:  typeset,
		caps:     caps,
		markdown: md,
		policy:   policy,
	}
}

type mathSpan struct {
	placeholder string
	source      string
	display     bool
}

// Render converts body markdown to sanitized HTML, applying the note's
// frontmatter metadata for banner promotion.
func (p *Pipeline) Render(body string, meta frontmatter.Metadata) (string, error) {
	if p == nil {
		return "", fmt.Errorf("render pipeline not configured")
	}

	text, spans := p.protectMath(body)
	text = p.rewriteEmbeds(text)
	text = p.rewriteWikilinks(text)
	text = rewriteHighlights(text)

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	// Sanitize last so typeset math and the constructed banner and fence
	// containers pass through the policy too.
	out := p.restoreMath(buf.String(), spans)
	out = p.transformFences(out)
	out = p.applyBanner(out, meta)
	out = p.policy.Sanitize(out)

	return out, nil
}

// protectMath swaps math spans for placeholder tokens so the markdown parser
// leaves their contents alone. Block math is captured before inline math.
func (p *Pipeline) protectMath(body string) (string, []mathSpan) {
	var spans []mathSpan
	nonce := fmt.Sprintf("%x", sha256.Sum256([]byte(body)))[:8]

	capture := func(source string, display bool) string {
		placeholder := fmt.Sprintf("granitemath%s%d", nonce, len(spans))
		spans = append(spans, mathSpan{placeholder: placeholder, source: source, display: display})
		return placeholder
	}

	out := blockMathPattern.ReplaceAllStringFunc(body, func(match string) string {
		inner := blockMathPattern.FindStringSubmatch(match)[1]
		return capture(inner, true)
	})
	out = inlineMathPattern.ReplaceAllStringFunc(out, func(match string) string {
		inner := inlineMathPattern.FindStringSubmatch(match)[1]
		return capture(inner, false)
	})

	return out, spans
}

func (p *Pipeline) restoreMath(rendered string, spans []mathSpan) string {
	for _, span := range spans {
		rendered = strings.Replace(rendered, span.placeholder, p.typesetOne(span), 1)
	}
	return rendered
}

func (p *Pipeline) typesetOne(span mathSpan) string {
	if p.typeset != nil {
		out, err := p.typeset.RenderToString(span.source, span.display)
		if err == nil {
			return out
		}
	}

	delim := "$"
	if span.display {
		delim = "$$"
	}
	return html.EscapeString(delim + span.source + delim)
}

// rewriteWikilinks turns [[target]] and [[target|label]] into spans carrying
// the target as data. Existence is resolved against the document index and
// recorded as a data attribute, never as a hard failure.
func (p *Pipeline) rewriteWikilinks(text string) string {
	return wikilinkPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := wikilinkPattern.FindStringSubmatch(match)
		target := strings.TrimSpace(groups[1])
		label := target
		if groups[2] != "" {
			label = strings.TrimSpace(groups[2])
		}

		exists := "false"
		if p.index.Exists(target) {
			exists = "true"
		}
		return fmt.Sprintf(
			`<span class="wikilink" data-target="%s" data-exists="%s">%s</span>`,
			html.EscapeString(target), exists, html.EscapeString(label),
		)
	})
}

// rewriteEmbeds turns ![[target]] into image elements. Unresolved targets
// fall back to a direct path guess.
func (p *Pipeline) rewriteEmbeds(text string) string {
	return embedPattern.ReplaceAllStringFunc(text, func(match string) string {
		target := strings.TrimSpace(embedPattern.FindStringSubmatch(match)[1])
		src, ok := p.index.ResolveImage(target)
		if !ok {
			src = target
		}
		return fmt.Sprintf(
			`<img class="note-embed" src="%s" alt="%s">`,
			html.EscapeString(src), html.EscapeString(target),
		)
	})
}

func rewriteHighlights(text string) string {
	return highlightPattern.ReplaceAllString(text, "<mark>$1</mark>")
}

// transformFences replaces spreadsheet and mermaid code blocks with opaque
// placeholder containers carrying the original block text in an attribute,
// when the corresponding capability is present. The specialized renderers
// fill the containers in asynchronously.
func (p *Pipeline) transformFences(rendered string) string {
	if p.caps.Spreadsheet != nil {
		rendered = replaceFence(rendered, spreadsheetFence, "spreadsheet-block", "data-spreadsheet-source", p.caps.Spreadsheet)
	}
	if p.caps.Mermaid != nil {
		rendered = replaceFence(rendered, mermaidFence, "mermaid-block", "data-mermaid-source", p.caps.Mermaid)
	}
	return rendered
}

func replaceFence(rendered string, pattern *regexp.Regexp, class, attr string, capability func(string)) string {
	return pattern.ReplaceAllStringFunc(rendered, func(match string) string {
		escaped := pattern.FindStringSubmatch(match)[1]
		source := strings.TrimSuffix(html.UnescapeString(escaped), "\n")
		capability(source)
		return fmt.Sprintf(
			`<div class="%s" %s="%s"></div>`,
			class, attr, html.EscapeString(source),
		)
	})
}

// applyBanner prepends a banner block when the frontmatter declares one,
// promoting the first heading into the banner title and removing it from the
// body flow.
func (p *Pipeline) applyBanner(rendered string, meta frontmatter.Metadata) string {
	if meta.Banner == "" {
		return rendered
	}

	title := html.EscapeString(meta.Title)
	if match := headingPattern.FindStringSubmatch(rendered); match != nil {
		title = strings.TrimSpace(match[1])
		rendered = strings.Replace(rendered, match[0], "", 1)
	}

	src, ok := p.index.ResolveImage(meta.Banner)
	if !ok {
		src = meta.Banner
	}

	banner := fmt.Sprintf(
		`<div class="note-banner"><img class="note-banner-image" src="%s" alt=""><h1 class="note-banner-title">%s</h1></div>`,
		html.EscapeString(src), title,
	)
	return banner + "\n" + rendered
}
