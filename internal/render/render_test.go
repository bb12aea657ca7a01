package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/granitemd/granite/internal/docindex"
	"github.com/granitemd/granite/internal/frontmatter"
)

type fakeTypesetter struct {
	fail bool
}

func (f fakeTypesetter) RenderToString(expr string, display bool) (string, error) {
	if f.fail {
		return "", errors.New("typeset failure")
	}
	if display {
		return `<span class="math-display">` + expr + `</span>`, nil
	}
	return `<span class="math-inline">` + expr + `</span>`, nil
}

func testPipeline(t *testing.T, typeset Typesetter, caps Capabilities) *Pipeline {
	t.Helper()
	ix := docindex.New()
	ix.Replace([]docindex.Entry{
		{Path: "notes/alpha.md", Name: "alpha.md", Type: docindex.TypeNote},
		{Path: "images/banner.png", Name: "banner.png", Type: docindex.TypeImage},
	})
	return NewPipeline(ix, typeset, caps)
}

func TestRenderBasicMarkdown(t *testing.T) {
	p := testPipeline(t, nil, Capabilities{})

	out, err := p.Render("# Title\n\nSome **bold** text", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "<strong>bold</strong>") {
		t.Fatalf("unexpected render output: %q", out)
	}
}

func TestRenderGFMTable(t *testing.T) {
	p := testPipeline(t, nil, Capabilities{})

	out, err := p.Render("| a | b |\n| - | - |\n| 1 | 2 |", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "<table>") {
		t.Fatalf("expected GFM table, got %q", out)
	}
}

func TestRenderWikilinks(t *testing.T) {
	p := testPipeline(t, nil, Capabilities{})

	out, err := p.Render("See [[alpha]] and [[missing|the gap]]", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, `data-target="alpha"`) || !strings.Contains(out, `data-exists="true"`) {
		t.Fatalf("resolved wikilink missing: %q", out)
	}
	if !strings.Contains(out, `data-target="missing"`) || !strings.Contains(out, `data-exists="false"`) {
		t.Fatalf("unresolved wikilink missing: %q", out)
	}
	if !strings.Contains(out, ">the gap</span>") {
		t.Fatalf("wikilink label missing: %q", out)
	}
}

func TestRenderImageEmbeds(t *testing.T) {
	p := testPipeline(t, nil, Capabilities{})

	out, err := p.Render("![[banner.png]] and ![[nowhere.png]]", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, `src="images/banner.png"`) {
		t.Fatalf("resolved embed missing: %q", out)
	}
	// Unresolved embeds fall back to a direct path guess.
	if !strings.Contains(out, `src="nowhere.png"`) {
		t.Fatalf("fallback embed missing: %q", out)
	}
}

func TestRenderHighlight(t *testing.T) {
	p := testPipeline(t, nil, Capabilities{})

	out, err := p.Render("some ==important== text", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "<mark>important</mark>") {
		t.Fatalf("highlight missing: %q", out)
	}
}

func TestRenderMathViaTypesetter(t *testing.T) {
	p := testPipeline(t, fakeTypesetter{}, Capabilities{})

	out, err := p.Render("inline $x^2$ and block\n\n$$\\sum_i i$$", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, `class="math-inline"`) || !strings.Contains(out, `class="math-display"`) {
		t.Fatalf("typeset math missing: %q", out)
	}
	if strings.Contains(out, "granitemath") {
		t.Fatalf("placeholder leaked into output: %q", out)
	}
}

func TestRenderMathFallsBackOnTypesetFailure(t *testing.T) {
	p := testPipeline(t, fakeTypesetter{fail: true}, Capabilities{})

	out, err := p.Render("broken $x^2$ math", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "$x^2$") {
		t.Fatalf("expected raw delimited fallback, got %q", out)
	}
}

func TestRenderMathProtectedFromMarkdown(t *testing.T) {
	p := testPipeline(t, fakeTypesetter{}, Capabilities{})

	// Underscores inside math would otherwise become emphasis.
	out, err := p.Render("$a_i + b_j$", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "a_i + b_j") || strings.Contains(out, "<em>") {
		t.Fatalf("math content mangled: %q", out)
	}
}

func TestRenderSpreadsheetFenceWithCapability(t *testing.T) {
	var captured string
	caps := Capabilities{Spreadsheet: func(source string) { captured = source }}
	p := testPipeline(t, nil, caps)

	body := "```spreadsheet\nname: Budget\na,b\n1,2\n```"
	out, err := p.Render(body, frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, `class="spreadsheet-block"`) {
		t.Fatalf("placeholder container missing: %q", out)
	}
	if !strings.Contains(out, "data-spreadsheet-source=") {
		t.Fatalf("source attribute missing: %q", out)
	}
	if captured != "name: Budget\na,b\n1,2" {
		t.Fatalf("capability received wrong source: %q", captured)
	}
}

func TestRenderSpreadsheetFenceWithoutCapability(t *testing.T) {
	p := testPipeline(t, nil, Capabilities{})

	out, err := p.Render("```spreadsheet\na,b\n```", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(out, "spreadsheet-block") {
		t.Fatalf("capability absent but placeholder emitted: %q", out)
	}
	if !strings.Contains(out, "language-spreadsheet") {
		t.Fatalf("expected plain code block, got %q", out)
	}
}

func TestRenderMermaidFence(t *testing.T) {
	caps := Capabilities{Mermaid: func(string) {}}
	p := testPipeline(t, nil, caps)

	out, err := p.Render("```mermaid\ngraph TD\n```", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, `class="mermaid-block"`) || !strings.Contains(out, "data-mermaid-source=") {
		t.Fatalf("mermaid placeholder missing: %q", out)
	}
}

func TestRenderBannerPromotesFirstHeading(t *testing.T) {
	p := testPipeline(t, nil, Capabilities{})

	meta := frontmatter.Metadata{Banner: "banner.png", Title: "Fallback"}
	out, err := p.Render("# Promoted\n\nBody text", meta)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, `class="note-banner"`) {
		t.Fatalf("banner missing: %q", out)
	}
	if !strings.Contains(out, `src="images/banner.png"`) {
		t.Fatalf("banner image unresolved: %q", out)
	}
	if !strings.Contains(out, `class="note-banner-title">Promoted</h1>`) {
		t.Fatalf("heading not promoted into banner: %q", out)
	}
	if strings.Count(out, "<h1") != 1 {
		t.Fatalf("promoted heading still in body flow: %q", out)
	}
}

// scriptTypesetter emits markup the sanitization policy must reject.
type scriptTypesetter struct{}

func (scriptTypesetter) RenderToString(expr string, display bool) (string, error) {
	return `<span class="math-inline">` + expr + `</span><script>alert(1)</script>`, nil
}

func TestRenderSanitizesTypesetterOutput(t *testing.T) {
	p := testPipeline(t, scriptTypesetter{}, Capabilities{})

	out, err := p.Render("inline $x$ math", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(out, "<script") {
		t.Fatalf("typesetter markup bypassed sanitization: %q", out)
	}
	if !strings.Contains(out, `class="math-inline"`) {
		t.Fatalf("legitimate typeset span stripped: %q", out)
	}
}

func TestRenderSanitizesScripts(t *testing.T) {
	p := testPipeline(t, nil, Capabilities{})

	out, err := p.Render("hello <script>alert(1)</script> world", frontmatter.Metadata{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(out, "<script") {
		t.Fatalf("script survived sanitization: %q", out)
	}
}
