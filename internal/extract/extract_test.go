package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/newsscrape/engine/internal/domain"
)

func TestExtract_ConventionalSelector(t *testing.T) {
	html := `<html><head><title>Fallback Title</title></head><body>
		<article>
			<div class="story-content">
				<p>This is the first real paragraph of the article body, long enough to survive.</p>
				<div class="social-share">Share this on social media now</div>
				<p>This is the second real paragraph of the article body, also long enough.</p>
			</div>
		</article>
	</body></html>`

	got, err := Extract(html)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if strings.Contains(got.Content, "Share") {
		t.Errorf("content retained boilerplate: %q", got.Content)
	}
	if !strings.Contains(got.Content, "first real paragraph") {
		t.Errorf("content missing expected paragraph: %q", got.Content)
	}
}

func TestExtract_S6StructurePreservation(t *testing.T) {
	// S6 from the engine's end-to-end scenarios: <p>A</p><div
	// class="social-share">Share</div><p>B</p> with A/B padded to 60 chars
	// each, clearing the 30-char paragraph floor and, joined, the 100-char
	// MinContentLength.
	a, b := strings.Repeat("A", 60), strings.Repeat("B", 60)
	html := `<html><body><article>` +
		`<p>` + a + `</p>` +
		`<div class="social-share">Share</div>` +
		`<p>` + b + `</p>` +
		`</article></body></html>`

	got, err := Extract(html)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := a + "\n\n" + b
	if got.Content != want {
		t.Errorf("Content = %q, want %q", got.Content, want)
	}
}

func TestExtract_RawTextFallbackPreservesParagraphs(t *testing.T) {
	// The literal S6 fixture with no wrapping container at all, so none of
	// the JSON-LD, conventional-selector or meta-tag strategies match and
	// extraction falls all the way through to fromRawText.
	a, b := strings.Repeat("A", 60), strings.Repeat("B", 60)
	html := `<p>` + a + `</p>` +
		`<div class="social-share">Share</div>` +
		`<p>` + b + `</p>`

	got, err := Extract(html)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := a + "\n\n" + b
	if got.Content != want {
		t.Errorf("Content = %q, want %q", got.Content, want)
	}
}

func TestExtract_JSONLD(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@type":"NewsArticle","headline":"Breaking News","articleBody":"This is the full article body text, which is long enough to clear the minimum content length floor easily.","datePublished":"2026-01-02T15:04:05Z","author":{"name":"Jane Reporter"}}
		</script>
	</head><body></body></html>`

	got, err := Extract(html)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Title != "Breaking News" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Author != "Jane Reporter" {
		t.Errorf("Author = %q", got.Author)
	}
	if got.PublicationDate == nil {
		t.Fatal("expected PublicationDate to be set")
	}
}

func TestExtract_JSONLD_FullFields(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@type":"NewsArticle","headline":"Breaking News","articleBody":"This is the full article body text, which is long enough to clear the minimum content length floor easily.","datePublished":"2026-01-02T15:04:05Z","author":{"name":"Jane Reporter"}}
		</script>
	</head><body></body></html>`

	got, err := Extract(html)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	published, err := time.Parse(time.RFC3339, "2026-01-02T15:04:05Z")
	if err != nil {
		t.Fatalf("parse fixture date: %v", err)
	}
	want := &domain.ExtractedArticle{
		Title:           "Breaking News",
		Content:         "This is the full article body text, which is long enough to clear the minimum content length floor easily.",
		Author:          "Jane Reporter",
		PublicationDate: &published,
		Language:        domain.LanguageEnglish,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_TooShortFails(t *testing.T) {
	html := `<html><body><p>Too short.</p></body></html>`
	if _, err := Extract(html); err == nil {
		t.Fatal("expected extraction failure for content under the minimum length")
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"This is plain English text about current events.", "en"},
		{"זהו טקסט בעברית", "he"},
		{"هذا نص باللغة العربية", "ar"},
		{"12345 !!!", "other"},
	}
	for _, c := range cases {
		if got := detectLanguage(c.text); string(got) != c.want {
			t.Errorf("detectLanguage(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	h1 := ContentHash("Title", "Body text")
	h2 := ContentHash("Title", "Body text")
	if h1 != h2 {
		t.Fatalf("ContentHash not deterministic: %q vs %q", h1, h2)
	}
	if h3 := ContentHash("Title", "Different body"); h3 == h1 {
		t.Fatalf("ContentHash collided for different content")
	}
}
