// Package extract implements the Content Extractor: it turns fetched
// article HTML into a cleaned, paragraph-preserving plain-text body plus
// metadata, trying a sequence of strategies (structured data, conventional
// selectors, meta fallback, raw text) and stopping at the first one that
// produces usable content. Grounded on the goquery-based scraping style in
// catchup-feed-backend's internal/infra/scraper package (webflow.go,
// nextjs.go): fetch HTML, parse with goquery, walk a DOM for the shape the
// source is expected to have.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
)

// MinContentLength is the §4.4 floor below which extraction is a failure.
const MinContentLength = 100

// RawTextFallbackLimit bounds the last-resort raw-text strategy.
const RawTextFallbackLimit = 5000

// unwantedSelectors are stripped from the document before any selector-based
// strategy runs, so boilerplate never leaks into the extracted body.
var unwantedSelectors = []string{
	"nav", "header", "footer", "aside",
	"[class*='share']", "[class*='social']",
	"[class*='newsletter']", "[class*='subscribe']",
	"[class*='advertisement']", "[class*='ad-']", "[id*='ad-']",
	"[class*='related']", "[class*='recommend']",
	"[class*='comment']", "[class*='promo']", "[class*='banner']",
	"script", "style", "noscript", "iframe",
}

// conventionalSelectors are tried in order for the second extraction
// strategy; the first selector whose paragraphs reach MinContentLength wins.
var conventionalSelectors = []string{
	"[itemprop='articleBody']",
	"article [class*='body']:not([class*='meta'])",
	"main [class*='story-body']",
	".article-text",
	".story-content",
	"article",
}

// boilerplatePatterns match paragraph-level noise per §4.4. Kept as a
// package-level slice so a future source can extend it without touching
// the extraction algorithm.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(share|save|comment|subscribe|follow|newsletter)\b`),
	regexp.MustCompile(`(?i)\b(advertisement|sponsored|promoted)\b`),
	regexp.MustCompile(`(?i)^\d+\s+(minutes?|hours?|days?)\s+ago`),
	regexp.MustCompile(`(?i)^(read more|related|you may like|more from)\b`),
	regexp.MustCompile(`(?i)^(image caption|source|getty images)\b`),
	regexp.MustCompile(`(?i)\b(cookie|privacy policy|terms of (service|use))\b`),
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// Extract runs the four-strategy pipeline against raw article HTML and
// returns the cleaned result, or an error wrapping errs.ErrExtractionFailed
// if nothing cleared MinContentLength.
func Extract(html string) (*domain.ExtractedArticle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse article HTML: %w", err)
	}

	if a := fromJSONLD(doc); a != nil && len(a.Content) >= MinContentLength {
		a.Language = detectLanguage(a.Content)
		return a, nil
	}
	// Stripped only after the JSON-LD strategy: it reads <script> blocks,
	// which are among the unwanted selectors.
	doc.Find(strings.Join(unwantedSelectors, ", ")).Remove()
	if a := fromConventionalSelectors(doc); a != nil && len(a.Content) >= MinContentLength {
		a.Language = detectLanguage(a.Content)
		return a, nil
	}
	if a := fromMetaTags(doc); a != nil && len(a.Content) >= MinContentLength {
		a.Language = detectLanguage(a.Content)
		return a, nil
	}
	if a := fromRawText(doc); a != nil && len(a.Content) >= MinContentLength {
		a.Language = detectLanguage(a.Content)
		return a, nil
	}
	return nil, fmt.Errorf("extract: %w", errs.ErrExtractionFailed)
}

// jsonLDArticle matches the subset of schema.org NewsArticle/Article we
// consume. author.name is the common shape; some publishers emit author as
// a bare string, handled via json.RawMessage.
type jsonLDArticle struct {
	Type          interface{}     `json:"@type"`
	Headline      string          `json:"headline"`
	ArticleBody   string          `json:"articleBody"`
	DatePublished string          `json:"datePublished"`
	Author        json.RawMessage `json:"author"`
}

func fromJSONLD(doc *goquery.Document) *domain.ExtractedArticle {
	var found *jsonLDArticle
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		var candidates []jsonLDArticle
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		// Payload may be a single object, or an array, or a @graph wrapper.
		var single jsonLDArticle
		if err := json.Unmarshal([]byte(raw), &single); err == nil && isArticleType(single.Type) {
			candidates = append(candidates, single)
		} else {
			var list []jsonLDArticle
			if err := json.Unmarshal([]byte(raw), &list); err == nil {
				candidates = append(candidates, list...)
			}
		}
		for _, c := range candidates {
			if isArticleType(c.Type) && c.ArticleBody != "" {
				cc := c
				found = &cc
				return false
			}
		}
		return true
	})
	if found == nil || found.ArticleBody == "" {
		return nil
	}

	article := &domain.ExtractedArticle{
		Title:   found.Headline,
		Content: structureParagraphs(splitParagraphLike(found.ArticleBody)),
		Author:  extractAuthorName(found.Author),
	}
	if t, err := time.Parse(time.RFC3339, found.DatePublished); err == nil {
		article.PublicationDate = &t
	}
	return article
}

func isArticleType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == "NewsArticle" || t == "Article"
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok && (s == "NewsArticle" || s == "Article") {
				return true
			}
		}
	}
	return false
}

func extractAuthorName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asObject struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject.Name
	}
	var asList []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &asList); err == nil && len(asList) > 0 {
		return asList[0].Name
	}
	return ""
}

func fromConventionalSelectors(doc *goquery.Document) *domain.ExtractedArticle {
	for _, sel := range conventionalSelectors {
		selection := doc.Find(sel)
		if selection.Length() == 0 {
			continue
		}
		paragraphs := paragraphsFromSelection(selection)
		content := structureParagraphs(paragraphs)
		if len(content) >= MinContentLength {
			return &domain.ExtractedArticle{
				Title:   titleFromDocument(doc),
				Content: content,
				Author:  metaContent(doc, "author"),
			}
		}
	}
	return nil
}

func paragraphsFromSelection(selection *goquery.Selection) []string {
	var paragraphs []string
	selection.Find("p").Each(func(i int, s *goquery.Selection) {
		paragraphs = append(paragraphs, strings.TrimSpace(s.Text()))
	})
	if len(paragraphs) == 0 {
		// No <p> survived; fall back to sentence-boundary splitting of the
		// selection's own text, per §4.4's structure-preservation rules.
		paragraphs = splitParagraphLike(selection.Text())
	}
	return paragraphs
}

func fromMetaTags(doc *goquery.Document) *domain.ExtractedArticle {
	title := metaContent(doc, "og:title")
	description := metaContent(doc, "og:description")
	if title == "" && description == "" {
		return nil
	}
	article := &domain.ExtractedArticle{
		Title:   title,
		Content: structureParagraphs(splitParagraphLike(description)),
		Author:  metaContent(doc, "author"),
	}
	if published := metaContent(doc, "article:published_time"); published != "" {
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			article.PublicationDate = &t
		}
	}
	return article
}

func fromRawText(doc *goquery.Document) *domain.ExtractedArticle {
	body := doc.Find("body")
	if body.Length() == 0 {
		return nil
	}

	var paragraphs []string
	body.Find("p").Each(func(i int, s *goquery.Selection) {
		paragraphs = append(paragraphs, strings.TrimSpace(s.Text()))
	})
	if len(paragraphs) == 0 {
		// No <p> anywhere in the body; fall back to sentence-boundary
		// splitting of the flattened text, capped so a single malformed
		// page can't drag an unbounded string through the rest of §4.4.
		text := strings.TrimSpace(body.Text())
		if text == "" {
			return nil
		}
		if len(text) > RawTextFallbackLimit {
			text = text[:RawTextFallbackLimit]
		}
		paragraphs = splitParagraphLike(text)
	}

	return &domain.ExtractedArticle{
		Title:   titleFromDocument(doc),
		Content: structureParagraphs(paragraphs),
	}
}

func titleFromDocument(doc *goquery.Document) string {
	if t := metaContent(doc, "og:title"); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find(fmt.Sprintf("meta[property='%s'], meta[name='%s']", name, name)).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if v, ok := s.Attr("content"); ok && v != "" {
			content = v
			return false
		}
		return true
	})
	return content
}

// splitParagraphLike breaks a block of plain text into paragraph-sized
// pieces on sentence boundaries (a '.', '!' or '?' followed by whitespace
// and an uppercase letter), used whenever no <p> markup survived. Go's RE2
// engine has no lookaround, so the boundary is found with a manual scan
// rather than the `(?<=[.!?])\s+(?=[A-Z])` pattern a backtracking engine
// could express directly.
func splitParagraphLike(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var parts []string
	start := 0
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' {
			j := i + 1
			sawSpace := false
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				sawSpace = true
				j++
			}
			if sawSpace && j < len(runes) && unicode.IsUpper(runes[j]) {
				parts = append(parts, string(runes[start:i+1]))
				start = j
				i = j
				continue
			}
		}
		i++
	}
	if start < len(runes) {
		parts = append(parts, string(runes[start:]))
	}
	return parts
}

// structureParagraphs applies §4.4's paragraph rules: discard boilerplate
// and too-short paragraphs, join survivors with a blank line, and cap
// multi-newline runs without collapsing all whitespace.
func structureParagraphs(paragraphs []string) string {
	var kept []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if len(p) < 30 {
			continue
		}
		if isBoilerplate(p) {
			continue
		}
		kept = append(kept, p)
	}
	joined := strings.Join(kept, "\n\n")
	return multiNewline.ReplaceAllString(joined, "\n\n")
}

func isBoilerplate(p string) bool {
	for _, re := range boilerplatePatterns {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}
