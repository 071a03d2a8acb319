// Package planning turns an article into a deterministic slide plan and
// per-slide image prompts. Everything here is pure: same article in, same
// plan out, no I/O and no failure modes.
package planning

import (
	"fmt"
	"strings"

	"github.com/tobyhart/deckpress/models"
)

const (
	titleHeadlineMaxRunes = 50
	headlineEllipsis      = "…"
)

// FormatPlan is the slide-count/type/headline plan for one article.
type FormatPlan struct {
	PageCount          int                `json:"page_count"`
	Structure          []models.SlideType `json:"structure"`
	SuggestedHeadlines []string           `json:"suggested_headlines"`
}

// AnalyzeFormat derives a slide plan from the article. Slide count follows
// the article type (deep_dive 7, how_to 6, otherwise 5); the structure
// always opens with a title slide and closes with a CTA slide. Malformed
// or missing sections degrade to fallback headlines, never to an error.
func AnalyzeFormat(article *models.Article) FormatPlan {
	pageCount := pageCountFor(article.ArticleType)

	structure := make([]models.SlideType, pageCount)
	structure[0] = models.SlideTypeTitle
	for i := 1; i < pageCount-1; i++ {
		structure[i] = models.SlideTypeContent
	}
	structure[pageCount-1] = models.SlideTypeCTA

	headlines := make([]string, pageCount)
	headlines[0] = truncateHeadline(article.Title)
	for i := 1; i < pageCount-1; i++ {
		headlines[i] = contentHeadline(article.Sections, i)
	}
	headlines[pageCount-1] = ctaHeadline

	return FormatPlan{
		PageCount:          pageCount,
		Structure:          structure,
		SuggestedHeadlines: headlines,
	}
}

const ctaHeadline = "Ready to put this to work?"

func pageCountFor(articleType models.ArticleType) int {
	switch articleType {
	case models.ArticleTypeDeepDive:
		return 7
	case models.ArticleTypeHowTo:
		return 6
	default:
		return 5
	}
}

// contentHeadline sources the headline for the nth content slide (1-based)
// in priority order: an explicit heading line in the matching section, the
// section's first sentence, then a numbered fallback.
func contentHeadline(sections []string, n int) string {
	fallback := fmt.Sprintf("Key Insight %d", n)

	if n > len(sections) {
		return fallback
	}
	section := strings.TrimSpace(sections[n-1])
	if section == "" {
		return fallback
	}

	if heading := headingLine(section); heading != "" {
		return heading
	}
	if sentence := firstSentence(section); sentence != "" {
		return sentence
	}
	return fallback
}

// headingLine returns the text of the first markdown-style heading in the
// section, or "" if the section has none.
func headingLine(section string) string {
	for _, line := range strings.Split(section, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
	}
	return ""
}

func truncateHeadline(title string) string {
	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) <= titleHeadlineMaxRunes {
		return title
	}
	return strings.TrimSpace(string(runes[:titleHeadlineMaxRunes])) + headlineEllipsis
}

var sentenceTerminators = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// firstSentence returns the first sentence of the text, without its
// terminator's trailing space.
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	// Ignore a heading-ish first line when looking for prose.
	end := len(text)
	for _, term := range sentenceTerminators {
		if idx := strings.Index(text, term); idx >= 0 && idx+1 < end {
			end = idx + 1
		}
	}
	return strings.TrimSpace(text[:end])
}

// lastSentence returns the final sentence of the text.
func lastSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	trimmed := strings.TrimRight(text, " \n")
	cut := -1
	body := trimmed
	if len(body) > 0 {
		body = body[:len(body)-1] // keep the final terminator out of the search
	}
	for _, term := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(body, term); idx > cut {
			cut = idx
		}
	}
	if cut < 0 {
		return trimmed
	}
	return strings.TrimSpace(trimmed[cut+1:])
}
