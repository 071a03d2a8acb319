package planning

import (
	"regexp"
	"strings"

	"github.com/tobyhart/deckpress/models"
)

// DefaultStylePreset is applied when a request names no preset or an
// unknown one.
const DefaultStylePreset = "professional"

// promptSuffix pins aspect ratio and quality on every slide prompt.
// Prompts deliberately carry no literal headline text: text is composited
// onto the image afterward, and baked-in text renders badly.
const promptSuffix = "vertical 4:5 aspect ratio, high detail, no text, no words, no lettering"

// stylePresets map preset names to background direction for the image
// model.
var stylePresets = map[string]string{
	"gradient":     "smooth vibrant gradient background, soft color transitions, modern social media aesthetic",
	"minimal":      "clean minimal background, generous negative space, soft neutral palette",
	"bold":         "bold saturated colors, strong geometric shapes, high contrast composition",
	"professional": "refined corporate background, subtle texture, deep blue and slate tones",
	"dark":         "dark moody background, dramatic low-key lighting, accents of neon color",
}

// slideMoods map slide types to compositional mood.
var slideMoods = map[models.SlideType]string{
	models.SlideTypeTitle:   "dramatic hero composition, strong focal point, cinematic lighting",
	models.SlideTypeContent: "balanced editorial composition, calm visual rhythm",
	models.SlideTypeCTA:     "energetic dynamic composition, sense of motion and momentum",
}

// actionVerbRegex finds the first call-to-action phrasing in a conclusion.
var actionVerbRegex = regexp.MustCompile(`(?i)\b(start|try|follow|share|comment|connect)\b`)

const (
	ctaWindowRunes  = 60
	ctaBodyFallback = "Follow for more insights like this."
	titleBodyMax    = 120
	contentBodyMax  = 160
)

// Synthesize builds the full page set for the plan: one prompt, headline
// and body per slide. Every page is guaranteed a non-empty prompt and
// headline.
func Synthesize(article *models.Article, plan FormatPlan, stylePreset string) []models.CarouselPage {
	background, ok := stylePresets[stylePreset]
	if !ok {
		stylePreset = DefaultStylePreset
		background = stylePresets[stylePreset]
	}

	pages := make([]models.CarouselPage, plan.PageCount)
	for i := 0; i < plan.PageCount; i++ {
		slideType := plan.Structure[i]

		headline := plan.SuggestedHeadlines[i]
		if headline == "" {
			headline = truncateHeadline(article.Title)
		}
		if headline == "" {
			headline = "Untitled"
		}

		pages[i] = models.CarouselPage{
			PageNumber:   i + 1,
			SlideType:    slideType,
			Prompt:       buildPrompt(background, slideType),
			HeadlineText: headline,
			BodyText:     bodyText(article, slideType, i),
		}
	}
	return pages
}

func buildPrompt(background string, slideType models.SlideType) string {
	mood := slideMoods[slideType]
	if mood == "" {
		mood = slideMoods[models.SlideTypeContent]
	}
	return background + ", " + mood + ", " + promptSuffix
}

func bodyText(article *models.Article, slideType models.SlideType, slideIndex int) string {
	switch slideType {
	case models.SlideTypeTitle:
		if article.Subtitle != "" {
			return clip(article.Subtitle, titleBodyMax)
		}
		return clip(firstSentence(article.Introduction), titleBodyMax)
	case models.SlideTypeCTA:
		return ctaBodyText(article.Conclusion)
	default:
		if n := slideIndex; n >= 1 && n <= len(article.Sections) {
			return clip(proseExcerpt(article.Sections[n-1]), contentBodyMax)
		}
		return ""
	}
}

// ctaBodyText scans the conclusion for the first action-verb phrase and
// returns a window of text around it; failing that, the conclusion's last
// sentence; failing that, a generic fallback.
func ctaBodyText(conclusion string) string {
	conclusion = strings.TrimSpace(conclusion)
	if conclusion == "" {
		return ctaBodyFallback
	}

	if loc := actionVerbRegex.FindStringIndex(conclusion); loc != nil {
		window := []rune(conclusion[loc[0]:])
		if len(window) > ctaWindowRunes {
			window = window[:ctaWindowRunes]
			// Back off to a word boundary so the window never ends mid-word.
			if idx := strings.LastIndex(string(window), " "); idx > 0 {
				window = []rune(string(window)[:idx])
			}
		}
		return strings.TrimRight(strings.TrimSpace(string(window)), ",;:")
	}

	if sentence := lastSentence(conclusion); sentence != "" {
		return sentence
	}
	return ctaBodyFallback
}

// proseExcerpt strips a leading heading line before excerpting, so body
// text never duplicates the slide headline.
func proseExcerpt(section string) string {
	section = strings.TrimSpace(section)
	lines := strings.Split(section, "\n")
	if len(lines) > 1 && strings.HasPrefix(strings.TrimSpace(lines[0]), "#") {
		section = strings.TrimSpace(strings.Join(lines[1:], "\n"))
	}
	return firstSentence(section)
}

func clip(text string, maxRunes int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + headlineEllipsis
}
