package planning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobyhart/deckpress/models"
)

func TestSynthesize_EveryPromptCarriesAspectMarker(t *testing.T) {
	article := testArticle(models.ArticleTypeDeepDive)
	plan := AnalyzeFormat(article)

	presets := []string{"gradient", "minimal", "bold", "professional", "dark"}
	for _, preset := range presets {
		pages := Synthesize(article, plan, preset)
		require.Len(t, pages, plan.PageCount, "preset %q", preset)

		for _, page := range pages {
			assert.NotEmpty(t, page.Prompt, "preset %q page %d", preset, page.PageNumber)
			assert.NotEmpty(t, page.HeadlineText, "preset %q page %d", preset, page.PageNumber)
			assert.Contains(t, page.Prompt, "4:5 aspect ratio", "preset %q page %d", preset, page.PageNumber)
		}
	}
}

func TestSynthesize_UnknownPresetFallsBackToDefault(t *testing.T) {
	article := testArticle(models.ArticleTypeStandard)
	plan := AnalyzeFormat(article)

	pages := Synthesize(article, plan, "vaporwave")
	fallback := Synthesize(article, plan, DefaultStylePreset)

	require.Equal(t, fallback[0].Prompt, pages[0].Prompt)
}

func TestSynthesize_PromptsOmitHeadlineText(t *testing.T) {
	article := testArticle(models.ArticleTypeStandard)
	plan := AnalyzeFormat(article)

	for _, page := range Synthesize(article, plan, "bold") {
		assert.NotContains(t, page.Prompt, page.HeadlineText)
		assert.NotContains(t, page.Prompt, article.Title)
	}
}

func TestSynthesize_SlideTypeMoods(t *testing.T) {
	article := testArticle(models.ArticleTypeStandard)
	plan := AnalyzeFormat(article)
	pages := Synthesize(article, plan, "minimal")

	assert.Contains(t, pages[0].Prompt, "hero")
	assert.Contains(t, pages[1].Prompt, "balanced")
	assert.Contains(t, pages[len(pages)-1].Prompt, "energetic")
}

func TestCTABodyText_ActionVerbWindow(t *testing.T) {
	body := ctaBodyText("Don't wait. Try implementing these strategies today. You'll be amazed.")

	assert.Contains(t, body, "Try implementing")
	assert.LessOrEqual(t, len([]rune(body)), 60)
}

func TestCTABodyText_CaseInsensitiveVerbs(t *testing.T) {
	body := ctaBodyText("If this resonated, SHARE it with a colleague who needs it.")
	assert.Contains(t, body, "SHARE it with a colleague")

	body = ctaBodyText("Connect with me for weekly breakdowns.")
	assert.Contains(t, body, "Connect with me")
}

func TestCTABodyText_NoVerbFallsBackToLastSentence(t *testing.T) {
	body := ctaBodyText("These patterns took years to learn. They are worth the effort.")
	assert.Equal(t, "They are worth the effort.", body)
}

func TestCTABodyText_EmptyConclusionUsesGenericFallback(t *testing.T) {
	assert.Equal(t, ctaBodyFallback, ctaBodyText(""))
	assert.Equal(t, ctaBodyFallback, ctaBodyText("   "))
}

func TestSynthesize_ContentBodySkipsHeadingLine(t *testing.T) {
	article := testArticle(models.ArticleTypeStandard)
	plan := AnalyzeFormat(article)
	pages := Synthesize(article, plan, "professional")

	// Section 1's heading is "Ship early"; the body should start with prose.
	require.Equal(t, models.SlideTypeContent, pages[1].SlideType)
	assert.False(t, strings.HasPrefix(pages[1].BodyText, "Ship early"))
	assert.Contains(t, pages[1].BodyText, "first version")
}
