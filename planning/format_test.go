package planning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobyhart/deckpress/models"
)

func testArticle(articleType models.ArticleType) *models.Article {
	return &models.Article{
		ID:          "a1",
		Title:       "Five Lessons From Shipping a Side Project",
		ArticleType: articleType,
		Sections: []string{
			"# Ship early\nThe first version is always embarrassing. Ship it anyway.",
			"Momentum beats motivation. Small daily commits compound quickly.",
			"## Talk to users\nEvery conversation changes the roadmap.",
			"Pricing is a feature. Charge from day one.",
			"Marketing starts before launch. Build the audience while you build.",
		},
		Conclusion: "Don't wait. Try implementing these strategies today. You'll be amazed.",
	}
}

func TestAnalyzeFormat_PageCountByArticleType(t *testing.T) {
	cases := []struct {
		articleType models.ArticleType
		want        int
	}{
		{models.ArticleTypeDeepDive, 7},
		{models.ArticleTypeHowTo, 6},
		{models.ArticleTypeStandard, 5},
		{models.ArticleType("unknown"), 5},
		{models.ArticleType(""), 5},
	}

	for _, tc := range cases {
		plan := AnalyzeFormat(testArticle(tc.articleType))
		require.Equal(t, tc.want, plan.PageCount, "article type %q", tc.articleType)
		require.Len(t, plan.Structure, tc.want)
		require.Len(t, plan.SuggestedHeadlines, tc.want)
		assert.Equal(t, models.SlideTypeTitle, plan.Structure[0])
		assert.Equal(t, models.SlideTypeCTA, plan.Structure[tc.want-1])
		for i := 1; i < tc.want-1; i++ {
			assert.Equal(t, models.SlideTypeContent, plan.Structure[i])
		}
	}
}

func TestAnalyzeFormat_HowToFraming(t *testing.T) {
	plan := AnalyzeFormat(testArticle(models.ArticleTypeHowTo))

	require.Equal(t, 6, plan.PageCount)
	assert.Equal(t, models.SlideTypeTitle, plan.Structure[0])
	assert.Equal(t, models.SlideTypeCTA, plan.Structure[5])
}

func TestAnalyzeFormat_HeadlineSourcing(t *testing.T) {
	plan := AnalyzeFormat(testArticle(models.ArticleTypeDeepDive))

	// Section 1 has an explicit markdown heading.
	assert.Equal(t, "Ship early", plan.SuggestedHeadlines[1])
	// Section 2 has no heading: first sentence is used.
	assert.Equal(t, "Momentum beats motivation.", plan.SuggestedHeadlines[2])
	// Section 3 heading uses a deeper level.
	assert.Equal(t, "Talk to users", plan.SuggestedHeadlines[3])
}

func TestAnalyzeFormat_MissingSectionsFallBack(t *testing.T) {
	article := testArticle(models.ArticleTypeDeepDive)
	article.Sections = []string{"Only one section here. And it is short."}

	plan := AnalyzeFormat(article)

	assert.Equal(t, "Only one section here.", plan.SuggestedHeadlines[1])
	for n := 2; n <= 5; n++ {
		assert.Equal(t, "Key Insight "+string(rune('0'+n)), plan.SuggestedHeadlines[n])
	}
}

func TestAnalyzeFormat_EmptySectionFallsBack(t *testing.T) {
	article := testArticle(models.ArticleTypeStandard)
	article.Sections = []string{"", "   \n  ", "Real content lives here."}

	plan := AnalyzeFormat(article)

	assert.Equal(t, "Key Insight 1", plan.SuggestedHeadlines[1])
	assert.Equal(t, "Key Insight 2", plan.SuggestedHeadlines[2])
	assert.Equal(t, "Real content lives here.", plan.SuggestedHeadlines[3])
}

func TestAnalyzeFormat_TitleTruncation(t *testing.T) {
	article := testArticle(models.ArticleTypeStandard)
	article.Title = strings.Repeat("Very Long Title ", 10)

	plan := AnalyzeFormat(article)

	headline := plan.SuggestedHeadlines[0]
	assert.True(t, strings.HasSuffix(headline, "…"), "expected trailing ellipsis, got %q", headline)
	assert.LessOrEqual(t, len([]rune(headline)), 51)

	article.Title = "Short Title"
	plan = AnalyzeFormat(article)
	assert.Equal(t, "Short Title", plan.SuggestedHeadlines[0])
}

func TestAnalyzeFormat_Deterministic(t *testing.T) {
	article := testArticle(models.ArticleTypeHowTo)

	first := AnalyzeFormat(article)
	second := AnalyzeFormat(article)

	require.Equal(t, first, second)
}
