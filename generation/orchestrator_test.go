package generation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobyhart/deckpress/document"
	"github.com/tobyhart/deckpress/imagegen"
	"github.com/tobyhart/deckpress/models"
)

// --- fakes ---

type fakeArticleStore struct {
	articles map[string]*models.Article
}

func (s *fakeArticleStore) GetArticleByID(_ context.Context, id string) (*models.Article, error) {
	return s.articles[id], nil
}

type fakeCarouselStore struct {
	mu        sync.Mutex
	byArticle map[string]*models.Carousel

	generationUpdates int
	pagesUpdates      int
}

func newFakeCarouselStore() *fakeCarouselStore {
	return &fakeCarouselStore{byArticle: make(map[string]*models.Carousel)}
}

func copyCarousel(c *models.Carousel) *models.Carousel {
	dup := *c
	dup.Pages = append([]models.CarouselPage(nil), c.Pages...)
	return &dup
}

func (s *fakeCarouselStore) GetByArticleID(_ context.Context, articleID string) (*models.Carousel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byArticle[articleID]
	if !ok {
		return nil, nil
	}
	return copyCarousel(c), nil
}

func (s *fakeCarouselStore) CreateCarousel(_ context.Context, c *models.Carousel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byArticle[c.ArticleID] = copyCarousel(c)
	return nil
}

func (s *fakeCarouselStore) find(carouselID string) *models.Carousel {
	for _, c := range s.byArticle {
		if c.ID == carouselID {
			return c
		}
	}
	return nil
}

func (s *fakeCarouselStore) UpdateGenerationResult(_ context.Context, carouselID string, pages []models.CarouselPage, documentURL, provider string, status models.CarouselStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.find(carouselID)
	if c == nil {
		return errors.New("carousel not found")
	}
	c.Pages = append([]models.CarouselPage(nil), pages...)
	c.PageCount = len(pages)
	c.DocumentURL = documentURL
	c.GenerationProvider = provider
	c.Status = status
	s.generationUpdates++
	return nil
}

func (s *fakeCarouselStore) UpdatePages(_ context.Context, carouselID string, pages []models.CarouselPage, documentURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.find(carouselID)
	if c == nil {
		return errors.New("carousel not found")
	}
	c.Pages = append([]models.CarouselPage(nil), pages...)
	c.DocumentURL = documentURL
	s.pagesUpdates++
	return nil
}

func (s *fakeCarouselStore) DeleteCarousel(_ context.Context, carouselID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for articleID, c := range s.byArticle {
		if c.ID == carouselID {
			delete(s.byArticle, articleID)
			return nil
		}
	}
	return errors.New("carousel not found")
}

type fakeVersionStore struct {
	mu       sync.Mutex
	versions []*models.SlideVersion
}

func (s *fakeVersionStore) AppendVersion(_ context.Context, v *models.SlideVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	maxVersion := 0
	for _, existing := range s.versions {
		if existing.CarouselID == v.CarouselID && existing.SlideNumber == v.SlideNumber {
			existing.IsActive = false
			if existing.VersionNumber > maxVersion {
				maxVersion = existing.VersionNumber
			}
		}
	}
	v.VersionNumber = maxVersion + 1
	v.IsActive = true
	dup := *v
	s.versions = append(s.versions, &dup)
	return nil
}

func (s *fakeVersionStore) ListVersions(_ context.Context, carouselID string, slideNumber int) ([]models.SlideVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SlideVersion
	for _, v := range s.versions {
		if v.CarouselID == carouselID && v.SlideNumber == slideNumber {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *fakeVersionStore) GetVersionByID(_ context.Context, versionID string) (*models.SlideVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.ID == versionID {
			dup := *v
			return &dup, nil
		}
	}
	return nil, nil
}

func (s *fakeVersionStore) ActivateVersion(_ context.Context, carouselID string, slideNumber int, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.CarouselID == carouselID && v.SlideNumber == slideNumber {
			v.IsActive = v.ID == versionID
		}
	}
	return nil
}

func (s *fakeVersionStore) ActiveVersions(_ context.Context, carouselID string) ([]models.SlideVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SlideVersion
	for _, v := range s.versions {
		if v.CarouselID == carouselID && v.IsActive {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlideNumber < out[j].SlideNumber })
	return out, nil
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	failures map[int]bool // call ordinal (1-based) -> fail
	failAll  bool
	block    chan struct{} // when set, calls block until closed
	started  chan struct{}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) GenerateImage(_ context.Context, prompt, _ string) (string, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	started := p.started
	block := p.block
	p.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}
	if p.failAll || p.failures[call] {
		return "", fmt.Errorf("provider exploded on call %d", call)
	}
	return fmt.Sprintf("https://images.example.com/%d.png", call), nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeBuilder struct{ builds int }

func (b *fakeBuilder) Build(_ context.Context, _ string, slides []document.Slide) ([]byte, error) {
	b.builds++
	return []byte(fmt.Sprintf("doc-%d-slides-%d", b.builds, len(slides))), nil
}

type fakeDocStore struct{ saves int }

func (s *fakeDocStore) Save(_ context.Context, carouselID string, data []byte) (string, error) {
	s.saves++
	return fmt.Sprintf("http://docs.local/%s-%d.pdf", carouselID, s.saves), nil
}

// --- harness ---

type harness struct {
	orchestrator *Orchestrator
	articles     *fakeArticleStore
	carousels    *fakeCarouselStore
	versions     *fakeVersionStore
	provider     *fakeProvider
	store        *fakeDocStore
}

func newHarness(t *testing.T, provider *fakeProvider) *harness {
	t.Helper()
	article := &models.Article{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		Title:       "How To Ship Faster",
		Subtitle:    "Lessons from a year of weekly releases",
		ArticleType: models.ArticleTypeHowTo,
		Sections: []string{
			"# Cut scope\nSmaller releases fail smaller.",
			"Automate the boring path. Humans review, machines repeat.",
			"# Measure cycle time\nWhat you measure shrinks.",
			"Celebrate boring deploys. Drama means process debt.",
		},
		Conclusion: "Don't wait. Try implementing these strategies today. You'll be amazed.",
		CreatedAt:  time.Now().UTC(),
	}

	h := &harness{
		articles:  &fakeArticleStore{articles: map[string]*models.Article{article.ID: article}},
		carousels: newFakeCarouselStore(),
		versions:  &fakeVersionStore{},
		provider:  provider,
		store:     &fakeDocStore{},
	}
	h.orchestrator = NewOrchestrator(
		h.articles,
		h.carousels,
		h.versions,
		imagegen.NewRegistry("fake", provider),
		&fakeBuilder{},
		h.store,
		nil,
	)
	return h
}

func (h *harness) articleID() string {
	for id := range h.articles.articles {
		return id
	}
	return ""
}

// --- tests ---

func TestGenerate_FullPipeline(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()

	result, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{StylePreset: "bold"})
	require.NoError(t, err)
	require.True(t, result.Success)

	// how_to article: six slides.
	require.Len(t, result.Pages, 6)
	assert.Equal(t, 6, h.provider.callCount())
	assert.NotEmpty(t, result.DocumentURL)
	assert.Equal(t, "fake", result.Provider)

	for i, page := range result.Pages {
		assert.Equal(t, i+1, page.PageNumber)
		assert.NotEmpty(t, page.ImageURL)
		assert.NotEmpty(t, page.ActiveVersionID)
		assert.Equal(t, 1, page.VersionCount)
	}

	stored, err := h.carousels.GetByArticleID(ctx, h.articleID())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.CarouselStatusReady, stored.Status)
	assert.Equal(t, result.DocumentURL, stored.DocumentURL)
}

func TestGenerate_CacheShortCircuits(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()

	first, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{})
	require.NoError(t, err)
	require.True(t, first.Success)
	callsAfterFirst := h.provider.callCount()

	second, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{})
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.True(t, second.Cached)

	assert.Equal(t, first.DocumentURL, second.DocumentURL)
	assert.Equal(t, callsAfterFirst, h.provider.callCount(), "cached call must not contact the provider")
}

func TestGenerate_ForceRegenerateKeepsPageCount(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()

	first, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{})
	require.NoError(t, err)

	// Changing the article type after the fact must not change the page
	// count: the stored plan wins.
	h.articles.articles[h.articleID()].ArticleType = models.ArticleTypeDeepDive

	second, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{ForceRegenerate: true})
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.False(t, second.Cached)
	assert.Len(t, second.Pages, len(first.Pages))
}

func TestGenerate_ForceRegenerateRejectedAfterPublish(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()

	_, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{})
	require.NoError(t, err)
	callsAfterFirst := h.provider.callCount()

	h.carousels.byArticle[h.articleID()].Status = models.CarouselStatusPublished

	_, err = h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{ForceRegenerate: true})
	require.ErrorIs(t, err, ErrAlreadyPublished)
	assert.Equal(t, callsAfterFirst, h.provider.callCount(), "rejection happens before any provider contact")

	stored, err := h.carousels.GetByArticleID(ctx, h.articleID())
	require.NoError(t, err)
	assert.Equal(t, models.CarouselStatusPublished, stored.Status, "published is terminal")
}

func TestGenerate_AllSlidesFail(t *testing.T) {
	h := newHarness(t, &fakeProvider{failAll: true})
	ctx := context.Background()

	result, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, "All image generations failed", result.Error)

	// Nothing persisted: no versions, no document, no status change.
	assert.Empty(t, h.versions.versions)
	assert.Zero(t, h.store.saves)
	stored, err := h.carousels.GetByArticleID(ctx, h.articleID())
	require.NoError(t, err)
	require.NotNil(t, stored, "the lazily created intent survives")
	assert.Empty(t, stored.DocumentURL)
	assert.Equal(t, models.CarouselStatusPending, stored.Status)
}

func TestGenerate_PartialFailureProceeds(t *testing.T) {
	h := newHarness(t, &fakeProvider{failures: map[int]bool{2: true, 4: true}})
	ctx := context.Background()

	result, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{})
	require.NoError(t, err)
	require.True(t, result.Success, "a usable-if-imperfect deck beats none")

	failed := 0
	for _, page := range result.Pages {
		if page.GenerationError != "" {
			failed++
			assert.Empty(t, page.ImageURL)
		}
		assert.NotEmpty(t, page.ActiveVersionID, "failed slides still get a version record")
	}
	assert.Equal(t, 2, failed)

	stored, err := h.carousels.GetByArticleID(ctx, h.articleID())
	require.NoError(t, err)
	assert.Equal(t, models.CarouselStatusReady, stored.Status)
}

func TestGenerate_UnknownArticle(t *testing.T) {
	h := newHarness(t, &fakeProvider{})

	_, err := h.orchestrator.Generate(context.Background(), uuid.NewString(), GenerateOptions{})
	require.ErrorIs(t, err, ErrArticleNotFound)
}

func TestGenerate_ConcurrentCallRejected(t *testing.T) {
	provider := &fakeProvider{
		block:   make(chan struct{}),
		started: make(chan struct{}, 16),
	}
	h := newHarness(t, provider)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{})
		done <- err
	}()

	// Wait until the first run is inside the provider fan-out.
	<-provider.started

	_, err := h.orchestrator.Generate(ctx, h.articleID(), GenerateOptions{})
	require.ErrorIs(t, err, ErrGenerationInProgress)

	close(provider.block)
	require.NoError(t, <-done)
}
