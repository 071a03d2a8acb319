// Package generation coordinates the carousel pipeline: planning, prompt
// synthesis, fan-out image generation, slide version bookkeeping and
// document assembly.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/document"
	"github.com/tobyhart/deckpress/imagegen"
	"github.com/tobyhart/deckpress/models"
	"github.com/tobyhart/deckpress/planning"
	"github.com/tobyhart/deckpress/textgen"
)

var (
	ErrArticleNotFound      = errors.New("article not found")
	ErrCarouselNotFound     = errors.New("carousel not found")
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrAlreadyPublished     = errors.New("carousel already published")
	// ErrValidation wraps bad caller input (slide numbers, version ownership).
	ErrValidation = errors.New("validation failed")
)

const allFailedMessage = "All image generations failed"

// ArticleStore is the slice of the datastore the orchestrator reads
// articles through.
type ArticleStore interface {
	GetArticleByID(ctx context.Context, articleID string) (*models.Article, error)
}

// CarouselStore persists carousel intents and their page snapshots.
type CarouselStore interface {
	GetByArticleID(ctx context.Context, articleID string) (*models.Carousel, error)
	CreateCarousel(ctx context.Context, c *models.Carousel) error
	UpdateGenerationResult(ctx context.Context, carouselID string, pages []models.CarouselPage, documentURL, provider string, status models.CarouselStatus) error
	UpdatePages(ctx context.Context, carouselID string, pages []models.CarouselPage, documentURL string) error
	DeleteCarousel(ctx context.Context, carouselID string) error
}

// VersionStore is the append-only slide version ledger.
type VersionStore interface {
	AppendVersion(ctx context.Context, v *models.SlideVersion) error
	ListVersions(ctx context.Context, carouselID string, slideNumber int) ([]models.SlideVersion, error)
	GetVersionByID(ctx context.Context, versionID string) (*models.SlideVersion, error)
	ActivateVersion(ctx context.Context, carouselID string, slideNumber int, versionID string) error
	ActiveVersions(ctx context.Context, carouselID string) ([]models.SlideVersion, error)
}

// DocumentBuilder assembles slides into a serialized document.
type DocumentBuilder interface {
	Build(ctx context.Context, title string, slides []document.Slide) ([]byte, error)
}

// GenerateOptions is the per-call configuration for a full generation
// run. Provider and model ride here rather than in any ambient default so
// concurrent requests stay isolated.
type GenerateOptions struct {
	Provider        string `json:"provider,omitempty"`
	Model           string `json:"model,omitempty"`
	StylePreset     string `json:"style_preset,omitempty"`
	ForceRegenerate bool   `json:"force_regenerate,omitempty"`
}

// RegenerateOptions scopes a regeneration to one slide.
type RegenerateOptions struct {
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	CustomPrompt     string `json:"custom_prompt,omitempty"`
	RegeneratePrompt bool   `json:"regenerate_prompt,omitempty"`
}

// GenerateResult is the plain result object for generation operations.
// Provider and platform failures land in Error with Success=false;
// NotFound/Validation conditions surface as Go errors instead.
type GenerateResult struct {
	Success     bool                  `json:"success"`
	CarouselID  string                `json:"carousel_id,omitempty"`
	DocumentURL string                `json:"document_url,omitempty"`
	Pages       []models.CarouselPage `json:"pages,omitempty"`
	Provider    string                `json:"provider,omitempty"`
	Cached      bool                  `json:"cached,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Orchestrator drives the article→carousel pipeline.
type Orchestrator struct {
	articles  ArticleStore
	carousels CarouselStore
	versions  VersionStore
	providers *imagegen.Registry
	builder   DocumentBuilder
	store     document.Store
	rewriter  textgen.Rewriter // optional; nil disables prompt re-derivation

	inflight inflightSet
}

func NewOrchestrator(
	articles ArticleStore,
	carousels CarouselStore,
	versions VersionStore,
	providers *imagegen.Registry,
	builder DocumentBuilder,
	store document.Store,
	rewriter textgen.Rewriter,
) *Orchestrator {
	return &Orchestrator{
		articles:  articles,
		carousels: carousels,
		versions:  versions,
		providers: providers,
		builder:   builder,
		store:     store,
		rewriter:  rewriter,
		inflight:  inflightSet{active: make(map[string]struct{})},
	}
}

// Generate runs the full pipeline for an article. An existing assembled
// document short-circuits the call unless ForceRegenerate is set: this
// cache check is the pipeline's primary cost control and must happen
// before any provider contact.
func (o *Orchestrator) Generate(ctx context.Context, articleID string, opts GenerateOptions) (*GenerateResult, error) {
	article, err := o.articles.GetArticleByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve article %s: %w", articleID, err)
	}
	if article == nil {
		return nil, ErrArticleNotFound
	}

	// The in-flight marker closes the double-generation race: the second
	// concurrent caller is rejected explicitly instead of silently
	// generating a duplicate.
	if !o.inflight.acquire(articleID) {
		return nil, ErrGenerationInProgress
	}
	defer o.inflight.release(articleID)

	carousel, err := o.carousels.GetByArticleID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve carousel for article %s: %w", articleID, err)
	}

	// Published is terminal: the document is already on the platform, so
	// a forced regeneration must not replace it or reset the status.
	if carousel != nil && carousel.Status == models.CarouselStatusPublished && opts.ForceRegenerate {
		return nil, ErrAlreadyPublished
	}

	if carousel != nil && carousel.DocumentURL != "" && !opts.ForceRegenerate {
		log.Printf("INFO (Orchestrator): Returning cached document for article %s", articleID)
		return &GenerateResult{
			Success:     true,
			CarouselID:  carousel.ID,
			DocumentURL: carousel.DocumentURL,
			Pages:       carousel.Pages,
			Provider:    carousel.GenerationProvider,
			Cached:      true,
		}, nil
	}

	stylePreset := opts.StylePreset
	if stylePreset == "" && carousel != nil {
		stylePreset = carousel.StylePreset
	}
	if stylePreset == "" {
		stylePreset = planning.DefaultStylePreset
	}

	// The intent is created lazily on the first generation call.
	if carousel == nil {
		carousel = &models.Carousel{
			ID:          uuid.NewString(),
			ArticleID:   articleID,
			StylePreset: stylePreset,
			Status:      models.CarouselStatusPending,
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		}
		if err := o.carousels.CreateCarousel(ctx, carousel); err != nil {
			return nil, fmt.Errorf("failed to create carousel intent: %w", err)
		}
	}

	// Reusing a stored plan keeps the slide count stable across
	// regenerations; prompts are always re-synthesized.
	var plan planning.FormatPlan
	if len(carousel.Pages) > 0 {
		plan = planFromPages(carousel.Pages)
	} else {
		plan = planning.AnalyzeFormat(article)
	}
	pages := planning.Synthesize(article, plan, stylePreset)

	provider, err := o.providers.Resolve(opts.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	outcomes := o.generateSlides(ctx, provider, opts.Model, pages)

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.imageURL != "" {
			succeeded++
		}
	}
	if succeeded == 0 {
		log.Printf("ERROR (Orchestrator): All %d slide generations failed for article %s", len(pages), articleID)
		return &GenerateResult{Success: false, Error: allFailedMessage}, nil
	}
	log.Printf("INFO (Orchestrator): Generated %d/%d slides for article %s via %s", succeeded, len(pages), articleID, provider.Name())

	// Every attempt, failed or not, gets a version record.
	now := time.Now().UTC()
	for i := range pages {
		version := &models.SlideVersion{
			ID:                 uuid.NewString(),
			CarouselID:         carousel.ID,
			SlideNumber:        pages[i].PageNumber,
			Prompt:             pages[i].Prompt,
			HeadlineText:       pages[i].HeadlineText,
			Caption:            pages[i].BodyText,
			ImageURL:           outcomes[i].imageURL,
			GenerationProvider: provider.Name(),
			GenerationError:    outcomes[i].errMessage,
			CreatedAt:          now,
		}
		if err := o.versions.AppendVersion(ctx, version); err != nil {
			return nil, fmt.Errorf("failed to record slide version for slide %d: %w", pages[i].PageNumber, err)
		}
		pages[i].ImageURL = outcomes[i].imageURL
		pages[i].GenerationError = outcomes[i].errMessage
		pages[i].ActiveVersionID = version.ID
		pages[i].VersionCount = version.VersionNumber
	}

	documentURL, err := o.renderDocument(ctx, carousel.ID, article.Title, pages)
	if err != nil {
		return nil, err
	}

	if err := o.carousels.UpdateGenerationResult(ctx, carousel.ID, pages, documentURL, provider.Name(), models.CarouselStatusReady); err != nil {
		return nil, fmt.Errorf("failed to persist generation result: %w", err)
	}

	return &GenerateResult{
		Success:     true,
		CarouselID:  carousel.ID,
		DocumentURL: documentURL,
		Pages:       pages,
		Provider:    provider.Name(),
	}, nil
}

type slideOutcome struct {
	imageURL   string
	errMessage string
}

// generateSlides fans out one provider call per slide and awaits them all.
// Results come back indexed; no ordering guarantee between slides.
func (o *Orchestrator) generateSlides(ctx context.Context, provider imagegen.Provider, model string, pages []models.CarouselPage) []slideOutcome {
	outcomes := make([]slideOutcome, len(pages))

	var wg sync.WaitGroup
	for i := range pages {
		wg.Add(1)
		go func(i int, prompt string) {
			defer wg.Done()
			imageURL, err := provider.GenerateImage(ctx, prompt, model)
			if err != nil {
				log.Printf("WARN (Orchestrator): Slide %d generation failed: %v", i+1, err)
				outcomes[i] = slideOutcome{errMessage: err.Error()}
				return
			}
			outcomes[i] = slideOutcome{imageURL: imageURL}
		}(i, pages[i].Prompt)
	}
	wg.Wait()

	return outcomes
}

// renderDocument rebuilds the whole document from the current page
// snapshot and stores it, returning the new document URL.
func (o *Orchestrator) renderDocument(ctx context.Context, carouselID, title string, pages []models.CarouselPage) (string, error) {
	slides := make([]document.Slide, len(pages))
	for i, page := range pages {
		slides[i] = document.Slide{
			PageNumber:   page.PageNumber,
			HeadlineText: page.HeadlineText,
			BodyText:     page.BodyText,
			ImageURL:     page.ImageURL,
		}
	}

	data, err := o.builder.Build(ctx, title, slides)
	if err != nil {
		return "", fmt.Errorf("failed to assemble document: %w", err)
	}

	documentURL, err := o.store.Save(ctx, carouselID, data)
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	return documentURL, nil
}

// planFromPages reconstructs the stored plan from an existing snapshot.
func planFromPages(pages []models.CarouselPage) planning.FormatPlan {
	plan := planning.FormatPlan{
		PageCount:          len(pages),
		Structure:          make([]models.SlideType, len(pages)),
		SuggestedHeadlines: make([]string, len(pages)),
	}
	for i, page := range pages {
		plan.Structure[i] = page.SlideType
		plan.SuggestedHeadlines[i] = page.HeadlineText
	}
	return plan
}

// inflightSet is the per-article generation guard.
type inflightSet struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func (s *inflightSet) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.active[key]; exists {
		return false
	}
	s.active[key] = struct{}{}
	return true
}

func (s *inflightSet) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, key)
}
