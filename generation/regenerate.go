package generation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/models"
)

// RegenerateSlide generates exactly one new image for one slide, appends
// it as the new active version, and re-renders the entire document so
// every page reflects its currently-active version. A provider failure
// leaves the prior active version untouched.
func (o *Orchestrator) RegenerateSlide(ctx context.Context, articleID string, slideNumber int, opts RegenerateOptions) (*GenerateResult, error) {
	article, carousel, err := o.resolve(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if slideNumber < 1 || slideNumber > carousel.PageCount {
		return nil, fmt.Errorf("%w: slide number %d out of range [1, %d]", ErrValidation, slideNumber, carousel.PageCount)
	}

	pages := carousel.Pages
	page := &pages[slideNumber-1]

	prompt := page.Prompt
	switch {
	case opts.CustomPrompt != "":
		prompt = opts.CustomPrompt
	case opts.RegeneratePrompt && o.rewriter != nil:
		rewritten, err := o.rewriter.RewritePrompt(ctx, page.HeadlineText, page.Prompt)
		if err != nil {
			// A failed rewrite is not fatal: regenerate with the
			// existing prompt instead.
			log.Printf("WARN (Orchestrator): Prompt rewrite failed for article %s slide %d: %v", articleID, slideNumber, err)
		} else {
			prompt = rewritten
		}
	}

	provider, err := o.providers.Resolve(opts.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	imageURL, genErr := provider.GenerateImage(ctx, prompt, opts.Model)
	if genErr != nil {
		log.Printf("WARN (Orchestrator): Regeneration failed for article %s slide %d: %v", articleID, slideNumber, genErr)
		return &GenerateResult{Success: false, CarouselID: carousel.ID, Error: genErr.Error()}, nil
	}

	version := &models.SlideVersion{
		ID:                 uuid.NewString(),
		CarouselID:         carousel.ID,
		SlideNumber:        slideNumber,
		Prompt:             prompt,
		HeadlineText:       page.HeadlineText,
		Caption:            page.BodyText,
		ImageURL:           imageURL,
		GenerationProvider: provider.Name(),
		CreatedAt:          time.Now().UTC(),
	}
	if err := o.versions.AppendVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to append slide version: %w", err)
	}

	page.Prompt = prompt
	page.ImageURL = imageURL
	page.GenerationError = ""
	page.ActiveVersionID = version.ID
	page.VersionCount = version.VersionNumber

	documentURL, err := o.renderDocument(ctx, carousel.ID, article.Title, pages)
	if err != nil {
		return nil, err
	}
	if err := o.carousels.UpdatePages(ctx, carousel.ID, pages, documentURL); err != nil {
		return nil, fmt.Errorf("failed to persist regenerated pages: %w", err)
	}

	log.Printf("INFO (Orchestrator): Regenerated slide %d of article %s as version %d", slideNumber, articleID, version.VersionNumber)
	return &GenerateResult{
		Success:     true,
		CarouselID:  carousel.ID,
		DocumentURL: documentURL,
		Pages:       pages,
		Provider:    provider.Name(),
	}, nil
}

// resolve loads the article and its carousel, mapping absence to the
// package's NotFound errors.
func (o *Orchestrator) resolve(ctx context.Context, articleID string) (*models.Article, *models.Carousel, error) {
	article, err := o.articles.GetArticleByID(ctx, articleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve article %s: %w", articleID, err)
	}
	if article == nil {
		return nil, nil, ErrArticleNotFound
	}

	carousel, err := o.carousels.GetByArticleID(ctx, articleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve carousel for article %s: %w", articleID, err)
	}
	if carousel == nil {
		return nil, nil, ErrCarouselNotFound
	}
	return article, carousel, nil
}
