package generation

import (
	"context"
	"fmt"
	"log"

	"github.com/tobyhart/deckpress/models"
)

// ListVersions returns the full version history for one slide, ordered by
// version number.
func (o *Orchestrator) ListVersions(ctx context.Context, articleID string, slideNumber int) ([]models.SlideVersion, error) {
	_, carousel, err := o.resolve(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if slideNumber < 1 || slideNumber > carousel.PageCount {
		return nil, fmt.Errorf("%w: slide number %d out of range [1, %d]", ErrValidation, slideNumber, carousel.PageCount)
	}
	return o.versions.ListVersions(ctx, carousel.ID, slideNumber)
}

// ActivateVersion makes an older version the active one for its slide,
// recomputes the page snapshot from it, and re-renders the whole document
// so the deck stays internally consistent.
func (o *Orchestrator) ActivateVersion(ctx context.Context, articleID string, slideNumber int, versionID string) (*GenerateResult, error) {
	article, carousel, err := o.resolve(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if slideNumber < 1 || slideNumber > carousel.PageCount {
		return nil, fmt.Errorf("%w: slide number %d out of range [1, %d]", ErrValidation, slideNumber, carousel.PageCount)
	}

	version, err := o.versions.GetVersionByID(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve version %s: %w", versionID, err)
	}
	if version == nil || version.CarouselID != carousel.ID || version.SlideNumber != slideNumber {
		return nil, fmt.Errorf("%w: version %s does not belong to slide %d", ErrValidation, versionID, slideNumber)
	}

	if err := o.versions.ActivateVersion(ctx, carousel.ID, slideNumber, versionID); err != nil {
		return nil, fmt.Errorf("failed to activate version %s: %w", versionID, err)
	}

	// Recompute every page from its currently-active version so the
	// re-rendered document and the snapshot cannot drift apart.
	activeVersions, err := o.versions.ActiveVersions(ctx, carousel.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active versions: %w", err)
	}
	pages := carousel.Pages
	for _, active := range activeVersions {
		if active.SlideNumber < 1 || active.SlideNumber > len(pages) {
			continue
		}
		page := &pages[active.SlideNumber-1]
		page.Prompt = active.Prompt
		page.HeadlineText = active.HeadlineText
		page.BodyText = active.Caption
		page.ImageURL = active.ImageURL
		page.GenerationError = active.GenerationError
		page.ActiveVersionID = active.ID
	}

	documentURL, err := o.renderDocument(ctx, carousel.ID, article.Title, pages)
	if err != nil {
		return nil, err
	}
	if err := o.carousels.UpdatePages(ctx, carousel.ID, pages, documentURL); err != nil {
		return nil, fmt.Errorf("failed to persist activated pages: %w", err)
	}

	log.Printf("INFO (Orchestrator): Activated version %d for slide %d of article %s", version.VersionNumber, slideNumber, articleID)
	return &GenerateResult{
		Success:     true,
		CarouselID:  carousel.ID,
		DocumentURL: documentURL,
		Pages:       pages,
	}, nil
}

// Status returns the current carousel state for an article.
func (o *Orchestrator) Status(ctx context.Context, articleID string) (*models.Carousel, error) {
	_, carousel, err := o.resolve(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return carousel, nil
}

// Delete removes the carousel and, via the datastore cascade, its entire
// version history.
func (o *Orchestrator) Delete(ctx context.Context, articleID string) error {
	_, carousel, err := o.resolve(ctx, articleID)
	if err != nil {
		return err
	}
	if err := o.carousels.DeleteCarousel(ctx, carousel.ID); err != nil {
		return fmt.Errorf("failed to delete carousel %s: %w", carousel.ID, err)
	}
	log.Printf("INFO (Orchestrator): Deleted carousel %s for article %s", carousel.ID, articleID)
	return nil
}
