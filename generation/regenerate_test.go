package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRewriter struct {
	result string
	err    error
	calls  int
}

func (r *fakeRewriter) RewritePrompt(_ context.Context, _, _ string) (string, error) {
	r.calls++
	return r.result, r.err
}

func generated(t *testing.T, h *harness) {
	t.Helper()
	result, err := h.orchestrator.Generate(context.Background(), h.articleID(), GenerateOptions{})
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestRegenerateSlide_VersionsAreMonotonic(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	const rounds = 3
	for i := 0; i < rounds; i++ {
		result, err := h.orchestrator.RegenerateSlide(ctx, h.articleID(), 2, RegenerateOptions{})
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	versions, err := h.orchestrator.ListVersions(ctx, h.articleID(), 2)
	require.NoError(t, err)
	require.Len(t, versions, rounds+1)

	active := 0
	highest := 0
	var activeVersion int
	for _, v := range versions {
		if v.VersionNumber > highest {
			highest = v.VersionNumber
		}
		if v.IsActive {
			active++
			activeVersion = v.VersionNumber
		}
	}
	assert.Equal(t, 1, active, "exactly one version may be active")
	assert.Equal(t, highest, activeVersion, "the newest version is the active one")
}

func TestRegenerateSlide_FailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	before, err := h.carousels.GetByArticleID(ctx, h.articleID())
	require.NoError(t, err)
	versionsBefore := len(h.versions.versions)

	h.provider.failAll = true
	result, err := h.orchestrator.RegenerateSlide(ctx, h.articleID(), 2, RegenerateOptions{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	after, err := h.carousels.GetByArticleID(ctx, h.articleID())
	require.NoError(t, err)
	assert.Equal(t, before.DocumentURL, after.DocumentURL)
	assert.Equal(t, before.Pages[1], after.Pages[1])
	assert.Len(t, h.versions.versions, versionsBefore)
}

func TestRegenerateSlide_CustomPromptWins(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	result, err := h.orchestrator.RegenerateSlide(ctx, h.articleID(), 3, RegenerateOptions{
		CustomPrompt: "a lighthouse at dawn, oil painting",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "a lighthouse at dawn, oil painting", result.Pages[2].Prompt)

	versions, err := h.orchestrator.ListVersions(ctx, h.articleID(), 3)
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse at dawn, oil painting", versions[len(versions)-1].Prompt)
}

func TestRegenerateSlide_RewriteFailureFallsBack(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	before, err := h.carousels.GetByArticleID(ctx, h.articleID())
	require.NoError(t, err)
	originalPrompt := before.Pages[1].Prompt

	rewriter := &fakeRewriter{err: errors.New("model unavailable")}
	h.orchestrator.rewriter = rewriter

	result, err := h.orchestrator.RegenerateSlide(ctx, h.articleID(), 2, RegenerateOptions{RegeneratePrompt: true})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 1, rewriter.calls)
	assert.Equal(t, originalPrompt, result.Pages[1].Prompt)
}

func TestRegenerateSlide_RewriteReplacesPrompt(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	rewriter := &fakeRewriter{result: "a fresh take on the same idea"}
	h.orchestrator.rewriter = rewriter

	result, err := h.orchestrator.RegenerateSlide(ctx, h.articleID(), 2, RegenerateOptions{RegeneratePrompt: true})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "a fresh take on the same idea", result.Pages[1].Prompt)
}

func TestRegenerateSlide_SlideNumberValidation(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	for _, slide := range []int{0, -1, 7} {
		_, err := h.orchestrator.RegenerateSlide(ctx, h.articleID(), slide, RegenerateOptions{})
		require.ErrorIs(t, err, ErrValidation, "slide %d", slide)
	}
}

func TestRegenerateSlide_NoCarousel(t *testing.T) {
	h := newHarness(t, &fakeProvider{})

	_, err := h.orchestrator.RegenerateSlide(context.Background(), h.articleID(), 1, RegenerateOptions{})
	require.ErrorIs(t, err, ErrCarouselNotFound)
}

func TestActivateVersion_RestoresOlderVersion(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	_, err := h.orchestrator.RegenerateSlide(ctx, h.articleID(), 2, RegenerateOptions{})
	require.NoError(t, err)

	versions, err := h.orchestrator.ListVersions(ctx, h.articleID(), 2)
	require.NoError(t, err)
	require.Len(t, versions, 2)

	var original, replacement string
	for _, v := range versions {
		if v.VersionNumber == 1 {
			original = v.ID
		} else {
			replacement = v.ID
		}
	}
	require.NotEmpty(t, original)
	require.NotEmpty(t, replacement)

	result, err := h.orchestrator.ActivateVersion(ctx, h.articleID(), 2, original)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, original, result.Pages[1].ActiveVersionID)

	versions, err = h.orchestrator.ListVersions(ctx, h.articleID(), 2)
	require.NoError(t, err)
	for _, v := range versions {
		assert.Equal(t, v.ID == original, v.IsActive)
	}

	stored, err := h.carousels.GetByArticleID(ctx, h.articleID())
	require.NoError(t, err)
	assert.Equal(t, original, stored.Pages[1].ActiveVersionID)
	assert.NotEmpty(t, stored.DocumentURL)
}

func TestActivateVersion_RejectsForeignVersion(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	// A version that belongs to slide 1 cannot be activated on slide 2.
	versions, err := h.orchestrator.ListVersions(ctx, h.articleID(), 1)
	require.NoError(t, err)
	require.NotEmpty(t, versions)

	_, err = h.orchestrator.ActivateVersion(ctx, h.articleID(), 2, versions[0].ID)
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.orchestrator.ActivateVersion(ctx, h.articleID(), 2, uuid.NewString())
	require.ErrorIs(t, err, ErrValidation)
}

func TestDelete_RemovesCarousel(t *testing.T) {
	h := newHarness(t, &fakeProvider{})
	ctx := context.Background()
	generated(t, h)

	require.NoError(t, h.orchestrator.Delete(ctx, h.articleID()))

	_, err := h.orchestrator.Status(ctx, h.articleID())
	require.ErrorIs(t, err, ErrCarouselNotFound)
}
