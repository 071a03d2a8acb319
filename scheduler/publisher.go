// Package scheduler runs the cron-triggered auto-publish batch. Each tick
// is one bounded pass over the due posts, articles, and carousels, processed
// sequentially so a burst of due items never floods the platform.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/tobyhart/deckpress/datastore"
	"github.com/tobyhart/deckpress/models"
	"github.com/tobyhart/deckpress/notify"
	"github.com/tobyhart/deckpress/platform"
	"github.com/tobyhart/deckpress/vault"
)

// PostStore selects and finalizes due standalone posts.
type PostStore interface {
	GetDuePosts(ctx context.Context, now time.Time) ([]models.Post, error)
	MarkPublished(ctx context.Context, postID, postURN, postURL string, publishedAt time.Time) error
	SetPublishError(ctx context.Context, postID, message string) error
}

// ArticleStore selects and finalizes articles publishing their own text
// share, independent of any carousel.
type ArticleStore interface {
	GetDueArticles(ctx context.Context, now time.Time) ([]models.Article, error)
	MarkPublished(ctx context.Context, articleID, postURN, postURL string, publishedAt time.Time) error
	SetPublishError(ctx context.Context, articleID, message string) error
}

// CarouselStore selects and finalizes due carousels.
type CarouselStore interface {
	GetDueCarousels(ctx context.Context, now time.Time) ([]datastore.DueCarousel, error)
	MarkPublished(ctx context.Context, carouselID, postURN, postURL string, publishedAt time.Time) error
	SetPublishError(ctx context.Context, carouselID, message string) error
}

type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

type ConnectionStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.Connection, error)
}

// PlatformClient is the slice of the platform API the publisher calls.
type PlatformClient interface {
	CreatePost(ctx context.Context, accessToken, authorURN, text, imageURL, altText string) (*platform.PostRef, error)
	CreateDocumentPost(ctx context.Context, accessToken, authorURN, text, documentURL, title string) (*platform.PostRef, error)
}

// ItemResult is the per-item detail of one batch pass.
type ItemResult struct {
	Kind      string `json:"kind"` // "post" or "carousel"
	ID        string `json:"id"`
	Published bool   `json:"published"`
	PostURN   string `json:"post_urn,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchResult summarizes one tick. A failed item never fails the batch;
// only a systemic failure (the selection query itself) surfaces as error.
type BatchResult struct {
	Processed int          `json:"processed"`
	Published int          `json:"published"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items,omitempty"`
}

// AutoPublisher finds due items and publishes them to the external
// platform, one at a time.
type AutoPublisher struct {
	posts       PostStore
	articles    ArticleStore
	carousels   CarouselStore
	users       UserStore
	connections ConnectionStore
	vault       *vault.Vault
	platform    PlatformClient
	notifier    notify.Sender // optional
}

func New(
	posts PostStore,
	articles ArticleStore,
	carousels CarouselStore,
	users UserStore,
	connections ConnectionStore,
	credentialVault *vault.Vault,
	platformClient PlatformClient,
	notifier notify.Sender,
) *AutoPublisher {
	return &AutoPublisher{
		posts:       posts,
		articles:    articles,
		carousels:   carousels,
		users:       users,
		connections: connections,
		vault:       credentialVault,
		platform:    platformClient,
		notifier:    notifier,
	}
}

// HandleTick is an HTTP handler that triggers one batch run. Used by
// Cloud Scheduler or manual curl requests.
func (p *AutoPublisher) HandleTick(w http.ResponseWriter, r *http.Request) {
	log.Println("INFO (Scheduler): Tick triggered via HTTP")

	result, err := p.Run(r.Context())
	if err != nil {
		log.Printf("ERROR (Scheduler): Tick failed: %v", err)
		http.Error(w, "scheduler tick failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK: processed %d, published %d, failed %d", result.Processed, result.Published, result.Failed)
}

// Run executes one batch pass: select every due post, article, and carousel, then
// publish each in turn. An item failure records the error on that item
// and moves on; the item stays due and is retried on the next tick.
func (p *AutoPublisher) Run(ctx context.Context) (*BatchResult, error) {
	now := time.Now().UTC()
	result := &BatchResult{}

	duePosts, err := p.posts.GetDuePosts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select due posts: %w", err)
	}
	dueArticles, err := p.articles.GetDueArticles(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select due articles: %w", err)
	}
	dueCarousels, err := p.carousels.GetDueCarousels(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select due carousels: %w", err)
	}

	for i := range duePosts {
		item := p.publishPost(ctx, &duePosts[i], now)
		result.record(item)
	}
	for i := range dueArticles {
		item := p.publishArticle(ctx, &dueArticles[i], now)
		result.record(item)
	}
	for i := range dueCarousels {
		item := p.publishCarousel(ctx, &dueCarousels[i], now)
		result.record(item)
	}

	if result.Processed > 0 {
		log.Printf("INFO (Scheduler): Batch complete: processed %d, published %d, failed %d", result.Processed, result.Published, result.Failed)
	}
	return result, nil
}

func (r *BatchResult) record(item ItemResult) {
	r.Processed++
	if item.Published {
		r.Published++
	} else {
		r.Failed++
	}
	r.Items = append(r.Items, item)
}

func (p *AutoPublisher) publishPost(ctx context.Context, post *models.Post, now time.Time) ItemResult {
	item := ItemResult{Kind: "post", ID: post.ID}

	token, memberURN, accessErr := p.resolveAccess(ctx, post.UserID, now)
	if accessErr != "" {
		return p.failPost(ctx, post, item, accessErr)
	}

	ref, err := p.platform.CreatePost(ctx, token, memberURN, post.Content, post.ImageURL, post.AltText)
	if err != nil {
		return p.failPost(ctx, post, item, err.Error())
	}

	if err := p.posts.MarkPublished(ctx, post.ID, ref.PostURN, ref.PostURL, now); err != nil {
		// The platform call succeeded but the record did not stick; the
		// item stays due and the error stays visible until a retry lands.
		return p.failPost(ctx, post, item, fmt.Sprintf("published but not recorded: %v", err))
	}

	item.Published = true
	item.PostURN = ref.PostURN
	p.notifyUser(ctx, post.UserID, "Post published", post.Content)
	log.Printf("INFO (Scheduler): Published post %s as %s", post.ID, ref.PostURN)
	return item
}

func (p *AutoPublisher) publishArticle(ctx context.Context, article *models.Article, now time.Time) ItemResult {
	item := ItemResult{Kind: "article", ID: article.ID}

	token, memberURN, accessErr := p.resolveAccess(ctx, article.UserID, now)
	if accessErr != "" {
		return p.failArticle(ctx, article, item, accessErr)
	}

	ref, err := p.platform.CreatePost(ctx, token, memberURN, articleText(article), "", "")
	if err != nil {
		return p.failArticle(ctx, article, item, err.Error())
	}

	if err := p.articles.MarkPublished(ctx, article.ID, ref.PostURN, ref.PostURL, now); err != nil {
		return p.failArticle(ctx, article, item, fmt.Sprintf("published but not recorded: %v", err))
	}

	item.Published = true
	item.PostURN = ref.PostURN
	p.notifyUser(ctx, article.UserID, "Article published", article.Title)
	log.Printf("INFO (Scheduler): Published article %s as %s", article.ID, ref.PostURN)
	return item
}

func (p *AutoPublisher) publishCarousel(ctx context.Context, due *datastore.DueCarousel, now time.Time) ItemResult {
	carousel := &due.Carousel
	article := &due.Article
	item := ItemResult{Kind: "carousel", ID: carousel.ID}

	if carousel.DocumentURL == "" {
		return p.failCarousel(ctx, carousel, item, "no document assembled")
	}

	token, memberURN, accessErr := p.resolveAccess(ctx, article.UserID, now)
	if accessErr != "" {
		return p.failCarousel(ctx, carousel, item, accessErr)
	}

	ref, err := p.platform.CreateDocumentPost(ctx, token, memberURN, shareText(article), carousel.DocumentURL, article.Title)
	if err != nil {
		return p.failCarousel(ctx, carousel, item, err.Error())
	}

	if err := p.carousels.MarkPublished(ctx, carousel.ID, ref.PostURN, ref.PostURL, now); err != nil {
		return p.failCarousel(ctx, carousel, item, fmt.Sprintf("published but not recorded: %v", err))
	}

	item.Published = true
	item.PostURN = ref.PostURN
	p.notifyUser(ctx, article.UserID, "Carousel published", article.Title)
	log.Printf("INFO (Scheduler): Published carousel %s as %s", carousel.ID, ref.PostURN)
	return item
}

// resolveAccess walks the per-item credential chain. A non-empty third
// return is the error to record on the item.
func (p *AutoPublisher) resolveAccess(ctx context.Context, userID string, now time.Time) (token, memberURN, errMsg string) {
	user, err := p.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", fmt.Sprintf("failed to resolve user: %v", err)
	}
	if user == nil {
		return "", "", "user not found"
	}

	connection, err := p.connections.GetByUserID(ctx, userID)
	if err != nil {
		return "", "", fmt.Sprintf("failed to resolve connection: %v", err)
	}
	if connection == nil {
		return "", "", "not connected"
	}
	if connection.Expired(now) {
		return "", "", "connection expired"
	}

	token, err = p.vault.Decrypt(connection.AccessTokenEncrypted)
	if err != nil {
		return "", "", fmt.Sprintf("failed to unlock access token: %v", err)
	}
	return token, connection.MemberURN, ""
}

func (p *AutoPublisher) failPost(ctx context.Context, post *models.Post, item ItemResult, message string) ItemResult {
	log.Printf("WARN (Scheduler): Post %s failed: %s", post.ID, message)
	if err := p.posts.SetPublishError(ctx, post.ID, message); err != nil {
		log.Printf("ERROR (Scheduler): Failed to record error for post %s: %v", post.ID, err)
	}
	item.Error = message
	return item
}

func (p *AutoPublisher) failArticle(ctx context.Context, article *models.Article, item ItemResult, message string) ItemResult {
	log.Printf("WARN (Scheduler): Article %s failed: %s", article.ID, message)
	if err := p.articles.SetPublishError(ctx, article.ID, message); err != nil {
		log.Printf("ERROR (Scheduler): Failed to record error for article %s: %v", article.ID, err)
	}
	item.Error = message
	return item
}

func (p *AutoPublisher) failCarousel(ctx context.Context, carousel *models.Carousel, item ItemResult, message string) ItemResult {
	log.Printf("WARN (Scheduler): Carousel %s failed: %s", carousel.ID, message)
	if err := p.carousels.SetPublishError(ctx, carousel.ID, message); err != nil {
		log.Printf("ERROR (Scheduler): Failed to record error for carousel %s: %v", carousel.ID, err)
	}
	item.Error = message
	return item
}

// notifyUser fires a best-effort notification. Failures are logged and
// never fail the publish.
func (p *AutoPublisher) notifyUser(ctx context.Context, userID, title, body string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Send(ctx, userID, title, body); err != nil {
		log.Printf("WARN (Scheduler): Notification for user %s failed: %v", userID, err)
	}
}

func shareText(article *models.Article) string {
	if article.Subtitle != "" {
		return article.Title + "\n\n" + article.Subtitle
	}
	return article.Title
}

// articleText is the full text share for a standalone article publish,
// longer than the caption used on a document post.
func articleText(article *models.Article) string {
	text := shareText(article)
	if article.Introduction != "" {
		text += "\n\n" + article.Introduction
	}
	return text
}
