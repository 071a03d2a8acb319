// Package platform is the client for the external professional-network
// API: text/image shares and native document posts. Failures surface as
// *PlatformError so callers can distinguish platform rejections from
// transport faults.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL    = "https://api.linkedin.com"
	postsEndpoint     = "/rest/posts"
	documentsEndpoint = "/rest/documents?action=initializeUpload"
	apiVersionHeader  = "202401"

	requestTimeout  = 30 * time.Second
	maxDocumentSize = 100 << 20
)

// PostRef identifies a successfully created post.
type PostRef struct {
	PostURN string `json:"post_urn"`
	PostURL string `json:"post_url"`
}

// PlatformError is a typed rejection from the platform API.
type PlatformError struct {
	StatusCode int
	Message    string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to the platform's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type postPayload struct {
	Author         string        `json:"author"`
	Commentary     string        `json:"commentary"`
	Visibility     string        `json:"visibility"`
	LifecycleState string        `json:"lifecycleState"`
	Content        *postContent  `json:"content,omitempty"`
	Distribution   *distribution `json:"distribution,omitempty"`
}

type distribution struct {
	FeedDistribution string `json:"feedDistribution"`
}

type postContent struct {
	Media *mediaContent `json:"media,omitempty"`
}

type mediaContent struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	AltText string `json:"altText,omitempty"`
}

// CreatePost publishes a text share, optionally with an attached image.
func (c *Client) CreatePost(ctx context.Context, accessToken, authorURN, text, imageURL, altText string) (*PostRef, error) {
	payload := postPayload{
		Author:         authorURN,
		Commentary:     text,
		Visibility:     "PUBLIC",
		LifecycleState: "PUBLISHED",
		Distribution:   &distribution{FeedDistribution: "MAIN_FEED"},
	}
	if imageURL != "" {
		asset, err := c.uploadAsset(ctx, accessToken, authorURN, imageURL, "image")
		if err != nil {
			return nil, err
		}
		payload.Content = &postContent{Media: &mediaContent{ID: asset, AltText: altText}}
	}
	return c.createPost(ctx, accessToken, payload)
}

// CreateDocumentPost uploads the assembled document and publishes it as a
// native document post.
func (c *Client) CreateDocumentPost(ctx context.Context, accessToken, authorURN, text, documentURL, title string) (*PostRef, error) {
	asset, err := c.uploadAsset(ctx, accessToken, authorURN, documentURL, "document")
	if err != nil {
		return nil, err
	}

	payload := postPayload{
		Author:         authorURN,
		Commentary:     text,
		Visibility:     "PUBLIC",
		LifecycleState: "PUBLISHED",
		Distribution:   &distribution{FeedDistribution: "MAIN_FEED"},
		Content:        &postContent{Media: &mediaContent{ID: asset, Title: title}},
	}
	return c.createPost(ctx, accessToken, payload)
}

type createPostResp struct {
	ID string `json:"id"`
}

func (c *Client) createPost(ctx context.Context, accessToken string, payload postPayload) (*PostRef, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+postsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create post request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, platformErrorFrom(resp)
	}

	// The platform returns the new URN either in the body or in the
	// x-restli-id header.
	var created createPostResp
	respBody, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(respBody, &created)
	urn := created.ID
	if urn == "" {
		urn = resp.Header.Get("x-restli-id")
	}
	if urn == "" {
		return nil, &PlatformError{StatusCode: resp.StatusCode, Message: "post created but no URN returned"}
	}

	return &PostRef{
		PostURN: urn,
		PostURL: "https://www.linkedin.com/feed/update/" + urn,
	}, nil
}

type initUploadResp struct {
	Value struct {
		UploadURL string `json:"uploadUrl"`
		Asset     string `json:"document"`
		Image     string `json:"image"`
	} `json:"value"`
}

// uploadAsset registers an upload, fetches the source bytes, and PUTs them
// to the platform's upload URL, returning the asset URN.
func (c *Client) uploadAsset(ctx context.Context, accessToken, ownerURN, sourceURL, kind string) (string, error) {
	endpoint := c.baseURL + documentsEndpoint
	if kind == "image" {
		endpoint = c.baseURL + "/rest/images?action=initializeUpload"
	}

	initBody, err := json.Marshal(map[string]any{
		"initializeUploadRequest": map[string]string{"owner": ownerURN},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal upload init: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(initBody))
	if err != nil {
		return "", fmt.Errorf("failed to create upload init request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload init request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", platformErrorFrom(resp)
	}

	var initResp initUploadResp
	if err := json.NewDecoder(resp.Body).Decode(&initResp); err != nil {
		return "", fmt.Errorf("failed to decode upload init response: %w", err)
	}
	asset := initResp.Value.Asset
	if asset == "" {
		asset = initResp.Value.Image
	}
	if initResp.Value.UploadURL == "" || asset == "" {
		return "", &PlatformError{StatusCode: resp.StatusCode, Message: "upload init returned no upload URL"}
	}

	data, err := c.fetchSource(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, initResp.Value.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	putReq.Header.Set("Authorization", "Bearer "+accessToken)

	putResp, err := c.httpClient.Do(putReq)
	if err != nil {
		return "", fmt.Errorf("asset upload failed: %w", err)
	}
	defer putResp.Body.Close()

	if putResp.StatusCode < 200 || putResp.StatusCode >= 300 {
		return "", platformErrorFrom(putResp)
	}
	return asset, nil
}

func (c *Client) fetchSource(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create source fetch request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source fetch %s returned status %d", sourceURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read source body: %w", err)
	}
	return data, nil
}

func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("LinkedIn-Version", apiVersionHeader)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}

type platformErrBody struct {
	Message string `json:"message"`
}

func platformErrorFrom(resp *http.Response) *PlatformError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed platformErrBody
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &PlatformError{StatusCode: resp.StatusCode, Message: message}
}
