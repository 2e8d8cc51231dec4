package ideasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contentloom/storyforge/internal/platform/logger"
)

// HTTPConfig configures an HTTPSource pointed at a real idea-ingestion
// service. BaseURL is expected to expose GET {BaseURL}/ideas/{ideaRef}.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPSource is a thin client demonstrating how a real idea-ingestion
// service would be wired: a small struct with a constructor and a narrow
// method set, using net/http directly rather than a generated SDK, the
// same shape the rest of this module's small external clients use for
// internal service calls that don't warrant one.
type HTTPSource struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource builds an HTTPSource. baseURL must be reachable and is
// trimmed of any trailing slash.
func NewHTTPSource(baseLog *logger.Logger, cfg HTTPConfig) (*HTTPSource, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("ideasource: missing BaseURL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		log:        baseLog.With("client", "IdeaSourceHTTPClient"),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type ideaResponse struct {
	IdeaRef string `json:"idea_ref"`
	Text    string `json:"text"`
}

func (c *HTTPSource) GetIdea(ctx context.Context, ideaRef string) (IdeaBody, error) {
	endpoint := c.baseURL + "/ideas/" + url.PathEscape(ideaRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return IdeaBody{}, fmt.Errorf("ideasource: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return IdeaBody{}, fmt.Errorf("ideasource: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return IdeaBody{}, ErrIdeaNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return IdeaBody{}, fmt.Errorf("ideasource: unexpected status %d for idea_ref=%s", resp.StatusCode, ideaRef)
	}

	var body ideaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return IdeaBody{}, fmt.Errorf("ideasource: decode response: %w", err)
	}
	return IdeaBody{IdeaRef: body.IdeaRef, Text: body.Text}, nil
}
