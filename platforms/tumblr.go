package platforms

import (
	"context"
	"fmt"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/distribution"
)

// Tumblr creates text posts in the Neue Post Format.
type Tumblr struct {
	poster
	cfg config.TumblrConfig
	api *jsonClient
}

func NewTumblr(cfg config.TumblrConfig, opts Options) *Tumblr {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tumblr.com"
	}
	cfg.BlogIdentifier = strings.TrimSuffix(strings.TrimSpace(cfg.BlogIdentifier), ".tumblr.com")
	t := &Tumblr{poster: newPoster(content.Tumblr, opts), cfg: cfg}
	t.api = t.jsonClient("tumblr", cfg.BaseURL, cfg.AccessToken, nil)
	return t
}

func (t *Tumblr) Enabled() bool {
	return t.cfg.AccessToken != "" && t.cfg.BlogIdentifier != ""
}

type npfBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (t *Tumblr) Post(ctx context.Context, text string) (distribution.Result, error) {
	var blocks []npfBlock
	for _, para := range strings.Split(text, "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			blocks = append(blocks, npfBlock{Type: "text", Text: para})
		}
	}
	if len(blocks) == 0 {
		blocks = []npfBlock{{Type: "text", Text: text}}
	}

	return t.publish(ctx, func(ctx context.Context) (distribution.Result, error) {
		var out struct {
			Response struct {
				ID       json.Number `json:"id"`
				IDString string      `json:"id_string"`
			} `json:"response"`
		}
		path := "/v2/blog/" + url.PathEscape(t.cfg.BlogIdentifier) + ".tumblr.com/posts"
		if _, err := t.api.do(ctx, http.MethodPost, path, map[string]any{"content": blocks}, &out); err != nil {
			return distribution.Result{}, err
		}
		id := out.Response.IDString
		if id == "" {
			id = out.Response.ID.String()
		}
		if id == "" {
			return distribution.Result{}, fmt.Errorf("tumblr: %w", errMissingID)
		}
		return distribution.Result{
			PostID:  id,
			PostURL: "https://" + t.cfg.BlogIdentifier + ".tumblr.com/post/" + id,
		}, nil
	})
}

func (t *Tumblr) TestConnection(ctx context.Context) bool {
	return t.probe(ctx, t.Enabled(), func(ctx context.Context) error {
		_, err := t.api.do(ctx, http.MethodGet, "/v2/user/info", nil, nil)
		return err
	})
}
