package platforms

import (
	"context"
	"fmt"
	"net/http"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/distribution"
)

// Twitter posts through the v2 API with an OAuth 2.0 user-context token.
type Twitter struct {
	poster
	cfg config.TwitterConfig
	api *jsonClient
}

func NewTwitter(cfg config.TwitterConfig, opts Options) *Twitter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twitter.com"
	}
	t := &Twitter{poster: newPoster(content.Twitter, opts), cfg: cfg}
	t.api = t.jsonClient("twitter", cfg.BaseURL, cfg.AccessToken, nil)
	return t
}

func (t *Twitter) Enabled() bool { return t.cfg.AccessToken != "" }

func (t *Twitter) Post(ctx context.Context, text string) (distribution.Result, error) {
	return t.publish(ctx, func(ctx context.Context) (distribution.Result, error) {
		var out struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if _, err := t.api.do(ctx, http.MethodPost, "/2/tweets", map[string]string{"text": text}, &out); err != nil {
			return distribution.Result{}, err
		}
		if out.Data.ID == "" {
			return distribution.Result{}, fmt.Errorf("twitter: %w", errMissingID)
		}
		return distribution.Result{
			PostID:  out.Data.ID,
			PostURL: "https://twitter.com/i/web/status/" + out.Data.ID,
		}, nil
	})
}

func (t *Twitter) TestConnection(ctx context.Context) bool {
	return t.probe(ctx, t.Enabled(), func(ctx context.Context) error {
		_, err := t.api.do(ctx, http.MethodGet, "/2/users/me", nil, nil)
		return err
	})
}
