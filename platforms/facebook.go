package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/distribution"
)

// Facebook posts to a page feed through the Graph API.
type Facebook struct {
	poster
	cfg config.FacebookConfig
	api *jsonClient
}

func NewFacebook(cfg config.FacebookConfig, opts Options) *Facebook {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/v18.0"
	}
	f := &Facebook{poster: newPoster(content.Facebook, opts), cfg: cfg}
	f.api = f.jsonClient("facebook", cfg.BaseURL, cfg.PageAccessToken, nil)
	return f
}

func (f *Facebook) Enabled() bool {
	return f.cfg.PageAccessToken != "" && f.cfg.PageID != ""
}

func (f *Facebook) Post(ctx context.Context, text string) (distribution.Result, error) {
	return f.publish(ctx, func(ctx context.Context) (distribution.Result, error) {
		var out struct {
			ID string `json:"id"`
		}
		path := "/" + url.PathEscape(f.cfg.PageID) + "/feed"
		if _, err := f.api.do(ctx, http.MethodPost, path, map[string]string{"message": text}, &out); err != nil {
			return distribution.Result{}, err
		}
		if out.ID == "" {
			return distribution.Result{}, fmt.Errorf("facebook: %w", errMissingID)
		}
		return distribution.Result{PostID: out.ID, PostURL: "https://facebook.com/" + out.ID}, nil
	})
}

func (f *Facebook) TestConnection(ctx context.Context) bool {
	return f.probe(ctx, f.Enabled(), func(ctx context.Context) error {
		_, err := f.api.do(ctx, http.MethodGet, "/me", nil, nil)
		return err
	})
}
