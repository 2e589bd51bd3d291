package platforms

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/distribution"
)

// LinkedIn shares a public text post as the configured member.
type LinkedIn struct {
	poster
	cfg config.LinkedInConfig
	api *jsonClient
}

func NewLinkedIn(cfg config.LinkedInConfig, opts Options) *LinkedIn {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.linkedin.com"
	}
	l := &LinkedIn{poster: newPoster(content.LinkedIn, opts), cfg: cfg}
	l.api = l.jsonClient("linkedin", cfg.BaseURL, cfg.AccessToken, map[string]string{
		"X-Restli-Protocol-Version": "2.0.0",
	})
	return l
}

func (l *LinkedIn) Enabled() bool {
	return l.cfg.AccessToken != "" && l.cfg.PersonURN != ""
}

func (l *LinkedIn) author() string {
	if strings.HasPrefix(l.cfg.PersonURN, "urn:li:") {
		return l.cfg.PersonURN
	}
	return "urn:li:person:" + l.cfg.PersonURN
}

type ugcPost struct {
	Author          string            `json:"author"`
	LifecycleState  string            `json:"lifecycleState"`
	SpecificContent map[string]any    `json:"specificContent"`
	Visibility      map[string]string `json:"visibility"`
}

func (l *LinkedIn) Post(ctx context.Context, text string) (distribution.Result, error) {
	body := ugcPost{
		Author:         l.author(),
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": text},
				"shareMediaCategory": "NONE",
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	return l.publish(ctx, func(ctx context.Context) (distribution.Result, error) {
		var out struct {
			ID string `json:"id"`
		}
		header, err := l.api.do(ctx, http.MethodPost, "/v2/ugcPosts", body, &out)
		if err != nil {
			return distribution.Result{}, err
		}
		id := header.Get("X-Restli-Id")
		if id == "" {
			id = out.ID
		}
		if id == "" {
			return distribution.Result{}, fmt.Errorf("linkedin: %w", errMissingID)
		}
		return distribution.Result{PostID: id, PostURL: "https://www.linkedin.com/feed/update/" + id}, nil
	})
}

func (l *LinkedIn) TestConnection(ctx context.Context) bool {
	return l.probe(ctx, l.Enabled(), func(ctx context.Context) error {
		_, err := l.api.do(ctx, http.MethodGet, "/v2/userinfo", nil, nil)
		return err
	})
}
