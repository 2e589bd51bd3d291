package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/distribution"
	"amplify-cloud/faults"
	"amplify-cloud/security"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/blogger/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// Blogger publishes HTML posts with a refresh-token grant. Access tokens are
// cached in the token store when one is configured.
type Blogger struct {
	poster
	cfg config.BloggerConfig
	svc *blogger.Service
}

func NewBlogger(ctx context.Context, cfg config.BloggerConfig, tokens *security.TokenStore, opts Options) (*Blogger, error) {
	b := &Blogger{poster: newPoster(content.Blogger, opts), cfg: cfg}

	oauthCtx := context.Background()
	if b.opts.HTTPClient != nil {
		oauthCtx = context.WithValue(oauthCtx, oauth2.HTTPClient, b.opts.HTTPClient)
	}
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{blogger.BloggerScope},
	}
	var src oauth2.TokenSource = oc.TokenSource(oauthCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	if tokens != nil {
		src = oauth2.ReuseTokenSource(nil, tokens.TokenSource(string(content.Blogger), src))
	}
	client := oauth2.NewClient(oauthCtx, src)
	client.Timeout = b.opts.Timeout

	svcOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.BaseURL != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	svc, err := blogger.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create blogger service: %w", err)
	}
	b.svc = svc
	return b, nil
}

func (b *Blogger) Enabled() bool {
	return b.cfg.RefreshToken != "" && b.cfg.BlogID != ""
}

// splitPost takes the first line as the title, dropping markdown heading
// marks, and joins the rest with <br>.
func splitPost(text string) (title, body string) {
	lines := strings.Split(text, "\n")
	title = strings.TrimSpace(headingPrefix.ReplaceAllString(lines[0], ""))
	body = strings.Join(lines[1:], "<br>")
	return title, body
}

func (b *Blogger) Post(ctx context.Context, text string) (distribution.Result, error) {
	title, body := splitPost(text)
	return b.publish(ctx, func(ctx context.Context) (distribution.Result, error) {
		post, err := b.svc.Posts.Insert(b.cfg.BlogID, &blogger.Post{
			Kind:    "blogger#post",
			Title:   title,
			Content: body,
		}).Context(ctx).Do()
		if err != nil {
			return distribution.Result{}, b.classify(err)
		}
		if post.Id == "" {
			return distribution.Result{}, fmt.Errorf("blogger: %w", errMissingID)
		}
		return distribution.Result{PostID: post.Id, PostURL: post.Url}, nil
	})
}

func (b *Blogger) TestConnection(ctx context.Context) bool {
	return b.probe(ctx, b.Enabled(), func(ctx context.Context) error {
		blog, err := b.svc.Blogs.Get(b.cfg.BlogID).Context(ctx).Do()
		if err != nil {
			return b.classify(err)
		}
		b.log.WithField("blog", blog.Name).Debug("blog reachable")
		return nil
	})
}

func (b *Blogger) classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return faults.Configuration("blogger", "refresh google token: %v", retrieveErr)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return faults.RateLimited("blogger", retryAfter(apiErr.Header, b.opts.Now(), b.opts.RateLimitCooldown), apiErr)
		case http.StatusUnauthorized, http.StatusForbidden:
			return faults.Configuration("blogger", "rejected credentials (%d): %s", apiErr.Code, apiErr.Message)
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusRequestTimeout {
			return fmt.Errorf("blogger: rejected (status %d): %s", apiErr.Code, apiErr.Message)
		}
	}
	return faults.Transient("blogger", err)
}
