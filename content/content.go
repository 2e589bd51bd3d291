package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"amplify-cloud/faults"
)

// Platform identifies a publishing destination or a generated text field.
type Platform string

const (
	Twitter  Platform = "TWITTER"
	Facebook Platform = "FACEBOOK"
	LinkedIn Platform = "LINKEDIN"
	Blogger  Platform = "BLOGGER"
	Tumblr   Platform = "TUMBLR"
	// Reddit copy is generated but there is no publisher for it.
	Reddit Platform = "REDDIT"
)

// AllPlatforms returns the publishing set in canonical order.
func AllPlatforms() []Platform {
	return []Platform{Twitter, Facebook, LinkedIn, Blogger, Tumblr}
}

// ParsePlatform accepts any casing of a known platform name.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case Twitter, Facebook, LinkedIn, Blogger, Tumblr, Reddit:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Status is the lifecycle of a content item.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
	StatusFailed Status = "FAILED"
)

var ErrNotFound = errors.New("content not found")

// Variants is one set of per-platform copy, used for translations.
type Variants struct {
	LinkedIn string `json:"linkedinPost,omitempty"`
	Reddit   string `json:"redditPost,omitempty"`
	Facebook string `json:"facebookPost,omitempty"`
	Twitter  string `json:"twitterPost,omitempty"`
	Blogger  string `json:"bloggerPost,omitempty"`
	Tumblr   string `json:"tumblrPost,omitempty"`
}

// Bundle is validated generator output: a title plus per-platform copy.
type Bundle struct {
	Title    string `json:"ideaTitle"`
	LinkedIn string `json:"linkedinPost"`
	Reddit   string `json:"redditPost"`
	Facebook string `json:"facebookPost"`
	Twitter  string `json:"twitterPost"`
	Blogger  string `json:"bloggerPost,omitempty"`
	Tumblr   string `json:"tumblrPost,omitempty"`

	// Translations is keyed by language code ("es").
	Translations map[string]Variants `json:"translations,omitempty"`
}

// Validate rejects a bundle with any empty required field.
func (b *Bundle) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("ideaTitle", b.Title)
	check("linkedinPost", b.LinkedIn)
	check("redditPost", b.Reddit)
	check("facebookPost", b.Facebook)
	check("twitterPost", b.Twitter)
	if len(missing) > 0 {
		return faults.InvalidShape("bundle", "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// TextFor returns the copy to publish on p. Extended platforms missing on
// older content, and any unknown platform, fall back to the LinkedIn copy.
func (b *Bundle) TextFor(p Platform) string {
	var text string
	switch p {
	case Twitter:
		text = b.Twitter
	case Facebook:
		text = b.Facebook
	case LinkedIn:
		text = b.LinkedIn
	case Reddit:
		text = b.Reddit
	case Blogger:
		text = b.Blogger
	case Tumblr:
		text = b.Tumblr
	}
	if strings.TrimSpace(text) == "" {
		return b.LinkedIn
	}
	return text
}

// Content is a persisted bundle plus its distribution lifecycle.
type Content struct {
	ID       string `json:"id"`
	Bundle   Bundle `json:"bundle"`
	Topic    string `json:"topic,omitempty"`
	Concept  string `json:"concept,omitempty"`
	Audience string `json:"audience,omitempty"`
	Angle    string `json:"angle,omitempty"`
	ProofURL string `json:"proofUrl,omitempty"`
	Provider string `json:"provider,omitempty"`

	Status    Status     `json:"status"`
	PostedAt  *time.Time `json:"postedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Store persists content items. UpdateStatus is a single atomic overwrite of
// status and posted-at.
type Store interface {
	Create(ctx context.Context, c *Content) error
	Get(ctx context.Context, id string) (*Content, error)
	UpdateStatus(ctx context.Context, id string, status Status, postedAt *time.Time) error
	ListRecent(ctx context.Context, limit int) ([]*Content, error)
}

func notFound(op, id string) error {
	return faults.NotFound(op, id, ErrNotFound)
}

func clone(c *Content) *Content {
	if c == nil {
		return nil
	}
	cp := *c
	if c.PostedAt != nil {
		t := *c.PostedAt
		cp.PostedAt = &t
	}
	if c.Bundle.Translations != nil {
		cp.Bundle.Translations = make(map[string]Variants, len(c.Bundle.Translations))
		for k, v := range c.Bundle.Translations {
			cp.Bundle.Translations[k] = v
		}
	}
	return &cp
}
