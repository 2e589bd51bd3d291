package providers

import (
	"encoding/json"
	"regexp"
	"strings"

	"amplify-cloud/content"
	"amplify-cloud/faults"
)

var (
	fencePattern  = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

// wireBundle is the JSON shape models are asked to return. Spanish copy
// arrives as *Es siblings of the English fields.
type wireBundle struct {
	Title    string `json:"ideaTitle"`
	LinkedIn string `json:"linkedinPost"`
	Reddit   string `json:"redditPost"`
	Facebook string `json:"facebookPost"`
	Twitter  string `json:"twitterPost"`
	Blogger  string `json:"bloggerPost"`
	Tumblr   string `json:"tumblrPost"`

	LinkedInEs string `json:"linkedinPostEs"`
	RedditEs   string `json:"redditPostEs"`
	FacebookEs string `json:"facebookPostEs"`
	TwitterEs  string `json:"twitterPostEs"`
	BloggerEs  string `json:"bloggerPostEs"`
	TumblrEs   string `json:"tumblrPostEs"`
}

// ParseBundle coerces raw model output into a validated bundle. Markdown
// fences and any prose around the outermost JSON object are ignored. Output
// missing a required field is rejected whole.
func ParseBundle(raw string) (*content.Bundle, error) {
	text := fencePattern.ReplaceAllString(raw, "")
	obj := objectPattern.FindString(text)
	if obj == "" {
		return nil, faults.InvalidShape("parse", "no JSON object in response")
	}

	var w wireBundle
	if err := json.Unmarshal([]byte(obj), &w); err != nil {
		return nil, faults.InvalidShape("parse", "decode response: %v", err)
	}

	b := &content.Bundle{
		Title:    strings.TrimSpace(w.Title),
		LinkedIn: w.LinkedIn,
		Reddit:   w.Reddit,
		Facebook: w.Facebook,
		Twitter:  w.Twitter,
		Blogger:  w.Blogger,
		Tumblr:   w.Tumblr,
	}
	es := content.Variants{
		LinkedIn: w.LinkedInEs,
		Reddit:   w.RedditEs,
		Facebook: w.FacebookEs,
		Twitter:  w.TwitterEs,
		Blogger:  w.BloggerEs,
		Tumblr:   w.TumblrEs,
	}
	if es != (content.Variants{}) {
		b.Translations = map[string]content.Variants{"es": es}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
