package providers

import (
	"fmt"
	"strings"

	"amplify-cloud/generation"
)

const systemPrompt = "You are a marketing expert. You MUST respond with ONLY valid JSON, no markdown, no explanations, just the JSON object. NEVER use banned phrases."

const responseShape = `{
  "ideaTitle": "short title",
  "linkedinPost": "story-driven professional post",
  "redditPost": "authentic community post, no hashtags",
  "facebookPost": "friendly shareable post",
  "twitterPost": "under 280 characters",
  "bloggerPost": "article, first line is the title",
  "tumblrPost": "casual 3-4 paragraphs",
  "linkedinPostEs": "Spanish version",
  "redditPostEs": "Spanish version",
  "facebookPostEs": "Spanish version",
  "twitterPostEs": "Spanish version under 280 characters",
  "bloggerPostEs": "Spanish version",
  "tumblrPostEs": "Spanish version"
}`

// BuildPrompt renders the user message for one generation request.
func BuildPrompt(req generation.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create social media content about %s.\n\n", req.Topic)
	fmt.Fprintf(&b, "CONCEPT: %s for %s grade", req.Concept, req.Audience)
	if req.StandardsRef != "" {
		fmt.Fprintf(&b, " (%s)", req.StandardsRef)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "ANGLE: %s\n", req.Angle)
	if req.Focus != nil && req.Focus.Title != "" {
		fmt.Fprintf(&b, "PAIN POINT: %q - %s\n", req.Focus.Title, req.Focus.Struggle)
		if req.Focus.Solution != "" {
			fmt.Fprintf(&b, "SOLUTION: %s\n", req.Focus.Solution)
		}
	}
	if req.ProofURL != "" {
		fmt.Fprintf(&b, "TESTIMONIAL: %s", req.ProofURL)
		if req.ProofTitle != "" {
			fmt.Fprintf(&b, " (%s)", req.ProofTitle)
		}
		b.WriteString("\n")
	}
	if titles := firstN(req.RecentTitles, 5); len(titles) > 0 {
		fmt.Fprintf(&b, "AVOID THESE RECENT TITLES: %s\n", strings.Join(titles, ", "))
	}
	if hooks := firstN(req.RecentHooks, 5); len(hooks) > 0 {
		fmt.Fprintf(&b, "AVOID THESE RECENT OPENINGS: %s\n", strings.Join(hooks, " | "))
	}

	b.WriteString("\nBANNED PHRASES (never use, especially in the title):\n")
	for _, p := range generation.DefaultBannedPhrases {
		fmt.Fprintf(&b, "- %q\n", p)
	}

	b.WriteString("\nWrite every post in English and Spanish. Use [text](url) links.\n")
	b.WriteString("Return ONLY valid JSON (no markdown, no code blocks) in this shape:\n")
	b.WriteString(responseShape)
	return b.String()
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
