package generation

import (
	"hash/fnv"
	"strings"
)

// DefaultBannedPhrases never appear in a returned title.
var DefaultBannedPhrases = []string{
	"sunday prep struggle",
	"prep struggle",
	"weekend prep",
	"sunday prep",
}

// DefaultTitleTemplates replace a banned title. {concept} and {audience} are
// filled from the request.
var DefaultTitleTemplates = []string{
	"When {concept} Finally Clicked for My {audience} Graders",
	"The {concept} Breakthrough Every Teacher Needs",
	"{audience} Grade {concept}: A Teaching Transformation",
	"Why My Students Now Love {concept}",
	"{concept} Success: From Confusion to Confidence",
	"Teaching {concept} the Way It Should Be Done",
	"The {concept} Lesson That Changed Everything",
	"STAAR Prep for {concept}: What Actually Works",
}

const fallbackTitle = "A New Way to Teach {concept}"

func containsBanned(title string, banned []string) (string, bool) {
	lower := strings.ToLower(title)
	for _, phrase := range banned {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase, true
		}
	}
	return "", false
}

// replacementTitle picks a template by hashing concept and audience so the
// same request always gets the same title. Templates that would themselves
// contain a banned phrase are skipped.
func replacementTitle(req Request, templates, banned []string) string {
	r := strings.NewReplacer("{concept}", req.Concept, "{audience}", req.Audience)
	if len(templates) > 0 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(req.Concept + req.Audience))
		start := int(h.Sum32() % uint32(len(templates)))
		for i := range templates {
			title := r.Replace(templates[(start+i)%len(templates)])
			if _, bad := containsBanned(title, banned); !bad {
				return title
			}
		}
	}
	return r.Replace(fallbackTitle)
}
