package platforms

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"amplify-cloud/content"
	"amplify-cloud/distribution"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const previewLen = 280

var mockURLs = map[content.Platform]string{
	content.Twitter:  "https://twitter.com/mock/status/%s",
	content.Facebook: "https://facebook.com/mock/%s",
	content.LinkedIn: "https://linkedin.com/feed/update/%s",
	content.Blogger:  "https://mock-blog.blogspot.com/post/%s",
	content.Tumblr:   "https://mock-blog.tumblr.com/post/%s",
}

// Simulated stands in for a real adapter when MOCK_POSTING is on. Every post
// succeeds after a short delay and only the preview is logged.
type Simulated struct {
	platform content.Platform
	delay    time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewSimulated waits between delay and 2*delay per post. A zero delay
// returns immediately.
func NewSimulated(p content.Platform, delay time.Duration, logger logrus.FieldLogger) *Simulated {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Simulated{
		platform: p,
		delay:    delay,
		log:      logger.WithFields(logrus.Fields{"platform": p, "mock": true}),
		now:      time.Now,
	}
}

func (s *Simulated) Platform() content.Platform { return s.platform }

func (s *Simulated) Enabled() bool { return true }

func (s *Simulated) Post(ctx context.Context, text string) (distribution.Result, error) {
	if s.delay > 0 {
		wait := s.delay + time.Duration(rand.Int63n(int64(s.delay)))
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return distribution.Result{Platform: s.platform}, ctx.Err()
		case <-timer.C:
		}
	}

	id := fmt.Sprintf("mock_%d_%s", s.now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
	preview := text
	if len(preview) > previewLen {
		preview = truncate(preview, previewLen) + "..."
	}
	s.log.WithFields(logrus.Fields{
		"post_id": id,
		"chars":   len(text),
		"preview": preview,
	}).Info("simulated post")

	return distribution.Result{
		Platform: s.platform,
		Success:  true,
		PostID:   id,
		PostURL:  mockURL(s.platform, id),
	}, nil
}

func (s *Simulated) TestConnection(ctx context.Context) bool {
	s.log.Info("simulated connection test")
	return true
}

func mockURL(p content.Platform, id string) string {
	if format, ok := mockURLs[p]; ok {
		return fmt.Sprintf(format, id)
	}
	return "https://example.com/mock/" + strings.ToLower(string(p)) + "/" + id
}
