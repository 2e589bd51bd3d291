package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"amplify-cloud/faults"
	"golang.org/x/oauth2"
)

const maxErrorBody = 200

// jsonClient talks JSON to one platform API with a bearer token.
type jsonClient struct {
	op       string
	baseURL  string
	client   *http.Client
	headers  map[string]string
	now      func() time.Time
	cooldown time.Duration
}

// bearerClient wraps base (or http.DefaultClient) with a static bearer token.
func bearerClient(base *http.Client, token string, timeout time.Duration) *http.Client {
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	client.Timeout = timeout
	return client
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out.
func (c *jsonClient) do(ctx context.Context, method, path string, in, out any) (http.Header, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", c.op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, body)
	if err != nil {
		return nil, faults.Configuration(c.op, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, faults.Transient(c.op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.Transient(c.op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, classifyStatus(c.op, resp.StatusCode, resp.Header, raw, c.now(), c.cooldown)
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			// The platform accepted the request; only the reply is unreadable.
			return resp.Header, fmt.Errorf("%s: %w: decode response: %v", c.op, errMissingID, err)
		}
	}
	return resp.Header, nil
}

// classifyStatus maps a non-2xx response onto a fault kind. Client errors other
// than 401, 403, 408 and 429 are plain errors, which the retry policy rejects.
func classifyStatus(op string, status int, header http.Header, body []byte, now time.Time, cooldown time.Duration) error {
	msg := apiMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusTooManyRequests:
		return faults.RateLimited(op, retryAfter(header, now, cooldown), fmt.Errorf("rate limited: %s", msg))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return faults.Configuration(op, "rejected credentials (%d): %s", status, msg)
	case status >= 400 && status < 500 && status != http.StatusRequestTimeout:
		return fmt.Errorf("%s: rejected (status %d): %s", op, status, msg)
	default:
		return faults.Transient(op, fmt.Errorf("status %d: %s", status, msg))
	}
}

// retryAfter honours Retry-After (seconds or HTTP date) and the unix-seconds
// x-rate-limit-reset header, falling back to now+cooldown.
func retryAfter(header http.Header, now time.Time, cooldown time.Duration) time.Time {
	if header != nil {
		if v := strings.TrimSpace(header.Get("Retry-After")); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
				return now.Add(time.Duration(secs) * time.Second)
			}
			if t, err := http.ParseTime(v); err == nil {
				return t
			}
		}
		if v := strings.TrimSpace(header.Get("x-rate-limit-reset")); v != "" {
			if unix, err := strconv.ParseInt(v, 10, 64); err == nil && unix > 0 {
				return time.Unix(unix, 0).UTC()
			}
		}
	}
	return now.Add(cooldown)
}

// apiMessage pulls a human message out of the common platform error shapes.
func apiMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return truncate(strings.TrimSpace(string(body)), maxErrorBody)
	}
	if e, ok := payload["error"].(map[string]any); ok {
		if m, ok := e["message"].(string); ok {
			return m
		}
	}
	if e, ok := payload["error"].(string); ok {
		return e
	}
	for _, key := range []string{"message", "detail", "title"} {
		if m, ok := payload[key].(string); ok && m != "" {
			return m
		}
	}
	if errs, ok := payload["errors"].([]any); ok && len(errs) > 0 {
		if first, ok := errs[0].(map[string]any); ok {
			for _, key := range []string{"message", "detail", "title"} {
				if m, ok := first[key].(string); ok && m != "" {
					return m
				}
			}
		}
	}
	if meta, ok := payload["meta"].(map[string]any); ok {
		if m, ok := meta["msg"].(string); ok {
			return m
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
