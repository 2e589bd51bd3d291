package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

// apiClient talks to a running amplify-cloud server and echoes JSON replies.
type apiClient struct {
	server string
	http   *http.Client
	out    io.Writer
}

func (c *apiClient) call(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.server, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		raw = pretty.Bytes()
	}
	fmt.Fprintln(c.out, strings.TrimSpace(string(raw)))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	client := &apiClient{}
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "amplifyctl",
		Short:         "Generate and distribute marketing copy through an amplify-cloud server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client.out = cmd.OutOrStdout()
			if client.http == nil {
				client.http = &http.Client{Timeout: timeout}
			}
		},
	}
	root.PersistentFlags().StringVar(&client.server, "server", defaultServer, "amplify-cloud base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "request timeout")

	root.AddCommand(newGenerateCmd(client))
	root.AddCommand(newPostCmd(client))
	root.AddCommand(newRetryCmd(client))
	root.AddCommand(&cobra.Command{
		Use:   "test-connections",
		Short: "Probe every platform adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.call(cmd.Context(), http.MethodGet, "/api/post/test", nil)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "providers",
		Short: "List configured AI providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.call(cmd.Context(), http.MethodGet, "/api/providers", nil)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "show <content-id>",
		Short: "Show a content item and its attempt history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.call(cmd.Context(), http.MethodGet, "/api/content/"+args[0], nil)
		},
	})
	return root
}

func newGenerateCmd(client *apiClient) *cobra.Command {
	var body struct {
		Topic    string `json:"topic"`
		Concept  string `json:"concept"`
		Audience string `json:"audience"`
		Angle    string `json:"angle,omitempty"`
		ProofURL string `json:"proofUrl,omitempty"`
	}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a content bundle and save it as a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.call(cmd.Context(), http.MethodPost, "/api/generate", body)
		},
	}
	cmd.Flags().StringVar(&body.Topic, "topic", "", "subject area")
	cmd.Flags().StringVar(&body.Concept, "concept", "", "concept being taught")
	cmd.Flags().StringVar(&body.Audience, "audience", "", "grade or audience")
	cmd.Flags().StringVar(&body.Angle, "angle", "", "marketing angle")
	cmd.Flags().StringVar(&body.ProofURL, "proof-url", "", "testimonial link")
	for _, f := range []string{"topic", "concept", "audience"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newPostCmd(client *apiClient) *cobra.Command {
	var platforms []string
	cmd := &cobra.Command{
		Use:   "post <content-id>",
		Short: "Publish content to platforms (all when --platform is omitted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.call(cmd.Context(), http.MethodPost, "/api/post", map[string]any{
				"contentId": args[0],
				"platforms": platforms,
			})
		},
	}
	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "target platform, repeatable")
	return cmd
}

func newRetryCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <content-id>",
		Short: "Retry the platforms that failed or were rate limited",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.call(cmd.Context(), http.MethodPost, "/api/post/retry", map[string]string{"contentId": args[0]})
		},
	}
}
