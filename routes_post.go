package main

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"amplify-cloud/content"
	"amplify-cloud/distribution"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type distributor interface {
	Distribute(ctx context.Context, contentID string, platforms []content.Platform) ([]distribution.Result, error)
	RetryFailed(ctx context.Context, contentID string) ([]distribution.Result, error)
	TestAllConnections(ctx context.Context) map[content.Platform]bool
}

type postHandler struct {
	dist   distributor
	logger logrus.FieldLogger
}

type postRequest struct {
	ContentID string   `json:"contentId"`
	Platforms []string `json:"platforms"`
}

type postResponse struct {
	Success bool                  `json:"success"`
	Results []distribution.Result `json:"results"`
	Summary distribution.Summary  `json:"summary"`
}

type connectionsResponse struct {
	Success     bool                      `json:"success"`
	Connections map[content.Platform]bool `json:"connections"`
}

func registerPostRoutes(r *mux.Router, dist distributor, logger logrus.FieldLogger) {
	h := &postHandler{dist: dist, logger: logger}
	r.HandleFunc("/api/post", h.handlePost).Methods("POST")
	r.HandleFunc("/api/post/retry", h.handleRetry).Methods("POST")
	r.HandleFunc("/api/post/test", h.handleTest).Methods("GET")
}

func (h *postHandler) decode(w http.ResponseWriter, r *http.Request) (postRequest, bool) {
	var req postRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return req, false
	}
	req.ContentID = strings.TrimSpace(req.ContentID)
	if req.ContentID == "" {
		writeError(w, http.StatusBadRequest, "Content ID is required", nil)
		return req, false
	}
	return req, true
}

func (h *postHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	platforms := make([]content.Platform, 0, len(req.Platforms))
	for _, name := range req.Platforms {
		p, err := content.ParsePlatform(name)
		if err == nil && !slices.Contains(content.AllPlatforms(), p) {
			err = fmt.Errorf("%s has no publisher", p)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid platform", err)
			return
		}
		platforms = append(platforms, p)
	}

	results, err := h.dist.Distribute(r.Context(), req.ContentID, platforms)
	if err != nil {
		failRequest(w, h.logger, "failed to post content", err)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Success: true, Results: results, Summary: distribution.Summarize(results)})
}

func (h *postHandler) handleRetry(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	results, err := h.dist.RetryFailed(r.Context(), req.ContentID)
	if err != nil {
		failRequest(w, h.logger, "failed to retry posts", err)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Success: true, Results: results, Summary: distribution.Summarize(results)})
}

func (h *postHandler) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, connectionsResponse{Success: true, Connections: h.dist.TestAllConnections(r.Context())})
}
