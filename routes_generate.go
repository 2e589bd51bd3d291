package main

import (
	"context"
	"net/http"
	"time"

	"amplify-cloud/content"
	"amplify-cloud/generation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const recentTitleCount = 5

type generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
	AvailableProviders() []string
	DefaultProvider() string
}

type generateHandler struct {
	gen      generator
	contents content.Store
	logger   logrus.FieldLogger
	now      func() time.Time
}

type generateResponse struct {
	Success  bool             `json:"success"`
	Content  *content.Content `json:"content"`
	Provider string           `json:"provider"`
}

type providersResponse struct {
	Available []string `json:"available"`
	Default   string   `json:"default"`
}

func registerGenerateRoutes(r *mux.Router, gen generator, contents content.Store, logger logrus.FieldLogger) {
	h := &generateHandler{gen: gen, contents: contents, logger: logger, now: time.Now}
	r.HandleFunc("/api/generate", h.handleGenerate).Methods("POST")
	r.HandleFunc("/api/providers", h.handleProviders).Methods("GET")
}

func (h *generateHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generation.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields", err)
		return
	}

	if len(req.RecentTitles) == 0 {
		recent, err := h.contents.ListRecent(r.Context(), recentTitleCount)
		if err != nil {
			h.logger.WithError(err).Warn("could not load recent titles")
		}
		for _, c := range recent {
			req.RecentTitles = append(req.RecentTitles, c.Bundle.Title)
		}
	}

	res, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		failRequest(w, h.logger, "failed to generate content", err)
		return
	}

	item := &content.Content{
		ID:        uuid.NewString(),
		Bundle:    *res.Bundle,
		Topic:     req.Topic,
		Concept:   req.Concept,
		Audience:  req.Audience,
		Angle:     req.Angle,
		ProofURL:  req.ProofURL,
		Provider:  res.Provider,
		Status:    content.StatusDraft,
		CreatedAt: h.now().UTC(),
	}
	if err := h.contents.Create(r.Context(), item); err != nil {
		failRequest(w, h.logger, "failed to save content", err)
		return
	}

	h.logger.WithFields(logrus.Fields{"content_id": item.ID, "provider": res.Provider}).Info("content generated")
	writeJSON(w, http.StatusCreated, generateResponse{Success: true, Content: item, Provider: res.Provider})
}

func (h *generateHandler) handleProviders(w http.ResponseWriter, r *http.Request) {
	available := h.gen.AvailableProviders()
	if available == nil {
		available = []string{}
	}
	writeJSON(w, http.StatusOK, providersResponse{Available: available, Default: h.gen.DefaultProvider()})
}
