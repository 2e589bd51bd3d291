package main

import (
	"net/http"
	"strconv"

	"amplify-cloud/content"
	"amplify-cloud/history"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type contentHandler struct {
	contents content.Store
	attempts history.Store
	logger   logrus.FieldLogger
}

type contentListResponse struct {
	Content []*content.Content `json:"content"`
}

type contentDetailResponse struct {
	Content  *content.Content `json:"content"`
	Attempts []history.Record `json:"attempts"`
}

func registerContentRoutes(r *mux.Router, contents content.Store, attempts history.Store, logger logrus.FieldLogger) {
	h := &contentHandler{contents: contents, attempts: attempts, logger: logger}
	r.HandleFunc("/api/content", h.handleList).Methods("GET")
	r.HandleFunc("/api/content/{id}", h.handleGet).Methods("GET")
}

func (h *contentHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxListLimit)
	}

	items, err := h.contents.ListRecent(r.Context(), limit)
	if err != nil {
		failRequest(w, h.logger, "failed to list content", err)
		return
	}
	if items == nil {
		items = []*content.Content{}
	}
	writeJSON(w, http.StatusOK, contentListResponse{Content: items})
}

func (h *contentHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	item, err := h.contents.Get(r.Context(), id)
	if err != nil {
		failRequest(w, h.logger, "failed to load content", err)
		return
	}

	records, err := h.attempts.ListByContent(r.Context(), id)
	if err != nil {
		failRequest(w, h.logger, "failed to load attempt history", err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, contentDetailResponse{Content: item, Attempts: records})
}
