package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/vitrine/internal/domain/analytics"
)

type trackResponse struct {
	Accepted bool `json:"accepted"`
}

func (h *Handler) visit(w http.ResponseWriter, r *http.Request) {
	ok := h.tracker.Track(analytics.Event{
		StoreID: storeID(r),
		Action:  analytics.ActionVisit,
		At:      h.now(),
	})
	writeJSON(w, r, http.StatusAccepted, trackResponse{Accepted: ok})
}

type metricRequest struct {
	ProductID string `json:"productId"`
	Action    string `json:"action"`
}

func (h *Handler) metric(w http.ResponseWriter, r *http.Request) {
	var req metricRequest
	if !decodeBody(w, r, &req) {
		return
	}
	action, err := analytics.ParseAction(req.Action)
	if err != nil || req.ProductID == "" {
		writeError(w, r, http.StatusBadRequest, "Métrica inválida.", nil)
		return
	}

	ok := h.tracker.Track(analytics.Event{
		StoreID:   storeID(r),
		ProductID: req.ProductID,
		Action:    action,
		At:        h.now(),
	})
	writeJSON(w, r, http.StatusAccepted, trackResponse{Accepted: ok})
}

func (h *Handler) ranking(w http.ResponseWriter, r *http.Request) {
	report, err := h.rankings.Ranking(r.Context(), storeID(r))
	if errors.Is(err, analytics.ErrNoData) {
		report = &analytics.Report{StoreID: storeID(r), Ranking: []analytics.RankEntry{}}
		err = nil
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}
