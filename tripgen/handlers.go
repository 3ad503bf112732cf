package tripgen

import (
	"encoding/json"
	"errors"
	"net/http"

	"voyago/credits"
	"voyago/models"
	"voyago/utils"

	"github.com/julienschmidt/httprouter"
)

// Handlers is the HTTP surface over the orchestrator.
type Handlers struct {
	Orc *Orchestrator
}

func NewHandlers(orc *Orchestrator) *Handlers {
	return &Handlers{Orc: orc}
}

// POST /api/trips/:id/generate
func (h *Handlers) StartGeneration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	tripID := ps.ByName("id")

	// Ownership check before any credit is spent.
	trip, err := h.Orc.store.Fetch(r.Context(), tripID)
	if err != nil {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	if trip.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	session, err := h.Orc.Start(r.Context(), userID, tripID)
	switch {
	case errors.Is(err, ErrAlreadyGenerating):
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{
			"error": "generation already in progress",
			"code":  "already_generating",
		})
		return
	case errors.Is(err, credits.ErrInsufficientCredit):
		// Distinct signal: the client routes this to the purchase flow.
		utils.RespondWithJSON(w, http.StatusPaymentRequired, utils.M{
			"error": "not enough credits",
			"code":  "insufficient_credit",
		})
		return
	case errors.Is(err, credits.ErrLedgerBusy):
		http.Error(w, "please retry", http.StatusTooManyRequests)
		return
	case err != nil:
		http.Error(w, "Failed to start generation", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusAccepted, session.Snapshot())
}

// POST /api/trips/:id/generate/events
func (h *Handlers) SelectEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("id")

	var body struct {
		EventIDs []string `json:"event_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.Orc.ContinueWithSelectedEvents(tripID, body.EventIDs); err != nil {
		writeSessionError(w, err)
		return
	}

	snap, _ := h.Orc.Snapshot(tripID)
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

// POST /api/trips/:id/generate/skip-events
func (h *Handlers) SkipEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("id")

	if err := h.Orc.SkipEvents(tripID); err != nil {
		writeSessionError(w, err)
		return
	}

	snap, _ := h.Orc.Snapshot(tripID)
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

// POST /api/trips/:id/generate/cancel
func (h *Handlers) CancelGeneration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("id")

	if err := h.Orc.Cancel(tripID); err != nil {
		writeSessionError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "cancellation requested"})
}

// POST /api/trips/:id/generate/retry
func (h *Handlers) RetryGeneration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("id")

	session, err := h.Orc.Retry(r.Context(), tripID)
	switch {
	case errors.Is(err, credits.ErrInsufficientCredit):
		utils.RespondWithJSON(w, http.StatusPaymentRequired, utils.M{
			"error": "not enough credits",
			"code":  "insufficient_credit",
		})
		return
	case err != nil:
		writeSessionError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusAccepted, session.Snapshot())
}

// GET /api/trips/:id/generate/status
// Falls back to the stored trip status when no session is live; the
// stored status is the source of truth across restarts.
func (h *Handlers) GenerationStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("id")

	if snap, err := h.Orc.Snapshot(tripID); err == nil {
		utils.RespondWithJSON(w, http.StatusOK, snap)
		return
	}

	trip, err := h.Orc.store.Fetch(r.Context(), tripID)
	if err != nil {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}

	snap := models.GenerationSnapshot{
		TripID:     tripID,
		IsComplete: trip.Status == models.TripStatusCompleted,
		HasFailed:  trip.Status == models.TripStatusFailed,
	}
	if snap.IsComplete {
		snap.Progress = 1
		snap.CompletedTrip = trip
		snap.GeneratedDays = trip.Days
	}
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoSession):
		utils.RespondWithError(w, http.StatusNotFound, "no generation session for this trip")
	case errors.Is(err, ErrNotWaiting):
		utils.RespondWithError(w, http.StatusConflict, "session is not waiting for event selection")
	case errors.Is(err, ErrNotFailed):
		utils.RespondWithError(w, http.StatusConflict, "session has not failed")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "generation error")
	}
}
