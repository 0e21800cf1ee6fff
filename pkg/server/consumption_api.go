package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/types"
)

func (s *Server) handleGetConsumption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	date, err := dateParam(r, "date")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	settings, _, err := s.getSettingsWithMigration(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	slots, err := s.consumption.WithGaps(ctx, userID, date, settings.EstimationLookbackDays)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get consumption", slog.Any("error", err))
		writeJSONError(w, "failed to get consumption", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		Date  string                  `json:"date"`
		Slots []types.ConsumptionSlot `json:"slots"`
	}{
		Date:  date.Format("2006-01-02"),
		Slots: slots,
	})
}

// defaultSyncDays is how far back a sync reaches when the request doesn't
// specify a range.
const defaultSyncDays = 7

func (s *Server) handleSyncConsumption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	var req struct {
		Start string `json:"start,omitempty"`
		End   string `json:"end,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode sync request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	today := grid.Midnight(time.Now())
	start := today.AddDate(0, 0, -defaultSyncDays)
	end := today.AddDate(0, 0, 1)
	if req.Start != "" {
		var err error
		if start, err = time.ParseInLocation("2006-01-02", req.Start, time.Local); err != nil {
			writeJSONError(w, "invalid start (want YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
	}
	if req.End != "" {
		var err error
		if end, err = time.ParseInLocation("2006-01-02", req.End, time.Local); err != nil {
			writeJSONError(w, "invalid end (want YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		// the end date is inclusive
		end = end.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		writeJSONError(w, "start must be before end", http.StatusBadRequest)
		return
	}

	settings, creds, err := s.getSettingsWithMigration(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	client, err := s.providers.Client(settings.ConsumptionProvider)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "unknown consumption provider", slog.String("provider", settings.ConsumptionProvider), slog.Any("error", err))
		writeJSONError(w, "unknown consumption provider", http.StatusBadRequest)
		return
	}

	var providerCreds types.ProviderCredentials
	if creds.Provider != nil {
		providerCreds = *creds.Provider
	}

	synced, err := s.consumption.Sync(ctx, client, providerCreds, userID, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "consumption sync failed", slog.Any("error", err))
		writeJSONError(w, "consumption sync failed", http.StatusBadGateway)
		return
	}

	pruned, err := s.consumption.Prune(ctx, userID, settings.RetentionDays)
	if err != nil {
		// the sync itself succeeded, so log and keep going
		log.Ctx(ctx).ErrorContext(ctx, "consumption prune failed", slog.Any("error", err))
	}

	writeJSON(w, struct {
		Synced int `json:"synced"`
		Pruned int `json:"pruned"`
	}{Synced: synced, Pruned: pruned})
}

func (s *Server) handleGetDisaggregation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	start, err := dateParam(r, "start")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := dateParam(r, "end")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// the end date is inclusive
	end = end.AddDate(0, 0, 1)
	if !start.Before(end) {
		writeJSONError(w, "start must be before end", http.StatusBadRequest)
		return
	}

	result, err := s.disagg.ForRange(ctx, userID, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to disaggregate consumption", slog.Any("error", err))
		writeJSONError(w, "failed to disaggregate consumption", http.StatusInternalServerError)
		return
	}

	writeJSON(w, result)
}

func (s *Server) handleGetAdvice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	date, err := dateParam(r, "date")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	adv, err := s.advice.ForDate(ctx, userID, date)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to generate advice", slog.Any("error", err))
		writeJSONError(w, "failed to generate advice", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	writeJSON(w, adv)
}
