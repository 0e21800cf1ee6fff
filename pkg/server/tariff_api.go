package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/storage"
	"github.com/gridsage/gridsage/pkg/tariff"
	"github.com/gridsage/gridsage/pkg/types"
)

// tariffRes wraps a tariff structure with where it came from, so clients can
// tell a stored tariff from the built-in default.
type tariffRes struct {
	types.TariffStructure
	Source string `json:"source"` // "stored" or "default"
}

// loadTariff returns the user's stored tariff, falling back to the default
// structure when none exists.
func (s *Server) loadTariff(r *http.Request, userID string) (types.TariffStructure, string, error) {
	ts, err := s.storage.GetTariffStructure(r.Context(), userID)
	if errors.Is(err, storage.ErrTariffNotFound) {
		return tariff.DefaultStructure(userID), "default", nil
	}
	if err != nil {
		return types.TariffStructure{}, "", err
	}
	return ts, "stored", nil
}

func (s *Server) handleGetTariff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	ts, source, err := s.loadTariff(r, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get tariff", slog.Any("error", err))
		writeJSONError(w, "failed to get tariff", http.StatusInternalServerError)
		return
	}

	writeJSON(w, tariffRes{TariffStructure: ts, Source: source})
}

func validateTariffPeriods(periods []types.TariffPeriod) error {
	if len(periods) == 0 {
		return errors.New("at least one period is required")
	}
	for i, p := range periods {
		if p.Name == "" {
			return fmt.Errorf("period %d missing name", i)
		}
		if p.PricePerKWH < 0 {
			return fmt.Errorf("period %q price cannot be negative", p.Name)
		}
		for _, d := range p.DaysOfWeek {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("period %q has invalid day of week %d", p.Name, d)
			}
		}
	}
	return nil
}

func (s *Server) handlePutTariff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	var req struct {
		EffectiveDate time.Time            `json:"effectiveDate"`
		Periods       []types.TariffPeriod `json:"periods"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode tariff", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validateTariffPeriods(req.Periods); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ts := types.TariffStructure{
		UserID:        userID,
		EffectiveDate: req.EffectiveDate,
		Periods:       req.Periods,
	}
	if ts.EffectiveDate.IsZero() {
		ts.EffectiveDate = time.Now().UTC()
	}

	// the whole structure is replaced as one document, so the stored period
	// order (and therefore first-match precedence) is exactly what the
	// client sent
	if err := s.storage.SetTariffStructure(ctx, userID, ts); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save tariff", slog.Any("error", err))
		writeJSONError(w, "failed to save tariff", http.StatusInternalServerError)
		return
	}

	writeJSON(w, tariffRes{TariffStructure: ts, Source: "stored"})
}

func (s *Server) handleGetTariffIntervals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	date, err := dateParam(r, "date")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ts, _, err := s.loadTariff(r, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get tariff", slog.Any("error", err))
		writeJSONError(w, "failed to get tariff", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		Date      string                 `json:"date"`
		Intervals []types.TariffInterval `json:"intervals"`
	}{
		Date:      date.Format("2006-01-02"),
		Intervals: tariff.MapToIntervals(ts, date),
	})
}
