package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/solar"
	"github.com/gridsage/gridsage/pkg/storage"
	"github.com/gridsage/gridsage/pkg/types"
)

func (s *Server) handleGetSolarConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	cfg, err := s.storage.GetSolarConfig(ctx, userID)
	if errors.Is(err, storage.ErrSolarConfigNotFound) {
		// an unconfigured user simply has no solar
		cfg = types.SolarSystemConfig{UserID: userID}
	} else if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get solar config", slog.Any("error", err))
		writeJSONError(w, "failed to get solar config", http.StatusInternalServerError)
		return
	}

	writeJSON(w, cfg)
}

var validOrientations = map[types.Orientation]bool{
	types.OrientationN: true, types.OrientationNE: true,
	types.OrientationE: true, types.OrientationSE: true,
	types.OrientationS: true, types.OrientationSW: true,
	types.OrientationW: true, types.OrientationNW: true,
}

func (s *Server) handlePutSolarConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	var cfg types.SolarSystemConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode solar config", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cfg.UserID = userID

	if cfg.HasSolar {
		if cfg.SystemSizeKW == nil || *cfg.SystemSizeKW <= 0 {
			writeJSONError(w, "systemSizeKW must be positive", http.StatusBadRequest)
			return
		}
		if cfg.TiltDegrees == nil || *cfg.TiltDegrees < 0 || *cfg.TiltDegrees > 90 {
			writeJSONError(w, "tiltDegrees must be between 0 and 90", http.StatusBadRequest)
			return
		}
		if cfg.Orientation == nil || !validOrientations[*cfg.Orientation] {
			writeJSONError(w, "orientation must be one of N, NE, E, SE, S, SW, W, NW", http.StatusBadRequest)
			return
		}
	} else {
		// no solar: drop any stale system fields
		cfg.SystemSizeKW = nil
		cfg.TiltDegrees = nil
		cfg.Orientation = nil
	}

	if err := s.storage.SetSolarConfig(ctx, userID, cfg); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save solar config", slog.Any("error", err))
		writeJSONError(w, "failed to save solar config", http.StatusInternalServerError)
		return
	}

	writeJSON(w, cfg)
}

func (s *Server) handleGetSolarForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	cfg, err := s.storage.GetSolarConfig(ctx, userID)
	if errors.Is(err, storage.ErrSolarConfigNotFound) {
		cfg = types.SolarSystemConfig{UserID: userID}
	} else if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get solar config", slog.Any("error", err))
		writeJSONError(w, "failed to get solar config", http.StatusInternalServerError)
		return
	}

	fc := solar.GenerateDailyForecasts(cfg, time.Now())
	writeJSON(w, struct {
		HasSolar      bool                `json:"hasSolar"`
		Today         types.SolarForecast `json:"today"`
		Tomorrow      types.SolarForecast `json:"tomorrow"`
		TodayTotal    float64             `json:"todayTotalKWH"`
		TomorrowTotal float64             `json:"tomorrowTotalKWH"`
	}{
		HasSolar:      cfg.Complete(),
		Today:         fc.Today,
		Tomorrow:      fc.Tomorrow,
		TodayTotal:    solar.TotalGeneration(fc.Today),
		TomorrowTotal: solar.TotalGeneration(fc.Tomorrow),
	})
}
