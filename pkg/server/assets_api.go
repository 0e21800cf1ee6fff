package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/storage"
	"github.com/gridsage/gridsage/pkg/types"
)

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	vehicles, err := s.storage.GetVehicles(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list vehicles", slog.Any("error", err))
		writeJSONError(w, "failed to list vehicles", http.StatusInternalServerError)
		return
	}
	if vehicles == nil {
		vehicles = []types.ElectricVehicle{}
	}
	writeJSON(w, vehicles)
}

func (s *Server) handleUpsertVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	var ev types.ElectricVehicle
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode vehicle", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if ev.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if ev.BatteryCapacityKWH <= 0 {
		writeJSONError(w, "batteryCapacityKWH must be positive", http.StatusBadRequest)
		return
	}
	if ev.ChargeRateKW <= 0 {
		writeJSONError(w, "chargeRateKW must be positive", http.StatusBadRequest)
		return
	}
	if ev.CurrentChargePercent < 0 || ev.CurrentChargePercent > 100 {
		writeJSONError(w, "currentChargePercent must be between 0 and 100", http.StatusBadRequest)
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	if err := s.storage.UpsertVehicle(ctx, userID, ev); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save vehicle", slog.Any("error", err))
		writeJSONError(w, "failed to save vehicle", http.StatusInternalServerError)
		return
	}
	writeJSON(w, ev)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	vehicleID := r.PathValue("id")
	if err := s.storage.DeleteVehicle(ctx, userID, vehicleID); err != nil {
		if errors.Is(err, storage.ErrVehicleNotFound) {
			writeJSONError(w, "vehicle not found", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to delete vehicle", slog.Any("error", err))
		writeJSONError(w, "failed to delete vehicle", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBatteries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	batteries, err := s.storage.GetBatteries(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list batteries", slog.Any("error", err))
		writeJSONError(w, "failed to list batteries", http.StatusInternalServerError)
		return
	}
	if batteries == nil {
		batteries = []types.HomeBattery{}
	}
	writeJSON(w, batteries)
}

func (s *Server) handleUpsertBattery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	var b types.HomeBattery
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode battery", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if b.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if b.CapacityKWH <= 0 {
		writeJSONError(w, "capacityKWH must be positive", http.StatusBadRequest)
		return
	}
	if b.MaxPowerKW <= 0 {
		writeJSONError(w, "maxPowerKW must be positive", http.StatusBadRequest)
		return
	}
	if b.RoundTripEfficiency < 0 || b.RoundTripEfficiency > 1 {
		writeJSONError(w, "roundTripEfficiency must be between 0 and 1", http.StatusBadRequest)
		return
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	if err := s.storage.UpsertBattery(ctx, userID, b); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save battery", slog.Any("error", err))
		writeJSONError(w, "failed to save battery", http.StatusInternalServerError)
		return
	}
	writeJSON(w, b)
}

func (s *Server) handleDeleteBattery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	batteryID := r.PathValue("id")
	if err := s.storage.DeleteBattery(ctx, userID, batteryID); err != nil {
		if errors.Is(err, storage.ErrBatteryNotFound) {
			writeJSONError(w, "battery not found", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to delete battery", slog.Any("error", err))
		writeJSONError(w, "failed to delete battery", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
