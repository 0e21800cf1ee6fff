package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/storage"
	"github.com/gridsage/gridsage/pkg/types"
)

type settingsWithVersion struct {
	types.Settings
	version int
}

// getSettingsWithMigration loads the user's settings, applying (and
// persisting) any pending migrations. A user with no settings document gets
// fully-migrated defaults.
func (s *Server) getSettingsWithMigration(ctx context.Context, userID string) (settingsWithVersion, types.Credentials, error) {
	settings, version, err := s.storage.GetSettings(ctx, userID)
	if errors.Is(err, storage.ErrSettingsNotFound) {
		settings, version = types.Settings{}, 0
	} else if err != nil {
		return settingsWithVersion{}, types.Credentials{}, err
	}
	sv := settingsWithVersion{
		Settings: settings,
		version:  version,
	}

	if version < types.CurrentSettingsVersion {
		log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
		newSettings, changed, err := types.MigrateSettings(settings, version)
		if err != nil {
			// Log error but return settings as is (best effort)
			log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
		} else if changed {
			sv.Settings = newSettings
			sv.version = types.CurrentSettingsVersion
			if err := s.storage.SetSettings(ctx, userID, newSettings, types.CurrentSettingsVersion); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
				// Return migrated settings even if save failed, so current request works with new defaults
			}
		}
	}

	var creds types.Credentials
	if len(sv.EncryptedCredentials) > 0 {
		creds, err = s.decryptCredentials(ctx, sv.EncryptedCredentials)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to decrypt credentials", slog.Any("error", err))
			return settingsWithVersion{}, types.Credentials{}, err
		}
	}

	return sv, creds, nil
}

// SettingsRes is the response type for GetSettings
type SettingsRes struct {
	types.Settings
	HasCredentials map[string]bool `json:"hasCredentials"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	settings, creds, err := s.getSettingsWithMigration(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	// remove encrypted credentials from response
	settings.EncryptedCredentials = nil

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, SettingsRes{
		Settings:       settings.Settings,
		HasCredentials: creds.Has(),
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.getUserID(r)

	var req struct {
		types.Settings
		Credentials *types.Credentials `json:"credentials,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode settings", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	newSettings := req.Settings

	if newSettings.RetentionDays < 1 {
		writeJSONError(w, "retention days must be at least 1", http.StatusBadRequest)
		return
	}
	if newSettings.EstimationLookbackDays < 1 {
		writeJSONError(w, "estimation lookback days must be at least 1", http.StatusBadRequest)
		return
	}
	if _, err := s.providers.Client(newSettings.ConsumptionProvider); err != nil {
		writeJSONError(w, "unknown consumption provider", http.StatusBadRequest)
		return
	}

	// Get existing settings to preserve the stored credentials
	existing, existingCreds, err := s.getSettingsWithMigration(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	newSettings.EncryptedCredentials = existing.EncryptedCredentials

	if req.Credentials != nil {
		if req.Credentials.Provider != nil {
			existingCreds.Provider = req.Credentials.Provider
		}
		encrypted, err := s.encryptCredentials(ctx, existingCreds)
		if err != nil {
			writeJSONError(w, "failed to encrypt credentials", http.StatusInternalServerError)
			return
		}
		newSettings.EncryptedCredentials = encrypted
	}

	if err := s.storage.SetSettings(ctx, userID, newSettings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	newSettings.EncryptedCredentials = nil
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, SettingsRes{
		Settings:       newSettings,
		HasCredentials: existingCreds.Has(),
	})
}
