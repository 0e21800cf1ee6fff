package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 3

// Settings represents per-user configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// ConsumptionProvider selects the upstream consumption source.
	ConsumptionProvider string `json:"consumptionProvider"`

	// RetentionDays is how long consumption readings are kept before pruning.
	RetentionDays int `json:"retentionDays"`

	// EstimationLookbackDays is how many trailing days of readings feed the
	// future-date consumption estimate.
	EstimationLookbackDays int `json:"estimationLookbackDays"`

	// NaiveEVChargingStart is the assumed plug-in time used as the baseline
	// when estimating EV charging-shift savings.
	NaiveEVChargingStart TimeOfDay `json:"naiveEVChargingStart"`

	// Credentials for the upstream provider (encrypted)
	EncryptedCredentials []byte `json:"encryptedCredentials,omitempty"`
}

// Credentials for external systems
type Credentials struct {
	Provider *ProviderCredentials `json:"provider,omitempty"`
}

// ProviderCredentials authenticate against the upstream consumption provider.
type ProviderCredentials struct {
	AccountID string `json:"accountID"`
	APIKey    string `json:"apiKey,omitempty"`
}

// Has returns which credential sets are present, for API responses that must
// not echo the credentials themselves.
func (c Credentials) Has() map[string]bool {
	return map[string]bool{
		"provider": c.Provider != nil,
	}
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.RetentionDays == 0 {
				s.RetentionDays = 30
				migrated = true
			}
			if s.EstimationLookbackDays == 0 {
				s.EstimationLookbackDays = 7
				migrated = true
			}
		case 2:
			// version 2: default the consumption provider
			if s.ConsumptionProvider == "" {
				s.ConsumptionProvider = "mock"
				migrated = true
			}
		case 3:
			// version 3: add naive EV charging baseline
			if s.NaiveEVChargingStart == 0 {
				s.NaiveEVChargingStart = MustTimeOfDay("18:00")
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
