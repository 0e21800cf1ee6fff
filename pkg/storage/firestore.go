package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/types"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. All documents store their payload as a JSON string in a "json"
// field for portability.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) userCollection(userID, name string) (*firestore.CollectionRef, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}
	return f.client.Collection("users").Doc(userID).Collection(name), nil
}

// unmarshalDoc decodes the "json" field of a document into v.
func unmarshalDoc(doc *firestore.DocumentSnapshot, v interface{}) error {
	val, err := doc.DataAt("json")
	if err != nil {
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return nil
}

// GetSettings retrieves the dynamic configuration from the "config/settings"
// document. The stored version accompanies the settings so callers can run
// migrations.
func (f *FirestoreProvider) GetSettings(ctx context.Context, userID string) (types.Settings, int, error) {
	coll, err := f.userCollection(userID, "config")
	if err != nil {
		return types.Settings{}, 0, err
	}
	doc, err := coll.Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Settings{}, 0, fmt.Errorf("%w: %s", ErrSettingsNotFound, userID)
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	var s types.Settings
	if err := unmarshalDoc(doc, &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "bad settings doc", slog.String("userID", userID), slog.Any("err", err))
		return types.Settings{}, 0, err
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the "config/settings"
// document.
func (f *FirestoreProvider) SetSettings(ctx context.Context, userID string, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	coll, err := f.userCollection(userID, "config")
	if err != nil {
		return err
	}
	_, err = coll.Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetTariffStructure retrieves the user's tariff from the "config/tariff"
// document. The whole structure lives in one document so replacing it is
// atomic.
func (f *FirestoreProvider) GetTariffStructure(ctx context.Context, userID string) (types.TariffStructure, error) {
	coll, err := f.userCollection(userID, "config")
	if err != nil {
		return types.TariffStructure{}, err
	}
	doc, err := coll.Doc("tariff").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.TariffStructure{}, fmt.Errorf("%w: %s", ErrTariffNotFound, userID)
		}
		return types.TariffStructure{}, fmt.Errorf("failed to fetch tariff doc: %w", err)
	}

	var ts types.TariffStructure
	if err := unmarshalDoc(doc, &ts); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "bad tariff doc", slog.String("userID", userID), slog.Any("err", err))
		return types.TariffStructure{}, err
	}
	return ts, nil
}

// SetTariffStructure replaces the user's tariff structure.
func (f *FirestoreProvider) SetTariffStructure(ctx context.Context, userID string, ts types.TariffStructure) error {
	jsonBytes, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("failed to marshal tariff structure: %w", err)
	}

	coll, err := f.userCollection(userID, "config")
	if err != nil {
		return err
	}
	_, err = coll.Doc("tariff").Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to save tariff structure: %w", err)
	}
	return nil
}

// GetSolarConfig retrieves the user's solar system config from the
// "config/solar" document.
func (f *FirestoreProvider) GetSolarConfig(ctx context.Context, userID string) (types.SolarSystemConfig, error) {
	coll, err := f.userCollection(userID, "config")
	if err != nil {
		return types.SolarSystemConfig{}, err
	}
	doc, err := coll.Doc("solar").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.SolarSystemConfig{}, fmt.Errorf("%w: %s", ErrSolarConfigNotFound, userID)
		}
		return types.SolarSystemConfig{}, fmt.Errorf("failed to fetch solar config doc: %w", err)
	}

	var cfg types.SolarSystemConfig
	if err := unmarshalDoc(doc, &cfg); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "bad solar config doc", slog.String("userID", userID), slog.Any("err", err))
		return types.SolarSystemConfig{}, err
	}
	return cfg, nil
}

// SetSolarConfig replaces the user's solar system config.
func (f *FirestoreProvider) SetSolarConfig(ctx context.Context, userID string, cfg types.SolarSystemConfig) error {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal solar config: %w", err)
	}

	coll, err := f.userCollection(userID, "config")
	if err != nil {
		return err
	}
	_, err = coll.Doc("solar").Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to save solar config: %w", err)
	}
	return nil
}

// GetConsumption retrieves consumption readings within [start, end).
// Document IDs are RFC3339 timestamps so range queries run on the document
// ID index.
func (f *FirestoreProvider) GetConsumption(ctx context.Context, userID string, start, end time.Time) ([]types.ConsumptionDataPoint, error) {
	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	coll, err := f.userCollection(userID, "consumption")
	if err != nil {
		return nil, err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var points []types.ConsumptionDataPoint
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating consumption: %w", err)
		}

		var p types.ConsumptionDataPoint
		if err := unmarshalDoc(doc, &p); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "bad consumption doc", slog.String("docID", doc.Ref.ID), slog.String("userID", userID), slog.Any("err", err))
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// UpsertConsumption writes readings in batches. Re-syncing the same range
// overwrites existing documents rather than duplicating them.
func (f *FirestoreProvider) UpsertConsumption(ctx context.Context, userID string, points []types.ConsumptionDataPoint) error {
	coll, err := f.userCollection(userID, "consumption")
	if err != nil {
		return err
	}

	bw := f.client.BulkWriter(ctx)
	for _, p := range points {
		jsonBytes, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal consumption point: %w", err)
		}
		docID := p.Timestamp.UTC().Format(time.RFC3339)
		if _, err := bw.Set(coll.Doc(docID), map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": p.Timestamp,
		}); err != nil {
			return fmt.Errorf("failed to queue consumption write: %w", err)
		}
	}
	bw.End()
	return nil
}

// DeleteConsumptionBefore removes readings older than cutoff and returns how
// many were deleted.
func (f *FirestoreProvider) DeleteConsumptionBefore(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	coll, err := f.userCollection(userID, "consumption")
	if err != nil {
		return 0, err
	}
	cutoffDocID := cutoff.UTC().Format(time.RFC3339)
	iter := coll.
		Where(firestore.DocumentID, "<", coll.Doc(cutoffDocID)).
		Documents(ctx)
	defer iter.Stop()

	bw := f.client.BulkWriter(ctx)
	var deleted int
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("error iterating consumption for delete: %w", err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return deleted, fmt.Errorf("failed to queue consumption delete: %w", err)
		}
		deleted++
	}
	bw.End()
	return deleted, nil
}

// GetVehicles retrieves all of a user's electric vehicles.
func (f *FirestoreProvider) GetVehicles(ctx context.Context, userID string) ([]types.ElectricVehicle, error) {
	coll, err := f.userCollection(userID, "vehicles")
	if err != nil {
		return nil, err
	}
	iter := coll.Documents(ctx)
	defer iter.Stop()

	var vehicles []types.ElectricVehicle
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating vehicles: %w", err)
		}

		var ev types.ElectricVehicle
		if err := unmarshalDoc(doc, &ev); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "bad vehicle doc", slog.String("docID", doc.Ref.ID), slog.String("userID", userID), slog.Any("err", err))
			// Skip malformed documents
			continue
		}
		vehicles = append(vehicles, ev)
	}
	return vehicles, nil
}

// UpsertVehicle adds or updates a vehicle document.
func (f *FirestoreProvider) UpsertVehicle(ctx context.Context, userID string, ev types.ElectricVehicle) error {
	if ev.ID == "" {
		return fmt.Errorf("vehicle ID cannot be empty")
	}
	jsonBytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle %s: %w", ev.ID, err)
	}

	coll, err := f.userCollection(userID, "vehicles")
	if err != nil {
		return err
	}
	_, err = coll.Doc(ev.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle %s: %w", ev.ID, err)
	}
	return nil
}

// DeleteVehicle removes a vehicle document.
func (f *FirestoreProvider) DeleteVehicle(ctx context.Context, userID, vehicleID string) error {
	coll, err := f.userCollection(userID, "vehicles")
	if err != nil {
		return err
	}
	if _, err := coll.Doc(vehicleID).Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrVehicleNotFound, vehicleID)
		}
		return fmt.Errorf("failed to fetch vehicle %s: %w", vehicleID, err)
	}
	if _, err := coll.Doc(vehicleID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete vehicle %s: %w", vehicleID, err)
	}
	return nil
}

// GetBatteries retrieves all of a user's home batteries.
func (f *FirestoreProvider) GetBatteries(ctx context.Context, userID string) ([]types.HomeBattery, error) {
	coll, err := f.userCollection(userID, "batteries")
	if err != nil {
		return nil, err
	}
	iter := coll.Documents(ctx)
	defer iter.Stop()

	var batteries []types.HomeBattery
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating batteries: %w", err)
		}

		var b types.HomeBattery
		if err := unmarshalDoc(doc, &b); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "bad battery doc", slog.String("docID", doc.Ref.ID), slog.String("userID", userID), slog.Any("err", err))
			continue
		}
		batteries = append(batteries, b)
	}
	return batteries, nil
}

// UpsertBattery adds or updates a battery document.
func (f *FirestoreProvider) UpsertBattery(ctx context.Context, userID string, b types.HomeBattery) error {
	if b.ID == "" {
		return fmt.Errorf("battery ID cannot be empty")
	}
	jsonBytes, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal battery %s: %w", b.ID, err)
	}

	coll, err := f.userCollection(userID, "batteries")
	if err != nil {
		return err
	}
	_, err = coll.Doc(b.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert battery %s: %w", b.ID, err)
	}
	return nil
}

// DeleteBattery removes a battery document.
func (f *FirestoreProvider) DeleteBattery(ctx context.Context, userID, batteryID string) error {
	coll, err := f.userCollection(userID, "batteries")
	if err != nil {
		return err
	}
	if _, err := coll.Doc(batteryID).Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrBatteryNotFound, batteryID)
		}
		return fmt.Errorf("failed to fetch battery %s: %w", batteryID, err)
	}
	if _, err := coll.Doc(batteryID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete battery %s: %w", batteryID, err)
	}
	return nil
}

// GetUser retrieves a user from the "users" collection.
func (f *FirestoreProvider) GetUser(ctx context.Context, userID string) (types.User, error) {
	doc, err := f.client.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return types.User{}, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	var user types.User
	if err := unmarshalDoc(doc, &user); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "bad user doc", slog.String("userID", userID), slog.Any("err", err))
		return types.User{}, err
	}
	return user, nil
}

// CreateUser creates a new user document in the "users" collection.
func (f *FirestoreProvider) CreateUser(ctx context.Context, user types.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	_, err = f.client.Collection("users").Doc(user.ID).Create(ctx, map[string]interface{}{
		"json": string(userJSON),
	})
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

// UpdateUser updates an existing user document in the "users" collection.
func (f *FirestoreProvider) UpdateUser(ctx context.Context, user types.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	_, err = f.client.Collection("users").Doc(user.ID).Set(ctx, map[string]interface{}{
		"json": string(userJSON),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}
