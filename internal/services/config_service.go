package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/productenquiry/internal/models"
)

// IConfigService gives access to runtime options stored in MongoDB.
type IConfigService interface {
	Load(ctx context.Context) error
	SubscribeToChanges(ctx context.Context) error
	Get(ctx context.Context, key string) (interface{}, error)
	GetString(ctx context.Context, key string, defaultValue string) string
	GetBool(ctx context.Context, key string, defaultValue bool) bool
	SetConfigValue(ctx context.Context, key string, value interface{}, isPublic bool) error
	GetSettings(ctx context.Context) models.Settings
	SaveSettings(ctx context.Context, settings models.Settings) error
	GetEndpointLimits(ctx context.Context, endpoint string) *models.EndpointLimits
}

const (
	configCollection         = "configuration"
	endpointLimitsCollection = "endpoint_limits"
	configUpdateChannel      = "config_updates"
)

// ConfigEntry represents a document in the configuration collection.
type ConfigEntry struct {
	Key    string      `bson:"key"`
	Value  interface{} `bson:"value"`
	Public bool        `bson:"public"`
}

type configService struct {
	db     *mongo.Database
	rdb    *redis.Client
	cache  map[string]interface{}
	limits map[string]*models.EndpointLimits
	mutex  sync.RWMutex
}

// NewConfigService creates a config service and performs the initial load.
// Call SubscribeToChanges to keep the cache in sync across processes.
func NewConfigService(db *mongo.Database, rdb *redis.Client) IConfigService {
	s := &configService{
		db:     db,
		rdb:    rdb,
		cache:  make(map[string]interface{}),
		limits: make(map[string]*models.EndpointLimits),
	}
	if err := s.Load(context.Background()); err != nil {
		log.Printf("WARNING: Failed to load initial config from DB: %v. Using defaults", err)
	}
	return s
}

// Load replaces the cached options and endpoint limits with the DB contents.
func (s *configService) Load(ctx context.Context) error {
	cursor, err := s.db.Collection(configCollection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to query config collection: %w", err)
	}
	defer cursor.Close(ctx)

	newCache := make(map[string]interface{})
	for cursor.Next(ctx) {
		var entry ConfigEntry
		if err := cursor.Decode(&entry); err != nil {
			log.Printf("WARNING: Failed to decode config entry during load: %v", err)
			continue
		}
		newCache[entry.Key] = entry.Value
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("error iterating config cursor: %w", err)
	}

	newLimits := make(map[string]*models.EndpointLimits)
	limitsCursor, err := s.db.Collection(endpointLimitsCollection).Find(ctx, bson.M{})
	if err != nil {
		log.Printf("ERROR: Querying endpoint limits: %v", err)
	} else {
		defer limitsCursor.Close(ctx)
		for limitsCursor.Next(ctx) {
			var entry models.EndpointLimits
			if err := limitsCursor.Decode(&entry); err != nil {
				log.Printf("WARNING: Failed to decode endpoint limits during load: %v", err)
				continue
			}
			newLimits[entry.Endpoint] = &entry
		}
	}

	s.mutex.Lock()
	s.cache = newCache
	s.limits = newLimits
	s.mutex.Unlock()

	log.Printf("Loaded %d config entries and %d endpoint limits into cache from DB.", len(newCache), len(newLimits))
	return nil
}

// Get returns a cached option value.
func (s *configService) Get(ctx context.Context, key string) (interface{}, error) {
	s.mutex.RLock()
	val, exists := s.cache[key]
	s.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("config key '%s' not found", key)
	}
	return val, nil
}

func (s *configService) GetString(ctx context.Context, key string, defaultValue string) string {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	log.Printf("WARNING: Config key '%s' is not a string (%T), using default.", key, val)
	return defaultValue
}

// GetBool accepts both real booleans and "yes"/"no" strings.
func (s *configService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	return models.ParseYesNo(val, defaultValue)
}

// GetSettings assembles the typed settings from cached options. Missing options keep their defaults.
func (s *configService) GetSettings(ctx context.Context) models.Settings {
	def := models.DefaultSettings()
	return models.Settings{
		Enabled:                  s.GetBool(ctx, models.OptionEnableProductEnquiry, def.Enabled),
		ButtonOnArchive:          s.GetBool(ctx, models.OptionButtonOnArchive, def.ButtonOnArchive),
		ButtonOnSingleProduct:    s.GetBool(ctx, models.OptionButtonOnSingleProduct, def.ButtonOnSingleProduct),
		ButtonLabel:              s.GetString(ctx, models.OptionButtonLabel, def.ButtonLabel),
		FloatingButtonEnabled:    s.GetBool(ctx, models.OptionEnableFloatingButton, def.FloatingButtonEnabled),
		FloatingButtonIcon:       s.GetString(ctx, models.OptionFloatingButtonIcon, def.FloatingButtonIcon),
		EnquiryPage:              s.GetString(ctx, models.OptionEnquiryPage, def.EnquiryPage),
		EmailSubject:             s.GetString(ctx, models.OptionEmailSubject, def.EmailSubject),
		ExtraEmailRecipients:     s.GetString(ctx, models.OptionExtraEmailRecipients, def.ExtraEmailRecipients),
		SendEmailToAdmin:         s.GetBool(ctx, models.OptionSendEmailToAdmin, def.SendEmailToAdmin),
		SendEmailToProductAuthor: s.GetBool(ctx, models.OptionSendEmailToProductAuthor, def.SendEmailToProductAuthor),
		PrivacyPolicyMessage:     s.GetString(ctx, models.OptionPrivacyPolicyMessage, def.PrivacyPolicyMessage),
		CaptchaEnabled:           s.GetBool(ctx, models.OptionEnableCaptcha, def.CaptchaEnabled),
	}
}

// SaveSettings writes every option and reloads the local cache.
func (s *configService) SaveSettings(ctx context.Context, settings models.Settings) error {
	for key, value := range settings.Options() {
		if err := s.SetConfigValue(ctx, key, value, false); err != nil {
			return err
		}
	}
	return s.Load(ctx)
}

// GetEndpointLimits returns the override for an endpoint, or nil to use the defaults.
func (s *configService) GetEndpointLimits(ctx context.Context, endpoint string) *models.EndpointLimits {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.limits[endpoint]
}

// SubscribeToChanges reloads the cache whenever another process publishes an update.
// It blocks until ctx is cancelled or the subscription fails.
func (s *configService) SubscribeToChanges(ctx context.Context) error {
	if s.rdb == nil {
		log.Println("Redis client not configured, cannot subscribe to config changes.")
		return nil
	}

	pubsub := s.rdb.Subscribe(ctx, configUpdateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to receive confirmation from Redis Pub/Sub subscription: %w", err)
	}

	ch := pubsub.Channel()
	log.Println("Subscribed to Redis channel for config updates:", configUpdateChannel)

	for {
		select {
		case <-ctx.Done():
			log.Println("Config Pub/Sub listener stopped.")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			log.Printf("DEBUG: Config update notification on %s: %s", msg.Channel, msg.Payload)
			if err := s.Load(ctx); err != nil {
				log.Printf("ERROR: Reloading config from DB after notification: %v", err)
			}
		}
	}
}

// SetConfigValue upserts one option and notifies other processes.
func (s *configService) SetConfigValue(ctx context.Context, key string, value interface{}, isPublic bool) error {
	filter := bson.M{"key": key}
	update := bson.M{"$set": bson.M{"key": key, "value": value, "public": isPublic}}
	if _, err := s.db.Collection(configCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert config key '%s' in DB: %w", key, err)
	}

	s.mutex.Lock()
	s.cache[key] = value
	s.mutex.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, configUpdateChannel, key).Err(); err != nil {
			log.Printf("WARNING: Failed to publish config update notification for key '%s': %v", key, err)
		}
	}
	return nil
}
