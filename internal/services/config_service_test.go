package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/utils"
)

func setupConfigTest(t *testing.T) (*mongo.Database, *redis.Client) {
	database := utils.SetupTestDB(t, "testdb_config_service", configCollection, endpointLimitsCollection)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return database, rdb
}

func TestConfigService_DefaultSettings(t *testing.T) {
	database, rdb := setupConfigTest(t)
	svc := NewConfigService(database, rdb)

	assert.Equal(t, models.DefaultSettings(), svc.GetSettings(context.Background()))
}

func TestConfigService_ParsesStoredOptions(t *testing.T) {
	database, rdb := setupConfigTest(t)
	ctx := context.Background()

	_, err := database.Collection(configCollection).InsertMany(ctx, []interface{}{
		ConfigEntry{Key: models.OptionEnableProductEnquiry, Value: "yes"},
		ConfigEntry{Key: models.OptionSendEmailToAdmin, Value: true},
		ConfigEntry{Key: models.OptionEnableCaptcha, Value: "no"},
		ConfigEntry{Key: models.OptionButtonLabel, Value: "Ask about this"},
		ConfigEntry{Key: models.OptionEmailSubject, Value: 42},
	})
	require.NoError(t, err)

	settings := NewConfigService(database, rdb).GetSettings(ctx)
	assert.True(t, settings.Enabled)
	assert.True(t, settings.SendEmailToAdmin)
	assert.False(t, settings.CaptchaEnabled)
	assert.Equal(t, "Ask about this", settings.ButtonLabel)
	assert.Equal(t, models.DefaultEmailSubject, settings.EmailSubject)
}

func TestConfigService_SaveSettingsRoundTrip(t *testing.T) {
	database, rdb := setupConfigTest(t)
	ctx := context.Background()
	svc := NewConfigService(database, rdb)

	want := models.DefaultSettings()
	want.Enabled = true
	want.SendEmailToProductAuthor = true
	want.ExtraEmailRecipients = "a@example.com\nb@example.com"
	require.NoError(t, svc.SaveSettings(ctx, want))

	assert.Equal(t, want, svc.GetSettings(ctx))

	var entry ConfigEntry
	require.NoError(t, database.Collection(configCollection).FindOne(ctx, bson.M{"key": models.OptionEnableProductEnquiry}).Decode(&entry))
	assert.Equal(t, "yes", entry.Value)

	assert.Equal(t, want, NewConfigService(database, rdb).GetSettings(ctx))
}

func TestConfigService_ReloadsOnNotification(t *testing.T) {
	database, rdb := setupConfigTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := NewConfigService(database, rdb)
	go func() { _ = reader.SubscribeToChanges(ctx) }()

	writer := NewConfigService(database, rdb)
	require.Eventually(t, func() bool {
		_ = writer.SetConfigValue(ctx, models.OptionButtonLabel, "Enquire", false)
		return reader.GetString(ctx, models.OptionButtonLabel, "") == "Enquire"
	}, 5*time.Second, 100*time.Millisecond)
}

func TestConfigService_EndpointLimits(t *testing.T) {
	database, rdb := setupConfigTest(t)
	ctx := context.Background()

	_, err := database.Collection(endpointLimitsCollection).InsertOne(ctx, models.EndpointLimits{
		Endpoint: "submit_enquiry",
		Soft:     &models.RateLimitConfig{BucketSize: 3, TokenRefillRate: 1},
	})
	require.NoError(t, err)

	svc := NewConfigService(database, rdb)
	limits := svc.GetEndpointLimits(ctx, "submit_enquiry")
	require.NotNil(t, limits)
	assert.Equal(t, 3, limits.Soft.BucketSize)
	assert.Nil(t, limits.Hard)
	assert.Nil(t, svc.GetEndpointLimits(ctx, "add_to_cart"))
}
