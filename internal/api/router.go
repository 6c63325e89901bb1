package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"greendrake/productenquiry/internal/api/handlers"
	"greendrake/productenquiry/internal/api/middleware"
	"greendrake/productenquiry/internal/auth"
	"greendrake/productenquiry/internal/captcha"
	"greendrake/productenquiry/internal/cart"
	"greendrake/productenquiry/internal/config"
	"greendrake/productenquiry/internal/email"
	"greendrake/productenquiry/internal/render"
	"greendrake/productenquiry/internal/services"
	"greendrake/productenquiry/internal/session"
	"greendrake/productenquiry/internal/storage"
)

// SetupRouter configures the storefront and admin API. The returned rate limiter
// keeps per-client state that the caller sweeps with RunCleanup.
// exportStore may be nil when object storage is not configured.
func SetupRouter(
	cfg *config.Config,
	db *mongo.Database,
	rdb *redis.Client,
	queue services.INotificationQueue,
	configSvc services.IConfigService,
	exportStore storage.IS3Storage,
	cartClient cart.IClient,
) (*gin.Engine, *middleware.RateLimiterMiddleware) {
	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)
	nonces := auth.NewNonceManager(cfg.JwtSecret, cfg.NonceTTL)
	captchas := captcha.NewChallenger(sessions, cfg.SessionTTL)

	catalogService := services.NewCatalogService(db)
	enquiryListService := services.NewEnquiryListService(sessions)
	enquiryService := services.NewEnquiryService(db)
	recipientResolver := services.NewRecipientResolver(catalogService, cfg.AdminEmail)
	submissionService := services.NewSubmissionService(
		nonces, enquiryListService, captchas, configSvc, recipientResolver, enquiryService, queue)
	exportService := services.NewExportService(enquiryService, catalogService, exportStore, cfg.ExportURLTTL)

	renderer := render.NewRenderer(catalogService, cfg.ShopURL, cfg.CurrencySymbol)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, configSvc)

	// Order matters: the limiter keys clients by session.
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigin))
	r.Use(middleware.SessionMiddleware(cfg.SessionCookieName, int(cfg.SessionTTL.Seconds()), cfg.SecureCookies))
	r.Use(rateLimiter.Limit())

	ajaxHandler := handlers.NewAjaxHandler(nonces, enquiryListService, catalogService, configSvc,
		captchas, submissionService, cartClient, renderer)
	storefrontHandler := handlers.NewStorefrontHandler(nonces, enquiryListService, configSvc, captchas, renderer)
	adminHandler := handlers.NewRestAdminHandler(cfg, catalogService, enquiryService, configSvc, exportService)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Storefront
		v1.GET("/enquiry", storefrontHandler.GetEnquiryBlock)
		v1.GET("/nonce", storefrontHandler.GetNonce)

		ajax := v1.Group("/ajax")
		ajax.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret))
		{
			ajax.POST("", ajaxHandler.HandleAction)
			ajax.POST("/:action", ajaxHandler.HandleAction)
		}

		// Admin
		v1.POST("/admin/login", adminHandler.Login)
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.GET("/enquiries", adminHandler.ListEnquiries)
			adminRequired.GET("/enquiries/:id", adminHandler.GetEnquiry)
			adminRequired.POST("/enquiries/export", adminHandler.ExportEnquiries)
			adminRequired.GET("/stats", adminHandler.GetStats)
			adminRequired.GET("/settings", adminHandler.GetSettings)
			adminRequired.PUT("/settings", adminHandler.UpdateSettings)
		}
	}

	return r, rateLimiter
}

// SetupServiceRouter configures the internal service API: shutdown, captured test
// emails and Prometheus metrics.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // [templateID, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
				return
			}
			getTestEmail(c, rdb, email.MockEmailKey(args[1], args[0]))
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail polls Redis briefly for a captured email and deletes it once read.
func getTestEmail(c *gin.Context, rdb *redis.Client, key string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var raw string
	var err error
	for i := 0; i < 10; i++ {
		raw, err = rdb.Get(ctx, key).Result()
		if err == nil {
			rdb.Del(ctx, key)
			break
		}
		if err != redis.Nil {
			log.Printf("Service API: Error getting key %s from Redis: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", key)})
		return
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		log.Printf("Service API: Error unmarshalling email data from key %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
