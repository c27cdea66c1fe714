package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/handlers"
	"github.com/playdrop/backend/internal/middleware"
	"github.com/playdrop/backend/internal/models"
	"github.com/playdrop/backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize services
	s3Service, err := services.NewS3Service(cfg)
	if err != nil {
		log.Fatalf("Failed to init S3 service: %v", err)
	}
	storageService := services.NewStorageService(cfg.LocalAssetsPath, s3Service)
	emailService := services.NewEmailService(cfg)
	authService := services.NewAuthService(db, redisClient, cfg)
	userService := services.NewUserService(db, cfg)
	trackService := services.NewTrackService(db, cfg, s3Service)
	playlistService := services.NewPlaylistService(db, cfg, s3Service)
	compositionService := services.NewCompositionService(db, cfg, s3Service)
	shareService := services.NewShareService(db, cfg, emailService)
	analyticsService := services.NewAnalyticsService(db, cfg)
	qrService := services.NewQRService(cfg)

	// Create the bootstrap operator account if no users exist
	if err := authService.EnsureDefaultOperator(); err != nil {
		log.Printf("Failed to ensure default operator: %v", err)
	}

	// Periodic cleanup of expired refresh tokens
	go func() {
		for {
			if err := authService.CleanupExpiredTokens(); err != nil {
				log.Printf("Refresh token cleanup error: %v", err)
			}
			time.Sleep(1 * time.Hour)
		}
	}()

	// Periodic sweep deactivating expired share links
	if cfg.ShareExpirySweepEnabled {
		go func() {
			for {
				deactivated, err := shareService.DeactivateExpired()
				if err != nil {
					log.Printf("Share expiry sweep error: %v", err)
				} else if deactivated > 0 {
					log.Printf("Share expiry sweep: deactivated %d expired links", deactivated)
				}
				time.Sleep(10 * time.Minute)
			}
		}()
	}

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	trackHandler := handlers.NewTrackHandler(trackService, playlistService, storageService, cfg)
	playlistHandler := handlers.NewPlaylistHandler(playlistService, compositionService)
	shareHandler := handlers.NewShareHandler(shareService, playlistService, analyticsService, qrService, emailService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, playlistService)
	publicHandler := handlers.NewPublicHandler(shareService, playlistService, trackService, analyticsService)

	// Health check outside API group
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		// Catch-all OPTIONS handler for CORS preflight requests
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		// Public share surface (visitor-facing, no operator session)
		share := api.Group("/shares/:slug")
		{
			share.GET("", publicHandler.ResolveShare)
			share.POST("/unlock", publicHandler.UnlockShare)
			share.POST("/verify", publicHandler.VerifyShareEmail)

			// Gated content requires a share-session token
			gated := share.Group("")
			gated.Use(middleware.ShareSession(shareService))
			{
				gated.GET("/playlist", publicHandler.SharedPlaylist)
				gated.GET("/tracks/:trackId/stream", publicHandler.SharedPlaybackURL)
				gated.GET("/tracks/:trackId/download", publicHandler.SharedDownloadURL)
				gated.POST("/plays/:playEventId/progress", publicHandler.SharedPlayProgress)
			}
		}

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", middleware.Auth(authService), authHandler.Logout)
			auth.GET("/me", middleware.Auth(authService), authHandler.Me)
		}

		// Operator routes
		operator := api.Group("")
		operator.Use(middleware.Auth(authService))
		{
			// Profile
			operator.PUT("/profile", userHandler.UpdateProfile)
			operator.PUT("/profile/password", userHandler.ChangePassword)

			// Track catalog
			operator.GET("/tracks", trackHandler.ListTracks)
			operator.GET("/tracks/:id", trackHandler.GetTrack)
			operator.GET("/tracks/:id/stream", trackHandler.GetPlaybackURL)
			operator.GET("/tracks/:id/artwork", trackHandler.ServeArtwork)
			operator.DELETE("/tracks/:id", trackHandler.DeleteTrack)
			operator.POST("/tracks/usage", trackHandler.TrackUsage)

			// Uploads (rate limited)
			uploadGroup := operator.Group("")
			uploadGroup.Use(middleware.UploadRateLimit(redisClient, cfg))
			{
				uploadGroup.POST("/tracks/upload", trackHandler.UploadTrack)
				uploadGroup.POST("/playlists/:id/artwork", playlistHandler.UploadArtwork)
			}

			// Playlists
			operator.GET("/playlists", playlistHandler.ListPlaylists)
			operator.POST("/playlists", playlistHandler.CreatePlaylist)
			operator.GET("/playlists/:id", playlistHandler.GetPlaylist)
			operator.PUT("/playlists/:id", playlistHandler.UpdatePlaylist)
			operator.DELETE("/playlists/:id", playlistHandler.DeletePlaylist)
			operator.POST("/playlists/:id/duplicate", playlistHandler.DuplicatePlaylist)

			// Placements
			operator.POST("/playlists/:id/tracks", playlistHandler.AddTracks)
			operator.PUT("/playlists/:id/placements/:placementId", playlistHandler.ReorderPlacement)
			operator.DELETE("/playlists/:id/placements/:placementId", playlistHandler.RemovePlacement)
			operator.POST("/playlists/:id/renumber", playlistHandler.RenumberGroup)

			// Sections
			operator.POST("/playlists/:id/sections", playlistHandler.AddSection)
			operator.PUT("/playlists/:id/sections/:sectionId", playlistHandler.UpdateSection)
			operator.PUT("/playlists/:id/sections/:sectionId/position", playlistHandler.ReorderSection)
			operator.DELETE("/playlists/:id/sections/:sectionId", playlistHandler.RemoveSection)

			// Share links
			operator.GET("/playlists/:id/shares", shareHandler.ListShares)
			operator.POST("/playlists/:id/shares", shareHandler.CreateShare)
			operator.PUT("/share-links/:shareId", shareHandler.UpdateShare)
			operator.POST("/share-links/:shareId/toggle", shareHandler.ToggleShare)
			operator.DELETE("/share-links/:shareId", shareHandler.DeleteShare)
			operator.GET("/share-links/:shareId/recipients", shareHandler.ListRecipients)
			operator.GET("/share-links/:shareId/qr.png", shareHandler.ShareQRPNG)
			operator.GET("/share-links/:shareId/qr.pdf", shareHandler.ShareQRPDF)
			operator.GET("/share-links/:shareId/overview", shareHandler.ShareOverview)

			// Analytics
			operator.GET("/playlists/:id/analytics/overview", analyticsHandler.PlaylistOverview)
			operator.GET("/playlists/:id/analytics/tracks", analyticsHandler.PlaysByTrack)
			operator.GET("/playlists/:id/analytics/activity", analyticsHandler.RecentActivity)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  120 * time.Second, // 2 min for large audio uploads
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
