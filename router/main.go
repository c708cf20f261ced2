package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/classmate-ai/backend/config"
	"github.com/classmate-ai/backend/database"
	"github.com/classmate-ai/backend/handlers"
	auth_handlers "github.com/classmate-ai/backend/handlers/auth"
	chat_handlers "github.com/classmate-ai/backend/handlers/chat"
	content_handlers "github.com/classmate-ai/backend/handlers/content"
	course_handlers "github.com/classmate-ai/backend/handlers/course"
	video_handlers "github.com/classmate-ai/backend/handlers/video"
	"github.com/classmate-ai/backend/services"
	"github.com/classmate-ai/backend/services/digitalocean"
	"github.com/classmate-ai/backend/utils/auth"
	"github.com/classmate-ai/backend/utils/cache"
	"github.com/classmate-ai/backend/utils/middleware"
)

// Dependencies are the long-lived collaborators built during app setup
type Dependencies struct {
	Store  *database.GORMStore
	Queue  *services.IngestQueue
	Spaces *digitalocean.SpacesClient // nil when not configured
	Cache  *cache.RedisCache          // nil when Redis is unavailable
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	jwtSecret := getEnv.JWT_SECRET
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "classmate-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: jwtSecret,
		Issuer: jwtIssuer,
	})

	db := deps.Store.GetDB()

	var bruteForceProtection *middleware.BruteForceProtection
	if deps.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Cache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Retrieval requires the Postgres FTS layer; it stays off elsewhere
	var retrieval *services.RetrievalService
	if getEnv.RAG_ENABLED && db.Dialector.Name() == "postgres" {
		retrieval = services.NewRetrievalService(db)
	}

	llm, err := digitalocean.NewInferenceClientFromGlobalConfig()
	if err != nil {
		log.Fatal("Failed to build inference client:", err)
	}
	chatEngine := services.NewChatEngine(llm, getEnv.CHAT_HISTORY_MAX)

	transcriptService := services.NewTranscriptService(db, getEnv.VTT_MERGE_MAX_CHARS, getEnv.VTT_MERGE_WINDOW_SEC)

	// Handlers
	healthHandler := handlers.NewHealthHandler(deps.Store)
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(db)
	contentHandler := content_handlers.NewContentHandler(db, deps.Spaces, deps.Queue)
	chatHandler := chat_handlers.NewChatHandler(db, chatEngine, retrieval, deps.Cache, getEnv.RAG_TOP_K)
	videoHandler := video_handlers.NewVideoHandler(db, transcriptService, deps.Spaces)

	// Security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	app.Get("/ping", healthHandler.Check)

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.Refresh)

	// Auth routes (protected)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/me", authMiddleware.Required(), authHandler.GetProfile)
	authGroup.Patch("/me", authMiddleware.Required(), authHandler.UpdateProfile)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Course routes (protected, ownership checked per handler)
	courses := api.Group("/courses", authMiddleware.Required())
	courses.Get("/", courseHandler.ListCourses)
	courses.Post("/", courseHandler.CreateCourse)
	courses.Get("/:id", courseHandler.GetCourse)
	courses.Patch("/:id", courseHandler.UpdateCourse)
	courses.Delete("/:id", courseHandler.DeleteCourse)

	// Course content routes
	contents := courses.Group("/:courseId/contents")
	contents.Get("/", contentHandler.ListContents)
	contents.Post("/", contentHandler.CreateContent)
	contents.Get("/:contentId", contentHandler.GetContent)
	contents.Patch("/:contentId", contentHandler.UpdateContent)
	contents.Delete("/:contentId", contentHandler.DeleteContent)
	contents.Post("/:contentId/upload-url", contentHandler.CreateUploadURL)
	contents.Get("/:contentId/download-url", contentHandler.CreateDownloadURL)
	contents.Post("/:contentId/finalize", contentHandler.FinalizeUpload)
	contents.Post("/:contentId/reingest", contentHandler.Reingest)

	// Chat routes
	courses.Post("/:courseId/chat", chatHandler.Chat)
	courses.Get("/:courseId/conversations", chatHandler.ListConversations)
	conversations := api.Group("/conversations", authMiddleware.Required())
	conversations.Get("/:conversationId/messages", chatHandler.ListMessages)
	conversations.Delete("/:conversationId", chatHandler.DeleteConversation)

	// Video routes
	videos := courses.Group("/:courseId/videos")
	videos.Get("/", videoHandler.ListVideos)
	videos.Post("/", videoHandler.CreateVideo)
	videos.Get("/:videoId", videoHandler.GetVideo)
	videos.Delete("/:videoId", videoHandler.DeleteVideo)
	videos.Put("/:videoId/chapters", videoHandler.ReplaceChapters)
	videos.Post("/:videoId/captions", videoHandler.UploadCaptions)
	videos.Get("/:videoId/segments", videoHandler.ListSegments)
}
