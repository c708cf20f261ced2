package app

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/classmate-ai/backend/api"
	"github.com/classmate-ai/backend/config"
	"github.com/classmate-ai/backend/database"
	"github.com/classmate-ai/backend/router"
	"github.com/classmate-ai/backend/services"
	"github.com/classmate-ai/backend/services/cron"
	"github.com/classmate-ai/backend/services/digitalocean"
	"github.com/classmate-ai/backend/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("If not running, run the following command:\n")
		print("  make docker-up   (for Docker setup)\n")
		print("  make db-up       (for local PostgreSQL)\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	db := store.GetDB()

	// Object storage. Without it document ingestion stays disabled but the
	// rest of the API keeps working.
	spaces, err := digitalocean.NewSpacesClientFromGlobalConfig()
	if err != nil {
		if !errors.Is(err, digitalocean.ErrSpacesNotConfigured) {
			return err
		}
		log.Println("Warning: DigitalOcean Spaces is not configured. File uploads and ingestion are disabled.")
		spaces = nil
	}

	// Redis backs brute force protection and chat rate limiting; both
	// degrade gracefully when it's unavailable.
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection and chat rate limiting are disabled.", err)
		redisCache = nil
	}

	ingestionService := services.NewIngestionService(db, spaces, services.IngestionConfig{
		ChunkSize:    getEnv.RAG_CHUNK_SIZE,
		ChunkOverlap: getEnv.RAG_CHUNK_OVERLAP,
		LowTextChars: getEnv.RAG_LOW_TEXT_CHARS,
		Enabled:      spaces != nil,
	})
	queue := services.NewIngestQueue(ingestionService, db, getEnv.RAG_INGEST_WORKERS)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(db, queue)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer Closing DB and Redis, draining the ingest queue and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		queue.Shutdown()
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes (security middleware is attached inside)
	router.SetupRoutes(app, router.Dependencies{
		Store:  store,
		Queue:  queue,
		Spaces: spaces,
		Cache:  redisCache,
	})

	// Get the PORT & Start the Server
	return server.Run()

}
