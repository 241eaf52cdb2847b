package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/api"
	"github.com/sahilchouksey/elms-api/config"
	"github.com/sahilchouksey/elms-api/database"
	"github.com/sahilchouksey/elms-api/router"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/services/cron"
	"github.com/sahilchouksey/elms-api/services/events"
	"github.com/sahilchouksey/elms-api/services/objectstore"
	"github.com/sahilchouksey/elms-api/services/razorpay"
	"github.com/sahilchouksey/elms-api/utils/cache"
	"github.com/sahilchouksey/elms-api/utils/errorreport"
)

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	errorreport.Init(getEnv.ROLLBAR_TOKEN, getEnv.GO_ENV)
	defer errorreport.Flush()

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		log.Error("Check whether Postgres is running and DB_* variables are set")
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Error("Failed to initialize database tables")
		return err
	}

	deps, closeDeps, err := buildDependencies(getEnv, store)
	if err != nil {
		return err
	}
	defer closeDeps()

	// Initialize Cron Manager (only if enabled via environment variable)
	if getEnv.CRON_ENABLED {
		cronManager := cron.NewCronManager(store.DB())
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Warnf("Failed to start cron jobs: %v", err)
		} else {
			defer cronManager.Stop()
		}
	}

	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), getEnv.APP_NAME)
	if err := router.SetupRoutes(server.GetEngine(), deps); err != nil {
		return err
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down server...")
		if err := server.Shutdown(30 * time.Second); err != nil {
			log.Errorf("Server shutdown failed: %v", err)
		}
	}()

	return server.Run()
}

// buildDependencies connects the optional infrastructure. Missing configuration
// disables a feature; it never stops the server from starting.
func buildDependencies(env *config.EnvironmentVariable, store *database.GORMStore) (router.Dependencies, func(), error) {
	deps := router.Dependencies{Env: env, Store: store, Publisher: events.NopPublisher{}}
	var closers []func() error

	redisCache, err := cache.NewRedisCache(env.REDIS_URL, "elms")
	if err != nil {
		log.Warnf("Failed to connect to Redis: %v", err)
	} else {
		deps.Cache = redisCache
		closers = append(closers, redisCache.Close)
	}

	if env.RAZORPAY_KEY_ID != "" && env.RAZORPAY_KEY_SECRET != "" {
		deps.Gateway = razorpay.NewClient(razorpay.Config{
			KeyID:     env.RAZORPAY_KEY_ID,
			KeySecret: env.RAZORPAY_KEY_SECRET,
			BaseURL:   env.RAZORPAY_BASE_URL,
			Timeout:   env.RAZORPAY_TIMEOUT,
		})
	} else {
		log.Warn("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET not set: paid checkout is disabled")
	}

	spacesConfig := objectstore.SpacesConfig{
		AccessKey: env.SPACES_ACCESS_KEY,
		SecretKey: env.SPACES_SECRET_KEY,
		Bucket:    env.SPACES_BUCKET,
		Region:    env.SPACES_REGION,
		Endpoint:  env.SPACES_ENDPOINT,
		CDNURL:    env.SPACES_CDN_URL,
	}
	if spacesConfig.IsConfigured() {
		spaces, err := objectstore.NewSpacesClient(spacesConfig)
		if err != nil {
			return deps, nil, fmt.Errorf("failed to configure object storage: %w", err)
		}
		deps.Objects = spaces
	} else {
		log.Warn("SPACES_* not set: uploads are disabled")
	}

	notifier, err := services.NewNotifier(env)
	if err != nil {
		return deps, nil, err
	}
	deps.Notifier = notifier

	if env.KAFKA_BROKER != "" {
		publisher := events.NewKafkaPublisher(events.KafkaConfig{
			Broker:   env.KAFKA_BROKER,
			Topic:    env.KAFKA_TOPIC,
			Username: env.KAFKA_USERNAME,
			Password: env.KAFKA_PASSWORD,
		})
		deps.Publisher = publisher
		closers = append(closers, publisher.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warnf("Failed to close dependency: %v", err)
			}
		}
	}
	return deps, closeAll, nil
}
