package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/config"
	"github.com/sahilchouksey/elms-api/database"
	"github.com/sahilchouksey/elms-api/services"
	"github.com/sahilchouksey/elms-api/utils/cache"
)

func main() {
	if err := config.LoadENV(); err != nil {
		log.Warnf(".env could not be loaded, using system environment variables: %v", err)
	}

	env, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Printf("%s - Database Seeding\n", env.APP_NAME)
	fmt.Println(separator)

	if err := database.NewSeeder(store.DB()).SeedAll(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	// A running API may hold the old taxonomy in redis
	if redisCache, err := cache.NewRedisCache(env.REDIS_URL, "elms"); err == nil {
		services.NewCatalogService(store.DB(), redisCache).InvalidateTaxonomy(context.Background())
		redisCache.Close()
	}

	fmt.Println(separator)
	fmt.Println("Seeding completed successfully!")
	fmt.Println("The admin user is created from ADMIN_EMAIL and ADMIN_PASSWORD when no admin exists yet.")
	fmt.Println(separator)
}
