package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ridwanfathin/edge-transaction-service/internal/database"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Get database URL
	dbURL := os.Getenv("POSTGRES_DB_URL")
	if dbURL == "" {
		log.Fatalf("POSTGRES_DB_URL environment variable not set")
	}

	ctx := context.Background()

	// Connect to database
	db, err := database.NewPostgresDB(ctx, dbURL, 0)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer db.Close()

	names, err := database.Migrations()
	if err != nil {
		log.Fatalf("Unable to list migrations: %v", err)
	}

	// Execute migrations
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to execute migrations: %v", err)
	}

	for _, name := range names {
		fmt.Printf("applied %s\n", name)
	}
	fmt.Println("Migration successfully executed!")
}
