package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/andreiPopCatalin/gale-chat/internal/migrations"

	_ "github.com/mattn/go-sqlite3"
)

// Applies the embedded schema to a database file. Useful for creating
// or repairing a conversation database without starting the app.
func main() {
	dbPath := flag.String("db", "./galechat.db", "Path to the database file")
	flag.Parse()

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM kv_store").Scan(&count); err != nil {
		log.Fatalf("Failed to verify schema: %v", err)
	}

	fmt.Printf("Schema applied to %s (%d stored keys)\n", *dbPath, count)
}
