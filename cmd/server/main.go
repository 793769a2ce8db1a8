package main

import (
	"log"
	"net/http"
	"os"

	"monopoly-wallet/internal/config"
	"monopoly-wallet/internal/db"
	"monopoly-wallet/internal/server"
	"monopoly-wallet/internal/theme"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var store server.GameStore
	if os.Getenv("DATABASE_URL") != "" {
		conn, err := db.Open()
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		if err := db.Configure(conn, cfg); err != nil {
			log.Fatalf("database pool setup failed: %v", err)
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		store = server.NewGormStore(conn)
	} else {
		log.Println("DATABASE_URL not set; using in-memory game store")
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(store, theme.NewFileLoader(cfg.ThemeDir), cfg)
	log.Printf("monopoly-wallet server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
