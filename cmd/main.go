package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/agencybot/whatsapp-catalog-bot/internal/catalog"
	"github.com/agencybot/whatsapp-catalog-bot/internal/config"
	"github.com/agencybot/whatsapp-catalog-bot/internal/dialog"
	"github.com/agencybot/whatsapp-catalog-bot/internal/order"
	"github.com/agencybot/whatsapp-catalog-bot/internal/session"
	"github.com/agencybot/whatsapp-catalog-bot/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// --- DB ---
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// --- Bot wiring ---
	sessions := session.NewStore(rdb)
	catalogStore := catalog.NewRepo(db)
	committer := order.NewCommitter(order.NewStore(db), cfg.AgencyID)
	messenger := whatsapp.NewMessenger(cfg.WhatsAppToken, cfg.PhoneNumberID, cfg.GraphAPIVersion)

	dispatcher := dialog.NewDispatcher(dialog.Config{
		Agency:     cfg.Agency,
		AgencyID:   cfg.AgencyID,
		SessionTTL: cfg.SessionTTL,
	}, sessions, catalogStore, committer, messenger)

	handler := whatsapp.NewHandler(dispatcher, cfg.VerifyToken)
	whatsapp.RegisterRoutes(r, handler)

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	log.Printf("listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
