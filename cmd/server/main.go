package main

import (
	"log"
	"net/http"

	"github.com/robfig/cron/v3"

	"shelfwatch/internal/chat"
	"shelfwatch/internal/config"
	"shelfwatch/internal/db"
	"shelfwatch/internal/events"
	"shelfwatch/internal/handlers"
	"shelfwatch/internal/notify"
	"shelfwatch/internal/push"
	"shelfwatch/internal/rules"
)

func main() {
	cfg := config.Load()

	// Initialize database
	if err := db.Init(cfg.DBPath); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer db.DB.Close()

	if err := rules.Migrate(db.DB); err != nil {
		log.Fatalf("❌ Failed to migrate rules: %v", err)
	}
	if err := notify.Migrate(db.DB); err != nil {
		log.Fatalf("❌ Failed to migrate notifications: %v", err)
	}

	bus := events.NewBus()
	hub := push.NewHub(bus)

	// Optional channels: the engine runs without them, delivery over an
	// unconfigured channel fails visibly and retries.
	var chatSender notify.ChatSender
	if cfg.BotToken != "" {
		bot, err := chat.New(cfg.BotToken)
		if err != nil {
			log.Printf("⚠️  Chat bot unavailable: %v", err)
		} else {
			bot.Start()
			defer bot.Stop()
			chatSender = bot
		}
	} else {
		log.Println("⚠️  BOT_TOKEN not set, chat channel disabled")
	}

	var mailer notify.EmailSender
	if cfg.SMTPURL != "" {
		mailer = notify.ShoutrrrMailer{URL: cfg.SMTPURL}
	} else {
		log.Println("⚠️  SMTP_URL not set, email channel disabled")
	}

	registry := notify.NewRegistry(
		notify.NewInAppDispatcher(bus),
		notify.NewChatDispatcher(db.DB, chatSender),
		notify.NewEmailDispatcher(db.DB, mailer),
	)

	handlers.Evaluator = notify.NewEvaluator(db.DB, bus)
	handlers.Queue = notify.NewQueueProcessor(db.DB, registry, bus)

	// Scheduler: periodic rule evaluation and queue draining
	c := cron.New()
	if _, err := c.AddFunc(cfg.ScanSchedule, func() {
		if _, err := handlers.Evaluator.EvaluateRules(); err != nil {
			log.Printf("❌ Scheduled evaluation failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("❌ Invalid SCAN_SCHEDULE %q: %v", cfg.ScanSchedule, err)
	}
	if _, err := c.AddFunc(cfg.DrainSchedule, func() {
		if _, err := handlers.Queue.ProcessQueue(); err != nil {
			log.Printf("❌ Scheduled queue pass failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("❌ Invalid DRAIN_SCHEDULE %q: %v", cfg.DrainSchedule, err)
	}
	c.Start()
	defer c.Stop()
	log.Printf("⏰ Scheduler started (scan %s, drain %s)", cfg.ScanSchedule, cfg.DrainSchedule)

	mux := http.NewServeMux()

	// Rules
	mux.HandleFunc("GET /api/rules", handlers.ListRules)
	mux.HandleFunc("POST /api/rules", handlers.UpsertRule)
	mux.HandleFunc("DELETE /api/rules/{id}", handlers.DeleteRule)

	// Notifications
	mux.HandleFunc("GET /api/notifications/recent", handlers.RecentNotifications)
	mux.HandleFunc("GET /api/notifications/stats", handlers.NotificationStats)

	// Manual engine triggers
	mux.HandleFunc("POST /api/engine/evaluate", handlers.TriggerEvaluate)
	mux.HandleFunc("POST /api/engine/process", handlers.TriggerProcess)

	// WebSocket for in-app delivery
	mux.HandleFunc("GET /ws", hub.HandleConnection)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONResponse(w, map[string]string{"status": "ok"})
	})

	log.Printf("🚀 Shelfwatch server starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
