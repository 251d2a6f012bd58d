package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/config"
	"github.com/gulldan/volunteerhub/internal/database"
	"github.com/gulldan/volunteerhub/internal/handler"
	"github.com/gulldan/volunteerhub/internal/middleware"
	"github.com/gulldan/volunteerhub/internal/notify"
	"github.com/gulldan/volunteerhub/internal/queue"
	"github.com/gulldan/volunteerhub/internal/repository"
	"github.com/gulldan/volunteerhub/internal/router"
	"github.com/gulldan/volunteerhub/internal/scheduler"
	"github.com/gulldan/volunteerhub/internal/service"
	"github.com/gulldan/volunteerhub/internal/store"
	"github.com/gulldan/volunteerhub/internal/telegram"
)

func main() {
	// A .env file is a development convenience; in production the
	// variables come from the environment and the file is absent.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter, the response cache and the parked
	// geofenced check-ins.  All three degrade to pass-through when the
	// client is nil, so a missing Redis never blocks startup.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	orgs := repository.NewOrganizationRepo(db)
	events := repository.NewEventRepo(db)
	roles := repository.NewRoleRepo(db)
	shifts := repository.NewShiftRepo(db)
	apps := repository.NewApplicationRepo(db)
	attendance := repository.NewAttendanceRepo(db)
	reminders := repository.NewReminderRepo(db)
	analytics := repository.NewAnalyticsRepo(db)
	incidents := repository.NewIncidentRepo(db)

	bot := telegram.NewClient(cfg.TelegramToken, cfg.TelegramBotName)
	queueDisabled := os.Getenv("NOTIFY_QUEUE_DISABLED") == "true"
	notifier := notify.NewDispatcher(bot, analytics, queueDisabled)

	workflow := service.NewWorkflowService(db, apps, events, roles, shifts, users, reminders, notifier, analytics)
	attSvc := service.NewAttendanceService(db, apps, attendance, users, notifier, analytics)
	pending := store.NewPendingCheckinStore(rdb)

	// The reminder job and the notification consumer run for the life
	// of the process alongside the HTTP server.
	job := scheduler.New(db, reminders, attendance, apps, notifier, analytics, cfg.ReminderInterval)
	go job.Run(context.Background())
	if !queueDisabled {
		go func() {
			if err := queue.StartTelegramConsumer(bot); err != nil {
				log.Printf("notify-consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.Validator = handler.NewRequestValidator()

	rateLimit := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	catalogH := handler.NewCatalogHandler(events, roles, shifts, orgs)
	appH := handler.NewApplicationHandler(cfg, workflow, apps, bot)
	orgH := handler.NewOrganizerHandler(users, orgs, events, roles, shifts, apps, analytics, workflow)
	checkinH := handler.NewCheckinHandler(cfg, attSvc, apps, shifts, events, users)
	exportH := handler.NewExportHandler(orgH, apps)
	incidentH := handler.NewIncidentHandler(orgH, incidents, events)
	tgH := handler.NewTelegramHandler(cfg, bot, users, apps, shifts, attSvc, pending)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, catalogH, checkinH, tgH, rateLimit, cache)
	router.RegisterAuth(e, authH, cfg.JWTSecret, rateLimit)
	router.RegisterVolunteer(e, appH, exportH, cfg.JWTSecret)
	router.RegisterOrg(e, orgH, checkinH, exportH, incidentH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
