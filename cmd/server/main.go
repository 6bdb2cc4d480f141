package main // Entry point package

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-cinema/internal/config"
	"github.com/iliyamo/online-cinema/internal/database"
	"github.com/iliyamo/online-cinema/internal/handler"
	"github.com/iliyamo/online-cinema/internal/notifier"
	"github.com/iliyamo/online-cinema/internal/queue"
	"github.com/iliyamo/online-cinema/internal/repository"
	"github.com/iliyamo/online-cinema/internal/router"
	"github.com/iliyamo/online-cinema/internal/service"
	"github.com/iliyamo/online-cinema/internal/tasks"
	"github.com/iliyamo/online-cinema/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environments set vars directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	codec, err := utils.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.JWTAlgorithm, cfg.AccessTTLMin, cfg.LoginTimeDays)
	if err != nil {
		log.Fatalf("jwt codec: %v", err)
	}

	users := repository.NewUserRepo(db)
	groups := repository.NewGroupRepo(db)
	activation := repository.NewActivationTokenRepo(db)
	reset := repository.NewPasswordResetTokenRepo(db)
	refresh := repository.NewRefreshTokenRepo(db, cfg.LoginTimeDays)

	// Email goes through the broker when one is configured; otherwise the
	// log-only sender keeps the flows observable in dev.
	var sender notifier.EmailSender
	if os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != "" {
		sender = notifier.NewQueueSender("")
		go func() {
			if err := queue.StartEmailConsumer(); err != nil {
				log.Printf("email consumer stopped: %v", err)
			}
		}()
	} else {
		sender = notifier.NewLogSender()
	}

	auth := service.NewAuthService(users, groups, activation, reset, refresh, codec, sender, cfg.BcryptCost, cfg.BaseURL)

	reaper := &tasks.TokenReaper{Activation: activation, Reset: reset, Refresh: refresh}
	scheduler := reaper.Start()
	defer scheduler.Stop()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), codec)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	// Block until interrupted, then drain in-flight requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
