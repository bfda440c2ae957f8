// cmd/dispatch/main.go
//
// One-shot batch sender, meant for cron. Processes every active campaign with
// pending targets, prints a per-target line, and exits.
package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/phishguard/phishguard-backend/internal/config"
	"github.com/phishguard/phishguard-backend/internal/db"
	"github.com/phishguard/phishguard-backend/internal/logger"
	"github.com/phishguard/phishguard-backend/internal/mailer"
	"github.com/phishguard/phishguard-backend/internal/queue"
	"github.com/phishguard/phishguard-backend/internal/repository"
	"github.com/phishguard/phishguard-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config: ", err)
	}
	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal("init logger: ", err)
	}
	defer zl.Sync()

	loc, err := cfg.Location()
	if err != nil {
		zl.Fatal("load timezone", zap.Error(err))
	}

	database, err := db.Connect(cfg)
	if err != nil {
		zl.Fatal("connect database", zap.Error(err))
	}
	defer database.Close()

	dispatch := &service.DispatchService{
		CampaignRepo:       &repository.CampaignRepository{DB: database},
		TargetRepo:         &repository.TargetRepository{DB: database},
		Sender:             &mailer.LogSender{Logger: zl},
		Queue:              queue.NewInMemoryQueue(),
		Logger:             zl,
		Loc:                loc,
		LinkBaseURL:        cfg.LinkBaseURL,
		SenderDomain:       cfg.SenderDomain,
		DefaultSenderName:  cfg.DefaultSenderName,
		DefaultSenderEmail: cfg.DefaultSenderEmail,
		SendQueue:          cfg.SendQueue,
	}

	report, err := dispatch.Run()
	if err != nil {
		zl.Fatal("dispatch run", zap.Error(err))
	}

	for _, r := range report.Results {
		if r.Error != "" {
			fmt.Printf("[%s] %s (campaign %d): %s\n", r.Status, r.Email, r.CampaignID, r.Error)
		} else {
			fmt.Printf("[%s] %s (campaign %d)\n", r.Status, r.Email, r.CampaignID)
		}
	}
	fmt.Printf("Dispatch complete: %d campaigns, %d sent, %d failed\n",
		report.Campaigns, report.Sent, report.Failed)
}
