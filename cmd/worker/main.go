// cmd/worker/main.go
//
// Queue consumer for dispatch jobs. Every job is acked exactly once whether it
// succeeds or not: a failed send marks the target failed in the database, and
// nothing is ever requeued for another try.
package main

import (
	"encoding/json"
	"log"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/phishguard/phishguard-backend/internal/config"
	"github.com/phishguard/phishguard-backend/internal/db"
	"github.com/phishguard/phishguard-backend/internal/logger"
	"github.com/phishguard/phishguard-backend/internal/mailer"
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
		Logger:             zl,
		Loc:                loc,
		LinkBaseURL:        cfg.LinkBaseURL,
		SenderDomain:       cfg.SenderDomain,
		DefaultSenderName:  cfg.DefaultSenderName,
		DefaultSenderEmail: cfg.DefaultSenderEmail,
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		zl.Fatal("connect broker", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		zl.Fatal("open channel", zap.Error(err))
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(cfg.SendQueue, true, false, false, false, nil)
	if err != nil {
		zl.Fatal("declare queue", zap.Error(err))
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		zl.Fatal("register consumer", zap.Error(err))
	}

	zl.Info("worker consuming", zap.String("queue", q.Name))
	for d := range msgs {
		var job service.SendJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			zl.Warn("invalid job payload", zap.Error(err))
			d.Ack(false)
			continue
		}

		result, err := dispatch.SendOne(job)
		switch {
		case err != nil:
			zl.Error("process job",
				zap.Int("campaign_id", job.CampaignID),
				zap.Int("target_id", job.TargetID),
				zap.Error(err))
		case result == nil:
			zl.Info("job skipped, target no longer pending", zap.Int("target_id", job.TargetID))
		default:
			zl.Info("job processed",
				zap.Int("target_id", result.TargetID),
				zap.String("status", result.Status))
		}

		d.Ack(false)
	}
}
