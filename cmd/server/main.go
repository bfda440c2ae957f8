// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/phishguard/phishguard-backend/internal/config"
	"github.com/phishguard/phishguard-backend/internal/controller"
	"github.com/phishguard/phishguard-backend/internal/db"
	"github.com/phishguard/phishguard-backend/internal/handler"
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

	campaignRepo := &repository.CampaignRepository{DB: database}
	targetRepo := &repository.TargetRepository{DB: database}
	eventRepo := &repository.EventRepository{DB: database}
	decisionRepo := &repository.DecisionRepository{DB: database}
	quizRepo := &repository.QuizRepository{DB: database}
	awarenessRepo := &repository.AwarenessRepository{DB: database}
	userRepo := &repository.UserRepository{DB: database}
	templateRepo := &repository.TemplateRepository{DB: database}
	reportRepo := &repository.ReportRepository{DB: database}

	var q queue.Queue
	amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL)
	if err != nil {
		zl.Warn("broker unavailable, dispatch jobs stay in memory", zap.Error(err))
		q = queue.NewInMemoryQueue()
	} else {
		q = amqpQueue
	}
	defer q.Close()

	campaignService := &service.CampaignService{
		CampaignRepo:    campaignRepo,
		UserRepo:        userRepo,
		TemplateRepo:    templateRepo,
		Logger:          zl,
		Loc:             loc,
		RecipientDomain: cfg.RecipientDomain,
		Validate:        validator.New(),
	}
	funnelService := &service.FunnelService{
		TargetRepo:    targetRepo,
		EventRepo:     eventRepo,
		DecisionRepo:  decisionRepo,
		QuizRepo:      quizRepo,
		AwarenessRepo: awarenessRepo,
		Logger:        zl,
		Loc:           loc,
	}
	reportService := &service.ReportService{
		CampaignRepo: campaignRepo,
		Reports:      reportRepo,
		Logger:       zl,
		Loc:          loc,
	}
	dispatchService := &service.DispatchService{
		CampaignRepo:       campaignRepo,
		TargetRepo:         targetRepo,
		Sender:             &mailer.LogSender{Logger: zl},
		Queue:              q,
		Logger:             zl,
		Loc:                loc,
		LinkBaseURL:        cfg.LinkBaseURL,
		SenderDomain:       cfg.SenderDomain,
		DefaultSenderName:  cfg.DefaultSenderName,
		DefaultSenderEmail: cfg.DefaultSenderEmail,
		SendQueue:          cfg.SendQueue,
	}

	campaignController := &controller.CampaignController{CampaignService: campaignService, Logger: zl}
	reportController := &controller.ReportController{ReportService: reportService, CampaignService: campaignService, Logger: zl}
	templateController := &controller.TemplateController{TemplateRepo: templateRepo, SenderDomain: cfg.SenderDomain}
	directoryController := &controller.DirectoryController{UserRepo: userRepo}
	dispatchController := &controller.DispatchController{DispatchService: dispatchService}
	funnelHandler := &handler.FunnelHandler{FunnelService: funnelService, Logger: zl}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Admin routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Put("/campaigns/{id}", campaignController.UpdateCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Get("/campaigns/{id}/report", reportController.CampaignReport)
	r.Get("/dashboard", reportController.Dashboard)
	r.Get("/templates", templateController.ListTemplates)
	r.Post("/templates", templateController.CreateTemplate)
	r.Get("/users", directoryController.ListUsers)
	r.Get("/departments", directoryController.ListDepartments)
	r.Post("/dispatch/run", dispatchController.Run)

	// Recipient routes, keyed by capability token
	r.Get("/t/{token}/click", funnelHandler.Click)
	r.Post("/t/{token}/decision", funnelHandler.Decision)
	r.Get("/t/{token}/report", funnelHandler.Report)
	r.Get("/t/{token}/awareness", funnelHandler.Awareness)
	r.Get("/t/{token}/quiz", funnelHandler.Quiz)
	r.Post("/t/{token}/quiz", funnelHandler.SubmitQuiz)

	zl.Info("server running", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}
