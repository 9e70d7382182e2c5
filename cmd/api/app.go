package main

import (
	"fmt"
	"os"
	"time"

	"github.com/EcrTech/FL-sub005/internal/adapter/provider"
	esignprov "github.com/EcrTech/FL-sub005/internal/adapter/provider/esign"
	"github.com/EcrTech/FL-sub005/internal/adapter/provider/kyc"
	"github.com/EcrTech/FL-sub005/internal/adapter/provider/nach"
	"github.com/EcrTech/FL-sub005/internal/adapter/provider/upi"
	"github.com/EcrTech/FL-sub005/internal/adapter/repository/gormrepo"
	"github.com/EcrTech/FL-sub005/internal/config"
	"github.com/EcrTech/FL-sub005/internal/domain/document"
	jobdomain "github.com/EcrTech/FL-sub005/internal/domain/job"
	domainver "github.com/EcrTech/FL-sub005/internal/domain/verification"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/cache"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/db"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/logging"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/notify"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/queue"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/scheduler"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/storage"
	"github.com/EcrTech/FL-sub005/internal/usecase/application"
	"github.com/EcrTech/FL-sub005/internal/usecase/collection"
	"github.com/EcrTech/FL-sub005/internal/usecase/contactimport"
	docuc "github.com/EcrTech/FL-sub005/internal/usecase/document"
	"github.com/EcrTech/FL-sub005/internal/usecase/esign"
	"github.com/EcrTech/FL-sub005/internal/usecase/job"
	"github.com/EcrTech/FL-sub005/internal/usecase/maintenance"
	"github.com/EcrTech/FL-sub005/internal/usecase/mandate"
	"github.com/EcrTech/FL-sub005/internal/usecase/reconcile"
	"github.com/EcrTech/FL-sub005/internal/usecase/verification"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app holds every wired component. serve and worker share it.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB
	rdb *redis.Client

	jobs         *job.Service
	worker       *job.Worker
	sweeper      *maintenance.Sweeper
	applications *application.Usecase
	verification *verification.Usecase
	documents    *docuc.Usecase
	esign        *esign.Usecase
	mandates     *mandate.Usecase
	collections  *collection.Usecase
	imports      *contactimport.Usecase
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(envDir)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.WithField("config", fmt.Sprintf("%+v", cfg.Redact())).Debug("config loaded")
	return cfg, log, nil
}

func buildApp(cfg *config.Config, log *logrus.Logger) (*app, error) {
	gdb, err := db.OpenGorm(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}

	store, err := documentStore(cfg, gdb, log)
	if err != nil {
		return nil, err
	}

	prov := func(name, url, key string) provider.BaseProvider {
		return provider.NewBaseProvider(name, url, key, cfg.ProviderTimeout, log)
	}
	registry := domainver.NewRegistry(kyc.Adapters(
		kyc.NewClient(prov("kyc", cfg.KYCBaseURL, cfg.KYCAPIKey)),
		kyc.NewClient(prov("bankverify", cfg.BankVerifyBaseURL, cfg.BankVerifyAPIKey)),
	)...)
	esignClient := esignprov.NewClient(prov("esign", cfg.ESignBaseURL, cfg.ESignAPIKey))
	nachClient := nach.NewClient(prov("nach", cfg.NACHBaseURL, cfg.NACHAPIKey))
	upiClient := upi.NewClient(prov("upi", cfg.UPIBaseURL, cfg.UPIAPIKey), cfg.UPIPayeeVPA)

	tx := gormrepo.NewGormUoW(gdb)
	jobRepo := gormrepo.NewJobRepository(gdb)
	q := queue.NewRedisQueue(rdb, queue.DefaultKey)

	a := &app{cfg: cfg, log: log, db: gdb, rdb: rdb}
	a.jobs = job.NewService(jobRepo, q, log)
	a.applications = application.NewUsecase(tx, log)
	a.verification = verification.NewUsecase(tx, registry, log)
	a.documents = docuc.NewUsecase(tx, a.jobs, store, log)
	a.esign = esign.NewUsecase(tx, esignClient, a.jobs, store,
		notify.NewSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom, log),
		notify.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, log),
		esign.Config{TokenTTL: cfg.ESignTokenTTL, MaxOTPAttempts: cfg.ESignMaxOTPAttempts, SigningBaseURL: cfg.SigningBaseURL},
		log)
	a.mandates = mandate.NewUsecase(tx, nachClient, log)
	a.collections = collection.NewUsecase(tx, upiClient, cache.NewTerminalStatus(), reconcile.NewService(tx, log), cfg.UPICollectionTTL, log)
	a.imports = contactimport.NewUsecase(tx, a.jobs, a.applications, log)

	a.worker = job.NewWorker(jobRepo, q, cfg.WorkerConcurrency, log)
	a.worker.Register(jobdomain.KindContactsImport, a.imports.HandleJob)
	a.worker.Register(jobdomain.KindDocumentGenerate, a.documents.HandleJob)
	a.worker.Register(jobdomain.KindESignNotify, a.esign.HandleNotifyJob)

	a.sweeper = maintenance.NewSweeper(a.jobs, gormrepo.NewScheduleRepository(gdb), a.esign, log)
	return a, nil
}

// documentStore uses S3 when a bucket is configured, else the database.
func documentStore(cfg *config.Config, gdb *gorm.DB, log logrus.FieldLogger) (document.Store, error) {
	if cfg.DocumentBucket == "" {
		log.Warn("DOCUMENT_BUCKET not set, storing documents in the database")
		return storage.NewDBStore(gdb), nil
	}
	s, err := storage.NewS3Store(cfg.AWSRegion, cfg.DocumentBucket)
	if err != nil {
		return nil, fmt.Errorf("s3 store: %w", err)
	}
	return s, nil
}

func (a *app) scheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)
	if err := s.Add(a.cfg.SweepSchedule, "maintenance.sweep", a.sweeper.Task); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) close() {
	if err := a.rdb.Close(); err != nil {
		a.log.WithError(err).Warn("redis close")
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

const shutdownTimeout = 15 * time.Second
