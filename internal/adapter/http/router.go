package http

import (
	"time"

	"github.com/EcrTech/FL-sub005/internal/adapter/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Health        *Handler
	Applications  *ApplicationHandler
	Verifications *VerificationHandler
	Documents     *DocumentHandler
	ESign         *ESignHandler
	Payments      *PaymentHandler
	Contacts      *ContactHandler
	Jobs          *JobHandler
	Webhooks      *WebhookHandler
}

type RouterConfig struct {
	JWTSecret      string
	IdempotencyTTL time.Duration
	// Webhook HMAC secrets per partner.
	WebhookSecretUPI          string
	WebhookSecretNACH         string
	WebhookSecretDisbursement string
}

// NewRouter builds the echo instance with every route registered.
func NewRouter(h Handlers, rdb *redis.Client, cfg RouterConfig, log logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log)
	e.Use(echomw.Recover(), middleware.RequestLog(log))

	e.GET("/health", h.Health.Health)

	es := e.Group("/esign")
	es.GET("/:token", h.ESign.View)
	es.POST("/:token/initiate", h.ESign.Initiate)
	es.POST("/:token/complete", h.ESign.Complete)

	wh := e.Group("/webhooks")
	wh.POST("/upi", h.Webhooks.UPI, middleware.VerifySignature("upi", cfg.WebhookSecretUPI, log))
	wh.POST("/nach/mandate", h.Webhooks.NACHMandate, middleware.VerifySignature("nach_mandate", cfg.WebhookSecretNACH, log))
	wh.POST("/nach/debit", h.Webhooks.NACHDebit, middleware.VerifySignature("nach_debit", cfg.WebhookSecretNACH, log))
	wh.POST("/disbursement", h.Webhooks.Disbursement, middleware.VerifySignature("disbursement", cfg.WebhookSecretDisbursement, log))

	v1 := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.Idempotency(rdb, cfg.IdempotencyTTL, log))

	apps := v1.Group("/applications")
	apps.POST("", h.Applications.Create)
	apps.GET("/:number", h.Applications.Get)
	apps.POST("/:number/transitions", h.Applications.Transition)
	apps.POST("/:number/decision", h.Applications.Decide)
	apps.POST("/:number/assign", h.Applications.Assign)
	apps.POST("/:number/cancel", h.Applications.Cancel)
	apps.POST("/:number/repeat", h.Applications.Repeat)
	apps.POST("/:number/disbursement", h.Applications.Disburse)
	apps.GET("/:number/schedule", h.Applications.Schedule)
	apps.POST("/:number/verifications/:type", h.Verifications.Verify)
	apps.GET("/:number/verifications", h.Verifications.List)
	apps.POST("/:number/documents", h.Documents.Generate)
	apps.POST("/:number/esign", h.Documents.RequestSignature)
	apps.POST("/:number/mandates", h.Payments.RegisterMandate)
	apps.POST("/:number/mandates/debits", h.Payments.Debit)
	apps.POST("/:number/collections/upi", h.Payments.CreateUPI)

	v1.POST("/mandates/:mandate_ref/refresh", h.Payments.RefreshMandate)
	v1.POST("/mandates/:mandate_ref/cancel", h.Payments.CancelMandate)
	v1.GET("/collections/:client_ref", h.Payments.CollectionStatus)

	ct := v1.Group("/contacts")
	ct.POST("/imports", h.Contacts.Import)
	ct.GET("/imports/:batch_id", h.Contacts.GetBatch)
	ct.POST("/imports/:batch_id/cancel", h.Contacts.CancelBatch)
	ct.POST("/imports/:batch_id/revert", h.Contacts.RevertBatch)
	ct.POST("/bulk-delete", h.Contacts.BulkDelete)

	v1.GET("/jobs/:job_id", h.Jobs.Get)

	return e
}
