package router

import (
	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/interfaces/http/handler"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers holds every handler the API mounts
type Handlers struct {
	System    *handler.SystemHandler
	Auth      *handler.AuthHandler
	Record    *handler.RecordHandler
	Invoice   *handler.InvoiceHandler
	Client    *handler.ClientHandler
	Inventory *handler.InventoryHandler
	Profile   *handler.ProfileHandler
	Outbox    *handler.OutboxHandler
}

// Options configures the route table around the handlers
type Options struct {
	// Authenticate guards every API route except sign-in. Required.
	Authenticate gin.HandlerFunc
	// LoginLimiter throttles sign-in attempts per client IP; nil disables it
	LoginLimiter *middleware.RateLimiter
	// Swagger serves /swagger/*any behind SwaggerGuard; nil leaves the route out
	Swagger      gin.HandlerFunc
	SwaggerGuard gin.HandlerFunc
	Profiling    bool
}

// Mount registers probes, API docs and the /api/v1 resources on engine
func Mount(engine *gin.Engine, h Handlers, opts Options) {
	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)
	if opts.Swagger != nil {
		docs := []gin.HandlerFunc{opts.Swagger}
		if opts.SwaggerGuard != nil {
			docs = append([]gin.HandlerFunc{opts.SwaggerGuard}, docs...)
		}
		engine.GET("/swagger/*any", docs...)
	}

	login := []gin.HandlerFunc{h.Auth.Login}
	if opts.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.RateLimit(opts.LoginLimiter)}, login...)
	}
	admin := middleware.RequireRole(partner.ProfileRoleAdmin)

	system := NewResource("/system").
		GET("/info", h.System.GetSystemInfo)
	system.Nest("/outbox").
		Guard(admin).
		GET("/dead", h.Outbox.ListDead).
		POST("/dead/retry", h.Outbox.RequeueAll).
		GET("/entries/:id", h.Outbox.GetEntry).
		POST("/entries/:id/retry", h.Outbox.Requeue).
		GET("/stats", h.Outbox.Stats)

	NewAPI("v1").
		Public(NewResource("/auth").POST("/login", login...)).
		Authenticate(opts.Authenticate, middleware.SpanAttributes(), middleware.Profiling(opts.Profiling)).
		Private(
			NewResource("/auth").
				POST("/logout", h.Auth.Logout),
			NewResource("/records").
				GET("", h.Record.ListTables).
				GET("/:table", h.Record.Browse),
			NewResource("/invoices").
				POST("/preview", h.Invoice.Preview).
				POST("", h.Invoice.Create).
				GET("", h.Invoice.List).
				GET("/:id", h.Invoice.Get).
				PUT("/:id", h.Invoice.Update).
				GET("/:id/items", h.Invoice.GetItems).
				GET("/:id/document", h.Invoice.Document).
				POST("/:id/archive", h.Invoice.Archive),
			NewResource("/clients").
				POST("", h.Client.Create).
				GET("", h.Client.List).
				GET("/:id", h.Client.Get),
			NewResource("/inventory").
				POST("", h.Inventory.Create).
				GET("", h.Inventory.List).
				GET("/:id", h.Inventory.Get),
			NewResource("/profiles").
				GET("/me", h.Profile.Me).
				GET("", h.Profile.List).
				GET("/:id", h.Profile.Get).
				POST("", admin, h.Profile.Create),
			system,
		).
		Mount(engine)
}
