package router

import (
	"github.com/estudiomd/backoffice/internal/interfaces/http/handler"
	"github.com/estudiomd/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers are the HTTP handlers served under /api/v1
type Handlers struct {
	System      *handler.SystemHandler
	Auth        *handler.AuthHandler
	Client      *handler.ClientHandler
	Finance     *handler.FinanceHandler
	Collection  *handler.CollectionHandler
	Operational *handler.OperationalHandler
	Task        *handler.TaskHandler
	Dashboard   *handler.DashboardHandler
}

// Guards are the middleware the API groups are protected with
type Guards struct {
	// Authenticate rejects requests without a valid access token
	Authenticate gin.HandlerFunc
	// AuthLimiter throttles login and refresh attempts. Optional.
	AuthLimiter gin.HandlerFunc
}

func passthrough(c *gin.Context) { c.Next() }

// RegisterAPI builds the versioned route groups, mounts them on r and returns
// the mounted route table. Health probes are also served at the engine root.
func RegisterAPI(r *Router, h Handlers, g Guards) []string {
	if g.Authenticate == nil {
		g.Authenticate = passthrough
	}
	if g.AuthLimiter == nil {
		g.AuthLimiter = passthrough
	}

	r.engine.GET("/health", h.System.Health)
	r.engine.GET("/ready", h.System.Ready)

	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)
	system.GET("/ready", h.System.Ready)
	system.GET("/system/info/", g.Authenticate, h.System.Info)

	authGroup := NewDomainGroup("auth", "/auth")
	authGroup.POST("/login/", g.AuthLimiter, h.Auth.Login)
	authGroup.POST("/refresh/", g.AuthLimiter, h.Auth.Refresh)
	authGroup.POST("/logout/", g.Authenticate, h.Auth.Logout)
	authGroup.GET("/me/", g.Authenticate, h.Auth.Me)

	admin := middleware.RequireAdmin()

	clients := NewDomainGroup("clients", "/clients").Use(g.Authenticate)
	clients.GET("/", h.Client.List)
	clients.POST("/", admin, h.Client.Create)
	clients.GET("/:id/", h.Client.GetByID)
	clients.PUT("/:id/", admin, h.Client.Update)
	clients.PATCH("/:id/", admin, h.Client.Update)
	clients.DELETE("/:id/", admin, h.Client.Delete)

	clients.GET("/:id/finance/", h.Finance.Get)
	clients.POST("/:id/finance/", h.Finance.Configure)
	clients.GET("/:id/finance/summary/", h.Finance.Summary)
	clients.GET("/:id/finance/available-years/", h.Finance.AvailableYears)
	clients.POST("/:id/finance/allocation-check/", h.Finance.CheckAllocation)
	clients.GET("/:id/payments/:pid/", h.Finance.GetPayment)
	clients.PATCH("/:id/payments/:pid/", h.Finance.UpdatePayment)
	clients.POST("/:id/payments/:pid/transactions/", h.Finance.RecordPayment)

	clients.GET("/:id/collections/", h.Collection.List)
	clients.POST("/:id/collections/", h.Collection.Create)
	clients.PATCH("/:id/collections/:rid/", h.Collection.Update)
	clients.DELETE("/:id/collections/:rid/", h.Collection.Delete)

	clients.GET("/:id/operational/", h.Operational.Get)
	clients.POST("/:id/operational/", h.Operational.SetPresentationDate)
	clients.POST("/:id/declarations/:did/tax/", h.Operational.FileTax)
	clients.PUT("/:id/declarations/:did/tax/:tid/", h.Operational.UpdateTax)
	clients.DELETE("/:id/declarations/:did/tax/:tid/", h.Operational.DeleteTax)
	clients.GET("/:id/additional-pdts/", h.Operational.ListAdditional)
	clients.POST("/:id/additional-pdts/", h.Operational.CreateAdditional)
	clients.GET("/:id/additional-pdts/:pid/", h.Operational.GetAdditional)
	clients.PATCH("/:id/additional-pdts/:pid/", h.Operational.UpdateAdditional)
	clients.DELETE("/:id/additional-pdts/:pid/", h.Operational.DeleteAdditional)

	tasks := NewDomainGroup("tasks", "/tasks").Use(g.Authenticate)
	tasks.GET("/", h.Task.List)
	tasks.POST("/", h.Task.Create)
	tasks.GET("/my-tasks/", h.Task.MyTasks)
	tasks.GET("/stats/", h.Task.Stats)
	tasks.GET("/:id/", h.Task.GetByID)
	tasks.PUT("/:id/", h.Task.Update)
	tasks.PATCH("/:id/", h.Task.Update)
	tasks.DELETE("/:id/", h.Task.Delete)
	tasks.POST("/:id/change-status/", h.Task.ChangeStatus)
	tasks.GET("/:id/audit-log/", h.Task.AuditLog)

	dashboard := NewDomainGroup("dashboard", "/dashboard").Use(g.Authenticate)
	dashboard.GET("/", h.Dashboard.Get)
	dashboard.POST("/refresh/", h.Dashboard.Refresh)

	r.Register(system).
		Register(authGroup).
		Register(clients).
		Register(tasks).
		Register(dashboard)
	return r.Setup()
}
