package httpserver

import (
	"context"
	"net/http"
	"time"

	"cis-portal/internal/diff"
	"cis-portal/internal/domain"
	"cis-portal/internal/listing"
	"cis-portal/internal/logger"
	"cis-portal/internal/notify"
	"cis-portal/internal/querycache"
	officerrepo "cis-portal/internal/repository/officer"
	"cis-portal/internal/service/customer"
	"cis-portal/internal/service/officer"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CustomerService is what the customer pages need.
type CustomerService interface {
	Search(ctx context.Context, p listing.Params) (listing.Page[domain.Customer], error)
	Get(ctx context.Context, id string) querycache.Result[*domain.Customer]
	Dashboard(ctx context.Context) customer.Dashboard
	Create(ctx context.Context, in domain.CreateCustomerInput) (*customer.CreateOutcome, error)
	Update(ctx context.Context, id string, edited diff.Record) (*domain.Customer, error)
	Delete(ctx context.Context, id string) error
	Renew(ctx context.Context, in domain.RenewInput) (*domain.Customer, error)
	DownloadIDCard(ctx context.Context, id string) (string, error)
	ExportCSV(ctx context.Context) (string, error)
	Verify(ctx context.Context, code string) (customer.Verification, error)
}

// OfficerService is what login and the officer pages need.
type OfficerService interface {
	Login(ctx context.Context, creds domain.Credentials) (officerrepo.LoginResult, error)
	Logout(ctx context.Context) error
	Authenticated(ctx context.Context) (bool, error)
	Me(ctx context.Context) querycache.Result[*domain.Officer]
	Get(ctx context.Context, id string) querycache.Result[*domain.Officer]
	Update(ctx context.Context, id string, in domain.UpdateOfficerInput) (*domain.Officer, error)
	Search(ctx context.Context, p listing.Params) (listing.Page[domain.Officer], error)
	RoleCounts(ctx context.Context) (officer.RoleCounts, error)
	Register(ctx context.Context, in domain.RegisterOfficerInput) (*domain.Officer, error)
	ToggleStatus(ctx context.Context, id string) error
	ActivityLogs(ctx context.Context, p listing.Params) (listing.Page[domain.ActivityLogEntry], error)
}

// ProductService is what the product pages need.
type ProductService interface {
	Search(ctx context.Context, p listing.Params) (listing.Page[domain.Product], error)
	Get(ctx context.Context, id string) querycache.Result[*domain.Product]
	Create(ctx context.Context, in domain.CreateProductInput) (*domain.Product, error)
	ToggleStatus(ctx context.Context, id string) error
}

// Notifications is the toast queue the UI polls.
type Notifications interface {
	Drain() []notify.Notification
}

// Deps holds the services used by HTTP handlers.
type Deps struct {
	Customers     CustomerService
	Officers      OfficerService
	Products      ProductService
	Notifications Notifications
	// Ready is probed by /readyz.
	Ready func(ctx context.Context) error
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	Currency    string
}

// buildRouter wires routes for the gateway API.
func buildRouter(log *zap.Logger, deps Deps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.RequestID(), logger.GinMiddleware(log), logger.Recovery(log))
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	} else {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	h := &handlers{deps: deps}
	api := router.Group("/api")
	api.POST("/auth/login", h.login)

	secured := api.Group("")
	secured.Use(requireAuth(deps.Officers))
	secured.POST("/auth/logout", h.logout)
	secured.GET("/notifications", h.notifications)

	secured.GET("/officers", h.listOfficers)
	secured.POST("/officers", h.registerOfficer)
	secured.GET("/officers/me", h.me)
	secured.GET("/officers/:id", h.getOfficer)
	secured.PATCH("/officers/:id", h.updateOfficer)
	secured.PATCH("/officers/:id/status", h.toggleOfficer)
	secured.GET("/activity", h.activity)

	secured.GET("/dashboard", h.dashboard)
	secured.GET("/customers", h.listCustomers)
	secured.POST("/customers", h.createCustomer)
	secured.POST("/customers/export", h.exportCustomers)
	secured.GET("/customers/verify/:code", h.verifyCustomer)
	secured.GET("/customers/:id", h.getCustomer)
	secured.PATCH("/customers/:id", h.updateCustomer)
	secured.DELETE("/customers/:id", h.deleteCustomer)
	secured.POST("/customers/:id/renew", h.renewCustomer)
	secured.POST("/customers/:id/id-card", h.downloadIDCard)

	secured.GET("/products", h.listProducts)
	secured.POST("/products", h.createProduct)
	secured.GET("/products/:id", h.getProduct)
	secured.PATCH("/products/:id/status", h.toggleProduct)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// requireAuth rejects requests while no officer is signed in.
func requireAuth(officers OfficerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := officers.Authenticated(c.Request.Context())
		if err != nil {
			logger.FromGin(c).Error("read credentials", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "could not read credentials"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": domain.ErrUnauthenticated.Error()})
			return
		}
		c.Next()
	}
}

type handlers struct {
	deps Deps
}

func (h *handlers) notifications(c *gin.Context) {
	if h.deps.Notifications == nil {
		c.JSON(http.StatusOK, gin.H{"notifications": []notify.Notification{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": h.deps.Notifications.Drain()})
}

func bindListing(c *gin.Context) (listing.Params, bool) {
	var p listing.Params
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid query parameters"})
		return p, false
	}
	return p, true
}
