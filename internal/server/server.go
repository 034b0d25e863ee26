package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/luxe/internal/auth"
	"github.com/matthieukhl/luxe/internal/notify"
	"github.com/matthieukhl/luxe/internal/shop"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps wires the services the HTTP layer exposes.
type Deps struct {
	Catalog     *shop.Catalog
	Carts       *shop.CartService
	Checkout    *shop.CheckoutEngine
	Orders      *shop.OrderService
	Accounts    *shop.Accounts
	Tokens      *auth.TokenIssuer
	Hub         *notify.Hub
	Health      HealthChecker
	Logger      *slog.Logger
	CORSOrigins []string
}

type Server struct {
	router   *gin.Engine
	catalog  *shop.Catalog
	carts    *shop.CartService
	checkout *shop.CheckoutEngine
	orders   *shop.OrderService
	accounts *shop.Accounts
	tokens   *auth.TokenIssuer
	hub      *notify.Hub
	health   HealthChecker
	logger   *slog.Logger
}

// NewServer creates a new server instance
func NewServer(d Deps) *Server {
	registerValidators()

	router := gin.New()

	server := &Server{
		router:   router,
		catalog:  d.Catalog,
		carts:    d.Carts,
		checkout: d.Checkout,
		orders:   d.Orders,
		accounts: d.Accounts,
		tokens:   d.Tokens,
		hub:      d.Hub,
		health:   d.Health,
		logger:   d.Logger,
	}

	router.Use(gin.Recovery(), server.requestID(), server.requestLogger(), corsMiddleware(d.CORSOrigins))
	server.setupRoutes()
	return server
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		api.POST("/signup", s.signup)
		api.POST("/login", s.login)
		api.POST("/admin/login", s.adminLogin)
		api.POST("/token/refresh", s.refreshToken)

		api.GET("/products", s.listProducts)
		api.GET("/products/:id", s.getProduct)
		api.GET("/categories", s.listCategories)
	}

	user := api.Group("", s.authRequired())
	{
		user.GET("/profile", s.getProfile)
		user.PUT("/profile", s.updateProfile)

		user.GET("/cart", s.viewCart)
		user.POST("/cart/add", s.addToCart)
		user.PATCH("/cart/items/:id", s.updateCartItem)
		user.DELETE("/cart/items/:id", s.removeCartItem)
		user.DELETE("/cart/clear", s.clearCart)

		user.POST("/orders/checkout", s.checkoutCart)
		user.GET("/orders", s.listMyOrders)
	}

	admin := api.Group("/admin", s.authRequired(), s.adminRequired())
	{
		admin.GET("/stats", s.stats)

		admin.GET("/products", s.adminListProducts)
		admin.POST("/products", s.createProduct)
		admin.GET("/products/:id", s.adminGetProduct)
		admin.PUT("/products/:id", s.replaceProduct)
		admin.PATCH("/products/:id", s.patchProduct)
		admin.DELETE("/products/:id", s.deleteProduct)
		admin.POST("/categories", s.createCategory)
		admin.DELETE("/categories/:id", s.deleteCategory)

		admin.GET("/orders", s.adminListOrders)
		admin.GET("/orders/export", s.exportOrders)
		admin.GET("/orders/live", s.liveOrders)
		admin.GET("/orders/:id", s.adminGetOrder)
		admin.PATCH("/orders/:id", s.adminUpdateOrder)

		admin.GET("/users", s.adminListUsers)
		admin.POST("/create-admin", s.createAdmin)
		admin.GET("/users/:id", s.adminGetUser)
		admin.PATCH("/users/:id", s.adminUpdateUser)
		admin.DELETE("/users/:id", s.adminDeleteUser)
		admin.PATCH("/users/:id/toggle-staff", s.toggleStaff)
		admin.PATCH("/users/:id/ban", s.toggleBan)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "luxe",
		"version": "0.1.0",
	})
}

// Run serves HTTP on addr until ctx is cancelled, then drains in-flight
// requests for at most shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errCh
}
