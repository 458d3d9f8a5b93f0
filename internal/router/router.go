package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restropos/api/internal/config"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/enum"
	"github.com/restropos/api/internal/handler"
	mw "github.com/restropos/api/internal/middleware"
	"github.com/restropos/api/internal/service"
	"github.com/restropos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	userService := service.NewUserService(pool, queries, func(db database.DBTX) service.UserStore {
		return database.New(db)
	}, cfg.JWTSecret)
	authHandler := handler.NewAuthHandler(userService)
	authHandler.RegisterRoutes(r)

	orderService := service.NewOrderService(pool, queries, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})

	// Public customer-facing menu and self-ordering; the QR code scopes
	// the tenant.
	qrMenuHandler := handler.NewQrMenuHandler(queries, orderService, hub)
	qrMenuHandler.RegisterRoutes(r)

	// Kitchen display stream. Token arrives as a query param because
	// browsers cannot set headers on websocket upgrades.
	r.Get("/ws/orders", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeAuthenticated(hub, cfg.JWTSecret, w, req)
	})

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		orderHandler.RegisterRoutes(r)

		tableHandler := handler.NewTableHandler(queries)
		tableHandler.RegisterRoutes(r)

		// Stock and catalog management are kept from cashiers.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))

			inventoryService := service.NewInventoryService(pool, func(db database.DBTX) service.InventoryStore {
				return database.New(db)
			})
			inventoryHandler := handler.NewInventoryHandler(inventoryService, queries)
			inventoryHandler.RegisterRoutes(r)

			menuService := service.NewMenuService(queries)
			menuHandler := handler.NewMenuHandler(menuService, queries)
			menuHandler.RegisterRoutes(r)

			purchaseService := service.NewPurchaseService(pool, func(db database.DBTX) service.PurchaseStore {
				return database.New(db)
			})
			purchaseHandler := handler.NewPurchaseHandler(purchaseService, queries, hub)
			purchaseHandler.RegisterRoutes(r)
		})
	})

	return r
}
