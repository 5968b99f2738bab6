package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	cartsvc "storefront/internal/service/cart"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
	"storefront/internal/storage"
)

// UserService is the subset of user behaviour used by the handlers.
type UserService interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usersvc.LoginResult, error)
	Authenticate(ctx context.Context, raw string) (*domain.User, usersvc.Session, error)
	Logout(ctx context.Context, sess usersvc.Session) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in usersvc.ProfileInput) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	UpdatePicture(ctx context.Context, userID string, up storage.Upload) (*domain.User, error)
}

type ProductService interface {
	List(ctx context.Context, keyword, categoryID string) ([]domain.Product, error)
	Top(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.CreateInput, img *storage.Upload) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.UpdateInput) (*domain.Product, error)
	AddImage(ctx context.Context, id string, img storage.Upload) (*domain.Product, error)
	DeleteImage(ctx context.Context, productID, imageID string) error
	Delete(ctx context.Context, id string) error
	Review(ctx context.Context, productID string, author domain.User, in productsvc.ReviewInput) (*domain.Product, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, name string) (*domain.Category, error)
	Rename(ctx context.Context, id, name string) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

type CartService interface {
	Add(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Count(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, userID, productID string, quantity *int) (*domain.Cart, error)
	Remove(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) (*domain.Cart, error)
	Checkout(ctx context.Context, userID string) (*cartsvc.Checkout, error)
}

type OrderService interface {
	Create(ctx context.Context, userID string, in ordersvc.CreateInput) (*domain.Order, bool, error)
	MyOrders(ctx context.Context, userID string) ([]domain.Order, error)
	Get(ctx context.Context, viewer domain.User, id string) (*domain.Order, error)
	AdminList(ctx context.Context) ([]domain.Order, error)
	ChangeStatus(ctx context.Context, id, target string) (*ordersvc.StatusChange, error)
	CreatePayment(ctx context.Context, amount int64) (string, error)
}

// Pinger reports database reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries the services and settings the router needs.
type Deps struct {
	Users      UserService
	Products   ProductService
	Categories CategoryService
	Carts      CartService
	Orders     OrderService

	DB      Pinger
	Metrics *metrics.Metrics

	AllowedOrigins     []string
	CookieSecure       bool
	LoginRatePerMinute int
	MaxUploadBytes     int64
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	logger = logging.OrNop(logger)
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(logger), corsMiddleware(deps.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Welcome to the storefront API"})
	})
	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))

	uploads := newUploadValidator(deps.MaxUploadBytes)
	auth := authRequired(deps.Users, logger)
	admin := adminOnly()
	limiter := newIPRateLimiter(deps.LoginRatePerMinute, 10*time.Minute)

	v1 := router.Group("/api/v1")

	users := v1.Group("/user")
	{
		h := userHandlers{svc: deps.Users, logger: logger, uploads: uploads, cookieSecure: deps.CookieSecure}
		users.POST("/register", limiter.middleware(), h.register)
		users.POST("/login", limiter.middleware(), h.login)
		users.GET("/logout", auth, h.logout)
		users.GET("/profile", auth, h.profile)
		users.PUT("/profile-update", auth, h.updateProfile)
		users.PUT("/update-password", auth, h.updatePassword)
		users.PUT("/update-picture", auth, h.updatePicture)
	}

	products := v1.Group("/product")
	{
		h := productHandlers{svc: deps.Products, logger: logger, uploads: uploads}
		products.GET("/get-all", h.list)
		products.GET("/top", h.top)
		products.GET("/:id", h.get)
		products.POST("/create", auth, admin, h.create)
		products.PUT("/:id", auth, admin, h.update)
		products.PUT("/image/:id", auth, admin, h.addImage)
		products.DELETE("/delete-image/:id", auth, admin, h.deleteImage)
		products.DELETE("/delete/:id", auth, admin, h.delete)
		products.PUT("/:id/review", auth, h.review)
	}

	categories := v1.Group("/cat")
	{
		h := categoryHandlers{svc: deps.Categories, logger: logger}
		categories.GET("/get-all", h.list)
		categories.POST("/create", auth, admin, h.create)
		categories.PUT("/update/:id", auth, admin, h.rename)
		categories.DELETE("/delete/:id", auth, admin, h.delete)
	}

	carts := v1.Group("/cart", auth)
	{
		h := cartHandlers{svc: deps.Carts, logger: logger}
		carts.POST("/add", h.add)
		carts.GET("", h.get)
		carts.GET("/count", h.count)
		carts.PUT("/update", h.update)
		carts.DELETE("/remove/:productId", h.remove)
		carts.DELETE("/clear", h.clear)
		carts.GET("/checkout", h.checkout)
	}

	orders := v1.Group("/order", auth)
	{
		h := orderHandlers{svc: deps.Orders, logger: logger}
		orders.POST("/create", h.create)
		orders.GET("/my-orders", h.myOrders)
		orders.GET("/my-orders/:id", h.get)
		orders.POST("/payments", h.payment)
		orders.GET("/admin/get-all-orders", admin, h.adminList)
		orders.PUT("/admin/order/:id", admin, h.changeStatus)
	}

	return router, nil
}
