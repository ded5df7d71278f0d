package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"stylehub/internal/cart"
	"stylehub/internal/config"
	"stylehub/internal/coupon"
	"stylehub/internal/database"
	"stylehub/internal/events"
	"stylehub/internal/handlers"
	"stylehub/internal/middleware"
	"stylehub/internal/order"
	"stylehub/internal/ratelimit"
)

func main() {
	config.Load()

	if config.AppEnv.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)
	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Println("user index warning:", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Println("product index warning:", err)
	}
	if err := database.EnsureCategoryIndexes(db); err != nil {
		log.Println("category index warning:", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Println("cart index warning:", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Println("order index warning:", err)
	}
	if err := database.EnsureWishlistIndexes(db); err != nil {
		log.Println("wishlist index warning:", err)
	}
	if err := database.EnsureRefreshTokenIndexes(db); err != nil {
		log.Println("refresh token index warning:", err)
	}

	var limiter *ratelimit.Limiter
	if config.AppEnv.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     config.AppEnv.RedisAddr,
			Password: config.AppEnv.RedisPassword,
		})
		limiter = ratelimit.NewLimiter(redisClient, "ratelimit:")
		log.Println("Redis rate limiting enabled:", config.AppEnv.RedisAddr)
	} else {
		log.Println("REDIS_ADDR not set, rate limiting disabled")
	}

	var publisher *events.Publisher
	if config.AppEnv.AmqpURL != "" {
		publisher, err = events.NewPublisher(config.AppEnv.AmqpURL)
		if err != nil {
			log.Println("event publisher disabled:", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	} else {
		log.Println("AMQP_URL not set, order events disabled")
	}

	cartEngine := cart.Engine{
		TTL:     config.AppEnv.CartTTL,
		Coupons: coupon.NewStaticStore(),
	}
	pricing := order.PricingConfig{
		TaxRate:         config.AppEnv.TaxRate,
		ShippingFlat:    config.AppEnv.ShippingFlat,
		FreeShippingMin: config.AppEnv.FreeShippingMin,
	}

	secret := config.AppEnv.JWTSecret
	accessTTL := config.AppEnv.AccessTokenTTL
	refreshTTL := config.AppEnv.RefreshTokenTTL

	if !config.AppEnv.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Optional auth runs first so the rate limiter keys authenticated
	// traffic by user id instead of client IP.
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(db, secret))
	api.Use(ratelimit.Middleware(limiter, "api", 100, time.Minute))

	authLimited := ratelimit.Middleware(limiter, "auth", 10, time.Minute)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authLimited, handlers.Register(db, secret, accessTTL, refreshTTL))
		auth.POST("/login", authLimited, handlers.Login(db, secret, accessTTL, refreshTTL))
		auth.POST("/refresh", authLimited, handlers.Refresh(db, secret, accessTTL, refreshTTL))
		auth.POST("/logout", handlers.Logout(db))
		auth.POST("/forgot-password", authLimited, handlers.ForgotPassword(db))
		auth.POST("/reset-password", authLimited, handlers.ResetPassword(db))

		auth.GET("/me", middleware.UserAuth(db, secret), handlers.GetMe())
		auth.PUT("/profile", middleware.UserAuth(db, secret), handlers.UpdateProfile(db))
		auth.PUT("/password", middleware.UserAuth(db, secret), handlers.ChangePassword(db))

		auth.GET("/addresses", middleware.UserAuth(db, secret), handlers.GetAddresses(db))
		auth.POST("/addresses", middleware.UserAuth(db, secret), handlers.AddAddress(db))
		auth.PUT("/addresses/:addressId", middleware.UserAuth(db, secret), handlers.UpdateAddress(db))
		auth.DELETE("/addresses/:addressId", middleware.UserAuth(db, secret), handlers.DeleteAddress(db))
	}

	api.GET("/products", handlers.GetProducts(db))
	api.GET("/products/featured", handlers.GetFeaturedProducts(db))
	api.GET("/products/new", handlers.GetNewProducts(db))
	api.GET("/products/search", handlers.SearchProducts(db))
	api.GET("/products/category/:categoryId", handlers.GetProductsByCategory(db))
	api.GET("/products/:id", handlers.GetProduct(db))

	api.GET("/categories", handlers.GetCategories(db))
	api.GET("/categories/:id", handlers.GetCategory(db))

	cartGroup := api.Group("/cart")
	cartGroup.Use(middleware.UserAuth(db, secret))
	{
		cartGroup.GET("", handlers.GetCart(db, cartEngine))
		cartGroup.DELETE("", handlers.ClearCart(db, cartEngine))
		cartGroup.POST("/items", handlers.AddToCart(db, cartEngine))
		cartGroup.PUT("/items/:itemId", handlers.UpdateCartItem(db, cartEngine))
		cartGroup.DELETE("/items/:itemId", handlers.RemoveCartItem(db, cartEngine))
		cartGroup.POST("/coupon", handlers.ApplyCartCoupon(db, cartEngine))
		cartGroup.DELETE("/coupon", handlers.RemoveCartCoupon(db, cartEngine))
		cartGroup.POST("/validate", handlers.ValidateCart(db, cartEngine))
	}

	orders := api.Group("/orders")
	orders.Use(middleware.UserAuth(db, secret))
	{
		orders.POST("", handlers.Checkout(db, cartEngine, pricing, publisher))
		orders.GET("", handlers.GetMyOrders(db))
		orders.GET("/:id", handlers.GetOrder(db))
		orders.POST("/:id/cancel", handlers.CancelOrder(db, publisher))
		orders.POST("/:id/pay", handlers.PayOrder(db, publisher))
	}

	wishlist := api.Group("/wishlist")
	wishlist.Use(middleware.UserAuth(db, secret))
	{
		wishlist.GET("", handlers.GetWishlist(db))
		wishlist.POST("", handlers.AddToWishlist(db))
		wishlist.DELETE("/:productId", handlers.RemoveFromWishlist(db))
	}

	admin := api.Group("/admin")
	admin.Use(middleware.UserAuth(db, secret), middleware.AdminOnly())
	{
		admin.GET("/products", handlers.GetAllProducts(db))
		admin.GET("/products/stats", handlers.GetProductStats(db))
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))

		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(db, publisher))

		admin.GET("/users", handlers.GetUsers(db))
		admin.GET("/users/:id", handlers.GetUser(db))
		admin.PUT("/users/:id", handlers.UpdateUser(db))
		admin.DELETE("/users/:id", handlers.DeleteUser(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
