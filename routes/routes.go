package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stayhub-backend/controllers"
	"stayhub-backend/middleware"
)

func parseCorsOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// SetupRouter รับ Controller Instances เข้ามาเพื่อกำหนด Route
func SetupRouter(
	bc *controllers.BookingController,
	pc *controllers.PaymentController,
	lc *controllers.LoyaltyController,
	corsOrigins string,
	log *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))

	origins := parseCorsOrigins(corsOrigins)
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-User-ID", "X-User-Role"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.Actor())
	{
		// Bookings
		bookings := api.Group("/bookings")
		{
			bookings.POST("", bc.CreateBooking)
			bookings.GET("/:id", bc.GetBookingDetails)
			bookings.POST("/:id/cancel", bc.CancelBooking)
			bookings.POST("/:id/redeem-points", bc.RedeemPoints)

			// Front-desk operations
			bookings.POST("/:id/checkin", bc.CheckIn)
			bookings.POST("/:id/checkout", bc.CheckOut)
			bookings.POST("/:id/no-show", bc.MarkNoShow)
		}

		// Payments
		payments := api.Group("/payments")
		{
			payments.POST("/intent", pc.CreateIntent)
			payments.POST("/confirm", pc.ConfirmPayment)
			payments.POST("/:id/refund", pc.Refund)

			// webhook ยืนยันตัวตนด้วยลายเซ็น HMAC ไม่ใช่ header ผู้ใช้
			payments.POST("/webhook", pc.HandleWebhook)
		}

		// Loyalty
		loyalty := api.Group("/loyalty")
		{
			loyalty.GET("/account", lc.GetMyAccount)
			loyalty.GET("/:customerId", lc.GetAccount)
			loyalty.POST("/:customerId/adjust", lc.AdjustPoints)
			loyalty.GET("/:customerId/reconcile", lc.ReconcileBalance)
		}
	}

	return r
}
