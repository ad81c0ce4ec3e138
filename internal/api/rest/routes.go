package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/knowtix/billing-service/internal/api/rest/handlers"
	"github.com/knowtix/billing-service/internal/middleware"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes groups everything the router mounts.
type Routes struct {
	Auth          *middleware.JWTMiddleware
	Webhooks      *handlers.WebhookHandler
	Subscriptions *handlers.SubscriptionHandler
	Plans         *handlers.PlanHandler
	Chat          *handlers.ChatHandler
	Upload        *handlers.UploadHandler
	Contact       *handlers.ContactHandler
	DB            handlers.Pinger
	Registry      *prometheus.Registry
}

// SetupRouter builds the gin engine with middleware and every route.
func SetupRouter(log *logger.Logger, rt Routes) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck(rt.DB))
	if rt.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		// Provider callbacks authenticate with their own signatures.
		api.POST("/stripe/webhook", rt.Webhooks.HandleStripe)
		api.POST("/webhooks/razorpay", rt.Webhooks.HandleRazorpay)

		api.GET("/plans", rt.Plans.List)
		api.POST("/contact", rt.Contact.Submit)

		authed := api.Group("", rt.Auth.RequireAuth())
		{
			authed.POST("/subscriptions", rt.Subscriptions.CreateRazorpay)
			authed.GET("/subscriptions/me", rt.Subscriptions.GetMine)
			authed.POST("/subscriptions/cancel", rt.Subscriptions.CancelMine)
			authed.POST("/stripe/checkout", rt.Subscriptions.CreateStripeCheckout)
			authed.POST("/chat", rt.Chat.Send)
			authed.POST("/upload", rt.Upload.Upload)
		}
	}
	return r
}
