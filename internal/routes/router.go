package routes

import (
	"net/http"

	"storda-registry/internal/config"
	"storda-registry/internal/database"
	"storda-registry/internal/delivery/http/handler"
	"storda-registry/internal/middleware"
	"storda-registry/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Account  *handler.AccountHandler
	Device   *handler.DeviceHandler
	Transfer *handler.TransferHandler
	Wallet   *handler.WalletHandler
}

// maxRequestBody caps JSON payloads. Evidence uploads go to object storage
// by URL, never through this API.
const maxRequestBody = 1 << 20

func SetupRouter(cfg *config.Config, db *database.Database, h *Handlers) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(maxRequestBody))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "OK", nil)
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/signup", h.Account.SignUp)
		auth.POST("/login", h.Account.Login)
	}

	// Public pre-purchase check; anyone may look up an IMEI's standing.
	v1.GET("/devices/lookup/:imei", h.Device.Lookup)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		account := protected.Group("/account")
		{
			account.GET("/profile", h.Account.Profile)
			account.PUT("/pin", h.Account.SetPin)
		}

		devices := protected.Group("/devices")
		{
			devices.POST("", h.Device.Register)
			devices.GET("", h.Device.List)
			devices.GET("/:id", h.Device.Get)
			devices.GET("/code/:code", h.Device.GetByCode)
			devices.GET("/:id/history", h.Device.History)
			devices.POST("/:id/verify", h.Device.Verify)
			devices.POST("/:id/report", h.Device.Report)
			devices.POST("/:id/recover", h.Device.Recover)
			devices.POST("/:id/activate", h.Device.Activate)
		}

		transfers := protected.Group("/transfers")
		{
			transfers.POST("", h.Transfer.Initiate)
			transfers.GET("", h.Transfer.List)
			transfers.GET("/:id", h.Transfer.Get)
			transfers.POST("/:id/accept", h.Transfer.Accept)
			transfers.POST("/:id/reject", h.Transfer.Reject)
			transfers.POST("/:id/resend-code", h.Transfer.ResendCode)
		}

		wallet := protected.Group("/wallet")
		{
			wallet.GET("", h.Wallet.Balance)
			wallet.POST("/topup", h.Wallet.TopUp)
			wallet.GET("/transactions", h.Wallet.Transactions)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.AdminOnly())
		{
			admin.GET("/statistics", h.Device.Statistics)
		}
	}

	return router
}
