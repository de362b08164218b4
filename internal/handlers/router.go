package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escrow-service/internal/logger"
)

// RouterConfig holds the HTTP-only settings.
type RouterConfig struct {
	Auth            AuthConfig
	VerifyRateLimit float64
	VerifyRateBurst int
	// TrustedProxies lists the proxy addresses or CIDRs whose X-Forwarded-For
	// is believed. Empty means the client IP is always the peer address.
	TrustedProxies []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = h.Logger
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		h.Logger.Error("invalid trusted proxies, trusting none", zap.Strings("trusted_proxies", cfg.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), logger.GinMiddleware(h.Logger))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome To Escrow service",
		})
	})

	verifyLimiter := NewIPRateLimiter(cfg.VerifyRateLimit, cfg.VerifyRateBurst)
	auth := JWTAuth(cfg.Auth)
	verifyAuth := JWTOrUserHeader(cfg.Auth)

	api := r.Group("/api/v1")
	{
		payments := api.Group("/payments")
		payments.POST("/payfast/notify", h.PayFastNotify)
		payments.POST("/payfast/initialize", auth, h.InitializePayFast)
		payments.POST("/payfast/verify", verifyLimiter.Middleware(), verifyAuth, h.VerifyPayFast)
		payments.POST("/tradesafe/initialize", auth, h.InitializeTradeSafe)
		payments.POST("/tradesafe/verify", verifyLimiter.Middleware(), h.VerifyTradeSafe)

		api.GET("/fees/quote", h.QuoteFees)

		wallet := api.Group("/wallet", auth)
		wallet.GET("/balance", h.GetBalance)
		wallet.GET("/history", h.GetHistory)
		wallet.POST("/initialize", h.InitializeWallet)

		withdrawals := api.Group("/withdrawals", auth)
		withdrawals.POST("", h.RequestWithdrawal)
		withdrawals.GET("/mine", h.MyWithdrawals)

		completion := api.Group("/gigs/applications/:id/completion", auth)
		completion.POST("/request", h.RequestCompletion)
		completion.POST("/approve", h.ApproveCompletion)
		completion.POST("/dispute", h.DisputeCompletion)

		admin := api.Group("/admin", auth, AdminOnly(h.Logger))
		admin.GET("/withdrawals", h.ListWithdrawals)
		admin.POST("/withdrawals/:id/approve", h.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/reject", h.RejectWithdrawal)
		admin.GET("/disputes", h.ListDisputes)
		admin.POST("/disputes/:applicationId/resolve", h.ResolveDispute)
	}

	return r
}
