package handler

import (
	"github.com/dafibh/fortuna/tokenledger/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter echo.MiddlewareFunc, ledgerHandler *LedgerHandler, wsHandler *WebSocketHandler) {
	api := e.Group("/api/v1")

	ws := api.Group("/ws")
	ws.GET("", wsHandler.HandleWS)

	tokens := api.Group("/ledger")
	tokens.Use(authMiddleware.Authenticate())
	tokens.Use(rateLimiter)

	tokens.GET("/balance", ledgerHandler.GetBalance)
	tokens.GET("/history", ledgerHandler.History)
	tokens.GET("/transactions/:id", ledgerHandler.GetTransaction)
	tokens.POST("/deduct", ledgerHandler.Deduct)
	tokens.POST("/transfer", ledgerHandler.Transfer)
	tokens.POST("/hold", ledgerHandler.Hold)
	tokens.POST("/hold/capture", ledgerHandler.Capture)
	tokens.POST("/hold/reverse", ledgerHandler.Reverse)
	tokens.POST("/hold/extend", ledgerHandler.Extend)

	admin := tokens.Group("/admin")
	admin.Use(authMiddleware.RequireAdmin())
	admin.POST("/adjust", ledgerHandler.AdjustAdmin)
}
