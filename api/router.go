package api

import (
	"net/http"

	"nft_sale/internal/sale"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InitRoutes registers all escrow endpoints on the given Gin engine. It
// initializes the storage, service, and handler, then binds each HTTP
// method and path to the appropriate handler function.
func InitRoutes(e *gin.Engine) {
	logger, _ := zap.NewProduction()

	saleStorage := sale.NewLocalStorage()
	saleService := sale.NewService(saleStorage, logger)
	InitRoutesWithService(e, saleService, logger)
}

// InitRoutesWithService binds the routes against an already-constructed
// service. Tests use this to inject their own storage and logger.
func InitRoutesWithService(e *gin.Engine, saleService *sale.Service, logger *zap.Logger) {
	h := NewSaleHandler(saleService, logger)

	e.POST("/sales", h.handleInstantiate)
	e.GET("/sales", h.handleListSales)
	e.GET("/sales/:id", h.handleGetSale)

	e.POST("/sales/:id/start", h.handleStartSale)
	e.POST("/sales/:id/end", h.handleEndSale)
	e.PATCH("/sales/:id/price", h.handleChangePrice)
	e.POST("/sales/:id/items", h.handleAddItems)

	e.POST("/sales/:id/purchases", h.handleBuy)
	e.POST("/sales/:id/withdrawals", h.handleWithdrawProfits)

	e.POST("/sales/:id/admins", h.handleMintAdmin)
	e.DELETE("/sales/:id/admins/:capID", h.handleRevokeAdmin)

	e.GET("/sales/:id/price", h.handlePrice)
	e.GET("/sales/:id/sold", h.handleIsSold)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
