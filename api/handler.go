package api

import (
	"errors"
	"net/http"

	"nft_sale/internal/sale"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// capabilityHeader carries the bearer proof for privileged operations.
const capabilityHeader = "X-Capability"

// saleHandler holds the sale service and implements HTTP handlers for the
// escrow operations.
type saleHandler struct {
	saleService *sale.Service
	logger      *zap.Logger
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(saleService *sale.Service, logger *zap.Logger) *saleHandler {
	return &saleHandler{
		saleService: saleService,
		logger:      logger,
	}
}

// writeError maps the service's typed errors onto HTTP status codes.
func (h *saleHandler) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, sale.ErrUnauthorized):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, sale.ErrNotFound), errors.Is(err, sale.ErrCapabilityNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sale.ErrSaleClosed),
		errors.Is(err, sale.ErrNothingToWithdraw),
		errors.Is(err, sale.ErrInsufficientBalance),
		errors.Is(err, sale.ErrDuplicateItem),
		errors.Is(err, sale.ErrNotRecallable):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, sale.ErrInsufficientPayment):
		ctx.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, sale.ErrWrongToken),
		errors.Is(err, sale.ErrQuantityLimit),
		errors.Is(err, sale.ErrInvalidPrice),
		errors.Is(err, sale.ErrNonFungiblePayment),
		errors.Is(err, sale.ErrWrongItemKind):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("internal error", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// handleInstantiate handles POST /sales.
func (h *saleHandler) handleInstantiate(ctx *gin.Context) {
	var req struct {
		ItemKind     sale.ResourceKind `json:"item_kind"`
		PaymentKind  sale.ResourceKind `json:"payment_kind"`
		InitialPrice decimal.Decimal   `json:"initial_price"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	info, ownerCap, adminCap, err := h.saleService.Instantiate(req.ItemKind, req.PaymentKind, req.InitialPrice)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"sale":             info,
		"owner_capability": ownerCap,
		"admin_capability": adminCap,
	})
}

// handleListSales handles GET /sales.
func (h *saleHandler) handleListSales(ctx *gin.Context) {
	infos, err := h.saleService.ListSales()
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"results": infos})
}

// handleGetSale handles GET /sales/:id.
func (h *saleHandler) handleGetSale(ctx *gin.Context) {
	info, err := h.saleService.GetSale(ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, info)
}

// handleStartSale handles POST /sales/:id/start.
func (h *saleHandler) handleStartSale(ctx *gin.Context) {
	if err := h.saleService.StartSale(ctx.Param("id"), ctx.GetHeader(capabilityHeader)); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sale_open": true})
}

// handleEndSale handles POST /sales/:id/end.
func (h *saleHandler) handleEndSale(ctx *gin.Context) {
	if err := h.saleService.EndSale(ctx.Param("id"), ctx.GetHeader(capabilityHeader)); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sale_open": false})
}

// handleChangePrice handles PATCH /sales/:id/price.
func (h *saleHandler) handleChangePrice(ctx *gin.Context) {
	var req struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.saleService.ChangePrice(ctx.Param("id"), ctx.GetHeader(capabilityHeader), req.Price); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"unit_price": req.Price})
}

// handleAddItems handles POST /sales/:id/items.
func (h *saleHandler) handleAddItems(ctx *gin.Context) {
	var req struct {
		Items []sale.Item `json:"items"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.saleService.AddItems(ctx.Param("id"), ctx.GetHeader(capabilityHeader), req.Items); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"deposited": len(req.Items)})
}

// handleBuy handles POST /sales/:id/purchases.
func (h *saleHandler) handleBuy(ctx *gin.Context) {
	var req struct {
		Payment sale.Payment `json:"payment"`
		Count   int          `json:"count"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	change, items, err := h.saleService.Buy(ctx.Param("id"), req.Payment, req.Count)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"change": change,
		"items":  items,
	})
}

// handleWithdrawProfits handles POST /sales/:id/withdrawals.
func (h *saleHandler) handleWithdrawProfits(ctx *gin.Context) {
	profits, err := h.saleService.WithdrawProfits(ctx.Param("id"), ctx.GetHeader(capabilityHeader))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profits": profits})
}

// handleMintAdmin handles POST /sales/:id/admins.
func (h *saleHandler) handleMintAdmin(ctx *gin.Context) {
	adminCap, err := h.saleService.MintAdmin(ctx.Param("id"), ctx.GetHeader(capabilityHeader))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"admin_capability": adminCap})
}

// handleRevokeAdmin handles DELETE /sales/:id/admins/:capID.
func (h *saleHandler) handleRevokeAdmin(ctx *gin.Context) {
	if err := h.saleService.RevokeAdmin(ctx.Param("id"), ctx.GetHeader(capabilityHeader), ctx.Param("capID")); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"revoked": ctx.Param("capID")})
}

// handlePrice handles GET /sales/:id/price.
func (h *saleHandler) handlePrice(ctx *gin.Context) {
	kind, price, err := h.saleService.Price(ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"kind": kind, "amount": price})
}

// handleIsSold handles GET /sales/:id/sold.
func (h *saleHandler) handleIsSold(ctx *gin.Context) {
	sold, err := h.saleService.IsSold(ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sold": sold})
}
