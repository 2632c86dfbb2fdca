package handlers

import (
	"github.com/gin-gonic/gin"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/id"
	"tradecore/internal/domain/derivation"
	"tradecore/internal/infrastructure/http/v1/dto"
)

// DerivationHandler exposes the derivation operations and read access to
// the derived documents.
type DerivationHandler struct {
	*BaseHandler
	service  *derivation.Service
	invoices derivation.InvoiceRepository
	orders   derivation.PurchaseOrderRepository
}

// NewDerivationHandler creates a new derivation handler.
func NewDerivationHandler(
	base *BaseHandler,
	service *derivation.Service,
	invoices derivation.InvoiceRepository,
	orders derivation.PurchaseOrderRepository,
) *DerivationHandler {
	return &DerivationHandler{
		BaseHandler: base,
		service:     service,
		invoices:    invoices,
		orders:      orders,
	}
}

// DeriveInvoice handles POST /derive/invoice.
func (h *DerivationHandler) DeriveInvoice(c *gin.Context) {
	var req dto.DeriveInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	inv, err := h.service.DeriveInvoice(c.Request.Context(), domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromInvoice(inv))
}

// DerivePurchaseOrders handles POST /derive/purchase-orders.
func (h *DerivationHandler) DerivePurchaseOrders(c *gin.Context) {
	var req dto.DerivePurchaseOrdersRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	pos, err := h.service.DerivePurchaseOrders(c.Request.Context(), domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromPurchaseOrders(pos))
}

// GetInvoice handles GET /invoices/:id.
func (h *DerivationHandler) GetInvoice(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	inv, err := h.invoices.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoice(inv))
}

// GetInvoiceByNumber handles GET /invoices/by-number/:number.
func (h *DerivationHandler) GetInvoiceByNumber(c *gin.Context) {
	inv, err := h.invoices.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoice(inv))
}

// GetPurchaseOrder handles GET /purchase-orders/:id.
func (h *DerivationHandler) GetPurchaseOrder(c *gin.Context) {
	poID, ok := h.pathID(c)
	if !ok {
		return
	}

	po, err := h.orders.GetByID(c.Request.Context(), poID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseOrder(po))
}

// GetPurchaseOrderByNumber handles GET /purchase-orders/by-number/:number.
func (h *DerivationHandler) GetPurchaseOrderByNumber(c *gin.Context) {
	po, err := h.orders.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseOrder(po))
}

func (h *DerivationHandler) pathID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid identifier").WithDetail("field", "id"))
		return id.Nil(), false
	}
	return parsed, true
}
