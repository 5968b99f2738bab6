package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ordersvc "storefront/internal/service/order"
)

const idempotencyHeader = "Idempotency-Key"

type orderHandlers struct {
	svc    OrderService
	logger *zap.Logger
}

type paymentRequest struct {
	TotalAmount int64 `json:"totalAmount"`
}

type statusRequest struct {
	OrderStatus string `json:"orderStatus"`
}

func (h orderHandlers) create(c *gin.Context) {
	var req ordersvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req.IdempotencyKey = c.GetHeader(idempotencyHeader)

	u, _ := currentUser(c)
	order, replayed, err := h.svc.Create(c.Request.Context(), u.ID, req)
	if err != nil {
		writeError(c, h.logger, err, "Error In Create Order API")
		return
	}
	if replayed {
		respond(c, http.StatusOK, "Order already placed", gin.H{"order": order})
		return
	}
	respond(c, http.StatusCreated, "Order Placed Successfully", gin.H{"order": order})
}

func (h orderHandlers) myOrders(c *gin.Context) {
	u, _ := currentUser(c)
	orders, err := h.svc.MyOrders(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, h.logger, err, "Error In My orders Order API")
		return
	}
	respond(c, http.StatusOK, "your orders data", gin.H{"totalOrder": len(orders), "orders": orders})
}

func (h orderHandlers) get(c *gin.Context) {
	u, _ := currentUser(c)
	order, err := h.svc.Get(c.Request.Context(), *u, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "Error In Get Order API")
		return
	}
	respond(c, http.StatusOK, "your order fetched", gin.H{"order": order})
}

func (h orderHandlers) payment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, "Total Amount is require")
		return
	}
	secret, err := h.svc.CreatePayment(c.Request.Context(), req.TotalAmount)
	if err != nil {
		writeError(c, h.logger, err, "Error In Payments API")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "client_secret": secret})
}

func (h orderHandlers) adminList(c *gin.Context) {
	orders, err := h.svc.AdminList(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, "Error In Get All Orders API")
		return
	}
	respond(c, http.StatusOK, "All Orders Data", gin.H{"totalOrders": len(orders), "orders": orders})
}

// changeStatus sets orderStatus from the body, or advances one step when
// the body is empty.
func (h orderHandlers) changeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	change, err := h.svc.ChangeStatus(c.Request.Context(), c.Param("id"), req.OrderStatus)
	if err != nil {
		writeError(c, h.logger, err, "Internal server error while updating order status")
		return
	}
	respond(c, http.StatusOK, "Order status updated from "+string(change.OldStatus)+" to "+string(change.NewStatus), gin.H{"data": change})
}
