package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type cartHandlers struct {
	svc    CartService
	logger *zap.Logger
}

type cartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func (h cartHandlers) add(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	u, _ := currentUser(c)
	cart, err := h.svc.Add(c.Request.Context(), u.ID, req.ProductID, qty)
	if err != nil {
		writeError(c, h.logger, err, "Error in Add to Cart API")
		return
	}
	respond(c, http.StatusOK, "Product added to cart successfully", gin.H{"cart": cart})
}

func (h cartHandlers) get(c *gin.Context) {
	u, _ := currentUser(c)
	cart, err := h.svc.Get(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, h.logger, err, "Error in Get Cart API")
		return
	}
	message := "Cart fetched successfully"
	if len(cart.Items) == 0 {
		message = "Cart is empty"
	}
	respond(c, http.StatusOK, message, gin.H{"cart": cart})
}

func (h cartHandlers) count(c *gin.Context) {
	u, _ := currentUser(c)
	n, err := h.svc.Count(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, h.logger, err, "Error in Get Cart Count API")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n})
}

func (h cartHandlers) update(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	u, _ := currentUser(c)
	cart, err := h.svc.Update(c.Request.Context(), u.ID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, h.logger, err, "Error in Update Cart API")
		return
	}
	respond(c, http.StatusOK, "Cart updated successfully", gin.H{"cart": cart})
}

func (h cartHandlers) remove(c *gin.Context) {
	u, _ := currentUser(c)
	cart, err := h.svc.Remove(c.Request.Context(), u.ID, c.Param("productId"))
	if err != nil {
		writeError(c, h.logger, err, "Error in Remove from Cart API")
		return
	}
	respond(c, http.StatusOK, "Product removed from cart successfully", gin.H{"cart": cart})
}

func (h cartHandlers) clear(c *gin.Context) {
	u, _ := currentUser(c)
	cart, err := h.svc.Clear(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, h.logger, err, "Error in Clear Cart API")
		return
	}
	respond(c, http.StatusOK, "Cart cleared successfully", gin.H{"cart": cart})
}

func (h cartHandlers) checkout(c *gin.Context) {
	u, _ := currentUser(c)
	out, err := h.svc.Checkout(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, h.logger, err, "Error in Checkout API")
		return
	}
	respond(c, http.StatusOK, "Cart is ready for checkout", gin.H{"checkout": out})
}
