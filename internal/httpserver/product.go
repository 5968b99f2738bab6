package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	productsvc "storefront/internal/service/product"
)

type productHandlers struct {
	svc     ProductService
	logger  *zap.Logger
	uploads *uploadValidator
}

type productUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Stock       *int    `json:"stock"`
	Category    *string `json:"category"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h productHandlers) list(c *gin.Context) {
	products, err := h.svc.List(c.Request.Context(), c.Query("keyword"), c.Query("category"))
	if err != nil {
		writeError(c, h.logger, err, "Error In Get All Products API")
		return
	}
	respond(c, http.StatusOK, "all products fetched successfully", gin.H{
		"totalProducts": len(products),
		"products":      products,
	})
}

func (h productHandlers) top(c *gin.Context) {
	products, err := h.svc.Top(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, "Error In Get Top Products API")
		return
	}
	respond(c, http.StatusOK, "top 3 products", gin.H{"products": products})
}

func (h productHandlers) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "Error In Get Single Product API")
		return
	}
	respond(c, http.StatusOK, "Single Product", gin.H{"product": p})
}

func (h productHandlers) create(c *gin.Context) {
	price, err := formInt(c, "price")
	if err != nil {
		writeError(c, h.logger, err, "Error In Create Product API")
		return
	}
	stock, err := formInt(c, "stock")
	if err != nil {
		writeError(c, h.logger, err, "Error In Create Product API")
		return
	}
	up, closeFn, err := h.uploads.formUpload(c)
	defer closeFn()
	if err != nil {
		writeError(c, h.logger, err, "Error In Create Product API")
		return
	}

	p, err := h.svc.Create(c.Request.Context(), productsvc.CreateInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       price,
		Stock:       int(stock),
		CategoryID:  c.PostForm("category"),
	}, up)
	if err != nil {
		writeError(c, h.logger, err, "Error In Create Product API")
		return
	}
	respond(c, http.StatusCreated, "Product Created Successfully", gin.H{"product": p})
}

func (h productHandlers) update(c *gin.Context) {
	var req productUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), productsvc.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.Category,
	})
	if err != nil {
		writeError(c, h.logger, err, "Error In Update Product API")
		return
	}
	respond(c, http.StatusOK, "Product Details Updated", gin.H{"product": p})
}

func (h productHandlers) addImage(c *gin.Context) {
	up, closeFn, err := h.uploads.requireUpload(c)
	defer closeFn()
	if err != nil {
		writeError(c, h.logger, err, "Error In Update Product Image API")
		return
	}
	p, err := h.svc.AddImage(c.Request.Context(), c.Param("id"), *up)
	if err != nil {
		writeError(c, h.logger, err, "Error In Update Product Image API")
		return
	}
	respond(c, http.StatusOK, "Product Image Updated", gin.H{"product": p})
}

func (h productHandlers) deleteImage(c *gin.Context) {
	imageID := strings.TrimSpace(c.Query("id"))
	if imageID == "" {
		fail(c, http.StatusBadRequest, "image id is required")
		return
	}
	if err := h.svc.DeleteImage(c.Request.Context(), c.Param("id"), imageID); err != nil {
		writeError(c, h.logger, err, "Error In Delete Product Image API")
		return
	}
	respond(c, http.StatusOK, "Product Image Deleted Successfully", nil)
}

func (h productHandlers) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err, "Error In Delete Product API")
		return
	}
	respond(c, http.StatusOK, "Product Deleted Successfully", nil)
}

func (h productHandlers) review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	u, _ := currentUser(c)
	p, err := h.svc.Review(c.Request.Context(), c.Param("id"), *u, productsvc.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(c, h.logger, err, "Error In Review API")
		return
	}
	respond(c, http.StatusOK, "Review Added!", gin.H{"product": p})
}

// formInt parses an optional integer form field; a missing field is 0.
func formInt(c *gin.Context, key string) (int64, error) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.Invalid("%s must be a whole number", key)
	}
	return n, nil
}
