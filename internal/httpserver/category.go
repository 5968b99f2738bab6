package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type categoryHandlers struct {
	svc    CategoryService
	logger *zap.Logger
}

type categoryRequest struct {
	Name        string `json:"name"`
	UpdatedName string `json:"updatedName"`
}

func (h categoryHandlers) list(c *gin.Context) {
	cats, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, "Error in Cat API")
		return
	}
	respond(c, http.StatusOK, "Categories Fetch Successfully", gin.H{
		"totalCat":   len(cats),
		"categories": cats,
	})
}

func (h categoryHandlers) create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	cat, err := h.svc.Create(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, h.logger, err, "Error In Create Cat API")
		return
	}
	respond(c, http.StatusCreated, cat.Name+" category created successfully", gin.H{"category": cat})
}

// rename accepts either updatedName or name.
func (h categoryHandlers) rename(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	name := req.UpdatedName
	if name == "" {
		name = req.Name
	}
	cat, err := h.svc.Rename(c.Request.Context(), c.Param("id"), name)
	if err != nil {
		writeError(c, h.logger, err, "Error In Update Category API")
		return
	}
	respond(c, http.StatusOK, "Category Updated Successfully", gin.H{"category": cat})
}

func (h categoryHandlers) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err, "Error In Delete Cat API")
		return
	}
	respond(c, http.StatusOK, "Category Deleted Successfully", nil)
}
