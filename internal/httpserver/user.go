package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	usersvc "storefront/internal/service/user"
)

type userHandlers struct {
	svc          UserService
	logger       *zap.Logger
	uploads      *uploadValidator
	cookieSecure bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h userHandlers) register(c *gin.Context) {
	var req usersvc.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.svc.Register(c.Request.Context(), req); err != nil {
		writeError(c, h.logger, err, "Error In Register API")
		return
	}
	respond(c, http.StatusCreated, "Registration success, please login", nil)
}

func (h userHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err, "Error In Login API")
		return
	}
	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, res.Token, maxAge, "/", "", h.cookieSecure, true)
	respond(c, http.StatusOK, "Login Successfully", gin.H{"token": res.Token, "user": res.User})
}

func (h userHandlers) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), currentSession(c)); err != nil {
		writeError(c, h.logger, err, "Error In Logout API")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", h.cookieSecure, true)
	respond(c, http.StatusOK, "Logout successfully", nil)
}

func (h userHandlers) profile(c *gin.Context) {
	u, _ := currentUser(c)
	fresh, err := h.svc.Profile(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, h.logger, err, "Error In Profile API")
		return
	}
	respond(c, http.StatusOK, "User Profile Fetched Successfully", gin.H{"user": fresh})
}

func (h userHandlers) updateProfile(c *gin.Context) {
	var req usersvc.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	u, _ := currentUser(c)
	updated, err := h.svc.UpdateProfile(c.Request.Context(), u.ID, req)
	if err != nil {
		writeError(c, h.logger, err, "Error In Update Profile API")
		return
	}
	respond(c, http.StatusOK, "User Profile Updated", gin.H{"user": updated})
}

func (h userHandlers) updatePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	u, _ := currentUser(c)
	if err := h.svc.UpdatePassword(c.Request.Context(), u.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(c, h.logger, err, "Error In Update Password API")
		return
	}
	respond(c, http.StatusOK, "Password Updated Successfully", nil)
}

func (h userHandlers) updatePicture(c *gin.Context) {
	up, closeFn, err := h.uploads.requireUpload(c)
	defer closeFn()
	if err != nil {
		writeError(c, h.logger, err, "Error In Update Profile Picture API")
		return
	}
	u, _ := currentUser(c)
	updated, err := h.svc.UpdatePicture(c.Request.Context(), u.ID, *up)
	if err != nil {
		writeError(c, h.logger, err, "Error In Update Profile Picture API")
		return
	}
	respond(c, http.StatusOK, "Profile picture updated", gin.H{"user": updated})
}
