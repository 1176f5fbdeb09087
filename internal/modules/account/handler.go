package account

import (
	"errors"
	"net/http"

	"videohub/internal/middleware"
	"videohub/internal/pkg/apperr"
	"videohub/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	files   FileStager
}

func NewHandler(service *Service, files FileStager) *Handler {
	return &Handler{service: service, files: files}
}

// RegisterProtectedRoutes mounts the profile routes; every one of them needs
// an authenticated user.
func (h *Handler) RegisterProtectedRoutes(users *gin.RouterGroup) {
	users.PATCH("/update-account", h.UpdateAccount)
	users.PATCH("/update-avatar", h.UpdateAvatar)
	users.PATCH("/update-cover", h.UpdateCover)
	users.GET("/channel/:username", h.ChannelProfile)
	users.GET("/history", h.WatchHistory)
}

// UpdateAccount godoc
// @Summary Update full name and email
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Param request body UpdateAccountRequest true "New details"
// @Success 200 {object} map[string]interface{}
// @Failure 400,409 {object} map[string]interface{}
// @Router /users/update-account [patch]
func (h *Handler) UpdateAccount(c *gin.Context) {
	var req UpdateAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		response.FromError(c, apperr.Validation("Invalid request body"))
		return
	}

	user, err := h.service.UpdateAccount(c.Request.Context(), middleware.UserID(c), req.FullName, req.Email)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar godoc
// @Summary Replace the avatar image
// @Tags Users
// @Security BearerAuth
// @Accept multipart/form-data
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} map[string]interface{}
// @Failure 400,500 {object} map[string]interface{}
// @Router /users/update-avatar [patch]
func (h *Handler) UpdateAvatar(c *gin.Context) {
	path, ok := h.stage(c, "avatar")
	if !ok {
		return
	}
	user, err := h.service.UpdateAvatar(c.Request.Context(), middleware.UserID(c), path)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, user, "Avatar image updated successfully")
}

// UpdateCover godoc
// @Summary Replace the cover image
// @Tags Users
// @Security BearerAuth
// @Accept multipart/form-data
// @Param coverImage formData file true "Cover image"
// @Success 200 {object} map[string]interface{}
// @Failure 400,500 {object} map[string]interface{}
// @Router /users/update-cover [patch]
func (h *Handler) UpdateCover(c *gin.Context) {
	path, ok := h.stage(c, "coverImage")
	if !ok {
		return
	}
	user, err := h.service.UpdateCover(c.Request.Context(), middleware.UserID(c), path)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, user, "Cover image updated successfully")
}

// ChannelProfile godoc
// @Summary Public channel profile with subscription counts
// @Tags Users
// @Security BearerAuth
// @Param username path string true "Channel username"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /users/channel/{username} [get]
func (h *Handler) ChannelProfile(c *gin.Context) {
	profile, err := h.service.ChannelProfile(c.Request.Context(), middleware.UserID(c), c.Param("username"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, profile, "User channel fetched successfully")
}

// WatchHistory godoc
// @Summary Videos watched by the current user, most recent first
// @Tags Users
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /users/history [get]
func (h *Handler) WatchHistory(c *gin.Context) {
	history, err := h.service.WatchHistory(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, history, "Watch history fetched successfully")
}

// stage writes the error response itself and reports whether to continue. A
// missing file is passed on as "" so the service decides.
func (h *Handler) stage(c *gin.Context, field string) (string, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", true
		}
		response.FromError(c, apperr.Validation("Invalid multipart form"))
		return "", false
	}
	path, err := h.files.Stage(fh)
	if err != nil {
		response.FromError(c, apperr.Upload("Failed to receive "+field, err))
		return "", false
	}
	return path, true
}
