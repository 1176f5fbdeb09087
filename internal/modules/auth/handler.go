package auth

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"videohub/internal/middleware"
	"videohub/internal/pkg/apperr"
	"videohub/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// FileStager saves an incoming multipart file to local disk.
type FileStager interface {
	Stage(fh *multipart.FileHeader) (string, error)
	Discard(paths ...string)
}

// CookieConfig controls the session cookies. Both cookies are always
// HttpOnly.
type CookieConfig struct {
	Secure        bool
	SameSite      http.SameSite
	Path          string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

type Handler struct {
	service *Service
	files   FileStager
	cookies CookieConfig
	events  EventRecorder
}

func NewHandler(service *Service, files FileStager, cookies CookieConfig, events EventRecorder) *Handler {
	if cookies.Path == "" {
		cookies.Path = "/"
	}
	if cookies.SameSite == 0 {
		cookies.SameSite = http.SameSiteLaxMode
	}
	return &Handler{service: service, files: files, cookies: cookies, events: events}
}

func (h *Handler) RegisterPublicRoutes(users *gin.RouterGroup) {
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/refresh-token", h.RefreshToken)
}

func (h *Handler) RegisterProtectedRoutes(users *gin.RouterGroup) {
	users.POST("/logout", h.Logout)
	users.POST("/change-password", h.ChangePassword)
	users.GET("/current-user", h.CurrentUser)
}

// Register godoc
// @Summary Register a user
// @Tags Users
// @Accept multipart/form-data
// @Param fullname formData string true "Full name"
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param avatar formData file true "Avatar image"
// @Param coverImage formData file false "Cover image"
// @Success 201 {object} map[string]interface{}
// @Failure 400,409,500 {object} map[string]interface{}
// @Router /users/register [post]
func (h *Handler) Register(c *gin.Context) {
	in := RegisterInput{
		FullName: c.PostForm("fullname"),
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	}

	var err error
	if in.AvatarPath, err = h.stage(c, "avatar"); err != nil {
		h.fail(c, "register", err)
		return
	}
	if in.CoverPath, err = h.stage(c, "coverImage"); err != nil {
		h.files.Discard(in.AvatarPath)
		h.fail(c, "register", err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	h.record("register", nil)
	response.SuccessWithMessage(c, http.StatusCreated, user, "User registered successfully")
}

// Login godoc
// @Summary Log in with username or email
// @Tags Users
// @Accept json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,404,429 {object} map[string]interface{}
// @Router /users/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, "login", apperr.Validation("Invalid request body"))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	h.setSessionCookies(c, result.TokenPair)
	h.record("login", nil)
	response.SuccessWithMessage(c, http.StatusOK, result, "User logged in successfully")
}

// Logout godoc
// @Summary Log out and revoke the refresh token
// @Tags Users
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /users/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.fail(c, "logout", err)
		return
	}
	h.clearSessionCookies(c)
	h.record("logout", nil)
	response.SuccessWithMessage(c, http.StatusOK, gin.H{}, "User logged out")
}

// RefreshToken godoc
// @Summary Rotate the session tokens
// @Description Reads the refresh token from the refreshToken cookie, the JSON body or the Authorization header.
// @Tags Users
// @Accept json
// @Param request body RefreshRequest false "Refresh token when no cookie is sent"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /users/refresh-token [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	// cookie, then body, then bearer header
	raw, _ := c.Cookie(middleware.RefreshTokenCookie)
	if raw == "" {
		var req RefreshRequest
		_ = c.ShouldBindJSON(&req)
		raw = req.RefreshToken
	}
	if raw == "" {
		raw = middleware.ExtractToken(c.Request, middleware.RefreshTokenCookie)
	}

	pair, err := h.service.Refresh(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}

	h.setSessionCookies(c, *pair)
	h.record("refresh", nil)
	response.SuccessWithMessage(c, http.StatusOK, pair, "Access token refreshed")
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Param request body ChangePasswordRequest true "Old and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401 {object} map[string]interface{}
// @Router /users/change-password [post]
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "change_password", apperr.Validation("Invalid request body"))
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), middleware.UserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		h.fail(c, "change_password", err)
		return
	}
	h.record("change_password", nil)
	response.SuccessWithMessage(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

// CurrentUser godoc
// @Summary Get the authenticated user
// @Tags Users
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /users/current-user [get]
func (h *Handler) CurrentUser(c *gin.Context) {
	if user, ok := middleware.CurrentUser(c); ok {
		response.SuccessWithMessage(c, http.StatusOK, user, "User fetched successfully")
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, user, "User fetched successfully")
}

// stage saves the named form file, returning "" when the field is absent.
func (h *Handler) stage(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", apperr.Validation("Invalid multipart form")
	}
	path, err := h.files.Stage(fh)
	if err != nil {
		return "", apperr.Upload("Failed to receive "+field, err)
	}
	return path, nil
}

func (h *Handler) setSessionCookies(c *gin.Context, pair TokenPair) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, int(h.cookies.AccessMaxAge.Seconds()), h.cookies.Path, "", h.cookies.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, pair.RefreshToken, int(h.cookies.RefreshMaxAge.Seconds()), h.cookies.Path, "", h.cookies.Secure, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, h.cookies.Path, "", h.cookies.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, h.cookies.Path, "", h.cookies.Secure, true)
}

func (h *Handler) fail(c *gin.Context, event string, err error) {
	h.record(event, err)
	response.FromError(c, err)
}

func (h *Handler) record(event string, err error) {
	if h.events == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = apperr.Code(err)
	}
	h.events.AuthEvent(event, outcome)
}
