package handlers

import (
	"net/http"

	"questline/config"
	"questline/database"
	"questline/middleware"
	"questline/models"
	"questline/services"

	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	config  *config.Config
	invites *services.InviteService
}

func NewAuthHandler(cfg *config.Config, invites *services.InviteService) *AuthHandler {
	return &AuthHandler{config: cfg, invites: invites}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var user models.User
	if err := database.GetDB().Where("username = ?", req.Username).First(&user).Error; err != nil {
		writeError(w, services.E(services.KindPermissionDenied, "invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, services.E(services.KindPermissionDenied, "invalid credentials"))
		return
	}

	h.issueToken(w, &user)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, user *models.User) {
	token, err := middleware.GenerateToken(user, h.config.JWTExpiration)
	if err != nil {
		writeError(w, services.E(services.KindStorage, "failed to generate token"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.config.JWTExpiration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeError(w, services.E(services.KindPermissionDenied, "current password is incorrect"))
		return
	}
	if len(req.NewPassword) < 5 {
		writeError(w, services.E(services.KindValidation, "password must be at least 5 characters"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, services.E(services.KindStorage, "failed to hash password"))
		return
	}

	user.PasswordHash = string(hashedPassword)
	user.MustChangePassword = false
	if err := database.GetDB().Save(user).Error; err != nil {
		writeError(w, services.E(services.KindStorage, "failed to update password"))
		return
	}

	h.issueToken(w, user)
}

// ValidateInvite lets the signup form check a code before collecting details.
func (h *AuthHandler) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	invite, err := h.invites.Validate(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "role": invite.Role})
}

type registerRequest struct {
	Code     string `json:"code"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.invites.CompleteSignup(req.Code, req.Username, req.FullName, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.issueToken(w, user)
}
