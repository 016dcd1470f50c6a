package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mvasilyev/mediavault/internal/logging"
	"github.com/mvasilyev/mediavault/internal/server/models"
	"github.com/mvasilyev/mediavault/internal/server/services"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string              `json:"token"`
	User  *models.AccountView `json:"user"`
}

// AuthHandler serves registration and login.
type AuthHandler struct {
	users  *services.UserService
	logger logging.Logger
}

func NewAuthHandler(users *services.UserService, logger logging.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger.With("component", "auth_handler")}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	token, account, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.logger.Warn(r.Context(), "registration failed", "email", req.Email, "error", err)
		writeServiceError(w, err)
		return
	}

	h.logger.Info(r.Context(), "account registered", "account_id", account.ID)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: account})
}

// Me returns the account behind the bearer token. Sits behind the auth
// middleware, so a missing context id means the token subject is stale.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	account, err := h.users.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, account, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn(r.Context(), "login failed", "email", req.Email, "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: account})
}
