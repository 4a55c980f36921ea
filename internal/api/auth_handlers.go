package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/grocer-shop/internal/api/middleware"
	"github.com/example/grocer-shop/internal/auth"
)

// AuthHandlers handles registration and login.
type AuthHandlers struct {
	accounts   *auth.Accounts
	jwtService *auth.JWTService
}

func NewAuthHandlers(accounts *auth.Accounts, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		accounts:   accounts,
		jwtService: jwtService,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
	Message string       `json:"message,omitempty"`
}

// UserResponse represents account data in responses
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Register handles account registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Register(req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			respondJSONError(w, "Email already registered", http.StatusConflict)
		case errors.Is(err, auth.ErrPasswordTooShort):
			respondJSONError(w, "Password must be at least 8 characters", http.StatusBadRequest)
		case errors.Is(err, auth.ErrInvalidEmail):
			respondJSONError(w, "Email is required", http.StatusBadRequest)
		default:
			respondJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	token := h.setAuthCookie(w, r, account)

	respondJSON(w, http.StatusCreated, AuthResponse{
		User:    UserResponse{ID: account.ID, Email: account.Email, Name: account.Name},
		Token:   token,
		Message: "Registration successful",
	})
}

// Login handles account login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token := h.setAuthCookie(w, r, account)

	respondJSON(w, http.StatusOK, AuthResponse{
		User:    UserResponse{ID: account.ID, Email: account.Email, Name: account.Name},
		Token:   token,
		Message: "Login successful",
	})
}

// Me returns the signed-in account. Reached only through the required
// auth middleware, so missing claims mean a wiring defect upstream.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	resp := UserResponse{ID: claims.UserID, Email: claims.Email}
	if account, found := h.accounts.Lookup(claims.Email); found {
		resp.Name = account.Name
	}
	respondJSON(w, http.StatusOK, resp)
}

// Logout clears the auth cookie. The account's cart stays in the
// registry until the process ends.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

func (h *AuthHandlers) setAuthCookie(w http.ResponseWriter, r *http.Request, account auth.Account) string {
	token, expiry, _ := h.jwtService.GenerateToken(account.ID, account.Email)

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	return token
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
