package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types/users"
	"github.com/princekumarofficial/video-service/internal/utils/jwt"
	"github.com/princekumarofficial/video-service/internal/utils/password"
	"github.com/princekumarofficial/video-service/internal/utils/response"
)

// Accounts is the user part of storage.Storage.
type Accounts interface {
	CreateUser(ctx context.Context, name, email, password string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (string, string, error)
}

var errInvalidCredentials = errors.New("invalid email or password")

// SignUp handles user registration
// @Summary Register a new user
// @Description Register a new user account
// @Tags users
// @Accept json
// @Produce json
// @Param user body users.SignUpRequest true "User registration details"
// @Success 201 {object} map[string]string "User created successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 409 {object} response.Response "Email already registered"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /signup [post]
func SignUp(accounts Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req users.SignUpRequest
		if !response.DecodeAndValidate(w, r, &req) {
			return
		}

		hashedPassword, err := password.HashPassword(req.Password)
		if err != nil {
			response.WriteError(w, http.StatusInternalServerError, errors.New("failed to hash password"))
			return
		}

		userID, err := accounts.CreateUser(r.Context(), strings.TrimSpace(req.Name), strings.ToLower(req.Email), hashedPassword)
		if errors.Is(err, storage.ErrDuplicateEmail) {
			response.WriteError(w, http.StatusConflict, err)
			return
		}
		if err != nil {
			slog.Error("Failed to create user", slog.String("error", err.Error()))
			response.WriteError(w, http.StatusInternalServerError, errors.New("failed to create user"))
			return
		}
		slog.Info("User created", slog.String("user_id", userID))

		response.WriteJSON(w, http.StatusCreated, map[string]string{
			"id": userID,
		})
	}
}

// Login handles user authentication
// @Summary Authenticate a user
// @Description Authenticate a user and return JWT token
// @Tags users
// @Accept json
// @Produce json
// @Param user body users.SignInRequest true "User login details"
// @Success 200 {object} map[string]string "User authenticated successfully with token"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Router /login [post]
func Login(accounts Accounts, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req users.SignInRequest
		if !response.DecodeAndValidate(w, r, &req) {
			return
		}

		userID, hashedPassword, err := accounts.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				slog.Error("Failed to load user", slog.String("error", err.Error()))
			}
			response.WriteError(w, http.StatusUnauthorized, errInvalidCredentials)
			return
		}

		if !password.CheckPasswordHash(req.Password, hashedPassword) {
			response.WriteError(w, http.StatusUnauthorized, errInvalidCredentials)
			return
		}

		token, err := jwt.CreateToken(userID, jwtSecret)
		if err != nil {
			response.WriteError(w, http.StatusInternalServerError, errors.New("failed to generate token"))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]string{
			"user_id": userID,
			"token":   token,
		})
	}
}
