package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"go-storefront/services"
	"go-storefront/utils"
)

// UserController handles registration, login and password recovery.
type UserController struct {
	base
	auth *services.AuthService
}

func NewUserController(auth *services.AuthService, logger *slog.Logger, timeout time.Duration) *UserController {
	return &UserController{base: base{logger: logger, timeout: timeout}, auth: auth}
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		uc.fail(w, r, err)
		return
	}

	ctx, cancel := uc.ctx(r)
	defer cancel()
	user, err := uc.auth.Register(ctx, in)
	if err != nil {
		uc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, "user registered successfully", map[string]any{"user": user})
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &creds, false); err != nil {
		uc.fail(w, r, err)
		return
	}

	ctx, cancel := uc.ctx(r)
	defer cancel()
	user, token, err := uc.auth.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		uc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "login successful", map[string]any{"user": user, "token": token})
}

// GetProfile returns the authenticated user's profile
func (uc *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		uc.fail(w, r, err)
		return
	}

	ctx, cancel := uc.ctx(r)
	defer cancel()
	user, err := uc.auth.Profile(ctx, userID)
	if err != nil {
		uc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{"user": user})
}

func (uc *UserController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &body, false); err != nil {
		uc.fail(w, r, err)
		return
	}

	ctx, cancel := uc.ctx(r)
	defer cancel()
	if err := uc.auth.ForgotPassword(ctx, body.Email); err != nil {
		uc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "password reset link sent to your email", nil)
}

func (uc *UserController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decodeJSON(w, r, &body, false); err != nil {
		uc.fail(w, r, err)
		return
	}

	ctx, cancel := uc.ctx(r)
	defer cancel()
	if err := uc.auth.ResetPassword(ctx, mux.Vars(r)["token"], body.Password, body.ConfirmPassword); err != nil {
		uc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "password reset successful", nil)
}
