package controllers

import (
	"net/http"

	"go-storefront/services"
	"go-storefront/utils"
)

// UserController handles customer records and admin accounts
type UserController struct {
	users  *services.UserService
	admins *services.AdminService
}

// NewUserController creates a new UserController
func NewUserController(users *services.UserService, admins *services.AdminService) *UserController {
	return &UserController{users: users, admins: admins}
}

type saveUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"required,email"`
}

// SaveUser records a customer after they sign in on the storefront
func (uc *UserController) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req saveUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	created, err := uc.users.SaveUser(r.Context(), req.Name, req.Email)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	status, message := http.StatusOK, "User already exists"
	if created {
		status, message = http.StatusCreated, "User saved"
	}
	respond(w, status, map[string]any{"message": message, "created": created})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles admin login and returns a JWT
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	token, err := uc.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"token": token})
}

func (uc *UserController) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := uc.users.ListUsers(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"users": users})
}

// SendBulkEmail schedules an announcement to the chosen customers
func (uc *UserController) SendBulkEmail(w http.ResponseWriter, r *http.Request) {
	var req services.BulkEmailInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	sent, err := uc.users.SendBulkEmail(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusAccepted, map[string]any{"message": "Emails are being sent", "recipients": sent})
}
