package services

import (
	"context"
	"errors"
	"strings"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"

	"golang.org/x/crypto/bcrypt"
)

type SettingsService struct {
	settings repository.SettingsRepository
}

func NewSettingsService(settings repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// DeliveryCharge returns the flat delivery charge, 0 until an admin sets one
func (s *SettingsService) DeliveryCharge(ctx context.Context) (float64, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, apperrors.Internal("Failed to load settings", err)
	}
	return settings.DeliveryCharge, nil
}

func (s *SettingsService) SetDeliveryCharge(ctx context.Context, charge float64) (float64, error) {
	if charge < 0 {
		return 0, apperrors.BadRequest("Delivery charge cannot be negative")
	}
	settings, err := s.settings.SetDeliveryCharge(ctx, charge)
	if err != nil {
		return 0, apperrors.Internal("Failed to save settings", err)
	}
	return settings.DeliveryCharge, nil
}

// BulkEmailInput is an admin announcement
type BulkEmailInput struct {
	Subject   string   `json:"subject" validate:"required"`
	Message   string   `json:"message" validate:"required"`
	SendToAll bool     `json:"sendToAll"`
	Emails    []string `json:"emails" validate:"omitempty,dive,email"`
}

type UserService struct {
	users    repository.UserRepository
	notifier *Notifier
	runner   *TaskRunner
	log      *logger.Logger
}

func NewUserService(users repository.UserRepository, notifier *Notifier, runner *TaskRunner, log *logger.Logger) *UserService {
	return &UserService{users: users, notifier: notifier, runner: runner, log: log.WithComponent("user_service")}
}

// SaveUser records a customer by email if not already known
func (s *UserService) SaveUser(ctx context.Context, name, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, apperrors.BadRequest("Email is required")
	}
	created, err := s.users.EnsureByEmail(ctx, strings.TrimSpace(name), email)
	if err != nil {
		return false, apperrors.Internal("Failed to save user", err)
	}
	return created, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list users", err)
	}
	return users, nil
}

// SendBulkEmail schedules one announcement per recipient and returns how many were scheduled
func (s *UserService) SendBulkEmail(ctx context.Context, in BulkEmailInput) (int, error) {
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Message) == "" {
		return 0, apperrors.BadRequest("Subject and message are required")
	}

	recipients := in.Emails
	if in.SendToAll {
		users, err := s.ListUsers(ctx)
		if err != nil {
			return 0, err
		}
		recipients = recipients[:0:0]
		for _, u := range users {
			recipients = append(recipients, u.Email)
		}
	}

	seen := map[string]bool{}
	var tasks []Task
	for _, to := range recipients {
		to = strings.TrimSpace(to)
		if to == "" || seen[to] {
			continue
		}
		seen[to] = true
		tasks = append(tasks, Task{Name: "announcement", Run: func(ctx context.Context) error {
			return s.notifier.Announce(ctx, to, in.Subject, in.Message)
		}})
	}
	if len(tasks) == 0 {
		return 0, apperrors.BadRequest("No recipients")
	}

	s.runner.Go(ctx, tasks...)
	s.log.Info("Bulk email scheduled", "recipients", len(tasks))
	return len(tasks), nil
}

type AdminService struct {
	admins repository.AdminRepository
	issuer *utils.TokenIssuer
	log    *logger.Logger
}

func NewAdminService(admins repository.AdminRepository, issuer *utils.TokenIssuer, log *logger.Logger) *AdminService {
	return &AdminService{admins: admins, issuer: issuer, log: log.WithComponent("admin_service")}
}

// Login checks credentials and returns a signed admin token
func (s *AdminService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", apperrors.BadRequest("Email and password are required")
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperrors.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return "", apperrors.Internal("Failed to load admin", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return "", apperrors.Unauthorized("Invalid credentials")
	}

	token, err := s.issuer.GenerateJWT(admin.Email, utils.RoleAdmin)
	if err != nil {
		return "", apperrors.Internal("Failed to sign token", err)
	}
	return token, nil
}

// EnsureSeedAdmin creates the configured admin account if it does not exist
func (s *AdminService) EnsureSeedAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.admins.Create(ctx, &models.Admin{Email: email, Password: string(hashed)}); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	s.log.Info("Seed admin created", "email", email)
	return nil
}
