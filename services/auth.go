package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"go-storefront/config"
	"go-storefront/models"
	"go-storefront/utils"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const (
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

type RegisterInput struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Address  models.Address `json:"address"`
}

// AuthService registers users, issues tokens and answers identity questions
// for the HTTP middleware.
type AuthService struct {
	users     UserRepository
	ledger    TokenLedger
	tokens    *utils.TokenIssuer
	mailer    utils.Mailer
	logger    *slog.Logger
	admins    map[string]struct{}
	resetTTL  time.Duration
	clientURL string
}

func NewAuthService(users UserRepository, ledger TokenLedger, tokens *utils.TokenIssuer, mailer utils.Mailer, logger *slog.Logger, auth config.AuthConfig, clientURL string) *AuthService {
	admins := make(map[string]struct{}, len(auth.AdminEmails))
	for _, e := range auth.AdminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	return &AuthService{
		users:     users,
		ledger:    ledger,
		tokens:    tokens,
		mailer:    mailer,
		logger:    logger,
		admins:    admins,
		resetTTL:  auth.ResetTokenTTL,
		clientURL: clientURL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return models.Invalid("password must be at least %d characters long", minPasswordLen)
	}
	if len(password) > maxPasswordBytes {
		return models.Invalid("password must be at most %d bytes long", maxPasswordBytes)
	}
	return nil
}

// Register creates a customer account. The admin role is granted only to
// addresses listed in the configuration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" || email == "" || in.Password == "" {
		return nil, models.Invalid("name, email, and password are required")
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return nil, models.Invalid("name must be between 2 and 50 characters")
	}
	if !emailPattern.MatchString(email) {
		return nil, models.Invalid("please enter a valid email")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := models.RoleCustomer
	if _, ok := s.admins[email]; ok {
		role = models.RoleAdmin
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     role,
		Address:  in.Address.Trimmed(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and returns the user with a fresh access
// token. Unknown email and wrong password give the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", models.Invalid("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", models.ErrBadCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", models.ErrBadCredentials
	}

	token, err := s.tokens.GenerateJWT(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves an access token to a user id.
func (s *AuthService) Authenticate(_ context.Context, token string) (primitive.ObjectID, error) {
	claims, err := s.tokens.ParseJWT(token, utils.PurposeAccess)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, models.ErrInvalidToken
	}
	return id, nil
}

// HasRole reads the stored user, so role changes apply to tokens already
// issued.
func (s *AuthService) HasRole(ctx context.Context, userID primitive.ObjectID, role models.Role) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Role == role, nil
}

func (s *AuthService) Profile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ForgotPassword mails a short-lived reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return models.Invalid("email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, _, err := s.tokens.GenerateResetToken(user.ID.Hex(), s.resetTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, utils.PasswordResetMessage(user.Email, s.clientURL, token)); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID.Hex())
	return nil
}

// ResetPassword sets a new password. Each reset token works once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword == "" || confirmPassword == "" {
		return models.Invalid("new password and confirm password are required")
	}
	if newPassword != confirmPassword {
		return models.Invalid("passwords do not match")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	claims, err := s.tokens.ParseJWT(token, utils.PurposeReset)
	if err != nil {
		return err
	}
	if claims.Id == "" {
		return models.ErrInvalidToken
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.ErrInvalidToken
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.ledger.Consume(ctx, claims.Id, claims.ExpiresAtTime()); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		// The token stays usable when the password was not changed.
		if relErr := s.ledger.Release(context.WithoutCancel(ctx), claims.Id); relErr != nil {
			s.logger.ErrorContext(ctx, "release reset token", "user_id", userID.Hex(), "error", relErr)
		}
		return err
	}
	return nil
}
