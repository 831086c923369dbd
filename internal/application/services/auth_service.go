package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	"github.com/relaycrm/backend/pkg/auth"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// AuthService handles tenant signup, authentication and user management
type AuthService struct {
	db        *database.Connection
	users     *persistence.UserRepository
	books     *persistence.PriceBookRepository
	txManager *persistence.TransactionManager
}

// NewAuthService creates a new AuthService
func NewAuthService(db *database.Connection, txManager *persistence.TransactionManager) *AuthService {
	return &AuthService{
		db:        db,
		users:     persistence.NewUserRepository(db.DB()),
		books:     persistence.NewPriceBookRepository(db.DB()),
		txManager: txManager,
	}
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Token     string
	User      *models.UserSession
	ExpiresAt time.Time
}

// SignupInput creates a new organization with its first admin user
type SignupInput struct {
	OrgName   string
	OrgDomain string
	AdminName string
	Email     string
	Password  string
}

// Signup provisions a tenant: organization, admin user and the standard
// price book, all in one transaction
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	if strings.TrimSpace(input.OrgName) == "" {
		return nil, apperrors.NewValidationError("org_name", "organization name is required")
	}
	if !auth.IsValidEmail(input.Email) {
		return nil, apperrors.NewValidationError("email", "invalid email address")
	}
	if err := auth.ValidatePasswordStrength(input.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.CheckEmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflictError("User", "email", input.Email)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	org := &models.Organization{
		ID:     utils.GenerateID(),
		Name:   input.OrgName,
		Domain: input.OrgDomain,
		Plan:   "standard",
	}
	user := &models.User{
		ID:           utils.GenerateID(),
		OrgID:        org.ID,
		Name:         input.AdminName,
		Email:        input.Email,
		PasswordHash: hash,
		Profile:      models.ProfileOrgAdmin,
		IsActive:     true,
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.users.CreateOrganization(ctx, tx, org); err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}
		if err := s.users.CreateUser(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		return s.books.CreateBook(ctx, tx, &models.PriceBook{
			ID:         utils.GenerateID(),
			OrgID:      org.ID,
			Name:       "Standard Price Book",
			IsStandard: true,
			IsActive:   true,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🏢 Organization %s created with admin %s", org.Name, user.Email)
	return user, nil
}

// Login authenticates a user and issues a JWT
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if user == nil {
		log.Printf("⚠️ Login failed for %s: user not found", email)
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorizedError("Account is deactivated")
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		log.Printf("⚠️ Login failed for %s: invalid password", email)
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}

	tokenSession := auth.UserSession{
		ID:      user.ID,
		OrgID:   user.OrgID,
		Name:    user.Name,
		Email:   user.Email,
		Profile: user.Profile,
	}
	if user.ManagerID != nil {
		tokenSession.ManagerID = *user.ManagerID
	}

	token, err := auth.GenerateToken(tokenSession)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	claims, _ := auth.DecodeToken(token)

	return &LoginResult{
		Token:     token,
		User:      user.Session(),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// CreateUserInput adds a user to the caller's organization
type CreateUserInput struct {
	Name      string
	Email     string
	Password  string
	Profile   string
	ManagerID *string
}

// CreateUser adds a user to the org. Caller must be an org admin.
func (s *AuthService) CreateUser(ctx context.Context, actor *models.UserSession, input CreateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("create", "User")
	}
	if !auth.IsValidEmail(input.Email) {
		return nil, apperrors.NewValidationError("email", "invalid email address")
	}
	if err := auth.ValidatePasswordStrength(input.Password); err != nil {
		return nil, err
	}
	if input.Profile != models.ProfileOrgAdmin && input.Profile != models.ProfileStandard {
		return nil, apperrors.NewValidationError("profile", "unknown profile")
	}

	exists, err := s.users.CheckEmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflictError("User", "email", input.Email)
	}

	if input.ManagerID != nil {
		manager, err := s.users.FindByID(ctx, actor.OrgID, *input.ManagerID)
		if err != nil {
			return nil, err
		}
		if manager == nil {
			return nil, apperrors.NewNotFoundError("User", *input.ManagerID)
		}
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           utils.GenerateID(),
		OrgID:        actor.OrgID,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Profile:      input.Profile,
		ManagerID:    input.ManagerID,
		IsActive:     true,
	}

	if err := s.users.CreateUser(ctx, s.db, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser fetches a user in the caller's org
func (s *AuthService) GetUser(ctx context.Context, actor *models.UserSession, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("User", id)
	}
	return user, nil
}

// ListUsers lists the caller's org members
func (s *AuthService) ListUsers(ctx context.Context, actor *models.UserSession) ([]*models.User, error) {
	return s.users.FindAll(ctx, actor.OrgID)
}

// ChangePassword verifies the current password and stores a new hash
func (s *AuthService) ChangePassword(ctx context.Context, actor *models.UserSession, current, next string) error {
	user, err := s.users.FindByID(ctx, actor.OrgID, actor.ID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NewNotFoundError("User", actor.ID)
	}

	if !auth.VerifyPassword(current, user.PasswordHash) {
		return apperrors.NewUnauthorizedError("Current password is incorrect")
	}
	if err := auth.ValidatePasswordStrength(next); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.Update(ctx, s.db, actor.OrgID, actor.ID, map[string]interface{}{
		"password_hash": hash,
	})
}
