package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/models"
	"gorm.io/gorm"
)

// Service authenticates plant accounts and manages the user table.
type Service struct {
	db      *gorm.DB
	tokens  *Tokens
	revoker Revoker
	now     func() time.Time
}

// NewService wires the account store, token signer and revocation list.
// A nil revoker falls back to an in-process list.
func NewService(db *gorm.DB, tokens *Tokens, revoker Revoker) *Service {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Service{db: db, tokens: tokens, revoker: revoker, now: time.Now}
}

// Session is the result of a successful login.
type Session struct {
	Token     string             `json:"token"`
	ExpiresAt int64              `json:"expires_at"`
	Principal identity.Principal `json:"-"`
}

// Login checks the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, apperr.New(apperr.Validation, "Username dan password harus diisi")
	}
	user, err := s.FindUser(ctx, username)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.Unauthenticated, "Username atau password salah")
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, apperr.New(apperr.Unauthenticated, "Username atau password salah")
	}
	p := principalOf(user)
	token, claims, err := s.tokens.Issue(p, s.now())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Unix(), Principal: p}, nil
}

// Logout revokes token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return apperr.Wrap(apperr.Unauthenticated, err, "Token tidak valid")
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	return s.revoker.Revoke(ctx, claims.ID, ttl)
}

// Authenticate verifies a bearer token and returns the principal it carries.
func (s *Service) Authenticate(ctx context.Context, token string) (identity.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return identity.Principal{}, apperr.Wrap(apperr.Unauthenticated, err, "Silakan login terlebih dahulu")
	}
	revoked, err := s.revoker.Revoked(ctx, claims.ID)
	if err != nil {
		return identity.Principal{}, err
	}
	if revoked {
		return identity.Principal{}, apperr.New(apperr.Unauthenticated, "Sesi telah berakhir, silakan login kembali")
	}
	return claims.Principal(), nil
}

// FindUser loads a user by username.
func (s *Service) FindUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, err, "User %s tidak ditemukan", username)
		}
		return nil, fmt.Errorf("auth: find user %s: %w", username, err)
	}
	return &user, nil
}

// RegisterRequest holds the fields for a new account.
type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

// Register creates a user account. createdBy is recorded as-is.
func (s *Service) Register(ctx context.Context, req RegisterRequest, createdBy string) (*models.User, error) {
	fields := []struct{ name, value string }{
		{"name", req.Name},
		{"username", req.Username},
		{"password", req.Password},
		{"role", req.Role},
		{"department", req.Department},
	}
	for _, f := range fields {
		if f.value == "" {
			return nil, apperr.New(apperr.Validation, "Field %s harus diisi", f.name)
		}
	}
	if !identity.ValidRole(req.Role) {
		return nil, apperr.New(apperr.Validation, "Role tidak valid. Pilih dari: Operator, Teknisi, Supervisor, Manager")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("auth: check username %s: %w", req.Username, err)
	}
	if count > 0 {
		return nil, apperr.New(apperr.Validation, "Username sudah terdaftar")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		Name:         req.Name,
		Department:   req.Department,
		CreatedBy:    createdBy,
		CreatedAt:    s.now().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("auth: create user %s: %w", req.Username, err)
	}
	return &user, nil
}

// ListUsers returns all accounts ordered by role then username.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("role ASC, username ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("auth: list users: %w", err)
	}
	return users, nil
}

// Technicians returns all accounts with the technician role.
func (s *Service) Technicians(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("role = ?", identity.RoleTechnician).Order("username ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("auth: list technicians: %w", err)
	}
	return users, nil
}

func principalOf(u *models.User) identity.Principal {
	return identity.Principal{
		Username:   u.Username,
		Role:       u.Role,
		Name:       u.Name,
		Department: u.Department,
	}
}
