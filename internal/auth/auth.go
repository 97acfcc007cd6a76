package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/procurechain/procurechain/internal/database"
	"github.com/procurechain/procurechain/internal/errors"
)

// Account roles carried in the token.
const (
	RoleGovernment = "government"
	RoleVendor     = "vendor"
)

// Identity is the authenticated principal extracted from a token.
type Identity struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	Name      string `json:"name"`
}

// Service issues and validates credentials for government and vendor
// accounts.
type Service struct {
	repo      *database.Repository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewService creates the auth service
func NewService(repo *database.Repository, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
	}
}

// HashSecret hashes a password or access code for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

func checkSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// RegisterVendor creates a vendor account with a hashed password.
func (s *Service) RegisterVendor(companyName, email, password, registrationNumber string) (*database.Vendor, error) {
	if companyName == "" || email == "" {
		return nil, errors.NewValidationError("company name and email are required")
	}
	if len(password) < 8 {
		return nil, errors.NewValidationError("password must be at least 8 characters")
	}

	existing, err := s.repo.GetVendorByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewConflictError("a vendor with this email already exists")
	}

	hash, err := HashSecret(password)
	if err != nil {
		return nil, err
	}

	vendor := database.NewVendor(companyName, email, hash, registrationNumber)
	if err := s.repo.CreateVendor(vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

// LoginVendor verifies vendor credentials and issues a token.
func (s *Service) LoginVendor(email, password string) (string, *database.Vendor, error) {
	vendor, err := s.repo.GetVendorByEmail(email)
	if err != nil {
		return "", nil, err
	}
	if vendor == nil || !checkSecret(vendor.PasswordHash, password) {
		return "", nil, errors.NewUnauthorizedError("invalid email or password")
	}

	token, err := s.generateToken(vendor.ID, RoleVendor, vendor.CompanyName)
	if err != nil {
		return "", nil, err
	}
	return token, vendor, nil
}

// LoginGovernment verifies a government username and access code and
// issues a token.
func (s *Service) LoginGovernment(username, accessCode string) (string, *database.GovernmentAccount, error) {
	account, err := s.repo.GetGovernmentAccountByUsername(username)
	if err != nil {
		return "", nil, err
	}
	if account == nil || !checkSecret(account.AccessCodeHash, accessCode) {
		return "", nil, errors.NewUnauthorizedError("invalid username or access code")
	}

	token, err := s.generateToken(account.ID, RoleGovernment, account.Username)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// generateToken signs an HS256 session token with role claims.
func (s *Service) generateToken(accountID, role, name string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  accountID,
		"role": role,
		"name": name,
		"exp":  now.Add(s.tokenTTL).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a session token and returns the identity.
func (s *Service) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.NewUnauthorizedError("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.NewUnauthorizedError("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	name, _ := claims["name"].(string)
	if sub == "" || role == "" {
		return nil, errors.NewUnauthorizedError("token missing identity claims")
	}

	return &Identity{AccountID: sub, Role: role, Name: name}, nil
}
