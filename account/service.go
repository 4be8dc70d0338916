package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"laborbook/fault"
)

// ErrInvalidToken signals a bearer token that failed verification.
var ErrInvalidToken = fmt.Errorf("account: invalid token: %w", fault.ErrForbidden)

const defaultTokenTTL = 24 * time.Hour

// Service handles profile and token logic.
type Service struct {
	repo        Repository
	jwtSecret   []byte
	tokenTTL    time.Duration
	idGenerator func() string
	now         func() time.Time
}

func NewService(repo Repository, jwtSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &Service{
		repo:        repo,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
		idGenerator: uuid.NewString,
		now:         time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates a profile for a phone number.
func (s *Service) Register(ctx context.Context, phone string, role Role) (Profile, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return Profile{}, err
	}
	role = Role(strings.ToLower(strings.TrimSpace(string(role))))
	if !isValidRole(role) {
		return Profile{}, fault.Validation("account: register", fmt.Sprintf("invalid role %q", role))
	}
	return s.repo.Create(ctx, Profile{ID: s.idGenerator(), Phone: normalized, Role: role})
}

func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	if strings.TrimSpace(id) == "" {
		return Profile{}, fault.Validation("account: get", "missing profile id")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByPhone(ctx context.Context, phone string) (Profile, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return Profile{}, err
	}
	return s.repo.GetByPhone(ctx, normalized)
}

// ChangeRole switches a profile between supervisor and labor.
func (s *Service) ChangeRole(ctx context.Context, id string, role Role) (Profile, error) {
	if !isValidRole(role) {
		return Profile{}, fault.Validation("account: change role", fmt.Sprintf("invalid role %q", role))
	}
	return s.repo.UpdateRole(ctx, id, role)
}

// IssueToken signs a bearer token for an existing profile.
func (s *Service) IssueToken(ctx context.Context, id string) (string, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": profile.ID,
		"role":    string(profile.Role),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("account: sign token: %w", err)
	}
	return token, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *Service) VerifyToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	roleStr, _ := claims["role"].(string)
	role := Role(roleStr)
	if !isValidRole(role) {
		return Claims{}, fmt.Errorf("%w: role %q", ErrInvalidToken, roleStr)
	}
	return Claims{UserID: userID, Role: role}, nil
}

// NormalizePhone strips formatting and keeps an optional leading plus.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", fault.Validation("account: phone", fmt.Sprintf("unexpected character %q", r))
		}
	}
	out := b.String()
	digits := len(strings.TrimPrefix(out, "+"))
	if digits < 10 || digits > 15 {
		return "", fault.Validation("account: phone", "phone number must have 10 to 15 digits")
	}
	return out, nil
}

// IsNotFound reports whether err means the profile does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}
