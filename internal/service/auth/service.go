package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/ports"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	refreshKeyPrefix = "refresh:"
)

type Service struct {
	userRepo  ports.UserRepository
	cache     ports.Cache
	jwtSecret []byte
	log       *zap.Logger
}

func NewService(userRepo ports.UserRepository, cache ports.Cache, jwtSecret string, log *zap.Logger) ports.AuthService {
	return &Service{
		userRepo:  userRepo,
		cache:     cache,
		jwtSecret: []byte(jwtSecret),
		log:       log,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (string, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", errors.New("invalid credentials")
	}
	if user == nil {
		return "", "", errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", errors.New("invalid credentials")
	}

	return s.generateTokens(ctx, user)
}

func (s *Service) Register(ctx context.Context, user *domain.User) error {
	existing, err := s.userRepo.FindByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("email already registered")
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPwd)
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if user.Role == "" {
		user.Role = domain.UserRoleUser
	}
	user.Status = "Active"

	return s.userRepo.Save(ctx, user)
}

func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	if claims["type"] != "refresh" {
		return "", errors.New("not a refresh token")
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return "", errors.New("invalid user id in token")
	}

	// Refresh tokens are single-family: the cache holds the one currently
	// issued per user, so stolen old tokens stop working after rotation.
	stored, err := s.cache.Get(ctx, refreshKeyPrefix+userID)
	if err != nil || stored != refreshToken {
		return "", errors.New("refresh token revoked")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		return "", errors.New("user not found")
	}

	return s.generateAccessToken(user)
}

func (s *Service) ValidateToken(ctx context.Context, tokenStr string) (*domain.User, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	if claims["type"] != "access" {
		return nil, errors.New("not an access token")
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("invalid sub")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (s *Service) generateTokens(ctx context.Context, user *domain.User) (string, string, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", err
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"exp":  time.Now().Add(refreshTokenTTL).Unix(),
		"type": "refresh",
	})
	refreshTokenStr, err := refreshToken.SignedString(s.jwtSecret)
	if err != nil {
		return "", "", err
	}

	if err := s.cache.Set(ctx, refreshKeyPrefix+user.ID, refreshTokenStr, refreshTokenTTL); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return accessToken, refreshTokenStr, nil
}

func (s *Service) generateAccessToken(user *domain.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  time.Now().Add(accessTokenTTL).Unix(),
		"type": "access",
	})
	return token.SignedString(s.jwtSecret)
}
