package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/laptop-tracker/internal/config"
	"github.com/laptop-tracker/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Время жизни bearer-токена администратора
const tokenTTL = 8 * time.Hour

// Claims - полезная нагрузка bearer-токена
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService определяет интерфейс аутентификации
type AuthService interface {
	Login(username, password string) (string, error)
	VerifyToken(token string) (*Claims, error)
}

type authService struct {
	username     string
	passwordHash []byte
	secret       []byte
}

// NewAuthService создаёт сервис аутентификации. Пароль администратора
// хэшируется один раз при старте и в открытом виде не хранится.
func NewAuthService(cfg config.AuthConfig) (AuthService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &authService{
		username:     cfg.AdminUsername,
		passwordHash: hash,
		secret:       []byte(cfg.JWTSecret),
	}, nil
}

// Login проверяет учётные данные и выписывает подписанный токен
func (s *authService) Login(username, password string) (string, error) {
	if username != s.username {
		return "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	now := time.Now()
	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken проверяет подпись и срок действия токена
func (s *authService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}
