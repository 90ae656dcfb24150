package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/farm-shop/internal/domain/models"
)

const purposeReset = "password_reset"

var ErrInvalidToken = errors.New("invalid token")

// NewToken генерирует JWT-токен для указанного пользователя с заданным временем жизни.
// В payload кладутся id, email и роль.
func NewToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	claims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", user.ID),
		"email": user.Email,
		"role":  string(user.Role),
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// NewResetToken - короткоживущий токен для сброса пароля.
// Отпечаток текущего хэша делает токен одноразовым: после смены пароля он не проходит проверку.
func NewResetToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	claims := jwt.MapClaims{
		"sub":     fmt.Sprintf("%d", user.ID),
		"purpose": purposeReset,
		"pwh":     PasswordFingerprint(user.PassHash),
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseResetToken возвращает id пользователя и отпечаток пароля из токена сброса
func ParseResetToken(tokenStr, secret string) (int64, string, error) {
	claims, err := Parse(tokenStr, secret)
	if err != nil {
		return 0, "", err
	}
	if purpose, _ := claims["purpose"].(string); purpose != purposeReset {
		return 0, "", ErrInvalidToken
	}
	userID, err := SubjectID(claims)
	if err != nil {
		return 0, "", err
	}
	fingerprint, _ := claims["pwh"].(string)
	return userID, fingerprint, nil
}

// Parse проверяет подпись и срок действия токена
func Parse(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// Проверка алгоритма
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsResetToken - токен сброса пароля нельзя использовать для доступа к API
func IsResetToken(claims jwt.MapClaims) bool {
	purpose, _ := claims["purpose"].(string)
	return purpose == purposeReset
}

// SubjectID извлекает идентификатор пользователя из поля "sub"
func SubjectID(claims jwt.MapClaims) (int64, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func PasswordFingerprint(passHash []byte) string {
	sum := sha256.Sum256(passHash)
	return hex.EncodeToString(sum[:8])
}
