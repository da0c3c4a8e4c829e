package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "chat_fanout_server"

// Claims 自定义 JWT 声明
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Signer 持有签名密钥与有效期，由配置构建
type Signer struct {
	secret []byte
	expiry time.Duration
}

// NewSigner expiryMinutes<=0 时默认 60 分钟
func NewSigner(secret string, expiryMinutes int) *Signer {
	if expiryMinutes <= 0 {
		expiryMinutes = 60
	}
	return &Signer{secret: []byte(secret), expiry: time.Duration(expiryMinutes) * time.Minute}
}

// GenerateAccessToken 签发 Access Token，身份系统在外部，这里主要给本地调试和测试用
func (s *Signer) GenerateAccessToken(userID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   "access_token",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken 解析并验证 Token
func (s *Signer) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID > 0 {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
