package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "subbot"

// Claims identifies the chat user a bearer token was minted for
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	now    func() time.Time
}

func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret), now: time.Now}
}

// GenerateToken issues a token for userID valid for ttl (no expiry when ttl <= 0)
func (s *JWTService) GenerateToken(userID int64, ttl time.Duration) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id %d", userID)
	}
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  strconv.FormatInt(userID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies a token string
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}
