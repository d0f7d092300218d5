package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kknotes-backend-go/internal/models"
)

// TokenService signs and parses the bearer tokens handed out at sign-in.
type TokenService struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

type SessionClaims struct {
	SessionID string
	UID       string
	Email     string
	Role      models.Role
}

func (t TokenService) CreateSessionToken(sess models.Session) (string, int64, error) {
	now := time.Now().UTC()
	exp := sess.ExpiresAt
	if exp.IsZero() {
		exp = now.Add(t.TTL)
	}
	claims := jwt.MapClaims{
		"iss":   t.Issuer,
		"sub":   sess.Identity.UID,
		"sid":   sess.ID,
		"typ":   "access",
		"email": sess.Identity.Email,
		"role":  string(sess.Role),
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	return signed, exp.Unix(), err
}

func (t TokenService) ParseToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return token, claims, err
}

// ParseSessionToken validates an access token and extracts its claims.
func (t TokenService) ParseSessionToken(tokenStr string) (SessionClaims, error) {
	if tokenStr == "" {
		return SessionClaims{}, errors.New("missing token")
	}
	token, claims, err := t.ParseToken(tokenStr)
	if err != nil {
		return SessionClaims{}, err
	}
	if !token.Valid || claims["typ"] != "access" {
		return SessionClaims{}, errors.New("not an access token")
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return SessionClaims{}, errors.New("token has no session")
	}
	uid, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return SessionClaims{SessionID: sid, UID: uid, Email: email, Role: models.Role(role)}, nil
}
