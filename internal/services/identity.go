package services

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"kknotes-backend-go/internal/models"
)

// IdentityProvider verifies ID tokens issued by the external sign-in flow.
type IdentityProvider interface {
	Verify(ctx context.Context, idToken string) (models.Identity, error)
}

// JWTIdentityProvider accepts HS256 ID tokens carrying sub, email, name and
// picture claims.
type JWTIdentityProvider struct {
	Secret   []byte
	Issuer   string
	Audience string
}

func (p JWTIdentityProvider) Verify(ctx context.Context, idToken string) (models.Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return models.Identity{}, ErrUnauthorized("Sign-in token is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if p.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.Issuer))
	}
	if p.Audience != "" {
		opts = append(opts, jwt.WithAudience(p.Audience))
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		return p.Secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return models.Identity{}, ErrUnauthorized("Sign-in failed")
	}
	uid, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if uid == "" || email == "" {
		return models.Identity{}, ErrUnauthorized("Sign-in failed")
	}
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	return models.Identity{
		UID:         uid,
		Email:       NormalizeEmail(email),
		DisplayName: name,
		PhotoURL:    picture,
	}, nil
}
