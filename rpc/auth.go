package rpc

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const authClockSkew = 2 * time.Minute

// authenticator gates transaction submission behind an HS256 bearer token
// when a secret is configured. Reads are never gated.
type authenticator struct {
	secret []byte
	issuer string
}

func newAuthenticator(secret, issuer string) *authenticator {
	return &authenticator{
		secret: []byte(strings.TrimSpace(secret)),
		issuer: strings.TrimSpace(issuer),
	}
}

func (a *authenticator) enabled() bool { return a != nil && len(a.secret) > 0 }

func (a *authenticator) authorize(r *http.Request) *RPCError {
	if !a.enabled() {
		return nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "missing Authorization header", nil)
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return newError(http.StatusUnauthorized, codeUnauthorized, "Authorization header must use Bearer scheme", nil)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "missing bearer token", nil)
	}
	if err := a.verify(token); err != nil {
		return newError(http.StatusUnauthorized, codeUnauthorized, "invalid RPC credentials", err.Error())
	}
	return nil
}

func (a *authenticator) verify(tokenString string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(authClockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token invalid")
	}
	return nil
}
