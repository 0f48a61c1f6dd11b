package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoUserID = errors.New("token carries no user id")

// IdentityFromToken builds an Identity from a JWT issued by the feed server.
// The user id is read from the "id" claim, or from "sub" when it is numeric.
// The signature is not checked here; the server does that on every request.
func IdentityFromToken(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}

	id, err := userID(claims)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: id, Token: token}, nil
}

func userID(claims jwt.MapClaims) (int64, error) {
	switch v := claims["id"].(type) {
	case float64:
		if v > 0 {
			return int64(v), nil
		}
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("read subject: %w", err)
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNoUserID
	}
	return id, nil
}
