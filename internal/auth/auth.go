// Package auth resolves the acting user from a go-chi/jwtauth token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
)

// ClaimUserID is the claim carrying the numeric user id.
const ClaimUserID = "user_id"

var ErrNoUser = errors.New("token has no usable user_id claim")

// New returns the HS256 authenticator shared by the services.
func New(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Token signs a token for userID that expires after ttl.
func Token(ja *jwtauth.JWTAuth, userID int64, ttl time.Duration) (string, error) {
	_, tokenString, err := ja.Encode(map[string]interface{}{
		ClaimUserID: userID,
		"exp":       time.Now().Add(ttl).Unix(),
	})
	return tokenString, err
}

// UserID reads the user id from the verified token in ctx.
func UserID(ctx context.Context) (int64, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoUser, err)
	}
	return userIDFrom(claims)
}

func userIDFrom(claims map[string]interface{}) (int64, error) {
	var id int64
	switch v := claims[ClaimUserID].(type) {
	case float64:
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNoUser, err)
		}
		id = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNoUser, err)
		}
		id = n
	default:
		return 0, ErrNoUser
	}
	if id <= 0 {
		return 0, ErrNoUser
	}
	return id, nil
}
