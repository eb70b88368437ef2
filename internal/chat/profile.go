package chat

import (
	"cherrypick/client/internal/models"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// loadProfile returns the cached profile, or one derived from the stored
// token's claims. Optimistic messages fall back to sender id 0 when neither
// is available.
func loadProfile(ctx context.Context, store ProfileSource) models.User {
	if store == nil {
		return models.User{}
	}

	user, err := store.GetProfile(ctx)
	if err == nil && user != nil {
		return *user
	}
	log.Printf("WARNING: no cached profile, reading token claims: %v", err)

	token, err := store.GetToken(ctx)
	if err != nil {
		log.Printf("WARNING: no stored token either: %v", err)
		return models.User{}
	}
	claimed, err := profileFromToken(token)
	if err != nil {
		log.Printf("ERROR: failed to read token claims: %v", err)
		return models.User{}
	}
	return claimed
}

// profileFromToken reads the userId and nickname claims without verifying the
// signature. The backend issues a userId claim; older tokens carry the id as
// a numeric subject.
func profileFromToken(token string) (models.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.User{}, err
	}

	var user models.User
	switch v := claims["userId"].(type) {
	case float64:
		user.ID = int64(v)
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return models.User{}, fmt.Errorf("userId claim %q: %w", v, err)
		}
		user.ID = id
	default:
		sub, err := claims.GetSubject()
		if err != nil {
			return models.User{}, err
		}
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return models.User{}, errors.New("token carries no user id")
		}
		user.ID = id
	}
	if nickname, ok := claims["nickname"].(string); ok {
		user.Nickname = nickname
	}
	return user, nil
}
