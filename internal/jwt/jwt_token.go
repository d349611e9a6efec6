package jwt

import (
	"chat-rooms-backend/utils"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"
)

func CreateToken(user User, validUntil int64) (string, error) {
	if Secret == "" {
		return "", fmt.Errorf("jwt secret not configured")
	}

	if validUntil == 0 {
		now := time.Now()
		validUntil = now.Add(AccessTokenTTL).Unix()
	}

	claims := jwt.MapClaims{
		"sub":   user.Username,
		"id":    user.Id,
		"email": user.Email,
		"exp":   validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(Secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func CreateTokenWithRefresh(user User, validUntil int64) (TokenResponse, error) {
	accessToken, err := CreateToken(user, validUntil)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshToken := utils.CreateToken()

	userData := map[string]string{
		"id":       user.Id,
		"username": user.Username,
		"email":    user.Email,
	}
	userDataJSON, _ := json.Marshal(userData)

	err = RedisClient.Set(context.Background(), refreshToken, userDataJSON, RefreshTokenTTL).Err()
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// ParseToken validates an access token and returns its claims. Verification
// is deterministic: only the secret and the clock feed the result.
func ParseToken(tokenString string) (jwt.MapClaims, error) {
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("token string is empty")
	}
	if Secret == "" {
		return nil, fmt.Errorf("jwt secret not configured")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("claims of unauthorized type")
	}

	return claims, nil
}

func RefreshToken(refreshToken string) (string, error) {
	if len(refreshToken) == 0 {
		return "", fmt.Errorf("refresh token is empty")
	}

	val, err := RedisClient.Get(context.Background(), refreshToken).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("invalid refresh token")
	} else if err != nil {
		return "", err
	}

	var userData map[string]string
	if err := json.Unmarshal([]byte(val), &userData); err != nil {
		return "", fmt.Errorf("invalid token data")
	}

	user := User{
		Id:       userData["id"],
		Username: userData["username"],
		Email:    userData["email"],
	}

	err = RedisClient.Expire(context.Background(), refreshToken, RefreshTokenTTL).Err()
	if err != nil {
		return "", fmt.Errorf("failed to update refresh token expiration: %v", err)
	}

	return CreateToken(user, 0)
}
