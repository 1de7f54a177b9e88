package biz

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/conf"
)

type callerKey struct{}

// NewCallerContext 把调用方用户名写入上下文
func NewCallerContext(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, callerKey{}, username)
}

// CallerFromContext 读取调用方用户名
func CallerFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(callerKey{}).(string)
	return username, ok && username != ""
}

// AuthUseCase 调用方令牌签发与校验
type AuthUseCase struct {
	jwtKey string
}

// ErrMissingJwtKey 未配置签名密钥
var ErrMissingJwtKey = stderrors.New("jwt key is required")

// NewAuthUseCase 创建鉴权业务逻辑实例，密钥为空时拒绝启动
func NewAuthUseCase(auth *conf.Auth) (*AuthUseCase, error) {
	if auth == nil || strings.TrimSpace(auth.JwtKey) == "" {
		return nil, ErrMissingJwtKey
	}
	return &AuthUseCase{jwtKey: auth.JwtKey}, nil
}

// IssueToken 为调用方签发令牌
func (uc *AuthUseCase) IssueToken(username string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(uc.jwtKey))
}

// ParseToken 校验令牌并返回用户名
func (uc *AuthUseCase) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(uc.jwtKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.Unauthorized("UNAUTHORIZED", "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.Unauthorized("UNAUTHORIZED", "invalid token claims")
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", errors.Unauthorized("UNAUTHORIZED", "missing username")
	}
	return username, nil
}
