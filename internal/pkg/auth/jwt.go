/**
 * 工具类:JWT工具
 * @author: sun977
 * @date: 2025.11.23
 * @description: 访问令牌的签发与校验
 * @func:
 * 	1.创建JWT
 * 	2.验证JWT
 */

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 角色常量
// admin/staff 为特权角色,可以跨客户操作;client 只能操作自己的批次与目标
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleClient = "client"
)

// JWTClaims JWT声明结构
type JWTClaims struct {
	UserID   uint64 `json:"user_id"`
	ClientID uint64 `json:"client_id"` // 所属客户ID,特权角色为0
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Privileged 判断是否特权角色
func (c *JWTClaims) Privileged() bool {
	return c.Role == RoleAdmin || c.Role == RoleStaff
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey      []byte
	accessTokenTTL time.Duration
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey string, accessTokenTTL time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:      []byte(secretKey),
		accessTokenTTL: accessTokenTTL,
	}
}

// GenerateAccessToken 生成访问令牌
func (j *JWTManager) GenerateAccessToken(userID, clientID uint64, username, role string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID:   userID,
		ClientID: clientID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "scanmaster",
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateAccessToken 验证访问令牌并返回声明
func (j *JWTManager) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
