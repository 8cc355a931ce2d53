package service

import (
	"context"

	"github.com/wfunc/coffee-bearer/internal/utils"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// AuthService 认证服务接口
type AuthService interface {
	// Login 管理员登录
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	// RefreshToken 刷新访问令牌
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	// ValidateToken 验证访问令牌
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
	// ChangePassword 修改密码
	ChangePassword(ctx context.Context, adminID uint, req *ChangePasswordRequest) error
	// EnsureDefaultAdmin 首次启动时创建默认管理员
	EnsureDefaultAdmin(ctx context.Context, username, password string) error
}
