package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/coffee-bearer/internal/models"
	"github.com/wfunc/coffee-bearer/internal/repository"
	"github.com/wfunc/coffee-bearer/internal/utils"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrAccountNotFound    = errors.New("账户不存在")
	ErrInvalidToken       = errors.New("无效的令牌")
)

// authService 认证服务实现
type authService struct {
	adminRepo  repository.AdminRepository
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(adminRepo repository.AdminRepository, jwtManager *utils.JWTManager, log *zap.Logger) AuthService {
	return &authService{
		adminRepo:  adminRepo,
		jwtManager: jwtManager,
		log:        log,
	}
}

// Login 管理员登录
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	account, err := s.adminRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		// 不泄漏账户是否存在
		return nil, ErrInvalidCredentials
	}

	ok, err := utils.VerifyPassword(req.Password, account.Password)
	if err != nil || !ok {
		s.log.Warn("登录失败",
			zap.String("username", req.Username),
			zap.String("ip", req.IP))
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(account.ID, account.Username, string(account.Role))
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("生成刷新令牌失败: %w", err)
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, account.ID, req.IP); err != nil {
		s.log.Warn("更新登录记录失败", zap.Error(err))
	}

	s.log.Info("管理员登录",
		zap.String("username", account.Username),
		zap.String("ip", req.IP))

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Username:     account.Username,
		Role:         string(account.Role),
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
	}, nil
}

// RefreshToken 刷新访问令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil || claims.TokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	// 刷新令牌只携带ID，按ID反查当前的用户名与角色
	account, err := s.findByID(ctx, claims.AdminID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(account.ID, account.Username, string(account.Role))
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Username:     account.Username,
		Role:         string(account.Role),
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
	}, nil
}

// ValidateToken 验证访问令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "access" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ChangePassword 修改密码
func (s *authService) ChangePassword(ctx context.Context, adminID uint, req *ChangePasswordRequest) error {
	account, err := s.findByID(ctx, adminID)
	if err != nil {
		return err
	}

	ok, err := utils.VerifyPassword(req.OldPassword, account.Password)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}

	account.Password = hashed
	if err := s.adminRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("更新密码失败: %w", err)
	}

	s.log.Info("管理员修改密码", zap.String("username", account.Username))
	return nil
}

// EnsureDefaultAdmin 首次启动时创建默认管理员
func (s *authService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}

	account := &models.AdminAccount{
		Username: username,
		Password: hashed,
		Role:     models.AdminRoleAdmin,
	}
	if err := s.adminRepo.Create(ctx, account); err != nil {
		return fmt.Errorf("创建默认管理员失败: %w", err)
	}

	s.log.Info("已创建默认管理员", zap.String("username", username))
	return nil
}

// findByID 按ID查找账户。仓储只按用户名索引，这里补一个按ID的查找
func (s *authService) findByID(ctx context.Context, id uint) (*models.AdminAccount, error) {
	account, err := s.adminRepo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}
