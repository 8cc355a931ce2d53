package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/coffee-bearer/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AuthServiceTestSuite 认证服务测试套件
type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	services    *Services
	authService AuthService
}

// SetupSuite 设置测试套件
func (suite *AuthServiceTestSuite) SetupSuite() {
	// 创建内存数据库
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(suite.T(), err)

	err = db.AutoMigrate(
		&models.AdminAccount{},
		&models.EventLog{},
	)
	assert.NoError(suite.T(), err)

	suite.db = db

	config := DefaultConfig()
	log, _ := zap.NewDevelopment()

	suite.services = NewServices(db, nil, config, log)
	suite.authService = suite.services.Auth
}

// SetupTest 每个测试前执行
func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM admin_accounts")
}

// TestEnsureDefaultAdmin 测试默认管理员的创建与幂等
func (suite *AuthServiceTestSuite) TestEnsureDefaultAdmin() {
	ctx := context.Background()

	err := suite.authService.EnsureDefaultAdmin(ctx, "admin", "admin123")
	assert.NoError(suite.T(), err)

	count, err := suite.services.AdminRepo.Count(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), count)

	// 已有账户时不再创建
	err = suite.authService.EnsureDefaultAdmin(ctx, "other", "other123")
	assert.NoError(suite.T(), err)
	count, _ = suite.services.AdminRepo.Count(ctx)
	assert.Equal(suite.T(), int64(1), count)
}

// TestLogin 测试登录
func (suite *AuthServiceTestSuite) TestLogin() {
	ctx := context.Background()
	assert.NoError(suite.T(), suite.authService.EnsureDefaultAdmin(ctx, "admin", "admin123"))

	resp, err := suite.authService.Login(ctx, &LoginRequest{
		Username: "admin",
		Password: "admin123",
		IP:       "127.0.0.1",
	})
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), resp.AccessToken)
	assert.NotEmpty(suite.T(), resp.RefreshToken)
	assert.Equal(suite.T(), "admin", resp.Username)
	assert.Equal(suite.T(), "admin", resp.Role)

	// 登录记录已更新
	account, err := suite.services.AdminRepo.FindByUsername(ctx, "admin")
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), account.LastLoginAt)
	assert.Equal(suite.T(), "127.0.0.1", account.LastLoginIP)
}

// TestLoginWrongPassword 测试密码错误
func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	ctx := context.Background()
	assert.NoError(suite.T(), suite.authService.EnsureDefaultAdmin(ctx, "admin", "admin123"))

	_, err := suite.authService.Login(ctx, &LoginRequest{
		Username: "admin",
		Password: "wrong",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	// 不存在的账户返回同样的错误
	_, err = suite.authService.Login(ctx, &LoginRequest{
		Username: "nobody",
		Password: "admin123",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

// TestValidateToken 测试令牌验证
func (suite *AuthServiceTestSuite) TestValidateToken() {
	ctx := context.Background()
	assert.NoError(suite.T(), suite.authService.EnsureDefaultAdmin(ctx, "admin", "admin123"))

	resp, err := suite.authService.Login(ctx, &LoginRequest{Username: "admin", Password: "admin123"})
	assert.NoError(suite.T(), err)

	claims, err := suite.authService.ValidateToken(ctx, resp.AccessToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "admin", claims.Username)

	// 刷新令牌不能当访问令牌用
	_, err = suite.authService.ValidateToken(ctx, resp.RefreshToken)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

// TestRefreshToken 测试刷新令牌
func (suite *AuthServiceTestSuite) TestRefreshToken() {
	ctx := context.Background()
	assert.NoError(suite.T(), suite.authService.EnsureDefaultAdmin(ctx, "admin", "admin123"))

	resp, err := suite.authService.Login(ctx, &LoginRequest{Username: "admin", Password: "admin123"})
	assert.NoError(suite.T(), err)

	refreshed, err := suite.authService.RefreshToken(ctx, resp.RefreshToken)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), refreshed.AccessToken)

	claims, err := suite.authService.ValidateToken(ctx, refreshed.AccessToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "admin", claims.Username)
}

// TestChangePassword 测试修改密码
func (suite *AuthServiceTestSuite) TestChangePassword() {
	ctx := context.Background()
	assert.NoError(suite.T(), suite.authService.EnsureDefaultAdmin(ctx, "admin", "admin123"))

	account, err := suite.services.AdminRepo.FindByUsername(ctx, "admin")
	assert.NoError(suite.T(), err)

	// 旧密码错误被拒绝
	err = suite.authService.ChangePassword(ctx, account.ID, &ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newpassword1",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	err = suite.authService.ChangePassword(ctx, account.ID, &ChangePasswordRequest{
		OldPassword: "admin123",
		NewPassword: "newpassword1",
	})
	assert.NoError(suite.T(), err)

	// 新密码可登录，旧密码不可
	_, err = suite.authService.Login(ctx, &LoginRequest{Username: "admin", Password: "newpassword1"})
	assert.NoError(suite.T(), err)
	_, err = suite.authService.Login(ctx, &LoginRequest{Username: "admin", Password: "admin123"})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
