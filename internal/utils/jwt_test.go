package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager(
		"test-secret-key",
		1*time.Hour,    // access token expiry
		7*24*time.Hour, // refresh token expiry
	)
}

// 测试创建JWT管理器
func (suite *JWTTestSuite) TestNewJWTManager() {
	manager := NewJWTManager("secret", 1*time.Hour, 24*time.Hour)
	suite.NotNil(manager)
	suite.Equal(1*time.Hour, manager.GetTokenExpiry("access"))
	suite.Equal(24*time.Hour, manager.GetTokenExpiry("refresh"))
}

// 测试生成与验证访问令牌
func (suite *JWTTestSuite) TestAccessTokenRoundTrip() {
	token, err := suite.manager.GenerateAccessToken(1, "admin", "admin")
	suite.NoError(err)
	suite.NotEmpty(token)

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.NotNil(claims)
	suite.Equal(uint(1), claims.AdminID)
	suite.Equal("admin", claims.Username)
	suite.Equal("admin", claims.Role)
	suite.Equal("access", claims.TokenType)
	suite.Equal("coffee-bearer", claims.Issuer)
}

// 测试验证无效令牌
func (suite *JWTTestSuite) TestValidateInvalidToken() {
	_, err := suite.manager.ValidateToken("not-a-token")
	suite.Error(err)

	// 其他密钥签发的令牌
	other := NewJWTManager("other-secret", 1*time.Hour, 24*time.Hour)
	token, _ := other.GenerateAccessToken(1, "admin", "admin")
	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试过期令牌被拒绝
func (suite *JWTTestSuite) TestExpiredToken() {
	short := NewJWTManager("test-secret-key", -1*time.Minute, 24*time.Hour)
	token, err := short.GenerateAccessToken(1, "admin", "admin")
	suite.NoError(err)

	_, err = short.ValidateToken(token)
	suite.Error(err)
}

// 测试刷新令牌换取访问令牌
func (suite *JWTTestSuite) TestRefreshAccessToken() {
	refresh, err := suite.manager.GenerateRefreshToken(2)
	suite.NoError(err)

	access, err := suite.manager.RefreshAccessToken(refresh, "admin", "admin")
	suite.NoError(err)

	claims, err := suite.manager.ValidateToken(access)
	suite.NoError(err)
	suite.Equal(uint(2), claims.AdminID)
	suite.Equal("access", claims.TokenType)

	// 访问令牌不能用于刷新
	_, err = suite.manager.RefreshAccessToken(access, "admin", "admin")
	suite.Error(err)
}

func TestJWTTestSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
