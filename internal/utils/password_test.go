package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// PasswordTestSuite 密码工具测试套件
type PasswordTestSuite struct {
	suite.Suite
}

// 测试哈希与验证
func (suite *PasswordTestSuite) TestHashAndVerify() {
	hash, err := HashPassword("secret123")
	suite.NoError(err)
	suite.True(strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword("secret123", hash)
	suite.NoError(err)
	suite.True(ok)

	ok, err = VerifyPassword("wrong-password", hash)
	suite.NoError(err)
	suite.False(ok)
}

// 测试相同密码产生不同哈希（随机盐）
func (suite *PasswordTestSuite) TestHashUnique() {
	h1, err := HashPassword("secret123")
	suite.NoError(err)
	h2, err := HashPassword("secret123")
	suite.NoError(err)
	suite.NotEqual(h1, h2)
}

// 测试格式错误的哈希
func (suite *PasswordTestSuite) TestVerifyMalformedHash() {
	_, err := VerifyPassword("secret", "plaintext")
	suite.Error(err)

	_, err = VerifyPassword("secret", "$bcrypt$v=19$m=65536,t=1,p=4$abc$def")
	suite.Error(err)
}

// 测试随机字符串生成
func (suite *PasswordTestSuite) TestGenerateRandomString() {
	s, err := GenerateRandomString(16)
	suite.NoError(err)
	suite.Len(s, 16)

	s2, err := GenerateRandomString(16)
	suite.NoError(err)
	suite.NotEqual(s, s2)
}

func TestPasswordTestSuite(t *testing.T) {
	suite.Run(t, new(PasswordTestSuite))
}
