package token

import "learning_chat_service/pkg/config"

// 測試時可以覆蓋這些變數來 mock token 行為
var (
	GenerateJWTFunc = GenerateJWT
	ParseJWTFunc    = ParseJWT
)

// GenerateJWTWrapper 讓 memberUseCase test mock 使用這個包裝函數
func GenerateJWTWrapper(userID, role string) (string, error) {
	return GenerateJWTFunc(userID, role, config.EnvConfig.MemberService)
}

// ParseJWTWrapper 讓 memberUseCase test mock 使用這個包裝函數
func ParseJWTWrapper(t string) (*Claims, error) {
	return ParseJWTFunc(t)
}
