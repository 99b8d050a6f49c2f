package dto

// RegisterRequest HTTP层注册请求
// 用户名字符集与密码强度由领域服务校验
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=6,max=32" example:"reader_01"`
	Password string `json:"password" binding:"required,min=8,max=20" example:"secret123"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"reader_01"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// LogoutRequest 登出请求(可选携带Refresh Token一并注销)
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest 刷新Token请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse 用户响应(不包含密码)
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// RefreshResponse 刷新响应
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
