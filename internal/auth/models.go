package auth

// TokenRequest — запрос на выпуск токена (только APP_ENV=local)
type TokenRequest struct {
	Subject    string `json:"subject"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Subject     string `json:"subject"`
}

// ErrorResponse — формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
