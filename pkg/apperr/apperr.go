package apperr

import "fmt"

// Code 錯誤分類代碼
type Code string

const (
	// CodeInvalidArgument 參數驗證錯誤，不會發出任何網路請求
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeNotFound 查無資料
	CodeNotFound Code = "NOT_FOUND"
	// CodeAlreadyExists 資料已存在
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	// CodeUnauthenticated 未授權
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	// CodeUnavailable 後端/傳輸層失敗
	CodeUnavailable Code = "UNAVAILABLE"
	// CodeInternal 內部錯誤
	CodeInternal Code = "INTERNAL"
)

// AppError definition app error with code
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// New create AppError
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

// Wrap create AppError with cause
func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// InvalidArg 驗證錯誤
func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

// NotFound 查無資料
func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

// AlreadyExists 資料已存在
func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, msg)
}

// Unauthorized 未授權
func Unauthorized(msg string) error {
	return New(CodeUnauthenticated, msg)
}

// Unavailable 傳輸層失敗
func Unavailable(msg string, cause error) error {
	return Wrap(CodeUnavailable, msg, cause)
}

// Internal 內部錯誤
func Internal(msg string, cause error) error {
	return Wrap(CodeInternal, msg, cause)
}

// CodeOf 取得錯誤代碼，非 AppError 回傳 CodeInternal
func CodeOf(err error) Code {
	if e, ok := err.(*AppError); ok {
		return e.Code
	}
	return CodeInternal
}

// IsCode check error code
func IsCode(err error, code Code) bool {
	e, ok := err.(*AppError)
	return ok && e.Code == code
}
