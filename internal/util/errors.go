package util

import "errors"

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("User already exists")
	ErrCourseNotFound       = errors.New("course not found")
	ErrAlreadyEnrolled      = errors.New("Already enrolled")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrChapterOutOfRange    = errors.New("chapter index out of range")
	ErrAINotConfigured      = errors.New("AI service is not properly configured")
	ErrNoChapters           = errors.New("no chapters provided")
	ErrAllChaptersFailed    = errors.New("no chapter could be generated")
	ErrProgressNotAvailable = errors.New("generation progress not available")
)

// 对外错误码，和 HTTP 状态码一起返回
const (
	CodeAINotConfigured = "AI_NOT_CONFIGURED"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeInvalidAIOutput = "INVALID_AI_OUTPUT"
	CodeUserNotFound    = "USER_NOT_FOUND"
)
