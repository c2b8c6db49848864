package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrWUNotFound         = errors.New("work unit not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrWorktreeNotFound   = errors.New("worktree not found")
	ErrUncommittedChanges = errors.New("uncommitted changes exist")
	ErrNotGitRepository   = errors.New("not a git repository (or any of the parent directories)")
	ErrNotOnMainBranch    = errors.New("main checkout is not on the main branch")
	ErrWIPLimitReached    = errors.New("lane WIP limit reached")
	ErrInvalidWUID        = errors.New("invalid work unit id")
)

// ErrorCode is a stable identifier callers can branch on.
type ErrorCode string

// Error codes.
const (
	CodeFileNotFound    ErrorCode = "FILE_NOT_FOUND"
	CodeSectionNotFound ErrorCode = "SECTION_NOT_FOUND"
	CodeValidation      ErrorCode = "VALIDATION_ERROR"
	CodeInvariant       ErrorCode = "INVARIANT_ERROR"
	CodePreflight       ErrorCode = "PREFLIGHT_ERROR"
	CodeYAMLParse       ErrorCode = "YAML_PARSE_ERROR"
	CodeConfig          ErrorCode = "CONFIG_ERROR"
	CodeGit             ErrorCode = "GIT_ERROR"
	CodeState           ErrorCode = "STATE_ERROR"
)

// Error is a coded error. Message embeds the offending path, section or WU ID.
type Error struct {
	Err     error
	Code    ErrorCode
	Message string
}

// NewError creates a coded error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a coded error that wraps cause.
func WrapError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode reports whether any error in err's chain is an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
