package service

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 流水线错误分类
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindStore      ErrorKind = "STORE"
	KindConflict   ErrorKind = "CONFLICT"
	KindNotFound   ErrorKind = "NOT_FOUND"
)

// PipelineError 看板、阶段流转和成交流程返回的错误
type PipelineError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// StatusCode 对应的HTTP状态码
func (e *PipelineError) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func validationError(op, message string) error {
	return &PipelineError{Kind: KindValidation, Op: op, Message: message}
}

func storeError(op string, err error) error {
	return &PipelineError{Kind: KindStore, Op: op, Err: err}
}

func conflictError(op, message string) error {
	return &PipelineError{Kind: KindConflict, Op: op, Message: message}
}

func notFoundError(op, message string) error {
	return &PipelineError{Kind: KindNotFound, Op: op, Message: message}
}

// KindOf 返回错误分类，非 PipelineError 视为存储错误
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindStore
}

// IsValidation 是否为校验错误
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsConflict 是否为版本冲突
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

// IsNotFound 是否为资源不存在
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
