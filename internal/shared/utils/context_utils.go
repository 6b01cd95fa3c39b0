package utils

import (
	"context"
	"errors"

	"sitecontent/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrRequestIDNotFound  = errors.New("requestID not found in context")
	ErrRequestIDNotString = errors.New("requestID in context is not a string")
	ErrSessionIDNotFound  = errors.New("sessionID not found in context")
	ErrSessionIDNotString = errors.New("sessionID in context is not a string")
	ErrSubjectNotFound    = errors.New("subject not found in context")
	ErrSubjectNotString   = errors.New("subject in context is not a string")
)

func stringValue(ctx context.Context, key interface{}, missing, wrongType error) (string, error) {
	val := ctx.Value(key)
	if val == nil {
		return "", missing
	}
	s, ok := val.(string)
	if !ok {
		return "", wrongType
	}
	return s, nil
}

// GetRequestIDFromContext retrieves the request ID set by the HTTP layer.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound, ErrRequestIDNotString)
}

// GetSessionIDFromContext retrieves the admin edit session ID.
func GetSessionIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.SessionIDKey, ErrSessionIDNotFound, ErrSessionIDNotString)
}

// GetSubjectFromContext retrieves the verified admin token subject.
func GetSubjectFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.SubjectKey, ErrSubjectNotFound, ErrSubjectNotString)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextkeys.SessionIDKey, sessionID)
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextkeys.SubjectKey, subject)
}

func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextkeys.ComponentKey, component)
}

func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}

// GetSubjectOrDefault returns the token subject, or def when none is set.
func GetSubjectOrDefault(ctx context.Context, def string) string {
	if v, err := GetSubjectFromContext(ctx); err == nil && v != "" {
		return v
	}
	return def
}

// GetRequestIDOrDefault returns the request ID, or def when none is set.
func GetRequestIDOrDefault(ctx context.Context, def string) string {
	if v, err := GetRequestIDFromContext(ctx); err == nil && v != "" {
		return v
	}
	return def
}

func HasSubject(ctx context.Context) bool {
	_, err := GetSubjectFromContext(ctx)
	return err == nil
}
