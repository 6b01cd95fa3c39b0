package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "sitecontent context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-456")
	ctx = context.WithValue(ctx, SessionIDKey, "session-1")
	ctx = context.WithValue(ctx, SubjectKey, "admin@example.com")
	ctx = context.WithValue(ctx, ComponentKey, "store-client")
	ctx = context.WithValue(ctx, OperationKey, "commit")

	assert.Equal(t, "req-456", ctx.Value(RequestIDKey))
	assert.Equal(t, "session-1", ctx.Value(SessionIDKey))
	assert.Equal(t, "admin@example.com", ctx.Value(SubjectKey))
	assert.Equal(t, "store-client", ctx.Value(ComponentKey))
	assert.Equal(t, "commit", ctx.Value(OperationKey))
}
