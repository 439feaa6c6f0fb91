package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetTrace(ctx))
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithTrace(ctx, NewTraceContext("req-1"))
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.NotEmpty(t, GetTrace(ctx).TraceID)

	assert.NotEmpty(t, NewTraceContext("").RequestID)
}

func TestSession(t *testing.T) {
	ctx := WithSession(context.Background(), &Session{Login: "admin", Language: "fr"})
	s := GetSession(ctx)
	if assert.NotNil(t, s) {
		assert.Equal(t, "admin", s.Login)
	}
	assert.Nil(t, GetSession(context.Background()))
}
