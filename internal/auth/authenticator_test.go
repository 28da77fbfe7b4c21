package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"fleet-insight/internal/config"
)

func TestAuthorize_StaticKeysAreUnscoped(t *testing.T) {
	a := NewAuthenticator(&config.Config{
		ValidAPIKeys:        []string{"key-one", "", "key-two"},
		AuthCacheTTLSeconds: 300,
	}, nil)

	agency, ok := a.Authorize(context.Background(), "key-one")
	assert.True(t, ok)
	assert.Equal(t, ScopeAll, agency)

	_, ok = a.Authorize(context.Background(), "key-two")
	assert.True(t, ok)

	// The empty config entry must not admit an empty header value.
	_, ok = a.Authorize(context.Background(), "")
	assert.False(t, ok)
}

func TestAuthorize_UnknownKeyWithoutRedis(t *testing.T) {
	a := NewAuthenticator(&config.Config{AuthCacheTTLSeconds: 300}, nil)

	_, ok := a.Authorize(context.Background(), "nope")
	assert.False(t, ok)
}
