package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"profile-service/internal/domain"
)

func TestMock_Fetch_CannedHandle(t *testing.T) {
	client := New(zap.NewNop())

	raw, err := client.Fetch(context.Background(), "nasa")
	require.NoError(t, err)

	p, ok := domain.NewNormalizer().Normalize(raw, "nasa", client.Name())
	require.True(t, ok)
	assert.Equal(t, "nasa", p.Username)
	assert.Equal(t, "NASA", p.FullName)
	assert.Equal(t, int64(97_400_000), p.Followers)
	assert.True(t, p.IsVerified)
	assert.Equal(t, Name, p.Source)
	assert.Len(t, p.RecentPosts, postCount)
	assert.Contains(t, p.RecentPosts[0], "https://www.instagram.com/p/nasa")
}

func TestMock_Fetch_Deterministic(t *testing.T) {
	client := New(zap.NewNop())
	n := domain.NewNormalizer()

	first, err := client.Fetch(context.Background(), "some.random_user")
	require.NoError(t, err)
	second, err := client.Fetch(context.Background(), "some.random_user")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	p, ok := n.Normalize(first, "some.random_user", client.Name())
	require.True(t, ok)
	assert.GreaterOrEqual(t, p.Followers, int64(100))
	assert.Equal(t, "User some.random_user", p.FullName)
}

func TestMock_Fetch_DifferentHandlesDiffer(t *testing.T) {
	client := New(zap.NewNop())

	a, err := client.Fetch(context.Background(), "alpha")
	require.NoError(t, err)
	b, err := client.Fetch(context.Background(), "bravo")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
