package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/flightcache/store/storetest"
)

func TestContract(t *testing.T) {
	s := New(Config{CleanupInterval: 10 * time.Millisecond})
	defer s.Close(context.Background())
	storetest.Run(t, s, storetest.Options{})
}

func TestJanitorRemovesExpired(t *testing.T) {
	ctx := context.Background()
	s := New(Config{CleanupInterval: 5 * time.Millisecond})

	_, err := s.Set(ctx, "a", []byte("1"), 10*time.Millisecond)
	require.NoError(t, err)
	_, err = s.Set(ctx, "b", []byte("2"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	assert.Eventually(t, func() bool { return s.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close(ctx))
	assert.Zero(t, s.Len())
}

func TestSetCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	in := []byte("abc")
	_, _ = s.Set(ctx, "k", in, 0)
	in[0] = 'X'

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))
}
