package agui

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/relay/agent"
	"github.com/spetersoncode/relay/chat/chattest"
)

func TestThreads(t *testing.T) {
	var backends []*chattest.Backend
	factory := func(threadID string) (*agent.Agent, error) {
		if threadID == "bad" {
			return nil, errors.New("no agent for you")
		}
		b := chattest.New(chattest.Text("ok"))
		backends = append(backends, b)
		return agent.New(b, nil), nil
	}
	threads := NewThreads(factory, slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	threads.now = func() time.Time { return now }

	a1, err := threads.Get("t1")
	require.NoError(t, err)
	again, err := threads.Get("t1")
	require.NoError(t, err)
	assert.Same(t, a1, again)

	found, ok := threads.Lookup("t1")
	require.True(t, ok)
	assert.Same(t, a1, found)
	_, ok = threads.Lookup("t9")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	a2, err := threads.Get("t2")
	require.NoError(t, err)
	assert.NotSame(t, a1, a2)
	assert.Equal(t, 2, threads.Len())

	_, err = threads.Get("bad")
	assert.Error(t, err)
	assert.Equal(t, 2, threads.Len())

	assert.Equal(t, 1, threads.Evict(30*time.Minute))
	assert.Equal(t, 1, threads.Len())
	assert.Equal(t, 1, backends[0].CloseCount())
	assert.Equal(t, 0, backends[1].CloseCount())

	require.NoError(t, threads.Close())
	assert.Equal(t, 0, threads.Len())
	assert.Equal(t, 1, backends[1].CloseCount())
}
