package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAnswerListsFiles(t *testing.T) {
	l := NewLocalProvider()
	ctxBlock := "[FILE: src/server.js (lines 1-7)]\nconst app = express()\n\n" +
		"[FILE: src/server.js (lines 20-26)]\napp.listen(3000)\n\n" +
		"[FILE: src/routes.js (lines 3-9)]\nrouter.get('/')"

	ans, err := l.Answer(t.Context(), Request{Question: "how does the server start?", Context: ctxBlock})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, ans.Provider)
	assert.Contains(t, ans.Text, "- src/server.js (lines 1-7)")
	assert.Contains(t, ans.Text, "- src/routes.js (lines 3-9)")
	assert.NotContains(t, ans.Text, "lines 20-26")
}

func TestLocalAnswerPassesMessagesThrough(t *testing.T) {
	l := NewLocalProvider()
	ans, err := l.Answer(t.Context(), Request{Question: "what?", Context: "Please ask a more specific question."})
	require.NoError(t, err)
	assert.Equal(t, "Please ask a more specific question.", ans.Text)
}

func TestLocalAnswerErrors(t *testing.T) {
	l := NewLocalProvider()
	_, err := l.Answer(t.Context(), Request{Question: ""})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = l.Answer(ctx, Request{Question: "q"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, l.Ping(ctx), context.Canceled)
	assert.NoError(t, l.Ping(t.Context()))
}
