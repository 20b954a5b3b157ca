package store_test

import (
	"testing"

	"github.com/parley-ai/parley/chatmodel"
	"github.com/parley-ai/parley/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryStore(t *testing.T) {
	st := store.NewMemoryStore()

	assert.Empty(t, st.Messages("chat1"))
	require.NoError(t, st.Reset("chat1"))

	require.NoError(t, st.Add("chat1", chatmodel.UserMessage("Hello")))
	require.NoError(t, st.Add("chat1", chatmodel.AssistantMessage("Hi there!")))
	require.NoError(t, st.Add("chat2", chatmodel.UserMessage("Other session")))

	msgs := st.Messages("chat1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "Hi there!", msgs[1].Content)

	// sessions are independent
	require.Len(t, st.Messages("chat2"), 1)

	// the returned slice is a copy
	msgs[0].Content = "mutated"
	assert.Equal(t, "Hello", st.Messages("chat1")[0].Content)

	require.NoError(t, st.Reset("chat1"))
	assert.Empty(t, st.Messages("chat1"))
	require.Len(t, st.Messages("chat2"), 1)
}
