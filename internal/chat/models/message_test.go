package models

import (
	"testing"

	"github.com/liubx8864/supportloop/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentBlocksScan(t *testing.T) {
	payload := `[{"type":"text","text":"hello"},{"type":"tool_result","tool_use_id":"toolu_01","content":"{}","is_error":true}]`

	t.Run("bytes source", func(t *testing.T) {
		var cb ContentBlocks
		require.NoError(t, cb.Scan([]byte(payload)))
		require.Len(t, cb, 2)
		assert.Equal(t, llm.BlockText, cb[0].Kind())
		assert.True(t, cb[1].ToolResult().IsError)
	})

	t.Run("string source", func(t *testing.T) {
		var cb ContentBlocks
		require.NoError(t, cb.Scan(payload))
		require.Len(t, cb, 2)
	})

	t.Run("nil source", func(t *testing.T) {
		var cb ContentBlocks
		require.NoError(t, cb.Scan(nil))
		assert.Nil(t, cb)
	})

	t.Run("unexpected source type is an error", func(t *testing.T) {
		var cb ContentBlocks
		assert.Error(t, cb.Scan(42), "silent truncation of stored content is not acceptable")
	})
}

func TestContentBlocksValueRoundTrip(t *testing.T) {
	original := ContentBlocks{
		llm.NewTextBlock("hi"),
		llm.NewToolUseBlock("toolu_01", "get_order", map[string]interface{}{"order_id": "o-1"}),
	}

	value, err := original.Value()
	require.NoError(t, err)

	var decoded ContentBlocks
	require.NoError(t, decoded.Scan(value))
	require.Len(t, decoded, 2)
	assert.Equal(t, "get_order", decoded[1].ToolUse().Name)

	// A nil slice persists as an empty JSON array, not SQL NULL.
	value, err = ContentBlocks(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), value)
}
