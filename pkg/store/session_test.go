package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryWindow(t *testing.T) {
	s := &Session{}
	for i := 1; i <= 10; i++ {
		s.AppendTurn(Turn{Query: fmt.Sprintf("q%d", i)})
	}

	window := s.HistoryWindow(3)
	assert.Len(t, window, 3)
	assert.Equal(t, "q8", window[0].Query, "window keeps the most recent turns, oldest first")
	assert.Equal(t, "q10", window[2].Query)

	assert.Len(t, s.HistoryWindow(20), 10, "a window wider than the history returns everything")
	assert.Len(t, s.HistoryWindow(0), 10, "a non-positive window means unbounded")
}
