package snowflake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIsMonotonic(t *testing.T) {
	prevID, prevAt := Next()
	for i := 0; i < 1000; i++ {
		id, at := Next()
		assert.Greater(t, id, prevID)
		assert.False(t, at.Before(prevAt))
		prevID, prevAt = id, at
	}
}
