package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	t.Run("exact", func(t *testing.T) {
		c, err := ParseCategory("DOXXING")
		require.NoError(t, err)
		assert.Equal(t, CategoryDoxxing, c)
	})

	t.Run("normalized", func(t *testing.T) {
		c, err := ParseCategory("  hate_speech ")
		require.NoError(t, err)
		assert.Equal(t, CategoryHateSpeech, c)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseCategory("GRIEFING")
		assert.ErrorIs(t, err, ErrUnknownCategory)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseCategory("")
		assert.ErrorIs(t, err, ErrUnknownCategory)
	})
}

func TestCategoriesClosedSet(t *testing.T) {
	all := Categories()
	assert.Len(t, all, 8)
	for _, c := range all {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Category("SPAM").Valid())
}
