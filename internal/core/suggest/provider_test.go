package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/model"
)

func TestSuggestReturnsActivityOfRequestedKind(t *testing.T) {
	provider := NewPoolProvider(DefaultPools(), 2)

	suggestion, err := provider.Suggest(model.BreakLong)
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, model.BreakLong, suggestion.Kind)
	assert.Contains(t, DefaultPools()[model.BreakLong], suggestion.Activity)
}

func TestSuggestEmptyPool(t *testing.T) {
	provider := NewPoolProvider(map[model.BreakKind][]string{}, 2)

	suggestion, err := provider.Suggest(model.BreakShort)
	assert.ErrorIs(t, err, ErrEmptyPool)
	assert.Nil(t, suggestion)
}

func TestSuggestAvoidsImmediateRepeat(t *testing.T) {
	pools := map[model.BreakKind][]string{
		model.BreakShort: {"stretch", "hydrate", "look away"},
	}
	provider := NewPoolProvider(pools, 1)

	previous := ""
	for round := 0; round < 20; round++ {
		suggestion, err := provider.Suggest(model.BreakShort)
		require.NoError(t, err)
		require.NotNil(t, suggestion)
		assert.NotEqual(t, previous, suggestion.Activity, "round %d", round)
		previous = suggestion.Activity
	}
}

func TestSuggestSingleActivityPoolNeverStarves(t *testing.T) {
	pools := map[model.BreakKind][]string{
		model.BreakShort: {"stretch"},
	}
	provider := NewPoolProvider(pools, 3)

	for round := 0; round < 5; round++ {
		suggestion, err := provider.Suggest(model.BreakShort)
		require.NoError(t, err)
		require.NotNil(t, suggestion)
		assert.Equal(t, "stretch", suggestion.Activity)
	}
}
