package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAverageRating_EmptySet(t *testing.T) {
	stale := 3.0
	p := Property{ID: "p1", AverageRating: &stale}

	got := WithAverageRating(p, nil)

	assert.Nil(t, got.AverageRating, "average must be absent when there are no ratings")
}

func TestWithAverageRating_Mean(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    float64
	}{
		{"single rating", []int{4}, 4.0},
		{"uniform ratings", []int{5, 5, 5}, 5.0},
		{"mixed ratings", []int{1, 2, 3, 4}, 2.5},
		{"non-terminating mean", []int{5, 4, 4}, 13.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithAverageRating(Property{ID: "p1"}, tt.ratings)
			require.NotNil(t, got.AverageRating)
			assert.InDelta(t, tt.want, *got.AverageRating, 1e-9)
		})
	}
}

func TestWithAverageRating_DoesNotMutateInput(t *testing.T) {
	p := Property{ID: "p1"}

	got := WithAverageRating(p, []int{2, 4})

	assert.Nil(t, p.AverageRating, "input value must stay untouched")
	require.NotNil(t, got.AverageRating)
	assert.InDelta(t, 3.0, *got.AverageRating, 1e-9)
}

func TestRatings(t *testing.T) {
	assert.Nil(t, Ratings(nil))
	assert.Nil(t, Ratings([]Review{}))

	reviews := []Review{
		{ID: "r1", Rating: 5},
		{ID: "r2", Rating: 2},
	}
	assert.Equal(t, []int{5, 2}, Ratings(reviews))
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range []Category{CategoryHouse, CategoryApartment, CategoryVilla, CategoryLand} {
		assert.True(t, c.Valid(), "category %q", c)
	}
	assert.False(t, Category("castle").Valid())
	assert.False(t, Category("").Valid())
}
