package domain

// WithAverageRating returns a copy of p with AverageRating set to the
// arithmetic mean of the given ratings. The field is left absent when the
// rating set is empty. The value is never rounded here; rounding is a
// display concern.
//
// Both the listing queries and the single-property query go through this
// function so the two paths cannot diverge.
func WithAverageRating(p Property, ratings []int) Property {
	if len(ratings) == 0 {
		p.AverageRating = nil
		return p
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	p.AverageRating = &avg
	return p
}

// Ratings extracts the rating values from a review set, preserving order.
func Ratings(reviews []Review) []int {
	if len(reviews) == 0 {
		return nil
	}
	out := make([]int, len(reviews))
	for i, r := range reviews {
		out[i] = r.Rating
	}
	return out
}
