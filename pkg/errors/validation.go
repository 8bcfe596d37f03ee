package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxObjectIDLength bounds object ids accepted from scene files and the API.
const maxObjectIDLength = 128

// ValidateObjectID validates an object id for safety and correctness.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters or whitespace
//   - No path separators (ids are used in cache keys and file names)
//   - Maximum length of 128 characters
func ValidateObjectID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "object id cannot be empty")
	}

	if len(id) > maxObjectIDLength {
		return New(ErrCodeInvalidInput, "object id too long (max %d characters)", maxObjectIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "object id %q contains whitespace or control characters", id)
		}
	}

	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidInput, "object id %q cannot contain path separators", id)
	}

	return nil
}

// ValidateBounds validates a screen rectangle given as min/max corners.
// Bounds must be finite and have positive width and height.
func ValidateBounds(minX, minY, maxX, maxY float64) error {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidBounds, "bounds must be finite")
		}
	}
	if maxX <= minX {
		return New(ErrCodeInvalidBounds, "bounds width must be positive (min_x=%g, max_x=%g)", minX, maxX)
	}
	if maxY <= minY {
		return New(ErrCodeInvalidBounds, "bounds height must be positive (min_y=%g, max_y=%g)", minY, maxY)
	}
	return nil
}

// ValidateUnit validates that v lies in [0, 1], as required for opacity and
// confidence values.
func ValidateUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return New(ErrCodeInvalidInput, "%s must be within [0, 1], got %g", name, v)
	}
	return nil
}
