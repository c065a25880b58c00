package form

import (
	"fmt"
	"strings"
)

// Size is a garment size. The zero value is the unselected sentinel.
type Size string

// Unselected is the sentinel for a size that has not been chosen yet.
const Unselected Size = ""

// Sizes is the fixed, ordered size enumeration offered for both the jersey
// and the shorts.
var Sizes = []Size{"XS", "S", "M", "L", "XL", "XXL", "3XL", "4XL"}

// ParseSize maps user input to a Size. Matching is case-insensitive; an
// empty string yields Unselected.
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unselected, nil
	}
	for _, size := range Sizes {
		if strings.EqualFold(s, string(size)) {
			return size, nil
		}
	}
	return Unselected, fmt.Errorf("unknown size %q: must be one of %v", s, Sizes)
}

// Selected reports whether a size has been chosen.
func (s Size) Selected() bool {
	return s != Unselected
}
