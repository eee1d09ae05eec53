package sweep

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is returned when a response is not a comma-separated list of
// numbers.
var ErrParse = errors.New("malformed numeric list")

// ParseFloatList parses the analyzer's comma-separated ASCII data. Every
// token must be a number; empty tokens are errors.
func ParseFloatList(s string) ([]float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	out := make([]float64, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q", ErrParse, i, p)
		}
		out = append(out, v)
	}
	return out, nil
}
