package toggl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// WorkDay is the length of a "d" unit when entering elapsed time.
const WorkDay = 8 * time.Hour

var (
	elapsedToken = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([mhd])`)
	elapsedFull  = regexp.MustCompile(`^\s*(?:\d+(?:\.\d+)?\s*[mhd]\s*)+$`)
)

var elapsedUnits = map[string]time.Duration{
	"m": time.Minute,
	"h": time.Hour,
	"d": WorkDay,
}

// IsElapsed reports whether s is a well-formed elapsed time such as
// "15m", "2.5h" or "1d 2h".
func IsElapsed(s string) bool {
	return elapsedFull.MatchString(strings.ToLower(s))
}

// ParseElapsed converts user-entered elapsed time into a duration.
// Units are m (minutes), h (hours) and d (8 hour work days); tokens add up.
func ParseElapsed(s string) (time.Duration, error) {
	s = strings.ToLower(s)
	if !elapsedFull.MatchString(s) {
		return 0, fmt.Errorf("invalid elapsed time %q (example: 15m, 2.5h)", s)
	}
	var total time.Duration
	for _, m := range elapsedToken.FindAllStringSubmatch(s, -1) {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid elapsed time %q: %w", s, err)
		}
		total += time.Duration(amount * float64(elapsedUnits[m[2]]))
	}
	return total.Round(time.Second), nil
}

// EstimatedSeconds maps a story point estimate to a task estimate.
// Unestimated or out-of-range stories get -3600.
func EstimatedSeconds(estimate *int) int64 {
	if estimate == nil {
		return -3600
	}
	switch *estimate {
	case 0:
		return 15 * 60
	case 1:
		return 75 * 60
	case 2:
		return 3 * 60 * 60
	case 3:
		return 8 * 60 * 60
	default:
		return -3600
	}
}
