// Package extduration provides duration functions. Durations are whole
// seconds; strings are either ISO 8601 ("PT1H30M") or compact human form
// ("1h30m", "2 days 4h").
package extduration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"

	"github.com/sandrolain/celfx/pkg/functions"
)

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
)

// All returns all duration function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		ParseDuration(),
		FormatDuration(),
		ISODuration(),
		DurationHours(),
		DurationMinutes(),
		DurationSeconds(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryDuration,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

var (
	humanPart = regexp.MustCompile(`^(\d+)\s*([a-z]*)`)
	units     = map[string]int64{
		"w": week, "week": week, "weeks": week,
		"d": day, "day": day, "days": day,
		"h": hour, "hr": hour, "hrs": hour, "hour": hour, "hours": hour,
		"m": minute, "min": minute, "mins": minute, "minute": minute, "minutes": minute,
		"s": 1, "": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	}
)

// parse returns the number of seconds in s, or false when s is neither
// ISO 8601 nor compact human form.
func parse(s string) (int64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "p") {
		d, err := duration.Parse(strings.ToUpper(s))
		if err != nil {
			return 0, false
		}
		return int64(d.ToTimeDuration() / time.Second), true
	}
	var total int64
	for s != "" {
		m := humanPart.FindStringSubmatch(s)
		if m == nil {
			return 0, false
		}
		mult, ok := units[m[2]]
		if !ok {
			return 0, false
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		total += n * mult
		s = strings.TrimLeft(s[len(m[0]):], " ,")
	}
	return total, true
}

// ParseDuration returns the descriptor for parse_duration(string).
func ParseDuration() functions.Descriptor {
	return leaf("parse_duration", "<s:n>", "Seconds in an ISO 8601 or compact duration, null when invalid",
		`parse_duration("1h30m") -> 5400`,
		func(args ...any) (any, error) {
			secs, ok := parse(args[0].(string))
			if !ok {
				return nil, nil
			}
			return float64(secs), nil
		})
}

func whole(v any) (int64, error) {
	f := v.(float64)
	if f < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %v", f)
	}
	return int64(f), nil
}

// FormatDuration returns the descriptor for format_duration(seconds).
func FormatDuration() functions.Descriptor {
	return leaf("format_duration", "<n:s>", "Compact form of a number of seconds",
		`format_duration(5400) -> "1h30m"`,
		func(args ...any) (any, error) {
			secs, err := whole(args[0])
			if err != nil {
				return nil, err
			}
			if secs == 0 {
				return "0s", nil
			}
			var b strings.Builder
			for _, u := range []struct {
				size   int64
				suffix string
			}{{week, "w"}, {day, "d"}, {hour, "h"}, {minute, "m"}, {1, "s"}} {
				if n := secs / u.size; n > 0 {
					fmt.Fprintf(&b, "%d%s", n, u.suffix)
					secs %= u.size
				}
			}
			return b.String(), nil
		})
}

// ISODuration returns the descriptor for iso_duration(seconds).
func ISODuration() functions.Descriptor {
	return leaf("iso_duration", "<n:s>", "ISO 8601 form of a number of seconds",
		`iso_duration(5400) -> "PT1H30M"`,
		func(args ...any) (any, error) {
			secs, err := whole(args[0])
			if err != nil {
				return nil, err
			}
			return duration.Format(time.Duration(secs) * time.Second), nil
		})
}

func component(name, desc, example string, size, mod int64) functions.Descriptor {
	return leaf(name, "<n:n>", desc, example,
		func(args ...any) (any, error) {
			secs, err := whole(args[0])
			if err != nil {
				return nil, err
			}
			return float64(secs / size % mod), nil
		})
}

// DurationHours returns the descriptor for duration_hours(seconds).
func DurationHours() functions.Descriptor {
	return component("duration_hours", "Hours component (0-23) of a duration", "duration_hours(90000) -> 1", hour, 24)
}

// DurationMinutes returns the descriptor for duration_minutes(seconds).
func DurationMinutes() functions.Descriptor {
	return component("duration_minutes", "Minutes component (0-59) of a duration", "duration_minutes(5400) -> 30", minute, 60)
}

// DurationSeconds returns the descriptor for duration_seconds(seconds).
func DurationSeconds() functions.Descriptor {
	return component("duration_seconds", "Seconds component (0-59) of a duration", "duration_seconds(75) -> 15", 1, 60)
}
