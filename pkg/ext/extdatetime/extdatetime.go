// Package extdatetime provides date/time functions.
//
// Timestamps are seconds since the Unix epoch (UTC) unless a function name
// says otherwise (now_millis, from_epoch_ms, to_epoch_ms). Date strings are
// accepted in RFC 3339, "2006-01-02T15:04:05" or "2006-01-02" form. Custom
// layouts use Go reference-time notation.
package extdatetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// clock is replaced in tests.
var clock = time.Now

// All returns all date/time function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Now(),
		NowMillis(),
		ParseDate(),
		FormatDate(),
		DateAdd(),
		DateDiff(),
		DateComponents(),
		StartOf(),
		EndOf(),
		FromEpoch(),
		FromEpochMs(),
		ToEpoch(),
		ToEpochMs(),
		TimezoneConvert(),
		IsWeekend(),
		IsWeekday(),
		Quarter(),
		IsBefore(),
		IsAfter(),
		IsBetween(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryDatetime,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

var layouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parse(s string) (time.Time, bool) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// toTime accepts an epoch-seconds number or a date string.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return fromSeconds(t), true
	case string:
		return parse(t)
	}
	return time.Time{}, false
}

func fromSeconds(s float64) time.Time {
	return time.UnixMilli(int64(s * 1000)).UTC()
}

func seconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

// Now returns the descriptor for now().
func Now() functions.Descriptor {
	return leaf("now", "<:n>", "Current time in epoch seconds", "now() -> 1700000000",
		func(args ...any) (any, error) {
			return float64(clock().Unix()), nil
		})
}

// NowMillis returns the descriptor for now_millis().
func NowMillis() functions.Descriptor {
	return leaf("now_millis", "<:n>", "Current time in epoch milliseconds", "now_millis() -> 1700000000000",
		func(args ...any) (any, error) {
			return float64(clock().UnixMilli()), nil
		})
}

// ParseDate returns the descriptor for parse_date(string [, layout]).
// Unparseable input yields null.
func ParseDate() functions.Descriptor {
	return leaf("parse_date", "<s-s?:n>", "Parse a date string into epoch seconds, null when it does not parse",
		`parse_date("2024-01-15") -> 1705276800`,
		func(args ...any) (any, error) {
			s := args[0].(string)
			if len(args) > 1 && args[1] != nil {
				t, err := time.Parse(args[1].(string), s)
				if err != nil {
					return nil, nil
				}
				return seconds(t), nil
			}
			if t, ok := parse(s); ok {
				return seconds(t), nil
			}
			return nil, nil
		})
}

// FormatDate returns the descriptor for format_date(timestamp, layout).
func FormatDate() functions.Descriptor {
	return leaf("format_date", "<n-s:s>", "Format epoch seconds with a Go time layout",
		`format_date(0, "2006-01-02") -> "1970-01-01"`,
		func(args ...any) (any, error) {
			return fromSeconds(args[0].(float64)).Format(args[1].(string)), nil
		})
}

func addUnit(t time.Time, n int, unit string) (time.Time, error) {
	switch strings.ToLower(unit) {
	case "year", "years", "y":
		return t.AddDate(n, 0, 0), nil
	case "month", "months":
		return t.AddDate(0, n, 0), nil
	case "week", "weeks", "w":
		return t.AddDate(0, 0, 7*n), nil
	case "day", "days", "d":
		return t.AddDate(0, 0, n), nil
	case "hour", "hours", "h":
		return t.Add(time.Duration(n) * time.Hour), nil
	case "minute", "minutes", "m":
		return t.Add(time.Duration(n) * time.Minute), nil
	case "second", "seconds", "s":
		return t.Add(time.Duration(n) * time.Second), nil
	}
	return t, fmt.Errorf("invalid time unit %q", unit)
}

// DateAdd returns the descriptor for date_add(timestamp, amount, unit).
//
// Supported units: year, month, week, day, hour, minute, second (singular,
// plural or single-letter form; "m" is minutes).
func DateAdd() functions.Descriptor {
	return leaf("date_add", "<n-n-s:n>", "Add an amount of a unit to epoch seconds",
		`date_add(0, 1, "day") -> 86400`,
		func(args ...any) (any, error) {
			t, err := addUnit(fromSeconds(args[0].(float64)), int(args[1].(float64)), args[2].(string))
			if err != nil {
				return nil, err
			}
			return seconds(t), nil
		})
}

// DateDiff returns the descriptor for date_diff(a, b, unit).
// Returns a - b; fixed-length units give fractional results, month and year
// count whole calendar units.
func DateDiff() functions.Descriptor {
	return leaf("date_diff", "<n-n-s:n>", "Difference a - b in the given unit",
		`date_diff(86400, 0, "hours") -> 24`,
		func(args ...any) (any, error) {
			a, b := args[0].(float64), args[1].(float64)
			diff := a - b
			switch strings.ToLower(args[2].(string)) {
			case "second", "seconds", "s":
				return diff, nil
			case "minute", "minutes", "m":
				return diff / 60, nil
			case "hour", "hours", "h":
				return diff / 3600, nil
			case "day", "days", "d":
				return diff / 86400, nil
			case "week", "weeks", "w":
				return diff / 604800, nil
			case "month", "months":
				years, months := calendarDiff(fromSeconds(b), fromSeconds(a))
				return float64(years*12 + months), nil
			case "year", "years", "y":
				years, _ := calendarDiff(fromSeconds(b), fromSeconds(a))
				return float64(years), nil
			}
			return nil, fmt.Errorf("invalid time unit %q", args[2])
		})
}

// calendarDiff returns whole years and months from -> to, negative when to
// is earlier.
func calendarDiff(from, to time.Time) (years, months int) {
	sign := 1
	if to.Before(from) {
		from, to = to, from
		sign = -1
	}
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	years = y2 - y1
	months = int(m2) - int(m1)
	if d2 < d1 {
		months--
	}
	if months < 0 {
		years--
		months += 12
	}
	return sign * years, sign * months
}

// DateComponents returns the descriptor for date_components(timestamp [, timezone]).
func DateComponents() functions.Descriptor {
	return leaf("date_components", "<n-s?:o>", "Calendar fields of a timestamp, in UTC or an IANA timezone",
		`date_components(0) -> {"year": 1970, "month": 1, ...}`,
		func(args ...any) (any, error) {
			loc := time.UTC
			if len(args) > 1 && args[1] != nil {
				l, err := time.LoadLocation(args[1].(string))
				if err != nil {
					return nil, fmt.Errorf("invalid timezone %q: %w", args[1], err)
				}
				loc = l
			}
			t := fromSeconds(args[0].(float64)).In(loc)
			out := types.NewOrderedObject()
			out.Set("year", float64(t.Year()))
			out.Set("month", float64(t.Month()))
			out.Set("day", float64(t.Day()))
			out.Set("hour", float64(t.Hour()))
			out.Set("minute", float64(t.Minute()))
			out.Set("second", float64(t.Second()))
			out.Set("millisecond", float64(t.Nanosecond()/1e6))
			out.Set("weekday", float64(t.Weekday()))
			out.Set("yearday", float64(t.YearDay()))
			return out, nil
		})
}

func truncate(t time.Time, unit string) (time.Time, error) {
	switch strings.ToLower(unit) {
	case "year":
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case "week":
		// ISO weeks start on Monday.
		offset := (int(t.Weekday()) + 6) % 7
		d := t.AddDate(0, 0, -offset)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case "hour":
		return t.Truncate(time.Hour), nil
	case "minute":
		return t.Truncate(time.Minute), nil
	}
	return t, fmt.Errorf("unsupported unit %q", unit)
}

// StartOf returns the descriptor for start_of(timestamp, unit).
func StartOf() functions.Descriptor {
	return leaf("start_of", "<n-s:n>", "Start of the year, month, week, day, hour or minute (UTC)",
		`start_of(90000, "day") -> 86400`,
		func(args ...any) (any, error) {
			t, err := truncate(fromSeconds(args[0].(float64)), args[1].(string))
			if err != nil {
				return nil, err
			}
			return seconds(t), nil
		})
}

// EndOf returns the descriptor for end_of(timestamp, unit).
// Returns the last whole second of the unit.
func EndOf() functions.Descriptor {
	return leaf("end_of", "<n-s:n>", "Last second of the year, month, week, day, hour or minute (UTC)",
		`end_of(0, "day") -> 86399`,
		func(args ...any) (any, error) {
			unit := args[1].(string)
			start, err := truncate(fromSeconds(args[0].(float64)), unit)
			if err != nil {
				return nil, err
			}
			next, err := addUnit(start, 1, unit)
			if err != nil {
				return nil, err
			}
			return seconds(next) - 1, nil
		})
}

// FromEpoch returns the descriptor for from_epoch(seconds).
func FromEpoch() functions.Descriptor {
	return leaf("from_epoch", "<n:s>", "RFC 3339 string for epoch seconds", `from_epoch(0) -> "1970-01-01T00:00:00Z"`,
		func(args ...any) (any, error) {
			return fromSeconds(args[0].(float64)).Format(time.RFC3339), nil
		})
}

// FromEpochMs returns the descriptor for from_epoch_ms(millis).
func FromEpochMs() functions.Descriptor {
	return leaf("from_epoch_ms", "<n:s>", "RFC 3339 string for epoch milliseconds",
		`from_epoch_ms(1500) -> "1970-01-01T00:00:01.5Z"`,
		func(args ...any) (any, error) {
			return time.UnixMilli(int64(args[0].(float64))).UTC().Format(time.RFC3339Nano), nil
		})
}

// ToEpoch returns the descriptor for to_epoch(date).
func ToEpoch() functions.Descriptor {
	return leaf("to_epoch", "<s:n>", "Epoch seconds for a date string, null when it does not parse",
		`to_epoch("1970-01-02") -> 86400`,
		func(args ...any) (any, error) {
			t, ok := parse(args[0].(string))
			if !ok {
				return nil, nil
			}
			return float64(t.Unix()), nil
		})
}

// ToEpochMs returns the descriptor for to_epoch_ms(date).
func ToEpochMs() functions.Descriptor {
	return leaf("to_epoch_ms", "<s:n>", "Epoch milliseconds for a date string, null when it does not parse",
		`to_epoch_ms("1970-01-01T00:00:01Z") -> 1000`,
		func(args ...any) (any, error) {
			t, ok := parse(args[0].(string))
			if !ok {
				return nil, nil
			}
			return float64(t.UnixMilli()), nil
		})
}

// TimezoneConvert returns the descriptor for timezone_convert(local, from, to).
// The input is a local date-time without offset interpreted in the from zone.
func TimezoneConvert() functions.Descriptor {
	return leaf("timezone_convert", "<s-s-s:s>", "Convert a local date-time between IANA timezones",
		`timezone_convert("2024-01-15T10:00:00", "America/New_York", "Europe/London") -> "2024-01-15T15:00:00"`,
		func(args ...any) (any, error) {
			from, err := time.LoadLocation(args[1].(string))
			if err != nil {
				return nil, fmt.Errorf("invalid timezone %q", args[1])
			}
			to, err := time.LoadLocation(args[2].(string))
			if err != nil {
				return nil, fmt.Errorf("invalid timezone %q", args[2])
			}
			s := args[0].(string)
			t, err := time.ParseInLocation("2006-01-02T15:04:05", s, from)
			if err != nil {
				if t, err = time.ParseInLocation("2006-01-02", s, from); err != nil {
					return nil, fmt.Errorf("invalid timestamp format %q", s)
				}
			}
			return t.In(to).Format("2006-01-02T15:04:05"), nil
		})
}

func weekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// IsWeekend returns the descriptor for is_weekend(timestamp).
func IsWeekend() functions.Descriptor {
	return leaf("is_weekend", "<n:b>", "Whether the timestamp falls on Saturday or Sunday (UTC)",
		"is_weekend(259200) -> true",
		func(args ...any) (any, error) {
			return weekend(fromSeconds(args[0].(float64))), nil
		})
}

// IsWeekday returns the descriptor for is_weekday(timestamp).
func IsWeekday() functions.Descriptor {
	return leaf("is_weekday", "<n:b>", "Whether the timestamp falls on Monday to Friday (UTC)",
		"is_weekday(0) -> true",
		func(args ...any) (any, error) {
			return !weekend(fromSeconds(args[0].(float64))), nil
		})
}

// Quarter returns the descriptor for quarter(timestamp).
func Quarter() functions.Descriptor {
	return leaf("quarter", "<n:n>", "Quarter of the year, 1 to 4", "quarter(0) -> 1",
		func(args ...any) (any, error) {
			return float64((int(fromSeconds(args[0].(float64)).Month())-1)/3 + 1), nil
		})
}

// compareDates parses both operands; null when either does not parse.
func compareDates(args []any, fn func(a, b time.Time) bool) (any, error) {
	a, ok := toTime(args[0])
	if !ok {
		return nil, nil
	}
	b, ok := toTime(args[1])
	if !ok {
		return nil, nil
	}
	return fn(a, b), nil
}

// IsBefore returns the descriptor for is_before(a, b).
func IsBefore() functions.Descriptor {
	return leaf("is_before", "<(ns)-(ns):b>", "Whether date a is before date b (timestamps or date strings)",
		`is_before("2024-01-01", "2024-06-01") -> true`,
		func(args ...any) (any, error) {
			return compareDates(args, time.Time.Before)
		})
}

// IsAfter returns the descriptor for is_after(a, b).
func IsAfter() functions.Descriptor {
	return leaf("is_after", "<(ns)-(ns):b>", "Whether date a is after date b (timestamps or date strings)",
		`is_after("2024-06-01", "2024-01-01") -> true`,
		func(args ...any) (any, error) {
			return compareDates(args, time.Time.After)
		})
}

// IsBetween returns the descriptor for is_between(date, start, end).
// Both bounds are inclusive.
func IsBetween() functions.Descriptor {
	return leaf("is_between", "<(ns)-(ns)-(ns):b>", "Whether a date lies within [start, end]",
		`is_between("2024-03-01", "2024-01-01", "2024-12-31") -> true`,
		func(args ...any) (any, error) {
			t, ok1 := toTime(args[0])
			lo, ok2 := toTime(args[1])
			hi, ok3 := toTime(args[2])
			if !ok1 || !ok2 || !ok3 {
				return nil, nil
			}
			return !t.Before(lo) && !t.After(hi), nil
		})
}
