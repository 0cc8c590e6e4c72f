// Package ext assembles the function catalog: the host built-ins plus every
// extension category.
//
// The extension functions live in sub-packages grouped by category:
//   - extstring     lower, upper, trim, split, snake_case, template, ...
//   - extmath       round, pow, sqrt, clamp, trig functions, median, ...
//   - extarray      first, last, take, flatten, chunk, set operations, ...
//   - extobject     keys, values, pick, omit, deep_merge, get, ...
//   - exttypes      type_of, is_string, to_number, ...
//   - extdatetime   now, parse_date, format_date, date_add, start_of, ...
//   - extduration   parse_duration, format_duration, iso_duration, ...
//   - exthash       md5, sha256, sha3_256, hmac, xxhash64, crc32, ...
//   - extencoding   base64, hex, URL, HTML, YAML, JWT
//   - extids        uuid, uuid_v7, ulid, nanoid
//   - extfuzzy      levenshtein, jaro_winkler, sorensen_dice, ...
//   - extsemver     semver_parse, semver_compare, semver_satisfies, ...
//   - extformat     to_csv, parse_csv, format_bytes, ordinal, ...
//   - extvalidation is_email, is_ipv4, luhn_check, json_schema_valid, ...
//   - extregex      regex_match, regex_find_all, regex_replace, ...
//   - extnetwork    ip_to_int, cidr_contains, is_private_ip, ...
//   - extutility    default, coalesce, json_pointer, get_env, ...
//
// Expression functions (filter_expr, sort_by_expr, ...) live in package
// exprfn and are part of the catalog as well.
//
// # Integration
//
// The catalog is normally consumed through a registry:
//
//	reg := registry.New()
//	_ = reg.RegisterCategory(functions.CategoryString)
//	err := reg.Apply(ev)
//
// A single descriptor can also be installed directly:
//
//	defs, _ := extstring.Upper().NativeDefs()
//	err := ev.Install(defs...)
package ext

import (
	"github.com/sandrolain/celfx/pkg/exprfn"
	"github.com/sandrolain/celfx/pkg/ext/extarray"
	"github.com/sandrolain/celfx/pkg/ext/extdatetime"
	"github.com/sandrolain/celfx/pkg/ext/extduration"
	"github.com/sandrolain/celfx/pkg/ext/extencoding"
	"github.com/sandrolain/celfx/pkg/ext/extformat"
	"github.com/sandrolain/celfx/pkg/ext/extfuzzy"
	"github.com/sandrolain/celfx/pkg/ext/exthash"
	"github.com/sandrolain/celfx/pkg/ext/extids"
	"github.com/sandrolain/celfx/pkg/ext/extmath"
	"github.com/sandrolain/celfx/pkg/ext/extnetwork"
	"github.com/sandrolain/celfx/pkg/ext/extobject"
	"github.com/sandrolain/celfx/pkg/ext/extregex"
	"github.com/sandrolain/celfx/pkg/ext/extsemver"
	"github.com/sandrolain/celfx/pkg/ext/extstring"
	"github.com/sandrolain/celfx/pkg/ext/exttypes"
	"github.com/sandrolain/celfx/pkg/ext/extutility"
	"github.com/sandrolain/celfx/pkg/ext/extvalidation"
	"github.com/sandrolain/celfx/pkg/functions"
)

// Catalog returns every descriptor: the host built-ins first, then each
// extension category in a fixed order.
func Catalog() []functions.Descriptor {
	var all []functions.Descriptor
	for _, group := range [][]functions.Descriptor{
		Standard(),
		extstring.All(),
		extmath.All(),
		extarray.All(),
		extobject.All(),
		exttypes.All(),
		extdatetime.All(),
		extduration.All(),
		exthash.All(),
		extencoding.All(),
		extids.All(),
		extfuzzy.All(),
		extsemver.All(),
		extformat.All(),
		extvalidation.All(),
		extregex.All(),
		extnetwork.All(),
		extutility.All(),
		exprfn.All(),
	} {
		all = append(all, group...)
	}
	return all
}

func std(name, sig, desc, example string) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryStandard,
		Signature:   sig,
		Description: desc,
		Example:     example,
		SpecRef:     "cel-spec",
	}
}

// Standard returns the host built-ins. They are listed for discovery only and
// are always available; member functions take their receiver as the first
// parameter.
func Standard() []functions.Descriptor {
	return []functions.Descriptor{
		std("size", "<(sao):n>", "Length of a string, array or object", "size([1, 2]) -> 2"),
		std("contains", "<s-s:b>", "Whether the string contains the substring", `"hello".contains("ell") -> true`),
		std("startsWith", "<s-s:b>", "Whether the string starts with the prefix", `"hello".startsWith("he") -> true`),
		std("endsWith", "<s-s:b>", "Whether the string ends with the suffix", `"hello".endsWith("lo") -> true`),
		std("matches", "<s-s:b>", "Whether the string matches an RE2 pattern", `"abc".matches("^a") -> true`),
		std("int", "<x:n>", "Conversion to integer", `int("42") -> 42`),
		std("uint", "<x:n>", "Conversion to unsigned integer", `uint(42.0) -> 42`),
		std("double", "<x:n>", "Conversion to double", `double("2.5") -> 2.5`),
		std("string", "<x:s>", "Conversion to string", `string(2.5) -> "2.5"`),
		std("bytes", "<s:x>", "Conversion to bytes", `bytes("hi")`),
		std("bool", "<x:b>", "Conversion to boolean", `bool("true") -> true`),
		std("duration", "<s:x>", "Parse a Go-style duration", `duration("1h30m")`),
		std("timestamp", "<s:x>", "Parse an RFC 3339 timestamp", `timestamp("2024-01-15T00:00:00Z")`),
		std("type", "<x:x>", "Type of a value", "type(1.0) == double"),
		std("dyn", "<x:x>", "Disable static type checks for the value", "dyn(x)"),
		std("getFullYear", "<x-s?:n>", "Year of a timestamp", "ts.getFullYear() -> 2024"),
		std("getMonth", "<x-s?:n>", "Zero-based month of a timestamp", "ts.getMonth() -> 0"),
		std("getDayOfYear", "<x-s?:n>", "Zero-based day of the year", "ts.getDayOfYear() -> 14"),
		std("getDayOfMonth", "<x-s?:n>", "Zero-based day of the month", "ts.getDayOfMonth() -> 14"),
		std("getDate", "<x-s?:n>", "One-based day of the month", "ts.getDate() -> 15"),
		std("getDayOfWeek", "<x-s?:n>", "Day of the week, Sunday is 0", "ts.getDayOfWeek() -> 1"),
		std("getHours", "<x-s?:n>", "Hours of a timestamp or duration", "ts.getHours() -> 0"),
		std("getMinutes", "<x-s?:n>", "Minutes of a timestamp or duration", "ts.getMinutes() -> 0"),
		std("getSeconds", "<x-s?:n>", "Seconds of a timestamp or duration", "ts.getSeconds() -> 0"),
		std("getMilliseconds", "<x-s?:n>", "Milliseconds of a timestamp or duration", "ts.getMilliseconds() -> 0"),
		std("has", "<x:b>", "Whether a field is present (macro)", "has(user.email) -> true"),
	}
}
