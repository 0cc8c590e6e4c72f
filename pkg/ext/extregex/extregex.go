// Package extregex provides regular expression functions using RE2 syntax.
// Compiled patterns are cached and shared by all functions in the package.
package extregex

import (
	"fmt"
	"regexp"

	"github.com/sandrolain/celfx/pkg/cache"
	"github.com/sandrolain/celfx/pkg/functions"
)

const patternCacheSize = 256

var patterns = cache.New[*regexp.Regexp](patternCacheSize)

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := patterns.GetOrCompile(pattern, func() (*regexp.Regexp, error) {
		return regexp.Compile(pattern)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return re, nil
}

// All returns all regex function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Match(),
		Find(),
		FindAll(),
		Groups(),
		Replace(),
		Split(),
		Escape(),
	}
}

// leaf compiles args[1] as the pattern before calling fn.
func leaf(name, sig, desc, example string, fn func(re *regexp.Regexp, s string, rest []any) (any, error)) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryRegex,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf: func(args ...any) (any, error) {
			re, err := compile(args[1].(string))
			if err != nil {
				return nil, err
			}
			return fn(re, args[0].(string), args[2:])
		},
	}
}

func limit(rest []any) int {
	if len(rest) > 0 && rest[0] != nil {
		return int(rest[0].(float64))
	}
	return -1
}

func strs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// Match returns the descriptor for regex_match(string, pattern).
func Match() functions.Descriptor {
	return leaf("regex_match", "<s-s:b>", "Whether the pattern matches anywhere in the string",
		`regex_match("abc123", "[0-9]+") -> true`,
		func(re *regexp.Regexp, s string, _ []any) (any, error) {
			return re.MatchString(s), nil
		})
}

// Find returns the descriptor for regex_find(string, pattern).
func Find() functions.Descriptor {
	return leaf("regex_find", "<s-s:s>", "First match, or null", `regex_find("abc123", "[0-9]+") -> "123"`,
		func(re *regexp.Regexp, s string, _ []any) (any, error) {
			loc := re.FindStringIndex(s)
			if loc == nil {
				return nil, nil
			}
			return s[loc[0]:loc[1]], nil
		})
}

// FindAll returns the descriptor for regex_find_all(string, pattern [, limit]).
func FindAll() functions.Descriptor {
	return leaf("regex_find_all", "<s-s-n?:a<s>>", "All matches, at most limit when given",
		`regex_find_all("a1b22", "[0-9]+") -> ["1", "22"]`,
		func(re *regexp.Regexp, s string, rest []any) (any, error) {
			return strs(re.FindAllString(s, limit(rest))), nil
		})
}

// Groups returns the descriptor for regex_groups(string, pattern).
// Returns the capture groups of the first match, or null.
func Groups() functions.Descriptor {
	return leaf("regex_groups", "<s-s:a>", "Capture groups of the first match, or null",
		`regex_groups("k=v", "(\\w+)=(\\w+)") -> ["k", "v"]`,
		func(re *regexp.Regexp, s string, _ []any) (any, error) {
			m := re.FindStringSubmatchIndex(s)
			if m == nil {
				return nil, nil
			}
			out := make([]any, 0, len(m)/2-1)
			for i := 2; i < len(m); i += 2 {
				if m[i] < 0 {
					out = append(out, nil)
					continue
				}
				out = append(out, s[m[i]:m[i+1]])
			}
			return out, nil
		})
}

// Replace returns the descriptor for regex_replace(string, pattern, replacement).
// The replacement may reference groups as $1 or ${name}.
func Replace() functions.Descriptor {
	return leaf("regex_replace", "<s-s-s:s>", "Replace every match; $1 and ${name} expand to groups",
		`regex_replace("a1b2", "[0-9]", "#") -> "a#b#"`,
		func(re *regexp.Regexp, s string, rest []any) (any, error) {
			return re.ReplaceAllString(s, rest[0].(string)), nil
		})
}

// Split returns the descriptor for regex_split(string, pattern [, limit]).
func Split() functions.Descriptor {
	return leaf("regex_split", "<s-s-n?:a<s>>", "Split around matches, into at most limit parts when given",
		`regex_split("a, b;c", "[,;]\\s*") -> ["a", "b", "c"]`,
		func(re *regexp.Regexp, s string, rest []any) (any, error) {
			return strs(re.Split(s, limit(rest))), nil
		})
}

// Escape returns the descriptor for regex_escape(string).
func Escape() functions.Descriptor {
	return functions.Descriptor{
		Name:        "regex_escape",
		Category:    functions.CategoryRegex,
		Signature:   "<s:s>",
		Description: "Quote all metacharacters so the string matches literally",
		Example:     `regex_escape("a.b") -> "a\\.b"`,
		Leaf: func(args ...any) (any, error) {
			return regexp.QuoteMeta(args[0].(string)), nil
		},
	}
}
