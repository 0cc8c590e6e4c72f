// Package extstring provides string functions: case mapping, trimming,
// padding, splitting and simple templating.
package extstring

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// All returns all string function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Lower(),
		Upper(),
		Trim(),
		TrimLeft(),
		TrimRight(),
		LTrimStr(),
		RTrimStr(),
		Split(),
		Replace(),
		PadLeft(),
		PadRight(),
		Substr(),
		Capitalize(),
		TitleCase(),
		CamelCase(),
		SnakeCase(),
		KebabCase(),
		Repeat(),
		IndexOf(),
		LastIndexOf(),
		Truncate(),
		Words(),
		Concat(),
		Template(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryString,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

func mapString(name, desc, example string, fn func(string) string) functions.Descriptor {
	return leaf(name, "<s:s>", desc, example, func(args ...any) (any, error) {
		return fn(args[0].(string)), nil
	})
}

// Lower returns the descriptor for lower(str).
func Lower() functions.Descriptor {
	return mapString("lower", "Convert to lowercase", `lower('HeLLo') -> "hello"`, func(s string) string {
		return cases.Lower(language.Und).String(s)
	})
}

// Upper returns the descriptor for upper(str).
func Upper() functions.Descriptor {
	return mapString("upper", "Convert to uppercase", `upper('hello') -> "HELLO"`, func(s string) string {
		return cases.Upper(language.Und).String(s)
	})
}

// Trim returns the descriptor for trim(str).
func Trim() functions.Descriptor {
	return mapString("trim", "Remove leading and trailing whitespace", `trim('  hi  ') -> "hi"`, strings.TrimSpace)
}

// TrimLeft returns the descriptor for trim_left(str).
func TrimLeft() functions.Descriptor {
	return mapString("trim_left", "Remove leading whitespace", `trim_left('  hi') -> "hi"`, func(s string) string {
		return strings.TrimLeftFunc(s, unicode.IsSpace)
	})
}

// TrimRight returns the descriptor for trim_right(str).
func TrimRight() functions.Descriptor {
	return mapString("trim_right", "Remove trailing whitespace", `trim_right('hi  ') -> "hi"`, func(s string) string {
		return strings.TrimRightFunc(s, unicode.IsSpace)
	})
}

// LTrimStr returns the descriptor for ltrimstr(str, prefix).
func LTrimStr() functions.Descriptor {
	return leaf("ltrimstr", "<s-s:s>", "Remove a prefix if present", `ltrimstr('foobar', 'foo') -> "bar"`,
		func(args ...any) (any, error) {
			return strings.TrimPrefix(args[0].(string), args[1].(string)), nil
		})
}

// RTrimStr returns the descriptor for rtrimstr(str, suffix).
func RTrimStr() functions.Descriptor {
	return leaf("rtrimstr", "<s-s:s>", "Remove a suffix if present", `rtrimstr('foobar', 'bar') -> "foo"`,
		func(args ...any) (any, error) {
			return strings.TrimSuffix(args[0].(string), args[1].(string)), nil
		})
}

// Split returns the descriptor for split(str, sep).
func Split() functions.Descriptor {
	return leaf("split", "<s-s:a<s>>", "Split on a separator", `split('a,b,c', ',') -> ["a", "b", "c"]`,
		func(args ...any) (any, error) {
			return toAny(strings.Split(args[0].(string), args[1].(string))), nil
		})
}

// Replace returns the descriptor for replace(str, old, new).
func Replace() functions.Descriptor {
	return leaf("replace", "<s-s-s:s>", "Replace every occurrence", `replace('a-b-c', '-', '+') -> "a+b+c"`,
		func(args ...any) (any, error) {
			return strings.ReplaceAll(args[0].(string), args[1].(string), args[2].(string)), nil
		})
}

// PadLeft returns the descriptor for pad_left(str, width [, char]).
func PadLeft() functions.Descriptor {
	return leaf("pad_left", "<s-n-s?:s>", "Pad on the left to the given width", `pad_left('5', 3, '0') -> "005"`,
		func(args ...any) (any, error) {
			pad, err := padding(args)
			if err != nil {
				return nil, err
			}
			return pad + args[0].(string), nil
		})
}

// PadRight returns the descriptor for pad_right(str, width [, char]).
func PadRight() functions.Descriptor {
	return leaf("pad_right", "<s-n-s?:s>", "Pad on the right to the given width", `pad_right('ab', 4) -> "ab  "`,
		func(args ...any) (any, error) {
			pad, err := padding(args)
			if err != nil {
				return nil, err
			}
			return args[0].(string) + pad, nil
		})
}

func padding(args []any) (string, error) {
	fill := " "
	if len(args) > 2 && args[2] != nil {
		fill = args[2].(string)
		if utf8.RuneCountInString(fill) != 1 {
			return "", fmt.Errorf("pad character must be a single character")
		}
	}
	n := int(args[1].(float64)) - utf8.RuneCountInString(args[0].(string))
	if n <= 0 {
		return "", nil
	}
	return strings.Repeat(fill, n), nil
}

// Substr returns the descriptor for substr(str, start [, length]).
// Positions count characters; a negative start counts from the end.
func Substr() functions.Descriptor {
	return leaf("substr", "<s-n-n?:s>", "Substring by character position and length", `substr('hello', 1, 3) -> "ell"`,
		func(args ...any) (any, error) {
			runes := []rune(args[0].(string))
			start := int(args[1].(float64))
			if start < 0 {
				start = max(len(runes)+start, 0)
			}
			if start >= len(runes) {
				return "", nil
			}
			end := len(runes)
			if len(args) > 2 && args[2] != nil {
				n := int(args[2].(float64))
				if n < 0 {
					return "", nil
				}
				end = min(start+n, len(runes))
			}
			return string(runes[start:end]), nil
		})
}

// Capitalize returns the descriptor for capitalize(str).
// Uppercases the first character, lowercases the rest.
func Capitalize() functions.Descriptor {
	return mapString("capitalize", "Uppercase the first character and lowercase the rest", `capitalize('hELLO') -> "Hello"`,
		func(s string) string {
			if s == "" {
				return s
			}
			runes := []rune(strings.ToLower(s))
			runes[0] = unicode.ToUpper(runes[0])
			return string(runes)
		})
}

// TitleCase returns the descriptor for title_case(str).
func TitleCase() functions.Descriptor {
	return mapString("title_case", "Uppercase the first letter of each word", `title_case('hello world') -> "Hello World"`,
		func(s string) string {
			return cases.Title(language.Und).String(s)
		})
}

var splitWordsRe = regexp.MustCompile(`[_\-\s]+|([a-z])([A-Z])`)

// splitIntoWords splits on camelCase boundaries, underscores, dashes and spaces.
func splitIntoWords(str string) []string {
	expanded := splitWordsRe.ReplaceAllStringFunc(str, func(s string) string {
		if len(s) == 2 && s[0] >= 'a' && s[0] <= 'z' {
			return string(s[0]) + " " + string(s[1])
		}
		return " "
	})
	return strings.Fields(expanded)
}

// CamelCase returns the descriptor for camel_case(str).
func CamelCase() functions.Descriptor {
	return mapString("camel_case", "Convert to camelCase", `camel_case('hello_world') -> "helloWorld"`,
		func(s string) string {
			words := splitIntoWords(s)
			if len(words) == 0 {
				return ""
			}
			var b strings.Builder
			b.WriteString(strings.ToLower(words[0]))
			title := cases.Title(language.Und)
			for _, w := range words[1:] {
				b.WriteString(title.String(w))
			}
			return b.String()
		})
}

// SnakeCase returns the descriptor for snake_case(str).
func SnakeCase() functions.Descriptor {
	return mapString("snake_case", "Convert to snake_case", `snake_case('helloWorld') -> "hello_world"`,
		func(s string) string {
			return joinLower(splitIntoWords(s), "_")
		})
}

// KebabCase returns the descriptor for kebab_case(str).
func KebabCase() functions.Descriptor {
	return mapString("kebab_case", "Convert to kebab-case", `kebab_case('helloWorld') -> "hello-world"`,
		func(s string) string {
			return joinLower(splitIntoWords(s), "-")
		})
}

func joinLower(words []string, sep string) string {
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, sep)
}

// Repeat returns the descriptor for repeat(str, n).
func Repeat() functions.Descriptor {
	return leaf("repeat", "<s-n:s>", "Repeat a string n times", `repeat('ab', 3) -> "ababab"`,
		func(args ...any) (any, error) {
			n := args[1].(float64)
			if n < 0 || n != float64(int(n)) {
				return nil, fmt.Errorf("count must be a non-negative integer")
			}
			return strings.Repeat(args[0].(string), int(n)), nil
		})
}

// IndexOf returns the descriptor for index_of(str, search [, start]).
// Returns -1 when not found. Positions are byte offsets.
func IndexOf() functions.Descriptor {
	return leaf("index_of", "<s-s-n?:n>", "Position of the first occurrence, or -1", `index_of('hello', 'l') -> 2`,
		func(args ...any) (any, error) {
			str, search := args[0].(string), args[1].(string)
			start := 0
			if len(args) > 2 && args[2] != nil {
				start = max(int(args[2].(float64)), 0)
			}
			if start > len(str) {
				return float64(-1), nil
			}
			idx := strings.Index(str[start:], search)
			if idx == -1 {
				return float64(-1), nil
			}
			return float64(idx + start), nil
		})
}

// LastIndexOf returns the descriptor for last_index_of(str, search).
func LastIndexOf() functions.Descriptor {
	return leaf("last_index_of", "<s-s:n>", "Position of the last occurrence, or -1", `last_index_of('hello', 'l') -> 3`,
		func(args ...any) (any, error) {
			return float64(strings.LastIndex(args[0].(string), args[1].(string))), nil
		})
}

// Truncate returns the descriptor for truncate(str, length [, suffix]).
func Truncate() functions.Descriptor {
	return leaf("truncate", "<s-n-s?:s>", "Shorten to length characters, appending suffix (default \"...\")",
		`truncate('hello world', 8) -> "hello..."`,
		func(args ...any) (any, error) {
			runes := []rune(args[0].(string))
			n := int(args[1].(float64))
			suffix := "..."
			if len(args) > 2 && args[2] != nil {
				suffix = args[2].(string)
			}
			if len(runes) <= n {
				return string(runes), nil
			}
			keep := n - utf8.RuneCountInString(suffix)
			if keep < 0 {
				keep = 0
			}
			return string(runes[:keep]) + suffix, nil
		})
}

// Words returns the descriptor for words(str).
func Words() functions.Descriptor {
	return leaf("words", "<s:a<s>>", "Split on whitespace", `words(' a  b ') -> ["a", "b"]`,
		func(args ...any) (any, error) {
			return toAny(strings.Fields(args[0].(string))), nil
		})
}

// Concat returns the descriptor for concat(str...).
func Concat() functions.Descriptor {
	return leaf("concat", "<s+:s>", "Join all arguments", `concat('a', 'b', 'c') -> "abc"`,
		func(args ...any) (any, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(a.(string))
			}
			return b.String(), nil
		})
}

var templateRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Template returns the descriptor for template(str, bindings).
// Replaces {{key}} placeholders with values from the bindings object;
// unknown keys are left untouched.
func Template() functions.Descriptor {
	return leaf("template", "<s-o:s>", "Fill {{key}} placeholders from an object",
		`template('Hi {{name}}', {"name": "Ann"}) -> "Hi Ann"`,
		func(args ...any) (any, error) {
			bindings := args[1]
			return templateRe.ReplaceAllStringFunc(args[0].(string), func(match string) string {
				key := templateRe.FindStringSubmatch(match)[1]
				val, ok := types.Field(bindings, key)
				if !ok {
					return match
				}
				if s, ok := val.(string); ok {
					return s
				}
				return types.KeyString(val)
			}), nil
		})
}

func toAny(parts []string) []any {
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}
