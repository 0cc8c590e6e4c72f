// Package extformat provides output formatting functions: CSV and TSV
// rendering and parsing, and human-readable numbers, sizes and times.
package extformat

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// clock is replaced in tests.
var clock = time.Now

// All returns all format function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		ToCSV(),
		ToTSV(),
		ToCSVRows(),
		ToCSVTable(),
		ParseCSV(),
		FormatBytes(),
		FormatNumber(),
		Ordinal(),
		RelativeTime(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryFormat,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

// cell renders a value as a CSV field: null is empty, composites are JSON.
func cell(v any) string {
	if v == nil {
		return ""
	}
	return types.KeyString(v)
}

func cells(arr []any) []string {
	out := make([]string, len(arr))
	for i, v := range arr {
		out[i] = cell(v)
	}
	return out
}

// write renders rows without a trailing newline.
func write(rows [][]string, comma rune) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}

// ToCSV returns the descriptor for to_csv(array).
func ToCSV() functions.Descriptor {
	return leaf("to_csv", "<a:s>", "One CSV line from an array of values", `to_csv(["a", 1, null]) -> "a,1,"`,
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return "", nil
			}
			return write([][]string{cells(arr)}, ',')
		})
}

// ToTSV returns the descriptor for to_tsv(array).
func ToTSV() functions.Descriptor {
	return leaf("to_tsv", "<a:s>", "One tab-separated line from an array of values", `to_tsv(["a", "b"]) -> "a\tb"`,
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return "", nil
			}
			return write([][]string{cells(arr)}, '\t')
		})
}

// ToCSVRows returns the descriptor for to_csv_rows(rows).
func ToCSVRows() functions.Descriptor {
	return leaf("to_csv_rows", "<a<a>:s>", "CSV document from an array of arrays",
		`to_csv_rows([[1, 2], [3, 4]]) -> "1,2\n3,4"`,
		func(args ...any) (any, error) {
			var rows [][]string
			for _, r := range args[0].([]any) {
				rows = append(rows, cells(r.([]any)))
			}
			return write(rows, ',')
		})
}

// ToCSVTable returns the descriptor for to_csv_table(objects [, columns]).
// Columns default to the sorted keys of the first object.
func ToCSVTable() functions.Descriptor {
	return leaf("to_csv_table", "<a-a<s>?:s>", "CSV document with a header row from an array of objects",
		`to_csv_table([{"a": 1, "b": 2}]) -> "a,b\n1,2"`,
		func(args ...any) (any, error) {
			arr := args[0].([]any)
			if len(arr) == 0 {
				return "", nil
			}
			var columns []string
			if len(args) > 1 && args[1] != nil {
				for _, c := range args[1].([]any) {
					columns = append(columns, c.(string))
				}
			} else if types.IsObject(arr[0]) {
				columns, _, _ = types.ObjectEntries(arr[0])
			}
			if len(columns) == 0 {
				return "", nil
			}
			rows := [][]string{columns}
			for _, item := range arr {
				row := make([]string, len(columns))
				for i, col := range columns {
					if v, ok := types.Field(item, col); ok {
						row[i] = cell(v)
					}
				}
				rows = append(rows, row)
			}
			return write(rows, ',')
		})
}

// ParseCSV returns the descriptor for parse_csv(text [, options]).
// The first row holds the headers; each further row becomes an object.
//
// options (all optional):
//   - "separator": field delimiter character (default ",")
//   - "comment":   comment character (default none)
func ParseCSV() functions.Descriptor {
	return leaf("parse_csv", "<s-o?:a>", "Parse CSV text with a header row into objects",
		`parse_csv("a,b\n1,2") -> [{"a": "1", "b": "2"}]`,
		func(args ...any) (any, error) {
			r := csv.NewReader(strings.NewReader(args[0].(string)))
			r.TrimLeadingSpace = true
			r.FieldsPerRecord = -1
			if len(args) > 1 && args[1] != nil {
				if sep, ok := types.Field(args[1], "separator"); ok {
					if s, ok := sep.(string); ok && s != "" {
						r.Comma = []rune(s)[0]
					}
				}
				if c, ok := types.Field(args[1], "comment"); ok {
					if s, ok := c.(string); ok && s != "" {
						r.Comment = []rune(s)[0]
					}
				}
			}
			records, err := r.ReadAll()
			if err != nil {
				return nil, fmt.Errorf("csv parse error: %w", err)
			}
			out := make([]any, 0, max(len(records)-1, 0))
			if len(records) < 2 {
				return out, nil
			}
			headers := records[0]
			for _, row := range records[1:] {
				obj := types.NewOrderedObject()
				for i, h := range headers {
					v := ""
					if i < len(row) {
						v = row[i]
					}
					obj.Set(h, v)
				}
				out = append(out, obj)
			}
			return out, nil
		})
}

// FormatBytes returns the descriptor for format_bytes(n [, binary]).
func FormatBytes() functions.Descriptor {
	return leaf("format_bytes", "<n-b?:s>", "Human-readable byte size, SI by default or IEC when binary is true",
		`format_bytes(1500000) -> "1.5 MB"`,
		func(args ...any) (any, error) {
			n := args[0].(float64)
			if n < 0 {
				return nil, fmt.Errorf("size must not be negative, got %v", n)
			}
			if len(args) > 1 && args[1] == true {
				return humanize.IBytes(uint64(n)), nil
			}
			return humanize.Bytes(uint64(n)), nil
		})
}

// FormatNumber returns the descriptor for format_number(n [, decimals]).
func FormatNumber() functions.Descriptor {
	return leaf("format_number", "<n-n?:s>", "Number with thousands separators and optional fixed decimals",
		`format_number(1234567.891, 2) -> "1,234,567.89"`,
		func(args ...any) (any, error) {
			n := args[0].(float64)
			if len(args) > 1 && args[1] != nil {
				decimals := int(args[1].(float64))
				if decimals < 0 || decimals > 20 {
					return nil, fmt.Errorf("decimals must be between 0 and 20, got %d", decimals)
				}
				return humanize.FormatFloat("#,###."+strings.Repeat("#", decimals), n), nil
			}
			return humanize.Commaf(n), nil
		})
}

// Ordinal returns the descriptor for ordinal(n).
func Ordinal() functions.Descriptor {
	return leaf("ordinal", "<n:s>", "Number with its English ordinal suffix", `ordinal(22) -> "22nd"`,
		func(args ...any) (any, error) {
			return humanize.Ordinal(int(args[0].(float64))), nil
		})
}

// RelativeTime returns the descriptor for relative_time(timestamp).
// The timestamp is in epoch seconds.
func RelativeTime() functions.Descriptor {
	return leaf("relative_time", "<n:s>", "Time relative to now, such as \"3 hours ago\"",
		`relative_time(now() - 7200.0) -> "2 hours ago"`,
		func(args ...any) (any, error) {
			t := time.UnixMilli(int64(args[0].(float64) * 1000))
			return humanize.RelTime(t, clock(), "ago", "from now"), nil
		})
}
