// Package extvalidation provides format predicates and JSON Schema
// validation.
package extvalidation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-().]{7,}$`)
)

// All returns all validation function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		check("is_email", "Whether the string looks like an email address", `is_email("a@b.io") -> true`, emailPattern.MatchString),
		check("is_url", "Whether the string is an absolute http(s) URL", `is_url("https://x.io") -> true`, isURL),
		check("is_uuid", "Whether the string is a UUID", `is_uuid("not") -> false`, isUUID),
		check("is_phone", "Whether the string looks like a phone number", `is_phone("+1 555-0100") -> true`, phonePattern.MatchString),
		check("is_ipv4", "Whether the string is an IPv4 address", `is_ipv4("10.0.0.1") -> true`, isIPv4),
		check("is_ipv6", "Whether the string is an IPv6 address", `is_ipv6("::1") -> true`, isIPv6),
		check("is_iso_date", "Whether the string is an RFC 3339 or ISO date", `is_iso_date("2024-01-15") -> true`, isISODate),
		check("is_json", "Whether the string is valid JSON", `is_json("{}") -> true`, isJSON),
		check("is_base64", "Whether the string is standard base64", `is_base64("aGk=") -> true`, isBase64),
		check("is_hex", "Whether the string is non-empty hex", `is_hex("ff") -> true`, isHex),
		check("is_jwt", "Whether the string has the shape of a JWT", `is_jwt("a.b.c") -> false`, isJWT),
		check("luhn_check", "Whether the digits pass the Luhn checksum", `luhn_check("79927398713") -> true`, luhn),
		check("is_credit_card", "Whether the string is a 13-19 digit number passing Luhn", `is_credit_card("4111 1111 1111 1111") -> true`, isCreditCard),
		JSONSchemaValid(),
		JSONSchemaErrors(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryValidation,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

func check(name, desc, example string, fn func(string) bool) functions.Descriptor {
	return leaf(name, "<s:b>", desc, example, func(args ...any) (any, error) {
		return fn(args[0].(string)), nil
	})
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" && !strings.ContainsAny(s, " \t\n")
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

func isIPv4(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

func isIPv6(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is6()
}

func isISODate(s string) bool {
	for _, l := range []string{time.RFC3339Nano, "2006-01-02", "2006-01-02T15:04:05"} {
		if _, err := time.Parse(l, s); err == nil {
			return true
		}
	}
	return false
}

func isBase64(s string) bool {
	if s == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

func isHex(s string) bool {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	return s != "" && strings.Trim(s, "0123456789abcdef") == ""
}

func isJSON(s string) bool {
	return json.Valid([]byte(s))
}

func isJWT(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts[:2] {
		b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(p, "="))
		if err != nil || !json.Valid(b) {
			return false
		}
	}
	return true
}

func luhn(s string) bool {
	digits := strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), "-", "")
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		r := rune(digits[i])
		if !unicode.IsDigit(r) {
			return false
		}
		d := int(r - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func isCreditCard(s string) bool {
	digits := strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), "-", "")
	return len(digits) >= 13 && len(digits) <= 19 && luhn(digits)
}

// validate runs a JSON Schema given as an object or a JSON string.
func validate(value, schema any) (*gojsonschema.Result, error) {
	var schemaData []byte
	if s, ok := schema.(string); ok {
		schemaData = []byte(s)
	} else {
		b, err := json.Marshal(schema)
		if err != nil {
			return nil, err
		}
		schemaData = b
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return result, nil
}

// JSONSchemaValid returns the descriptor for json_schema_valid(value, schema).
func JSONSchemaValid() functions.Descriptor {
	return leaf("json_schema_valid", "<x-(os):b>", "Whether the value satisfies a JSON Schema",
		`json_schema_valid({"a": 1}, {"type": "object"}) -> true`,
		func(args ...any) (any, error) {
			result, err := validate(args[0], args[1])
			if err != nil {
				return nil, err
			}
			return result.Valid(), nil
		})
}

// JSONSchemaErrors returns the descriptor for json_schema_errors(value, schema).
// Each violation is reported as {"field": ..., "message": ...}.
func JSONSchemaErrors() functions.Descriptor {
	return leaf("json_schema_errors", "<x-(os):a>", "Schema violations as [{field, message}], empty when valid",
		`json_schema_errors(1, {"type": "string"}) -> [{"field": "(root)", "message": "Invalid type. Expected: string, given: integer"}]`,
		func(args ...any) (any, error) {
			result, err := validate(args[0], args[1])
			if err != nil {
				return nil, err
			}
			out := make([]any, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				e := types.NewOrderedObject()
				e.Set("field", desc.Field())
				e.Set("message", desc.Description())
				out = append(out, e)
			}
			return out, nil
		})
}
