// Package extencoding provides encoding functions: base64, hex, URL and HTML
// escaping, YAML and JWT inspection.
package extencoding

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// All returns all encoding function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Base64Encode(),
		Base64Decode(),
		Base64URLEncode(),
		Base64URLDecode(),
		HexEncode(),
		HexDecode(),
		URLEncode(),
		URLDecode(),
		HTMLEscape(),
		HTMLUnescape(),
		YAMLEncode(),
		YAMLDecode(),
		JWTDecode(),
		JWTHeader(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryEncoding,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

func str(fn func(string) string) functions.LeafFunc {
	return func(args ...any) (any, error) {
		return fn(args[0].(string)), nil
	}
}

func decoder(kind string, fn func(string) ([]byte, error)) functions.LeafFunc {
	return func(args ...any) (any, error) {
		b, err := fn(args[0].(string))
		if err != nil {
			return nil, fmt.Errorf("invalid %s input: %w", kind, err)
		}
		return string(b), nil
	}
}

// Base64Encode returns the descriptor for base64_encode(string).
func Base64Encode() functions.Descriptor {
	return leaf("base64_encode", "<s:s>", "Standard base64 with padding", `base64_encode("hi") -> "aGk="`,
		str(func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }))
}

// Base64Decode returns the descriptor for base64_decode(string).
func Base64Decode() functions.Descriptor {
	return leaf("base64_decode", "<s:s>", "Decode standard base64", `base64_decode("aGk=") -> "hi"`,
		decoder("base64", base64.StdEncoding.DecodeString))
}

// Base64URLEncode returns the descriptor for base64url_encode(string).
func Base64URLEncode() functions.Descriptor {
	return leaf("base64url_encode", "<s:s>", "URL-safe base64 without padding", `base64url_encode("hi?") -> "aGk_"`,
		str(func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }))
}

// Base64URLDecode returns the descriptor for base64url_decode(string).
func Base64URLDecode() functions.Descriptor {
	return leaf("base64url_decode", "<s:s>", "Decode URL-safe base64, padding optional", `base64url_decode("aGk_") -> "hi?"`,
		decoder("base64url", func(s string) ([]byte, error) {
			return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
		}))
}

// HexEncode returns the descriptor for hex_encode(string).
func HexEncode() functions.Descriptor {
	return leaf("hex_encode", "<s:s>", "Lowercase hex of the UTF-8 bytes", `hex_encode("hi") -> "6869"`,
		str(func(s string) string { return hex.EncodeToString([]byte(s)) }))
}

// HexDecode returns the descriptor for hex_decode(string).
func HexDecode() functions.Descriptor {
	return leaf("hex_decode", "<s:s>", "Decode hex into a string", `hex_decode("6869") -> "hi"`,
		decoder("hex", hex.DecodeString))
}

// URLEncode returns the descriptor for url_encode(string).
func URLEncode() functions.Descriptor {
	return leaf("url_encode", "<s:s>", "Query-escape a string", `url_encode("a b&c") -> "a+b%26c"`,
		str(url.QueryEscape))
}

// URLDecode returns the descriptor for url_decode(string).
func URLDecode() functions.Descriptor {
	return leaf("url_decode", "<s:s>", "Reverse of url_encode", `url_decode("a+b%26c") -> "a b&c"`,
		decoder("url", func(s string) ([]byte, error) {
			out, err := url.QueryUnescape(s)
			return []byte(out), err
		}))
}

// HTMLEscape returns the descriptor for html_escape(string).
func HTMLEscape() functions.Descriptor {
	return leaf("html_escape", "<s:s>", "Escape <, >, &, ' and \"", `html_escape("<b>") -> "&lt;b&gt;"`,
		str(html.EscapeString))
}

// HTMLUnescape returns the descriptor for html_unescape(string).
func HTMLUnescape() functions.Descriptor {
	return leaf("html_unescape", "<s:s>", "Unescape HTML entities", `html_unescape("&lt;b&gt;") -> "<b>"`,
		str(html.UnescapeString))
}

// YAMLEncode returns the descriptor for yaml_encode(value).
// Object key order is preserved for ordered objects; plain maps are sorted.
func YAMLEncode() functions.Descriptor {
	return leaf("yaml_encode", "<x:s>", "Serialise a value as YAML", `yaml_encode({"a": 1}) -> "a: 1\n"`,
		func(args ...any) (any, error) {
			node, err := toNode(args[0])
			if err != nil {
				return nil, err
			}
			b, err := yaml.Marshal(node)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		})
}

func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case map[string]any, *types.OrderedObject:
		keys, vals, _ := types.ObjectEntries(t)
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			val, err := toNode(vals[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range t {
			val, err := toNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, val)
		}
		return n, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

// YAMLDecode returns the descriptor for yaml_decode(string).
func YAMLDecode() functions.Descriptor {
	return leaf("yaml_decode", "<s:x>", "Parse a YAML document", `yaml_decode("a: 1") -> {"a": 1}`,
		func(args ...any) (any, error) {
			var out any
			if err := yaml.Unmarshal([]byte(args[0].(string)), &out); err != nil {
				return nil, fmt.Errorf("invalid yaml: %w", err)
			}
			return types.Normalize(out), nil
		})
}

// jwtPart decodes segment i of a JWT without verifying its signature.
func jwtPart(token string, i int) (any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[i], "="))
	if err != nil {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, nil
	}
	return types.Normalize(out), nil
}

// JWTDecode returns the descriptor for jwt_decode(token).
// The signature is not verified; malformed tokens yield null.
func JWTDecode() functions.Descriptor {
	return leaf("jwt_decode", "<s:o>", "Claims of a JWT (signature not verified), null when malformed",
		`jwt_decode(token).sub -> "1234567890"`,
		func(args ...any) (any, error) {
			return jwtPart(args[0].(string), 1)
		})
}

// JWTHeader returns the descriptor for jwt_header(token).
func JWTHeader() functions.Descriptor {
	return leaf("jwt_header", "<s:o>", "Header of a JWT, null when malformed", `jwt_header(token).alg -> "HS256"`,
		func(args ...any) (any, error) {
			return jwtPart(args[0].(string), 0)
		})
}
