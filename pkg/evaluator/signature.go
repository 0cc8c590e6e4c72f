package evaluator

import (
	"fmt"
	"strings"

	"github.com/sandrolain/celfx/pkg/types"
)

// TypeCode represents a type code in function signatures.
type TypeCode string

const (
	TypeAny        TypeCode = "x" // any type
	TypeString     TypeCode = "s" // string
	TypeNumber     TypeCode = "n" // number
	TypeBoolean    TypeCode = "b" // boolean
	TypeNull       TypeCode = "l" // null
	TypeArray      TypeCode = "a" // array
	TypeObject     TypeCode = "o" // object
	TypeExpression TypeCode = "e" // expression source text
)

var typeNames = map[TypeCode]string{
	TypeAny:        "any",
	TypeString:     types.TypeString,
	TypeNumber:     types.TypeNumber,
	TypeBoolean:    types.TypeBoolean,
	TypeNull:       types.TypeNull,
	TypeArray:      types.TypeArray,
	TypeObject:     types.TypeObject,
	TypeExpression: "expression",
}

// ParamType represents a parameter type in a signature
type ParamType struct {
	Type       TypeCode
	SubType    *ParamType // For arrays like a<n>
	UnionTypes []TypeCode // For union types like (ns) = number OR string
	Optional   bool
	Variadic   bool // one or more, last parameter only
}

// Signature represents a parsed function signature
type Signature struct {
	Params     []ParamType
	ReturnType *ParamType
}

// ParseSignature parses a function signature string.
// Examples: "<n-n:n>", "<s-s>", "<a<s>s?:s>", "<e-a:a>", "<x+:x>"
func ParseSignature(sig string) (*Signature, error) {
	if sig == "" {
		return nil, nil
	}

	if !strings.HasPrefix(sig, "<") || !strings.HasSuffix(sig, ">") {
		return nil, fmt.Errorf("invalid signature format %q", sig)
	}

	body := sig[1 : len(sig)-1]

	// Split by : to separate params from return type
	// But we need to respect nested brackets, so can't use strings.Split
	parts := splitByColonRespectingBrackets(body)
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid signature format %q", sig)
	}

	result := &Signature{}

	if len(parts) > 0 && parts[0] != "" {
		params, err := parseParamList(parts[0])
		if err != nil {
			return nil, err
		}
		result.Params = params
	}

	if len(parts) == 2 {
		returnType, err := parseParamType(parts[1])
		if err != nil {
			return nil, err
		}
		result.ReturnType = returnType
	}

	for i, p := range result.Params {
		if p.Variadic && i != len(result.Params)-1 {
			return nil, fmt.Errorf("variadic parameter must be last in %q", sig)
		}
	}

	return result, nil
}

// MustParseSignature is like ParseSignature but panics on error.
func MustParseSignature(sig string) *Signature {
	s, err := ParseSignature(sig)
	if err != nil {
		panic(err)
	}
	return s
}

// Arity returns the accepted argument count range. hi is -1 when the last
// parameter is variadic.
func (s *Signature) Arity() (lo, hi int) {
	if s == nil {
		return 0, -1
	}
	for _, p := range s.Params {
		if !p.Optional {
			lo++
		}
		if p.Variadic {
			return lo, -1
		}
	}
	return lo, len(s.Params)
}

// ParamAt returns the parameter type that applies to argument i, taking a
// trailing variadic parameter into account.
func (s *Signature) ParamAt(i int) (*ParamType, bool) {
	if s == nil || len(s.Params) == 0 {
		return nil, false
	}
	if i < len(s.Params) {
		return &s.Params[i], true
	}
	last := &s.Params[len(s.Params)-1]
	if last.Variadic {
		return last, true
	}
	return nil, false
}

// splitByColonRespectingBrackets splits a string by : but respects nested < >
func splitByColonRespectingBrackets(s string) []string {
	var parts []string
	depth := 0
	start := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ':':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}

	if start < len(s) {
		parts = append(parts, s[start:])
	}

	return parts
}

// parseParamList parses the parameter list part of a signature
func parseParamList(params string) ([]ParamType, error) {
	var result []ParamType
	i := 0

	for i < len(params) {
		paramType, consumed, err := parseParamTypeAt(params, i)
		if err != nil {
			return nil, err
		}
		result = append(result, *paramType)
		i += consumed

		// Skip optional separator '-'
		if i < len(params) && params[i] == '-' {
			i++
		}
	}

	return result, nil
}

func validCode(c TypeCode) bool {
	_, ok := typeNames[c]
	return ok
}

// parseParamTypeAt parses a parameter type starting at position i
// Returns the parsed type, number of characters consumed, and error
func parseParamTypeAt(s string, i int) (*ParamType, int, error) {
	if i >= len(s) {
		return nil, 0, fmt.Errorf("unexpected end of signature")
	}

	start := i
	paramType := &ParamType{}

	if s[i] == '(' {
		j := strings.IndexByte(s[i:], ')')
		if j < 0 {
			return nil, 0, fmt.Errorf("unmatched ( in signature")
		}
		j += i

		for _, char := range s[i+1 : j] {
			typeCode := TypeCode(string(char))
			if !validCode(typeCode) {
				return nil, 0, fmt.Errorf("unknown type code in union: %s", typeCode)
			}
			paramType.UnionTypes = append(paramType.UnionTypes, typeCode)
		}
		if len(paramType.UnionTypes) > 0 {
			paramType.Type = paramType.UnionTypes[0]
		}
		i = j + 1
	} else {
		typeCode := TypeCode(s[i : i+1])
		i++
		if !validCode(typeCode) {
			return nil, 0, fmt.Errorf("unknown type code: %s", typeCode)
		}
		paramType.Type = typeCode

		// Array subtype, e.g. a<n>
		if i < len(s) && s[i] == '<' {
			if typeCode != TypeArray {
				return nil, 0, fmt.Errorf("type %s cannot have subtypes", typeCode)
			}
			depth := 1
			j := i + 1
			for j < len(s) && depth > 0 {
				switch s[j] {
				case '<':
					depth++
				case '>':
					depth--
				}
				j++
			}
			if depth != 0 {
				return nil, 0, fmt.Errorf("unmatched < in signature")
			}
			subSig := s[i+1 : j-1]
			if subSig == "" {
				return nil, 0, fmt.Errorf("empty subtype")
			}
			subType, _, err := parseParamTypeAt(subSig, 0)
			if err != nil {
				return nil, 0, err
			}
			paramType.SubType = subType
			i = j
		}
	}

	// "?+" is zero or more
	for i < len(s) && (s[i] == '?' || s[i] == '+') {
		if s[i] == '?' {
			paramType.Optional = true
		} else {
			paramType.Variadic = true
		}
		i++
	}

	return paramType, i - start, nil
}

// parseParamType parses a single parameter type (helper for return type)
func parseParamType(s string) (*ParamType, error) {
	paramType, consumed, err := parseParamTypeAt(s, 0)
	if err != nil {
		return nil, err
	}
	if consumed != len(s) {
		return nil, fmt.Errorf("unexpected characters after type in %q", s)
	}
	return paramType, nil
}

// String renders the expected type for error messages.
func (pt *ParamType) String() string {
	if len(pt.UnionTypes) > 0 {
		names := make([]string, len(pt.UnionTypes))
		for i, c := range pt.UnionTypes {
			names[i] = typeNames[c]
		}
		return strings.Join(names, " or ")
	}
	if pt.Type == TypeArray && pt.SubType != nil {
		return "array of " + pt.SubType.String()
	}
	return typeNames[pt.Type]
}

// ValidateArgument validates that a value matches a parameter type. A
// mismatch is reported as a TypeMismatch error carrying the expected and
// actual type names; callers add the function name and position. Optional
// parameters also accept null.
func (pt *ParamType) ValidateArgument(value any) error {
	if pt.Optional && value == nil {
		return nil
	}
	if !pt.matches(value) {
		return types.Errorf(types.ErrCodeTypeMismatch, "expected %s, got %s", pt.String(), types.TypeOf(value)).
			WithTypes(pt.String(), types.TypeOf(value))
	}
	return nil
}

func (pt *ParamType) matches(value any) bool {
	if len(pt.UnionTypes) > 0 {
		for _, typeCode := range pt.UnionTypes {
			single := ParamType{Type: typeCode}
			if single.matches(value) {
				return true
			}
		}
		return false
	}

	switch pt.Type {
	case TypeAny:
		return true
	case TypeNull:
		return value == nil
	case TypeString, TypeExpression:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		_, ok := value.(float64)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeArray:
		arr, ok := value.([]any)
		if !ok {
			return false
		}
		if pt.SubType != nil {
			for _, elem := range arr {
				if !pt.SubType.matches(elem) {
					return false
				}
			}
		}
		return true
	case TypeObject:
		return types.IsObject(value)
	}
	return false
}
