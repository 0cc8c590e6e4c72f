// Package extsemver provides semantic version functions.
//
// Range expressions use the ">=1.2.0 <2.0.0 || 3.x" grammar, plus the
// npm-style shorthands "^1.2.3" and "~1.2.3".
package extsemver

import (
	"fmt"
	"strings"

	"github.com/blang/semver"

	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

// All returns all semver function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Parse(),
		Major(),
		Minor(),
		Patch(),
		Compare(),
		Satisfies(),
		IsValid(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategorySemver,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

func parse(s string) (semver.Version, error) {
	v, err := semver.Parse(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if err != nil {
		return v, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return v, nil
}

// Parse returns the descriptor for semver_parse(version).
func Parse() functions.Descriptor {
	return leaf("semver_parse", "<s:o>", "Components of a semantic version",
		`semver_parse("1.2.3-beta+build") -> {"major": 1, "minor": 2, "patch": 3, "pre": "beta", "build": "build"}`,
		func(args ...any) (any, error) {
			v, err := parse(args[0].(string))
			if err != nil {
				return nil, err
			}
			pre := make([]string, len(v.Pre))
			for i, p := range v.Pre {
				pre[i] = p.String()
			}
			out := types.NewOrderedObject()
			out.Set("major", float64(v.Major))
			out.Set("minor", float64(v.Minor))
			out.Set("patch", float64(v.Patch))
			out.Set("pre", nullIfEmpty(strings.Join(pre, ".")))
			out.Set("build", nullIfEmpty(strings.Join(v.Build, ".")))
			return out, nil
		})
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func component(name string, get func(semver.Version) uint64) functions.Descriptor {
	return leaf("semver_"+name, "<s:n>", "The "+name+" component of a version", "semver_"+name+`("1.2.3") -> ...`,
		func(args ...any) (any, error) {
			v, err := parse(args[0].(string))
			if err != nil {
				return nil, err
			}
			return float64(get(v)), nil
		})
}

// Major returns the descriptor for semver_major(version).
func Major() functions.Descriptor {
	return component("major", func(v semver.Version) uint64 { return v.Major })
}

// Minor returns the descriptor for semver_minor(version).
func Minor() functions.Descriptor {
	return component("minor", func(v semver.Version) uint64 { return v.Minor })
}

// Patch returns the descriptor for semver_patch(version).
func Patch() functions.Descriptor {
	return component("patch", func(v semver.Version) uint64 { return v.Patch })
}

// Compare returns the descriptor for semver_compare(a, b).
func Compare() functions.Descriptor {
	return leaf("semver_compare", "<s-s:n>", "-1, 0 or 1 by semantic version precedence",
		`semver_compare("1.2.3", "1.10.0") -> -1`,
		func(args ...any) (any, error) {
			a, err := parse(args[0].(string))
			if err != nil {
				return nil, err
			}
			b, err := parse(args[1].(string))
			if err != nil {
				return nil, err
			}
			return float64(a.Compare(b)), nil
		})
}

// expandShorthand rewrites "^x.y.z" and "~x.y.z" terms into explicit bounds.
func expandShorthand(expr string) (string, error) {
	fields := strings.Fields(expr)
	for i, f := range fields {
		if f == "" || (f[0] != '^' && f[0] != '~') {
			continue
		}
		v, err := parse(f[1:])
		if err != nil {
			return "", err
		}
		upper := semver.Version{Major: v.Major + 1}
		switch {
		case f[0] == '~':
			upper = semver.Version{Major: v.Major, Minor: v.Minor + 1}
		case v.Major == 0:
			upper = semver.Version{Minor: v.Minor + 1}
		}
		fields[i] = fmt.Sprintf(">=%s <%s", v, upper)
	}
	return strings.Join(fields, " "), nil
}

// Satisfies returns the descriptor for semver_satisfies(version, range).
func Satisfies() functions.Descriptor {
	return leaf("semver_satisfies", "<s-s:b>", "Whether a version lies in a range",
		`semver_satisfies("1.4.0", "^1.2.0") -> true`,
		func(args ...any) (any, error) {
			v, err := parse(args[0].(string))
			if err != nil {
				return nil, err
			}
			expr, err := expandShorthand(args[1].(string))
			if err != nil {
				return nil, err
			}
			r, err := semver.ParseRange(expr)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", args[1], err)
			}
			return r(v), nil
		})
}

// IsValid returns the descriptor for semver_is_valid(version).
func IsValid() functions.Descriptor {
	return leaf("semver_is_valid", "<s:b>", "Whether the string is a valid semantic version",
		`semver_is_valid("1.2") -> false`,
		func(args ...any) (any, error) {
			_, err := parse(args[0].(string))
			return err == nil, nil
		})
}
