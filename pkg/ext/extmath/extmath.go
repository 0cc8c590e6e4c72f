// Package extmath provides numeric and statistical functions.
package extmath

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/sandrolain/celfx/pkg/functions"
)

// All returns all math function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Abs(),
		Ceil(),
		Floor(),
		Round(),
		Trunc(),
		Sign(),
		Pow(),
		Sqrt(),
		Log(),
		Exp(),
		Mod(),
		Clamp(),
		Sin(),
		Cos(),
		Tan(),
		Asin(),
		Acos(),
		Atan(),
		Atan2(),
		Pi(),
		DegToRad(),
		RadToDeg(),
		ToFixed(),
		Sum(),
		Avg(),
		MinValue(),
		MaxValue(),
		Median(),
		Variance(),
		Stddev(),
		Percentile(),
		Mode(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryMath,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

func unary(name, desc, example string, fn func(float64) float64) functions.Descriptor {
	return leaf(name, "<n:n>", desc, example, func(args ...any) (any, error) {
		return fn(args[0].(float64)), nil
	})
}

// Abs returns the descriptor for abs(n).
func Abs() functions.Descriptor {
	return unary("abs", "Absolute value", "abs(-3) -> 3", math.Abs)
}

// Ceil returns the descriptor for ceil(n).
func Ceil() functions.Descriptor {
	return unary("ceil", "Round up to the nearest integer", "ceil(1.2) -> 2", math.Ceil)
}

// Floor returns the descriptor for floor(n).
func Floor() functions.Descriptor {
	return unary("floor", "Round down to the nearest integer", "floor(1.8) -> 1", math.Floor)
}

// Round returns the descriptor for round(n [, precision]).
// Halves round away from zero.
func Round() functions.Descriptor {
	return leaf("round", "<n-n?:n>", "Round to the given number of decimal places (default 0)",
		"round(3.14159, 2) -> 3.14",
		func(args ...any) (any, error) {
			n := args[0].(float64)
			if len(args) < 2 || args[1] == nil {
				return math.Round(n), nil
			}
			p := math.Pow(10, math.Trunc(args[1].(float64)))
			return math.Round(n*p) / p, nil
		})
}

// Trunc returns the descriptor for trunc(n). Truncates toward zero.
func Trunc() functions.Descriptor {
	return unary("trunc", "Truncate toward zero", "trunc(-2.7) -> -2", math.Trunc)
}

// Sign returns the descriptor for sign(n). Returns -1, 0, or 1.
func Sign() functions.Descriptor {
	return unary("sign", "Sign of a number: -1, 0 or 1", "sign(-4) -> -1", func(n float64) float64 {
		switch {
		case n < 0:
			return -1
		case n > 0:
			return 1
		default:
			return 0
		}
	})
}

// Pow returns the descriptor for pow(base, exponent).
func Pow() functions.Descriptor {
	return leaf("pow", "<n-n:n>", "Raise base to the exponent", "pow(2, 10) -> 1024",
		func(args ...any) (any, error) {
			r := math.Pow(args[0].(float64), args[1].(float64))
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return nil, fmt.Errorf("result is not a finite number")
			}
			return r, nil
		})
}

// Sqrt returns the descriptor for sqrt(n).
func Sqrt() functions.Descriptor {
	return leaf("sqrt", "<n:n>", "Square root", "sqrt(16) -> 4",
		func(args ...any) (any, error) {
			n := args[0].(float64)
			if n < 0 {
				return nil, fmt.Errorf("argument must not be negative")
			}
			return math.Sqrt(n), nil
		})
}

// Log returns the descriptor for log(n [, base]).
// Without base, returns the natural logarithm.
func Log() functions.Descriptor {
	return leaf("log", "<n-n?:n>", "Logarithm, natural unless a base is given", "log(100, 10) -> 2",
		func(args ...any) (any, error) {
			n := args[0].(float64)
			if n <= 0 {
				return nil, fmt.Errorf("argument must be positive")
			}
			if len(args) >= 2 && args[1] != nil {
				base := args[1].(float64)
				if base <= 0 || base == 1 {
					return nil, fmt.Errorf("base must be positive and not 1")
				}
				return math.Log(n) / math.Log(base), nil
			}
			return math.Log(n), nil
		})
}

// Exp returns the descriptor for exp(n).
func Exp() functions.Descriptor {
	return unary("exp", "e raised to n", "exp(0) -> 1", math.Exp)
}

// Mod returns the descriptor for mod(a, b). The result has the sign of a.
func Mod() functions.Descriptor {
	return leaf("mod", "<n-n:n>", "Floating-point remainder of a / b", "mod(7, 3) -> 1",
		func(args ...any) (any, error) {
			b := args[1].(float64)
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return math.Mod(args[0].(float64), b), nil
		})
}

// Clamp returns the descriptor for clamp(n, lo, hi).
func Clamp() functions.Descriptor {
	return leaf("clamp", "<n-n-n:n>", "Limit n to the range [lo, hi]", "clamp(15, 0, 10) -> 10",
		func(args ...any) (any, error) {
			n, lo, hi := args[0].(float64), args[1].(float64), args[2].(float64)
			if lo > hi {
				return nil, fmt.Errorf("lower bound %v is greater than upper bound %v", lo, hi)
			}
			return math.Max(lo, math.Min(n, hi)), nil
		})
}

// Sin returns the descriptor for sin(n).
func Sin() functions.Descriptor {
	return unary("sin", "Sine (radians)", "sin(0) -> 0", math.Sin)
}

// Cos returns the descriptor for cos(n).
func Cos() functions.Descriptor {
	return unary("cos", "Cosine (radians)", "cos(0) -> 1", math.Cos)
}

// Tan returns the descriptor for tan(n).
func Tan() functions.Descriptor {
	return unary("tan", "Tangent (radians)", "tan(0) -> 0", math.Tan)
}

// Asin returns the descriptor for asin(n).
func Asin() functions.Descriptor {
	return unary("asin", "Arc sine", "asin(1) -> 1.5707963267948966", math.Asin)
}

// Acos returns the descriptor for acos(n).
func Acos() functions.Descriptor {
	return unary("acos", "Arc cosine", "acos(1) -> 0", math.Acos)
}

// Atan returns the descriptor for atan(n).
func Atan() functions.Descriptor {
	return unary("atan", "Arc tangent", "atan(0) -> 0", math.Atan)
}

// Atan2 returns the descriptor for atan2(y, x).
func Atan2() functions.Descriptor {
	return leaf("atan2", "<n-n:n>", "Arc tangent of y/x using the signs of both", "atan2(1, 1) -> 0.7853981633974483",
		func(args ...any) (any, error) {
			return math.Atan2(args[0].(float64), args[1].(float64)), nil
		})
}

// Pi returns the descriptor for pi().
func Pi() functions.Descriptor {
	return leaf("pi", "<:n>", "The constant pi", "pi() -> 3.141592653589793",
		func(_ ...any) (any, error) {
			return math.Pi, nil
		})
}

// DegToRad returns the descriptor for deg_to_rad(n).
func DegToRad() functions.Descriptor {
	return unary("deg_to_rad", "Degrees to radians", "deg_to_rad(180) -> 3.141592653589793", func(n float64) float64 {
		return n * math.Pi / 180
	})
}

// RadToDeg returns the descriptor for rad_to_deg(n).
func RadToDeg() functions.Descriptor {
	return unary("rad_to_deg", "Radians to degrees", "rad_to_deg(pi()) -> 180", func(n float64) float64 {
		return n * 180 / math.Pi
	})
}

// ToFixed returns the descriptor for to_fixed(n, digits).
func ToFixed() functions.Descriptor {
	return leaf("to_fixed", "<n-n:s>", "Format with a fixed number of decimal places", `to_fixed(3.14159, 2) -> "3.14"`,
		func(args ...any) (any, error) {
			digits := int(args[1].(float64))
			if digits < 0 || digits > 20 {
				return nil, fmt.Errorf("digits must be between 0 and 20")
			}
			return strconv.FormatFloat(args[0].(float64), 'f', digits, 64), nil
		})
}

// Sum returns the descriptor for sum(array).
func Sum() functions.Descriptor {
	return leaf("sum", "<a<n>:n>", "Sum of the numbers", "sum([1, 2, 3]) -> 6",
		func(args ...any) (any, error) {
			total := 0.0
			for _, n := range floats(args[0]) {
				total += n
			}
			return total, nil
		})
}

// Avg returns the descriptor for avg(array). Null on empty input.
func Avg() functions.Descriptor {
	return leaf("avg", "<a<n>:n>", "Arithmetic mean, null for an empty array", "avg([1, 2, 3]) -> 2",
		func(args ...any) (any, error) {
			nums := floats(args[0])
			if len(nums) == 0 {
				return nil, nil
			}
			return mean(nums), nil
		})
}

// MinValue returns the descriptor for min_value(array).
func MinValue() functions.Descriptor {
	return leaf("min_value", "<a<n>:n>", "Smallest number, null for an empty array", "min_value([3, 1, 2]) -> 1",
		func(args ...any) (any, error) {
			return extreme(floats(args[0]), math.Min), nil
		})
}

// MaxValue returns the descriptor for max_value(array).
func MaxValue() functions.Descriptor {
	return leaf("max_value", "<a<n>:n>", "Largest number, null for an empty array", "max_value([3, 1, 2]) -> 3",
		func(args ...any) (any, error) {
			return extreme(floats(args[0]), math.Max), nil
		})
}

// Median returns the descriptor for median(array).
func Median() functions.Descriptor {
	return leaf("median", "<a<n>:n>", "Median, null for an empty array", "median([3, 1, 4, 2]) -> 2.5",
		func(args ...any) (any, error) {
			sorted := sortedFloats(args[0])
			if len(sorted) == 0 {
				return nil, nil
			}
			mid := len(sorted) / 2
			if len(sorted)%2 == 0 {
				return (sorted[mid-1] + sorted[mid]) / 2, nil
			}
			return sorted[mid], nil
		})
}

// Variance returns the descriptor for variance(array) (population).
func Variance() functions.Descriptor {
	return leaf("variance", "<a<n>:n>", "Population variance, null for an empty array", "variance([1, 2, 3, 4]) -> 1.25",
		func(args ...any) (any, error) {
			nums := floats(args[0])
			if len(nums) == 0 {
				return nil, nil
			}
			return variance(nums), nil
		})
}

// Stddev returns the descriptor for stddev(array) (population).
func Stddev() functions.Descriptor {
	return leaf("stddev", "<a<n>:n>", "Population standard deviation, null for an empty array", "stddev([2, 4, 4, 4, 5, 5, 7, 9]) -> 2",
		func(args ...any) (any, error) {
			nums := floats(args[0])
			if len(nums) == 0 {
				return nil, nil
			}
			return math.Sqrt(variance(nums)), nil
		})
}

// Percentile returns the descriptor for percentile(array, p).
// p is in range [0, 100]; values between ranks are interpolated linearly.
func Percentile() functions.Descriptor {
	return leaf("percentile", "<a<n>-n:n>", "Linearly interpolated percentile, p in [0, 100]", "percentile([1, 2, 3, 4, 5], 50) -> 3",
		func(args ...any) (any, error) {
			p := args[1].(float64)
			if p < 0 || p > 100 {
				return nil, fmt.Errorf("p must be between 0 and 100")
			}
			sorted := sortedFloats(args[0])
			if len(sorted) == 0 {
				return nil, nil
			}
			idx := p / 100 * float64(len(sorted)-1)
			lo := int(math.Floor(idx))
			hi := int(math.Ceil(idx))
			if lo == hi {
				return sorted[lo], nil
			}
			frac := idx - float64(lo)
			return sorted[lo]*(1-frac) + sorted[hi]*frac, nil
		})
}

// Mode returns the descriptor for mode(array).
// Returns the most frequent value; on a tie, all tied values in first-seen
// order.
func Mode() functions.Descriptor {
	return leaf("mode", "<a<n>:x>", "Most frequent value, or every tied value as an array", "mode([1, 2, 2, 3]) -> 2",
		func(args ...any) (any, error) {
			nums := floats(args[0])
			if len(nums) == 0 {
				return nil, nil
			}
			counts := make(map[float64]int)
			best := 0
			for _, n := range nums {
				counts[n]++
				best = max(best, counts[n])
			}
			var modes []any
			for _, n := range nums {
				if counts[n] == best {
					modes = append(modes, n)
					counts[n] = -1
				}
			}
			if len(modes) == 1 {
				return modes[0], nil
			}
			return modes, nil
		})
}

// ── helpers ────────────────────────────────────────────────────────────────

// floats converts an argument already checked as a<n>.
func floats(v any) []float64 {
	arr := v.([]any)
	nums := make([]float64, len(arr))
	for i, item := range arr {
		nums[i] = item.(float64)
	}
	return nums
}

func sortedFloats(v any) []float64 {
	nums := floats(v)
	sort.Float64s(nums)
	return nums
}

func mean(nums []float64) float64 {
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

func variance(nums []float64) float64 {
	m := mean(nums)
	v := 0.0
	for _, n := range nums {
		d := n - m
		v += d * d
	}
	return v / float64(len(nums))
}

func extreme(nums []float64, pick func(a, b float64) float64) any {
	if len(nums) == 0 {
		return nil
	}
	r := nums[0]
	for _, n := range nums[1:] {
		r = pick(r, n)
	}
	return r
}
