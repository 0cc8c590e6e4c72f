// Package extfuzzy provides string similarity metrics. Distances count edits;
// similarities are in [0, 1] with 1 meaning identical.
package extfuzzy

import (
	"strconv"

	"github.com/agnivade/levenshtein"
	"github.com/hbollon/go-edlib"

	"github.com/sandrolain/celfx/pkg/functions"
)

// All returns all fuzzy-matching function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		Levenshtein(),
		NormalizedLevenshtein(),
		DamerauLevenshtein(),
		Jaro(),
		JaroWinkler(),
		SorensenDice(),
	}
}

func metric(name, desc, example string, fn func(a, b []rune) float64) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryFuzzy,
		Signature:   "<s-s:n>",
		Description: desc,
		Example:     example,
		Leaf: func(args ...any) (any, error) {
			return fn([]rune(args[0].(string)), []rune(args[1].(string))), nil
		},
	}
}

// Levenshtein returns the descriptor for levenshtein(a, b).
func Levenshtein() functions.Descriptor {
	return metric("levenshtein", "Edit distance (insertions, deletions, substitutions)",
		`levenshtein("kitten", "sitting") -> 3`,
		func(a, b []rune) float64 {
			return float64(levenshtein.ComputeDistance(string(a), string(b)))
		})
}

// NormalizedLevenshtein returns the descriptor for normalized_levenshtein(a, b).
func NormalizedLevenshtein() functions.Descriptor {
	return metric("normalized_levenshtein", "1 - edit distance / length of the longer string",
		`normalized_levenshtein("abc", "abd") -> 0.6666666666666667`,
		func(a, b []rune) float64 {
			longest := max(len(a), len(b))
			if longest == 0 {
				return 1
			}
			return 1 - float64(levenshtein.ComputeDistance(string(a), string(b)))/float64(longest)
		})
}

// DamerauLevenshtein returns the descriptor for damerau_levenshtein(a, b).
// Adjacent transpositions count as one edit (optimal string alignment).
func DamerauLevenshtein() functions.Descriptor {
	return metric("damerau_levenshtein", "Edit distance counting adjacent transpositions as one edit",
		`damerau_levenshtein("ab", "ba") -> 1`,
		func(a, b []rune) float64 {
			return float64(edlib.OSADamerauLevenshteinDistance(string(a), string(b)))
		})
}

// Jaro returns the descriptor for jaro(a, b).
func Jaro() functions.Descriptor {
	return metric("jaro", "Jaro similarity", `jaro("martha", "marhta") -> 0.9444444`,
		similarity(edlib.JaroSimilarity))
}

// JaroWinkler returns the descriptor for jaro_winkler(a, b).
// Common prefixes up to four characters are boosted with a 0.1 scale.
func JaroWinkler() functions.Descriptor {
	return metric("jaro_winkler", "Jaro-Winkler similarity", `jaro_winkler("martha", "marhta") -> 0.9611111`,
		similarity(edlib.JaroWinklerSimilarity))
}

// SorensenDice returns the descriptor for sorensen_dice(a, b).
// Compares the sets of character bigrams.
func SorensenDice() functions.Descriptor {
	return metric("sorensen_dice", "Sorensen-Dice coefficient over character bigrams",
		`sorensen_dice("night", "nacht") -> 0.25`,
		func(a, b []rune) float64 {
			if len(a) < 2 || len(b) < 2 {
				return equal(a, b)
			}
			return widen(edlib.SorensenDiceCoefficient(string(a), string(b), 2))
		})
}

// similarity adapts a float32 metric, treating equal strings (empty ones
// included) as identical.
func similarity(fn func(a, b string) float32) func(a, b []rune) float64 {
	return func(a, b []rune) float64 {
		if string(a) == string(b) {
			return 1
		}
		return widen(fn(string(a), string(b)))
	}
}

func equal(a, b []rune) float64 {
	if string(a) == string(b) {
		return 1
	}
	return 0
}

// widen converts through the shortest decimal form so that 0.25 stays
// 0.25 and 0.9444444 does not become 0.9444444179534912.
func widen(f float32) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	return v
}
