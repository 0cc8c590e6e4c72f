// Package exthash provides hashing functions. Digests are lowercase hex.
//
// MD5 and SHA-1 are provided for fingerprinting only.
package exthash

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // fingerprinting only
	"crypto/sha1" //nolint:gosec // fingerprinting only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/sandrolain/celfx/pkg/functions"
)

// hashers maps algorithm names accepted by hash and hmac to constructors.
var hashers = map[string]func() hash.Hash{
	"md5":         md5.New,
	"sha1":        sha1.New,
	"sha256":      sha256.New,
	"sha384":      sha512.New384,
	"sha512":      sha512.New,
	"sha3_256":    sha3.New256,
	"sha3_512":    sha3.New512,
	"blake2b_256": newBlake2b256,
}

func newBlake2b256() hash.Hash {
	h, _ := blake2b.New256(nil)
	return h
}

// All returns all hash function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		digest("md5"),
		digest("sha1"),
		digest("sha256"),
		digest("sha512"),
		digest("sha3_256"),
		digest("blake2b_256"),
		Hash(),
		HMAC(),
		keyed("sha1"),
		keyed("sha256"),
		keyed("sha512"),
		XXHash64(),
		CRC32(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryHash,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

func hasher(algorithm string) (func() hash.Hash, error) {
	h, ok := hashers[strings.ToLower(algorithm)]
	if !ok {
		return nil, fmt.Errorf("unsupported algorithm %q", algorithm)
	}
	return h, nil
}

func sum(h hash.Hash, s string) string {
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// digest returns a fixed-algorithm descriptor such as sha256(string).
func digest(algorithm string) functions.Descriptor {
	newHash := hashers[algorithm]
	return leaf(algorithm, "<s:s>", algorithm+" digest of the string", algorithm+`("abc") -> "..."`,
		func(args ...any) (any, error) {
			return sum(newHash(), args[0].(string)), nil
		})
}

// Hash returns the descriptor for hash(string, algorithm).
func Hash() functions.Descriptor {
	return leaf("hash", "<s-s:s>", "Digest with a named algorithm (md5, sha1, sha256, sha384, sha512, sha3_256, sha3_512, blake2b_256)",
		`hash("abc", "sha256") -> "ba7816bf..."`,
		func(args ...any) (any, error) {
			newHash, err := hasher(args[1].(string))
			if err != nil {
				return nil, err
			}
			return sum(newHash(), args[0].(string)), nil
		})
}

// HMAC returns the descriptor for hmac(string, key, algorithm).
func HMAC() functions.Descriptor {
	return leaf("hmac", "<s-s-s:s>", "HMAC of the string with a key and a named algorithm",
		`hmac("msg", "key", "sha256") -> "..."`,
		func(args ...any) (any, error) {
			newHash, err := hasher(args[2].(string))
			if err != nil {
				return nil, err
			}
			return sum(hmac.New(newHash, []byte(args[1].(string))), args[0].(string)), nil
		})
}

// keyed returns a fixed-algorithm HMAC descriptor such as hmac_sha256(string, key).
func keyed(algorithm string) functions.Descriptor {
	newHash := hashers[algorithm]
	name := "hmac_" + algorithm
	return leaf(name, "<s-s:s>", "HMAC-"+strings.ToUpper(algorithm)+" of the string", name+`("msg", "key") -> "..."`,
		func(args ...any) (any, error) {
			return sum(hmac.New(newHash, []byte(args[1].(string))), args[0].(string)), nil
		})
}

// XXHash64 returns the descriptor for xxhash64(string).
// The result is hex since a uint64 does not fit a JSON number.
func XXHash64() functions.Descriptor {
	return leaf("xxhash64", "<s:s>", "xxHash64 of the string as 16 hex digits", `xxhash64("") -> "ef46db3751d8e999"`,
		func(args ...any) (any, error) {
			return fmt.Sprintf("%016x", xxhash.Sum64String(args[0].(string))), nil
		})
}

// CRC32 returns the descriptor for crc32(string).
func CRC32() functions.Descriptor {
	return leaf("crc32", "<s:n>", "IEEE CRC-32 checksum as a number", `crc32("hello") -> 907060870`,
		func(args ...any) (any, error) {
			return float64(crc32.ChecksumIEEE([]byte(args[0].(string)))), nil
		})
}
