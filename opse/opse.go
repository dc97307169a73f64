// Package opse implements the order-preserving-encryption external
// collaborator: a keyed map on non-negative integers that is monotone
// (x <= y => Encrypt(key, x) <= Encrypt(key, y)) so a server can sort
// encrypted posting counts without learning the plaintext counts.
//
// This is a reference construction, not a security primitive: production
// deployments should substitute a vetted OPE/ORE scheme. It exists so the
// core can be built and tested against something concrete.
package opse

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// scale must dominate the keyed residue so ordering on x never inverts;
// residue is always < scale.
const scale = uint64(1) << 40

// Encrypt returns a value monotone in x: the residue term only perturbs
// within one x's "slot", so distinct x values never cross. Inputs too large
// for x*scale to fit in 64 bits all map to math.MaxUint64.
func Encrypt(key [32]byte, x uint64) uint64 {
	if x > math.MaxUint64/scale {
		return math.MaxUint64
	}
	return x*scale + residue(key, x)
}

func residue(key [32]byte, x uint64) uint64 {
	mac := hmac.New(sha256.New, key[:])
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], x)
	mac.Write(buf[:])
	sum := mac.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]) % scale
}

// GenerateKey mints a fresh sorting key.
func GenerateKey() (key [32]byte, err error) {
	_, err = rand.Read(key[:])
	return key, err
}
