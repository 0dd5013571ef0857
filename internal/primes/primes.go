// Package primes provides the deterministic Miller-Rabin primality test used
// to size hypergraph partitions.
package primes

import "math/bits"

// witnesses are the Miller-Rabin bases. {2, 7, 61} is the base set used for
// hash-table sizing; it is exact for every n < 4,759,123,141.
var witnesses = [...]uint64{2, 7, 61}

// mulMod returns a*b mod n without overflow using the 128-bit product.
func mulMod(a, b, n uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, n)
}

// powMod returns a^d mod n by square-and-multiply.
func powMod(a, d, n uint64) uint64 {
	result := uint64(1) % n
	a %= n
	for d > 0 {
		if d&1 == 1 {
			result = mulMod(result, a, n)
		}
		a = mulMod(a, a, n)
		d >>= 1
	}
	return result
}

// IsProbablePrime reports whether n passes trial division by {2,3,5,7} and a
// Miller-Rabin test with bases {2, 7, 61}.
//
// The trial division rejects every multiple of 2, 3, 5 and 7, which includes
// those four primes themselves: IsProbablePrime(2) is false. Callers only ever
// test odd candidates well above 7 (see NextPrime), so the behavior is kept
// rather than special-cased. Values below 2 are not prime.
func IsProbablePrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 || n%3 == 0 || n%5 == 0 || n%7 == 0 {
		return false
	}

	d := n - 1
	s := 0
	for d%2 == 0 {
		d >>= 1
		s++
	}

	for _, a := range witnesses {
		if !witnessPasses(a, d, s, n) {
			return false
		}
	}
	return true
}

// witnessPasses runs one Miller-Rabin round for base a with n-1 = 2^s*d.
func witnessPasses(a, d uint64, s int, n uint64) bool {
	if a%n == 0 {
		// The base is a multiple of n; this round says nothing about n.
		return true
	}
	x := powMod(a, d, n)
	if x == 1 || x == n-1 {
		return true
	}
	for r := 1; r < s; r++ {
		x = mulMod(x, x, n)
		if x == n-1 {
			return true
		}
	}
	return false
}

// minCandidate is the smallest value NextPrime considers. It keeps the search
// clear of the primes that trial division misreports.
const minCandidate = 11

// NextPrime returns the smallest value >= n accepted by IsProbablePrime,
// never less than 11. It panics if the search would overflow uint64.
func NextPrime(n uint64) uint64 {
	if n < minCandidate {
		n = minCandidate
	}
	if n%2 == 0 {
		n++
	}
	for !IsProbablePrime(n) {
		if n > ^uint64(0)-2 {
			panic("primes: NextPrime overflow")
		}
		n += 2
	}
	return n
}
