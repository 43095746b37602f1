package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// SecureIntn returns a uniformly distributed integer in [0, n) drawn from crypto/rand.
func SecureIntn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("n must be positive")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return int(v.Int64()), nil
}

// SecureShuffle performs a Fisher–Yates shuffle of n elements using intn as the
// random source. Every permutation is equally likely when intn is uniform.
func SecureShuffle(n int, intn func(int) (int, error), swap func(i, j int)) error {
	if intn == nil {
		intn = SecureIntn
	}
	for i := n - 1; i > 0; i-- {
		j, err := intn(i + 1)
		if err != nil {
			return err
		}
		swap(i, j)
	}
	return nil
}
