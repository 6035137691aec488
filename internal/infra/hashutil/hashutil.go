// Package hashutil produces stable content digests.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SumJSON returns the hex sha256 of v's JSON encoding. The encoder sorts
// map keys, so equal values always digest identically.
func SumJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}

// Sum returns the hex sha256 of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
