package service

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"

	"golang.org/x/crypto/blake2b"
)

// SnapshotDigest fingerprints a snapshot so clients can tell whether an
// assessment is stale. Amounts are hashed in their shortest decimal form,
// so "5100" and "5100.00" produce the same digest.
func SnapshotDigest(s domain.WealthSnapshot) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
