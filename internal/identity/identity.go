// Package identity derives stable node identifiers for shares from their
// configured key material. The derivation matches the scheme used for peer
// ids in DHT-style storage networks: the secp256k1 public key is hashed
// with SHA-256 and then RIPEMD-160, giving a 160-bit digest rendered as hex.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	//nolint:staticcheck // the 160-bit digest width is part of the id format
	"golang.org/x/crypto/ripemd160"
)

// IDLength is the length of a derived node id in hex characters.
const IDLength = 2 * ripemd160.Size

// DeriveID computes the node id for the given hex-encoded secp256k1 private
// key. It is pure: the same key material always yields the same id.
func DeriveID(privKeyHex string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(privKeyHex))
	if err != nil {
		return "", fmt.Errorf("invalid private key encoding: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("invalid private key length: %d bytes", len(raw))
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	pub := priv.PubKey().SerializeCompressed()

	sha := sha256.Sum256(pub)
	rmd := ripemd160.New()
	rmd.Write(sha[:])
	return hex.EncodeToString(rmd.Sum(nil)), nil
}
