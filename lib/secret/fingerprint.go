// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintKey is the 32-byte key for BLAKE3 keyed hashing of
// credential fingerprints. Domain separation: the same bytes hashed
// elsewhere never collide with a fingerprint. The key is the ASCII
// encoding of the domain name, zero-padded to 32 bytes, so it is
// inspectable in hex dumps without sacrificing any property of the
// keyed mode.
var fingerprintKey = [32]byte{
	'h', 'e', 'a', 'r', 't', 'h', '.', 'c', 'r', 'e', 'd', 'e', 'n', 't', 'i', 'a', 'l',
	'.', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Fingerprint returns a short hex digest of the buffer's contents for
// log output. Logging the fingerprint lets operators correlate "which
// credential was presented" across sessions without the logs ever
// containing material that could be replayed.
func (b *Buffer) Fingerprint() string {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		// NewKeyed fails only on a wrong key length, which is fixed
		// at compile time.
		panic("secret: blake3 keyed hasher: " + err.Error())
	}
	hasher.Write(b.Bytes())
	digest := hasher.Sum(nil)
	return hex.EncodeToString(digest[:8])
}
