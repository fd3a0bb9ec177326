package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	keyvaultDomain "github.com/quietwire/dmcore/internal/keyvault/domain"
)

// RunCreateKeeperKey generates a 32-byte key for the local keystore keeper and
// prints the resulting base64key:// URI. Key material is zeroed from memory
// after encoding.
//
// Output format:
//   - KEYSTORE_KEEPER_URI="base64key://<base64-encoded-key>"
//
// The base64key provider keeps the key in the environment and is meant for
// development setups; production deployments should use a cloud keeper URI
// (gcpkms://, awskms://, azurekeyvault://, hashivault://) instead.
func RunCreateKeeperKey(w io.Writer) error {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate keeper key: %w", err)
	}

	encoded := base64.URLEncoding.EncodeToString(key)
	keyvaultDomain.Zero(key)

	if _, err := fmt.Fprintf(w, "KEYSTORE_KEEPER_URI=\"base64key://%s\"\n", encoded); err != nil {
		return fmt.Errorf("failed to write keeper key: %w", err)
	}

	return nil
}
