package auth

import (
	"fmt"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/dmitrijs2005/lingokeeper/internal/cryptox"
)

// DesktopCodeBytes is the entropy of a desktop authorization code.
const DesktopCodeBytes = 32

// RandomCode returns a fresh desktop authorization code: DesktopCodeBytes
// random bytes as unpadded base64url. The raw code is handed to the client
// once and never stored.
func RandomCode() (string, error) {
	code, err := cryptox.RandomURLString(DesktopCodeBytes)
	if err != nil {
		return "", fmt.Errorf("%w: generate code: %v", common.ErrorInternal, err)
	}
	return code, nil
}

// HashCode is the storage and lookup key for a raw code: its hex SHA-256.
// The code is high-entropy and single-use, so no salt is needed and the
// store can match on equality.
func HashCode(rawCode string) string {
	return cryptox.SHA256Hex([]byte(rawCode))
}
