package voucher

import (
	"crypto/rand"
	"errors"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"gorm.io/gorm"
)

// codeLength is the length of generated voucher codes. Long enough that
// collisions are vanishingly rare, short enough to read out over a counter.
const codeLength = 12

// codeAttempts bounds the collision check-and-retry loop.
const codeAttempts = 5

// generateCode returns a random token over an alphabet with no easily
// confused characters (no 0/O, 1/I).
func generateCode(length int) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// uniqueCode generates a voucher code that does not collide with an existing
// one, checking inside the caller's transaction. The unique index on the code
// column backstops the check.
func uniqueCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, errGen := generateCode(codeLength)
		if errGen != nil {
			return "", errGen
		}
		var existing models.Voucher
		errFind := tx.Select("id").Where("code = ?", code).First(&existing).Error
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if errFind != nil {
			return "", errFind
		}
	}
	return "", errors.New("voucher: code generation exhausted retries")
}
