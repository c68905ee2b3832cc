package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Alphabet without 0/O/1/I so staff can read numbers back over the phone.
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const numberSuffixLen = 6

// NewOrderNumber builds a human-readable order number such as
// ADN-20260815-7F3K2Q. Uniqueness is enforced by the orders table; callers
// retry on collision.
func NewOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating order number: %w", err)
	}
	for i := range buf {
		buf[i] = numberAlphabet[int(buf[i])%len(numberAlphabet)]
	}
	return fmt.Sprintf("ADN-%s-%s", now.UTC().Format("20060102"), string(buf)), nil
}
