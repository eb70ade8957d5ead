package credentials

import (
	"crypto/rand"
	"math/big"
)

// Charset excludes ambiguous characters (0/O, 1/I/L)
const referralChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateReferralCode generates a shareable code in the format "XXXX-XXXX".
// Codes are uppercase so they survive the redeem-side normalization.
func GenerateReferralCode() (string, error) {
	code := make([]byte, 9)
	for i := range code {
		if i == 4 {
			code[i] = '-'
			continue
		}
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralChars))))
		if err != nil {
			return "", err
		}
		code[i] = referralChars[num.Int64()]
	}
	return string(code), nil
}
