package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	otpMin       = 100000
	otpMax       = 999999
	otpSaltBytes = 16
	otpQRSize    = 200
)

// LockerOTP is a freshly issued one-time password. Code is the only
// plaintext copy; only Salt and Hash are ever persisted.
type LockerOTP struct {
	Code string
	Salt string
	Hash string
}

// GenerateOTP issues a 6-digit code drawn uniformly from [100000, 999999]
// together with a fresh 16-byte salt and the code's digest.
func GenerateOTP() (LockerOTP, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return LockerOTP{}, fmt.Errorf("failed to generate OTP: %w", err)
	}
	code := strconv.FormatInt(n.Int64()+otpMin, 10)

	saltBytes := make([]byte, otpSaltBytes)
	if _, err := rand.Read(saltBytes); err != nil {
		return LockerOTP{}, fmt.Errorf("failed to generate OTP salt: %w", err)
	}
	salt := hex.EncodeToString(saltBytes)

	return LockerOTP{Code: code, Salt: salt, Hash: HashOTP(code, salt)}, nil
}

// HashOTP returns the lowercase hex SHA-256 of code followed by salt.
func HashOTP(code, salt string) string {
	sum := sha256.Sum256([]byte(code + salt))
	return hex.EncodeToString(sum[:])
}

// VerifyOTP recomputes the digest of candidate and compares it with the
// stored one in constant time.
func VerifyOTP(candidate, salt, storedHash string) bool {
	computed := HashOTP(candidate, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// OTPQRCode renders code as a PNG data URL for keypads with a scanner.
func OTPQRCode(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, otpQRSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
