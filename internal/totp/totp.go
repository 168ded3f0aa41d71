// Package totp implements stateless time-based one-time password support.
// Secrets belong to the subject record; nothing here is persisted.
package totp

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpDigits = 6
	totpPeriod = 30
	totpSkew   = 1 // Allow ±30 seconds clock drift

	secretBytes = 20
)

// Verifier generates shared secrets and verifies TOTP codes per RFC 6238.
type Verifier struct{}

// NewVerifier creates a TOTP verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// GenerateSecret produces a new base32 shared secret.
func (v *Verifier) GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// ProvisioningURL builds the standard otpauth:// URI that authenticator apps
// import, typically rendered as a QR code by the hosting application.
func (v *Verifier) ProvisioningURL(appName, accountLabel, secret string) string {
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", appName)
	q.Set("period", fmt.Sprintf("%d", totpPeriod))
	q.Set("digits", fmt.Sprintf("%d", totpDigits))
	q.Set("algorithm", "SHA1")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + appName + ":" + accountLabel,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Verify checks a presented code against the secret at the current time step.
// An empty secret never verifies.
func (v *Verifier) Verify(secret, code string) bool {
	if secret == "" {
		return false
	}
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}
