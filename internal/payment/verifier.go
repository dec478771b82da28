package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier checks that a payment callback was signed by the gateway.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify recomputes the HMAC-SHA256 of "orderRef|paymentID" and compares it
// to the supplied signature in constant time. Any malformed input yields
// false; the result never reveals which of the three values was wrong.
func (v *Verifier) Verify(orderRef, paymentID, signature string) bool {
	if orderRef == "" || paymentID == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign is the inverse of Verify; the gateway side of the contract. Kept here
// so tests and local tooling can produce valid signatures.
func (v *Verifier) Sign(orderRef, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
