package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifierAcceptsValidSignature(t *testing.T) {
	v := NewVerifier("test_key_secret")

	sig := v.Sign("order_ref_123", "pay_456")

	assert.True(t, v.Verify("order_ref_123", "pay_456", sig))
}

func TestVerifierRejectsTamperedSignature(t *testing.T) {
	v := NewVerifier("test_key_secret")

	sig := v.Sign("order_ref_123", "pay_456")

	// flipping any single character must invalidate the signature
	for i := 0; i < len(sig); i++ {
		tampered := []byte(sig)
		if tampered[i] == 'a' {
			tampered[i] = 'b'
		} else {
			tampered[i] = 'a'
		}

		assert.False(t, v.Verify("order_ref_123", "pay_456", string(tampered)),
			"tampered signature accepted at position %d", i)
	}
}

func TestVerifierRejectsWrongInputs(t *testing.T) {
	v := NewVerifier("test_key_secret")
	sig := v.Sign("order_ref_123", "pay_456")

	assert.False(t, v.Verify("order_ref_999", "pay_456", sig), "wrong order ref")
	assert.False(t, v.Verify("order_ref_123", "pay_999", sig), "wrong payment id")
	assert.False(t, v.Verify("", "pay_456", sig), "empty order ref")
	assert.False(t, v.Verify("order_ref_123", "", sig), "empty payment id")
	assert.False(t, v.Verify("order_ref_123", "pay_456", ""), "empty signature")
	assert.False(t, v.Verify("order_ref_123", "pay_456", "not-hex-at-all"), "malformed signature")
}

func TestVerifierRejectsOtherSecret(t *testing.T) {
	v := NewVerifier("test_key_secret")
	other := NewVerifier("another_secret")

	sig := other.Sign("order_ref_123", "pay_456")

	assert.False(t, v.Verify("order_ref_123", "pay_456", sig))
}

func TestVerifierRejectsSwappedFields(t *testing.T) {
	// "a|b" and swapped "b|a" must not collide thanks to the separator
	v := NewVerifier("test_key_secret")

	sig := v.Sign("a", "b")

	assert.False(t, v.Verify("b", "a", sig))
}
