package razorpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignKnownVector(t *testing.T) {
	// echo -n "order_1|pay_1" | openssl dgst -sha256 -hmac secret
	got := Sign("secret", "order_1", "pay_1")
	assert.Equal(t, "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb", got)
	assert.NotEqual(t, got, Sign("secret", "order_1", "pay_2"))
	assert.NotEqual(t, got, Sign("other", "order_1", "pay_1"))
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")

	assert.NoError(t, VerifySignature("secret", "order_1", "pay_1", sig))
	assert.ErrorIs(t, VerifySignature("secret", "order_1", "pay_1", sig[:63]+"a"), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifySignature("secret", "order_2", "pay_1", sig), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifySignature("", "order_1", "pay_1", sig), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifySignature("secret", "order_1", "pay_1", ""), ErrSignatureMismatch)
}
