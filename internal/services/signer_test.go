package services

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestPayFastSignKeepsOrderAndSkipsBlanks(t *testing.T) {
	s := PayFastSigner{}
	p := Payload{
		{Key: "merchant_id", Value: "10000100"},
		{Key: "merchant_key", Value: "46f0cd694581a"},
		{Key: "name_first", Value: ""},
		{Key: "amount", Value: "1081.50"},
		{Key: "item_name", Value: " Logo design "},
	}

	want := md5Hex("merchant_id=10000100&merchant_key=46f0cd694581a&amount=1081.50&item_name=Logo+design")
	assert.Equal(t, want, s.Sign(p))
}

func TestPayFastPassphraseChangesSignature(t *testing.T) {
	p := Payload{{Key: "merchant_id", Value: "10000100"}, {Key: "amount", Value: "10.00"}}

	plain := PayFastSigner{}.Sign(p)
	salted := PayFastSigner{Passphrase: "jt7NOE43FZPn"}.Sign(p)

	assert.NotEqual(t, plain, salted)
	assert.Equal(t, md5Hex("merchant_id=10000100&amount=10.00&passphrase=jt7NOE43FZPn"), salted)
}

func TestPayFastVerifyUsesAlphabeticalOrder(t *testing.T) {
	s := PayFastSigner{Passphrase: "secret"}
	values := url.Values{
		"payment_status": {"COMPLETE"},
		"amount_gross":   {"1081.50"},
		"m_payment_id":   {"intent-1"},
		"custom_str1":    {"gig-1"},
	}
	sig := md5Hex("amount_gross=1081.50&custom_str1=gig-1&m_payment_id=intent-1&payment_status=COMPLETE&passphrase=secret")
	values.Set("signature", sig)

	assert.True(t, s.Verify(PayloadFromValues(values), sig))
	assert.False(t, s.Verify(PayloadFromValues(values), md5Hex("tampered")))
	assert.False(t, s.Verify(PayloadFromValues(values), ""))

	values.Set("amount_gross", "1.00")
	assert.False(t, s.Verify(PayloadFromValues(values), sig))
}

func TestPayloadGet(t *testing.T) {
	p := Payload{{Key: "a", Value: "1"}, {Key: "a", Value: "2"}}
	assert.Equal(t, "1", p.Get("a"))
	assert.Equal(t, "", p.Get("b"))
}
