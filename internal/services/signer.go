package services

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Field is one key/value of a signed provider payload. Order matters.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Payload []Field

// Get returns the first value for key.
func (p Payload) Get(key string) string {
	for _, f := range p {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// PayloadFromValues builds a payload from form values. Order is not preserved.
func PayloadFromValues(v url.Values) Payload {
	p := make(Payload, 0, len(v))
	for k, vals := range v {
		val := ""
		if len(vals) > 0 {
			val = vals[0]
		}
		p = append(p, Field{Key: k, Value: val})
	}
	return p
}

// Signer signs outgoing payloads and verifies incoming ones for one provider.
type Signer interface {
	Sign(p Payload) string
	Verify(p Payload, signature string) bool
}

// PayFastSigner implements PayFast's MD5 scheme. Outgoing payloads keep the
// caller's field order and skip blank values; notifications are verified in
// alphabetical key order over every field except "signature".
type PayFastSigner struct {
	Passphrase string
}

func (s PayFastSigner) Sign(p Payload) string {
	var parts []string
	for _, f := range p {
		if f.Key == "signature" || strings.TrimSpace(f.Value) == "" {
			continue
		}
		parts = append(parts, encodePair(f))
	}
	return s.digest(parts)
}

func (s PayFastSigner) Verify(p Payload, signature string) bool {
	if signature == "" {
		return false
	}
	sorted := make(Payload, 0, len(p))
	for _, f := range p {
		if f.Key != "signature" {
			sorted = append(sorted, f)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		parts = append(parts, encodePair(f))
	}
	expected := s.digest(parts)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

// ParamString is the exact string the signature covers, without the passphrase.
func (s PayFastSigner) ParamString(p Payload) string {
	parts := make([]string, 0, len(p))
	for _, f := range p {
		if f.Key != "signature" {
			parts = append(parts, encodePair(f))
		}
	}
	return strings.Join(parts, "&")
}

func (s PayFastSigner) digest(parts []string) string {
	str := strings.Join(parts, "&")
	if s.Passphrase != "" {
		str += "&passphrase=" + url.QueryEscape(strings.TrimSpace(s.Passphrase))
	}
	sum := md5.Sum([]byte(str))
	return hex.EncodeToString(sum[:])
}

func encodePair(f Field) string {
	return f.Key + "=" + url.QueryEscape(strings.TrimSpace(f.Value))
}
