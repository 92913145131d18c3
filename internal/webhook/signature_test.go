package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	sig := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", sig)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"invoice.paid","data":{"invoice_id":"inv_1"}}`)
	header := Sign("s3cret", body)

	tests := []struct {
		name   string
		secret string
		body   []byte
		header string
		want   bool
	}{
		{name: "valid", secret: "s3cret", body: body, header: header, want: true},
		{name: "wrong secret", secret: "other", body: body, header: header, want: false},
		{name: "modified body", secret: "s3cret", body: append([]byte(" "), body...), header: header, want: false},
		{name: "missing prefix", secret: "s3cret", body: body, header: header[len("sha256="):], want: false},
		{name: "not hex", secret: "s3cret", body: body, header: "sha256=zz", want: false},
		{name: "empty", secret: "s3cret", body: body, header: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.secret, tt.body, tt.header))
		})
	}
}
