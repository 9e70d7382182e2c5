package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const HeaderSignature = "X-Signature"

// Sign returns the hex HMAC-SHA256 of body, the value partners send in X-Signature.
func Sign(secret string, body []byte) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

// VerifySignature rejects webhook calls whose X-Signature does not match the
// body. An empty secret rejects everything.
func VerifySignature(source, secret string, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			got := strings.TrimPrefix(strings.TrimSpace(req.Header.Get(HeaderSignature)), "sha256=")
			sig, err := hex.DecodeString(strings.ToLower(got))
			if secret == "" || err != nil || len(sig) == 0 {
				log.WithField("source", source).Warn("webhook rejected: missing signature or secret")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature", "code": "invalid_signature"})
			}
			want, _ := hex.DecodeString(Sign(secret, body))
			if !hmac.Equal(sig, want) {
				log.WithField("source", source).Warn("webhook rejected: signature mismatch")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature", "code": "invalid_signature"})
			}
			return next(c)
		}
	}
}
