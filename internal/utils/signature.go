package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignCallback returns the X-Callback-Signature value for payload sent at ts:
// "t=<unix seconds>,v1=<hex HMAC-SHA256 of "<t>.<payload>">".
func SignCallback(payload []byte, secret string, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + sign(t, payload, secret)
}

// VerifyCallback checks a SignCallback header. Signatures older than
// tolerance are rejected; a zero tolerance skips the age check.
func VerifyCallback(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	var t, v1 string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			t = v
		case "v1":
			v1 = v
		}
	}
	if t == "" || v1 == "" {
		return ErrInvalidSignature
	}
	unix, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if tolerance > 0 && now.Sub(time.Unix(unix, 0)) > tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}
	if !hmac.Equal([]byte(v1), []byte(sign(t, payload, secret))) {
		return ErrInvalidSignature
	}
	return nil
}

func sign(t string, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(t))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
