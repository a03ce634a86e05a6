package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance is the accepted clock skew between the provider
// timestamp and local time.
const DefaultSignatureTolerance = 600 * time.Second

// VerifyKhipuSignature checks a "t=<unix>,s=<hex>" header against an
// HMAC-SHA256 of "<t>.<payload>". Callers decide what an empty secret means.
func VerifyKhipuSignature(payload []byte, signatureHeader, webhookSecret string, now time.Time, tolerance time.Duration) bool {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return false
	}
	ts, sig, ok := parseSignatureHeader(signatureHeader)
	if !ok {
		return false
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if tolerance <= 0 {
		tolerance = DefaultSignatureTolerance
	}
	skew := now.Unix() - unix
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > tolerance {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	signed := make([]byte, 0, len(ts)+1+len(payload))
	signed = append(signed, ts...)
	signed = append(signed, '.')
	signed = append(signed, payload...)
	return verifyHMAC(signed, decodedSig, []byte(secret))
}

// SignKhipuPayload builds the header Khipu would send for payload at ts.
func SignKhipuPayload(payload []byte, secret string, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(t))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return "t=" + t + ",s=" + hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts, sig string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "s":
			sig = v
		}
	}
	return ts, sig, ts != "" && sig != ""
}

func verifyHMAC(payload, expectedSig, secret []byte) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
