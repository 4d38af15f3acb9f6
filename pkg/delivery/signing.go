package delivery

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IdempotencyKey derives the sha1 digest sent both in the payload body and
// as the Idempotency-Key header.
func IdempotencyKey(subscriptionID, clusterID, dayISO string) string {
	sum := sha1.Sum([]byte(subscriptionID + "|" + clusterID + "|" + dayISO))
	return hex.EncodeToString(sum[:])
}

// Sign computes the HMAC-SHA256 signature over "v1:{timestamp}:{body}" for
// a subscription secret. Returns the header value with its "v1=" prefix.
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("v1:%d:%s", timestamp, body)))
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}
