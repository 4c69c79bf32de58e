package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Delivery headers.
const (
	SignatureHeader = "X-Flightbot-Signature"
	EventHeader     = "X-Flightbot-Event"
	DeliveryHeader  = "X-Flightbot-Delivery"
)

// Sign produces "t=<unix>,sha256=<hex>" over "<unix>.<payload>". Binding the
// timestamp lets receivers refuse replays.
func Sign(secret string, payload []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",sha256=" + digest(secret, ts, payload)
}

// Verify checks a signature and that its timestamp lies within tolerance of
// now. A zero tolerance skips the age check.
func Verify(secret string, payload []byte, signature string, now time.Time, tolerance time.Duration) bool {
	var ts, sum string
	for _, part := range strings.Split(signature, ",") {
		k, v, _ := strings.Cut(part, "=")
		switch k {
		case "t":
			ts = v
		case "sha256":
			sum = v
		}
	}
	if ts == "" || sum == "" {
		return false
	}
	if tolerance > 0 {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return false
		}
		if d := now.Sub(time.Unix(unix, 0)); d > tolerance || d < -tolerance {
			return false
		}
	}
	return hmac.Equal([]byte(digest(secret, ts, payload)), []byte(sum))
}

func digest(secret, ts string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
