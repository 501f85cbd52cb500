package checkout

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

const txnAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newTransactionID returns TXN, the unix millis of now, and five random
// upper-case alphanumerics.
func newTransactionID(now time.Time) string {
	r := uuid.New()
	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = txnAlphabet[int(r[i])%len(txnAlphabet)]
	}
	return "TXN" + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix)
}
