package domain

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
)

var refSeq atomic.Uint64

// NewReference generates a ledger reference string.
// Format: <PREFIX>-YYYYMMDD-HHMMSS-<seq>-<rand>. A purely time-based
// reference can collide under near-simultaneous calls, so a monotonic
// counter and a random suffix are appended; the transactions.reference
// unique index is the backstop.
func NewReference(prefix string) string {
	return fmt.Sprintf("%s-%s-%06d-%04d",
		prefix,
		time.Now().UTC().Format("20060102-150405"),
		refSeq.Add(1)%1_000_000,
		rand.Intn(10_000),
	)
}

// ReferencePrefix maps a transaction type to its reference prefix.
func ReferencePrefix(txType string) string {
	switch txType {
	case TxTypeDeposit:
		return "DEP"
	case TxTypeWithdraw:
		return "WDR"
	case TxTypeTransferIn:
		return "TRF-IN"
	case TxTypeTransferOut:
		return "TRF-OUT"
	case TxTypePlatformLive, TxTypePlatformDemo:
		return "PLT"
	}
	return "TXN"
}
