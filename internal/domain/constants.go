package domain

const (
	// Transaction types. The signed effect on a balance is implied by the
	// type; the stored amount is always positive.
	TxTypeDeposit      = "deposit"
	TxTypeWithdraw     = "withdraw"
	TxTypeTransferIn   = "transfer_in"
	TxTypeTransferOut  = "transfer_out"
	TxTypePlatformLive = "platform_transfer_live"
	TxTypePlatformDemo = "platform_transfer_demo"

	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"

	// Account balance selectors for platform transfers.
	AccountTypeWallet = "wallet"
	AccountTypeDemo   = "demo"

	PlatformMT4 = "MT4"
	PlatformMT5 = "MT5"

	// Nominal leverage recorded in platform transfer metadata.
	PlatformLeverage = "1:100"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultDemoBalanceCents is the practice balance granted at registration.
const DefaultDemoBalanceCents int64 = 10000_00

// Debit reports whether a transaction type reduces the balance it applies to.
func Debit(txType string) bool {
	switch txType {
	case TxTypeWithdraw, TxTypeTransferOut, TxTypePlatformLive, TxTypePlatformDemo:
		return true
	}
	return false
}

// ValidAccountType reports whether s selects a known balance field.
func ValidAccountType(s string) bool {
	return s == AccountTypeWallet || s == AccountTypeDemo
}

// ValidPlatform reports whether s names a supported trading platform.
func ValidPlatform(s string) bool {
	return s == PlatformMT4 || s == PlatformMT5
}
