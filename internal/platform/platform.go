package platform

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tradehaven/wallet-api/internal/domain"
)

// TransferDirection indicates which way funds move relative to the wallet.
type TransferDirection string

const (
	DirectionToPlatform   TransferDirection = "to_platform"
	DirectionFromPlatform TransferDirection = "from_platform"
)

// AccountDetails is the platform-side view of a trading account.
type AccountDetails struct {
	AccountID     string  `json:"account_id"`
	Platform      string  `json:"platform"`
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
	Margin        float64 `json:"margin"`
	FreeMargin    float64 `json:"free_margin"`
	MarginLevel   float64 `json:"margin_level"`
	Leverage      string  `json:"leverage"`
	Server        string  `json:"server"`
	OpenPositions int     `json:"open_positions"`
	PendingOrders int     `json:"pending_orders"`
	IsActive      bool    `json:"is_active"`
}

// ServerStatus reports whether the platform side is reachable.
type ServerStatus struct {
	Online    bool      `json:"online"`
	CheckedAt time.Time `json:"checked_at"`
}

// Platform is the external MT4/MT5 collaborator contract. The real system
// behind it is out of scope; implementations may be arbitrarily fake, but
// callers must treat a TransferFunds error as a hard rejection.
type Platform interface {
	GetAccountDetails(ctx context.Context, accountID, platform string) (*AccountDetails, error)
	TransferFunds(ctx context.Context, accountID string, amountCents int64, direction TransferDirection) error
	GetServerStatus(ctx context.Context) (*ServerStatus, error)
}

// MockPlatform fabricates plausible platform responses. Randomness is
// injected through a seeded source rather than the global generator so
// tests can pin the output.
type MockPlatform struct {
	// FailureRate is the probability (0.0 to 1.0) that TransferFunds is
	// rejected. Zero by default: the platform side always accepts.
	FailureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockPlatform creates a mock seeded from the current time.
func NewMockPlatform() *MockPlatform {
	return NewMockPlatformWithSeed(time.Now().UnixNano())
}

// NewMockPlatformWithSeed creates a deterministic mock for tests.
func NewMockPlatformWithSeed(seed int64) *MockPlatform {
	return &MockPlatform{rng: rand.New(rand.NewSource(seed))}
}

func (p *MockPlatform) GetAccountDetails(ctx context.Context, accountID, platform string) (*AccountDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !domain.ValidPlatform(platform) {
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}

	p.mu.Lock()
	balance := 1000 + p.rng.Float64()*9000
	margin := p.rng.Float64() * 500
	openPositions := p.rng.Intn(5)
	pendingOrders := p.rng.Intn(3)
	p.mu.Unlock()

	equity := balance + margin
	marginLevel := 0.0
	if margin > 0 {
		marginLevel = equity / margin * 100
	}

	return &AccountDetails{
		AccountID:     accountID,
		Platform:      platform,
		Balance:       round2(balance),
		Equity:        round2(equity),
		Margin:        round2(margin),
		FreeMargin:    round2(equity - margin),
		MarginLevel:   round2(marginLevel),
		Leverage:      domain.PlatformLeverage,
		Server:        platform + "-Live-01",
		OpenPositions: openPositions,
		PendingOrders: pendingOrders,
		IsActive:      true,
	}, nil
}

func (p *MockPlatform) TransferFunds(ctx context.Context, accountID string, amountCents int64, direction TransferDirection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amountCents <= 0 {
		return fmt.Errorf("invalid platform transfer amount: %d", amountCents)
	}

	p.mu.Lock()
	rejected := p.rng.Float64() < p.FailureRate
	p.mu.Unlock()

	if rejected {
		return fmt.Errorf("platform transfer rejected for account %s", accountID)
	}
	return nil
}

func (p *MockPlatform) GetServerStatus(ctx context.Context) (*ServerStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ServerStatus{Online: true, CheckedAt: time.Now().UTC()}, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
