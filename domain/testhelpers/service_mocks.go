package testhelpers

import (
	"context"

	"pulp/domain/entities"

	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Credit(ctx context.Context, playerID, amount int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error) {
	args := m.Called(ctx, playerID, amount, txType, description, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedgerService) Debit(ctx context.Context, playerID, amount int64, txType entities.TransactionType, description string, metadata map[string]any) (*entities.Transaction, error) {
	args := m.Called(ctx, playerID, amount, txType, description, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedgerService) GetBalance(ctx context.Context, playerID int64) (int64, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) GetTransactionHistory(ctx context.Context, playerID int64, limit, offset int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, playerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockLedgerService) GetPlayerStats(ctx context.Context, playerID int64) (*entities.PlayerStats, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlayerStats), args.Error(1)
}

func (m *MockLedgerService) RegisterPlayer(ctx context.Context, name string, startingBalance int64) (*entities.Player, error) {
	args := m.Called(ctx, name, startingBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Player), args.Error(1)
}

func (m *MockLedgerService) DeactivatePlayer(ctx context.Context, playerID int64) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

// MockWindowService is a mock implementation of WindowService
type MockWindowService struct {
	mock.Mock
}

func (m *MockWindowService) OpenWindow(ctx context.Context, playerID int64) (*entities.Window, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Window), args.Error(1)
}

func (m *MockWindowService) GetActiveWindow(ctx context.Context) (*entities.ActiveWindow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ActiveWindow), args.Error(1)
}

func (m *MockWindowService) LockExpiredWindows(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockWindowService) ExpireStaleWindows(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockWindowService) SettleWindow(ctx context.Context, windowID, roundID int64) error {
	args := m.Called(ctx, windowID, roundID)
	return args.Error(0)
}

// MockBlessingService is a mock implementation of BlessingService
type MockBlessingService struct {
	mock.Mock
}

func (m *MockBlessingService) PlaceBlessing(ctx context.Context, playerID, windowID int64, prediction entities.Podium, wager, eventID int64) (*entities.Blessing, error) {
	args := m.Called(ctx, playerID, windowID, prediction, wager, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Blessing), args.Error(1)
}

func (m *MockBlessingService) ResolveBlessingsForWindow(ctx context.Context, windowID, roundID int64) error {
	args := m.Called(ctx, windowID, roundID)
	return args.Error(0)
}

func (m *MockBlessingService) RefundBlessingsForWindow(ctx context.Context, windowID int64) error {
	args := m.Called(ctx, windowID)
	return args.Error(0)
}

func (m *MockBlessingService) GetBlessingsForWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error) {
	args := m.Called(ctx, windowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Blessing), args.Error(1)
}

// MockChallengeService is a mock implementation of ChallengeService
type MockChallengeService struct {
	mock.Mock
}

func (m *MockChallengeService) IssueChallenge(ctx context.Context, challengerID, challengedID, windowID, wager int64) (*entities.Challenge, error) {
	args := m.Called(ctx, challengerID, challengedID, windowID, wager)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeService) RespondToChallenge(ctx context.Context, challengeID, challengedID int64, accept bool) (*entities.Challenge, error) {
	args := m.Called(ctx, challengeID, challengedID, accept)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeService) ResolveChallengesForWindow(ctx context.Context, windowID, roundID int64) error {
	args := m.Called(ctx, windowID, roundID)
	return args.Error(0)
}

func (m *MockChallengeService) ApplyWindowCloseRules(ctx context.Context, windowID int64) error {
	args := m.Called(ctx, windowID)
	return args.Error(0)
}

func (m *MockChallengeService) RefundChallengesForWindow(ctx context.Context, windowID int64) error {
	args := m.Called(ctx, windowID)
	return args.Error(0)
}

func (m *MockChallengeService) GetChallengesForPlayer(ctx context.Context, playerID int64, limit int) ([]*entities.Challenge, error) {
	args := m.Called(ctx, playerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Challenge), args.Error(1)
}

// MockAdvantageService is a mock implementation of AdvantageService
type MockAdvantageService struct {
	mock.Mock
}

func (m *MockAdvantageService) PurchaseAdvantage(ctx context.Context, playerID int64, advantageKey string) (*entities.AdvantageInstance, error) {
	args := m.Called(ctx, playerID, advantageKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AdvantageInstance), args.Error(1)
}

func (m *MockAdvantageService) UseAdvantage(ctx context.Context, playerID int64, advantageKey string, roundID int64, metadata map[string]any) (*entities.AdvantageInstance, error) {
	args := m.Called(ctx, playerID, advantageKey, roundID, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AdvantageInstance), args.Error(1)
}

func (m *MockAdvantageService) ExpireAdvantages(ctx context.Context, playerID int64) (int, error) {
	args := m.Called(ctx, playerID)
	return args.Int(0), args.Error(1)
}

func (m *MockAdvantageService) ExpireAllAdvantages(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAdvantageService) ListCatalog(ctx context.Context) ([]*entities.AdvantageCatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AdvantageCatalogEntry), args.Error(1)
}

func (m *MockAdvantageService) GetActiveAdvantages(ctx context.Context, playerID int64) ([]*entities.AdvantageInstance, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AdvantageInstance), args.Error(1)
}

// MockSettlementService is a mock implementation of SettlementService
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) ProcessRoundGamification(ctx context.Context, roundID, eventID int64, eventType entities.EventType, meta entities.RoundMeta) (*entities.RoundGamificationResult, error) {
	args := m.Called(ctx, roundID, eventID, eventType, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RoundGamificationResult), args.Error(1)
}

// MockRoundResultsService is a mock implementation of RoundResultsService
type MockRoundResultsService struct {
	mock.Mock
}

func (m *MockRoundResultsService) RecordRound(ctx context.Context, report *entities.RoundReport) (*entities.RoundGamificationResult, error) {
	args := m.Called(ctx, report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RoundGamificationResult), args.Error(1)
}

func (m *MockRoundResultsService) RegisterParticipants(ctx context.Context, eventID int64, names []string) error {
	args := m.Called(ctx, eventID, names)
	return args.Error(0)
}
