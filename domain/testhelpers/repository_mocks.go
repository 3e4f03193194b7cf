package testhelpers

import (
	"context"
	"time"

	"pulp/domain/entities"

	"github.com/stretchr/testify/mock"
)

// MockPlayerRepository is a mock implementation of PlayerRepository
type MockPlayerRepository struct {
	mock.Mock
}

func (m *MockPlayerRepository) GetByID(ctx context.Context, id int64) (*entities.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Player), args.Error(1)
}

func (m *MockPlayerRepository) GetByName(ctx context.Context, name string) (*entities.Player, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Player), args.Error(1)
}

func (m *MockPlayerRepository) GetByNames(ctx context.Context, names []string) (map[string]*entities.Player, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*entities.Player), args.Error(1)
}

func (m *MockPlayerRepository) LockForUpdate(ctx context.Context, id int64) (*entities.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Player), args.Error(1)
}

func (m *MockPlayerRepository) Create(ctx context.Context, name string) (*entities.Player, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Player), args.Error(1)
}

func (m *MockPlayerRepository) AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlayerRepository) IncrementSeasonRounds(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPlayerRepository) IncrementChallengesDeclined(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPlayerRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByPlayer(ctx context.Context, playerID int64, limit, offset int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, playerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetStats(ctx context.Context, playerID int64) (*entities.PlayerStats, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlayerStats), args.Error(1)
}

func (m *MockTransactionRepository) SumByPlayer(ctx context.Context, playerID int64) (int64, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockWindowRepository is a mock implementation of WindowRepository
type MockWindowRepository struct {
	mock.Mock
}

func (m *MockWindowRepository) Create(ctx context.Context, window *entities.Window) error {
	args := m.Called(ctx, window)
	return args.Error(0)
}

func (m *MockWindowRepository) GetByID(ctx context.Context, id int64) (*entities.Window, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Window), args.Error(1)
}

func (m *MockWindowRepository) GetByIDForShare(ctx context.Context, id int64) (*entities.Window, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Window), args.Error(1)
}

func (m *MockWindowRepository) GetOpen(ctx context.Context) (*entities.Window, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Window), args.Error(1)
}

func (m *MockWindowRepository) GetLatestLocked(ctx context.Context) (*entities.Window, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Window), args.Error(1)
}

func (m *MockWindowRepository) ListLocked(ctx context.Context) ([]*entities.Window, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Window), args.Error(1)
}

func (m *MockWindowRepository) LockExpired(ctx context.Context, now time.Time, expiry time.Duration) ([]*entities.Window, error) {
	args := m.Called(ctx, now, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Window), args.Error(1)
}

func (m *MockWindowRepository) ListExpiredLocked(ctx context.Context, now time.Time) ([]*entities.Window, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Window), args.Error(1)
}

func (m *MockWindowRepository) Transition(ctx context.Context, id int64, from, to entities.WindowStatus, roundID *int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, roundID, at)
	return args.Bool(0), args.Error(1)
}

// MockBlessingRepository is a mock implementation of BlessingRepository
type MockBlessingRepository struct {
	mock.Mock
}

func (m *MockBlessingRepository) Create(ctx context.Context, blessing *entities.Blessing) error {
	args := m.Called(ctx, blessing)
	return args.Error(0)
}

func (m *MockBlessingRepository) GetByPlayerAndWindow(ctx context.Context, playerID, windowID int64) (*entities.Blessing, error) {
	args := m.Called(ctx, playerID, windowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Blessing), args.Error(1)
}

func (m *MockBlessingRepository) GetPendingByWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error) {
	args := m.Called(ctx, windowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Blessing), args.Error(1)
}

func (m *MockBlessingRepository) GetByWindow(ctx context.Context, windowID int64) ([]*entities.Blessing, error) {
	args := m.Called(ctx, windowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Blessing), args.Error(1)
}

func (m *MockBlessingRepository) MarkResolved(ctx context.Context, id int64, status entities.BlessingStatus, payout int64, roundID *int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, status, payout, roundID, at)
	return args.Bool(0), args.Error(1)
}

// MockChallengeRepository is a mock implementation of ChallengeRepository
type MockChallengeRepository struct {
	mock.Mock
}

func (m *MockChallengeRepository) Create(ctx context.Context, challenge *entities.Challenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}

func (m *MockChallengeRepository) GetByID(ctx context.Context, id int64) (*entities.Challenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Challenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) GetActiveIssuedByChallenger(ctx context.Context, challengerID, windowID int64) (*entities.Challenge, error) {
	args := m.Called(ctx, challengerID, windowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) GetPendingForChallenged(ctx context.Context, challengedID, windowID int64) (*entities.Challenge, error) {
	args := m.Called(ctx, challengedID, windowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) GetOldestWaiting(ctx context.Context, challengedID, windowID int64) (*entities.Challenge, error) {
	args := m.Called(ctx, challengedID, windowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) GetByWindowAndStatus(ctx context.Context, windowID int64, status entities.ChallengeStatus) ([]*entities.Challenge, error) {
	args := m.Called(ctx, windowID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) GetByPlayer(ctx context.Context, playerID int64, limit int) ([]*entities.Challenge, error) {
	args := m.Called(ctx, playerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) Transition(ctx context.Context, challenge *entities.Challenge, from entities.ChallengeStatus) (bool, error) {
	args := m.Called(ctx, challenge, from)
	return args.Bool(0), args.Error(1)
}

// MockAdvantageRepository is a mock implementation of AdvantageRepository
type MockAdvantageRepository struct {
	mock.Mock
}

func (m *MockAdvantageRepository) GetCatalogEntry(ctx context.Context, key string) (*entities.AdvantageCatalogEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AdvantageCatalogEntry), args.Error(1)
}

func (m *MockAdvantageRepository) ListCatalog(ctx context.Context) ([]*entities.AdvantageCatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AdvantageCatalogEntry), args.Error(1)
}

func (m *MockAdvantageRepository) CreateInstance(ctx context.Context, instance *entities.AdvantageInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockAdvantageRepository) GetLiveInstance(ctx context.Context, playerID int64, key string) (*entities.AdvantageInstance, error) {
	args := m.Called(ctx, playerID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AdvantageInstance), args.Error(1)
}

func (m *MockAdvantageRepository) MarkUsed(ctx context.Context, id int64, roundID int64, metadata map[string]any, at time.Time) error {
	args := m.Called(ctx, id, roundID, metadata, at)
	return args.Error(0)
}

func (m *MockAdvantageRepository) ExpireStale(ctx context.Context, playerID int64, key string, now time.Time) ([]*entities.AdvantageInstance, error) {
	args := m.Called(ctx, playerID, key, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AdvantageInstance), args.Error(1)
}

func (m *MockAdvantageRepository) RecordUsage(ctx context.Context, usage *entities.AdvantageUsage) error {
	args := m.Called(ctx, usage)
	return args.Error(0)
}

func (m *MockAdvantageRepository) GetActiveByPlayer(ctx context.Context, playerID int64, now time.Time) ([]*entities.AdvantageInstance, error) {
	args := m.Called(ctx, playerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AdvantageInstance), args.Error(1)
}

func (m *MockAdvantageRepository) ListPlayersWithExpired(ctx context.Context, now time.Time) ([]int64, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) SaveRound(ctx context.Context, round *entities.Round, results []*entities.RoundResult) error {
	args := m.Called(ctx, round, results)
	return args.Error(0)
}

func (m *MockRoundRepository) GetRound(ctx context.Context, id int64) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetResults(ctx context.Context, roundID int64) ([]*entities.RoundResult, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RoundResult), args.Error(1)
}

func (m *MockRoundRepository) GetSeasonPoints(ctx context.Context, eventID int64, excludeRoundID int64) (map[string]int, error) {
	args := m.Called(ctx, eventID, excludeRoundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockRoundRepository) GetLatestSeasonEventID(ctx context.Context) (*int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

// MockParticipantRepository is a mock implementation of ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) GetRegisteredNames(ctx context.Context, eventID int64) (map[string]bool, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockParticipantRepository) Register(ctx context.Context, eventID int64, names []string) error {
	args := m.Called(ctx, eventID, names)
	return args.Error(0)
}

// MockRoundRunRepository is a mock implementation of RoundRunRepository
type MockRoundRunRepository struct {
	mock.Mock
}

func (m *MockRoundRunRepository) Create(ctx context.Context, run *entities.RoundGamificationRun) (bool, error) {
	args := m.Called(ctx, run)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoundRunRepository) GetByRoundID(ctx context.Context, roundID int64) (*entities.RoundGamificationRun, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RoundGamificationRun), args.Error(1)
}
