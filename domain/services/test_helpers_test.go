package services

import (
	"testing"
	"time"

	"pulp/clock"
	"pulp/domain/entities"
	"pulp/domain/testhelpers"

	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, 6, 14, 18, 0, 0, 0, time.UTC)

// serviceFixture wires every repository mock into one unit of work that the
// factory hands out on each Create
type serviceFixture struct {
	factory      *testhelpers.MockUnitOfWorkFactory
	uow          *testhelpers.MockUnitOfWork
	players      *testhelpers.MockPlayerRepository
	transactions *testhelpers.MockTransactionRepository
	windows      *testhelpers.MockWindowRepository
	blessings    *testhelpers.MockBlessingRepository
	challenges   *testhelpers.MockChallengeRepository
	advantages   *testhelpers.MockAdvantageRepository
	rounds       *testhelpers.MockRoundRepository
	participants *testhelpers.MockParticipantRepository
	runs         *testhelpers.MockRoundRunRepository
	events       *testhelpers.RecordingEventPublisher
	clock        *clock.FixedClock
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		factory:      new(testhelpers.MockUnitOfWorkFactory),
		uow:          new(testhelpers.MockUnitOfWork),
		players:      new(testhelpers.MockPlayerRepository),
		transactions: new(testhelpers.MockTransactionRepository),
		windows:      new(testhelpers.MockWindowRepository),
		blessings:    new(testhelpers.MockBlessingRepository),
		challenges:   new(testhelpers.MockChallengeRepository),
		advantages:   new(testhelpers.MockAdvantageRepository),
		rounds:       new(testhelpers.MockRoundRepository),
		participants: new(testhelpers.MockParticipantRepository),
		runs:         new(testhelpers.MockRoundRunRepository),
		events:       &testhelpers.RecordingEventPublisher{},
		clock:        clock.NewFixedClock(testNow),
	}
	f.uow.SetRepositories(f.players, f.transactions, f.windows, f.blessings, f.challenges,
		f.advantages, f.rounds, f.participants, f.runs, f.events)
	f.factory.On("Create").Return(f.uow)
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.uow.On("Commit").Return(nil).Maybe()
	return f
}

// expectEntry expects one balance change and its ledger row
func (f *serviceFixture) expectEntry(playerID, amount, balanceAfter int64, txType entities.TransactionType) {
	f.players.On("AdjustBalance", mock.Anything, playerID, amount).Return(balanceAfter, nil).Once()
	f.transactions.On("Create", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.PlayerID == playerID && tx.Amount == amount && tx.BalanceAfter == balanceAfter && tx.Type == txType
	})).Return(nil).Once()
}

func (f *serviceFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.players.AssertExpectations(t)
	f.transactions.AssertExpectations(t)
	f.windows.AssertExpectations(t)
	f.blessings.AssertExpectations(t)
	f.challenges.AssertExpectations(t)
	f.advantages.AssertExpectations(t)
	f.rounds.AssertExpectations(t)
	f.participants.AssertExpectations(t)
	f.runs.AssertExpectations(t)
}

func activePlayer(id int64, name string, balance int64) *entities.Player {
	return &entities.Player{ID: id, Name: name, Balance: balance, Active: true}
}

func openWindow(id int64) *entities.Window {
	return &entities.Window{
		ID:       id,
		OpenedBy: 1,
		OpenedAt: testNow.Add(-5 * time.Minute),
		ClosesAt: testNow.Add(25 * time.Minute),
		Status:   entities.WindowStatusOpen,
	}
}

func lockedWindow(id int64) *entities.Window {
	lockedAt := testNow.Add(-time.Hour)
	expiresAt := lockedAt.Add(15 * 24 * time.Hour)
	return &entities.Window{
		ID:        id,
		OpenedBy:  1,
		OpenedAt:  testNow.Add(-2 * time.Hour),
		ClosesAt:  lockedAt,
		Status:    entities.WindowStatusLocked,
		LockedAt:  &lockedAt,
		ExpiresAt: &expiresAt,
	}
}

func int64Ptr(v int64) *int64 { return &v }
