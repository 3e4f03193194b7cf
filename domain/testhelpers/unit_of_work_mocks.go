package testhelpers

import (
	"context"
	"sync"

	"pulp/domain/entities"
	"pulp/domain/interfaces"
	"pulp/events"

	"github.com/stretchr/testify/mock"
)

// MockUnitOfWork is a mock implementation of UnitOfWork. Begin, Commit and
// Rollback are recorded; repository getters return whatever SetRepositories
// installed.
type MockUnitOfWork struct {
	mock.Mock

	playerRepo      interfaces.PlayerRepository
	transactionRepo interfaces.TransactionRepository
	windowRepo      interfaces.WindowRepository
	blessingRepo    interfaces.BlessingRepository
	challengeRepo   interfaces.ChallengeRepository
	advantageRepo   interfaces.AdvantageRepository
	roundRepo       interfaces.RoundRepository
	participantRepo interfaces.ParticipantRepository
	roundRunRepo    interfaces.RoundRunRepository
	eventBus        interfaces.EventPublisher
}

// SetRepositories installs repositories by type. Unrecognized values panic.
func (m *MockUnitOfWork) SetRepositories(repos ...any) {
	for _, repo := range repos {
		switch r := repo.(type) {
		case interfaces.PlayerRepository:
			m.playerRepo = r
		case interfaces.TransactionRepository:
			m.transactionRepo = r
		case interfaces.WindowRepository:
			m.windowRepo = r
		case interfaces.BlessingRepository:
			m.blessingRepo = r
		case interfaces.ChallengeRepository:
			m.challengeRepo = r
		case interfaces.AdvantageRepository:
			m.advantageRepo = r
		case interfaces.RoundRepository:
			m.roundRepo = r
		case interfaces.ParticipantRepository:
			m.participantRepo = r
		case interfaces.RoundRunRepository:
			m.roundRunRepo = r
		case interfaces.EventPublisher:
			m.eventBus = r
		default:
			panic("unsupported repository type")
		}
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) PlayerRepository() interfaces.PlayerRepository { return m.playerRepo }

func (m *MockUnitOfWork) TransactionRepository() interfaces.TransactionRepository {
	return m.transactionRepo
}

func (m *MockUnitOfWork) WindowRepository() interfaces.WindowRepository { return m.windowRepo }

func (m *MockUnitOfWork) BlessingRepository() interfaces.BlessingRepository { return m.blessingRepo }

func (m *MockUnitOfWork) ChallengeRepository() interfaces.ChallengeRepository {
	return m.challengeRepo
}

func (m *MockUnitOfWork) AdvantageRepository() interfaces.AdvantageRepository {
	return m.advantageRepo
}

func (m *MockUnitOfWork) RoundRepository() interfaces.RoundRepository { return m.roundRepo }

func (m *MockUnitOfWork) ParticipantRepository() interfaces.ParticipantRepository {
	return m.participantRepo
}

func (m *MockUnitOfWork) RoundRunRepository() interfaces.RoundRunRepository { return m.roundRunRepo }

func (m *MockUnitOfWork) EventBus() interfaces.EventPublisher {
	if m.eventBus == nil {
		m.eventBus = &RecordingEventPublisher{}
	}
	return m.eventBus
}

// ExpectCommitted sets up a unit of work that begins, commits and is
// rolled back by the deferred no-op Rollback
func (m *MockUnitOfWork) ExpectCommitted() *MockUnitOfWork {
	m.On("Begin", mock.Anything).Return(nil)
	m.On("Commit").Return(nil)
	m.On("Rollback").Return(nil)
	return m
}

// ExpectRolledBack sets up a unit of work that begins and is rolled back
func (m *MockUnitOfWork) ExpectRolledBack() *MockUnitOfWork {
	m.On("Begin", mock.Anything).Return(nil)
	m.On("Rollback").Return(nil)
	return m
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	args := m.Called()
	return args.Get(0).(interfaces.UnitOfWork)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// RecordingEventPublisher keeps every published event for assertions
type RecordingEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingEventPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the published events in order
func (p *RecordingEventPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// OfType returns the published events of one type
func (p *RecordingEventPublisher) OfType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, e := range p.Events() {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockWindowMatcher is a mock implementation of WindowMatcher
type MockWindowMatcher struct {
	mock.Mock
}

func (m *MockWindowMatcher) MatchWindow(ctx context.Context, windows interfaces.WindowRepository, meta entities.RoundMeta) (*entities.Window, error) {
	args := m.Called(ctx, windows, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Window), args.Error(1)
}
