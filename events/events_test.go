package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"pulp/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDeliversToBus(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan BalanceChangedEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChanged, func(ctx context.Context, event Event) {
		if e, ok := event.(BalanceChangedEvent); ok {
			received <- e
		}
	})

	sent := BalanceChangedEvent{
		PlayerID:        7,
		OldBalance:      100,
		NewBalance:      70,
		Amount:          -30,
		TransactionType: entities.TransactionTypeBlessingLoss,
	}
	require.NoError(t, transactionalBus.Publish(sent))
	assert.Equal(t, 1, transactionalBus.Pending())

	transactionalBus.Flush()
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	delivered := 0
	mainBus.Subscribe(EventTypeWindowStateChanged, func(ctx context.Context, event Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	require.NoError(t, transactionalBus.Publish(WindowStateChangedEvent{WindowID: 1, NewStatus: entities.WindowStatusOpen}))
	transactionalBus.Discard()
	transactionalBus.Flush()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, delivered)
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(EventTypeRoundProcessed, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeRoundProcessed, func(ctx context.Context, event Event) {
		wg.Done()
	})

	bus.Emit(context.Background(), RoundProcessedEvent{RoundID: 3})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not called")
	}
}
