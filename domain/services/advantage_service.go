package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pulp/clock"
	"pulp/domain"
	"pulp/domain/entities"
	"pulp/domain/interfaces"

	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
)

type advantageService struct {
	uowFactory interfaces.UnitOfWorkFactory
	clock      clock.Clock
}

// NewAdvantageService creates a new advantage shop
func NewAdvantageService(uowFactory interfaces.UnitOfWorkFactory, clk clock.Clock) interfaces.AdvantageService {
	return &advantageService{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// NormalizeAdvantageKey maps user input such as "Gimme Putt" onto a catalog key
func NormalizeAdvantageKey(key string) string {
	return slug.Make(key)
}

// PurchaseAdvantage debits the catalog price and grants a new instance
func (s *advantageService) PurchaseAdvantage(ctx context.Context, playerID int64, advantageKey string) (*entities.AdvantageInstance, error) {
	key := NormalizeAdvantageKey(advantageKey)
	if key == "" {
		return nil, domain.NewValidationError("advantage_key", "is required")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	player, err := requireActivePlayer(ctx, uow, playerID)
	if err != nil {
		return nil, err
	}

	entry, err := uow.AdvantageRepository().GetCatalogEntry(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	if entry == nil {
		return nil, domain.NewNotFoundError("advantage", key)
	}

	now := s.clock.Now()
	// A lapsed instance no longer blocks a new purchase
	if err := s.expireStale(ctx, uow, player, key, now); err != nil {
		return nil, err
	}

	live, err := uow.AdvantageRepository().GetLiveInstance(ctx, playerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check owned advantages: %w", err)
	}
	if live != nil {
		return nil, domain.ErrAdvantageAlreadyOwned.WithMessage("you already hold an unused %s", entry.Name)
	}
	if !player.CanAfford(entry.PulpCost) {
		return nil, domain.ErrInsufficientBalance.WithMessage("insufficient balance: have %d, need %d", player.Balance, entry.PulpCost)
	}

	instance := &entities.AdvantageInstance{
		PlayerID:     playerID,
		AdvantageKey: key,
		PurchasedAt:  now,
		ExpiresAt:    now.Add(entry.Lifetime()),
	}
	if err := uow.AdvantageRepository().CreateInstance(ctx, instance); err != nil {
		return nil, err
	}
	if _, err := debit(ctx, uow, playerID, entry.PulpCost, entities.TransactionTypeAdvantagePurchase,
		fmt.Sprintf("Purchased %s", entry.Name),
		map[string]any{
			"advantage_key": key,
			"instance_id":   instance.ID,
			"expires_at":    instance.ExpiresAt,
		}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"playerID":     playerID,
		"advantageKey": key,
		"instanceID":   instance.ID,
		"cost":         entry.PulpCost,
	}).Info("Advantage purchased")
	return instance, nil
}

// UseAdvantage spends the player's live instance of a key in a round
func (s *advantageService) UseAdvantage(ctx context.Context, playerID int64, advantageKey string, roundID int64, metadata map[string]any) (*entities.AdvantageInstance, error) {
	key := NormalizeAdvantageKey(advantageKey)
	if key == "" {
		return nil, domain.NewValidationError("advantage_key", "is required")
	}
	if roundID <= 0 {
		return nil, domain.NewValidationError("round_id", "is required")
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if _, err := requireActivePlayer(ctx, uow, playerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	instance, err := uow.AdvantageRepository().GetLiveInstance(ctx, playerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get advantage: %w", err)
	}
	if instance == nil || !instance.IsUsable(now) {
		return nil, domain.ErrNoUsableAdvantage
	}

	if err := uow.AdvantageRepository().MarkUsed(ctx, instance.ID, roundID, metadata, now); err != nil {
		return nil, fmt.Errorf("failed to mark advantage used: %w", err)
	}
	if err := uow.AdvantageRepository().RecordUsage(ctx, &entities.AdvantageUsage{
		RoundID:      roundID,
		PlayerID:     playerID,
		AdvantageKey: key,
		InstanceID:   instance.ID,
		Metadata:     metadata,
		UsedAt:       now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record advantage usage: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	instance.UsedAt = &now
	instance.RoundID = &roundID
	instance.UsageMetadata = metadata
	return instance, nil
}

// ExpireAdvantages sweeps a player's lapsed instances. Nothing is refunded;
// each one gets a zero-amount notice in the ledger.
func (s *advantageService) ExpireAdvantages(ctx context.Context, playerID int64) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().LockForUpdate(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock player: %w", err)
	}
	if player == nil {
		return 0, domain.NewNotFoundError("player", playerID)
	}

	expired, err := uow.AdvantageRepository().ExpireStale(ctx, playerID, "", s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire advantages: %w", err)
	}
	for _, instance := range expired {
		if err := recordExpiryNotice(ctx, uow, player, instance); err != nil {
			return 0, err
		}
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return len(expired), nil
}

// ExpireAllAdvantages sweeps every player holding lapsed instances
func (s *advantageService) ExpireAllAdvantages(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	playerIDs, err := uow.AdvantageRepository().ListPlayersWithExpired(ctx, s.clock.Now())
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list players with expired advantages: %w", err)
	}

	total := 0
	var errs []error
	for _, playerID := range playerIDs {
		n, err := s.ExpireAdvantages(ctx, playerID)
		if err != nil {
			log.WithError(err).WithField("playerID", playerID).Error("Failed to expire advantages")
			errs = append(errs, err)
			continue
		}
		total += n
	}

	if total > 0 || len(errs) > 0 {
		log.WithFields(log.Fields{
			"players": len(playerIDs),
			"expired": total,
			"failed":  len(errs),
		}).Info("Expired advantages")
	}
	return total, errors.Join(errs...)
}

// ListCatalog returns the purchasable advantages
func (s *advantageService) ListCatalog(ctx context.Context) ([]*entities.AdvantageCatalogEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	catalog, err := uow.AdvantageRepository().ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return catalog, nil
}

// GetActiveAdvantages returns the player's usable instances
func (s *advantageService) GetActiveAdvantages(ctx context.Context, playerID int64) ([]*entities.AdvantageInstance, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	active, err := uow.AdvantageRepository().GetActiveByPlayer(ctx, playerID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get active advantages: %w", err)
	}
	return active, nil
}

func (s *advantageService) expireStale(ctx context.Context, uow interfaces.UnitOfWork, player *entities.Player, key string, now time.Time) error {
	expired, err := uow.AdvantageRepository().ExpireStale(ctx, player.ID, key, now)
	if err != nil {
		return fmt.Errorf("failed to expire advantages: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	// Notices carry the balance as of now
	locked, err := uow.PlayerRepository().LockForUpdate(ctx, player.ID)
	if err != nil {
		return fmt.Errorf("failed to lock player: %w", err)
	}
	for _, instance := range expired {
		if err := recordExpiryNotice(ctx, uow, locked, instance); err != nil {
			return err
		}
	}
	return nil
}

func recordExpiryNotice(ctx context.Context, uow interfaces.UnitOfWork, player *entities.Player, instance *entities.AdvantageInstance) error {
	return recordNotice(ctx, uow, player.ID, player.Balance, entities.TransactionTypeAdvantageExpired,
		fmt.Sprintf("%s expired unused", instance.AdvantageKey),
		map[string]any{
			"advantage_key": instance.AdvantageKey,
			"instance_id":   instance.ID,
			"expired_at":    instance.ExpiresAt,
		})
}
