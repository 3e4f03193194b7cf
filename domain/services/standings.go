package services

import (
	"context"
	"fmt"

	"pulp/domain/entities"
	"pulp/domain/interfaces"
)

// currentSeasonStandings ranks players by cumulative points in the most
// recent season event. Before any season round exists everyone is unranked.
func currentSeasonStandings(ctx context.Context, uow interfaces.UnitOfWork) (*entities.SeasonStandings, error) {
	eventID, err := uow.RoundRepository().GetLatestSeasonEventID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current season: %w", err)
	}
	if eventID == nil {
		return entities.NewSeasonStandings(nil), nil
	}
	return seasonStandings(ctx, uow, *eventID, 0)
}

// seasonStandings ranks players by cumulative points in an event, leaving
// out excludeRoundID so a round is judged against the table as it stood
// before it was played
func seasonStandings(ctx context.Context, uow interfaces.UnitOfWork, eventID, excludeRoundID int64) (*entities.SeasonStandings, error) {
	points, err := uow.RoundRepository().GetSeasonPoints(ctx, eventID, excludeRoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get season points: %w", err)
	}
	return entities.NewSeasonStandings(points), nil
}
