package entities

import "sort"

// SeasonStanding is a player's cumulative position in the season
type SeasonStanding struct {
	PlayerName string `json:"player_name"`
	Points     int    `json:"points"`
	Position   int    `json:"position"`
}

// SeasonStandings ranks players by cumulative points. Position 1 is best and
// tied players share a position.
type SeasonStandings struct {
	byName  map[string]*SeasonStanding
	ordered []*SeasonStanding
}

// NewSeasonStandings builds standings from cumulative points per player
func NewSeasonStandings(points map[string]int) *SeasonStandings {
	ordered := make([]*SeasonStanding, 0, len(points))
	for name, p := range points {
		ordered = append(ordered, &SeasonStanding{PlayerName: name, Points: p})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Points != ordered[j].Points {
			return ordered[i].Points > ordered[j].Points
		}
		return ordered[i].PlayerName < ordered[j].PlayerName
	})

	byName := make(map[string]*SeasonStanding, len(ordered))
	for i, s := range ordered {
		if i > 0 && ordered[i-1].Points == s.Points {
			s.Position = ordered[i-1].Position
		} else {
			s.Position = i + 1
		}
		byName[s.PlayerName] = s
	}
	return &SeasonStandings{byName: byName, ordered: ordered}
}

// Position returns the player's position. Players without standing sit
// below everyone who has one.
func (s *SeasonStandings) Position(name string) int {
	if standing, ok := s.byName[name]; ok {
		return standing.Position
	}
	return len(s.ordered) + 1
}

// IsRankedAbove returns true if a strictly outranks b
func (s *SeasonStandings) IsRankedAbove(a, b string) bool {
	return s.Position(a) < s.Position(b)
}

// All returns standings in position order
func (s *SeasonStandings) All() []*SeasonStanding {
	return s.ordered
}

// UpsetCount counts players that outrank player in the standings but
// finished behind them in the round
func (s *SeasonStandings) UpsetCount(player *RoundResult, field []*RoundResult) int {
	count := 0
	for _, other := range field {
		if other.PlayerName == player.PlayerName {
			continue
		}
		if s.IsRankedAbove(other.PlayerName, player.PlayerName) && player.Rank < other.Rank {
			count++
		}
	}
	return count
}
