package api

import (
	"strconv"
	"strings"

	"pulp/application/dto"
	"pulp/domain"
	"pulp/domain/entities"

	"github.com/gofiber/fiber/v2"
)

type placeBlessingRequest struct {
	WindowID    int64           `json:"window_id"`
	Predictions entities.Podium `json:"predictions"`
	WagerAmount int64           `json:"wager_amount"`
	EventID     int64           `json:"event_id"`
}

type issueChallengeRequest struct {
	ChallengedID int64 `json:"challenged_id"`
	WindowID     int64 `json:"window_id"`
	WagerAmount  int64 `json:"wager_amount"`
}

type respondToChallengeRequest struct {
	Accept *bool `json:"accept"`
}

type purchaseAdvantageRequest struct {
	AdvantageKey string `json:"advantage_key"`
}

type useAdvantageRequest struct {
	AdvantageKey string         `json:"advantage_key"`
	RoundID      int64          `json:"round_id"`
	Metadata     map[string]any `json:"metadata"`
}

type registerPlayerRequest struct {
	Name            string `json:"name"`
	StartingBalance *int64 `json:"starting_balance"`
}

type registerParticipantsRequest struct {
	Names []string `json:"names"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return domain.NewValidationError("body", "invalid request body")
	}
	return nil
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// Windows

func (s *Server) openWindow(c *fiber.Ctx) error {
	window, err := s.services.Windows.OpenWindow(c.UserContext(), currentPlayer(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(window)
}

func (s *Server) getActiveWindow(c *fiber.Ctx) error {
	active, err := s.services.Windows.GetActiveWindow(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(active)
}

func (s *Server) getWindowBlessings(c *fiber.Ctx) error {
	windowID, err := pathID(c)
	if err != nil {
		return err
	}
	blessings, err := s.services.Blessings.GetBlessingsForWindow(c.UserContext(), windowID)
	if err != nil {
		return err
	}
	return c.JSON(blessings)
}

// Blessings

func (s *Server) placeBlessing(c *fiber.Ctx) error {
	var req placeBlessingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	blessing, err := s.services.Blessings.PlaceBlessing(c.UserContext(), currentPlayer(c), req.WindowID, req.Predictions, req.WagerAmount, req.EventID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(blessing)
}

// Challenges

func (s *Server) issueChallenge(c *fiber.Ctx) error {
	var req issueChallengeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	challenge, err := s.services.Challenges.IssueChallenge(c.UserContext(), currentPlayer(c), req.ChallengedID, req.WindowID, req.WagerAmount)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

func (s *Server) respondToChallenge(c *fiber.Ctx) error {
	challengeID, err := pathID(c)
	if err != nil {
		return err
	}
	var req respondToChallengeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Accept == nil {
		return domain.NewValidationError("accept", "is required")
	}
	challenge, err := s.services.Challenges.RespondToChallenge(c.UserContext(), challengeID, currentPlayer(c), *req.Accept)
	if err != nil {
		return err
	}
	return c.JSON(challenge)
}

func (s *Server) listChallenges(c *fiber.Ctx) error {
	challenges, err := s.services.Challenges.GetChallengesForPlayer(c.UserContext(), currentPlayer(c), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return c.JSON(challenges)
}

// Advantages

func (s *Server) listCatalog(c *fiber.Ctx) error {
	catalog, err := s.services.Advantages.ListCatalog(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(catalog)
}

func (s *Server) listActiveAdvantages(c *fiber.Ctx) error {
	active, err := s.services.Advantages.GetActiveAdvantages(c.UserContext(), currentPlayer(c))
	if err != nil {
		return err
	}
	return c.JSON(active)
}

func (s *Server) purchaseAdvantage(c *fiber.Ctx) error {
	var req purchaseAdvantageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	instance, err := s.services.Advantages.PurchaseAdvantage(c.UserContext(), currentPlayer(c), req.AdvantageKey)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (s *Server) useAdvantage(c *fiber.Ctx) error {
	var req useAdvantageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	instance, err := s.services.Advantages.UseAdvantage(c.UserContext(), currentPlayer(c), req.AdvantageKey, req.RoundID, req.Metadata)
	if err != nil {
		return err
	}
	return c.JSON(instance)
}

// Ledger

func (s *Server) getBalance(c *fiber.Ctx) error {
	playerID := currentPlayer(c)
	balance, err := s.services.Ledger.GetBalance(c.UserContext(), playerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"player_id": playerID, "balance": balance})
}

func (s *Server) getTransactions(c *fiber.Ctx) error {
	history, err := s.services.Ledger.GetTransactionHistory(c.UserContext(), currentPlayer(c), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(history)
}

func (s *Server) getStats(c *fiber.Ctx) error {
	stats, err := s.services.Ledger.GetPlayerStats(c.UserContext(), currentPlayer(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Internal

func (s *Server) recordRound(c *fiber.Ctx) error {
	var round dto.RoundCompletedDTO
	if err := parseBody(c, &round); err != nil {
		return err
	}
	result, err := s.services.RoundResults.RecordRound(c.UserContext(), round.ToRoundReport())
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) registerParticipants(c *fiber.Ctx) error {
	eventID, err := pathID(c)
	if err != nil {
		return err
	}
	var req registerParticipantsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := s.services.RoundResults.RegisterParticipants(c.UserContext(), eventID, req.Names); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) registerPlayer(c *fiber.Ctx) error {
	var req registerPlayerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	startingBalance := s.config.StartingBalance
	if req.StartingBalance != nil {
		startingBalance = *req.StartingBalance
	}
	player, err := s.services.Ledger.RegisterPlayer(c.UserContext(), strings.TrimSpace(req.Name), startingBalance)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(player)
}

func (s *Server) deactivatePlayer(c *fiber.Ctx) error {
	playerID, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.services.Ledger.DeactivatePlayer(c.UserContext(), playerID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
