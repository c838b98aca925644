package auction

import (
	"slices"

	"github.com/muktadirmaashif/itcf-2026/internal/event"
)

// ToggleInterest marks or unmarks an available Category C player for a team
// and reports whether the player is now marked.
func (e *Engine) ToggleInterest(s *Snapshot, teamID, playerID string) (bool, error) {
	if s.State.InterestLocked {
		return false, ErrInterestLocked
	}
	if s.Team(teamID) == nil {
		return false, withReason(ErrTeamNotFound, "team %q not found", teamID)
	}
	p := s.Player(playerID)
	if p == nil {
		return false, withReason(ErrPlayerNotFound, "player %q not found", playerID)
	}

	teams := s.State.Interests[playerID]
	marked := !slices.Contains(teams, teamID)
	if marked {
		if p.Category != CategoryC || p.Status != StatusAvailable {
			return false, ErrNotInterestEligible
		}
		if n := len(s.TeamInterests(teamID)); n >= e.Rules.InterestLimit {
			return false, withReason(ErrInterestLimit, "interest limit of %d players reached", e.Rules.InterestLimit)
		}
		if s.State.Interests == nil {
			s.State.Interests = make(map[string][]string)
		}
		s.State.Interests[playerID] = append(teams, teamID)
	} else {
		teams = slices.DeleteFunc(slices.Clone(teams), func(id string) bool { return id == teamID })
		if len(teams) == 0 {
			delete(s.State.Interests, playerID)
		} else {
			s.State.Interests[playerID] = teams
		}
	}

	e.record(s, event.InterestToggled, event.InterestToggledData{
		PlayerID: playerID,
		TeamID:   teamID,
		Marked:   marked,
	})
	return marked, nil
}

// SetInterestLocked locks or unlocks interest marking.
func (e *Engine) SetInterestLocked(s *Snapshot, locked bool) error {
	if s.State.InterestLocked == locked {
		return nil
	}
	s.State.InterestLocked = locked
	e.record(s, event.InterestLockChanged, event.InterestLockData{Locked: locked})
	return nil
}
