package auction

import "github.com/muktadirmaashif/itcf-2026/internal/event"

// Eligible reports whether p may be drawn while phase is active.
func Eligible(p Player, phase Phase) bool {
	switch phase {
	case PhaseCategoryA:
		return p.Category == CategoryA && p.Status == StatusAvailable
	case PhaseCategoryB:
		return p.Category == CategoryB && p.Status == StatusAvailable
	case PhaseCategoryC:
		return p.Category == CategoryC && p.Status == StatusAvailable
	case PhaseUnsold:
		return p.Status == StatusUnsold
	default:
		return false
	}
}

// Candidates returns the players that may be drawn in phase.
func (s *Snapshot) Candidates(phase Phase) []Player {
	var out []Player
	for _, p := range s.Players {
		if Eligible(p, phase) {
			out = append(out, p)
		}
	}
	return out
}

// Exhausted reports whether a drawing phase has no candidates left. SETUP
// and COMPLETE never draw and are never exhausted.
func (s *Snapshot) Exhausted(phase Phase) bool {
	switch phase {
	case PhaseSetup, PhaseComplete:
		return false
	}
	return len(s.Candidates(phase)) == 0
}

// SetPhase moves the auction to phase. Selecting the active phase is a
// no-op. The returned flag reports whether the new phase is exhausted.
func (e *Engine) SetPhase(s *Snapshot, phase Phase) (bool, error) {
	if !phase.Valid() {
		return false, withReason(ErrInvalidPhase, "unknown phase %q", phase)
	}
	if s.State.LotActive() {
		return false, ErrLotActive
	}
	if phase == s.State.Phase {
		return s.Exhausted(phase), nil
	}
	if s.State.Phase == PhaseSetup && (len(s.Players) < 1 || len(s.Teams) < 2) {
		return false, ErrSetupIncomplete
	}

	from := s.State.Phase
	exhausted := s.Exhausted(phase)
	s.State.Phase = phase
	e.record(s, event.PhaseChanged, event.PhaseChangedData{
		From:      string(from),
		To:        string(phase),
		Exhausted: exhausted,
	})
	return exhausted, nil
}

// DrawNext puts a uniformly random candidate of the active phase on the
// floor. It returns nil without recording anything when no candidate is left.
func (e *Engine) DrawNext(s *Snapshot) (*Player, error) {
	if s.State.LotActive() {
		return nil, ErrLotActive
	}
	candidates := s.Candidates(s.State.Phase)
	if len(candidates) == 0 {
		return nil, nil
	}

	p := candidates[e.Rand.Intn(len(candidates))]
	s.State.CurrentPlayerID = p.ID
	s.State.CurrentBidPrice = p.BasePrice
	s.State.CurrentBidderTeamID = ""
	e.record(s, event.LotDrawn, event.LotDrawnData{
		PlayerID:  p.ID,
		Phase:     string(s.State.Phase),
		BasePrice: p.BasePrice,
	})
	return &p, nil
}
