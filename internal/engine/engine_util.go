package engine

// NewState builds the initial session: empty roster, fresh grid with
// the sentinel admin on cell 0, lobby phase.
func NewState() State {
	s := State{
		Countries: map[string]string{},
		Phase:     PhaseLobby,
		TimeLeft:  RoundSeconds,
	}
	s.resetGrid()
	return s
}

// Clone deep-copies the state so Apply can mutate freely while a
// rejected command leaves the caller's value untouched.
func (s State) Clone() State {
	next := s
	next.Grid = append([]Cell(nil), s.Grid...)
	next.Players = append([]Player(nil), s.Players...)
	next.Conns = append([]string(nil), s.Conns...)
	next.Countries = make(map[string]string, len(s.Countries))
	for id, country := range s.Countries {
		next.Countries[id] = country
	}
	if s.Winner != nil {
		w := *s.Winner
		next.Winner = &w
	}
	return next
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func (s *State) connected(connID string) bool {
	for _, id := range s.Conns {
		if id == connID {
			return true
		}
	}
	return false
}

func (s *State) playerIndex(connID string) int {
	for i, p := range s.Players {
		if p.ID == connID {
			return i
		}
	}
	return -1
}

// PlayerByID returns a copy of the roster entry for connID.
func (s *State) PlayerByID(connID string) (Player, bool) {
	idx := s.playerIndex(connID)
	if idx < 0 {
		return Player{}, false
	}
	return s.Players[idx], true
}

func (s *State) removeConn(connID string) {
	for i, id := range s.Conns {
		if id == connID {
			s.Conns = append(s.Conns[:i], s.Conns[i+1:]...)
			break
		}
	}
	delete(s.Countries, connID)
}

func (s *State) removePlayer(connID string) bool {
	idx := s.playerIndex(connID)
	if idx < 0 {
		return false
	}
	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
	return true
}

// adminOwner is the identity cell 0 carries: the current admin, or the
// sentinel when nobody holds the role.
func (s *State) adminOwner() (id, name string) {
	if s.AdminID == "" {
		return SentinelAdminID, SentinelAdminName
	}
	if p, ok := s.PlayerByID(s.AdminID); ok {
		return p.ID, p.Name
	}
	// Admin connected but never joined; no display name yet.
	return s.AdminID, SentinelAdminName
}

func (s *State) setAdminCell() {
	id, name := s.adminOwner()
	s.Grid[AdminCellID] = Cell{
		ID:        AdminCellID,
		Color:     AdminColor,
		OwnerID:   id,
		OwnerName: name,
	}
}

func (s *State) resetGrid() {
	s.Grid = make([]Cell, GridSize)
	for i := range s.Grid {
		s.Grid[i] = Cell{ID: i, Color: UnclaimedColor}
	}
	s.setAdminCell()
}

func (s *State) startRound() {
	s.resetGrid()
	s.Phase = PhaseActive
	s.TimeLeft = RoundSeconds
	s.Countdown = 0
	s.Winner = nil
}

func (s *State) endRound() {
	s.Phase = PhaseCooldown
	s.recomputeScores()
	s.Winner = s.pickWinner()
	s.Countdown = CooldownSeconds
	s.TimeLeft = 0
}

func (s *State) resetToLobby() {
	s.resetGrid()
	s.Phase = PhaseLobby
	s.TimeLeft = RoundSeconds
	s.Countdown = 0
	s.Winner = nil
	s.recomputeScores()
}

// recomputeScores rederives every score from grid ownership; scores
// are never written directly.
func (s *State) recomputeScores() {
	owned := make(map[string]int, len(s.Players))
	for _, c := range s.Grid {
		if c.OwnerID != "" {
			owned[c.OwnerID]++
		}
	}
	for i := range s.Players {
		s.Players[i].Score = owned[s.Players[i].ID]
	}
}

// pickWinner takes the highest score, first-in-roster on ties. When no
// player scored, the round goes to whoever holds admin, joined or not.
func (s *State) pickWinner() *Player {
	var best *Player
	for i := range s.Players {
		if best == nil || s.Players[i].Score > best.Score {
			best = &s.Players[i]
		}
	}
	if best != nil && best.Score > 0 {
		w := *best
		return &w
	}
	id, name := s.adminOwner()
	return &Player{ID: id, Name: name, Color: AdminColor}
}
