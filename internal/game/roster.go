package game

// AddPlayer appends a player in join order. The first player in becomes the
// host. The caller decides idempotency: adding an id that is already present
// is an error here, rejoin handling lives in the room.
func AddPlayer(s State, p Player) (State, error) {
	if s.HasPlayer(p.ID) {
		return s, ErrPlayerExists
	}
	ns := s.clone()
	p.Score = 0
	p.IsHost = len(ns.Players) == 0
	ns.Players = append(ns.Players, p)
	return ns, nil
}

// RemovePlayer detaches a player and repairs the state around the gap:
// host status transfers to the next player in join order, the leaver's vote
// and any votes targeting them are discarded, and the round is forced along
// if it can no longer proceed.
//
// Forced transitions:
//   - PLAYING with the impostor gone, or fewer than MinPlayers left, ends
//     the round as SKIPPED without scoring.
//   - PLAYING where the departure completes the vote resolves normally.
//   - CHOOSING_CATEGORY under MinPlayers falls back to WAITING.
func RemovePlayer(s State, id string) (State, []Event, error) {
	i := s.playerIndex(id)
	if i < 0 {
		return s, nil, ErrPlayerNotFound
	}

	ns := s.clone()
	wasHost := ns.Players[i].IsHost
	ns.Players = append(ns.Players[:i], ns.Players[i+1:]...)
	if wasHost && len(ns.Players) > 0 {
		ns.Players[0].IsHost = true
	}

	delete(ns.Votes, id)
	for voter, target := range ns.Votes {
		if target == id {
			delete(ns.Votes, voter)
		}
	}

	var events []Event
	switch ns.Phase {
	case PhasePlaying:
		if id == ns.ImpostorID || len(ns.Players) < MinPlayers {
			ns.Phase = PhaseSkipped
			events = append(events, Event{Type: EvtRoundSkipped})
		} else if ns.votesComplete() {
			var caught bool
			ns, caught = resolveRound(ns)
			events = append(events, Event{Type: EvtRoundResolved, ImpostorCaught: caught})
		}
	case PhaseChoosingCategory:
		if len(ns.Players) < MinPlayers {
			ns.Phase = PhaseWaiting
		}
	}
	return ns, events, nil
}
