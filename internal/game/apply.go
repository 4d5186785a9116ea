package game

import (
	"math/rand"
	"slices"
)

type CommandType string

const (
	CmdSetChoosingCategory CommandType = "SetChoosingCategory"
	CmdStartGame           CommandType = "StartGame"
	CmdVote                CommandType = "Vote"
	CmdNextRound           CommandType = "NextRound"
	CmdSkipRound           CommandType = "SkipRound"
)

type Command struct {
	Type     CommandType
	ActorID  string
	Region   string
	Banned   []string
	TargetID string
}

type EventType string

const (
	// EvtCategoriesOpen tells the room to send the region category lists to
	// the host so they can pick a region and ban categories.
	EvtCategoriesOpen EventType = "CategoriesOpen"
	EvtRoundStarted   EventType = "RoundStarted"
	EvtVoteCast       EventType = "VoteCast"
	EvtRoundResolved  EventType = "RoundResolved"
	EvtRoundSkipped   EventType = "RoundSkipped"
)

type Event struct {
	Type           EventType
	ImpostorCaught bool
}

// Apply runs one command against the state and returns the events it
// produced plus the successor state. On error the input state is returned
// unchanged; guard failures never leave a partial mutation behind.
//
// rng is the only source of randomness (category, word and impostor
// selection), so tests can seed it for reproducible rounds.
func Apply(s State, cmd Command, src WordSource, rng *rand.Rand) ([]Event, State, error) {
	switch cmd.Type {
	case CmdSetChoosingCategory:
		if !s.isHost(cmd.ActorID) {
			return nil, s, ErrNotAuthorized
		}
		if s.Phase != PhaseWaiting && s.Phase != PhaseEnd && s.Phase != PhaseSkipped {
			return nil, s, ErrWrongPhase
		}
		if len(s.Players) < MinPlayers {
			return nil, s, ErrInsufficientPlayers
		}
		ns := s.clone()
		ns.Phase = PhaseChoosingCategory
		ns.Category = ""
		ns.Word = ""
		ns.ImpostorID = ""
		return []Event{{Type: EvtCategoriesOpen}}, ns, nil

	case CmdStartGame:
		if !s.isHost(cmd.ActorID) {
			return nil, s, ErrNotAuthorized
		}
		if s.Phase != PhaseChoosingCategory {
			return nil, s, ErrWrongPhase
		}
		if len(s.Players) < MinPlayers {
			return nil, s, ErrInsufficientPlayers
		}
		ns, err := startRound(s, src, rng, cmd.Region, cmd.Banned)
		if err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtRoundStarted}}, ns, nil

	case CmdNextRound:
		if !s.isHost(cmd.ActorID) {
			return nil, s, ErrNotAuthorized
		}
		if s.Phase != PhaseEnd && s.Phase != PhaseSkipped {
			return nil, s, ErrWrongPhase
		}
		if len(s.Players) < MinPlayers {
			return nil, s, ErrInsufficientPlayers
		}
		// Same region and banned set the host chose previously.
		ns, err := startRound(s, src, rng, s.Region, s.Banned)
		if err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtRoundStarted}}, ns, nil

	case CmdSkipRound:
		if !s.isHost(cmd.ActorID) {
			return nil, s, ErrNotAuthorized
		}
		if s.Phase != PhasePlaying {
			return nil, s, ErrWrongPhase
		}
		ns := s.clone()
		ns.Phase = PhaseSkipped
		return []Event{{Type: EvtRoundSkipped}}, ns, nil

	case CmdVote:
		if s.Phase != PhasePlaying {
			return nil, s, ErrInvalidVote
		}
		if !s.HasPlayer(cmd.ActorID) || !s.HasPlayer(cmd.TargetID) {
			return nil, s, ErrInvalidVote
		}
		if cmd.ActorID == s.ImpostorID {
			return nil, s, ErrInvalidVote
		}
		// Self-votes are rejected rather than counted.
		if cmd.ActorID == cmd.TargetID {
			return nil, s, ErrInvalidVote
		}
		if _, voted := s.Votes[cmd.ActorID]; voted {
			return nil, s, ErrInvalidVote
		}
		ns := s.clone()
		ns.Votes[cmd.ActorID] = cmd.TargetID
		events := []Event{{Type: EvtVoteCast}}
		if ns.votesComplete() {
			var caught bool
			ns, caught = resolveRound(ns)
			events = append(events, Event{Type: EvtRoundResolved, ImpostorCaught: caught})
		}
		return events, ns, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// startRound picks category, word and impostor for a new round and moves
// the state into PLAYING with a cleared votes map.
func startRound(s State, src WordSource, rng *rand.Rand, region string, banned []string) (State, error) {
	cats := src.Categories(region)
	if len(cats) == 0 {
		return s, ErrUnknownRegion
	}

	avail := make([]string, 0, len(cats))
	for _, c := range cats {
		if slices.Contains(banned, c) {
			continue
		}
		if len(src.Words(region, c)) == 0 {
			continue
		}
		avail = append(avail, c)
	}
	if len(avail) == 0 {
		return s, ErrNoCategoriesAvailable
	}

	category := avail[rng.Intn(len(avail))]
	words := src.Words(region, category)
	word := words[rng.Intn(len(words))]
	impostor := s.Players[rng.Intn(len(s.Players))].ID

	ns := s.clone()
	ns.Phase = PhasePlaying
	ns.Region = region
	ns.Banned = slices.Clone(banned)
	ns.Category = category
	ns.Word = word
	ns.ImpostorID = impostor
	ns.Votes = map[string]string{}
	return ns, nil
}

// resolveRound tallies votes and settles the round. The impostor is caught
// only on a strict plurality; a tie for the most votes is not caught. When
// not caught, the impostor scores a point. The round counter advances on
// normal resolution only, never on a skip.
func resolveRound(s State) (State, bool) {
	tally := map[string]int{}
	for _, target := range s.Votes {
		tally[target]++
	}

	impostorVotes := tally[s.ImpostorID]
	caught := impostorVotes > 0
	for target, n := range tally {
		if target == s.ImpostorID {
			continue
		}
		if n >= impostorVotes {
			caught = false
		}
	}

	ns := s.clone()
	ns.Phase = PhaseEnd
	ns.Round++
	if !caught {
		if i := ns.playerIndex(ns.ImpostorID); i >= 0 {
			ns.Players[i].Score++
		}
	}
	return ns, caught
}
