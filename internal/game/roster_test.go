package game

import (
	"errors"
	"testing"
)

func TestFirstPlayerBecomesHost(t *testing.T) {
	s := NewState()
	s, err := AddPlayer(s, Player{ID: "p1", Name: "ana"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	s, _ = AddPlayer(s, Player{ID: "p2", Name: "beto"})

	if !s.Players[0].IsHost || s.Players[1].IsHost {
		t.Fatalf("want exactly p1 as host, got %+v", s.Players)
	}
	if s.HostID() != "p1" {
		t.Fatalf("want host p1, got %q", s.HostID())
	}
}

func TestAddDuplicatePlayer(t *testing.T) {
	s := stateWithPlayers(2)
	_, err := AddPlayer(s, Player{ID: "ana"})
	if !errors.Is(err, ErrPlayerExists) {
		t.Fatalf("want ErrPlayerExists, got %v", err)
	}
}

func TestHostTransferFollowsJoinOrder(t *testing.T) {
	s := stateWithPlayers(3) // ana(host), beto, caro

	s, _, err := RemovePlayer(s, "ana")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	hosts := 0
	for _, p := range s.Players {
		if p.IsHost {
			hosts++
		}
	}
	if hosts != 1 {
		t.Fatalf("want exactly one host after transfer, got %d", hosts)
	}
	if s.HostID() != "beto" {
		t.Fatalf("want beto promoted, got %q", s.HostID())
	}
}

func TestRemoveUnknownPlayer(t *testing.T) {
	s := stateWithPlayers(2)
	_, _, err := RemovePlayer(s, "ghost")
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("want ErrPlayerNotFound, got %v", err)
	}
}

func TestRemoveVoterDropsTheirVote(t *testing.T) {
	s := playingState(t, 5)
	voters := nonImpostors(s)

	_, s, err := Apply(s, Command{Type: CmdVote, ActorID: voters[0], TargetID: voters[1]}, testSource(), testRNG())
	if err != nil {
		t.Fatalf("vote: %v", err)
	}

	s, _, err = RemovePlayer(s, voters[0])
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := s.Votes[voters[0]]; ok {
		t.Fatalf("leaver's vote survived removal")
	}
}

func TestRemoveVotedTargetClearsVotesAgainstThem(t *testing.T) {
	s := playingState(t, 5)
	voters := nonImpostors(s)

	_, s, _ = Apply(s, Command{Type: CmdVote, ActorID: voters[0], TargetID: voters[1]}, testSource(), testRNG())
	s, _, err := RemovePlayer(s, voters[1])
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(s.Votes) != 0 {
		t.Fatalf("votes targeting the leaver must be discarded, got %+v", s.Votes)
	}
}

func TestImpostorLeavingForcesSkip(t *testing.T) {
	s := playingState(t, 4)

	s, events, err := RemovePlayer(s, s.ImpostorID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Phase != PhaseSkipped {
		t.Fatalf("want SKIPPED after impostor left, got %v", s.Phase)
	}
	if len(events) != 1 || events[0].Type != EvtRoundSkipped {
		t.Fatalf("want RoundSkipped event, got %+v", events)
	}
}

func TestRosterUnderThreeForcesSkipMidRound(t *testing.T) {
	s := playingState(t, 3)
	leaver := nonImpostors(s)[0]

	s, _, err := RemovePlayer(s, leaver)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Phase != PhaseSkipped {
		t.Fatalf("want SKIPPED with roster under three, got %v", s.Phase)
	}
}

func TestLeaverCompletesTheVote(t *testing.T) {
	s := playingState(t, 4)
	voters := nonImpostors(s)

	// Two of three non-impostors vote for the impostor; the third leaves.
	_, s, _ = Apply(s, Command{Type: CmdVote, ActorID: voters[0], TargetID: s.ImpostorID}, testSource(), testRNG())
	_, s, _ = Apply(s, Command{Type: CmdVote, ActorID: voters[1], TargetID: s.ImpostorID}, testSource(), testRNG())

	s, events, err := RemovePlayer(s, voters[2])
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Phase != PhaseEnd {
		t.Fatalf("want END once remaining votes are complete, got %v", s.Phase)
	}
	found := false
	for _, e := range events {
		if e.Type == EvtRoundResolved && e.ImpostorCaught {
			found = true
		}
	}
	if !found {
		t.Fatalf("want caught resolution, got %+v", events)
	}
}

func TestChoosingCategoryFallsBackToWaiting(t *testing.T) {
	s := stateWithPlayers(3)
	_, s, _ = Apply(s, Command{Type: CmdSetChoosingCategory, ActorID: "ana"}, testSource(), testRNG())

	s, _, err := RemovePlayer(s, "caro")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Phase != PhaseWaiting {
		t.Fatalf("want WAITING with roster under three, got %v", s.Phase)
	}
}
