package game

import "errors"

var ErrNotAuthorized = errors.New("only the host can do that")
var ErrInsufficientPlayers = errors.New("not enough players")
var ErrWrongPhase = errors.New("action not allowed in current phase")
var ErrInvalidVote = errors.New("invalid vote")
var ErrNoCategoriesAvailable = errors.New("all categories are banned")
var ErrUnknownRegion = errors.New("unknown region")
var ErrPlayerExists = errors.New("player already in room")
var ErrPlayerNotFound = errors.New("player not found")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseWaiting          Phase = "WAITING"
	PhaseChoosingCategory Phase = "CHOOSING_CATEGORY"
	PhasePlaying          Phase = "PLAYING"
	PhaseEnd              Phase = "END"
	PhaseSkipped          Phase = "SKIPPED"
)

// MinPlayers is the smallest roster that can play a round: one impostor
// and at least two others.
const MinPlayers = 3

type Player struct {
	ID     string
	Name   string
	Avatar string
	IsHost bool
	Score  int
}

// State is the authoritative per-room game state. It is treated as a value:
// Apply and the roster operations return a fresh copy and never mutate the
// input, so the room loop can hand snapshots out without locking.
type State struct {
	Round      int
	Phase      Phase
	Region     string
	Banned     []string
	Category   string
	Word       string
	ImpostorID string
	Votes      map[string]string // voter id -> target id
	Players    []Player          // join order; Players[0] after host transfer
}

// WordSource supplies the category/word content consumed when a round
// starts. The dataset itself is external to the orchestrator.
type WordSource interface {
	Regions() []string
	Categories(region string) []string
	Words(region, category string) []string
}

func NewState() State {
	return State{
		Round:   1,
		Phase:   PhaseWaiting,
		Votes:   map[string]string{},
		Players: []Player{},
	}
}

func (s State) clone() State {
	ns := s
	ns.Players = make([]Player, len(s.Players))
	copy(ns.Players, s.Players)
	ns.Banned = make([]string, len(s.Banned))
	copy(ns.Banned, s.Banned)
	ns.Votes = make(map[string]string, len(s.Votes))
	for k, v := range s.Votes {
		ns.Votes[k] = v
	}
	return ns
}

func (s State) playerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s State) HasPlayer(id string) bool {
	return s.playerIndex(id) >= 0
}

// HostID returns the id of the current host, or "" for an empty roster.
func (s State) HostID() string {
	for _, p := range s.Players {
		if p.IsHost {
			return p.ID
		}
	}
	return ""
}

func (s State) isHost(id string) bool {
	i := s.playerIndex(id)
	return i >= 0 && s.Players[i].IsHost
}

// votesComplete reports whether every non-impostor currently in the roster
// has cast a vote.
func (s State) votesComplete() bool {
	for _, p := range s.Players {
		if p.ID == s.ImpostorID {
			continue
		}
		if _, ok := s.Votes[p.ID]; !ok {
			return false
		}
	}
	return true
}
