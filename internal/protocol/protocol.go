// Package protocol defines the JSON messages exchanged with clients and the
// per-viewer room snapshot sent after every accepted mutation.
package protocol

import "github.com/impostorapp/impostor-backend/internal/game"

// Client -> Server event names.
const (
	EvtCreateRoom          = "createRoom"
	EvtJoinRoom            = "joinRoom"
	EvtGetRooms            = "getRooms"
	EvtGetRoomInfo         = "getRoomInfo"
	EvtSetChoosingCategory = "setChoosingCategory"
	EvtStartGame           = "startGame"
	EvtHandleVote          = "handleVote"
	EvtNextRound           = "nextRound"
	EvtSkipRound           = "skipRound"
	EvtPlayerDisconnect    = "playerDisconnect"
)

// Server -> Client event names.
const (
	EvtConnected      = "connected"
	EvtRoomCreated    = "roomCreated"
	EvtJoinedRoom     = "joinedRoom"
	EvtRoomList       = "roomList"
	EvtRoomInfo       = "roomInfo"
	EvtWordCategories = "wordCategories"
	EvtRoundResult    = "roundResult"
	EvtError          = "error"
)

type ClientMessage struct {
	Type                string   `json:"type"`
	RoomName            string   `json:"roomName,omitempty"`
	IsPasswordProtected bool     `json:"isPasswordProtected,omitempty"`
	Password            string   `json:"password,omitempty"`
	MaxPlayers          int      `json:"maxPlayers,omitempty"`
	HostName            string   `json:"hostName,omitempty"`
	HostAvatar          string   `json:"hostAvatar,omitempty"`
	RoomCode            string   `json:"roomCode,omitempty"`
	PlayerName          string   `json:"playerName,omitempty"`
	PlayerAvatar        string   `json:"playerAvatar,omitempty"`
	Region              string   `json:"region,omitempty"`
	BannedCategories    []string `json:"bannedCategories,omitempty"`
	VotedPlayerID       string   `json:"votedPlayerId,omitempty"`
}

type ServerMessage struct {
	Type           string         `json:"type"`
	PlayerID       string         `json:"playerId,omitempty"`
	RoomCode       string         `json:"roomCode,omitempty"`
	Version        int            `json:"version,omitempty"`
	Rooms          []RoomSummary  `json:"rooms,omitempty"`
	Room           *RoomInfo      `json:"room,omitempty"`
	Categories     *CategoryLists `json:"categories,omitempty"`
	ImpostorCaught *bool          `json:"impostorCaught,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// RoomSummary is the room-list view: no per-player detail, never the
// password.
type RoomSummary struct {
	Code                string `json:"code"`
	RoomName            string `json:"roomName"`
	IsPasswordProtected bool   `json:"isPasswordProtected"`
	MaxPlayers          int    `json:"maxPlayers"`
	CurrentPlayers      int    `json:"currentPlayers"`
}

type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	IsHost bool   `json:"isHost"`
	Score  int    `json:"score"`
}

type GameStateInfo struct {
	Round      int               `json:"round"`
	State      string            `json:"state"`
	Region     string            `json:"region,omitempty"`
	Category   string            `json:"category,omitempty"`
	Word       *string           `json:"word"`
	ImpostorID *string           `json:"impostorID"`
	Votes      map[string]string `json:"votes"`
}

type RoomInfo struct {
	RoomCode   string        `json:"roomCode"`
	RoomName   string        `json:"roomName"`
	MaxPlayers int           `json:"maxPlayers"`
	Players    []PlayerInfo  `json:"players"`
	GameState  GameStateInfo `json:"gameState"`
}

type CategoryLists struct {
	Argentina     []string `json:"argentina"`
	Internacional []string `json:"internacional"`
}

// BuildRoomInfo reduces the authoritative state to what one viewer may see:
// the word is withheld from the impostor's own view while a round is live,
// and the impostor identity is withheld from everyone until the reveal at
// END or SKIPPED.
func BuildRoomInfo(code, name string, maxPlayers int, s game.State, viewerID string) RoomInfo {
	info := RoomInfo{
		RoomCode:   code,
		RoomName:   name,
		MaxPlayers: maxPlayers,
		Players:    make([]PlayerInfo, 0, len(s.Players)),
		GameState: GameStateInfo{
			Round:  s.Round,
			State:  string(s.Phase),
			Region: s.Region,
			Votes:  s.Votes,
		},
	}
	for _, p := range s.Players {
		info.Players = append(info.Players, PlayerInfo{
			ID:     p.ID,
			Name:   p.Name,
			Avatar: p.Avatar,
			IsHost: p.IsHost,
			Score:  p.Score,
		})
	}

	revealed := s.Phase == game.PhaseEnd || s.Phase == game.PhaseSkipped
	if s.Phase == game.PhasePlaying || revealed {
		info.GameState.Category = s.Category
		if revealed || viewerID != s.ImpostorID {
			word := s.Word
			info.GameState.Word = &word
		}
	}
	if revealed && s.ImpostorID != "" {
		impostor := s.ImpostorID
		info.GameState.ImpostorID = &impostor
	}
	return info
}
