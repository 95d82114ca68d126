package model

import "time"

// LobbyCode is a human-readable identifier for joining lobbies
type LobbyCode string

// LobbyState represents the current state of a lobby
type LobbyState string

const (
	LobbyStateWaiting  LobbyState = "waiting"  // Seats not yet filled or session not initialized
	LobbyStateInGame   LobbyState = "in_game"  // Session active or paused
	LobbyStateFinished LobbyState = "finished" // Session finished
)

// LobbyMemberRole distinguishes seated players from spectators
type LobbyMemberRole string

const (
	RolePlayer    LobbyMemberRole = "player"
	RoleSpectator LobbyMemberRole = "spectator"
)

// SeatCount is the number of players in a word-chain session
const SeatCount = 2

// DefaultStartingClock is each player's clock at session start
const DefaultStartingClock = 180 * time.Second

// LobbyMember represents a player's membership in a lobby
type LobbyMember struct {
	Player   Player          `json:"player"`
	Role     LobbyMemberRole `json:"role"`
	IsHost   bool            `json:"is_host"`
	JoinedAt time.Time       `json:"joined_at"`
}

// LobbyConfig holds configurable settings for the session in this lobby
type LobbyConfig struct {
	StartingClock time.Duration `json:"starting_clock"`
	Rule          WordRule      `json:"rule"`
}

// DefaultLobbyConfig returns the default lobby configuration
func DefaultLobbyConfig() LobbyConfig {
	return LobbyConfig{
		StartingClock: DefaultStartingClock,
		Rule:          WordRule{Kind: RuleAny},
	}
}

// Lobby seats the two players of a session plus any spectators
type Lobby struct {
	Code      LobbyCode     `json:"code"`
	State     LobbyState    `json:"state"`
	Members   []LobbyMember `json:"members"` // Seat order: first two players are player 1 and 2
	Config    LobbyConfig   `json:"config"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// GetHost returns the current host member, or nil if none
func (l *Lobby) GetHost() *LobbyMember {
	for i := range l.Members {
		if l.Members[i].IsHost {
			return &l.Members[i]
		}
	}
	return nil
}

// GetMember returns the member with the given player ID, or nil if not found
func (l *Lobby) GetMember(playerID PlayerID) *LobbyMember {
	for i := range l.Members {
		if l.Members[i].Player.ID == playerID {
			return &l.Members[i]
		}
	}
	return nil
}

// GetPlayers returns all members with the player role, in seat order
func (l *Lobby) GetPlayers() []LobbyMember {
	var players []LobbyMember
	for _, m := range l.Members {
		if m.Role == RolePlayer {
			players = append(players, m)
		}
	}
	return players
}

// GetSpectators returns all members with the spectator role
func (l *Lobby) GetSpectators() []LobbyMember {
	var spectators []LobbyMember
	for _, m := range l.Members {
		if m.Role == RoleSpectator {
			spectators = append(spectators, m)
		}
	}
	return spectators
}

// Seats returns the two seated player IDs, ok is false until both seats are filled
func (l *Lobby) Seats() (seats [SeatCount]PlayerID, ok bool) {
	players := l.GetPlayers()
	if len(players) < SeatCount {
		return seats, false
	}
	for i := 0; i < SeatCount; i++ {
		seats[i] = players[i].Player.ID
	}
	return seats, true
}
