package redis

import (
	"fmt"

	"github.com/mcoot/wordchain-go/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "wchain"

// Key generation functions for each entity type

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// authTokenKey returns the Redis key for a bearer token
func authTokenKey(token string) string {
	return fmt.Sprintf("%s:auth_token:%s", keyPrefix, token)
}

// lobbyKey returns the Redis key for a Lobby
func lobbyKey(code model.LobbyCode) string {
	return fmt.Sprintf("%s:lobby:%s", keyPrefix, code)
}

// sessionKey returns the Redis key for the Session of a lobby
func sessionKey(code model.LobbyCode) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, code)
}

// movesKey returns the Redis key for the LIST holding a session's move log
func movesKey(code model.LobbyCode) string {
	return fmt.Sprintf("%s:session:%s:moves", keyPrefix, code)
}

// wordsKey returns the Redis key for the SET of words played in a session
func wordsKey(code model.LobbyCode) string {
	return fmt.Sprintf("%s:session:%s:words", keyPrefix, code)
}

// activeSessionsKey returns the Redis key for the SET of unfinished sessions
func activeSessionsKey() string {
	return fmt.Sprintf("%s:idx:active_sessions", keyPrefix)
}

// leaderboardKey returns the Redis key for the rating ZSET
func leaderboardKey() string {
	return fmt.Sprintf("%s:leaderboard", keyPrefix)
}

// dictionaryKey returns the Redis key for the dictionary HASH (word -> entry)
func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}
