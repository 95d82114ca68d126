package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, playerKey(player.ID), data, s.playerTTL(player)).Err()
}

// playerTTL applies a TTL only for guest players
func (s *Storage) playerTTL(player *model.Player) time.Duration {
	if player.IsGuest {
		return s.cfg.GuestPlayerTTL
	}
	return 0
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return readPlayer(ctx, s.client, id)
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerKey(id)).Err()
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0) // No TTL
	pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	data, err := s.client.Get(ctx, registeredPlayerKey(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rp model.RegisteredPlayer
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	// Look up player ID from username index
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetRegisteredPlayer(ctx, model.PlayerID(playerIDStr))
}

// Auth token operations

func (s *Storage) SaveAuthToken(ctx context.Context, token *model.AuthToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, authTokenKey(token.Token), data, s.cfg.AuthTokenTTL).Err()
}

func (s *Storage) GetAuthToken(ctx context.Context, token string) (*model.AuthToken, error) {
	data, err := s.client.Get(ctx, authTokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAuthTokenNotFound
		}
		return nil, err
	}

	var t model.AuthToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Storage) DeleteAuthToken(ctx context.Context, token string) error {
	return s.client.Del(ctx, authTokenKey(token)).Err()
}

// Lobby operations

func (s *Storage) SaveLobby(ctx context.Context, lobby *model.Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, lobbyKey(lobby.Code), data, s.cfg.LobbyTTL).Err()
}

func (s *Storage) GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error) {
	data, err := s.client.Get(ctx, lobbyKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLobbyNotFound
		}
		return nil, err
	}

	var lobby model.Lobby
	if err := json.Unmarshal(data, &lobby); err != nil {
		return nil, err
	}
	return &lobby, nil
}

func (s *Storage) DeleteLobby(ctx context.Context, code model.LobbyCode) error {
	return s.client.Del(ctx, lobbyKey(code)).Err()
}

func (s *Storage) LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error) {
	exists, err := s.client.Exists(ctx, lobbyKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Session operations

// getter is satisfied by both the client and a WATCH transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readSession(ctx context.Context, g getter, code model.LobbyCode) (*model.Session, error) {
	data, err := g.Get(ctx, sessionKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func readPlayer(ctx context.Context, g getter, id model.PlayerID) (*model.Player, error) {
	data, err := g.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

// watchSession runs fn under WATCH on the session key (plus any extra keys)
// once the stored version matches. Version mismatches and aborted EXECs
// both surface as conflict.
func (s *Storage) watchSession(
	ctx context.Context,
	code model.LobbyCode,
	expectedVersion int64,
	conflict error,
	fn func(tx *redis.Tx, stored *model.Session) error,
	extraKeys ...string,
) error {
	keys := append([]string{sessionKey(code)}, extraKeys...)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := readSession(ctx, tx, code)
		if err != nil {
			return err
		}
		if stored.Version != expectedVersion {
			return conflict
		}
		return fn(tx, stored)
	}, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return conflict
	}
	return err
}

// queueSession adds the session write and its active-index update to a pipeline
func (s *Storage) queueSession(ctx context.Context, pipe redis.Pipeliner, session *model.Session, data []byte) {
	pipe.Set(ctx, sessionKey(session.LobbyCode), data, s.cfg.SessionTTL)
	if session.IsFinished() {
		pipe.SRem(ctx, activeSessionsKey(), string(session.LobbyCode))
	} else {
		pipe.SAdd(ctx, activeSessionsKey(), string(session.LobbyCode))
	}
}

// marshalNext encodes the session as it will be stored at version+1
func marshalNext(session *model.Session, expectedVersion int64) ([]byte, error) {
	next := *session
	next.Version = expectedVersion + 1
	return json.Marshal(&next)
}

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) (bool, error) {
	next := *session
	next.Version = 1
	data, err := json.Marshal(&next)
	if err != nil {
		return false, err
	}

	created, err := s.client.SetNX(ctx, sessionKey(session.LobbyCode), data, s.cfg.SessionTTL).Result()
	if err != nil || !created {
		return false, err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, movesKey(session.LobbyCode), wordsKey(session.LobbyCode))
	pipe.SAdd(ctx, activeSessionsKey(), string(session.LobbyCode))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	session.Version = 1
	return true, nil
}

func (s *Storage) GetSession(ctx context.Context, code model.LobbyCode) (*model.Session, error) {
	return readSession(ctx, s.client, code)
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.Session, expectedVersion int64) error {
	data, err := marshalNext(session, expectedVersion)
	if err != nil {
		return err
	}

	err = s.watchSession(ctx, session.LobbyCode, expectedVersion, model.ErrSessionConflict,
		func(tx *redis.Tx, _ *model.Session) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.queueSession(ctx, pipe, session, data)
				return nil
			})
			return err
		})
	if err != nil {
		return err
	}

	session.Version = expectedVersion + 1
	return nil
}

func (s *Storage) CommitMove(ctx context.Context, session *model.Session, move *model.Move, expectedVersion int64) error {
	data, err := marshalNext(session, expectedVersion)
	if err != nil {
		return err
	}
	moveData, err := json.Marshal(move)
	if err != nil {
		return err
	}
	code := session.LobbyCode
	word := model.NormalizeWord(move.Word)

	err = s.watchSession(ctx, code, expectedVersion, model.ErrSessionConflict,
		func(tx *redis.Tx, _ *model.Session) error {
			played, err := tx.SIsMember(ctx, wordsKey(code), word).Result()
			if err != nil {
				return err
			}
			if played {
				return model.ErrDuplicateWord
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.queueSession(ctx, pipe, session, data)
				pipe.RPush(ctx, movesKey(code), moveData)
				pipe.SAdd(ctx, wordsKey(code), word)
				pipe.Expire(ctx, movesKey(code), s.cfg.SessionTTL) // Keep log TTL in sync
				pipe.Expire(ctx, wordsKey(code), s.cfg.SessionTTL)
				return nil
			})
			return err
		})
	if err != nil {
		return err
	}

	session.Version = expectedVersion + 1
	return nil
}

func (s *Storage) GetMoves(ctx context.Context, code model.LobbyCode) ([]model.Move, error) {
	exists, err := s.client.Exists(ctx, sessionKey(code)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrSessionNotFound
	}

	values, err := s.client.LRange(ctx, movesKey(code), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	moves := make([]model.Move, 0, len(values))
	for _, val := range values {
		var move model.Move
		if err := json.Unmarshal([]byte(val), &move); err != nil {
			return nil, err
		}
		moves = append(moves, move)
	}
	return moves, nil
}

func (s *Storage) ListActiveSessions(ctx context.Context) ([]model.LobbyCode, error) {
	members, err := s.client.SMembers(ctx, activeSessionsKey()).Result()
	if err != nil {
		return nil, err
	}

	if len(members) == 0 {
		return []model.LobbyCode{}, nil
	}

	// Session keys expire on their own, so the set can name sessions that are gone
	pipe := s.client.Pipeline()
	exists := make([]*redis.IntCmd, len(members))
	for i, m := range members {
		exists[i] = pipe.Exists(ctx, sessionKey(model.LobbyCode(m)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	codes := make([]model.LobbyCode, 0, len(members))
	var stale []interface{}
	for i, m := range members {
		if exists[i].Val() == 0 {
			stale = append(stale, m)
			continue
		}
		codes = append(codes, model.LobbyCode(m))
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, activeSessionsKey(), stale...).Err(); err != nil {
			return nil, err
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes, nil
}

func (s *Storage) DeleteSession(ctx context.Context, code model.LobbyCode) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(code), movesKey(code), wordsKey(code))
	pipe.SRem(ctx, activeSessionsKey(), string(code))
	_, err := pipe.Exec(ctx)
	return err
}

// Rating operations

func (s *Storage) ApplyRating(ctx context.Context, session *model.Session, expectedVersion int64, update storage.RatingUpdate) (*model.RatingChange, error) {
	var change *model.RatingChange
	code := session.LobbyCode

	err := s.watchSession(ctx, code, expectedVersion, model.ErrRatingConflict,
		func(tx *redis.Tx, stored *model.Session) error {
			if stored.EloUpdated {
				return model.ErrRatingConflict
			}
			winner, err := readPlayer(ctx, tx, update.Winner)
			if err != nil {
				return err
			}
			loser, err := readPlayer(ctx, tx, update.Loser)
			if err != nil {
				return err
			}

			winner.EloRating += update.Delta
			winner.GamesPlayed++
			loser.EloRating -= update.Delta
			loser.GamesPlayed++

			next := *session
			next.EloUpdated = true
			next.Version = expectedVersion + 1
			sessionData, err := json.Marshal(&next)
			if err != nil {
				return err
			}
			winnerData, err := json.Marshal(winner)
			if err != nil {
				return err
			}
			loserData, err := json.Marshal(loser)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.queueSession(ctx, pipe, &next, sessionData)
				pipe.Set(ctx, playerKey(winner.ID), winnerData, s.playerTTL(winner))
				pipe.Set(ctx, playerKey(loser.ID), loserData, s.playerTTL(loser))
				pipe.ZAdd(ctx, leaderboardKey(),
					redis.Z{Score: float64(winner.EloRating), Member: string(winner.ID)},
					redis.Z{Score: float64(loser.EloRating), Member: string(loser.ID)},
				)
				return nil
			})
			if err != nil {
				return err
			}

			change = &model.RatingChange{
				LobbyCode:    code,
				Winner:       winner.ID,
				Loser:        loser.ID,
				Delta:        update.Delta,
				WinnerRating: winner.EloRating,
				LoserRating:  loser.EloRating,
			}
			return nil
		},
		playerKey(update.Winner), playerKey(update.Loser),
	)
	if err != nil {
		return nil, err
	}

	session.EloUpdated = true
	session.Version = expectedVersion + 1
	return change, nil
}

func (s *Storage) TopRatings(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ranked, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return []model.LeaderboardEntry{}, nil
	}

	keys := make([]string, len(ranked))
	for i, z := range ranked {
		keys[i] = playerKey(model.PlayerID(z.Member.(string)))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(ranked))
	for i, z := range ranked {
		entry := model.LeaderboardEntry{
			Rank:      len(entries) + 1,
			PlayerID:  model.PlayerID(z.Member.(string)),
			EloRating: int(z.Score),
		}
		if values[i] != nil {
			var player model.Player
			if err := json.Unmarshal([]byte(values[i].(string)), &player); err == nil {
				entry.DisplayName = player.DisplayName
				entry.GamesPlayed = player.GamesPlayed
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryEntries(ctx context.Context) ([]model.DictionaryEntry, error) {
	key := dictionaryKey()

	// Check if dictionary exists
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	values, err := s.client.HVals(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.DictionaryEntry, 0, len(values))
	for _, val := range values {
		var entry model.DictionaryEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			continue // Skip invalid data
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Storage) SaveDictionaryEntries(ctx context.Context, entries []model.DictionaryEntry) error {
	key := dictionaryKey()

	fields := make([]interface{}, 0, len(entries)*2)
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		fields = append(fields, e.Word, string(data))
	}

	// Delete existing dictionary and add new entries atomically
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields...)
	}
	_, err := pipe.Exec(ctx)
	return err
}
