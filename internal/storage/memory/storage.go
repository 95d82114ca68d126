package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID
	authTokens        map[string]model.AuthToken
	lobbies           map[model.LobbyCode]*model.Lobby
	sessions          map[model.LobbyCode]model.Session
	moves             map[model.LobbyCode][]model.Move
	dictionary        []model.DictionaryEntry
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		authTokens:        make(map[string]model.AuthToken),
		lobbies:           make(map[model.LobbyCode]*model.Lobby),
		sessions:          make(map[model.LobbyCode]model.Session),
		moves:             make(map[model.LobbyCode][]model.Move),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registeredPlayers[rp.PlayerID] = rp
	s.usernameIndex[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playerID, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rp, nil
}

// Auth token operations

func (s *Storage) SaveAuthToken(ctx context.Context, token *model.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authTokens[token.Token] = *token
	return nil
}

func (s *Storage) GetAuthToken(ctx context.Context, token string) (*model.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.authTokens[token]
	if !ok {
		return nil, model.ErrAuthTokenNotFound
	}
	return &t, nil
}

func (s *Storage) DeleteAuthToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authTokens, token)
	return nil
}

// Lobby operations

func (s *Storage) SaveLobby(ctx context.Context, lobby *model.Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[lobby.Code] = lobby
	return nil
}

func (s *Storage) GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lobby, ok := s.lobbies[code]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return lobby, nil
}

func (s *Storage) DeleteLobby(ctx context.Context, code model.LobbyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, code)
	return nil
}

func (s *Storage) LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lobbies[code]
	return ok, nil
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.LobbyCode]; ok {
		return false, nil
	}
	session.Version = 1
	s.sessions[session.LobbyCode] = *session
	s.moves[session.LobbyCode] = nil
	return true, nil
}

func (s *Storage) GetSession(ctx context.Context, code model.LobbyCode) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return &session, nil
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.Session, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersion(session.LobbyCode, expectedVersion); err != nil {
		return err
	}
	session.Version = expectedVersion + 1
	s.sessions[session.LobbyCode] = *session
	return nil
}

func (s *Storage) CommitMove(ctx context.Context, session *model.Session, move *model.Move, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersion(session.LobbyCode, expectedVersion); err != nil {
		return err
	}
	log := s.moves[session.LobbyCode]
	if model.ContainsWord(log, move.Word) {
		return model.ErrDuplicateWord
	}
	session.Version = expectedVersion + 1
	s.sessions[session.LobbyCode] = *session
	s.moves[session.LobbyCode] = append(log, *move)
	return nil
}

func (s *Storage) GetMoves(ctx context.Context, code model.LobbyCode) ([]model.Move, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[code]; !ok {
		return nil, model.ErrSessionNotFound
	}
	log := s.moves[code]
	result := make([]model.Move, len(log))
	copy(result, log)
	return result, nil
}

func (s *Storage) ListActiveSessions(ctx context.Context) ([]model.LobbyCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var codes []model.LobbyCode
	for code, session := range s.sessions {
		if !session.IsFinished() {
			codes = append(codes, code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes, nil
}

func (s *Storage) DeleteSession(ctx context.Context, code model.LobbyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
	delete(s.moves, code)
	return nil
}

// checkVersion must be called with the write lock held
func (s *Storage) checkVersion(code model.LobbyCode, expectedVersion int64) error {
	stored, ok := s.sessions[code]
	if !ok {
		return model.ErrSessionNotFound
	}
	if stored.Version != expectedVersion {
		return model.ErrSessionConflict
	}
	return nil
}

// Rating operations

func (s *Storage) ApplyRating(ctx context.Context, session *model.Session, expectedVersion int64, update storage.RatingUpdate) (*model.RatingChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.LobbyCode]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if stored.Version != expectedVersion || stored.EloUpdated {
		return nil, model.ErrRatingConflict
	}
	winner, ok := s.players[update.Winner]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	loser, ok := s.players[update.Loser]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}

	winnerCopy, loserCopy := *winner, *loser
	winnerCopy.EloRating += update.Delta
	winnerCopy.GamesPlayed++
	loserCopy.EloRating -= update.Delta
	loserCopy.GamesPlayed++
	s.players[update.Winner] = &winnerCopy
	s.players[update.Loser] = &loserCopy

	session.EloUpdated = true
	session.Version = expectedVersion + 1
	s.sessions[session.LobbyCode] = *session

	return &model.RatingChange{
		LobbyCode:    session.LobbyCode,
		Winner:       update.Winner,
		Loser:        update.Loser,
		Delta:        update.Delta,
		WinnerRating: winnerCopy.EloRating,
		LoserRating:  loserCopy.EloRating,
	}, nil
}

func (s *Storage) TopRatings(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ranked []*model.Player
	for _, p := range s.players {
		if p.GamesPlayed > 0 {
			ranked = append(ranked, p)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].EloRating != ranked[j].EloRating {
			return ranked[i].EloRating > ranked[j].EloRating
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	entries := make([]model.LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = model.LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			EloRating:   p.EloRating,
			GamesPlayed: p.GamesPlayed,
		}
	}
	return entries, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryEntries(ctx context.Context) ([]model.DictionaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionary == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	result := make([]model.DictionaryEntry, len(s.dictionary))
	copy(result, s.dictionary)
	return result, nil
}

func (s *Storage) SaveDictionaryEntries(ctx context.Context, entries []model.DictionaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionary = make([]model.DictionaryEntry, len(entries))
	copy(s.dictionary, entries)
	return nil
}
