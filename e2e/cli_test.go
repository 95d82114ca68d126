package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/wordchain-go/internal/api"
	"github.com/mcoot/wordchain-go/internal/factory"
	"github.com/mcoot/wordchain-go/internal/model"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "wchain-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/wchain")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
	}
}

// withTokenFile returns a runner sharing the binary but saving its own token
func (r *cliRunner) withTokenFile(path string) *cliRunner {
	return &cliRunner{binaryPath: r.binaryPath, serverURL: r.serverURL, tokenFile: path}
}

func (r *cliRunner) args(extra ...string) []string {
	return append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, extra...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	cmd := exec.Command(r.binaryPath, r.args(args...)...)
	cmd.Env = cliEnv()
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = cliEnv()
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// cliEnv keeps a developer's own WCHAIN_* settings out of the tests
func cliEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "WCHAIN_") {
			env = append(env, kv)
		}
	}
	return env
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.App
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	projectRoot := findProjectRoot(t)
	app, err := factory.New(context.Background(), factory.Config{
		DictionaryPath: filepath.Join(projectRoot, "data/words.tsv"),
		Logger:         logger,
	})
	require.NoError(t, err)
	require.True(t, app.DictionaryService.IsLoaded())

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		LobbyController: app.LobbyController,
		GameController:  app.GameController,
		RatingService:   app.RatingService,
		BotService:      app.BotService,
		HubManager:      app.HubManager,
	})

	ctx, cancel := context.WithCancel(context.Background())
	server := api.NewServer(router, api.DefaultServerConfig(), logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(ctx, listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:  app,
		addr: serverURL,
		shutdown: func() {
			cancel()
			<-done
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type playerResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	EloRating   int    `json:"elo_rating"`
	GamesPlayed int    `json:"games_played"`
}

type authResponse struct {
	Player       playerResponse `json:"player"`
	SessionToken string         `json:"session_token"`
}

type lobbyConfigResponse struct {
	StartingClockSeconds int            `json:"starting_clock_seconds"`
	Rule                 model.WordRule `json:"rule"`
}

type lobbyResponse struct {
	Code    string              `json:"code"`
	State   string              `json:"state"`
	Config  lobbyConfigResponse `json:"config"`
	Members []struct {
		PlayerID string `json:"player_id"`
		Role     string `json:"role"`
		IsHost   bool   `json:"is_host"`
		IsBot    bool   `json:"is_bot"`
	} `json:"members"`
}

type sessionResponse struct {
	Status        string    `json:"status"`
	Players       [2]string `json:"players"`
	CurrentTurn   int       `json:"current_turn"`
	ActivePlayer  string    `json:"active_player"`
	Player1TimeMs int64     `json:"player1_time_ms"`
	Player2TimeMs int64     `json:"player2_time_ms"`
	Winner        string    `json:"winner"`
	EndReason     string    `json:"end_reason"`
	EloUpdated    bool      `json:"elo_updated"`
	Version       int64     `json:"version"`
}

type moveResponse struct {
	Move struct {
		Word    string `json:"word"`
		IsValid bool   `json:"is_valid"`
		Score   *int   `json:"score"`
	} `json:"move"`
	Session sessionResponse `json:"session"`
}

type snapshotResponse struct {
	Session sessionResponse `json:"session"`
	Moves   []struct {
		Seq  int    `json:"seq"`
		Word string `json:"word"`
	} `json:"moves"`
	Scores [2]int `json:"scores"`
}

type endResponse struct {
	Applied bool `json:"applied"`
}

type leaderboardResponse struct {
	Entries []struct {
		Rank      int    `json:"rank"`
		PlayerID  string `json:"player_id"`
		EloRating int    `json:"elo_rating"`
	} `json:"entries"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func decodeOutput[T any](t *testing.T, output string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(output), &v), "output: %s", output)
	return v
}

// guest creates a guest through the CLI and returns its auth response
func guest(t *testing.T, cli *cliRunner, name string) authResponse {
	t.Helper()
	output, err := cli.run("player", "guest", "--name", name)
	require.NoError(t, err, "output: %s", output)
	return decodeOutput[authResponse](t, output)
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "ok", decodeOutput[healthResponse](t, output).Status)
}

func TestCLI_PlayerCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	auth := guest(t, cli, "Alice")
	assert.Equal(t, "Alice", auth.Player.DisplayName)
	assert.True(t, auth.Player.IsGuest)
	assert.Equal(t, model.DefaultEloRating, auth.Player.EloRating)
	assert.NotEmpty(t, auth.SessionToken)

	// Token is saved in the token file
	output, err := cli.run("player", "me")
	require.NoError(t, err, "output: %s", output)
	me := decodeOutput[playerResponse](t, output)
	assert.Equal(t, auth.Player.ID, me.ID)

	output, err = cli.run("player", "get", auth.Player.ID)
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "Alice", decodeOutput[playerResponse](t, output).DisplayName)

	output, err = cli.run("player", "history", auth.Player.ID)
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, `"games": []`)

	output, err = cli.run("player", "logout")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "Logged out", decodeOutput[messageResponse](t, output).Message)

	// The token file is gone and the old token is revoked
	_, err = os.Stat(cli.tokenFile)
	assert.True(t, os.IsNotExist(err))
	output, err = cli.runWithToken(auth.SessionToken, "player", "me")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "unauthorized")
}

func TestCLI_RegisterAndLogin(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("player", "register", "--name", "Carol", "--user", "carol", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)
	registered := decodeOutput[authResponse](t, output)
	assert.False(t, registered.Player.IsGuest)

	output, err = cli.run("player", "login", "--user", "carol", "--pass", "wrong-password")
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_CREDENTIALS")

	output, err = cli.run("player", "login", "--user", "carol", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, registered.Player.ID, decodeOutput[authResponse](t, output).Player.ID)
}

func TestCLI_LobbyCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	alice := guest(t, cli, "Alice")
	bobCLI := cli.withTokenFile(filepath.Join(t.TempDir(), "bob"))
	bob := guest(t, bobCLI, "Bob")

	output, err := cli.run("lobby", "create", "--clock", "90s", "--rule", "starts_with:G")
	require.NoError(t, err, "output: %s", output)
	lobby := decodeOutput[lobbyResponse](t, output)
	assert.Equal(t, "waiting", lobby.State)
	assert.Equal(t, 90, lobby.Config.StartingClockSeconds)
	assert.Equal(t, model.WordRule{Kind: model.RuleStartsWith, Text: "g"}, lobby.Config.Rule)
	require.Len(t, lobby.Members, 1)
	assert.True(t, lobby.Members[0].IsHost)

	output, err = bobCLI.run("lobby", "join", lobby.Code)
	require.NoError(t, err, "output: %s", output)
	assert.Len(t, decodeOutput[lobbyResponse](t, output).Members, 2)

	output, err = cli.run("lobby", "config", lobby.Code, "--clock", "2m", "--rule", "any")
	require.NoError(t, err, "output: %s", output)
	config := decodeOutput[lobbyConfigResponse](t, output)
	assert.Equal(t, 120, config.StartingClockSeconds)
	assert.Equal(t, model.RuleAny, config.Rule.Kind)

	// Only the host may reconfigure
	output, err = bobCLI.run("lobby", "config", lobby.Code, "--clock", "1m")
	assert.Error(t, err)
	assert.Contains(t, output, "NOT_HOST")

	// Rules are checked before anything is sent
	output, err = cli.run("lobby", "config", lobby.Code, "--rule", "min_length:lots")
	assert.Error(t, err)
	assert.Contains(t, output, "invalid rule")

	output, err = cli.run("lobby", "role", lobby.Code, bob.Player.ID, "spectator")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("lobby", "transfer-host", lobby.Code, bob.Player.ID)
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("lobby", "get", lobby.Code)
	require.NoError(t, err, "output: %s", output)
	got := decodeOutput[lobbyResponse](t, output)
	for _, m := range got.Members {
		if m.PlayerID == bob.Player.ID {
			assert.Equal(t, "spectator", m.Role)
			assert.True(t, m.IsHost)
		}
		if m.PlayerID == alice.Player.ID {
			assert.False(t, m.IsHost)
		}
	}

	output, err = cli.run("lobby", "leave", lobby.Code)
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, decodeOutput[messageResponse](t, output).Message, "Left lobby")
}

func TestCLI_FullSessionFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	aliceCLI := newCLIRunner(t, ts.addr)
	bobCLI := aliceCLI.withTokenFile(filepath.Join(t.TempDir(), "bob"))
	alice := guest(t, aliceCLI, "Alice")
	bob := guest(t, bobCLI, "Bob")

	output, err := aliceCLI.run("lobby", "create")
	require.NoError(t, err, "output: %s", output)
	code := decodeOutput[lobbyResponse](t, output).Code

	_, err = bobCLI.run("lobby", "join", code)
	require.NoError(t, err)

	output, err = aliceCLI.run("session", "init", code)
	require.NoError(t, err, "output: %s", output)
	session := decodeOutput[sessionResponse](t, output)
	assert.Equal(t, "active", session.Status)
	assert.Equal(t, [2]string{alice.Player.ID, bob.Player.ID}, session.Players)
	assert.Equal(t, alice.Player.ID, session.ActivePlayer)
	assert.Equal(t, model.DefaultStartingClock.Milliseconds(), session.Player2TimeMs)

	// Bob has to wait for his turn
	output, err = bobCLI.run("session", "move", code, "grass")
	assert.Error(t, err)
	assert.Contains(t, output, "NOT_YOUR_TURN")

	output, err = aliceCLI.run("session", "move", code, "glass")
	require.NoError(t, err, "output: %s", output)
	move := decodeOutput[moveResponse](t, output)
	assert.True(t, move.Move.IsValid)
	require.NotNil(t, move.Move.Score)
	assert.Equal(t, 34, *move.Move.Score)
	assert.Equal(t, bob.Player.ID, move.Session.ActivePlayer)

	output, err = bobCLI.run("session", "move", code, "grass")
	require.NoError(t, err, "output: %s", output)
	move = decodeOutput[moveResponse](t, output)
	require.NotNil(t, move.Move.Score)
	assert.Equal(t, 40, *move.Move.Score)

	output, err = aliceCLI.run("session", "move", code, "Glass")
	assert.Error(t, err)
	assert.Contains(t, output, "DUPLICATE_WORD")

	// Alice reports her own clock while it is her turn
	output, err = aliceCLI.run("session", "clock", code, "player1_time", "2m30s")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, int64(150000), decodeOutput[sessionResponse](t, output).Player1TimeMs)

	output, err = aliceCLI.run("session", "pause", code)
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "paused", decodeOutput[sessionResponse](t, output).Status)

	output, err = bobCLI.run("session", "resume", code)
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "active", decodeOutput[sessionResponse](t, output).Status)

	output, err = aliceCLI.run("session", "get", code)
	require.NoError(t, err, "output: %s", output)
	snap := decodeOutput[snapshotResponse](t, output)
	assert.Equal(t, [2]int{34, 40}, snap.Scores)
	require.Len(t, snap.Moves, 2)
	assert.Equal(t, "glass", snap.Moves[0].Word)

	output, err = aliceCLI.run("session", "end", code)
	assert.Error(t, err)
	assert.Contains(t, output, "SESSION_NOT_FINISHED")

	output, err = bobCLI.run("session", "forfeit", code)
	require.NoError(t, err, "output: %s", output)
	ended := decodeOutput[sessionResponse](t, output)
	assert.Equal(t, "finished", ended.Status)
	assert.Equal(t, alice.Player.ID, ended.Winner)
	assert.Equal(t, "forfeit", ended.EndReason)

	// Ratings were applied when the session ended, so reporting it changes nothing
	output, err = aliceCLI.run("session", "end", code, "--reason", "forfeit")
	require.NoError(t, err, "output: %s", output)
	assert.False(t, decodeOutput[endResponse](t, output).Applied)

	output, err = aliceCLI.run("leaderboard")
	require.NoError(t, err, "output: %s", output)
	board := decodeOutput[leaderboardResponse](t, output)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, alice.Player.ID, board.Entries[0].PlayerID)
	assert.Equal(t, 1232, board.Entries[0].EloRating)
	assert.Equal(t, 1168, board.Entries[1].EloRating)
}

func TestCLI_WatchFollowsSessionToTheEnd(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	aliceCLI := newCLIRunner(t, ts.addr)
	bobCLI := aliceCLI.withTokenFile(filepath.Join(t.TempDir(), "bob"))
	guest(t, aliceCLI, "Alice")
	bob := guest(t, bobCLI, "Bob")

	output, err := aliceCLI.run("lobby", "create")
	require.NoError(t, err, "output: %s", output)
	code := decodeOutput[lobbyResponse](t, output).Code
	_, err = bobCLI.run("lobby", "join", code)
	require.NoError(t, err)
	_, err = aliceCLI.run("session", "init", code)
	require.NoError(t, err)
	_, err = aliceCLI.run("session", "move", code, "glass")
	require.NoError(t, err)

	var watchOut bytes.Buffer
	watch := exec.Command(aliceCLI.binaryPath, aliceCLI.args("session", "watch", code, "--refresh", "0")...)
	watch.Env = cliEnv()
	watch.Stdout = &watchOut
	watch.Stderr = &watchOut
	require.NoError(t, watch.Start())
	defer func() { _ = watch.Process.Kill() }()

	hub := ts.app.HubManager.GetOrCreateHub(model.LobbyCode(code))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 10*time.Second, 20*time.Millisecond)

	_, err = bobCLI.run("session", "move", code, "grass")
	require.NoError(t, err)
	_, err = aliceCLI.run("session", "forfeit", code)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- watch.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err, "output: %s", watchOut.String())
	case <-time.After(10 * time.Second):
		t.Fatalf("watch did not exit after the session ended: %s", watchOut.String())
	}

	out := watchOut.String()
	assert.Contains(t, out, "glass")
	assert.Contains(t, out, "grass")
	assert.Contains(t, out, "Session over: "+bob.Player.ID+" wins (forfeit)")
	assert.Contains(t, out, "Ratings: "+bob.Player.ID+" 1232 (+32)")
}

func TestCLI_PlayAgainstBot(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	alice := guest(t, cli, "Alice")

	output, err := cli.run("lobby", "create")
	require.NoError(t, err, "output: %s", output)
	code := decodeOutput[lobbyResponse](t, output).Code

	output, err = cli.run("lobby", "add-bot", code, "--strategy", "psychic")
	assert.Error(t, err)
	assert.Contains(t, output, "UNKNOWN_STRATEGY")

	output, err = cli.run("lobby", "add-bot", code, "--strategy", "greedy")
	require.NoError(t, err, "output: %s", output)
	lobby := decodeOutput[lobbyResponse](t, output)
	require.Len(t, lobby.Members, 2)
	assert.True(t, lobby.Members[1].IsBot)
	assert.Equal(t, "player", lobby.Members[1].Role)
	botID := lobby.Members[1].PlayerID

	_, err = cli.run("session", "init", code)
	require.NoError(t, err)

	output, err = cli.run("session", "move", code, "glass")
	require.NoError(t, err, "output: %s", output)

	// The bot has already answered
	output, err = cli.run("session", "get", code)
	require.NoError(t, err, "output: %s", output)
	snap := decodeOutput[snapshotResponse](t, output)
	require.Len(t, snap.Moves, 2)
	assert.NotEqual(t, "glass", snap.Moves[1].Word)
	assert.Equal(t, alice.Player.ID, snap.Session.ActivePlayer)
	assert.Positive(t, snap.Scores[1])

	output, err = cli.run("lobby", "remove-bot", code, botID)
	assert.Error(t, err)
	assert.Contains(t, output, "GAME_IN_PROGRESS")
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("player", "me")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "unauthorized")

	guest(t, cli, "Alice")

	output, err = cli.run("lobby", "get", "NOPE42")
	assert.Error(t, err)
	assert.Contains(t, output, "LOBBY_NOT_FOUND")

	output, err = cli.run("session", "clock", "NOPE42", "player3_time", "1m")
	assert.Error(t, err)
	assert.Contains(t, output, "clock field must be")
}
