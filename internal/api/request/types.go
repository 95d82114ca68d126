package request

import "github.com/mcoot/wordchain-go/internal/model"

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LobbyConfigRequest sets the starting clock and word rule; omitted fields keep their value
type LobbyConfigRequest struct {
	StartingClockSeconds *int            `json:"starting_clock_seconds,omitempty"`
	Rule                 *model.WordRule `json:"rule,omitempty"`
}

// SetRoleRequest is the request body for setting a member's role
type SetRoleRequest struct {
	Role string `json:"role"`
}

// TransferHostRequest is the request body for transferring host
type TransferHostRequest struct {
	NewHostID string `json:"new_host_id"`
}

// AddBotRequest is the request body for adding a bot; strategy defaults to random
type AddBotRequest struct {
	Strategy string `json:"strategy"`
}

// SubmitMoveRequest is the request body for playing a word
type SubmitMoveRequest struct {
	Word string `json:"word"`
}

// ClockReportRequest is a client's report of the mover's remaining time
type ClockReportRequest struct {
	PlayerTimeField string `json:"player_time_field"`
	NewValueMs      *int64 `json:"new_value_ms"`
}

// EndSessionRequest notifies the server that a client saw the session end
type EndSessionRequest struct {
	FinalStatus string `json:"final_status"`
	Reason      string `json:"reason,omitempty"`
}
