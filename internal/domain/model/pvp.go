package model

import "time"

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

type Match struct {
	ID               string      `json:"id"`
	ChallengeID      string      `json:"challenge_id"`
	Player1ID        string      `json:"player1_id"`
	Player2ID        *string     `json:"player2_id,omitempty"`
	Status           MatchStatus `json:"status"`
	Player1Code      *string     `json:"player1_code,omitempty"`
	Player2Code      *string     `json:"player2_code,omitempty"`
	Player1Score     *int        `json:"player1_score,omitempty"`
	Player2Score     *int        `json:"player2_score,omitempty"`
	Player1Submitted bool        `json:"player1_submitted"`
	Player2Submitted bool        `json:"player2_submitted"`
	WinnerID         *string     `json:"winner_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	ExpiresAt        time.Time   `json:"expires_at"`
}

// IsParticipant reports whether userID occupies either slot.
func (m *Match) IsParticipant(userID string) bool {
	return m.Player1ID == userID || (m.Player2ID != nil && *m.Player2ID == userID)
}

// MatchView is a match as seen by one participant.
type MatchView struct {
	Match
	ChallengeTitle string `json:"challenge_title,omitempty"`
	YouArePlayer   int    `json:"you_are_player"`
}

// ViewFor hides the opponent's code and score until the match completes.
func (m Match) ViewFor(userID string) MatchView {
	view := MatchView{Match: m, YouArePlayer: 1}
	if m.Player1ID != userID {
		view.YouArePlayer = 2
	}
	if m.Status == MatchCompleted {
		return view
	}
	if view.YouArePlayer == 1 {
		view.Player2Code, view.Player2Score = nil, nil
	} else {
		view.Player1Code, view.Player1Score = nil, nil
	}
	return view
}
