package match

import (
	"strings"
	"time"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
)

type FeedKind string

const (
	FeedMatchDetails FeedKind = "match_details"
	FeedCommentary   FeedKind = "commentary"
)

const (
	DefaultSeriesName   = "Unknown Series"
	DefaultMatchNumber  = "N/A"
	DefaultLogoURL      = "https://placehold.co/50x50"
	DefaultGround       = "Unknown Stadium"
	DefaultCity         = "Unknown City"
	DefaultCountry      = "Unknown Country"
	DefaultOvers        = "0.0"
	DefaultRate         = "0.00"
	DefaultMatchStatus  = "Match not started"
	DefaultPlayerName   = "Unknown"
	DefaultWinnerTeamID = "N/A"
	DefaultInfo         = "N/A"
	DefaultCommentText  = "No commentary available"
	DefaultEventType    = "ball"
	MaxWickets          = 10
	MaxCommentary       = 10
)

// RawPayload is the decoded upstream document. Nothing about its shape is guaranteed.
type RawPayload map[string]any

// Match is the normalized, render-ready view of one match.
type Match struct {
	MatchID        string         `json:"matchId" firestore:"matchId"`
	Status         Status         `json:"status" firestore:"status"`
	Feed           FeedKind       `json:"feed" firestore:"feed"`
	SeriesName     string         `json:"seriesName" firestore:"seriesName"`
	MatchNumber    string         `json:"matchNumber" firestore:"matchNumber"`
	StartTime      *string        `json:"startTime" firestore:"startTime"`
	Teams          [2]Team        `json:"teams" firestore:"teams"`
	Venue          Venue          `json:"venue" firestore:"venue"`
	Result         *Result        `json:"result" firestore:"result"`
	Points         Points         `json:"points" firestore:"points"`
	BattingStats   []BattingStat  `json:"battingStats" firestore:"battingStats"`
	BowlingStats   []BowlingStat  `json:"bowlingStats" firestore:"bowlingStats"`
	Scoreboard     Scoreboard     `json:"scoreboard" firestore:"scoreboard"`
	AdditionalInfo AdditionalInfo `json:"additionalInfo" firestore:"additionalInfo"`
	Commentary     []Commentary   `json:"commentary,omitempty" firestore:"commentary,omitempty"`
	FetchedAt      time.Time      `json:"fetchedAt" firestore:"fetchedAt"`
}

type Team struct {
	TeamID    string `json:"teamId" firestore:"teamId"`
	TeamName  string `json:"teamName" firestore:"teamName"`
	ShortName string `json:"shortName" firestore:"shortName"`
	Logo      string `json:"logo" firestore:"logo"`
	Score     int    `json:"score" firestore:"score"`
	Wickets   int    `json:"wickets" firestore:"wickets"`
	Overs     string `json:"overs" firestore:"overs"`
	RunRate   string `json:"runRate" firestore:"runRate"`
}

type Venue struct {
	Ground  string `json:"ground" firestore:"ground"`
	City    string `json:"city" firestore:"city"`
	Country string `json:"country" firestore:"country"`
}

type Result struct {
	WinningTeamID string `json:"winningTeamId" firestore:"winningTeamId"`
	ResultText    string `json:"resultText" firestore:"resultText"`
}

type Points struct {
	Team1Points int `json:"team1Points" firestore:"team1Points"`
	Team2Points int `json:"team2Points" firestore:"team2Points"`
}

type BattingStat struct {
	Name       string `json:"name" firestore:"name"`
	Runs       int    `json:"runs" firestore:"runs"`
	Balls      int    `json:"balls" firestore:"balls"`
	Fours      int    `json:"fours" firestore:"fours"`
	Sixes      int    `json:"sixes" firestore:"sixes"`
	StrikeRate string `json:"strikeRate" firestore:"strikeRate"`
	IsBatting  bool   `json:"isBatting" firestore:"isBatting"`
}

type BowlingStat struct {
	Name      string `json:"name" firestore:"name"`
	Overs     string `json:"overs" firestore:"overs"`
	Maidens   int    `json:"maidens" firestore:"maidens"`
	Runs      int    `json:"runs" firestore:"runs"`
	Wickets   int    `json:"wickets" firestore:"wickets"`
	Economy   string `json:"economy" firestore:"economy"`
	IsBowling bool   `json:"isBowling" firestore:"isBowling"`
}

type Scoreboard struct {
	CurrentRunRate  string `json:"currentRunRate" firestore:"currentRunRate"`
	RequiredRunRate string `json:"requiredRunRate" firestore:"requiredRunRate"`
	LastWicket      string `json:"lastWicket" firestore:"lastWicket"`
	Partnership     string `json:"partnership" firestore:"partnership"`
	LastOver        string `json:"lastOver" firestore:"lastOver"`
	MatchStatus     string `json:"matchStatus" firestore:"matchStatus"`
}

type AdditionalInfo struct {
	MatchType    string `json:"matchType" firestore:"matchType"`
	TossWinner   string `json:"tossWinner" firestore:"tossWinner"`
	TossDecision string `json:"tossDecision" firestore:"tossDecision"`
	Venue        string `json:"venue" firestore:"venue"`
	StartTime    string `json:"startTime" firestore:"startTime"`
}

type Commentary struct {
	Over      string `json:"over" firestore:"over"`
	Ball      string `json:"ball" firestore:"ball"`
	Text      string `json:"text" firestore:"text"`
	Timestamp string `json:"timestamp" firestore:"timestamp"`
	Runs      int    `json:"runs" firestore:"runs"`
	Wicket    bool   `json:"wicket" firestore:"wicket"`
	EventType string `json:"eventType" firestore:"eventType"`
}

func (m Match) IsLive() bool {
	return m.Status == StatusLive
}

func (m Match) IsCompleted() bool {
	return m.Status == StatusCompleted
}

// HasWinner reports whether the upstream declared a decisive winner id.
func (m Match) HasWinner() bool {
	if m.Result == nil {
		return false
	}
	id := strings.TrimSpace(m.Result.WinningTeamID)
	return id != "" && id != DefaultWinnerTeamID
}

// NormalizeID trims an incoming match id. Callers still reject empty results.
func NormalizeID(raw string) string {
	return strings.TrimSpace(raw)
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusUpcoming:
		return StatusUpcoming, true
	case StatusLive:
		return StatusLive, true
	case StatusCompleted:
		return StatusCompleted, true
	default:
		return "", false
	}
}
