package usecase

import "github.com/riskibarqy/cricket-scoreboard/internal/domain/match"

// PointsBasis records which rule produced a points split.
type PointsBasis string

const (
	PointsNotFinal      PointsBasis = "not_final"
	PointsWin           PointsBasis = "win"
	PointsNoResult      PointsBasis = "no_result"
	PointsUnknownWinner PointsBasis = "unknown_winner"
)

// CalculatePoints awards 2/0 for a win and 1/1 for a completed match without a
// recognised winner. Matches that are not completed score nothing.
func CalculatePoints(m match.Match) (match.Points, PointsBasis) {
	if m.Status != match.StatusCompleted {
		return match.Points{}, PointsNotFinal
	}
	if !m.HasWinner() {
		return match.Points{Team1Points: 1, Team2Points: 1}, PointsNoResult
	}

	switch m.Result.WinningTeamID {
	case m.Teams[0].TeamID:
		return match.Points{Team1Points: 2}, PointsWin
	case m.Teams[1].TeamID:
		return match.Points{Team2Points: 2}, PointsWin
	default:
		return match.Points{Team1Points: 1, Team2Points: 1}, PointsUnknownWinner
	}
}
