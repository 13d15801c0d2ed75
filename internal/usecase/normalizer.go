package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// FeedStrategy maps one upstream feed layout onto a normalized match. The
// normalizer has already filled header, venue, result and info fields when
// Apply runs.
type FeedStrategy interface {
	Kind() match.FeedKind
	Detect(payload match.RawPayload) bool
	Apply(payload match.RawPayload, header map[string]any, out *match.Match)
}

// Normalizer turns raw upstream payloads into match.Match values. The first
// strategy whose Detect accepts the payload wins; the last one is the fallback.
type Normalizer struct {
	strategies []FeedStrategy
}

func NewNormalizer(strategies ...FeedStrategy) *Normalizer {
	if len(strategies) == 0 {
		strategies = []FeedStrategy{CommentaryStrategy{}, MatchDetailsStrategy{}}
	}
	return &Normalizer{strategies: strategies}
}

func (n *Normalizer) Normalize(payload match.RawPayload, requestedID string) (match.Match, error) {
	if payload == nil {
		return match.Match{}, &ValidationError{Code: CodeNoData, Message: "no data received from upstream"}
	}
	header := getMap(payload, "matchHeader")
	if header == nil {
		return match.Match{}, &ValidationError{Code: CodeInvalidData, Message: "invalid match data structure"}
	}

	out := normalizeHeader(header, requestedID)
	strategy := n.selectStrategy(payload)
	out.Feed = strategy.Kind()
	strategy.Apply(payload, header, &out)
	return out, nil
}

func (n *Normalizer) selectStrategy(payload match.RawPayload) FeedStrategy {
	for _, strategy := range n.strategies[:len(n.strategies)-1] {
		if strategy.Detect(payload) {
			return strategy
		}
	}
	return n.strategies[len(n.strategies)-1]
}

func normalizeHeader(header map[string]any, requestedID string) match.Match {
	out := match.Match{
		MatchID:     firstNonEmpty(getText(header, "matchId"), requestedID),
		Status:      deriveStatus(header),
		SeriesName:  firstNonEmpty(getText(header, "seriesName"), match.DefaultSeriesName),
		MatchNumber: firstNonEmpty(getText(header, "matchDescription"), match.DefaultMatchNumber),
		Teams: [2]match.Team{
			normalizeTeam(getMap(header, "team1"), 1),
			normalizeTeam(getMap(header, "team2"), 2),
		},
		BattingStats: []match.BattingStat{},
		BowlingStats: []match.BowlingStat{},
		Scoreboard: match.Scoreboard{
			CurrentRunRate:  match.DefaultRate,
			RequiredRunRate: match.DefaultRate,
			LastWicket:      match.DefaultInfo,
			Partnership:     match.DefaultInfo,
			LastOver:        match.DefaultInfo,
			MatchStatus:     match.DefaultMatchStatus,
		},
	}

	if ms, ok := getInt64(header, "matchStartTimestamp"); ok && ms > 0 {
		iso := time.UnixMilli(ms).UTC().Format(isoMillis)
		out.StartTime = &iso
	}

	venue := getMap(header, "venueInfo")
	out.Venue = match.Venue{
		Ground:  firstNonEmpty(getText(venue, "ground"), match.DefaultGround),
		City:    firstNonEmpty(getText(venue, "city"), match.DefaultCity),
		Country: firstNonEmpty(getText(venue, "country"), match.DefaultCountry),
	}

	statusText := getText(header, "status")
	if statusText != "" || out.Status == match.StatusCompleted {
		out.Result = &match.Result{
			WinningTeamID: firstNonEmpty(getText(getMap(header, "result"), "winningteamId"), match.DefaultWinnerTeamID),
			ResultText:    statusText,
		}
	}

	toss := getMap(header, "tossResults")
	startInfo := match.DefaultInfo
	if out.StartTime != nil {
		startInfo = *out.StartTime
	}
	out.AdditionalInfo = match.AdditionalInfo{
		MatchType:    firstNonEmpty(getText(header, "matchType"), match.DefaultInfo),
		TossWinner:   firstNonEmpty(getText(toss, "tossWinnerName"), match.DefaultInfo),
		TossDecision: firstNonEmpty(getText(toss, "decision"), match.DefaultInfo),
		Venue:        out.Venue.Ground + ", " + out.Venue.City,
		StartTime:    startInfo,
	}

	return out
}

func normalizeTeam(team map[string]any, position int) match.Team {
	return match.Team{
		TeamID:    firstNonEmpty(getText(team, "id"), fmt.Sprintf("%d", position)),
		TeamName:  firstNonEmpty(getText(team, "name"), fmt.Sprintf("Team %d", position)),
		ShortName: firstNonEmpty(getText(team, "shortName"), fmt.Sprintf("T%d", position)),
		Logo:      firstNonEmpty(getText(team, "image"), match.DefaultLogoURL),
		Overs:     match.DefaultOvers,
		RunRate:   match.DefaultRate,
	}
}

var liveStates = map[string]struct{}{
	"in progress":   {},
	"innings break": {},
	"stumps":        {},
	"tea":           {},
	"lunch":         {},
	"drink":         {},
}

// deriveStatus applies the completion flag first, then the free-text status,
// then the commentary feed's state field.
func deriveStatus(header map[string]any) match.Status {
	if getBool(header, "complete") {
		return match.StatusCompleted
	}

	switch strings.ToLower(getText(header, "status")) {
	case "match ended":
		return match.StatusCompleted
	case "in progress":
		return match.StatusLive
	}

	state := strings.ToLower(getText(header, "state"))
	if state == "complete" {
		return match.StatusCompleted
	}
	if _, ok := liveStates[state]; ok {
		return match.StatusLive
	}
	return match.StatusUpcoming
}

func setTeamScore(team *match.Team, runs, wickets int, overs string) {
	team.Score = nonNegative(runs)
	team.Wickets = clamp(wickets, 0, match.MaxWickets)
	team.Overs = formatOvers(overs, match.DefaultOvers)
}

func batterFrom(src map[string]any) (match.BattingStat, bool) {
	name := firstNonEmpty(getText(src, "batName"), match.DefaultPlayerName)
	if name == match.DefaultPlayerName {
		return match.BattingStat{}, false
	}
	return match.BattingStat{
		Name:       name,
		Runs:       nonNegative(getInt(src, "batRuns")),
		Balls:      nonNegative(getInt(src, "batBalls")),
		Fours:      nonNegative(getInt(src, "batFours")),
		Sixes:      nonNegative(getInt(src, "batSixes")),
		StrikeRate: firstNonEmpty(getRate(src, "batStrikeRate"), match.DefaultRate),
		IsBatting:  true,
	}, true
}

func bowlerFrom(src map[string]any) (match.BowlingStat, bool) {
	name := firstNonEmpty(getText(src, "bowlName"), match.DefaultPlayerName)
	if name == match.DefaultPlayerName {
		return match.BowlingStat{}, false
	}
	return match.BowlingStat{
		Name:      name,
		Overs:     formatOvers(getText(src, "bowlOvs"), match.DefaultOvers),
		Maidens:   nonNegative(getInt(src, "bowlMaidens")),
		Runs:      nonNegative(getInt(src, "bowlRuns")),
		Wickets:   clamp(getInt(src, "bowlWkts"), 0, match.MaxWickets),
		Economy:   firstNonEmpty(getRate(src, "bowlEcon"), match.DefaultRate),
		IsBowling: true,
	}, true
}

// applyPlayers fills batting and bowling cards from the miniscore block shared
// by both feeds.
func applyPlayers(miniscore map[string]any, out *match.Match) {
	for _, key := range []string{"batsmanStriker", "batsmanNonStriker"} {
		if stat, ok := batterFrom(getMap(miniscore, key)); ok {
			out.BattingStats = append(out.BattingStats, stat)
		}
	}
	for _, key := range []string{"bowlerStriker", "bowlerNonStriker"} {
		if stat, ok := bowlerFrom(getMap(miniscore, key)); ok {
			out.BowlingStats = append(out.BowlingStats, stat)
		}
	}
}

// applyScoreboard fills the run-rate and situation fields from miniscore.
func applyScoreboard(miniscore map[string]any, out *match.Match) {
	board := &out.Scoreboard
	board.CurrentRunRate = firstNonEmpty(getRate(miniscore, "currentRunRate"), match.DefaultRate)
	board.RequiredRunRate = firstNonEmpty(getRate(miniscore, "requiredRunRate"), match.DefaultRate)
	board.LastWicket = firstNonEmpty(getText(miniscore, "lastWicket"), match.DefaultInfo)
	board.Partnership = firstNonEmpty(partnershipText(miniscore), match.DefaultInfo)
	board.LastOver = firstNonEmpty(getText(miniscore, "lastOver"), getText(miniscore, "recentOvsStats"), match.DefaultInfo)
	board.MatchStatus = firstNonEmpty(getText(miniscore, "status"), match.DefaultMatchStatus)

	for i := range out.Teams {
		out.Teams[i].RunRate = board.CurrentRunRate
	}
}

func partnershipText(miniscore map[string]any) string {
	if text := getText(miniscore, "partnerShip"); text != "" {
		return text
	}
	obj := getMap(miniscore, "partnerShip")
	if obj == nil {
		return ""
	}
	runs, okRuns := lookupInt(obj, "runs")
	balls, okBalls := lookupInt(obj, "balls")
	if !okRuns && !okBalls {
		return ""
	}
	return fmt.Sprintf("%d(%d)", nonNegative(runs), nonNegative(balls))
}

// MatchDetailsStrategy reads the scorecard-style feed keyed by inningsScoreList.
type MatchDetailsStrategy struct{}

func (MatchDetailsStrategy) Kind() match.FeedKind { return match.FeedMatchDetails }

func (MatchDetailsStrategy) Detect(payload match.RawPayload) bool {
	return getMap(payload, "miniscore") != nil || getMap(payload, "matchScore") != nil
}

func (MatchDetailsStrategy) Apply(payload match.RawPayload, _ map[string]any, out *match.Match) {
	miniscore := getMap(payload, "miniscore")
	innings := getSlice(getMap(miniscore, "matchScoreDetails"), "inningsScoreList")
	matchScore := getMap(payload, "matchScore")

	for i := range out.Teams {
		team := &out.Teams[i]
		if inn := latestInningsFor(innings, team.TeamID); inn != nil {
			runs, _ := firstIntOf(inn, "score", "runs")
			setTeamScore(team, runs, getInt(inn, "wickets"), getText(inn, "overs"))
			continue
		}
		if inn := fallbackInnings(matchScore, i+1); inn != nil {
			setTeamScore(team, getInt(inn, "runs"), getInt(inn, "wickets"), getText(inn, "overs"))
		}
	}

	if miniscore == nil {
		return
	}
	applyScoreboard(miniscore, out)
	applyPlayers(miniscore, out)
}

// latestInningsFor returns the innings with the highest inningsId batted by teamID.
func latestInningsFor(innings []any, teamID string) map[string]any {
	var (
		best   map[string]any
		bestID = -1
	)
	for _, raw := range innings {
		inn, ok := raw.(map[string]any)
		if !ok || getText(inn, "batTeamId") != teamID {
			continue
		}
		id, _ := lookupInt(inn, "inningsId")
		if best == nil || id > bestID {
			best, bestID = inn, id
		}
	}
	return best
}

// fallbackInnings reads matchScore.team{N}Score, preferring the second innings.
func fallbackInnings(matchScore map[string]any, position int) map[string]any {
	score := getMap(matchScore, fmt.Sprintf("team%dScore", position))
	if inn := getMap(score, "inngs2"); inn != nil {
		return inn
	}
	return getMap(score, "inngs1")
}

// CommentaryStrategy reads the ball-by-ball feed carrying batTeam/bowlTeam
// summaries and a commentaryList.
type CommentaryStrategy struct{}

func (CommentaryStrategy) Kind() match.FeedKind { return match.FeedCommentary }

func (CommentaryStrategy) Detect(payload match.RawPayload) bool {
	if _, ok := payload["commentaryList"]; ok {
		return true
	}
	return getMap(getMap(payload, "miniscore"), "batTeam") != nil
}

func (CommentaryStrategy) Apply(payload match.RawPayload, header map[string]any, out *match.Match) {
	out.SeriesName = firstNonEmpty(
		getText(header, "seriesDesc"),
		getText(header, "seriesName"),
		getText(header, "matchDescription"),
		match.DefaultSeriesName,
	)

	miniscore := getMap(payload, "miniscore")
	currentOvers := firstNonEmpty(getText(miniscore, "currentOvers"), getText(miniscore, "overs"))

	batIdx := -1
	if batTeam := getMap(miniscore, "batTeam"); batTeam != nil {
		batIdx = teamIndex(out.Teams, getText(batTeam, "teamId"), 0)
		runs, _ := firstIntOf(batTeam, "teamScore", "runs")
		wickets, _ := firstIntOf(batTeam, "teamWkts", "wickets")
		setTeamScore(&out.Teams[batIdx], runs, wickets, currentOvers)
	}
	if bowlTeam := getMap(miniscore, "bowlTeam"); bowlTeam != nil {
		bowlIdx := teamIndex(out.Teams, getText(bowlTeam, "teamId"), 1)
		if batIdx >= 0 {
			bowlIdx = 1 - batIdx
		}
		runs, _ := firstIntOf(bowlTeam, "teamScore", "runs")
		wickets, _ := firstIntOf(bowlTeam, "teamWkts", "wickets")
		setTeamScore(&out.Teams[bowlIdx], runs, wickets, getText(bowlTeam, "overs"))
	}

	if miniscore != nil {
		applyScoreboard(miniscore, out)
		applyPlayers(miniscore, out)
	}
	if state := getText(header, "state"); state != "" && getText(miniscore, "status") == "" {
		out.Scoreboard.MatchStatus = state
	}

	out.Commentary = normalizeCommentary(getSlice(payload, "commentaryList"))
}

func teamIndex(teams [2]match.Team, teamID string, fallback int) int {
	if teamID != "" {
		for i, team := range teams {
			if team.TeamID == teamID {
				return i
			}
		}
	}
	return fallback
}

func normalizeCommentary(items []any) []match.Commentary {
	out := make([]match.Commentary, 0, min(len(items), match.MaxCommentary))
	for _, raw := range items {
		if len(out) == match.MaxCommentary {
			break
		}
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, match.Commentary{
			Over:      firstNonEmpty(getText(item, "overNumber"), match.DefaultInfo),
			Ball:      firstNonEmpty(getText(item, "ballNumber"), match.DefaultInfo),
			Text:      firstNonEmpty(getText(item, "commText"), match.DefaultCommentText),
			Timestamp: commentaryTimestamp(item),
			Runs:      nonNegative(getInt(item, "runs")),
			Wicket:    commentaryWicket(item),
			EventType: firstNonEmpty(getText(item, "eventType"), match.DefaultEventType),
		})
	}
	return out
}

// commentaryTimestamp treats values beyond year 5138 in seconds as milliseconds.
func commentaryTimestamp(item map[string]any) string {
	ts, ok := getInt64(item, "timestamp")
	if !ok || ts <= 0 {
		return match.DefaultInfo
	}
	if ts > 1e11 {
		return time.UnixMilli(ts).UTC().Format(isoMillis)
	}
	return time.Unix(ts, 0).UTC().Format(isoMillis)
}

func commentaryWicket(item map[string]any) bool {
	switch typed := item["wicket"].(type) {
	case bool:
		return typed
	case float64:
		return typed != 0
	case string:
		return strings.TrimSpace(typed) != "" && typed != "0" && !strings.EqualFold(typed, "false")
	case map[string]any:
		return true
	default:
		return false
	}
}
