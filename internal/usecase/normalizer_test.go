package usecase

import (
	"errors"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
)

func decodePayload(t *testing.T, raw string) match.RawPayload {
	t.Helper()
	var payload match.RawPayload
	if err := sonic.UnmarshalString(raw, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}

func TestNormalizer_MinimalHeaderUsesDefaults(t *testing.T) {
	t.Parallel()

	got, err := NewNormalizer().Normalize(match.RawPayload{"matchHeader": map[string]any{}}, "74648")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if got.MatchID != "74648" || got.Status != match.StatusUpcoming || got.Feed != match.FeedMatchDetails {
		t.Fatalf("unexpected identity: id=%q status=%q feed=%q", got.MatchID, got.Status, got.Feed)
	}
	if got.SeriesName != "Unknown Series" || got.MatchNumber != "N/A" || got.StartTime != nil {
		t.Fatalf("unexpected header defaults: %+v", got)
	}
	if got.Result != nil {
		t.Fatalf("expected nil result without status, got %+v", got.Result)
	}
	want := [2]match.Team{
		{TeamID: "1", TeamName: "Team 1", ShortName: "T1", Logo: "https://placehold.co/50x50", Overs: "0.0", RunRate: "0.00"},
		{TeamID: "2", TeamName: "Team 2", ShortName: "T2", Logo: "https://placehold.co/50x50", Overs: "0.0", RunRate: "0.00"},
	}
	if got.Teams != want {
		t.Fatalf("unexpected teams: %+v", got.Teams)
	}
	if got.Venue != (match.Venue{Ground: "Unknown Stadium", City: "Unknown City", Country: "Unknown Country"}) {
		t.Fatalf("unexpected venue: %+v", got.Venue)
	}
	if got.Scoreboard.CurrentRunRate != "0.00" || got.Scoreboard.MatchStatus != "Match not started" || got.Scoreboard.Partnership != "N/A" {
		t.Fatalf("unexpected scoreboard: %+v", got.Scoreboard)
	}
	if len(got.BattingStats) != 0 || len(got.BowlingStats) != 0 {
		t.Fatalf("expected empty player cards")
	}
	if got.AdditionalInfo.Venue != "Unknown Stadium, Unknown City" || got.AdditionalInfo.TossWinner != "N/A" {
		t.Fatalf("unexpected additional info: %+v", got.AdditionalInfo)
	}
}

func TestNormalizer_RejectsUnusablePayloads(t *testing.T) {
	t.Parallel()

	n := NewNormalizer()
	cases := []struct {
		name    string
		payload match.RawPayload
		code    string
	}{
		{name: "nil payload", payload: nil, code: CodeNoData},
		{name: "missing header", payload: match.RawPayload{"miniscore": map[string]any{}}, code: CodeInvalidData},
		{name: "header not an object", payload: match.RawPayload{"matchHeader": "oops"}, code: CodeInvalidData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize(tc.payload, "1")
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Code != tc.code || verr.Status() != 500 {
				t.Fatalf("unexpected validation error: %+v", verr)
			}
			if !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload sentinel")
			}
		})
	}
}

func TestDeriveStatus_Precedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header map[string]any
		want   match.Status
	}{
		{header: map[string]any{"complete": true, "status": "In Progress"}, want: match.StatusCompleted},
		{header: map[string]any{"status": " match ended "}, want: match.StatusCompleted},
		{header: map[string]any{"status": "In Progress", "state": "Complete"}, want: match.StatusLive},
		{header: map[string]any{"state": "Complete"}, want: match.StatusCompleted},
		{header: map[string]any{"state": "Innings Break"}, want: match.StatusLive},
		{header: map[string]any{"state": "Stumps"}, want: match.StatusLive},
		{header: map[string]any{"status": "Match starts at 14:00"}, want: match.StatusUpcoming},
		{header: map[string]any{"complete": "yes"}, want: match.StatusUpcoming},
	}
	for _, tc := range cases {
		if got := deriveStatus(tc.header); got != tc.want {
			t.Fatalf("deriveStatus(%v)=%s want %s", tc.header, got, tc.want)
		}
	}
}

func TestNormalizer_MatchDetailsFeed(t *testing.T) {
	t.Parallel()

	payload := decodePayload(t, `{
		"matchHeader": {
			"matchId": 74648,
			"complete": true,
			"status": "India won by 6 wkts",
			"seriesName": "Border Gavaskar Trophy",
			"matchDescription": "2nd Test",
			"matchStartTimestamp": 1710408600000,
			"matchType": "TEST",
			"team1": {"id": 2, "name": "India", "shortName": "IND"},
			"team2": {"id": "4", "name": "Australia", "shortName": "AUS", "image": "https://img/aus.png"},
			"venueInfo": {"ground": "Eden Gardens", "city": "Kolkata", "country": "India"},
			"result": {"winningteamId": 2},
			"tossResults": {"tossWinnerName": "Australia", "decision": "Batting"}
		},
		"miniscore": {
			"currentRunRate": 3.456,
			"requiredRunRate": "0.00",
			"status": "India won by 6 wkts",
			"partnerShip": {"runs": 45, "balls": 60},
			"lastWicket": "Pant c Carey b Lyon 24(30)",
			"recentOvsStats": "1 4 0 | 0 0 1",
			"batsmanStriker": {"batName": "Kohli", "batRuns": "71", "batBalls": 98, "batFours": 8, "batStrikeRate": 72.45},
			"batsmanNonStriker": {"batRuns": 3},
			"bowlerStriker": {"bowlName": "Lyon", "bowlOvs": 22.4, "bowlWkts": 14, "bowlEcon": "3.10"},
			"matchScoreDetails": {
				"inningsScoreList": [
					{"inningsId": 1, "batTeamId": 4, "score": 263, "wickets": 10, "overs": 78.4},
					{"inningsId": 2, "batTeamId": 2, "score": 262, "wickets": 10, "overs": 83.3},
					{"inningsId": 3, "batTeamId": 4, "score": 113, "wickets": 10, "overs": 31.1},
					{"inningsId": 4, "batTeamId": 2, "score": 118, "wickets": 4, "overs": "26.4"}
				]
			}
		}
	}`)

	got, err := NewNormalizer().Normalize(payload, "74648")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if got.Feed != match.FeedMatchDetails || got.Status != match.StatusCompleted {
		t.Fatalf("unexpected feed/status: %s %s", got.Feed, got.Status)
	}
	if got.StartTime == nil || *got.StartTime != "2024-03-14T09:30:00.000Z" {
		t.Fatalf("unexpected start time: %v", got.StartTime)
	}
	if got.Teams[0].TeamID != "2" || got.Teams[0].Score != 118 || got.Teams[0].Wickets != 4 || got.Teams[0].Overs != "26.4" {
		t.Fatalf("unexpected team1 score: %+v", got.Teams[0])
	}
	if got.Teams[1].Score != 113 || got.Teams[1].Overs != "31.1" || got.Teams[1].Logo != "https://img/aus.png" {
		t.Fatalf("unexpected team2 score: %+v", got.Teams[1])
	}
	if got.Teams[0].RunRate != "3.46" || got.Scoreboard.CurrentRunRate != "3.46" {
		t.Fatalf("unexpected run rate: %q", got.Teams[0].RunRate)
	}
	if got.Result == nil || got.Result.WinningTeamID != "2" || got.Result.ResultText != "India won by 6 wkts" {
		t.Fatalf("unexpected result: %+v", got.Result)
	}
	if got.Scoreboard.Partnership != "45(60)" || got.Scoreboard.LastOver != "1 4 0 | 0 0 1" {
		t.Fatalf("unexpected scoreboard: %+v", got.Scoreboard)
	}
	if len(got.BattingStats) != 1 || got.BattingStats[0].Runs != 71 || got.BattingStats[0].StrikeRate != "72.45" {
		t.Fatalf("expected only the named batter, got %+v", got.BattingStats)
	}
	if len(got.BowlingStats) != 1 || got.BowlingStats[0].Wickets != 10 || got.BowlingStats[0].Overs != "22.4" {
		t.Fatalf("unexpected bowling card: %+v", got.BowlingStats)
	}
	if got.AdditionalInfo.MatchType != "TEST" || got.AdditionalInfo.TossDecision != "Batting" || got.AdditionalInfo.Venue != "Eden Gardens, Kolkata" {
		t.Fatalf("unexpected additional info: %+v", got.AdditionalInfo)
	}
	if got.Commentary != nil {
		t.Fatalf("match details feed must not carry commentary")
	}
}

func TestNormalizer_MatchScoreFallback(t *testing.T) {
	t.Parallel()

	payload := decodePayload(t, `{
		"matchHeader": {"team1": {"id": 10}, "team2": {"id": 11}},
		"matchScore": {
			"team1Score": {"inngs1": {"runs": 180, "wickets": 12, "overs": 20}},
			"team2Score": {"inngs1": {"runs": 90}, "inngs2": {"runs": 150, "wickets": 3, "overs": 18.2}}
		}
	}`)

	got, err := NewNormalizer().Normalize(payload, "9")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Teams[0].Score != 180 || got.Teams[0].Wickets != 10 || got.Teams[0].Overs != "20.0" {
		t.Fatalf("unexpected team1: %+v", got.Teams[0])
	}
	if got.Teams[1].Score != 150 || got.Teams[1].Overs != "18.2" {
		t.Fatalf("expected second innings to win, got %+v", got.Teams[1])
	}
}

func TestNormalizer_CommentaryFeed(t *testing.T) {
	t.Parallel()

	payload := decodePayload(t, `{
		"matchHeader": {
			"matchId": "91",
			"state": "In Progress",
			"seriesDesc": "IPL 2024",
			"team1": {"id": 58, "name": "Chennai", "shortName": "CSK"},
			"team2": {"id": 59, "name": "Bangalore", "shortName": "RCB"}
		},
		"miniscore": {
			"batTeam": {"teamId": 59, "teamScore": 120, "teamWkts": 3},
			"bowlTeam": {"teamId": 58, "teamScore": 173, "teamWkts": 6, "overs": 20},
			"currentOvers": 14.2,
			"currentRunRate": 8.37
		},
		"commentaryList": [
			{"overNumber": 14.2, "commText": "FOUR!", "timestamp": 1710408600, "runs": 4, "eventType": "FOUR"},
			{"overNumber": 14.1, "timestamp": 1710408540000, "wicket": true},
			"garbage",
			{}, {}, {}, {}, {}, {}, {}, {}, {}
		]
	}`)

	got, err := NewNormalizer().Normalize(payload, "91")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Feed != match.FeedCommentary || got.Status != match.StatusLive || got.SeriesName != "IPL 2024" {
		t.Fatalf("unexpected header: feed=%s status=%s series=%q", got.Feed, got.Status, got.SeriesName)
	}
	if got.Teams[0].TeamID != "58" || got.Teams[1].TeamID != "59" {
		t.Fatalf("team order must follow header: %+v", got.Teams)
	}
	if got.Teams[1].Score != 120 || got.Teams[1].Wickets != 3 || got.Teams[1].Overs != "14.2" {
		t.Fatalf("bat team should land on team2: %+v", got.Teams[1])
	}
	if got.Teams[0].Score != 173 || got.Teams[0].Overs != "20.0" {
		t.Fatalf("bowl team should land on team1: %+v", got.Teams[0])
	}
	if got.Scoreboard.MatchStatus != "In Progress" {
		t.Fatalf("expected state as match status, got %q", got.Scoreboard.MatchStatus)
	}
	if len(got.Commentary) != match.MaxCommentary {
		t.Fatalf("expected %d commentary entries, got %d", match.MaxCommentary, len(got.Commentary))
	}
	first, second, blank := got.Commentary[0], got.Commentary[1], got.Commentary[2]
	if first.Over != "14.2" || first.Ball != "N/A" || first.Runs != 4 || first.EventType != "FOUR" || first.Timestamp != "2024-03-14T09:30:00.000Z" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if !second.Wicket || second.Text != "No commentary available" || second.Timestamp != "2024-03-14T09:29:00.000Z" {
		t.Fatalf("unexpected second entry: %+v", second)
	}
	if blank.Timestamp != "N/A" || blank.EventType != "ball" {
		t.Fatalf("unexpected blank entry: %+v", blank)
	}
}

func TestNormalizer_CommentaryListAloneSelectsCommentary(t *testing.T) {
	t.Parallel()

	got, err := NewNormalizer().Normalize(match.RawPayload{
		"matchHeader":    map[string]any{"matchDescription": "Final"},
		"commentaryList": []any{},
	}, "5")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Feed != match.FeedCommentary || got.SeriesName != "Final" {
		t.Fatalf("unexpected result: feed=%s series=%q", got.Feed, got.SeriesName)
	}
	if got.Commentary == nil || len(got.Commentary) != 0 {
		t.Fatalf("expected empty commentary slice, got %#v", got.Commentary)
	}
}

func TestNormalizer_CompletedWithoutStatusHasResult(t *testing.T) {
	t.Parallel()

	got, err := NewNormalizer().Normalize(match.RawPayload{
		"matchHeader": map[string]any{"complete": true},
	}, "5")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Result == nil || got.Result.WinningTeamID != "N/A" || got.Result.ResultText != "" {
		t.Fatalf("unexpected result: %+v", got.Result)
	}
}

func TestFormatOvers(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"20":    "20.0",
		"0":     "0.0",
		"18.2":  "18.2",
		" 7.5 ": "7.5",
		"15.7":  match.DefaultOvers,
		"-3.2":  match.DefaultOvers,
		"abc":   match.DefaultOvers,
		"12.34": match.DefaultOvers,
		"":      match.DefaultOvers,
	}
	for in, want := range cases {
		if got := formatOvers(in, match.DefaultOvers); got != want {
			t.Fatalf("formatOvers(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNormalizer_MalformedOversFallBack(t *testing.T) {
	t.Parallel()

	payload := decodePayload(t, `{
		"matchHeader": {"team1": {"id": 10}, "team2": {"id": 11}},
		"matchScore": {
			"team1Score": {"inngs1": {"runs": 100, "wickets": 2, "overs": 15.7}},
			"team2Score": {"inngs1": {"runs": 90, "wickets": 1, "overs": "abc"}}
		}
	}`)

	got, err := NewNormalizer().Normalize(payload, "9")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Teams[0].Overs != match.DefaultOvers || got.Teams[1].Overs != match.DefaultOvers {
		t.Fatalf("expected default overs for malformed input, got %q and %q", got.Teams[0].Overs, got.Teams[1].Overs)
	}
	if got.Teams[0].Score != 100 || got.Teams[1].Score != 90 {
		t.Fatalf("scores must survive malformed overs: %+v", got.Teams)
	}
}

func TestNormalizer_TeamOrderStableAcrossRuns(t *testing.T) {
	t.Parallel()

	payload := decodePayload(t, `{
		"matchHeader": {
			"matchId": 7,
			"team1": {"id": 1, "name": "India"},
			"team2": {"id": 2, "name": "Australia"}
		},
		"miniscore": {
			"batTeam": {"teamId": 2, "teamScore": 55, "teamWkts": 1},
			"currentOvers": 6.3
		}
	}`)

	normalizer := NewNormalizer()
	first, err := normalizer.Normalize(payload, "7")
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	second, err := normalizer.Normalize(payload, "7")
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}

	if first.Teams != second.Teams {
		t.Fatalf("teams changed between runs:\n%+v\n%+v", first.Teams, second.Teams)
	}
	if first.Teams[0].TeamName != "India" || first.Teams[1].TeamName != "Australia" {
		t.Fatalf("team order must follow the header, got %+v", first.Teams)
	}
	if first.Teams[1].Score != 55 || first.Teams[1].Overs != "6.3" {
		t.Fatalf("bat team score should land on team2: %+v", first.Teams[1])
	}
}
