package app_test

import (
	"math/rand"
	"testing"
	"time"

	"omniquiz-service/internal/app"
	"omniquiz-service/internal/domain"
)

func TestResolveCorrectAwardsFaceValue(t *testing.T) {
	engine := newTestEngine()

	engine.ResolveCorrect(0, 1, 1)

	teams := engine.Teams()
	if teams[0].Score != 200 {
		t.Fatalf("expected score 200, got %d", teams[0].Score)
	}
	quiz, _ := engine.QuizData()
	q := quiz.Questions[0][1]
	if !q.Answered || q.AnsweredBy == nil || *q.AnsweredBy != 1 {
		t.Fatalf("expected question answered by team 1, got %+v", q)
	}
	if q.AnsweredCorrectly == nil || !*q.AnsweredCorrectly {
		t.Fatalf("expected answeredCorrectly true, got %+v", q.AnsweredCorrectly)
	}
	if q.CustomScore != nil {
		t.Fatalf("expected no custom score, got %d", *q.CustomScore)
	}
}

func TestResolveWrongSubtractsBelowZero(t *testing.T) {
	engine := newTestEngine()

	engine.ResolveWrong(0, 0, 2)

	teams := engine.Teams()
	if teams[1].Score != -100 {
		t.Fatalf("expected score -100, got %d", teams[1].Score)
	}
	quiz, _ := engine.QuizData()
	q := quiz.Questions[0][0]
	if q.AnsweredCorrectly == nil || *q.AnsweredCorrectly {
		t.Fatalf("expected answeredCorrectly false, got %+v", q.AnsweredCorrectly)
	}
}

func TestResolveCustomRecordsAmount(t *testing.T) {
	engine := newTestEngine()

	engine.ResolveCustom(1, 0, 1, -50)

	teams := engine.Teams()
	if teams[0].Score != -50 {
		t.Fatalf("expected score -50, got %d", teams[0].Score)
	}
	quiz, _ := engine.QuizData()
	q := quiz.Questions[1][0]
	if q.CustomScore == nil || *q.CustomScore != -50 {
		t.Fatalf("expected custom score -50, got %+v", q.CustomScore)
	}
	state := engine.LiveState()
	if state.LastEvent == nil || state.LastEvent.Type != domain.EventAdjust || state.LastEvent.Amount != -50 {
		t.Fatalf("expected adjust event for -50, got %+v", state.LastEvent)
	}
}

func TestUnknownTeamAndBadIndicesAreNoOps(t *testing.T) {
	engine := newTestEngine()
	before := engine.LiveState()

	engine.ResolveCorrect(0, 0, 99)
	engine.ResolveWrong(9, 0, 1)
	engine.UpdateTeamScore(42, 500)
	engine.MarkQuestionAnswered(-1, 0, nil, true, nil)
	engine.SetBuzzed(99)

	after := engine.LiveState()
	if after.LastEventTimestamp != before.LastEventTimestamp {
		t.Fatalf("no-op operations must not record events")
	}
	for _, team := range engine.Teams() {
		if team.Score != 0 {
			t.Fatalf("expected untouched scores, got %+v", team)
		}
	}
	quiz, _ := engine.QuizData()
	if quiz.Questions[0][0].Answered {
		t.Fatalf("expected question untouched")
	}
}

func TestAnsweredFieldsStayConsistent(t *testing.T) {
	engine := newTestEngine()

	// Random operation sequences must never produce an unanswered question
	// with terminal fields set.
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		ci, qi, team := rnd.Intn(3)-1, rnd.Intn(3)-1, rnd.Intn(4)
		switch rnd.Intn(6) {
		case 0:
			engine.ResolveCorrect(ci, qi, team)
		case 1:
			engine.ResolveWrong(ci, qi, team)
		case 2:
			engine.ResolveCustom(ci, qi, team, rnd.Intn(400)-200)
		case 3:
			engine.OpenQuestion(ci, qi)
		case 4:
			engine.CloseQuestion()
		case 5:
			engine.AdjustScore(team, rnd.Intn(100))
		}

		quiz, _ := engine.QuizData()
		for _, col := range quiz.Questions {
			for _, q := range col {
				if !q.Answered && (q.AnsweredBy != nil || q.AnsweredCorrectly != nil || q.CustomScore != nil) {
					t.Fatalf("unanswered question carries terminal fields: %+v", q)
				}
			}
		}
	}
}

func TestScoresEqualSumOfAppliedDeltas(t *testing.T) {
	engine := newTestEngine()
	expected := map[int]int{1: 0, 2: 0}
	values := map[[2]int]int{{0, 0}: 100, {0, 1}: 200, {1, 0}: 100}

	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		ci, qi, team := rnd.Intn(2), rnd.Intn(2), 1+rnd.Intn(2)
		value, validCell := values[[2]int{ci, qi}]
		switch rnd.Intn(4) {
		case 0:
			engine.ResolveCorrect(ci, qi, team)
			if validCell {
				expected[team] += value
			}
		case 1:
			engine.ResolveWrong(ci, qi, team)
			if validCell {
				expected[team] -= value
			}
		case 2:
			amount := rnd.Intn(400) - 200
			engine.ResolveCustom(ci, qi, team, amount)
			if validCell {
				expected[team] += amount
			}
		case 3:
			amount := rnd.Intn(100) - 50
			engine.AdjustScore(team, amount)
			expected[team] += amount
		}
	}

	for _, team := range engine.Teams() {
		if team.Score != expected[team.ID] {
			t.Fatalf("team %d score %d, expected %d", team.ID, team.Score, expected[team.ID])
		}
	}
}

func TestMarkQuestionAnsweredOverwritesConsistently(t *testing.T) {
	engine := newTestEngine()
	team1, team2 := 1, 2
	custom := 75

	engine.MarkQuestionAnswered(0, 0, &team1, true, nil)
	engine.MarkQuestionAnswered(0, 0, &team2, false, &custom)

	quiz, _ := engine.QuizData()
	q := quiz.Questions[0][0]
	if !q.Answered || *q.AnsweredBy != team2 || *q.AnsweredCorrectly || *q.CustomScore != custom {
		t.Fatalf("expected last mark to win coherently, got %+v", q)
	}
}

func TestOpenQuestionRejectsAnsweredCell(t *testing.T) {
	engine := newTestEngine()

	engine.ResolveCorrect(0, 0, 1)
	if engine.OpenQuestion(0, 0) {
		t.Fatalf("expected answered cell to stay closed")
	}
	if !engine.OpenQuestion(0, 1) {
		t.Fatalf("expected fresh cell to open")
	}

	state := engine.LiveState()
	if state.Status != domain.StatusQuestion {
		t.Fatalf("expected QUESTION status, got %s", state.Status)
	}
	if state.Timer != 100 {
		t.Fatalf("expected timer 100, got %d", state.Timer)
	}
}

func TestLiveStateWithholdsAnswer(t *testing.T) {
	engine := newTestEngine()
	engine.OpenQuestion(0, 0)

	state := engine.LiveState()
	if state.CurrentQuestion == nil {
		t.Fatalf("expected current question")
	}
	if state.CurrentQuestion.Question != "Q1" {
		t.Fatalf("expected question text, got %q", state.CurrentQuestion.Question)
	}
	if len(state.CurrentQuestion.ShuffledOptions) != len(state.CurrentQuestion.Options) {
		t.Fatalf("shuffled options must cover all options")
	}
	// The shuffle happens once at open; every snapshot shows the same order.
	again := engine.LiveState()
	for i, opt := range again.CurrentQuestion.ShuffledOptions {
		if state.CurrentQuestion.ShuffledOptions[i] != opt {
			t.Fatalf("shuffle must be stable across snapshots")
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	engine := newTestEngine()

	if got := engine.LiveState().Status; got != domain.StatusWaiting {
		t.Fatalf("expected WAITING, got %s", got)
	}
	engine.OpenQuestion(0, 0)
	if got := engine.LiveState().Status; got != domain.StatusQuestion {
		t.Fatalf("expected QUESTION, got %s", got)
	}
	engine.RevealAnswer()
	if got := engine.LiveState().Status; got != domain.StatusAnswerRevealed {
		t.Fatalf("expected ANSWER_REVEALED, got %s", got)
	}
	engine.CloseQuestion()
	if got := engine.LiveState().Status; got != domain.StatusWaiting {
		t.Fatalf("expected WAITING after close, got %s", got)
	}
	engine.Finish()
	if got := engine.LiveState().Status; got != domain.StatusFinished {
		t.Fatalf("expected FINISHED, got %s", got)
	}
	// Finish is terminal except for reset.
	engine.RevealAnswer()
	if got := engine.LiveState().Status; got != domain.StatusFinished {
		t.Fatalf("expected FINISHED to stick, got %s", got)
	}
	engine.ResetGame()
	state := engine.LiveState()
	if state.Status != domain.StatusWaiting || len(state.Scores) != 0 || len(state.GridState) != 0 {
		t.Fatalf("expected empty state after reset, got %+v", state)
	}
}

func TestTimerTicksDownAndStops(t *testing.T) {
	engine := app.NewEngineWithClock(3, time.Now, rand.NewSource(1))
	engine.SetTeams(sampleTeams())
	engine.SetQuizData(sampleQuizData())
	engine.OpenQuestion(0, 0)

	for want := 2; want >= 0; want-- {
		if got := engine.TickTimer(); got != want {
			t.Fatalf("expected timer %d, got %d", want, got)
		}
	}
	if got := engine.TickTimer(); got != 0 {
		t.Fatalf("expected timer to stop at 0, got %d", got)
	}
	// Expiry never resolves the question.
	if got := engine.LiveState().Status; got != domain.StatusQuestion {
		t.Fatalf("expected QUESTION after expiry, got %s", got)
	}
}

func TestEventTimestampsStrictlyIncrease(t *testing.T) {
	frozen := time.UnixMilli(1000)
	engine := app.NewEngineWithClock(100, func() time.Time { return frozen }, rand.NewSource(1))
	engine.SetTeams(sampleTeams())
	engine.SetQuizData(sampleQuizData())

	var last int64
	for i := 0; i < 5; i++ {
		engine.AdjustScore(1, 10)
		ts := engine.LiveState().LastEventTimestamp
		if ts <= last {
			t.Fatalf("timestamps must strictly increase, got %d after %d", ts, last)
		}
		last = ts
	}
}

func TestBuzzedTeamRoundTrip(t *testing.T) {
	engine := newTestEngine()

	engine.SetBuzzed(2)
	state := engine.LiveState()
	if state.BuzzedTeam == nil || *state.BuzzedTeam != 2 {
		t.Fatalf("expected buzzed team 2, got %+v", state.BuzzedTeam)
	}
	engine.ClearBuzzed()
	if engine.LiveState().BuzzedTeam != nil {
		t.Fatalf("expected buzz cleared")
	}
}

func TestGridStateCarriesTeamColor(t *testing.T) {
	engine := newTestEngine()
	engine.ResolveCorrect(0, 0, 2)

	state := engine.LiveState()
	cell := state.GridState[0].Questions[0]
	if !cell.Answered || cell.AnsweredColor == nil || *cell.AnsweredColor != "#00f" {
		t.Fatalf("expected answered cell colored #00f, got %+v", cell)
	}
}

func TestSetTeamsRejectsMalformedRoster(t *testing.T) {
	engine := newTestEngine()

	engine.SetTeams(nil)
	engine.SetTeams([]domain.Team{{ID: 0, Name: "Zero"}})
	engine.SetTeams([]domain.Team{{ID: 1, Name: "A"}, {ID: 1, Name: "Dup"}})

	if len(engine.Teams()) != 2 {
		t.Fatalf("expected original roster to survive, got %+v", engine.Teams())
	}
}

func TestSubscribeStreamsSnapshots(t *testing.T) {
	engine := newTestEngine()

	updates, cancel := engine.Subscribe()
	defer cancel()

	<-updates // initial snapshot

	engine.AdjustScore(1, 25)

	select {
	case state := <-updates:
		if state.Scores[0].Score != 25 {
			t.Fatalf("expected score 25 in snapshot, got %+v", state.Scores)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a snapshot after AdjustScore")
	}
}

func TestRestoreReplacesSessionAtomically(t *testing.T) {
	engine := newTestEngine()
	engine.OpenQuestion(0, 0)
	engine.SetBuzzed(1)

	teams := []domain.Team{{ID: 5, Name: "Loaded", Color: "#fff", Score: 300}}
	data := domain.QuizData{
		Categories: []string{"Solo"},
		Questions:  [][]domain.Question{{{Category: "Solo", Value: 100, Question: "Only", Answer: "A"}}},
	}
	engine.Restore("evening-game", teams, data)

	if engine.GameName() != "evening-game" {
		t.Fatalf("expected restored name, got %q", engine.GameName())
	}
	state := engine.LiveState()
	if state.Status != domain.StatusWaiting || state.CurrentQuestion != nil || state.BuzzedTeam != nil {
		t.Fatalf("expected clean restored state, got %+v", state)
	}
	if len(state.Scores) != 1 || state.Scores[0].Score != 300 {
		t.Fatalf("expected loaded roster, got %+v", state.Scores)
	}
}

func newTestEngine() *app.Engine {
	engine := app.NewEngineWithClock(100, time.Now, rand.NewSource(42))
	engine.SetTeams(sampleTeams())
	engine.SetQuizData(sampleQuizData())
	return engine
}

func sampleTeams() []domain.Team {
	return []domain.Team{
		{ID: 1, Name: "Red", Color: "#f00"},
		{ID: 2, Name: "Blue", Color: "#00f"},
	}
}

func sampleQuizData() domain.QuizData {
	return domain.QuizData{
		Categories: []string{"Science", "History"},
		Questions: [][]domain.Question{
			{
				{Category: "Science", Value: 100, Question: "Q1", Answer: "A1", Options: []string{"A1", "B", "C", "D"}},
				{Category: "Science", Value: 200, Question: "Q2", Answer: "A2"},
			},
			{
				{Category: "History", Value: 100, Question: "Q3", Answer: "A3"},
			},
		},
	}
}
