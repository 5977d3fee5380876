package app

import (
	"math/rand"
	"sync"
	"time"

	"omniquiz-service/internal/domain"
)

// Engine is the single source of truth for the in-progress game: the team
// roster, the quiz board with its answer state, and the host-driven status
// machine projected to live viewers. One instance per host process; all
// mutations are serialized behind the mutex and every state-relevant change
// broadcasts a fresh LiveGameState snapshot to subscribers.
//
// Defensive contract: unknown team IDs and out-of-range board indices degrade
// to no-ops. A scoring mistake must never panic mid-game or leave a question
// with partial terminal fields.
type Engine struct {
	mu           sync.RWMutex
	now          func() time.Time
	rnd          *rand.Rand
	timerSeconds int

	gameName string
	teams    []domain.Team
	quiz     *domain.QuizData

	status      domain.GameStatus
	current     *openQuestion
	timer       int
	buzzed      *int
	lastEvent   *domain.LiveEvent
	lastEventTS int64

	subscribers map[chan domain.LiveGameState]struct{}
}

// openQuestion tracks which cell is on stage, plus the option order shuffled
// once when the question opened so every snapshot shows the same order.
type openQuestion struct {
	categoryIndex int
	questionIndex int
	shuffled      []string
}

// NewEngine builds an engine whose per-question countdown starts at
// timerSeconds.
func NewEngine(timerSeconds int) *Engine {
	return NewEngineWithClock(timerSeconds, time.Now, rand.NewSource(time.Now().UnixNano()))
}

// NewEngineWithClock allows deterministic timestamps and shuffles in tests.
func NewEngineWithClock(timerSeconds int, now func() time.Time, src rand.Source) *Engine {
	if timerSeconds <= 0 {
		timerSeconds = 100
	}
	return &Engine{
		now:          now,
		rnd:          rand.New(src),
		timerSeconds: timerSeconds,
		status:       domain.StatusWaiting,
		subscribers:  make(map[chan domain.LiveGameState]struct{}),
	}
}

// SetTeams replaces the roster. Malformed rosters (empty, non-positive or
// duplicate IDs) are rejected silently.
func (e *Engine) SetTeams(teams []domain.Team) {
	if !validRoster(teams) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teams = domain.CloneTeams(teams)
	e.broadcastLocked()
}

// SetQuizData replaces the board. Invalid shapes are rejected silently;
// validation proper is the ingestion boundary's job.
func (e *Engine) SetQuizData(data domain.QuizData) {
	if !data.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	quiz := data.Clone()
	e.quiz = &quiz
	e.broadcastLocked()
}

// SetGameName records the name used for save slots.
func (e *Engine) SetGameName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gameName = name
}

// GameName returns the current slot name.
func (e *Engine) GameName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gameName
}

// Teams returns a copy of the roster.
func (e *Engine) Teams() []domain.Team {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.CloneTeams(e.teams)
}

// QuizData returns a copy of the board, or false when none is loaded.
func (e *Engine) QuizData() (domain.QuizData, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.quiz == nil {
		return domain.QuizData{}, false
	}
	return e.quiz.Clone(), true
}

// Restore atomically replaces name, teams and board from a saved slot.
// Never a partial merge: the previous session state is gone entirely.
func (e *Engine) Restore(name string, teams []domain.Team, data domain.QuizData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gameName = name
	e.teams = domain.CloneTeams(teams)
	quiz := data.Clone()
	e.quiz = &quiz
	e.status = domain.StatusWaiting
	e.current = nil
	e.timer = 0
	e.buzzed = nil
	e.broadcastLocked()
}

// UpdateTeamScore adds delta to the matching team's score. Unknown teams are
// a no-op: a contract violation upstream must not crash the game.
func (e *Engine) UpdateTeamScore(teamID, delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applyScoreLocked(teamID, delta) {
		e.broadcastLocked()
	}
}

func (e *Engine) applyScoreLocked(teamID, delta int) bool {
	for i := range e.teams {
		if e.teams[i].ID == teamID {
			e.teams[i].Score += delta
			return true
		}
	}
	return false
}

// MarkQuestionAnswered sets the question's terminal fields. Repeat calls
// overwrite idempotently; the record is always internally consistent.
func (e *Engine) MarkQuestionAnswered(categoryIndex, questionIndex int, teamID *int, correct bool, customScore *int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.markAnsweredLocked(categoryIndex, questionIndex, teamID, correct, customScore) {
		e.broadcastLocked()
	}
}

func (e *Engine) markAnsweredLocked(categoryIndex, questionIndex int, teamID *int, correct bool, customScore *int) bool {
	q := e.questionAtLocked(categoryIndex, questionIndex)
	if q == nil {
		return false
	}
	q.Answered = true
	q.AnsweredBy = copyIntPtr(teamID)
	answeredCorrectly := correct
	q.AnsweredCorrectly = &answeredCorrectly
	q.CustomScore = copyIntPtr(customScore)
	return true
}

func (e *Engine) questionAtLocked(categoryIndex, questionIndex int) *domain.Question {
	if e.quiz == nil || categoryIndex < 0 || categoryIndex >= len(e.quiz.Questions) {
		return nil
	}
	col := e.quiz.Questions[categoryIndex]
	if questionIndex < 0 || questionIndex >= len(col) {
		return nil
	}
	return &col[questionIndex]
}

// ResolveCorrect awards the question's face value to the team and closes the
// question as answered correctly.
func (e *Engine) ResolveCorrect(categoryIndex, questionIndex, teamID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.questionAtLocked(categoryIndex, questionIndex)
	if q == nil || !e.teamExistsLocked(teamID) {
		return
	}
	e.applyScoreLocked(teamID, q.Value)
	e.markAnsweredLocked(categoryIndex, questionIndex, &teamID, true, nil)
	e.recordEventLocked(domain.EventCorrect, teamID, q.Value)
	e.closeQuestionLocked()
	e.broadcastLocked()
}

// ResolveWrong subtracts the face value and closes the question as answered
// incorrectly. Negative totals are expected; there is no floor.
func (e *Engine) ResolveWrong(categoryIndex, questionIndex, teamID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.questionAtLocked(categoryIndex, questionIndex)
	if q == nil || !e.teamExistsLocked(teamID) {
		return
	}
	e.applyScoreLocked(teamID, -q.Value)
	e.markAnsweredLocked(categoryIndex, questionIndex, &teamID, false, nil)
	e.recordEventLocked(domain.EventWrong, teamID, -q.Value)
	e.closeQuestionLocked()
	e.broadcastLocked()
}

// ResolveCustom is the malus/bonus path: the host-chosen amount (any sign)
// replaces the face value as the authoritative delta for this resolution.
func (e *Engine) ResolveCustom(categoryIndex, questionIndex, teamID, amount int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.questionAtLocked(categoryIndex, questionIndex)
	if q == nil || !e.teamExistsLocked(teamID) {
		return
	}
	e.applyScoreLocked(teamID, amount)
	custom := amount
	e.markAnsweredLocked(categoryIndex, questionIndex, &teamID, true, &custom)
	e.recordEventLocked(domain.EventAdjust, teamID, amount)
	e.closeQuestionLocked()
	e.broadcastLocked()
}

// AdjustScore changes a team's score without touching any question.
func (e *Engine) AdjustScore(teamID, amount int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.applyScoreLocked(teamID, amount) {
		return
	}
	e.recordEventLocked(domain.EventAdjust, teamID, amount)
	e.broadcastLocked()
}

// OpenQuestion puts a board cell on stage: status QUESTION, timer reset,
// buzz cleared, options shuffled once for the public view. Already-answered
// cells and bad indices are ignored.
func (e *Engine) OpenQuestion(categoryIndex, questionIndex int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.questionAtLocked(categoryIndex, questionIndex)
	if q == nil || q.Answered {
		return false
	}
	shuffled := append([]string(nil), q.Options...)
	e.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	e.current = &openQuestion{
		categoryIndex: categoryIndex,
		questionIndex: questionIndex,
		shuffled:      shuffled,
	}
	e.status = domain.StatusQuestion
	e.timer = e.timerSeconds
	e.buzzed = nil
	e.broadcastLocked()
	return true
}

// RevealAnswer moves an open question to ANSWER_REVEALED.
func (e *Engine) RevealAnswer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != domain.StatusQuestion {
		return
	}
	e.status = domain.StatusAnswerRevealed
	e.broadcastLocked()
}

// CloseQuestion dismisses the open question without resolving it.
func (e *Engine) CloseQuestion() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return
	}
	e.closeQuestionLocked()
	e.broadcastLocked()
}

func (e *Engine) closeQuestionLocked() {
	e.current = nil
	e.status = domain.StatusWaiting
	e.timer = 0
	e.buzzed = nil
}

// Finish marks the game over. Terminal: only ResetGame leaves it.
func (e *Engine) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = domain.StatusFinished
	e.current = nil
	e.timer = 0
	e.buzzed = nil
	e.broadcastLocked()
}

// ResetGame clears teams and quiz data. The two-step host confirmation lives
// upstream; the engine exposes only the single destructive operation.
func (e *Engine) ResetGame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gameName = ""
	e.teams = nil
	e.quiz = nil
	e.status = domain.StatusWaiting
	e.current = nil
	e.timer = 0
	e.buzzed = nil
	e.lastEvent = nil
	e.broadcastLocked()
}

// TickTimer decrements the countdown to zero and returns the remaining
// seconds. Expiry is purely presentational urgency: it never resolves the
// question.
func (e *Engine) TickTimer() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil || e.timer <= 0 {
		return e.timer
	}
	e.timer--
	e.broadcastLocked()
	return e.timer
}

// SetBuzzed records which team pressed the buzzer. Unknown teams are ignored.
func (e *Engine) SetBuzzed(teamID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.teamExistsLocked(teamID) {
		return
	}
	id := teamID
	e.buzzed = &id
	e.broadcastLocked()
}

// ClearBuzzed resets the buzzer.
func (e *Engine) ClearBuzzed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buzzed == nil {
		return
	}
	e.buzzed = nil
	e.broadcastLocked()
}

func (e *Engine) teamExistsLocked(teamID int) bool {
	for i := range e.teams {
		if e.teams[i].ID == teamID {
			return true
		}
	}
	return false
}

// recordEventLocked stamps the event with a strictly increasing timestamp so
// viewers can tell a new event from a redelivered snapshot.
func (e *Engine) recordEventLocked(kind domain.EventType, teamID, amount int) {
	name := ""
	for i := range e.teams {
		if e.teams[i].ID == teamID {
			name = e.teams[i].Name
			break
		}
	}
	ts := e.now().UnixMilli()
	if ts <= e.lastEventTS {
		ts = e.lastEventTS + 1
	}
	e.lastEventTS = ts
	e.lastEvent = &domain.LiveEvent{
		Type:     kind,
		TeamID:   teamID,
		TeamName: name,
		Amount:   amount,
	}
}

// LiveState returns the derived, lossy projection replicated to viewers.
func (e *Engine) LiveState() domain.LiveGameState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.liveStateLocked()
}

func (e *Engine) liveStateLocked() domain.LiveGameState {
	state := domain.LiveGameState{
		Status:             e.status,
		GridState:          e.gridStateLocked(),
		Scores:             domain.CloneTeams(e.teams),
		BuzzedTeam:         copyIntPtr(e.buzzed),
		Timer:              e.timer,
		LastEventTimestamp: e.lastEventTS,
	}
	if e.teams == nil {
		state.Scores = []domain.Team{}
	}
	if e.lastEvent != nil {
		evt := *e.lastEvent
		state.LastEvent = &evt
	}
	if e.current != nil {
		q := e.questionAtLocked(e.current.categoryIndex, e.current.questionIndex)
		if q != nil {
			state.CurrentQuestion = &domain.LiveQuestion{
				Category:        q.Category,
				Question:        q.Question,
				Value:           q.Value,
				Options:         append([]string(nil), q.Options...),
				ShuffledOptions: append([]string(nil), e.current.shuffled...),
			}
		}
	}
	return state
}

func (e *Engine) gridStateLocked() []domain.GridColumn {
	if e.quiz == nil {
		return []domain.GridColumn{}
	}
	grid := make([]domain.GridColumn, len(e.quiz.Categories))
	for i, cat := range e.quiz.Categories {
		cells := make([]domain.GridCell, len(e.quiz.Questions[i]))
		for j, q := range e.quiz.Questions[i] {
			cell := domain.GridCell{
				Value:    q.Value,
				Answered: q.Answered,
			}
			if q.AnsweredCorrectly != nil {
				v := *q.AnsweredCorrectly
				cell.AnsweredCorrectly = &v
			}
			if q.AnsweredBy != nil {
				for t := range e.teams {
					if e.teams[t].ID == *q.AnsweredBy {
						color := e.teams[t].Color
						cell.AnsweredColor = &color
						break
					}
				}
			}
			cells[j] = cell
		}
		grid[i] = domain.GridColumn{Category: cat, Questions: cells}
	}
	return grid
}

// Subscribe returns a channel fed with a snapshot on every state change,
// starting with the current one. The caller must invoke cancel to avoid leaks.
func (e *Engine) Subscribe() (<-chan domain.LiveGameState, func()) {
	ch := make(chan domain.LiveGameState, 8)

	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	initial := e.liveStateLocked()
	e.mu.Unlock()

	ch <- initial

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) broadcastLocked() {
	state := e.liveStateLocked()
	for ch := range e.subscribers {
		select {
		case ch <- state:
		default:
			// Drop the stale snapshot so a slow consumer never blocks the host.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

func validRoster(teams []domain.Team) bool {
	if len(teams) == 0 {
		return false
	}
	seen := make(map[int]struct{}, len(teams))
	for _, t := range teams {
		if t.ID <= 0 {
			return false
		}
		if _, dup := seen[t.ID]; dup {
			return false
		}
		seen[t.ID] = struct{}{}
	}
	return true
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
