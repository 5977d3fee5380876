package domain

import "time"

// GameStatus tells the live view what to render.
type GameStatus string

const (
	StatusWaiting        GameStatus = "WAITING"
	StatusQuestion       GameStatus = "QUESTION"
	StatusAnswerRevealed GameStatus = "ANSWER_REVEALED"
	StatusActive         GameStatus = "ACTIVE"
	StatusFinished       GameStatus = "FINISHED"
)

// EventType classifies the discrete scoring events viewers celebrate with a popup.
type EventType string

const (
	EventCorrect EventType = "CORRECT"
	EventWrong   EventType = "WRONG"
	EventAdjust  EventType = "ADJUST"
)

// Team represents one competing team. IDs are assigned at setup (1..N) and
// stay stable for the whole session; the score is signed and unbounded.
type Team struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Score int    `json:"score"`
}

// Question is one cell of the quiz board. The terminal fields (Answered,
// AnsweredBy, AnsweredCorrectly, CustomScore) are the only mutable part of a
// loaded quiz: while Answered is false all three optional fields must be nil,
// and once Answered flips to true it never reverts within a session.
type Question struct {
	Category          string   `json:"category"`
	Value             int      `json:"value"`
	Question          string   `json:"question"`
	Answer            string   `json:"answer"`
	Options           []string `json:"options,omitempty"`
	Answered          bool     `json:"answered"`
	AnsweredBy        *int     `json:"answeredBy,omitempty"`
	AnsweredCorrectly *bool    `json:"answeredCorrectly,omitempty"`
	CustomScore       *int     `json:"customScore,omitempty"`
}

// QuizData is the board for one game: Questions[i] holds the questions for
// Categories[i], in source row order (order is display-significant).
type QuizData struct {
	Categories []string     `json:"categories"`
	Questions  [][]Question `json:"questions"`
}

// Valid reports whether the parallel-list shape holds: non-empty unique
// categories, one question list per category. The engine assumes valid data
// and silently rejects anything else.
func (q QuizData) Valid() bool {
	if len(q.Categories) == 0 || len(q.Categories) != len(q.Questions) {
		return false
	}
	seen := make(map[string]struct{}, len(q.Categories))
	for i, cat := range q.Categories {
		if cat == "" {
			return false
		}
		if _, dup := seen[cat]; dup {
			return false
		}
		seen[cat] = struct{}{}
		if q.Questions[i] == nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy, so saved slots never alias the live session.
func (q QuizData) Clone() QuizData {
	out := QuizData{
		Categories: append([]string(nil), q.Categories...),
		Questions:  make([][]Question, len(q.Questions)),
	}
	for i, col := range q.Questions {
		out.Questions[i] = make([]Question, len(col))
		for j, question := range col {
			out.Questions[i][j] = question.clone()
		}
	}
	return out
}

func (q Question) clone() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	out.AnsweredBy = cloneIntPtr(q.AnsweredBy)
	out.AnsweredCorrectly = cloneBoolPtr(q.AnsweredCorrectly)
	out.CustomScore = cloneIntPtr(q.CustomScore)
	return out
}

// CloneTeams deep-copies a roster.
func CloneTeams(teams []Team) []Team {
	return append([]Team(nil), teams...)
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBoolPtr(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SavedGame is a named persistence slot. GameName is the upsert key: saving
// twice under one name overwrites in place, with a fresh ID and timestamp.
type SavedGame struct {
	ID       string    `json:"id"`
	GameName string    `json:"gameName"`
	Teams    []Team    `json:"teams"`
	QuizData QuizData  `json:"quizData"`
	SavedAt  time.Time `json:"savedAt"`
}

// SavedQuiz is a reusable quiz pack in the library, independent of any session.
type SavedQuiz struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Data    QuizData  `json:"data"`
	SavedAt time.Time `json:"savedAt"`
}

// LiveQuestion is the public projection of an open question. It deliberately
// has no answer field: the answer text never travels to viewers.
type LiveQuestion struct {
	Category        string   `json:"category"`
	Question        string   `json:"question"`
	Value           int      `json:"value"`
	Options         []string `json:"options,omitempty"`
	ShuffledOptions []string `json:"shuffledOptions,omitempty"`
}

// GridCell mirrors one board cell for the live grid.
type GridCell struct {
	Value             int     `json:"value"`
	Answered          bool    `json:"answered"`
	AnsweredCorrectly *bool   `json:"answeredCorrectly,omitempty"`
	AnsweredColor     *string `json:"answeredColor,omitempty"`
}

// GridColumn is the per-category list of cells.
type GridColumn struct {
	Category  string     `json:"category"`
	Questions []GridCell `json:"questions"`
}

// LiveEvent is the discrete event viewers show a popup for.
type LiveEvent struct {
	Type     EventType `json:"type"`
	TeamID   int       `json:"teamId"`
	TeamName string    `json:"teamName"`
	Amount   int       `json:"amount"`
}

// LiveGameState is the full snapshot replicated to viewers. The writer always
// replaces the whole document; LastEventTimestamp advances strictly so viewers
// can deduplicate popups across redelivered snapshots.
type LiveGameState struct {
	Status             GameStatus    `json:"status"`
	CurrentQuestion    *LiveQuestion `json:"currentQuestion"`
	GridState          []GridColumn  `json:"gridState"`
	Scores             []Team        `json:"scores"`
	BuzzedTeam         *int          `json:"buzzedTeam"`
	Timer              int           `json:"timer"`
	LastEvent          *LiveEvent    `json:"lastEvent"`
	LastEventTimestamp int64         `json:"lastEventTimestamp,omitempty"`
}
