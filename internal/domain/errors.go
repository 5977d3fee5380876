package domain

import "errors"

var (
	// ErrInvalidFormat is returned when ingested spreadsheet data fails the
	// minimum-shape checks (header plus at least one data row).
	ErrInvalidFormat = errors.New("invalid quiz file format")
	// ErrGameNotFound is returned when no saved slot matches the requested name.
	ErrGameNotFound = errors.New("saved game not found")
	// ErrQuizNotFound indicates a quiz pack could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoActiveGame is returned when an operation needs a loaded session
	// (teams and quiz data) and there is none.
	ErrNoActiveGame = errors.New("no active game")
)
