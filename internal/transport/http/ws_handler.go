package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"omniquiz-service/internal/app"
	"omniquiz-service/internal/domain"
	"omniquiz-service/internal/ingest"
)

// WSHandler exposes the game over websockets: a host console endpoint with
// full transition authority, and a passive live endpoint whose only inbound
// message is the buzz side channel.
type WSHandler struct {
	service  *app.GameService
	live     app.LiveDocument
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, live app.LiveDocument) *WSHandler {
	return &WSHandler{
		service: service,
		live:    live,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type teamsPayload struct {
	Teams []domain.Team `json:"teams"`
}

type quizPayload struct {
	QuizData domain.QuizData `json:"quizData"`
}

type uploadPayload struct {
	Workbook []byte `json:"workbook"` // base64 via JSON encoding
}

type cellPayload struct {
	CategoryIndex int `json:"categoryIndex"`
	QuestionIndex int `json:"questionIndex"`
}

type resolvePayload struct {
	CategoryIndex int `json:"categoryIndex"`
	QuestionIndex int `json:"questionIndex"`
	TeamID        int `json:"teamId"`
	Amount        int `json:"amount,omitempty"`
}

type adjustPayload struct {
	TeamID int `json:"teamId"`
	Amount int `json:"amount"`
}

type slotPayload struct {
	Name string `json:"name"`
}

type liveModePayload struct {
	Enabled bool `json:"enabled"`
}

type buzzPayload struct {
	TeamID int `json:"teamId"`
}

type titlePayload struct {
	Title string `json:"title"`
}

type idPayload struct {
	ID string `json:"id"`
}

// ServeHost drives the session engine from host console messages. Every
// handled message is acknowledged with a fresh state snapshot.
func (h *WSHandler) ServeHost(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("host ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	engine := h.service.Engine()
	ctx := r.Context()

	send := func(msg outboundMessage[any]) {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("host ws write error: %v", err)
		}
	}
	sendState := func() {
		send(outboundMessage[any]{Type: "state", Payload: engine.LiveState()})
	}
	sendError := func(message string) {
		send(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
	}

	sendState()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "setTeams":
			var payload teamsPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid teams payload")
				continue
			}
			engine.SetTeams(payload.Teams)
		case "setQuiz":
			var payload quizPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid quiz payload")
				continue
			}
			engine.SetQuizData(payload.QuizData)
		case "uploadQuiz":
			var payload uploadPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid workbook payload")
				continue
			}
			data, err := ingest.ParseWorkbook(payload.Workbook)
			if err != nil {
				sendError(err.Error())
				continue
			}
			engine.SetQuizData(data)
		case "openQuestion":
			var payload cellPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid question payload")
				continue
			}
			engine.OpenQuestion(payload.CategoryIndex, payload.QuestionIndex)
		case "reveal":
			engine.RevealAnswer()
		case "close":
			engine.CloseQuestion()
		case "correct":
			var payload resolvePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid resolve payload")
				continue
			}
			engine.ResolveCorrect(payload.CategoryIndex, payload.QuestionIndex, payload.TeamID)
		case "wrong":
			var payload resolvePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid resolve payload")
				continue
			}
			engine.ResolveWrong(payload.CategoryIndex, payload.QuestionIndex, payload.TeamID)
		case "custom":
			var payload resolvePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid resolve payload")
				continue
			}
			engine.ResolveCustom(payload.CategoryIndex, payload.QuestionIndex, payload.TeamID, payload.Amount)
		case "adjust":
			var payload adjustPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid adjust payload")
				continue
			}
			engine.AdjustScore(payload.TeamID, payload.Amount)
		case "tick":
			engine.TickTimer()
		case "clearBuzz":
			engine.ClearBuzzed()
		case "finish":
			engine.Finish()
		case "reset":
			engine.ResetGame()
		case "live":
			var payload liveModePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid live payload")
				continue
			}
			h.service.SetLiveMode(ctx, payload.Enabled)
		case "save":
			var payload slotPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid save payload")
				continue
			}
			if _, err := h.service.SaveCurrentGame(ctx, payload.Name); err != nil {
				sendError(err.Error())
				continue
			}
		case "load":
			var payload slotPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid load payload")
				continue
			}
			if err := h.service.LoadSavedGame(ctx, payload.Name); err != nil {
				sendError(err.Error())
				continue
			}
		case "saveQuiz":
			var payload titlePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid save quiz payload")
				continue
			}
			if _, err := h.service.SaveCurrentQuizToLibrary(ctx, payload.Title); err != nil {
				sendError(err.Error())
				continue
			}
		case "useQuiz":
			var payload idPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid use quiz payload")
				continue
			}
			if err := h.service.UseLibraryQuiz(ctx, payload.ID); err != nil {
				sendError(err.Error())
				continue
			}
		default:
			sendError("unsupported message type")
			continue
		}
		sendState()
	}
}

// ServeLive streams document snapshots to a passive viewer. The viewer has no
// transition authority; its only inbound message is a buzz-in.
func (h *WSHandler) ServeLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	updates, cancel, err := h.live.Subscribe(ctx)
	if err != nil {
		// Replication outage: tell the viewer and bail; the host is unaffected.
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "live feed unavailable"}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("live ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: state}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "buzz":
			var payload buzzPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			if err := h.service.Buzz(ctx, payload.TeamID); err != nil {
				log.Printf("buzz forward failed: %v", err)
			}
		default:
			// Viewers are read-only; ignore anything else.
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
