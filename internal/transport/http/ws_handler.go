package http

import (
	"encoding/json"
	"log"
	"net/http"

	"audit-readiness-service/internal/app"
	"audit-readiness-service/internal/domain"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// TeamWSHandler is the live channel of a team session.
type TeamWSHandler struct {
	service  *app.TeamService
	upgrader websocket.Upgrader
}

func NewTeamWSHandler(service *app.TeamService) *TeamWSHandler {
	return &TeamWSHandler{
		service: service,
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

type answerPayload struct {
	QuestionID string        `json:"questionId"`
	Answer     domain.Answer `json:"answer"`
	Confidence int           `json:"confidence"`
	Rationale  string        `json:"rationale"`
}

type votePayload struct {
	QuestionID string        `json:"questionId"`
	Answer     domain.Answer `json:"answer"`
}

type notePayload struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
}

type voteResult struct {
	QuestionID       string               `json:"questionId"`
	Phase            domain.QuestionPhase `json:"phase"`
	Round            *domain.VotingRound  `json:"round,omitempty"`
	ConsensusReached bool                 `json:"consensusReached"`
	FinalAnswer      *domain.Answer       `json:"finalAnswer,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades GET /v1/ws/teams/{id}?memberId=&name=&role= and wires the
// connection into the team use cases.
func (h *TeamWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["id"]
	member := domain.Member{
		ID:   r.URL.Query().Get("memberId"),
		Name: r.URL.Query().Get("name"),
		Role: r.URL.Query().Get("role"),
	}
	if teamID == "" || member.ID == "" || member.Name == "" {
		http.Error(w, "missing team id, memberId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.Join(r.Context(), teamID, member)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), teamID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(r.Context(), teamID, member.ID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "team", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joined}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.handle(r, teamID, member.ID, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle applies one inbound message. Successful answers and notes reply only
// through the team broadcast; votes also get a voteResult.
func (h *TeamWSHandler) handle(r *http.Request, teamID, memberID string, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload"), true
		}
		_, _, err := h.service.SubmitIndividual(ctx, teamID, memberID, payload.QuestionID, domain.IndividualResponse{
			Answer:     payload.Answer,
			Confidence: payload.Confidence,
			Rationale:  payload.Rationale,
		})
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	case "vote":
		var payload votePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid vote payload"), true
		}
		snap, tr, err := h.service.Vote(ctx, teamID, memberID, payload.QuestionID, payload.Answer)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		result := voteResult{
			QuestionID:       payload.QuestionID,
			ConsensusReached: tr.ConsensusReached,
			FinalAnswer:      tr.FinalAnswer,
		}
		for _, q := range snap.Questions {
			if q.QuestionID == payload.QuestionID {
				result.Phase = q.Phase
			}
		}
		if n := len(tr.Rounds); n > 0 {
			round := tr.Rounds[n-1]
			result.Round = &round
		}
		return outboundMessage[any]{Type: "voteResult", Payload: result}, true
	case "note":
		var payload notePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid note payload"), true
		}
		if _, _, err := h.service.AddNote(ctx, teamID, memberID, payload.QuestionID, payload.Text); err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	default:
		return errorMessage("unsupported message type"), true
	}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
