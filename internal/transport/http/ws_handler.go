package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"ecoquest-service/internal/ai"
	"ecoquest-service/internal/app"
	"ecoquest-service/internal/auth"
	"ecoquest-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	profiles   *app.ProfileService
	questions  *app.QuestionService
	assistant  *ai.Assistant
	verifier   auth.Verifier
	sessionCfg app.SessionConfig
	upgrader   websocket.Upgrader
}

func NewWSHandler(profiles *app.ProfileService, questions *app.QuestionService, assistant *ai.Assistant, verifier auth.Verifier, sessionCfg app.SessionConfig) *WSHandler {
	return &WSHandler{
		profiles:   profiles,
		questions:  questions,
		assistant:  assistant,
		verifier:   verifier,
		sessionCfg: sessionCfg,
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

type startQuizPayload struct {
	Topic string `json:"topic"`
}

type answerPayload struct {
	OptionID string `json:"optionId"`
}

type chatPayload struct {
	Text string `json:"text"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// questionView is a question with the correct flags stripped; the client
// never learns the answer before the result is shown.
type questionView struct {
	Index            int          `json:"index"`
	Total            int          `json:"total"`
	ID               string       `json:"id"`
	Prompt           string       `json:"prompt"`
	Options          []optionView `json:"options"`
	TimeLimitSeconds int          `json:"timeLimitSeconds"`
	Score            int          `json:"score"`
}

type answerResultView struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correctOption"`
	Explanation   string `json:"explanation,omitempty"`
	Score         int    `json:"score"`
}

type quizCompletedView struct {
	Topic   string                `json:"topic"`
	Score   int                   `json:"score"`
	Correct int                   `json:"correct"`
	Total   int                   `json:"total"`
	Results []domain.AnswerRecord `json:"results"`
	Report  ai.Analysis           `json:"report"`
}

type chatChunkView struct {
	Text string `json:"text"`
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// ServeWS is the per-user session socket: profile feed, quiz play, assistant
// chat, and tree planting all run over one connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wsSessionsActive.Inc()
	defer wsSessionsActive.Dec()

	ctx := r.Context()
	if err := h.profiles.CreateProfile(ctx, identity.ID, identity.Email, identity.DisplayName, identity.Role); err != nil {
		log.Printf("profile create for %s: %v", identity.ID, err)
	}

	updates, cancel, err := h.profiles.Subscribe(ctx, identity.ID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	reducer := app.NewProgressReducer()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var pumps sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	sendMsg := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}
	pushProfile := func() {
		if view, ok := reducer.Current(); ok {
			sendMsg(outboundMessage[any]{Type: "profile", Payload: view})
		}
	}

	pumps.Add(1)
	go func() {
		defer pumps.Done()
		for {
			select {
			case p, ok := <-updates:
				if !ok {
					return
				}
				reducer.Reconcile(p)
				pushProfile()
			case <-closeSignals:
				return
			}
		}
	}()

	var session *app.QuizSession

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "startQuiz":
			var payload startQuizPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid startQuiz payload"}})
				continue
			}
			if session != nil && session.State() != app.StateCompleted {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "a quiz is already in progress"}})
				continue
			}
			topic := domain.Topic(payload.Topic)
			set, err := h.questions.GetQuestionSet(ctx, topic)
			if err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			dispatch := &optimisticDispatcher{reducer: reducer, next: h.profiles}
			session = app.NewQuizSession(identity.ID, set, dispatch, h.sessionCfg)

			pumps.Add(1)
			go func(s *app.QuizSession, topic domain.Topic, total int) {
				defer pumps.Done()
				h.pumpSession(ctx, s, topic, total, identity.ID, sendMsg, pushProfile)
			}(session, topic, len(set.Questions))

			if err := session.Start(ctx); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			if session == nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: domain.ErrSessionNotActive.Error()}})
				continue
			}
			if _, err := session.SelectAnswer(payload.OptionID); err != nil {
				// Late clicks while the result is showing are expected; they
				// are dropped without an error message.
				continue
			}
		case "chat":
			var payload chatPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid chat payload"}})
				continue
			}
			pumps.Add(1)
			go func(text string) {
				defer pumps.Done()
				for part := range h.assistant.Reply(ctx, text) {
					sendMsg(outboundMessage[any]{Type: "chatChunk", Payload: chatChunkView{Text: part}})
				}
				sendMsg(outboundMessage[any]{Type: "chatDone", Payload: struct{}{}})
			}(payload.Text)
		case "plantTree":
			if err := h.profiles.RecordTreePlanted(ctx, identity.ID); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			h.maybeAward(ctx, identity.ID, domain.BadgeTreePlanter)
		default:
			sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	if session != nil {
		session.Abort()
	}
	close(closeSignals)
	pumps.Wait()
	close(send)
	<-writerDone
}

// optimisticDispatcher records each delta in the connection's reducer before
// the store write goes out. An authoritative push that already covers the
// write is then reconciled against a pending delta instead of arriving ahead
// of it and being counted twice.
type optimisticDispatcher struct {
	reducer *app.ProgressReducer
	next    app.ProgressDispatcher
}

func (d *optimisticDispatcher) ApplyDelta(ctx context.Context, id string, delta domain.ProgressDelta) error {
	d.reducer.Apply(delta)
	return d.next.ApplyDelta(ctx, id, delta)
}

func (d *optimisticDispatcher) FinalizeQuiz(ctx context.Context, id string, scoreIncrement int) error {
	return d.next.FinalizeQuiz(ctx, id, scoreIncrement)
}

// pumpSession forwards session transitions to the socket and runs the
// completion report.
func (h *WSHandler) pumpSession(ctx context.Context, session *app.QuizSession, topic domain.Topic, total int, userID string, sendMsg func(outboundMessage[any]), pushProfile func()) {
	for event := range session.Events() {
		switch event.Type {
		case app.EventQuestion:
			q := event.Question
			options := make([]optionView, 0, len(q.Options))
			for _, opt := range q.Options {
				options = append(options, optionView{ID: opt.ID, Text: opt.Text})
			}
			sendMsg(outboundMessage[any]{Type: "question", Payload: questionView{
				Index:            event.QuestionIndex,
				Total:            total,
				ID:               q.ID,
				Prompt:           q.Prompt,
				Options:          options,
				TimeLimitSeconds: int(h.questionLimit() / time.Second),
				Score:            event.Score,
			}})
		case app.EventAnswerResult:
			sendMsg(outboundMessage[any]{Type: "answerResult", Payload: answerResultView{
				QuestionID:    event.Result.QuestionID,
				Correct:       event.Result.Correct,
				CorrectOption: event.Result.CorrectOption,
				Explanation:   event.Result.Explanation,
				Score:         event.Score,
			}})
			pushProfile()
		case app.EventCompleted:
			correct := 0
			for _, r := range event.Results {
				if r.Correct {
					correct++
				}
			}
			title, err := topic.Title()
			if err != nil {
				title = string(topic)
			}
			report := h.assistant.Analyze(ctx, title, event.Results)
			sendMsg(outboundMessage[any]{Type: "quizCompleted", Payload: quizCompletedView{
				Topic:   string(topic),
				Score:   event.Score,
				Correct: correct,
				Total:   total,
				Results: event.Results,
				Report:  report,
			}})
			h.awardQuizBadges(ctx, userID, correct, total)
			pushProfile()
		}
	}
}

func (h *WSHandler) questionLimit() time.Duration {
	if h.sessionCfg.QuestionLimit > 0 {
		return h.sessionCfg.QuestionLimit
	}
	return 20 * time.Second
}

// ecoWarriorThreshold is the eco-point total that earns the eco-warrior badge.
const ecoWarriorThreshold = 500

func (h *WSHandler) awardQuizBadges(ctx context.Context, userID string, correct, total int) {
	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("badge check read for %s: %v", userID, err)
		return
	}
	h.maybeAwardHeld(ctx, profile, domain.BadgeFirstQuiz)
	if total > 0 && correct == total {
		h.maybeAwardHeld(ctx, profile, domain.BadgeQuizMaster)
	}
	if profile.EcoPoints >= ecoWarriorThreshold {
		h.maybeAwardHeld(ctx, profile, domain.BadgeEcoWarrior)
	}
}

func (h *WSHandler) maybeAwardHeld(ctx context.Context, profile domain.UserProfile, badge domain.Badge) {
	if profile.HasBadge(string(badge)) {
		return
	}
	if err := h.profiles.AwardBadge(ctx, profile.ID, badge); err != nil {
		log.Printf("award badge %s for %s: %v", badge, profile.ID, err)
	}
}

func (h *WSHandler) maybeAward(ctx context.Context, userID string, badge domain.Badge) {
	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("badge check read for %s: %v", userID, err)
		return
	}
	h.maybeAwardHeld(ctx, profile, badge)
}
