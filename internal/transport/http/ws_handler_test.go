package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ecoquest-service/internal/ai"
	"ecoquest-service/internal/app"
	"ecoquest-service/internal/auth"
	"ecoquest-service/internal/domain"
	"ecoquest-service/internal/infra/local"
	"ecoquest-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.ProfileService) {
	t.Helper()

	store, err := local.Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	profiles := app.NewProfileService(store)
	questions := app.NewQuestionService(memory.NewQuestionRepository(
		memory.NewStaticQuestionLoader(testBank()), time.Minute))
	community := app.NewCommunityService(store)
	assistant := ai.NewAssistant(nil)
	verifier := auth.AnonymousVerifier{}

	wsHandler := NewWSHandler(profiles, questions, assistant, verifier, app.SessionConfig{
		QuestionLimit: 5 * time.Second,
		ResultDelay:   10 * time.Millisecond,
	})
	communityHandler := NewCommunityWSHandler(community, verifier)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/ws/community", communityHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, profiles
}

func testBank() map[domain.Topic]domain.QuestionSet {
	return map[domain.Topic]domain.QuestionSet{
		domain.TopicRecycling: {
			Topic: domain.TopicRecycling,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "First", Options: []domain.Option{
					{ID: "o1", Text: "Wrong"},
					{ID: "o2", Text: "Right", Correct: true},
				}},
				{ID: "q2", Prompt: "Second", Options: []domain.Option{
					{ID: "o1", Text: "Right", Correct: true},
					{ID: "o2", Text: "Wrong"},
				}},
			},
		},
	}
}

func dialWS(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of the wanted type arrives; unrelated
// pushes (like interleaved profile snapshots) are skipped.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		// Payload stays raw while skipping unrelated pushes: some message
		// types (e.g. groups/messages snapshots) carry arrays, not objects.
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			var payload map[string]any
			_ = json.Unmarshal(msg.Payload, &payload)
			return payload
		}
		if msg.Type == "error" {
			var payload map[string]any
			_ = json.Unmarshal(msg.Payload, &payload)
			t.Fatalf("waiting for %s, got error: %v", want, payload["message"])
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestWebSocketQuizFlow(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialWS(t, server, "/ws?token=u1")

	profile := readUntil(t, conn, "profile")
	if profile["id"] != "u1" {
		t.Fatalf("expected initial profile for u1, got %v", profile)
	}

	send(t, conn, "startQuiz", map[string]any{"topic": "recycling"})
	question := readUntil(t, conn, "question")
	if question["prompt"] != "First" || question["total"] != float64(2) {
		t.Fatalf("unexpected first question %v", question)
	}
	if _, ok := question["options"].([]any); !ok {
		t.Fatalf("expected options list, got %v", question["options"])
	}

	send(t, conn, "answer", map[string]any{"optionId": "o2"})
	result := readUntil(t, conn, "answerResult")
	if result["correct"] != true || result["score"] != float64(10) {
		t.Fatalf("unexpected answer result %v", result)
	}

	question = readUntil(t, conn, "question")
	if question["prompt"] != "Second" {
		t.Fatalf("expected second question, got %v", question)
	}
	send(t, conn, "answer", map[string]any{"optionId": "o2"}) // wrong on purpose

	completed := readUntil(t, conn, "quizCompleted")
	if completed["score"] != float64(10) || completed["correct"] != float64(1) || completed["total"] != float64(2) {
		t.Fatalf("unexpected completion %v", completed)
	}
	if report, ok := completed["report"].(map[string]any); !ok || report["analysis"] == "" {
		t.Fatalf("expected completion report, got %v", completed["report"])
	}
}

func TestWebSocketPersistsProgress(t *testing.T) {
	server, profiles := newTestServer(t)
	conn := dialWS(t, server, "/ws?token=u1")

	readUntil(t, conn, "profile")
	send(t, conn, "startQuiz", map[string]any{"topic": "recycling"})
	readUntil(t, conn, "question")
	send(t, conn, "answer", map[string]any{"optionId": "o2"})
	readUntil(t, conn, "question")
	send(t, conn, "answer", map[string]any{"optionId": "o1"})
	readUntil(t, conn, "quizCompleted")

	waitFor(t, func() bool {
		profile, err := profiles.GetProfile(context.Background(), "u1")
		return err == nil && profile.QuizzesDone == 1 && profile.EcoPoints == 40 && profile.Experience == 20
	})
}

func TestWebSocketRejectsUnknownTopic(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialWS(t, server, "/ws?token=u1")

	readUntil(t, conn, "profile")
	send(t, conn, "startQuiz", map[string]any{"topic": "astrology"})

	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("expected error, got %s", msg.Type)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	server, _ := newTestServer(t)
	u := "ws" + server.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial failure without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestWebSocketChat(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialWS(t, server, "/ws?token=u1")

	readUntil(t, conn, "profile")
	send(t, conn, "chat", map[string]any{"text": "any recycling tips?"})
	chunkPayload := readUntil(t, conn, "chatChunk")
	if chunkPayload["text"] == "" {
		t.Fatalf("expected chat text, got %v", chunkPayload)
	}
	readUntil(t, conn, "chatDone")
}

func TestCommunityWebSocketFlow(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialWS(t, server, "/ws/community?token=u1")

	readUntil(t, conn, "groups")

	send(t, conn, "createGroup", map[string]any{"name": "Green Team", "description": "save trees"})
	created := readUntil(t, conn, "groupCreated")
	groupID, _ := created["id"].(string)
	if groupID == "" || created["ownerId"] != "u1" {
		t.Fatalf("unexpected group %v", created)
	}

	send(t, conn, "join", map[string]any{"groupId": groupID})
	readUntil(t, conn, "messages")

	send(t, conn, "send", map[string]any{"groupId": groupID, "text": "hello all"})
	sent := readUntil(t, conn, "messageSent")
	if sent["text"] != "hello all" || sent["authorId"] != "u1" {
		t.Fatalf("unexpected message %v", sent)
	}

	send(t, conn, "send", map[string]any{"groupId": groupID, "text": "   "})
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("expected validation error, got %s", msg.Type)
	}
}

func TestCommunityDeleteRequiresOwner(t *testing.T) {
	server, _ := newTestServer(t)
	owner := dialWS(t, server, "/ws/community?token=owner")
	readUntil(t, owner, "groups")
	send(t, owner, "createGroup", map[string]any{"name": "Green Team"})
	created := readUntil(t, owner, "groupCreated")
	groupID, _ := created["id"].(string)

	intruder := dialWS(t, server, "/ws/community?token=intruder")
	readUntil(t, intruder, "groups")
	send(t, intruder, "deleteGroup", map[string]any{"groupId": groupID})
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = intruder.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := intruder.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("expected ownership error, got %s", msg.Type)
	}

	send(t, owner, "deleteGroup", map[string]any{"groupId": groupID})
	readUntil(t, owner, "groupDeleted")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

// writeCaptureDispatcher captures the reducer's display value at the moment a
// write is forwarded, standing in for a subscription push racing the write.
type writeCaptureDispatcher struct {
	reducer   *app.ProgressReducer
	ecoAtSend []int
}

func (d *writeCaptureDispatcher) ApplyDelta(_ context.Context, _ string, _ domain.ProgressDelta) error {
	if view, ok := d.reducer.Current(); ok {
		d.ecoAtSend = append(d.ecoAtSend, view.EcoPoints)
	}
	return nil
}

func (d *writeCaptureDispatcher) FinalizeQuiz(context.Context, string, int) error { return nil }

func TestOptimisticDeltaRecordedBeforeWrite(t *testing.T) {
	reducer := app.NewProgressReducer()
	reducer.Reconcile(domain.UserProfile{ID: "u1", EcoPoints: 100, Experience: 100, Level: 1})

	next := &writeCaptureDispatcher{reducer: reducer}
	dispatch := &optimisticDispatcher{reducer: reducer, next: next}

	delta := domain.ProgressDelta{EcoPoints: app.PointsPerCorrectAnswer, Experience: app.PointsPerCorrectAnswer}
	if err := dispatch.ApplyDelta(context.Background(), "u1", delta); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if len(next.ecoAtSend) != 1 || next.ecoAtSend[0] != 110 {
		t.Fatalf("delta not pending when the write went out: %v", next.ecoAtSend)
	}

	// A covering push arriving right after the write clears the pending
	// delta instead of stacking on top of it.
	reducer.Reconcile(domain.UserProfile{ID: "u1", EcoPoints: 110, Experience: 110, Level: 1})
	view, ok := reducer.Current()
	if !ok {
		t.Fatalf("reducer lost its snapshot")
	}
	if view.EcoPoints != 110 || view.Experience != 110 {
		t.Fatalf("covered delta counted twice: eco=%d xp=%d", view.EcoPoints, view.Experience)
	}
}
