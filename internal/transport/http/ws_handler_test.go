package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"applicant-assessment-service/internal/app"
	"applicant-assessment-service/internal/delivery"
	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/hint"
	"applicant-assessment-service/internal/infra/memory"
	"applicant-assessment-service/internal/llm"
	"applicant-assessment-service/internal/scoring"
)

type testEnv struct {
	server   *httptest.Server
	service  *app.AssessmentService
	results  *memory.ResultStore
	pipeline *delivery.Pipeline
}

func newTestEnv(t *testing.T, provider llm.Provider) *testEnv {
	t.Helper()
	results := memory.NewResultStore()
	certs, err := delivery.NewCertificateIssuer("test-salt", "Generator Technician Knowledge Test", "Generator Source")
	if err != nil {
		t.Fatalf("certificate issuer: %v", err)
	}
	router := delivery.NewRouter(map[string]string{"Austin, TX": "jbrown@generatorsource.com"}, "emett@generatorsource.com", true)
	pipeline := delivery.NewPipeline(results, results, router, delivery.NewRenderer(delivery.DefaultBranding()), delivery.LogNotifier{}, certs, delivery.Options{})

	banks := memory.NewQuestionBankRepository(memory.NewStaticBankLoader(sampleBank()), time.Minute)
	cfg := app.ServiceConfig{Session: app.DefaultSessionConfig(), DefaultBankID: "default"}
	cfg.Session.TickInterval = time.Hour

	gateway := hint.NewGateway(provider, time.Second)
	service := app.NewAssessmentService(memory.NewSessionStore(), banks, gateway, pipeline, certs, cfg)

	handler := NewRouter(Handlers{
		Sessions: NewSessionHandler(service),
		Submit:   NewSubmitHandler(pipeline, domain.DefaultIntakeProfile(), scoring.DefaultConfig()),
		Help:     NewHelpHandler(gateway),
		WS:       NewWSHandler(service),
	}, RouterOptions{})
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		pipeline.Wait()
	})
	return &testEnv{server: server, service: service, results: results, pipeline: pipeline}
}

func sampleBank() domain.QuestionBank {
	bank := domain.QuestionBank{ID: "default"}
	for i := 0; i < 3; i++ {
		bank.Questions = append(bank.Questions, domain.Question{
			Text:          fmt.Sprintf("Question %d", i+1),
			Category:      "Generators",
			Options:       []string{"Alpha", "Bravo", "Charlie"},
			CorrectLetter: "B",
		})
	}
	return bank
}

func sampleIntake() domain.Intake {
	return domain.Intake{
		Applicant:    domain.Applicant{Name: "Robin", Email: "robin@example.com", Phone: "555-0100"},
		Branch:       "Austin, TX",
		SelfDeclared: domain.LevelIntermediate,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	snap, err := env.service.CreateSession(ctx, sampleIntake())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := env.service.Start(ctx, snap.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	u := "ws" + env.server.URL[len("http"):] + "/ws?sessionId=" + snap.ID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, payload := readNext(t, conn)
	if typ != "snapshot" {
		t.Fatalf("expected snapshot first, got %s", typ)
	}
	first := decode[app.SessionSnapshot](t, payload)
	if first.Status != app.StatusInProgress || first.TotalQuestions != 3 {
		t.Fatalf("unexpected initial snapshot: %+v", first)
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"index": 0, "letter": "b"}})
	waitForSnapshot(t, conn, func(s app.SessionSnapshot) bool { return s.Answers[0] == "B" })

	send(t, conn, map[string]any{"type": "bogus"})
	if typ, _ := readUntil(t, conn, "error"); typ != "error" {
		t.Fatalf("expected error for unsupported type")
	}

	send(t, conn, map[string]any{"type": "submit"})
	_, raw := readUntil(t, conn, "submitted")
	outcome := decode[app.SubmitOutcome](t, raw)
	if outcome.Record == nil || outcome.Result.RawCorrectCount != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)
	u := "ws" + env.server.URL[len("http"):] + "/ws?sessionId=missing"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func readUntil(t *testing.T, conn *websocket.Conn, want string) (string, json.RawMessage) {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(t, conn)
		if typ == want {
			return typ, payload
		}
	}
	t.Fatalf("never received %s", want)
	return "", nil
}

func waitForSnapshot(t *testing.T, conn *websocket.Conn, ok func(app.SessionSnapshot) bool) {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(t, conn)
		if typ != "snapshot" {
			continue
		}
		if ok(decode[app.SessionSnapshot](t, payload)) {
			return
		}
	}
	t.Fatalf("expected snapshot never arrived")
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	status, body := env.do(t, http.MethodGet, "/healthz", nil)
	if status != http.StatusOK || strings.TrimSpace(string(body)) != "ok" {
		t.Fatalf("unexpected healthz: %d %s", status, body)
	}
}

func TestEnqueueReturnsOnceWriterExits(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})
	msg := outboundMessage[any]{Type: "snapshot"}

	if !enqueue(send, writerDone, msg) {
		t.Fatalf("expected buffered send to succeed")
	}
	close(writerDone)

	done := make(chan bool, 1)
	go func() { done <- enqueue(send, writerDone, msg) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected enqueue to report the writer gone")
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full buffer after the writer exited")
	}
}
