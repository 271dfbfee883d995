package quiz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/config"
	"github.com/nextlevelbuilder/musebot/internal/store"
)

type memQuizStore struct {
	mu      sync.Mutex
	results []store.QuizResult
}

func (s *memQuizStore) SaveResult(_ context.Context, res store.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

func (s *memQuizStore) QuestionStats(_ context.Context, question string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var correct, wrong int
	for _, r := range s.results {
		if r.Question != question {
			continue
		}
		if r.Correct {
			correct++
		} else {
			wrong++
		}
	}
	return correct, wrong, nil
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []bus.OutboundMessage
}

func (s *recordingSink) PublishOutbound(msg bus.OutboundMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func newTestBroadcaster() (*Broadcaster, *memQuizStore, *recordingSink) {
	results := &memQuizStore{}
	sink := &recordingSink{}
	b := New(config.QuizConfig{Enabled: true, ChatID: -100123}, "telegram", results, sink)
	return b, results, sink
}

func TestBroadcast_SendsQuestionWithOptionButtons(t *testing.T) {
	b, _, sink := newTestBroadcaster()

	b.Broadcast()

	if len(sink.msgs) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(sink.msgs))
	}
	msg := sink.msgs[0]
	if msg.ChatID != -100123 {
		t.Fatalf("chat id = %d", msg.ChatID)
	}
	q := QuestionAt(0)
	if !strings.Contains(msg.Content, q.Text) {
		t.Fatalf("content %q missing question text", msg.Content)
	}
	if len(msg.Buttons) != len(q.Options) {
		t.Fatalf("buttons = %d, want %d", len(msg.Buttons), len(q.Options))
	}
	if msg.Buttons[0].Payload != "quiz:0:0" {
		t.Fatalf("payload = %q, want quiz:0:0", msg.Buttons[0].Payload)
	}
}

func TestBroadcast_RotatesThroughBank(t *testing.T) {
	b, _, sink := newTestBroadcaster()

	for i := 0; i < BankSize()+1; i++ {
		b.Broadcast()
	}

	first := sink.msgs[0].Content
	wrapped := sink.msgs[BankSize()].Content
	if first != wrapped {
		t.Fatal("broadcast should wrap around to the first question")
	}
}

func TestHandleAnswer_CorrectAndTally(t *testing.T) {
	b, _, _ := newTestBroadcaster()
	q := QuestionAt(0)

	correctIdx := -1
	for i, opt := range q.Options {
		if opt == q.Answer {
			correctIdx = i
		}
	}

	reply, err := b.HandleAnswer(context.Background(), 42, "alice", fmt.Sprintf("quiz:0:%d", correctIdx))
	if err != nil {
		t.Fatalf("HandleAnswer: %v", err)
	}
	if !strings.Contains(reply, "✅ Correct answers: 1") {
		t.Fatalf("reply missing correct tally: %q", reply)
	}

	// A wrong answer from another user updates the same tally.
	wrongIdx := (correctIdx + 1) % len(q.Options)
	reply, err = b.HandleAnswer(context.Background(), 7, "bob", fmt.Sprintf("quiz:0:%d", wrongIdx))
	if err != nil {
		t.Fatalf("HandleAnswer: %v", err)
	}
	if !strings.Contains(reply, "❌ Wrong answers: 1") {
		t.Fatalf("reply missing wrong tally: %q", reply)
	}
}

func TestHandleAnswer_RejectsMalformedPayload(t *testing.T) {
	b, results, _ := newTestBroadcaster()

	for _, payload := range []string{"quiz:", "quiz:x:y", "feature:toonify", "quiz:0:99"} {
		if _, err := b.HandleAnswer(context.Background(), 1, "u", payload); err == nil {
			t.Fatalf("payload %q should be rejected", payload)
		}
	}
	if len(results.results) != 0 {
		t.Fatal("malformed payloads must not store results")
	}
}

func TestIsAnswerPayload(t *testing.T) {
	if !IsAnswerPayload("quiz:1:2") {
		t.Fatal("quiz payload not recognized")
	}
	if IsAnswerPayload("feature:toonify") {
		t.Fatal("feature payload misrecognized as quiz")
	}
}
