package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrutov/leobot/internal/conversation"
	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/llm"
	"github.com/mkrutov/leobot/internal/logging"
	"github.com/mkrutov/leobot/internal/resolver"
	"github.com/mkrutov/leobot/internal/responder"
	"github.com/mkrutov/leobot/internal/sender"
	"github.com/mkrutov/leobot/internal/trigger"
)

const (
	testGreeting = "Привет, как дела?"
	testPrompt   = "persona\n\ninstructions"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

// mockTransport records sends and serves chat metadata.
type mockTransport struct {
	mu       sync.Mutex
	sent     []sentMsg
	sendErr  error
	chatInfo domain.ChatInfo
	chatErr  error
}

type sentMsg struct {
	identity int64
	text     string
}

func (m *mockTransport) Start(_ context.Context) error { return nil }
func (m *mockTransport) Stop(_ context.Context) error  { return nil }
func (m *mockTransport) Send(_ context.Context, identity int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMsg{identity: identity, text: text})
	return m.sendErr
}
func (m *mockTransport) ResolveUsername(_ context.Context, _ string) (int64, error) {
	return 0, errors.New("not implemented")
}
func (m *mockTransport) ChatInfo(_ context.Context, _ int64) (domain.ChatInfo, error) {
	return m.chatInfo, m.chatErr
}
func (m *mockTransport) OnMessage(_ func(domain.InboundMessage)) {}

func (m *mockTransport) sentMessages() []sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMsg(nil), m.sent...)
}

type testRig struct {
	orch  *Orchestrator
	store conversation.Store
	tr    *mockTransport
}

func newRig(t *testing.T, client llm.Client) *testRig {
	t.Helper()
	log := testLogger()
	tr := &mockTransport{}
	store := conversation.NewMemoryStore()

	if client == nil {
		client = &llm.MockClient{
			CompleteFunc: func(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return &llm.CompletionResponse{Content: "ответ ИИ"}, nil
			},
		}
	}

	resp := responder.New(responder.Config{
		Model:        "gpt-3.5-turbo",
		Temperature:  0.7,
		MaxTokens:    150,
		SystemPrompt: testPrompt,
	}, client, store, log)

	orch := New(
		Config{TriggerSource: "@leomatchbot", Greeting: testGreeting, SystemPrompt: testPrompt},
		trigger.NewDetector([]string{"взаимная симпатия", "симпатия"}),
		resolver.New(tr, log),
		store,
		resp,
		sender.New(tr, log),
		tr,
		nil,
		log,
	)
	return &testRig{orch: orch, store: store, tr: tr}
}

func triggerMessage() domain.InboundMessage {
	return domain.InboundMessage{
		Text:         "Вам пришла взаимная симпатия!",
		ChatUsername: "leomatchbot",
		Sender:       &domain.UserRef{ID: 555, Username: "leomatchbot", IsBot: true},
		ChatID:       555,
		ButtonRows: [][]domain.Button{
			{{Label: "Открыть", User: &domain.UserRef{ID: 123456789}}},
		},
	}
}

func TestTrigger_StartsConversation(t *testing.T) {
	rig := newRig(t, nil)

	rig.orch.HandleMessage(context.Background(), triggerMessage())

	require.Equal(t, 1, rig.store.Count())
	c, ok := rig.store.Get(123456789)
	require.True(t, ok)
	assert.Equal(t, domain.StageAwaitingFirstReply, c.Stage)

	h := rig.store.History(123456789)
	require.Len(t, h, 2)
	assert.Equal(t, domain.RoleSystem, h[0].Role)
	assert.Equal(t, testPrompt, h[0].Content)
	assert.Equal(t, domain.RoleAssistant, h[1].Role)
	assert.Equal(t, testGreeting, h[1].Content)

	sent := rig.tr.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(123456789), sent[0].identity)
	assert.Equal(t, testGreeting, sent[0].text)
}

func TestTrigger_Idempotent(t *testing.T) {
	rig := newRig(t, nil)

	rig.orch.HandleMessage(context.Background(), triggerMessage())
	rig.orch.HandleMessage(context.Background(), triggerMessage())

	assert.Equal(t, 1, rig.store.Count())
	assert.Len(t, rig.tr.sentMessages(), 1, "no second greeting")
}

func TestTrigger_ConcurrentDuplicates(t *testing.T) {
	rig := newRig(t, nil)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rig.orch.HandleMessage(context.Background(), triggerMessage())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rig.store.Count())
	assert.Len(t, rig.tr.sentMessages(), 1, "exactly one greeting under concurrent triggers")
}

func TestTrigger_UnresolvedDropped(t *testing.T) {
	rig := newRig(t, nil)
	msg := triggerMessage()
	msg.ButtonRows = nil

	rig.orch.HandleMessage(context.Background(), msg)

	assert.Equal(t, 0, rig.store.Count())
	assert.Empty(t, rig.tr.sentMessages())
}

func TestTrigger_SendFailureKeepsState(t *testing.T) {
	rig := newRig(t, nil)
	rig.tr.sendErr = errors.New("peer unavailable")

	rig.orch.HandleMessage(context.Background(), triggerMessage())

	assert.Equal(t, 1, rig.store.Count(), "state intact despite send failure")
}

func TestReply_AnsweredAndActivated(t *testing.T) {
	rig := newRig(t, nil)
	rig.orch.HandleMessage(context.Background(), triggerMessage())

	rig.orch.HandleMessage(context.Background(), domain.InboundMessage{
		Text:   "привет",
		Sender: &domain.UserRef{ID: 123456789, Username: "somegirl"},
		ChatID: 123456789,
	})

	h := rig.store.History(123456789)
	require.Len(t, h, 4, "user and assistant turns appended")
	assert.Equal(t, "привет", h[2].Content)
	assert.Equal(t, "ответ ИИ", h[3].Content)

	c, _ := rig.store.Get(123456789)
	assert.Equal(t, domain.StageActive, c.Stage)

	sent := rig.tr.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "ответ ИИ", sent[1].text)
}

func TestReply_UnknownSenderIgnored(t *testing.T) {
	rig := newRig(t, nil)

	rig.orch.HandleMessage(context.Background(), domain.InboundMessage{
		Text:   "привет",
		Sender: &domain.UserRef{ID: 999},
		ChatID: 999,
	})

	assert.Empty(t, rig.tr.sentMessages())
	assert.Equal(t, 0, rig.store.Count())
}

func TestReply_EmptyTextIgnored(t *testing.T) {
	rig := newRig(t, nil)
	rig.orch.HandleMessage(context.Background(), triggerMessage())

	rig.orch.HandleMessage(context.Background(), domain.InboundMessage{
		Text:   "   ",
		Sender: &domain.UserRef{ID: 123456789},
		ChatID: 123456789,
	})

	assert.Len(t, rig.store.History(123456789), 2, "no state change on empty text")
	assert.Len(t, rig.tr.sentMessages(), 1)
}

func TestReply_TriggerSourceNeverAnswered(t *testing.T) {
	rig := newRig(t, nil)
	// State keyed by the trigger bot itself must never be fed back to it.
	rig.store.Begin(555, nil)

	rig.orch.HandleMessage(context.Background(), domain.InboundMessage{
		Text:         "обычное сообщение без триггера",
		ChatUsername: "leomatchbot",
		Sender:       &domain.UserRef{ID: 555, Username: "leomatchbot", IsBot: true},
		ChatID:       555,
	})

	assert.Empty(t, rig.tr.sentMessages())
}

func TestTriggerSource_GroupChatMetadataLookup(t *testing.T) {
	rig := newRig(t, nil)
	rig.tr.chatInfo = domain.ChatInfo{ID: -100555, Username: "leomatchbot"}

	msg := triggerMessage()
	msg.ChatUsername = ""
	msg.Sender = &domain.UserRef{ID: 777, IsBot: true}
	msg.ChatID = -100555

	rig.orch.HandleMessage(context.Background(), msg)

	assert.Equal(t, 1, rig.store.Count())
}

func TestTriggerSource_MetadataLookupFailureMeansUntrusted(t *testing.T) {
	rig := newRig(t, nil)
	rig.tr.chatErr = errors.New("CHAT_ID_INVALID")

	msg := triggerMessage()
	msg.ChatUsername = ""
	msg.Sender = &domain.UserRef{ID: 777, IsBot: true}
	msg.ChatID = -100555

	rig.orch.HandleMessage(context.Background(), msg)

	assert.Equal(t, 0, rig.store.Count())
}

func TestReply_FillerSentOnCompletionFailure(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	rig := newRig(t, client)
	rig.orch.HandleMessage(context.Background(), triggerMessage())

	rig.orch.HandleMessage(context.Background(), domain.InboundMessage{
		Text:   "привет",
		Sender: &domain.UserRef{ID: 123456789},
		ChatID: 123456789,
	})

	sent := rig.tr.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, responder.FillerReply, sent[1].text)
	assert.Len(t, rig.store.History(123456789), 3, "only the user turn recorded")
}
