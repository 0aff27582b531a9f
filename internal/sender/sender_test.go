package sender

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/logging"
)

// mockTransport is a test double for domain.Transport.
type mockTransport struct {
	errs []error // error per Send call, nil past the end
	sent []string
}

func (m *mockTransport) Start(_ context.Context) error { return nil }
func (m *mockTransport) Stop(_ context.Context) error  { return nil }
func (m *mockTransport) Send(_ context.Context, _ int64, text string) error {
	i := len(m.sent)
	m.sent = append(m.sent, text)
	if i < len(m.errs) {
		return m.errs[i]
	}
	return nil
}
func (m *mockTransport) ResolveUsername(_ context.Context, _ string) (int64, error) {
	return 0, errors.New("not implemented")
}
func (m *mockTransport) ChatInfo(_ context.Context, _ int64) (domain.ChatInfo, error) {
	return domain.ChatInfo{}, errors.New("not implemented")
}
func (m *mockTransport) OnMessage(_ func(domain.InboundMessage)) {}

func newTestSender(tr *mockTransport) (*Sender, *[]time.Duration) {
	s := New(tr, logging.New(nil, "silent"))
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }
	return s, &slept
}

func TestSend_FirstAttemptSucceeds(t *testing.T) {
	tr := &mockTransport{}
	s, slept := newTestSender(tr)

	err := s.Send(context.Background(), 1, "привет")

	require.NoError(t, err)
	assert.Equal(t, []string{"привет"}, tr.sent)
	assert.Empty(t, *slept)
}

func TestSend_RateLimitRetriesOnce(t *testing.T) {
	tr := &mockTransport{errs: []error{&domain.RateLimitedError{RetryAfter: 5 * time.Second}}}
	s, slept := newTestSender(tr)

	err := s.Send(context.Background(), 1, "привет")

	require.NoError(t, err)
	assert.Len(t, tr.sent, 2)
	require.Len(t, *slept, 1)
	assert.Equal(t, 7*time.Second, (*slept)[0], "wait plus fixed buffer")
}

func TestSend_SecondRateLimitPropagates(t *testing.T) {
	tr := &mockTransport{errs: []error{
		&domain.RateLimitedError{RetryAfter: time.Second},
		&domain.RateLimitedError{RetryAfter: time.Second},
	}}
	s, slept := newTestSender(tr)

	err := s.Send(context.Background(), 1, "привет")

	var rl *domain.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Len(t, tr.sent, 2, "no third attempt")
	assert.Len(t, *slept, 1)
}

func TestSend_OtherErrorNoRetry(t *testing.T) {
	tr := &mockTransport{errs: []error{errors.New("peer blocked us")}}
	s, slept := newTestSender(tr)

	err := s.Send(context.Background(), 1, "привет")

	assert.Error(t, err)
	assert.Len(t, tr.sent, 1)
	assert.Empty(t, *slept)
}
