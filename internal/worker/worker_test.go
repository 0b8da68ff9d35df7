package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"retailpos/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct{ to, subject, body string }

type fakeSender struct {
	err  error
	msgs []sent
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{to, subject, body})
	return nil
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestStockAlertWorker_SendsEmail(t *testing.T) {
	s := &fakeSender{}
	w := NewStockAlertWorker(NewEmailWorker(s, nil))

	err := w.Process(context.Background(), raw(t, StockAlertPayload{
		BusinessName: "Corner Shop",
		To:           "owner@corner.test",
		ProductName:  "Milk 1L",
		Stock:        0,
		Threshold:    5,
	}))
	require.NoError(t, err)
	require.Len(t, s.msgs, 1)
	assert.Equal(t, "owner@corner.test", s.msgs[0].to)
	assert.Equal(t, "[Corner Shop] Out of stock: Milk 1L", s.msgs[0].subject)
	assert.Contains(t, s.msgs[0].body, "Alert threshold: 5")
}

func TestStockAlertWorker_NoRecipient(t *testing.T) {
	s := &fakeSender{}
	w := NewStockAlertWorker(NewEmailWorker(s, nil))
	require.NoError(t, w.Process(context.Background(), raw(t, StockAlertPayload{ProductName: "Bread", Stock: 2})))
	assert.Empty(t, s.msgs)
}

func TestStockAlertWorker_BadPayloadIsPermanent(t *testing.T) {
	w := NewStockAlertWorker(NewEmailWorker(&fakeSender{}, nil))
	err := w.Process(context.Background(), json.RawMessage(`{"stock":"many"}`))
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestEmailWorker_CircuitOpens(t *testing.T) {
	s := &fakeSender{err: errors.New("connection refused")}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "smtp", FailureThreshold: 1, OpenTimeout: time.Hour})
	w := NewEmailWorker(s, cb)
	payload := raw(t, EmailJobPayload{ToEmail: "a@b.test", Subject: "hi", Body: "x"})

	assert.Error(t, w.Process(context.Background(), payload))
	assert.ErrorIs(t, w.Process(context.Background(), payload), infra.ErrCircuitOpen)
}

func TestWithRetry(t *testing.T) {
	noWait := func(int) time.Duration { return 0 }

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), 3, noWait, func(int) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent stops early", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), 5, noWait, func(int) error {
			calls++
			return ErrPermanent
		})
		assert.ErrorIs(t, err, ErrPermanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := withRetry(ctx, 3, func(int) time.Duration { return time.Hour }, func(int) error {
			return errors.New("boom")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, time.Second, exponentialBackoff(1))
	assert.Equal(t, 2*time.Second, exponentialBackoff(2))
	assert.Equal(t, 4*time.Second, exponentialBackoff(3))
}
