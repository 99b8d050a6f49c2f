package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/pkg/circuitbreaker"
)

type fakeSender struct {
	err  error
	keys []string
	msgs []interface{}
}

func (s *fakeSender) Publish(_ context.Context, routingKey string, message interface{}) error {
	s.keys = append(s.keys, routingKey)
	s.msgs = append(s.msgs, message)
	return s.err
}

func TestBreakerPublisher_Publish(t *testing.T) {
	s := &fakeSender{}
	p := NewBreakerPublisher(s, circuitbreaker.New("rabbitmq", circuitbreaker.Config{Timeout: time.Minute}))

	event := BookBorrowed{RecordID: "r-1", UserID: "u-1", BookID: "b-1", Available: 2}
	require.NoError(t, p.Publish(context.Background(), RoutingBookBorrowed, event))

	assert.Equal(t, []string{RoutingBookBorrowed}, s.keys)
	assert.Equal(t, event, s.msgs[0])
}

func TestBreakerPublisher_OpensAfterFailures(t *testing.T) {
	s := &fakeSender{err: errors.New("connection refused")}
	p := NewBreakerPublisher(s, circuitbreaker.New("rabbitmq", circuitbreaker.Config{
		Timeout: time.Minute,
		ReadyToTrip: func(c circuitbreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	}))

	ctx := context.Background()
	assert.Error(t, p.Publish(ctx, RoutingBookReturned, BookReturned{}))
	assert.Error(t, p.Publish(ctx, RoutingBookReturned, BookReturned{}))

	err := p.Publish(ctx, RoutingBookReturned, BookReturned{})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	assert.Len(t, s.keys, 2)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), RoutingLoanOverdue, LoanOverdue{}))
}
