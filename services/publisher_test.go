package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"trivia/services"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []publishedMessage
	err       error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, publishedMessage{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestResultPublisher(t *testing.T) {
	channel := &fakeChannel{}
	publisher := services.NewResultPublisher(channel, "trivia.events")

	ended := time.Now().UTC().Truncate(time.Second)
	err := publisher.RecordScores(context.Background(), services.GameResult{
		RoomID:         "ABC123",
		HostName:       "Alice",
		TotalQuestions: 3,
		EndedAt:        ended,
		Scores:         map[string]int{"Alice": 20, "Bob": 30},
	})
	require.NoError(t, err)
	require.Len(t, channel.published, 1)

	got := channel.published[0]
	require.Equal(t, "trivia.events", got.exchange)
	require.Equal(t, services.GameFinishedRoutingKey, got.key)
	require.Equal(t, "application/json", got.msg.ContentType)
	require.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var body services.GameFinishedMessage
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	require.Equal(t, services.GameFinishedEvent, body.Event)
	require.Equal(t, "ABC123", body.RoomID)
	require.Equal(t, map[string]int{"Alice": 20, "Bob": 30}, body.Scores)
	require.True(t, ended.Equal(body.EndedAt))
	require.Nil(t, body.StartedAt)
}

func TestResultPublisherFailure(t *testing.T) {
	broken := errors.New("channel closed")
	publisher := services.NewResultPublisher(&fakeChannel{err: broken}, "trivia.events")

	err := publisher.RecordScores(context.Background(), services.GameResult{RoomID: "ABC123"})
	require.ErrorIs(t, err, broken)

	var perr *services.PersistenceError
	require.ErrorAs(t, err, &perr)
}

func TestMultiSink(t *testing.T) {
	first := &fakeSink{}
	failing := &fakeSink{err: errors.New("disk full")}
	last := &fakeSink{}

	sink := services.MultiSink{first, failing, last}
	err := sink.RecordScores(context.Background(), services.GameResult{RoomID: "ABC123"})

	var perr *services.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "ABC123", perr.RoomID)
	require.ErrorIs(t, err, failing.err)

	require.Len(t, first.calls(), 1)
	require.Len(t, failing.calls(), 1)
	require.Len(t, last.calls(), 1)

	require.NoError(t, services.MultiSink{first}.RecordScores(context.Background(), services.GameResult{}))
	require.NoError(t, services.NopSink{}.RecordScores(context.Background(), services.GameResult{}))
}
