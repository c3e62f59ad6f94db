package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	appLog "weekendbot/internal/log"
	"weekendbot/internal/metrics"
	"weekendbot/internal/model"
)

// Delivery steps, in order.
const (
	StepAnnouncement = metrics.StepAnnouncement
	StepPoll         = metrics.StepPoll
)

// PollQuestion is the fixed prompt of the weekend poll.
const PollQuestion = "Куда идём на эти выходные?"

// CatchAllOptions are appended after the event titles, in this order.
var CatchAllOptions = []string{
	"Иду в другое место",
	"Ещё не уверен/-а",
	"Никуда не иду",
}

// Client is the subset of the Bot API used here; *bot.Bot implements it.
type Client interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPoll(ctx context.Context, params *bot.SendPollParams) (*models.Message, error)
}

// Channel addresses one topic of a group chat.
type Channel struct {
	ChatID  int64
	TopicID int
}

// DeliveryError reports which step failed. When Step is StepPoll the
// announcement has already been delivered.
type DeliveryError struct {
	Step string
	Err  error
}

func (e *DeliveryError) Error() string {
	if e.Step == StepPoll {
		return fmt.Sprintf("telegram: poll failed after announcement was delivered: %v", e.Err)
	}
	return fmt.Sprintf("telegram: %s failed: %v", e.Step, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewClient builds a Bot API client for token. It does not contact Telegram.
func NewClient(token string, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, errors.New("telegram: bot token is empty")
	}
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return b, nil
}

// Dispatcher sends the announcement and then the poll. The two calls are
// not atomic and are never retried.
type Dispatcher struct {
	client  Client
	channel Channel
	metrics *metrics.Metrics
}

func NewDispatcher(client Client, channel Channel, m *metrics.Metrics) *Dispatcher {
	if m == nil {
		m = metrics.Nop()
	}
	return &Dispatcher{
		client:  client,
		channel: channel,
		metrics: m,
	}
}

// Dispatch sends document as an HTML message, then a poll listing events.
// Every failure is a *DeliveryError naming the failed step.
func (d *Dispatcher) Dispatch(ctx context.Context, events []model.Event, document string) error {
	_, err := d.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          d.channel.ChatID,
		MessageThreadID: d.channel.TopicID,
		Text:            document,
		ParseMode:       models.ParseModeHTML,
	})
	d.metrics.DispatchSteps.WithLabelValues(StepAnnouncement, metrics.Status(err)).Inc()
	if err != nil {
		d.metrics.DispatchSteps.WithLabelValues(StepPoll, metrics.StatusSkipped).Inc()
		appLog.Error("announcement send failed", err, "chat_id", d.channel.ChatID, "topic_id", d.channel.TopicID)
		return &DeliveryError{Step: StepAnnouncement, Err: err}
	}
	appLog.Info("announcement sent", "chat_id", d.channel.ChatID, "topic_id", d.channel.TopicID, "bytes", len(document))

	options := PollOptions(events)
	pollOptions := make([]models.InputPollOption, 0, len(options))
	for _, o := range options {
		pollOptions = append(pollOptions, models.InputPollOption{Text: o})
	}

	anonymous := false
	_, err = d.client.SendPoll(ctx, &bot.SendPollParams{
		ChatID:                d.channel.ChatID,
		MessageThreadID:       d.channel.TopicID,
		Question:              PollQuestion,
		Options:               pollOptions,
		IsAnonymous:           &anonymous,
		AllowsMultipleAnswers: true,
	})
	d.metrics.DispatchSteps.WithLabelValues(StepPoll, metrics.Status(err)).Inc()
	if err != nil {
		appLog.Error("poll send failed", err, "chat_id", d.channel.ChatID, "topic_id", d.channel.TopicID, "options", len(options))
		return &DeliveryError{Step: StepPoll, Err: err}
	}
	appLog.Info("poll sent", "chat_id", d.channel.ChatID, "topic_id", d.channel.TopicID, "options", len(options))

	return nil
}

// PollOptions lists event titles in order followed by CatchAllOptions.
func PollOptions(events []model.Event) []string {
	out := make([]string, 0, len(events)+len(CatchAllOptions))
	for _, ev := range events {
		out = append(out, ev.Title)
	}
	return append(out, CatchAllOptions...)
}
