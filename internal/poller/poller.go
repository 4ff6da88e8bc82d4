package poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	r "github.com/fjod/go_cart/shop-api/internal/repository"
	"github.com/segmentio/kafka-go"
)

// CheckoutEvent is the part of a checkout outbox message the poller needs.
type CheckoutEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Poller empties a user's cart once their checkout completes.
type Poller struct {
	repo   r.CartRepository
	reader *kafka.Reader
}

func NewPoller(repo r.CartRepository, cfg Config) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{repo: repo, reader: reader}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.getMessageAndEmptyCart(ctx); errors.Is(err, io.EOF) {
			return
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		slog.Error("error closing reader", "error", err)
	}
}

func (p *Poller) getMessageAndEmptyCart(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, io.EOF) {
			slog.Error("error reading message", "error", err)
		}
		return err
	}

	var event CheckoutEvent
	if errUnmarshal := json.Unmarshal(m.Value, &event); errUnmarshal != nil {
		slog.Warn("error parsing message", "offset", m.Offset, "error", errUnmarshal)
		return nil
	}
	if event.UserID == "" {
		slog.Warn("missing or invalid user_id", "offset", m.Offset)
		return nil
	}

	errDelete := p.repo.DeleteCart(ctx, event.UserID)
	if errDelete != nil && !errors.Is(errDelete, r.ErrCartNotFound) {
		slog.Error("failed to delete cart", "user_id", event.UserID, "checkout_id", event.CheckoutID, "error", errDelete)
		return nil
	}

	slog.Info("cart cleared after checkout", "user_id", event.UserID, "checkout_id", event.CheckoutID)
	return nil
}
