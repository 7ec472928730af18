package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/rss-herald/internal/markup"
	"github.com/lysyi3m/rss-herald/internal/metrics"
)

// Limits are in UTF-16 code units, as Telegram measures them.
const (
	CaptionLimit = 1024
	TextLimit    = 4096
)

// ErrBadFormatting is returned by a channel that rejected the message markup.
var ErrBadFormatting = errors.New("channel rejected message formatting")

type Post struct {
	Body     string // sanitized Markdown
	Link     string
	ImageURL string
}

// Message is one delivery attempt as seen by a channel.
type Message struct {
	Text       string
	ImageURL   string
	Markdown   bool
	ButtonText string
	ButtonURL  string
}

type Channel interface {
	Send(ctx context.Context, msg Message) error
}

type Publisher struct {
	channel    Channel
	limiter    *rate.Limiter
	buttonText string
}

func New(channel Channel, interval time.Duration, buttonText string) *Publisher {
	return &Publisher{
		channel:    channel,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		buttonText: buttonText,
	}
}

// Publish delivers the post with Markdown formatting, retrying once as plain
// text when the channel rejects the markup.
func (p *Publisher) Publish(ctx context.Context, post Post) error {
	err := p.deliver(ctx, p.compose(post, true))
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrBadFormatting) {
		return err
	}

	slog.Warn("Markdown rejected, retrying as plain text", "link", post.Link, "error", err)
	return p.deliver(ctx, p.compose(post, false))
}

func (p *Publisher) compose(post Post, markdown bool) Message {
	limit := TextLimit
	if post.ImageURL != "" {
		limit = CaptionLimit
	}

	text := post.Body
	if !markdown {
		text = markup.Strip(text)
	}
	if markup.Length(text) > limit {
		text = markup.Truncate(text, limit)
		if markdown {
			text = markup.Sanitize(text)
		}
	}

	return Message{
		Text:       text,
		ImageURL:   post.ImageURL,
		Markdown:   markdown,
		ButtonText: p.buttonText,
		ButtonURL:  post.Link,
	}
}

func (p *Publisher) deliver(ctx context.Context, msg Message) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	mode := "plain"
	if msg.Markdown {
		mode = "markdown"
	}

	if err := p.channel.Send(ctx, msg); err != nil {
		metrics.PublishAttempts.WithLabelValues(mode, "error").Inc()
		return fmt.Errorf("failed to send %s message: %w", mode, err)
	}

	metrics.PublishAttempts.WithLabelValues(mode, "ok").Inc()
	return nil
}
