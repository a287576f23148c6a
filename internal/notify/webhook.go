package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reportbot/internal/domain"
	"reportbot/internal/util"
)

// DefaultTimeout bounds one webhook post.
const DefaultTimeout = 30 * time.Second

// WebhookNotifier posts cards to the webhook URLs configured per channel.
type WebhookNotifier struct {
	channels map[domain.Channel][]string
	client   *http.Client
	pacer    *util.Pacer
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a WebhookNotifier.
type Option func(*WebhookNotifier)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option { return func(n *WebhookNotifier) { n.client = c } }

// WithPacer spaces posts across all channels.
func WithPacer(p *util.Pacer) Option { return func(n *WebhookNotifier) { n.pacer = p } }

// WithTimeout sets the per-post timeout.
func WithTimeout(d time.Duration) Option {
	return func(n *WebhookNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(n *WebhookNotifier) { n.logger = l } }

// NewWebhookNotifier creates a notifier for channels. Empty URLs are dropped.
func NewWebhookNotifier(channels map[domain.Channel][]string, opts ...Option) *WebhookNotifier {
	n := &WebhookNotifier{
		channels: make(map[domain.Channel][]string, len(channels)),
		client:   &http.Client{},
		timeout:  DefaultTimeout,
		logger:   util.Discard(),
	}
	for ch, urls := range channels {
		for _, u := range urls {
			if strings.TrimSpace(u) != "" {
				n.channels[ch] = append(n.channels[ch], u)
			}
		}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts msg to every URL of channel. Every URL is attempted; the
// errors of failed posts are joined.
func (n *WebhookNotifier) Notify(ctx context.Context, channel domain.Channel, msg Message) error {
	urls := n.channels[channel]
	if len(urls) == 0 {
		return fmt.Errorf("notify: no webhook configured for channel %q", channel)
	}

	body, err := json.Marshal(Card(msg))
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}

	var errs []error
	for i, u := range urls {
		if err := n.pacer.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		if err := n.post(ctx, u, body); err != nil {
			n.logger.Warn("webhook post failed", "channel", string(channel), "webhook", i, "error", err)
			errs = append(errs, fmt.Errorf("%s webhook %d: %w", channel, i, err))
			continue
		}
		n.logger.Info("notification sent", "channel", string(channel), "webhook", i, "title", msg.Title)
	}
	return errors.Join(errs...)
}

func (n *WebhookNotifier) post(ctx context.Context, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
