package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, digest Digest) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken   string
	chatID     string
	baseURL    string
	thresholds Thresholds
	client     *http.Client
	logger     zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, thresholds Thresholds, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken:   botToken,
		chatID:     chatID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		thresholds: thresholds,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, digest Digest) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(digest, n.thresholds),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("run_date", digest.RunDate).
		Int("oversold", len(digest.Oversold)).
		Int("overbought", len(digest.Overbought)).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(digest Digest, thresholds Thresholds) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[RSI Digest] %s\n", digest.RunDate))
	builder.WriteString(fmt.Sprintf("Coverage: %d/%d symbols (%s%%)\n",
		digest.Total-digest.Failed, digest.Total, digest.SuccessRate.StringFixed(1)))
	if digest.Severity != "" && digest.Severity != "normal" {
		builder.WriteString(fmt.Sprintf("Run health: %s\n", strings.ToUpper(digest.Severity)))
	}

	if len(digest.Oversold) > 0 {
		builder.WriteString(fmt.Sprintf("Oversold (RSI < %.0f):\n", thresholds.OversoldBelow))
		for _, reading := range digest.Oversold {
			builder.WriteString(fmt.Sprintf("  %s %s %s\n", reading.Symbol, reading.Timeframe, reading.RSI.StringFixed(1)))
		}
	}
	if len(digest.Overbought) > 0 {
		builder.WriteString(fmt.Sprintf("Overbought (RSI > %.0f):\n", thresholds.OverboughtAbove))
		for _, reading := range digest.Overbought {
			builder.WriteString(fmt.Sprintf("  %s %s %s\n", reading.Symbol, reading.Timeframe, reading.RSI.StringFixed(1)))
		}
	}
	if len(digest.Oversold) == 0 && len(digest.Overbought) == 0 {
		builder.WriteString("No oversold or overbought signals.\n")
	}
	if digest.Failed > 0 {
		builder.WriteString(fmt.Sprintf("Failed symbols: %d\n", digest.Failed))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
