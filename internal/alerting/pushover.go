package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jb49088/riven-sniper/internal/matcher"
)

const pushoverMessagesPath = "/1/messages.json"

// PushoverNotifier 通过 Pushover API 推送消息。
type PushoverNotifier struct {
	appToken string
	userKey  string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewPushoverNotifier 构造 Pushover 告警器。
func NewPushoverNotifier(appToken, userKey, baseURL string, timeout time.Duration, logger zerolog.Logger) *PushoverNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.pushover.net"
	}

	return &PushoverNotifier{
		appToken: appToken,
		userKey:  userKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_pushover").Logger(),
	}
}

// Notify 以表单提交方式推送一条 deal 文本。
func (n *PushoverNotifier) Notify(ctx context.Context, deal matcher.Deal) error {
	form := url.Values{}
	form.Set("token", n.appToken)
	form.Set("user", n.userKey)
	form.Set("message", RenderDeal(deal))

	endpoint := n.baseURL + pushoverMessagesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushover request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushover 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		Status int `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if result.Status != 1 {
			return fmt.Errorf("pushover 返回 status=%d", result.Status)
		}
	}

	n.logger.Info().
		Str("listing_id", deal.Listing.ID).
		Str("weapon", deal.Listing.Weapon).
		Str("discount_pct", deal.DiscountPct.StringFixed(1)).
		Msg("告警已发送 (Pushover)")
	return nil
}

var _ Notifier = (*PushoverNotifier)(nil)
