package notifier

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

// TelegramNotifier pushes bot events to a Telegram chat. Every method is
// fire-and-forget: delivery failures are logged and swallowed so the
// decision cycle never blocks on notifications.
type TelegramNotifier struct {
	token   string
	chatID  string
	enabled bool
	client  *http.Client
	logger  *zap.Logger
}

func NewTelegramNotifier(token, chatID string, enabled bool, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		enabled: enabled && token != "" && chatID != "",
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (t *TelegramNotifier) send(text string) {
	if !t.enabled {
		return
	}
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	form := url.Values{
		"chat_id":    {t.chatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}
	resp, err := t.client.PostForm(endpoint, form)
	if err != nil {
		t.logger.Warn("telegram send failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		t.logger.Warn("telegram rejected message", zap.Int("status", resp.StatusCode))
	}
}

func (t *TelegramNotifier) NotifyTrade(action, market, details string) {
	emoji := "🟢"
	if action == "sell" {
		emoji = "🔴"
	}
	t.send(fmt.Sprintf("%s <b>%s %s</b>\n%s", emoji, strings.ToUpper(action), market, details))
}

func (t *TelegramNotifier) NotifyRiskAction(market, action, reason, details string) {
	t.send(fmt.Sprintf("⚠️ <b>Risk: %s</b>\n%s %s\n%s", reason, action, market, details))
}

func (t *TelegramNotifier) NotifyPortfolio(p *domain.Portfolio) {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Portfolio</b>\nTotal: %.0f KRW\nCash: %.0f KRW\nRisk: %s\n",
		p.TotalBalance, p.CashBalance, p.RiskLevel)
	for market, exp := range p.Exposure {
		fmt.Fprintf(&b, "%s: %.0f KRW (%.1f%%)\n", market, exp.Value, exp.Ratio*100)
	}
	t.send(b.String())
}

func (t *TelegramNotifier) NotifyStartup(version string) {
	t.send(fmt.Sprintf("🚀 <b>Bot started</b> (%s)", version))
}

func (t *TelegramNotifier) NotifyError(scope, message string) {
	t.send(fmt.Sprintf("❌ <b>Error in %s</b>\n%s", scope, message))
}
