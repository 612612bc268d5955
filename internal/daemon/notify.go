package daemon

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/verdantlabs/ecoburn/internal/scan"
)

// Notifier pushes budget-gate alerts to a Telegram chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier creates a Notifier. Returns nil if token is empty (alerts
// disabled); a nil Notifier is safe to call.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Notifier{api: api, chatID: chatID}, nil
}

// GateChange sends an alert describing the current gate verdict.
func (n *Notifier) GateChange(a scan.Analysis) error {
	if n == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(n.chatID, gateMessage(a))
	msg.ParseMode = "Markdown"
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func gateMessage(a scan.Analysis) string {
	var b strings.Builder

	if a.Passed {
		b.WriteString("✅ *Cost gate PASSED*\n\n")
	} else {
		b.WriteString("❌ *Cost gate FAILED*\n\n")
	}

	fmt.Fprintf(&b, "Estimated cost: $%.2f", a.EstimatedCost)
	if a.BudgetLimit > 0 {
		fmt.Fprintf(&b, " (limit $%.2f)", a.BudgetLimit)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Estimated carbon: %.2f kg CO₂e", a.EstimatedCarbon)
	if a.CarbonLimit > 0 {
		fmt.Fprintf(&b, " (limit %.2f kg)", a.CarbonLimit)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Training files: %d, complexity %d, ~%.1f GPU-hours on %s in %s",
		a.TrainingLoops, a.TotalComplexity, a.EstimatedHours, a.GPU, a.Region)

	return b.String()
}
