package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// TelegramNotifier delivers alert events through the Telegram bot API.
type TelegramNotifier struct {
	token  string
	chatID string
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
	}
}

func (t *TelegramNotifier) Notify(event Event) error {
	emoji := "ℹ️"
	switch event.Severity {
	case SeverityWarn:
		emoji = "⚠️"
	case SeverityCritical:
		emoji = "🚨"
	}

	text := fmt.Sprintf("%s *%s* `%s`\n\n%s", emoji, event.Condition, event.SymbolKey, FormatEvent(event))

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := http.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// FormatEvent renders the payload of an event as human-readable lines.
func FormatEvent(event Event) string {
	switch {
	case event.SentimentFlip != nil:
		p := event.SentimentFlip
		return fmt.Sprintf("Sentiment flipped %s → %s", p.OldSentiment, p.NewSentiment)
	case event.ConfidenceDrift != nil:
		p := event.ConfidenceDrift
		return fmt.Sprintf("Confidence moved %.2f → %.2f (Δ %.2f)", p.OldConfidence, p.NewConfidence, p.Delta)
	case event.ATRBandShift != nil:
		p := event.ATRBandShift
		return fmt.Sprintf("ATR bands now [%.5f, %.5f]; suggested trailing stop %.5f",
			p.NewBands.Lower, p.NewBands.Upper, p.TrailingStop)
	case event.ValidityLoss != nil:
		p := event.ValidityLoss
		return fmt.Sprintf("Entry thesis (%s, conf %.2f) no longer holds: now %s, conf %.2f",
			p.EntrySnapshot.Sentiment, p.EntrySnapshot.Confidence,
			p.Current.Sentiment, p.Current.Confidence)
	case event.NewCrossover != nil:
		p := event.NewCrossover
		return fmt.Sprintf("New %s crossover on %s at bar %d",
			p.Crossover.Kind, p.Crossover.Source, p.Crossover.BarIndex)
	}
	return "event"
}
