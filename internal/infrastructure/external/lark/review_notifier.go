package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
)

// messageSender is the part of SDKClient the notifier needs
type messageSender interface {
	SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// ReviewNotifier implements port.StaffNotifier by posting interactive cards to the review chat
type ReviewNotifier struct {
	sender       messageSender
	chatID       string
	adminBaseURL string
	logger       *zap.Logger
}

// NewReviewNotifier creates a notifier for the configured review chat
func NewReviewNotifier(sender messageSender, cfg Config, logger *zap.Logger) (*ReviewNotifier, error) {
	if cfg.ReviewChatID == "" {
		return nil, fmt.Errorf("lark review chat id is required")
	}
	return &ReviewNotifier{
		sender:       sender,
		chatID:       cfg.ReviewChatID,
		adminBaseURL: strings.TrimRight(cfg.AdminBaseURL, "/"),
		logger:       logger,
	}, nil
}

var _ port.StaffNotifier = (*ReviewNotifier)(nil)

// NotifyReview posts one card per opened review
func (n *ReviewNotifier) NotifyReview(ctx context.Context, alert port.ReviewAlert) error {
	card, err := json.Marshal(n.buildCard(alert))
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	messageID, err := n.sender.SendMessage(ctx, "chat_id", n.chatID, "interactive", string(card))
	if err != nil {
		return fmt.Errorf("failed to send review card: %w", err)
	}

	n.logger.Info("Review alert posted",
		zap.String("quote_id", alert.QuoteID),
		zap.String("review_id", alert.ReviewID),
		zap.String("message_id", messageID))
	return nil
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardButton struct {
	Tag  string   `json:"tag"`
	Text cardText `json:"text"`
	Type string   `json:"type"`
	URL  string   `json:"url"`
}

type cardElement struct {
	Tag     string       `json:"tag"`
	Text    *cardText    `json:"text,omitempty"`
	Actions []cardButton `json:"actions,omitempty"`
}

type card struct {
	Config struct {
		WideScreenMode bool `json:"wide_screen_mode"`
	} `json:"config"`
	Header struct {
		Title    cardText `json:"title"`
		Template string   `json:"template"`
	} `json:"header"`
	Elements []cardElement `json:"elements"`
}

func (n *ReviewNotifier) buildCard(alert port.ReviewAlert) card {
	var c card
	c.Config.WideScreenMode = true
	c.Header.Title = cardText{Tag: "plain_text", Content: "Quote review needed: " + alert.QuoteNumber}
	c.Header.Template = priorityColor(alert.Priority)

	var body strings.Builder
	fmt.Fprintf(&body, "**Quote:** %s\n", alert.QuoteNumber)
	if alert.Priority > 0 {
		fmt.Fprintf(&body, "**Priority:** %d\n", alert.Priority)
	}
	if len(alert.TriggerReasons) > 0 {
		body.WriteString("**Triggered by:**\n")
		for _, r := range alert.TriggerReasons {
			fmt.Fprintf(&body, "- %s\n", r)
		}
	} else if alert.Reason != "" {
		fmt.Fprintf(&body, "**Reason:** %s\n", alert.Reason)
	}
	c.Elements = append(c.Elements, cardElement{Tag: "div", Text: &cardText{Tag: "lark_md", Content: strings.TrimSpace(body.String())}})

	if n.adminBaseURL != "" && alert.ReviewID != "" {
		c.Elements = append(c.Elements, cardElement{
			Tag: "action",
			Actions: []cardButton{{
				Tag:  "button",
				Text: cardText{Tag: "plain_text", Content: "Open review"},
				Type: "primary",
				URL:  n.adminBaseURL + "/admin/hitl-reviews/" + alert.ReviewID,
			}},
		})
	}
	return c
}

// priorityColor maps review priority (1 is most urgent) to a card header color
func priorityColor(priority int) string {
	switch {
	case priority > 0 && priority <= 2:
		return "red"
	case priority > 0 && priority <= 5:
		return "orange"
	default:
		return "blue"
	}
}
