package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
)

type sentMessage struct {
	receiveIDType string
	receiveID     string
	msgType       string
	content       string
}

type mockSender struct {
	sent []sentMessage
	err  error
}

func (m *mockSender) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	m.sent = append(m.sent, sentMessage{receiveIDType, receiveID, msgType, content})
	if m.err != nil {
		return "", m.err
	}
	return "om_1", nil
}

func TestNewReviewNotifier_RequiresChat(t *testing.T) {
	_, err := NewReviewNotifier(&mockSender{}, Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestReviewNotifier_NotifyReview(t *testing.T) {
	sender := &mockSender{}
	n, err := NewReviewNotifier(sender, Config{ReviewChatID: "oc_review", AdminBaseURL: "https://admin.example.com/"}, zap.NewNop())
	require.NoError(t, err)

	err = n.NotifyReview(context.Background(), port.ReviewAlert{
		QuoteID:        "q-1",
		QuoteNumber:    "Q-20261015-ABC123",
		ReviewID:       "r-1",
		Priority:       2,
		TriggerReasons: []string{"low_ocr_confidence", "high_value"},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "chat_id", msg.receiveIDType)
	assert.Equal(t, "oc_review", msg.receiveID)
	assert.Equal(t, "interactive", msg.msgType)

	var got card
	require.NoError(t, json.Unmarshal([]byte(msg.content), &got))
	assert.Equal(t, "red", got.Header.Template)
	assert.Contains(t, got.Header.Title.Content, "Q-20261015-ABC123")
	require.Len(t, got.Elements, 2)
	assert.Contains(t, got.Elements[0].Text.Content, "- low_ocr_confidence")
	assert.Equal(t, "https://admin.example.com/admin/hitl-reviews/r-1", got.Elements[1].Actions[0].URL)
}

func TestReviewNotifier_NoButtonWithoutAdminURL(t *testing.T) {
	sender := &mockSender{}
	n, err := NewReviewNotifier(sender, Config{ReviewChatID: "oc_review"}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, n.NotifyReview(context.Background(), port.ReviewAlert{QuoteNumber: "Q-1", ReviewID: "r-1", Reason: "manual"}))

	var got card
	require.NoError(t, json.Unmarshal([]byte(sender.sent[0].content), &got))
	assert.Len(t, got.Elements, 1)
	assert.Contains(t, got.Elements[0].Text.Content, "**Reason:** manual")
	assert.Equal(t, "blue", got.Header.Template)
}

func TestReviewNotifier_SendFailure(t *testing.T) {
	sender := &mockSender{err: errors.New("API error: code=230002")}
	n, err := NewReviewNotifier(sender, Config{ReviewChatID: "oc_review"}, zap.NewNop())
	require.NoError(t, err)

	err = n.NotifyReview(context.Background(), port.ReviewAlert{QuoteNumber: "Q-1"})
	assert.ErrorContains(t, err, "230002")
}

func TestPriorityColor(t *testing.T) {
	assert.Equal(t, "red", priorityColor(1))
	assert.Equal(t, "orange", priorityColor(5))
	assert.Equal(t, "blue", priorityColor(8))
	assert.Equal(t, "blue", priorityColor(0))
}
