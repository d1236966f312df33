// Package outbound delivers engine messages to the platform's messaging
// gateway over a webhook.
package outbound

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/waflow/waflow/collaborator"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/model"
	"go.uber.org/zap"
)

type Sender struct {
	client     *resty.Client
	webhookUrl string
}

var _ collaborator.MessageSender = new(Sender)

func NewSender(webhookUrl string, timeout time.Duration) *Sender {
	return &Sender{
		client:     resty.New().SetTimeout(timeout),
		webhookUrl: webhookUrl,
	}
}

type sendResponse struct {
	MessageId string `json:"messageId"`
}

func (s *Sender) Send(ctx context.Context, msg model.OutboundMessage) (string, error) {
	var result sendResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&result).
		Post(s.webhookUrl)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		logger.Error("message gateway rejected send",
			zap.String("conversationId", msg.ConversationId),
			zap.Int("status", resp.StatusCode()))
		return "", fmt.Errorf("message gateway returned status %d", resp.StatusCode())
	}
	return result.MessageId, nil
}
