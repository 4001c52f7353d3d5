package notifier

import (
	"context"

	"matchpool/core"

	"github.com/fox-one/pkg/logger"
	"github.com/go-resty/resty/v2"
)

type notifier struct {
	client *resty.Client
}

// New position event notifier posting to an external webhook
func New(endpoint string) core.Notifier {
	if endpoint == "" {
		return &mute{}
	}

	client := resty.New().
		SetBaseURL(endpoint).
		SetHeader("Content-Type", "application/json")

	return &notifier{client: client}
}

func (n *notifier) Notify(ctx context.Context, events []*core.PositionEvent) error {
	updates := make([]*core.PositionUpdate, 0, len(events))
	for _, event := range events {
		update, err := event.Update()
		if err != nil {
			return err
		}
		updates = append(updates, update)
	}

	r, err := n.client.R().SetContext(ctx).SetBody(updates).Post("/position-updates")
	if err != nil {
		return err
	}

	if r.IsError() {
		logger.FromContext(ctx).Errorln("notifier: webhook status", r.StatusCode())
		return core.ErrNotifyFailed
	}

	return nil
}

// mute swallows events when no webhook is configured, the pump still
// advances its checkpoint and prunes the outbox
type mute struct{}

func (m *mute) Notify(ctx context.Context, events []*core.PositionEvent) error {
	for _, event := range events {
		logger.FromContext(ctx).Debugln("position update:", event.UserID, event.AssetID)
	}
	return nil
}
