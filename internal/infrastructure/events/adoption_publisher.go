package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
)

// JSONPublisher is the AMQP side of the publisher; helpers.RabbitPublisher implements it.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

const publishTimeout = 2 * time.Second

// AdoptionPublisher sends adoption events to the notification queue.
// Publishing never blocks a transition for longer than publishTimeout.
type AdoptionPublisher struct {
	amqp   JSONPublisher
	logger logrus.FieldLogger
}

func NewAdoptionPublisher(p JSONPublisher, logger logrus.FieldLogger) *AdoptionPublisher {
	return &AdoptionPublisher{amqp: p, logger: logger}
}

func (p *AdoptionPublisher) PublishAdoption(ctx context.Context, ev entity.AdoptionEvent) error {
	if p == nil || p.amqp == nil {
		return nil
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.amqp.PublishJSON(c, ev.Type, ev); err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"event":       ev.Type,
			"adoption_id": ev.AdoptionID,
		}).Debug("adoption event published")
	}
	return nil
}
