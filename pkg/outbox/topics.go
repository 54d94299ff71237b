package outbox

import (
	"fmt"

	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
)

// TopicRouter maps aggregate types to the Pub/Sub topic carrying them.
type TopicRouter struct {
	topics map[enums.OutboxAggregateType]string
}

func NewTopicRouter(cfg config.PubSubConfig) (*TopicRouter, error) {
	topics := map[enums.OutboxAggregateType]string{
		enums.AggregateOrder:     cfg.OrdersTopic,
		enums.AggregatePayment:   cfg.PaymentsTopic,
		enums.AggregateInventory: cfg.InventoryTopic,
	}
	for agg, topic := range topics {
		if topic == "" {
			return nil, fmt.Errorf("topic for %s events is required", agg)
		}
	}
	return &TopicRouter{topics: topics}, nil
}

// TopicFor returns the destination topic of an aggregate type.
func (r *TopicRouter) TopicFor(agg enums.OutboxAggregateType) (string, bool) {
	topic, ok := r.topics[agg]
	return topic, ok
}
