package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/product"
	"github.com/mvega/pos-checkout-service/internal/product/dto"
	"github.com/mvega/pos-checkout-service/pkg/broker"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

// RestockListener applies stock replenishments published by the purchasing
// system.
type RestockListener struct {
	consumer *broker.KafkaConsumer
	uc       product.UseCase
	logger   logger.ZapLogger
}

func NewRestockListener(consumer *broker.KafkaConsumer, uc product.UseCase, logger logger.ZapLogger) *RestockListener {
	return &RestockListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *RestockListener) Start(ctx context.Context) {
	l.logger.Info("Starting Restock Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Restock Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type StockReplenishedEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Payload   RestockPayload `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

type RestockPayload struct {
	PurchaseOrderID string              `json:"purchase_order_id"`
	Items           []RestockItemUpdate `json:"items"`
}

type RestockItemUpdate struct {
	ProductID string                `json:"product_id"`
	Selection model.VariantSelector `json:"selection"`
	Quantity  int                   `json:"quantity"`
}

func (l *RestockListener) processMessage(ctx context.Context, value []byte) {
	var event StockReplenishedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "StockReplenished" {
		return
	}

	l.logger.Info("Processing StockReplenished event", zap.String("purchase_order_id", event.Payload.PurchaseOrderID))

	for _, item := range event.Payload.Items {
		input := &dto.RestockInput{
			ProductID:     item.ProductID,
			Selector:      item.Selection,
			QuantityAdded: item.Quantity,
			ReferenceType: "purchase_order",
			ReferenceID:   event.Payload.PurchaseOrderID,
		}

		if _, err := l.uc.RestockVariant(ctx, input); err != nil {
			l.logger.Error("Failed to restock variant",
				zap.String("purchase_order_id", event.Payload.PurchaseOrderID),
				zap.String("product_id", item.ProductID),
				zap.String("size", item.Selection.Size),
				zap.String("color", item.Selection.Color),
				zap.Error(err),
			)
		}
	}
}
