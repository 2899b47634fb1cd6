// Package event consumes catalog domain events and keeps the search indexes
// and derived caches in sync.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/service"
	pkgkafka "github.com/velora/search-service/pkg/kafka"
)

// Kafka topics for product domain events consumed by the search service.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// ProductEventData is the payload of product.created and product.updated
// events.
type ProductEventData struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Description  string           `json:"description"`
	CategoryID   *string          `json:"category_id,omitempty"`
	CategoryName string           `json:"category_name,omitempty"`
	BrandID      *string          `json:"brand_id,omitempty"`
	BrandName    string           `json:"brand_name,omitempty"`
	Price        int64            `json:"price"`
	Currency     string           `json:"currency"`
	Stock        int              `json:"stock"`
	Rating       float64          `json:"rating"`
	Featured     bool             `json:"featured"`
	Status       string           `json:"status"`
	ImageURL     string           `json:"image_url,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	Variants     []domain.Variant `json:"variants,omitempty"`
}

// ProductDeletedData is the payload of a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// Consumer routes catalog events to the index service.
type Consumer struct {
	index  *service.IndexService
	logger *slog.Logger
}

// NewConsumer creates an event consumer.
func NewConsumer(index *service.IndexService, logger *slog.Logger) *Consumer {
	return &Consumer{index: index, logger: logger}
}

// Handle processes one event based on its type. Unknown types are logged and
// acknowledged so a topic schema addition never wedges the consumer group.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductUpserted(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductUpserted indexes a created or updated product. A product that
// left the approved status is removed instead, since only approved items are
// searchable.
func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	if data.Status != domain.StatusApproved {
		if err := c.index.DeleteProduct(ctx, data.ID); err != nil {
			return fmt.Errorf("remove unapproved product from index: %w", err)
		}
		c.logger.InfoContext(ctx, "removed unapproved product from index",
			slog.String("product_id", data.ID),
			slog.String("status", data.Status),
		)
		return nil
	}

	product := &domain.Product{
		ID:           data.ID,
		Name:         data.Name,
		Slug:         data.Slug,
		Description:  data.Description,
		CategoryName: data.CategoryName,
		BrandName:    data.BrandName,
		Price:        data.Price,
		Currency:     data.Currency,
		Stock:        data.Stock,
		Rating:       data.Rating,
		Featured:     data.Featured,
		Status:       data.Status,
		ImageURL:     data.ImageURL,
		Tags:         data.Tags,
		Variants:     data.Variants,
	}
	if data.CategoryID != nil {
		product.CategoryID = *data.CategoryID
	}
	if data.BrandID != nil {
		product.BrandID = *data.BrandID
	}

	if err := c.index.IndexProduct(ctx, product); err != nil {
		return fmt.Errorf("index product from %s: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed product from catalog event",
		slog.String("product_id", data.ID),
		slog.String("event_type", event.EventType),
	)
	return nil
}

// handleProductDeleted removes a deleted product from the indexes.
func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}

	if err := c.index.DeleteProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from index",
		slog.String("product_id", data.ID),
	)
	return nil
}
