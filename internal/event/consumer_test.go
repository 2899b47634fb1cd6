package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/engine"
	"github.com/velora/search-service/internal/engine/memory"
	"github.com/velora/search-service/internal/ranking"
	"github.com/velora/search-service/internal/service"
	pkgkafka "github.com/velora/search-service/pkg/kafka"
)

func newTestConsumer(t *testing.T) (*Consumer, *memory.Engine) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mem := memory.New(ranking.Config{})
	index := service.NewIndexService([]engine.Indexer{mem}, cache.NewRedisStore(client), slog.New(slog.DiscardHandler))
	return NewConsumer(index, slog.New(slog.DiscardHandler)), mem
}

func productEvent(t *testing.T, eventType string, data any) *pkgkafka.Event {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	return &pkgkafka.Event{
		EventID:   "evt-1",
		EventType: eventType,
		Data:      payload,
	}
}

func countFor(t *testing.T, mem *memory.Engine, query string) int {
	t.Helper()

	result, err := mem.Search(context.Background(), &domain.SearchQuery{Query: query, Page: 1, PerPage: 10}, nil)
	require.NoError(t, err)
	return result.Total
}

func TestConsumer_Handle_ProductCreatedIndexes(t *testing.T) {
	consumer, mem := newTestConsumer(t)

	categoryID := "c1"
	event := productEvent(t, TopicProductCreated, ProductEventData{
		ID:         "p1",
		Name:       "Canvas Tote Bag",
		CategoryID: &categoryID,
		Price:      1500,
		Status:     domain.StatusApproved,
	})

	require.NoError(t, consumer.Handle(context.Background(), event))
	assert.Equal(t, 1, countFor(t, mem, "tote"))
}

func TestConsumer_Handle_UnapprovedUpdateRemovesFromIndex(t *testing.T) {
	consumer, mem := newTestConsumer(t)

	event := productEvent(t, TopicProductCreated, ProductEventData{
		ID: "p1", Name: "Canvas Tote Bag", Price: 1500, Status: domain.StatusApproved,
	})
	require.NoError(t, consumer.Handle(context.Background(), event))
	require.Equal(t, 1, countFor(t, mem, "tote"))

	rejected := productEvent(t, TopicProductUpdated, ProductEventData{
		ID: "p1", Name: "Canvas Tote Bag", Price: 1500, Status: domain.StatusRejected,
	})
	require.NoError(t, consumer.Handle(context.Background(), rejected))
	assert.Equal(t, 0, countFor(t, mem, "tote"))
}

func TestConsumer_Handle_ProductDeletedRemovesFromIndex(t *testing.T) {
	consumer, mem := newTestConsumer(t)

	created := productEvent(t, TopicProductCreated, ProductEventData{
		ID: "p1", Name: "Canvas Tote Bag", Price: 1500, Status: domain.StatusApproved,
	})
	require.NoError(t, consumer.Handle(context.Background(), created))

	deleted := productEvent(t, TopicProductDeleted, ProductDeletedData{ID: "p1"})
	require.NoError(t, consumer.Handle(context.Background(), deleted))
	assert.Equal(t, 0, countFor(t, mem, "tote"))
}

func TestConsumer_Handle_UnknownEventTypeIsAcknowledged(t *testing.T) {
	consumer, _ := newTestConsumer(t)

	event := &pkgkafka.Event{EventID: "evt-9", EventType: "marketplace.order.created"}
	assert.NoError(t, consumer.Handle(context.Background(), event))
}

func TestConsumer_Handle_MalformedPayloadErrors(t *testing.T) {
	consumer, _ := newTestConsumer(t)

	event := &pkgkafka.Event{
		EventID:   "evt-2",
		EventType: TopicProductCreated,
		Data:      json.RawMessage(`{"id":`),
	}
	assert.Error(t, consumer.Handle(context.Background(), event))
}
