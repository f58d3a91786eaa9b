package redis

import (
	"context"
	"encoding/json"
	"testing"

	"collateral-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStream_Publish(t *testing.T) {
	_, client := newTestClient(t)
	stream := NewEventStream(client, "ledger:events")
	ctx := context.Background()

	events := []domain.Event{
		{Sequence: 1, Type: domain.EventItemListed, Key: domain.CollateralKey{CollectionID: "punks", TokenID: "7"}, Principal: "alice", Amount: 100, Digest: "d1"},
		{Sequence: 2, Type: domain.EventItemLoaned, Key: domain.CollateralKey{CollectionID: "punks", TokenID: "7"}, Principal: "bob", Counterparty: "alice", Amount: 100, Digest: "d2"},
	}
	require.NoError(t, stream.Publish(ctx, events))

	msgs, err := client.XRange(ctx, "ledger:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "1", msgs[0].Values["sequence"])
	assert.Equal(t, "ItemListed", msgs[0].Values["type"])
	assert.Equal(t, "d2", msgs[1].Values["digest"])

	var decoded domain.Event
	require.NoError(t, json.Unmarshal([]byte(msgs[1].Values["payload"].(string)), &decoded))
	assert.Equal(t, domain.Principal("alice"), decoded.Counterparty)
	assert.Equal(t, "redis-stream", stream.Name())
}

func TestEventStream_PublishEmpty(t *testing.T) {
	s, client := newTestClient(t)
	stream := NewEventStream(client, "ledger:events")

	require.NoError(t, stream.Publish(context.Background(), nil))
	assert.False(t, s.Exists("ledger:events"))
}

func TestEventStream_PublishFailsWhenRedisDown(t *testing.T) {
	s, client := newTestClient(t)
	stream := NewEventStream(client, "ledger:events")
	s.Close()

	err := stream.Publish(context.Background(), []domain.Event{{Sequence: 1, Type: domain.EventItemListed}})
	assert.ErrorContains(t, err, "redis xadd")
}
