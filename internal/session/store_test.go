package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-assistant/internal/booking"
)

func sampleSession() *Session {
	s := New("abc", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	s.State = booking.StateCollecting
	s.Record = booking.Record{Name: "Jane Doe", Email: "jane@x.com"}
	s.LastReady = true
	s.append(RoleUser, "hi", s.CreatedAt)
	return s
}

func TestMemoryStoreRoundTripAndIsolation(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()
	orig := sampleSession()
	require.NoError(t, store.Save(ctx, orig))

	orig.Transcript[0].Content = "mutated"
	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Transcript[0].Content)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Save(context.Background(), sampleSession()))

	now = now.Add(2 * time.Minute)
	_, err := store.Load(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, 30*time.Minute)
	ctx := context.Background()

	_, err := store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, sampleSession()))
	assert.True(t, mr.Exists("session:abc"))
	assert.Equal(t, 30*time.Minute, mr.TTL("session:abc"))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Record.Name)
	assert.Equal(t, booking.StateCollecting, got.State)
	assert.True(t, got.LastReady)
	require.Len(t, got.Transcript, 1)

	mr.FastForward(31 * time.Minute)
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, sampleSession()))
	require.NoError(t, store.Delete(ctx, "abc"))
	assert.False(t, mr.Exists("session:abc"))
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, 0)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

type stubDynamo struct {
	items map[string]map[string]types.AttributeValue
	err   error
}

func (s *stubDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	id := in.Item["sessionId"].(*types.AttributeValueMemberS).Value
	s.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (s *stubDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	id := in.Key["sessionId"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: s.items[id]}, nil
}

func (s *stubDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	id := in.Key["sessionId"].(*types.AttributeValueMemberS).Value
	delete(s.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStore(t *testing.T) {
	api := &stubDynamo{items: map[string]map[string]types.AttributeValue{}}
	store := NewDynamoStore(api, "sessions", time.Hour)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, sampleSession()))
	item := api.items["abc"]
	require.NotNil(t, item)
	exp := item["expiresAt"].(*types.AttributeValueMemberN).Value
	assert.Equal(t, "1773147600", exp)

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", got.Record.Email)

	now = now.Add(2 * time.Hour)
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "abc"))
	assert.Empty(t, api.items)
}

func TestDynamoStorePropagatesErrors(t *testing.T) {
	api := &stubDynamo{items: map[string]map[string]types.AttributeValue{}, err: errors.New("throttled")}
	store := NewDynamoStore(api, "sessions", 0)
	assert.Error(t, store.Save(context.Background(), sampleSession()))
	_, err := store.Load(context.Background(), "abc")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
