package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pspublisher "github.com/JakeFAU/bond-envelope/internal/publisher/pubsub"
)

func newFakeClient(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := pubsub.NewClient(ctx, "bond-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	return srv, client
}

func TestPublisherPublishesJSON(t *testing.T) {
	ctx := context.Background()
	srv, client := newFakeClient(t)

	_, err := client.CreateTopic(ctx, "bond-snapshots")
	require.NoError(t, err)

	pub := pspublisher.NewWithClient(client)
	id, err := pub.Publish(ctx, "bond-snapshots", map[string]any{"kind": "bonds-raw", "rows": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "application/json", msgs[0].Attributes["content_type"])

	var got map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "bonds-raw", got["kind"])
	assert.InDelta(t, 3, got["rows"], 0)

	require.NoError(t, pub.Close())
}

func TestPublisherUnknownTopic(t *testing.T) {
	ctx := context.Background()
	_, client := newFakeClient(t)

	pub := pspublisher.NewWithClient(client)
	t.Cleanup(func() { _ = pub.Close() })

	_, err := pub.Publish(ctx, "missing", "payload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish message to missing")
}

func TestPublisherValidation(t *testing.T) {
	_, err := pspublisher.New(context.Background(), "")
	require.Error(t, err)

	pub := pspublisher.NewWithClient(nil)
	_, err = pub.Publish(context.Background(), "topic", "payload")
	require.Error(t, err)
	require.NoError(t, pub.Close())

	_, client := newFakeClient(t)
	pub = pspublisher.NewWithClient(client)
	_, err = pub.Publish(context.Background(), "", "payload")
	require.Error(t, err)
	require.NoError(t, pub.Close())
}
