package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessage(t *testing.T) {
	requestID := uuid.New()
	adminID := uuid.New()
	event := New(TypeRequestApproved, requestID, adminID, map[string]interface{}{"strips": 20})

	msg, err := toMessage(event)
	require.NoError(t, err)
	assert.Equal(t, requestID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, TypeRequestApproved, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, adminID, decoded.ActorID)
	assert.EqualValues(t, 20, decoded.Data["strips"])
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestNoopPublisher(t *testing.T) {
	var publisher Publisher = Noop{}
	assert.NoError(t, publisher.Publish(context.Background(), New(TypePaymentPaid, uuid.New(), uuid.New(), nil)))
	assert.NoError(t, publisher.Close())
}
