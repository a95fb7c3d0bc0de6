package eventsub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "b1", routingKey(json.RawMessage(`{"broadcaster_user_id":"b1"}`)))
	assert.Equal(t, "b9", routingKey(json.RawMessage(`{"from_broadcaster_user_id":"b2","to_broadcaster_user_id":"b9"}`)),
		"raid events route to the raid target")
	assert.Equal(t, "", routingKey(json.RawMessage(`not json`)))
	assert.Equal(t, "", routingKey(json.RawMessage(`{}`)))
}
