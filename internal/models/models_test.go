package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadDecodesClientFlush(t *testing.T) {
	body := `{
		"broker": "none",
		"campaign": "fennec",
		"context": "web",
		"duration": 1234,
		"events": [{"type": "screen.signin", "offset": 10}, {"type": "inactivity.flush", "offset": 600000}],
		"lang": "en-US",
		"marketing": [{"campaignId": "spring-2015", "url": "https://example.com", "clicked": true}],
		"screen": {"devicePixelRatio": 2, "clientWidth": "none", "clientHeight": 768, "width": 1366, "height": 768},
		"timers": {"signin": [{"start": 5, "stop": 25, "elapsed": 20}]},
		"utm_source": "firstrun",
		"unexpected": "ignored"
	}`

	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(body), &payload))

	assert.Equal(t, "fennec", payload.Campaign)
	assert.Equal(t, int64(1234), payload.Duration)
	require.Len(t, payload.Events, 2)
	assert.Equal(t, "inactivity.flush", payload.Events[1].Type)
	require.Len(t, payload.Marketing, 1)
	assert.True(t, payload.Marketing[0].Clicked)
	assert.Equal(t, int64(20), payload.Timers["signin"][0].Elapsed)
	require.NotNil(t, payload.Screen)
	assert.Equal(t, NotReported, payload.Screen.ClientWidth)
	assert.Equal(t, "firstrun", payload.UTMSource)
}

func TestPayloadWithoutOptionalFields(t *testing.T) {
	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(`{"context": "web"}`), &payload))

	assert.Nil(t, payload.Screen)
	assert.Nil(t, payload.NavigationTiming)
	assert.Empty(t, payload.Events)
}

func TestClientErrorMessage(t *testing.T) {
	withMessage := &ClientError{Context: "signin", Namespace: "auth", Errno: 102, Message: "Unknown account"}
	assert.Equal(t, "Unknown account", withMessage.Error())

	bare := &ClientError{Namespace: "auth", Errno: 102}
	assert.Equal(t, "auth error 102", bare.Error())
}

func TestNilClientErrorHasEmptyParts(t *testing.T) {
	var err *ClientError
	assert.Empty(t, err.Error())
	assert.Empty(t, err.ErrorContext())
	assert.Empty(t, err.ErrorNamespace())
	assert.Zero(t, err.ErrorNumber())
}

func TestAllowedFieldsAreUnique(t *testing.T) {
	seen := make(map[string]bool, len(AllowedFields))
	for _, field := range AllowedFields {
		assert.False(t, seen[field], "duplicate allowed field %s", field)
		seen[field] = true
	}
	assert.Len(t, seen, 20)
}
