package eventbus

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_DefaultsVersionAndMarshalsData(t *testing.T) {
	env, err := NewEnvelope(StreamUserEvents, TypeUserRegistered, 0, UserRegisteredPayload{
		UserID: "u-1", Email: "a@b.com", Tier: "free",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version, "version <= 0 defaults to 1")
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, StreamUserEvents, env.Stream)
	assert.JSONEq(t, `{"user_id":"u-1","email":"a@b.com","tier":"free"}`, string(env.Data))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	env, err := NewEnvelope(StreamSystemEvents, TypeCriticalError, 1, CriticalErrorPayload{
		Service: "notify", Message: "boom", Trace: "trace-1",
	})
	require.NoError(t, err)
	env.CorrelationID = "corr-1"
	env.UserID = "u-2"
	env.Metadata = map[string]string{"retry_of": "env-0"}

	values, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode(stringifyValues(t, values))
	require.NoError(t, err)

	assert.Equal(t, env.ID, decoded.ID)
	assert.Equal(t, env.Stream, decoded.Stream)
	assert.Equal(t, env.Type, decoded.Type)
	assert.Equal(t, env.Version, decoded.Version)
	assert.Equal(t, env.CorrelationID, decoded.CorrelationID)
	assert.Equal(t, env.UserID, decoded.UserID)
	assert.Equal(t, env.Metadata, decoded.Metadata)
	assert.JSONEq(t, string(env.Data), string(decoded.Data))
	assert.True(t, env.Timestamp.Equal(decoded.Timestamp))
}

func TestDecode_MissingRequiredFieldFails(t *testing.T) {
	_, err := Decode(map[string]string{"stream": "system.events"})
	require.Error(t, err)
}

func TestWithMetadata_MergesWithoutMutatingOriginal(t *testing.T) {
	env := Envelope{Metadata: map[string]string{"a": "1"}}
	merged := env.WithMetadata(map[string]string{"b": "2"})

	assert.Equal(t, map[string]string{"a": "1"}, env.Metadata, "original must be untouched")
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, merged.Metadata)
}

// stringifyValues mirrors the %v rendering the real Redis client would apply
// when writing an XADD field map, since Encode returns map[string]interface{}
// but Decode takes the map[string]string a stream read actually yields.
func stringifyValues(t *testing.T, values map[string]interface{}) map[string]string {
	t.Helper()
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch vv := v.(type) {
		case string:
			out[k] = vv
		case int:
			out[k] = strconv.Itoa(vv)
		default:
			t.Fatalf("unexpected value type %T for field %q", v, k)
		}
	}
	return out
}
