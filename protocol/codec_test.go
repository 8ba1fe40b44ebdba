package protocol

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack"

	"github.com/layer-3/keygate/core"
)

func encodeMap(t *testing.T, m map[string]interface{}) []byte {
	t.Helper()
	b, err := msgpack.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestCodec_DecodeChallengeResponse(t *testing.T) {
	codec := NewCodec()
	ts := int64(1700000000123)
	frame, err := codec.Encode(NewChallengeResponseMessage("u1", []byte{1, 2, 3}, &ts))
	require.NoError(t, err)

	env, err := codec.Decode(frame)
	require.NoError(t, err)
	require.NoError(t, env.Validate())

	kind, ok := env.Kind()
	require.True(t, ok)
	assert.Equal(t, ClientAuthenticationChallengeResp, kind)
	assert.Equal(t, "u1", env.UserID)
	assert.Equal(t, []byte{1, 2, 3}, env.Signature)

	got, ok := env.TimestampMillis()
	require.True(t, ok)
	assert.Equal(t, ts, got)
}

func TestCodec_DecodeServerMessages(t *testing.T) {
	codec := NewCodec()

	frame, err := codec.Encode(NewSuccessMessage(core.PublicUser{ID: "u1", Email: "a@b.c", PublicKey: []byte{9}}, "tok"))
	require.NoError(t, err)
	env, err := codec.DecodeReply(frame)
	require.NoError(t, err)
	kind, _ := env.Kind()
	assert.Equal(t, ServerAuthenticationSuccess, kind)
	require.NotNil(t, env.User)
	assert.Equal(t, "u1", env.User.ID)
	assert.Equal(t, []byte{9}, env.User.PublicKey)
	assert.Equal(t, "tok", env.Token)

	frame, err = codec.Encode(NewErrorMessage(ErrorCodeAlreadyAuthenticated))
	require.NoError(t, err)
	env, err = codec.DecodeReply(frame)
	require.NoError(t, err)
	kind, _ = env.Kind()
	assert.Equal(t, ServerError, kind)
	assert.Equal(t, ErrorCodeAlreadyAuthenticated, env.ErrorCode)

	frame, err = codec.Encode(NewVerificationFailure())
	require.NoError(t, err)
	env, err = codec.DecodeReply(frame)
	require.NoError(t, err)
	assert.Equal(t, FailureVerificationFailed, env.Error)
	assert.Empty(t, env.Message)
}

func encodeValue(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := msgpack.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestCodec_DecodeMalformed(t *testing.T) {
	codec := NewCodec()

	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", []byte{}},
		{"truncated map", []byte{0x82, 0xa4, 't'}},
		{"reserved code", []byte{0xc1}},
		{"plain text", []byte("hello there")},
		{"array frame", encodeValue(t, []interface{}{0x8000, "u1", []byte{1, 2, 3}, int64(1700000000123)})},
		{"scalar frame", encodeValue(t, 42)},
		{"string frame", encodeValue(t, "type")},
		{"nil frame", []byte{0xc0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := codec.Decode(tt.frame)
			require.Error(t, err)
			assert.Nil(t, env)

			var decErr *DecodeError
			assert.True(t, errors.As(err, &decErr))

			env, err = codec.DecodeReply(tt.frame)
			require.Error(t, err)
			assert.Nil(t, env)
			assert.True(t, errors.As(err, &decErr))
		})
	}
}

func TestCodec_DecodeIgnoresServerKeys(t *testing.T) {
	codec := NewCodec()

	env, err := codec.Decode(encodeMap(t, map[string]interface{}{
		"type":      0x8000,
		"userID":    "u1",
		"signature": []byte{1, 2, 3},
		"timestamp": int64(1700000000123),
		"message":   7,
		"errorCode": "oops",
		"user":      []interface{}{1, 2},
		"token":     false,
		"extra":     map[string]interface{}{"a": 1},
	}))
	require.NoError(t, err)
	require.NoError(t, env.Validate())

	kind, ok := env.Kind()
	require.True(t, ok)
	assert.Equal(t, ClientAuthenticationChallengeResp, kind)
	assert.Equal(t, "u1", env.UserID)
	assert.Equal(t, []byte{1, 2, 3}, env.Signature)
	assert.Empty(t, env.Message)
	assert.Nil(t, env.User)
}

func TestCodec_DecodeRejectsMistypedClientKeys(t *testing.T) {
	_, err := NewCodec().Decode(encodeMap(t, map[string]interface{}{
		"type":   0x8000,
		"userID": 7,
	}))
	var decErr *DecodeError
	assert.True(t, errors.As(err, &decErr))
}

func TestEnvelope_Validate(t *testing.T) {
	codec := NewCodec()

	tests := []struct {
		name      string
		msg       map[string]interface{}
		wantValid bool
		wantKind  MessageType
		wantKnown bool
	}{
		{"uint type", map[string]interface{}{"type": uint16(0x8000)}, true, ClientAuthenticationChallengeResp, true},
		{"float type", map[string]interface{}{"type": float64(0x8000)}, true, ClientAuthenticationChallengeResp, true},
		{"zero type", map[string]interface{}{"type": 0}, true, ServerError, true},
		{"missing type", map[string]interface{}{"userID": "u1"}, false, 0, false},
		{"string type", map[string]interface{}{"type": "32768"}, false, 0, false},
		{"nil type", map[string]interface{}{"type": nil}, false, 0, false},
		{"nan type", map[string]interface{}{"type": math.NaN()}, false, 0, false},
		{"inf type", map[string]interface{}{"type": math.Inf(1)}, false, 0, false},
		{"fractional type", map[string]interface{}{"type": 1.5}, true, 0, false},
		{"negative type", map[string]interface{}{"type": -1}, true, 0, false},
		{"out of range type", map[string]interface{}{"type": 1 << 20}, true, 0, false},
		{"string timestamp", map[string]interface{}{"type": 0x8000, "timestamp": "now"}, false, 0, false},
		{"float timestamp", map[string]interface{}{"type": 0x8000, "timestamp": float64(1700000000123)}, true, ClientAuthenticationChallengeResp, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := codec.Decode(encodeMap(t, tt.msg))
			require.NoError(t, err)

			err = env.Validate()
			if !tt.wantValid {
				assert.ErrorIs(t, err, ErrInvalidEnvelope)
				return
			}
			require.NoError(t, err)

			kind, ok := env.Kind()
			assert.Equal(t, tt.wantKnown, ok)
			if ok {
				assert.Equal(t, tt.wantKind, kind)
			}
		})
	}
}

func TestEnvelope_FloatTimestamp(t *testing.T) {
	env, err := NewCodec().Decode(encodeMap(t, map[string]interface{}{
		"type":      0x8000,
		"timestamp": float64(1700000000123),
	}))
	require.NoError(t, err)

	ts, ok := env.TimestampMillis()
	require.True(t, ok)
	assert.Equal(t, int64(1700000000123), ts)
}

func TestSignedPayload(t *testing.T) {
	challenge := []byte("0123456789abcdefghijklmn")
	ts := int64(1700000000000)

	a, err := SignedPayload(challenge, &ts)
	require.NoError(t, err)
	b, err := SignedPayload(challenge, &ts)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	untimed, err := SignedPayload(challenge, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, untimed)

	other := ts + 1
	c, err := SignedPayload(challenge, &other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	var decoded map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(untimed, &decoded))
	assert.Equal(t, challenge, decoded["buf"])
	assert.NotContains(t, decoded, "timestamp")
}

func TestMessageType_String(t *testing.T) {
	assert.Equal(t, "CLIENT_AUTHENTICATION_CHALLENGE_RESP", ClientAuthenticationChallengeResp.String())
	assert.Equal(t, "SERVER_ERROR", ServerError.String())
	assert.Equal(t, "0x0042", MessageType(0x42).String())
}
