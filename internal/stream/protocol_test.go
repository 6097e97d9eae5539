package stream

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpatel2913/Faceable/internal/cursor"
	"github.com/kpatel2913/Faceable/internal/gesture"
)

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{
		"type": "frame",
		"sequence": 7,
		"timestamp": 1250.5,
		"blendshapes": [
			{"categoryName": "mouthSmileLeft", "score": 0.9},
			{"categoryName": "browInnerUp", "score": 0.1}
		],
		"landmark": {"x": 0.4, "y": 0.6}
	}`))
	require.NoError(t, err)

	assert.Equal(t, TypeFrame, msg.Type)
	assert.Equal(t, int64(7), msg.Sequence)
	require.NotNil(t, msg.Timestamp)
	assert.Equal(t, 1250.5, *msg.Timestamp)
	require.Len(t, msg.Blendshapes, 2)
	assert.Equal(t, "mouthSmileLeft", msg.Blendshapes[0].Name)
	require.NotNil(t, msg.Landmark)
	assert.Equal(t, cursor.Point{X: 0.4, Y: 0.6}, *msg.Landmark)
}

func TestDecodeMessage_CanvasCommands(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"select_tool","sequence":2,"tool":"eraser"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeSelectTool, msg.Type)
	assert.Equal(t, "eraser", msg.Tool)

	msg, err = DecodeMessage([]byte(`{"type":"select_color","color":"#ec4899"}`))
	require.NoError(t, err)
	assert.Equal(t, "#ec4899", msg.Color)

	msg, err = DecodeMessage([]byte(`{"type":"clear"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeClear, msg.Type)
}

func TestDecodeMessage_Errors(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"ping"}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DecodeMessage([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = DecodeMessage([]byte(`{"type":"frame","timestamp":"soon"}`))
	assert.Error(t, err)
}

func TestInput_Timestamp(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := epoch.Add(time.Hour)

	ms := 1500.0
	in, err := (&InboundMessage{Type: TypeFrame, Timestamp: &ms}).Input(epoch, now)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(1500*time.Millisecond), in.Timestamp)

	in, err = (&InboundMessage{Type: TypeFrame}).Input(epoch, now)
	require.NoError(t, err)
	assert.Equal(t, now, in.Timestamp, "frames without a timestamp use the receive time")

	for _, bad := range []float64{math.Inf(1), math.NaN(), 1e13, -1e13} {
		_, err = (&InboundMessage{Type: TypeFrame, Timestamp: &bad}).Input(epoch, now)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "timestamp %v", bad)
	}

	edge := -9e12
	in, err = (&InboundMessage{Type: TypeFrame, Timestamp: &edge}).Input(epoch, now)
	require.NoError(t, err)
	assert.True(t, in.Timestamp.Before(epoch))
}

func TestInput_Blendshapes(t *testing.T) {
	now := time.Now()

	in, err := (&InboundMessage{Type: TypeFrame}).Input(now, now)
	require.NoError(t, err)
	assert.Nil(t, in.Blendshapes, "absent blendshapes stay nil")

	in, err = (&InboundMessage{
		Type:        TypeFrame,
		Blendshapes: []gesture.Category{{Name: "jawOpen", Score: 0.5}},
	}).Input(now, now)
	require.NoError(t, err)
	assert.Equal(t, 0.5, in.Blendshapes.Score(gesture.JawOpen))
}

func TestInput_Landmarks(t *testing.T) {
	now := time.Now()

	t.Run("single landmark", func(t *testing.T) {
		in, err := (&InboundMessage{Type: TypeFrame, Landmark: &cursor.Point{X: 0.3, Y: 0.7}}).Input(now, now)
		require.NoError(t, err)
		require.NotNil(t, in.Landmark)
		assert.Equal(t, cursor.Point{X: 0.3, Y: 0.7}, *in.Landmark)
	})

	t.Run("mesh uses nose tip", func(t *testing.T) {
		mesh := []cursor.Point{{X: 0.1, Y: 0.1}, {X: 0.45, Y: 0.55}, {X: 0.9, Y: 0.9}}
		in, err := (&InboundMessage{Type: TypeFrame, Landmarks: mesh}).Input(now, now)
		require.NoError(t, err)
		require.NotNil(t, in.Landmark)
		assert.Equal(t, mesh[cursor.NoseTipIndex], *in.Landmark)
	})

	t.Run("mesh too short", func(t *testing.T) {
		in, err := (&InboundMessage{Type: TypeFrame, Landmarks: []cursor.Point{{X: 0.1, Y: 0.1}}}).Input(now, now)
		require.NoError(t, err)
		assert.Nil(t, in.Landmark)
	})

	t.Run("no face", func(t *testing.T) {
		in, err := (&InboundMessage{Type: TypeFrame}).Input(now, now)
		require.NoError(t, err)
		assert.Nil(t, in.Landmark)
	})
}
