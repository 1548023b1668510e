package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{ErrAlreadyAdvertising, StatusOK},
		{ErrAlreadyFinding, StatusOK},
		{ErrUnknownHandle, StatusUnknownHandle},
		{ErrUnknownPeer, StatusUnknownPeer},
		{ErrAlreadyLinked, StatusAlreadyLinked},
		{fmt.Errorf("connect: %w", ErrOsOperationFailed), StatusOsOperationFailed},
		{ErrChannelDown, StatusChannelDown},
		{ErrNotInitialized, StatusNotInitialized},
		{context.DeadlineExceeded, StatusNotInitialized},
		{ErrInvalidArgument, StatusInvalidArgument},
		{errors.New("boom"), StatusOsOperationFailed},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusOf(c.err), "%v", c.err)
	}

	t.Log("✅ StatusOf 映射正确")
}

func TestStatus_Err(t *testing.T) {
	assert.NoError(t, StatusOK.Err())
	assert.ErrorIs(t, StatusUnknownHandle.Err(), ErrUnknownHandle)
	assert.ErrorIs(t, StatusP2PDisabled.Err(), ErrP2PDisabled)
	assert.True(t, StatusOK.IsOK())
	assert.False(t, StatusChannelDown.IsOK())
	assert.Equal(t, "ChannelDown", StatusChannelDown.String())
}

func TestLinkState(t *testing.T) {
	assert.Equal(t, "REQUESTED", LinkStateRequested.String())
	assert.Equal(t, "ESTABLISHED", LinkStateEstablished.String())
	assert.False(t, LinkStateNegotiating.IsTerminal())
	assert.True(t, LinkStateReleased.IsTerminal())
	assert.True(t, LinkStateError.IsTerminal())
}

func TestConnectionInfo_Contains(t *testing.T) {
	info := ConnectionInfo{Devices: []DeviceID{"02:AA:00:00:00:01"}}
	assert.True(t, info.Contains("02:aa:00:00:00:01"))
	assert.False(t, info.Contains("02:aa:00:00:00:02"))
}

func TestSignalKind_String(t *testing.T) {
	assert.Equal(t, "OnLinkEstablished", SignalLinkEstablished.String())
	assert.Equal(t, "OnLostAdvertisedName", SignalLostAdvertisedName.String())
}
