package wol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicPacket(t *testing.T) {
	packet, err := MagicPacket("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	require.Len(t, packet, 102)

	for i := 0; i < 6; i++ {
		assert.Equal(t, byte(0xFF), packet[i])
	}
	mac := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for i := 0; i < 16; i++ {
		assert.Equal(t, mac, packet[6+i*6:12+i*6])
	}
}

func TestMagicPacket_AcceptsDashSeparators(t *testing.T) {
	packet, err := MagicPacket("aa-bb-cc-dd-ee-ff")
	require.NoError(t, err)
	assert.Len(t, packet, 102)
}

func TestMagicPacket_RejectsGarbage(t *testing.T) {
	_, err := MagicPacket("not a mac")
	assert.Error(t, err)

	_, err = MagicPacket("")
	assert.Error(t, err)
}
