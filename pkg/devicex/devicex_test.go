package devicex

import (
	"context"
	"net"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestFingerprintIsDeterministic(t *testing.T) {
	f := Facts{
		MAC:       "aa:bb:cc:dd:ee:ff",
		Hostname:  "caja-01",
		OS:        "linux",
		Release:   "6.1.0",
		Processor: "x86_64",
	}

	a := f.Fingerprint()
	require.Regexp(t, hexDigest, a)
	require.Equal(t, a, f.Fingerprint())

	f.Hostname = "caja-02"
	require.NotEqual(t, a, f.Fingerprint())
}

func TestComputeStableWithinProcess(t *testing.T) {
	a := Compute()
	b := Compute()
	require.Regexp(t, hexDigest, a)
	require.Equal(t, a, b)

	require.True(t, Validate(a))
	require.False(t, Validate("not-the-fingerprint"))
}

func TestCollectNeverEmpty(t *testing.T) {
	f := Collect(context.Background())
	require.NotEmpty(t, f.MAC)
	require.NotEmpty(t, f.Hostname)
	require.NotEmpty(t, f.OS)
	require.NotEmpty(t, f.Release)
	require.NotEmpty(t, f.Processor)
}

func TestMacFrom(t *testing.T) {
	loopback := net.Interface{Index: 1, Name: "lo", Flags: net.FlagLoopback | net.FlagUp}
	zero := net.Interface{Index: 2, Name: "dummy0", HardwareAddr: net.HardwareAddr{0, 0, 0, 0, 0, 0}}
	eth := net.Interface{Index: 3, Name: "eth0", HardwareAddr: net.HardwareAddr{0x02, 0x42, 0xAC, 0x11, 0x00, 0x02}}

	t.Run("first usable interface", func(t *testing.T) {
		require.Equal(t, "02:42:ac:11:00:02", macFrom([]net.Interface{loopback, zero, eth}))
	})

	t.Run("nothing usable degrades to unknown", func(t *testing.T) {
		require.Equal(t, Unknown, macFrom([]net.Interface{loopback, zero}))
		require.Equal(t, Unknown, macFrom(nil))
	})
}

func TestFormatMAC(t *testing.T) {
	require.Equal(t, "00:1a:2b:3c:4d:5e", FormatMAC(net.HardwareAddr{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e}))
	require.Equal(t, Unknown, FormatMAC(net.HardwareAddr{1, 2, 3}))
}
