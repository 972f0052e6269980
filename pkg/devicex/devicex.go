// Package devicex derives a stable identifier for the machine the process
// runs on. The identifier is bound into app tokens so a token copied to
// another machine can be told apart.
package devicex

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
)

// Unknown replaces any component that could not be read.
const Unknown = "unknown"

const separator = "|"

// collectTimeout bounds the gopsutil calls, which read /proc or shell out
// depending on the platform.
const collectTimeout = 2 * time.Second

// Facts are the host properties that make up a fingerprint.
type Facts struct {
	MAC       string `json:"mac"`
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	Release   string `json:"release"`
	Processor string `json:"processor"`
}

// Fingerprint returns the SHA-256 hex digest of the joined facts.
func (f Facts) Fingerprint() string {
	joined := strings.Join([]string{f.MAC, f.Hostname, f.OS, f.Release, f.Processor}, separator)
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// Collect reads the facts of the current host. It never fails: missing
// values degrade to Unknown or to what the Go runtime knows.
func Collect(ctx context.Context) Facts {
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	f := Facts{
		MAC:       Unknown,
		Hostname:  Unknown,
		OS:        runtime.GOOS,
		Release:   Unknown,
		Processor: runtime.GOARCH,
	}

	if ifaces, err := net.Interfaces(); err == nil {
		f.MAC = macFrom(ifaces)
	}

	if name, err := os.Hostname(); err == nil && name != "" {
		f.Hostname = name
	}

	// Only the stable facts are queried; host.Info also reads uptime and
	// process counts and fails as a whole if any of them does.
	if release, err := host.KernelVersionWithContext(ctx); err == nil && release != "" {
		f.Release = release
	}
	if arch, err := host.KernelArch(); err == nil && arch != "" {
		f.Processor = arch
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 && cpus[0].ModelName != "" {
		f.Processor = strings.TrimSpace(cpus[0].ModelName)
	}

	return f
}

// Compute returns the fingerprint of the current host.
func Compute() string {
	return Collect(context.Background()).Fingerprint()
}

// Validate recomputes the fingerprint and compares it with expected.
func Validate(expected string) bool {
	actual := Compute()
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}

// macFrom picks the first non-loopback interface with a non-zero six byte
// address. Link state is ignored so the pick survives a NIC going down.
// Interfaces are walked in index order.
func macFrom(ifaces []net.Interface) string {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) != 6 {
			continue
		}
		if isZero(iface.HardwareAddr) {
			continue
		}
		return FormatMAC(iface.HardwareAddr)
	}
	return Unknown
}

// FormatMAC renders a 48-bit address as colon-separated lowercase hex
// octets, most significant byte first.
func FormatMAC(addr net.HardwareAddr) string {
	if len(addr) != 6 {
		return Unknown
	}
	return addr.String()
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
