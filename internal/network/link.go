package network

import (
	"bytes"
	"context"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/errors"
)

// LinkInfo describes the current association.
type LinkInfo struct {
	SSID string
	RSSI int // dBm; 0 when unknown
	IP   string
}

// Link is the network radio.
type Link interface {
	Connected(ctx context.Context) bool
	Associate(ctx context.Context, ssid, password string) error
	Info(ctx context.Context) LinkInfo
	Lookup(ctx context.Context, host string) (string, error)
}

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands on the host. A non-zero exit folds stderr into
// the returned error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, errors.WrapWithCode(err, errors.ErrNetwork, msg, "")
		}
		return out, err
	}
	return out, nil
}

// HostLink drives the host's WiFi through NetworkManager's nmcli. When nmcli
// is missing, the link is treated as up whenever a non-loopback interface
// has an address, so wired hosts work without it.
type HostLink struct {
	Interface    string
	ProbeTimeout time.Duration // bounds each DNS lookup; 0 means no limit

	run      Runner
	resolver *net.Resolver
	addrs    func() ([]net.Addr, error)
}

var _ Link = (*HostLink)(nil)

func NewHostLink(iface string) *HostLink {
	return &HostLink{
		Interface: iface,
		run:       ExecRunner,
		resolver:  net.DefaultResolver,
		addrs:     net.InterfaceAddrs,
	}
}

func (h *HostLink) Connected(ctx context.Context) bool {
	out, err := h.run(ctx, "nmcli", "-t", "-f", "STATE", "general")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return h.localIP() != ""
		}
		return false
	}
	state := strings.TrimSpace(string(out))
	return state == "connected" || state == "connected (site only)"
}

func (h *HostLink) Associate(ctx context.Context, ssid, password string) error {
	if ssid == "" {
		return errors.New(errors.ErrNetwork,
			"Link is down and no SSID is configured",
			"Add ssid and password to secrets.yaml")
	}

	args := []string{"device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	if h.Interface != "" {
		args = append(args, "ifname", h.Interface)
	}

	if _, err := h.run(ctx, "nmcli", args...); err != nil {
		return errors.WrapWithCode(err, errors.ErrNetwork,
			"Could not associate with "+ssid,
			"Check the SSID and password, and that the access point is in range")
	}
	return nil
}

func (h *HostLink) Info(ctx context.Context) LinkInfo {
	info := LinkInfo{IP: h.localIP()}

	out, err := h.run(ctx, "nmcli", "-t", "-f", "ACTIVE,SSID,SIGNAL", "device", "wifi")
	if err != nil {
		return info
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := splitTerse(line)
		if len(fields) != 3 || fields[0] != "yes" {
			continue
		}
		info.SSID = fields[1]
		if signal, err := strconv.Atoi(fields[2]); err == nil {
			info.RSSI = SignalToDBm(signal)
		}
		break
	}
	return info
}

func (h *HostLink) Lookup(ctx context.Context, host string) (string, error) {
	if h.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.ProbeTimeout)
		defer cancel()
	}
	addrs, err := h.resolver.LookupHost(ctx, host)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrNetwork,
			"DNS lookup of "+host+" failed",
			"The link is up but name resolution is not working")
	}
	if len(addrs) == 0 {
		return "", errors.New(errors.ErrNetwork,
			"DNS lookup of "+host+" returned no addresses", "")
	}
	return addrs[0], nil
}

func (h *HostLink) localIP() string {
	addrs, err := h.addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}

// SignalToDBm converts nmcli's 0-100 signal quality to an approximate RSSI.
func SignalToDBm(quality int) int {
	switch {
	case quality <= 0:
		return -100
	case quality >= 100:
		return -50
	}
	return quality/2 - 100
}

// splitTerse splits one line of nmcli -t output, honouring \: escapes.
func splitTerse(line string) []string {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return nil
	}
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case line[i] == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(line[i])
		}
	}
	return append(fields, cur.String())
}
