package probe

import (
	"context"
	"fmt"
	"net"
)

// TCP probes readiness with a bare socket connect.
type TCP struct {
	Addr   string
	dialer func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewTCP builds a TCP prober for host:port.
func NewTCP(host string, port int) *TCP {
	return &TCP{
		Addr:   net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		dialer: (&net.Dialer{}).DialContext,
	}
}

func (p *TCP) Probe(ctx context.Context) error {
	conn, err := p.dialer(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.Addr, err)
	}
	return conn.Close()
}

func (p *TCP) Target() string { return "tcp://" + p.Addr }
