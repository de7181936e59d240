package netstatus

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Probe answers whether the remote API is reachable right now. Any error
// means offline.
type Probe interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a plain function to Probe.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// HTTPProbe issues a GET against the API base URL. Any HTTP response,
// whatever its status, proves the server is reachable.
type HTTPProbe struct {
	client *resty.Client
	url    string
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	c := resty.New().SetTimeout(timeout)
	return &HTTPProbe{client: c, url: url}
}

func (p *HTTPProbe) Probe(ctx context.Context) error {
	if _, err := p.client.R().SetContext(ctx).Get(p.url); err != nil {
		return fmt.Errorf("http probe %s: %w", p.url, err)
	}
	return nil
}

// GRPCHealthProbe asks a gRPC health service for the serving status of
// service ("" is the whole server).
type GRPCHealthProbe struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string
}

func NewGRPCHealthProbe(addr, service string) (*GRPCHealthProbe, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &GRPCHealthProbe{conn: conn, client: healthpb.NewHealthClient(conn), service: service}, nil
}

func (p *GRPCHealthProbe) Probe(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return fmt.Errorf("grpc health probe: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("grpc health probe: status %s", resp.GetStatus())
	}
	return nil
}

func (p *GRPCHealthProbe) Close() error {
	return p.conn.Close()
}

// AnyProbe succeeds as soon as one of probes succeeds, trying them in
// order. It returns the last error otherwise.
func AnyProbe(probes ...Probe) Probe {
	return ProbeFunc(func(ctx context.Context) error {
		err := fmt.Errorf("no probes configured")
		for _, p := range probes {
			if err = p.Probe(ctx); err == nil {
				return nil
			}
		}
		return err
	})
}
