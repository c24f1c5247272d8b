package upgraderapi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/station-labs/station/config"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/network"
	"github.com/station-labs/station/upgrader"
)

// Client calls a remote Server over the station.upgrader.v1.Upgrader gRPC
// service — the transport cmd/stationd uses to reach a standalone
// cmd/upgraderd instance for operations its own in-process upgrader.Service
// has no Target registered for (most notably SystemUpgradeTargetUpgrader,
// since a process cannot supervise its own stop/install/start).
type Client struct {
	conn *grpc.ClientConn
}

// DialOptions builds the gRPC dial options a Client needs to reach a Server
// built from the same NetworkSecurity configuration, mirroring the
// teacher's own consensus client dial helper
// (services/governd/dial.go's consensusDialOptions): TLS (or, if
// sec.AllowInsecure, plaintext) transport credentials, plus the shared
// secret as per-RPC credentials when one is configured.
func DialOptions(sec config.NetworkSecurity, baseDir string, lookup func(string) (string, bool)) ([]grpc.DialOption, error) {
	secret, err := sec.ResolveSharedSecret(baseDir, lookup)
	if err != nil {
		return nil, fmt.Errorf("resolve shared secret: %w", err)
	}

	hasTLS := strings.TrimSpace(sec.ClientTLSCertFile) != "" || strings.TrimSpace(sec.ServerCAFile) != "" || strings.TrimSpace(sec.ServerName) != ""
	var transportCreds credentials.TransportCredentials
	switch {
	case hasTLS:
		tlsConfig, err := clientTLSConfig(sec, baseDir)
		if err != nil {
			return nil, err
		}
		transportCreds = credentials.NewTLS(tlsConfig)
	case sec.AllowInsecure:
		transportCreds = insecure.NewCredentials()
	default:
		return nil, fmt.Errorf("network security requires TLS material or AllowInsecure=true for development")
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(transportCreds)}
	if secret != "" {
		header := sec.AuthorizationHeaderName()
		if hasTLS {
			opts = append(opts, grpc.WithPerRPCCredentials(network.NewStaticTokenCredentials(header, secret)))
		} else {
			opts = append(opts, grpc.WithPerRPCCredentials(network.NewStaticTokenCredentialsAllowInsecure(header, secret)))
		}
	}
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.ForceCodec(network.JSONCodec{})))
	return opts, nil
}

// clientTLSConfig loads the optional client certificate and trusted server
// CA pool named by sec, relative to baseDir, mirroring the teacher's own
// loadConsensusCredentials (services/governd/dial.go).
func clientTLSConfig(sec config.NetworkSecurity, baseDir string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: sec.ServerName}

	certPath := resolveClientPath(baseDir, sec.ClientTLSCertFile)
	keyPath := resolveClientPath(baseDir, sec.ClientTLSKeyFile)
	if (certPath == "") != (keyPath == "") {
		return nil, fmt.Errorf("network security requires both ClientTLSCertFile and ClientTLSKeyFile when enabling mTLS")
	}
	if certPath != "" {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("load client TLS keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if caPath := resolveClientPath(baseDir, sec.ServerCAFile); caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("read server CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse server CA certificates from %s", caPath)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func resolveClientPath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	if baseDir != "" && !filepath.IsAbs(trimmed) {
		return filepath.Join(baseDir, trimmed)
	}
	return trimmed
}

// Dial connects to a remote Server at addr, using DialOptions built from sec.
func Dial(ctx context.Context, addr string, sec config.NetworkSecurity, baseDir string, lookup func(string) (string, bool)) (*Client, error) {
	opts, err := DialOptions(sec, baseDir, lookup)
	if err != nil {
		return nil, err
	}
	conn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial upgrader at %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an already-dialed connection.
func NewClient(conn *grpc.ClientConn) *Client { return &Client{conn: conn} }

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) TriggerUpgrade(ctx context.Context, req upgrader.TriggerUpgradeRequest) error {
	wire := &triggerUpgradeRequest{
		Caller:            req.Caller,
		TargetPrincipal:   req.TargetPrincipal,
		Target:            req.Target,
		ModuleBytes:       req.ModuleBytes,
		ModuleExtraChunks: req.ModuleExtraChunks,
		Arg:               req.Arg,
		InstallMode:       req.InstallMode,
	}
	var resp okResponse
	return c.conn.Invoke(ctx, methodTriggerUpgrade, wire, &resp)
}

func (c *Client) RequestDisasterRecovery(ctx context.Context, req upgrader.DisasterRecoveryRequest) (bool, error) {
	wire := &disasterRecoveryRequest{
		Submitter:   req.Submitter,
		ModuleBytes: req.ModuleBytes,
		Arg:         req.Arg,
		InstallMode: req.InstallMode,
	}
	var resp disasterRecoveryResponse
	if err := c.conn.Invoke(ctx, methodRequestDisasterRecovery, wire, &resp); err != nil {
		return false, err
	}
	return resp.Triggered, nil
}

func (c *Client) SetDisasterRecoveryCommittee(ctx context.Context, caller, targetStation model.Principal, committee model.DisasterRecoveryCommittee) error {
	wire := &setCommitteeRequest{Caller: caller, TargetStation: targetStation, Committee: committee}
	var resp okResponse
	return c.conn.Invoke(ctx, methodSetDisasterRecoveryCommittee, wire, &resp)
}

func (c *Client) ListSnapshots(ctx context.Context, target model.SystemUpgradeTarget) ([]upgrader.Snapshot, error) {
	wire := &listSnapshotsRequest{Target: target}
	var resp listSnapshotsResponse
	if err := c.conn.Invoke(ctx, methodListSnapshots, wire, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

func (c *Client) Restore(ctx context.Context, target model.SystemUpgradeTarget, snapshotID string) error {
	wire := &restoreRequest{Target: target, SnapshotID: snapshotID}
	var resp okResponse
	return c.conn.Invoke(ctx, methodRestore, wire, &resp)
}
