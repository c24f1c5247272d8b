package upgraderapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/station-labs/station/config"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/network"
	"github.com/station-labs/station/upgrader"
)

type fakeTarget struct {
	stopErr    error
	installErr error
	snapshot   upgrader.Snapshot
}

func (f *fakeTarget) Stop(ctx context.Context) error  { return f.stopErr }
func (f *fakeTarget) Start(ctx context.Context) error { return nil }
func (f *fakeTarget) Install(ctx context.Context, moduleBytes, extraChunks, arg []byte, mode model.InstallMode) error {
	return f.installErr
}
func (f *fakeTarget) Snapshot(ctx context.Context) (upgrader.Snapshot, error) { return f.snapshot, nil }
func (f *fakeTarget) Restore(ctx context.Context, snap upgrader.Snapshot) error { return nil }

// testServer starts a real gRPC server on an ephemeral loopback port secured
// by secret, and returns an unauthenticated dial target alongside a
// ready-to-use authenticated Client and its teardown func.
func testServer(t *testing.T, secret string, controllers []model.Principal) (addr string, client *Client, svc *upgrader.Service, closeFn func()) {
	t.Helper()
	target := &fakeTarget{}
	svc = upgrader.NewService(nil, map[model.SystemUpgradeTarget]upgrader.Target{
		model.SystemUpgradeTargetStation: target,
	}, controllers)

	server, err := New(Config{
		Service: svc,
		Security: &config.NetworkSecurity{
			SharedSecret:  secret,
			AllowInsecure: true,
		},
	})
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(lis)

	conn, err := grpc.DialContext(context.Background(), lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(network.NewStaticTokenCredentialsAllowInsecure("authorization", secret)),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(network.JSONCodec{})),
	)
	require.NoError(t, err)

	return lis.Addr().String(), NewClient(conn), svc, func() {
		conn.Close()
		server.Stop()
		lis.Close()
	}
}

func dialUnauthenticated(t *testing.T, addr string) *Client {
	t.Helper()
	conn, err := grpc.DialContext(context.Background(), addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(network.JSONCodec{})),
	)
	require.NoError(t, err)
	return NewClient(conn)
}

func dialWithToken(t *testing.T, addr, token string) *Client {
	t.Helper()
	conn, err := grpc.DialContext(context.Background(), addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(network.NewStaticTokenCredentialsAllowInsecure("authorization", token)),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(network.JSONCodec{})),
	)
	require.NoError(t, err)
	return NewClient(conn)
}

func TestRoutesRejectMissingOrWrongToken(t *testing.T) {
	addr, _, _, closeFn := testServer(t, "topsecret", nil)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	unauth := dialUnauthenticated(t, addr)
	defer unauth.Close()
	_, err := unauth.ListSnapshots(ctx, "")
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	wrong := dialWithToken(t, addr, "wrong-token")
	defer wrong.Close()
	_, err = wrong.ListSnapshots(ctx, "")
	require.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestTriggerUpgradeRequiresController(t *testing.T) {
	caller := model.Principal{0x01}
	_, client, _, closeFn := testServer(t, "topsecret", nil) // no controllers configured
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := client.TriggerUpgrade(ctx, upgrader.TriggerUpgradeRequest{
		Caller:          caller,
		TargetPrincipal: caller,
		Target:          model.SystemUpgradeTargetStation,
		ModuleBytes:     []byte("module"),
		InstallMode:     model.InstallModeUpgrade,
	})
	require.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestTriggerUpgradeSucceedsForController(t *testing.T) {
	caller := model.Principal{0x01}
	_, client, _, closeFn := testServer(t, "topsecret", []model.Principal{caller})
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := client.TriggerUpgrade(ctx, upgrader.TriggerUpgradeRequest{
		Caller:          caller,
		TargetPrincipal: caller,
		Target:          model.SystemUpgradeTargetStation,
		ModuleBytes:     []byte("module"),
		InstallMode:     model.InstallModeUpgrade,
	})
	require.NoError(t, err)
}

func TestSetCommitteeThenDisasterRecoveryReachesQuorum(t *testing.T) {
	station := model.Principal{0x01}
	member1 := model.Principal{0x02}
	member2 := model.Principal{0x03}
	_, client, _, closeFn := testServer(t, "topsecret", nil)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	committee := model.DisasterRecoveryCommittee{
		Quorum: 2,
		Users: []model.DisasterRecoveryMember{
			{ID: model.NewUUID(), Name: "one", Identities: []model.Principal{member1}},
			{ID: model.NewUUID(), Name: "two", Identities: []model.Principal{member2}},
		},
	}
	require.NoError(t, client.SetDisasterRecoveryCommittee(ctx, station, station, committee))

	triggered, err := client.RequestDisasterRecovery(ctx, upgrader.DisasterRecoveryRequest{
		Submitter:   member1,
		ModuleBytes: []byte("module"),
		InstallMode: model.InstallModeUpgrade,
	})
	require.NoError(t, err)
	require.False(t, triggered)

	triggered, err = client.RequestDisasterRecovery(ctx, upgrader.DisasterRecoveryRequest{
		Submitter:   member2,
		ModuleBytes: []byte("module"),
		InstallMode: model.InstallModeUpgrade,
	})
	require.NoError(t, err)
	require.True(t, triggered)
}

func TestListSnapshotsDefaultsToStationTarget(t *testing.T) {
	_, client, _, closeFn := testServer(t, "topsecret", nil)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snapshots, err := client.ListSnapshots(ctx, "")
	require.NoError(t, err)
	require.Empty(t, snapshots)
}
