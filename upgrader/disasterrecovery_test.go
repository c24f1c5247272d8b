package upgrader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/model"
)

type fakeTarget struct {
	stopCalls, installCalls, startCalls int
	failStop, failInstall               bool
}

func (t *fakeTarget) Stop(ctx context.Context) error {
	t.stopCalls++
	if t.failStop {
		return errBoom{}
	}
	return nil
}

func (t *fakeTarget) Install(ctx context.Context, moduleBytes, extraChunks, arg []byte, mode model.InstallMode) error {
	t.installCalls++
	if t.failInstall {
		return errBoom{}
	}
	return nil
}

func (t *fakeTarget) Start(ctx context.Context) error {
	t.startCalls++
	return nil
}

func (t *fakeTarget) Snapshot(ctx context.Context) (Snapshot, error) {
	return Snapshot{ID: "snap-1", Blob: []byte("state")}, nil
}

func (t *fakeTarget) Restore(ctx context.Context, snap Snapshot) error { return nil }

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newTestService(target *fakeTarget, self model.Principal) *Service {
	return NewService(nil, map[model.SystemUpgradeTarget]Target{
		model.SystemUpgradeTargetStation: target,
	}, []model.Principal{self})
}

func TestTriggerUpgrade_RunsStopInstallStart(t *testing.T) {
	self := model.Principal{0x01}
	target := &fakeTarget{}
	svc := newTestService(target, self)

	err := svc.TriggerUpgrade(context.Background(), TriggerUpgradeRequest{
		Caller:          self,
		TargetPrincipal: self,
		Target:          model.SystemUpgradeTargetStation,
		InstallMode:     model.InstallModeUpgrade,
	})
	require.NoError(t, err)
	require.Equal(t, 1, target.stopCalls)
	require.Equal(t, 1, target.installCalls)
	require.Equal(t, 1, target.startCalls)
}

func TestTriggerUpgrade_RejectsNonTargetCaller(t *testing.T) {
	self := model.Principal{0x01}
	other := model.Principal{0x02}
	target := &fakeTarget{}
	svc := newTestService(target, self)

	err := svc.TriggerUpgrade(context.Background(), TriggerUpgradeRequest{
		Caller:          other,
		TargetPrincipal: self,
		Target:          model.SystemUpgradeTargetStation,
	})
	require.Error(t, err)
	require.Equal(t, 0, target.stopCalls)
}

func TestTriggerUpgrade_RejectsNonController(t *testing.T) {
	self := model.Principal{0x01}
	target := &fakeTarget{}
	svc := NewService(nil, map[model.SystemUpgradeTarget]Target{
		model.SystemUpgradeTargetStation: target,
	}, nil) // no controllers registered

	err := svc.TriggerUpgrade(context.Background(), TriggerUpgradeRequest{
		Caller:          self,
		TargetPrincipal: self,
		Target:          model.SystemUpgradeTargetStation,
	})
	require.Error(t, err)
}

func TestTriggerUpgrade_RetriesStartAfterInstallFailure(t *testing.T) {
	self := model.Principal{0x01}
	target := &fakeTarget{failInstall: true}
	svc := newTestService(target, self)

	err := svc.TriggerUpgrade(context.Background(), TriggerUpgradeRequest{
		Caller:          self,
		TargetPrincipal: self,
		Target:          model.SystemUpgradeTargetStation,
	})
	require.Error(t, err)
	require.Equal(t, 1, target.startCalls)
}

func TestTriggerUpgrade_RetriesStartAfterStopFailure(t *testing.T) {
	self := model.Principal{0x01}
	target := &fakeTarget{failStop: true}
	svc := newTestService(target, self)

	err := svc.TriggerUpgrade(context.Background(), TriggerUpgradeRequest{
		Caller:          self,
		TargetPrincipal: self,
		Target:          model.SystemUpgradeTargetStation,
	})
	require.Error(t, err)
	require.Equal(t, 1, target.startCalls)
	require.Equal(t, 0, target.installCalls)
}

func TestRequestDisasterRecovery_QuorumTriggers(t *testing.T) {
	self := model.Principal{0x01}
	target := &fakeTarget{}
	svc := newTestService(target, self)

	member1 := model.Principal{0x10}
	member2 := model.Principal{0x11}
	member3 := model.Principal{0x12}
	committee := model.DisasterRecoveryCommittee{
		Quorum: 2,
		Users: []model.DisasterRecoveryMember{
			{ID: model.NewUUID(), Identities: []model.Principal{member1}},
			{ID: model.NewUUID(), Identities: []model.Principal{member2}},
			{ID: model.NewUUID(), Identities: []model.Principal{member3}},
		},
	}
	require.NoError(t, svc.SetDisasterRecoveryCommittee(self, self, committee))

	moduleBytes := []byte("module-v2")
	arg := []byte("arg")

	triggered, err := svc.RequestDisasterRecovery(context.Background(), DisasterRecoveryRequest{
		Submitter: member1, ModuleBytes: moduleBytes, Arg: arg, InstallMode: model.InstallModeUpgrade,
	})
	require.NoError(t, err)
	require.False(t, triggered)

	triggered, err = svc.RequestDisasterRecovery(context.Background(), DisasterRecoveryRequest{
		Submitter: member2, ModuleBytes: moduleBytes, Arg: arg, InstallMode: model.InstallModeUpgrade,
	})
	require.NoError(t, err)
	require.True(t, triggered)
	require.Equal(t, 1, target.stopCalls)
	require.Equal(t, 1, target.installCalls)
	require.Equal(t, 1, target.startCalls)
}

func TestRequestDisasterRecovery_RejectsNonMember(t *testing.T) {
	self := model.Principal{0x01}
	target := &fakeTarget{}
	svc := newTestService(target, self)
	require.NoError(t, svc.SetDisasterRecoveryCommittee(self, self, model.DisasterRecoveryCommittee{
		Quorum: 1,
		Users:  []model.DisasterRecoveryMember{{ID: model.NewUUID(), Identities: []model.Principal{{0x10}}}},
	}))

	_, err := svc.RequestDisasterRecovery(context.Background(), DisasterRecoveryRequest{
		Submitter: model.Principal{0x99}, ModuleBytes: []byte("m"), Arg: []byte("a"), InstallMode: model.InstallModeUpgrade,
	})
	require.Error(t, err)
}

func TestSnapshotTakeListRestore(t *testing.T) {
	self := model.Principal{0x01}
	target := &fakeTarget{}
	svc := newTestService(target, self)

	snap, err := svc.TakeSnapshot(context.Background(), model.SystemUpgradeTargetStation)
	require.NoError(t, err)
	require.Equal(t, "snap-1", snap.ID)

	list := svc.ListSnapshots(model.SystemUpgradeTargetStation)
	require.Len(t, list, 1)

	require.NoError(t, svc.Restore(context.Background(), model.SystemUpgradeTargetStation, "snap-1"))
	require.Equal(t, 1, target.stopCalls)
	require.Equal(t, 1, target.startCalls)
}
