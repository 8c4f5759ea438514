package update

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dean-jl/hostsync/internal/backup"
	"github.com/dean-jl/hostsync/internal/hosts"
	"github.com/dean-jl/hostsync/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSource  = "https://example.com/hosts"
	testProgram = "/usr/local/bin/hostsync"
	localHosts  = "127.0.0.1 localhost\n1.1.1.1 a.com\n2.2.2.2 b.com\n"
	remoteHosts = "# last update: 2024-05-01\n127.0.0.1 localhost\n9.9.9.9 b.com\n3.3.3.3 c.com\n"
)

// MockFetcher is a mock implementation of hosts.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

// MockConfirmer is a mock implementation of ui.Confirmer
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, s ui.Summary) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

// MockBackups is a mock implementation of BackupWriter
type MockBackups struct {
	mock.Mock
}

func (m *MockBackups) WriteWithBackup(path string, content []byte) (*backup.Record, error) {
	args := m.Called(path, content)
	rec, _ := args.Get(0).(*backup.Record)
	return rec, args.Error(1)
}

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func remoteFetcher(body string) *MockFetcher {
	f := &MockFetcher{}
	f.On("Fetch", mock.Anything, testSource).Return([]byte(body), nil)
	return f
}

func expectedMerged() string {
	header := hosts.Header{Program: testProgram, Source: testSource, LastUpdate: "2024-05-01"}
	return header.String() +
		"# last update: 2024-05-01\n" +
		"127.0.0.1 localhost\n" +
		"1.1.1.1 a.com\n" +
		"9.9.9.9 b.com\n" +
		"3.3.3.3 c.com\n"
}

func TestRun_ConfirmedUpdate(t *testing.T) {
	path := writeLocal(t, localHosts)
	manager := backup.NewManager(backup.ManagerConfig{Dir: filepath.Join(t.TempDir(), "backups")})

	confirmer := &MockConfirmer{}
	confirmer.On("Confirm", mock.Anything, mock.MatchedBy(func(s ui.Summary) bool {
		return s.Diff.Additions.Len() == 1 && s.Diff.Modifications.Len() == 1 && s.LastUpdate == "2024-05-01"
	})).Return(true, nil).Once()

	var out bytes.Buffer
	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		Program:   testProgram,
		Fetcher:   remoteFetcher(remoteHosts),
		Backups:   manager,
		Confirmer: confirmer,
		Out:       &out,
	}).Run(context.Background())

	require.NoError(t, err)
	confirmer.AssertExpectations(t)
	assert.Equal(t, Done, report.State)
	assert.True(t, report.Changed())
	assert.False(t, report.Declined)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expectedMerged(), string(got))

	require.NotNil(t, report.Backup)
	saved, err := os.ReadFile(report.Backup.Path)
	require.NoError(t, err)
	assert.Equal(t, localHosts, string(saved))

	assert.Contains(t, out.String(), "-- b.com: 2.2.2.2 => 9.9.9.9")
	assert.Contains(t, out.String(), "+++ c.com: 3.3.3.3")
	assert.NotContains(t, out.String(), "localhost")
}

func TestRun_Declined(t *testing.T) {
	path := writeLocal(t, localHosts)
	backups := &MockBackups{}
	confirmer := &MockConfirmer{}
	confirmer.On("Confirm", mock.Anything, mock.Anything).Return(false, nil)

	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		Fetcher:   remoteFetcher(remoteHosts),
		Backups:   backups,
		Confirmer: confirmer,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Done, report.State)
	assert.True(t, report.Declined)
	assert.False(t, report.Changed())
	backups.AssertNotCalled(t, "WriteWithBackup", mock.Anything, mock.Anything)

	got, _ := os.ReadFile(path)
	assert.Equal(t, localHosts, string(got))
}

func TestRun_Forced(t *testing.T) {
	path := writeLocal(t, localHosts)
	confirmer := &MockConfirmer{}
	backups := &MockBackups{}
	backups.On("WriteWithBackup", path, []byte(expectedMerged())).
		Return(&backup.Record{Name: "hosts.2024-05-01_00-00-00.crlbak"}, nil).Once()

	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		Program:   testProgram,
		Force:     true,
		Fetcher:   remoteFetcher(remoteHosts),
		Backups:   backups,
		Confirmer: confirmer,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Done, report.State)
	backups.AssertExpectations(t)
	confirmer.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestRun_WriteFailureRollsBack(t *testing.T) {
	path := writeLocal(t, localHosts)
	manager := backup.NewManager(backup.ManagerConfig{
		Dir: filepath.Join(t.TempDir(), "backups"),
		Writer: func(p string, content []byte) error {
			if err := os.WriteFile(p, content[:10], 0644); err != nil {
				return err
			}
			return errors.New("no space left on device")
		},
	})

	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		Force:     true,
		Fetcher:   remoteFetcher(remoteHosts),
		Backups:   manager,
	}).Run(context.Background())

	assert.ErrorIs(t, err, backup.ErrWrite)
	assert.Equal(t, Aborted, report.State)
	assert.False(t, report.Changed())

	got, _ := os.ReadFile(path)
	assert.Equal(t, localHosts, string(got), "live file must be restored byte for byte")

	require.NotNil(t, report.Backup)
	_, statErr := os.Stat(report.Backup.Path)
	assert.NoError(t, statErr)
}

func TestRun_NothingToDo(t *testing.T) {
	path := writeLocal(t, "9.9.9.9 b.com\n3.3.3.3 c.com\n1.1.1.1 local-only.com\n")
	backups := &MockBackups{}
	confirmer := &MockConfirmer{}

	var out bytes.Buffer
	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		Fetcher:   remoteFetcher(remoteHosts),
		Backups:   backups,
		Confirmer: confirmer,
		Out:       &out,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Done, report.State)
	assert.True(t, report.Diff.Empty())
	assert.Equal(t, "2024-05-01", report.LastUpdate)
	assert.Contains(t, out.String(), "up to date")
	confirmer.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	backups.AssertNotCalled(t, "WriteWithBackup", mock.Anything, mock.Anything)
}

func TestRun_DryRun(t *testing.T) {
	path := writeLocal(t, localHosts)
	backups := &MockBackups{}
	confirmer := &MockConfirmer{}

	var out bytes.Buffer
	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		DryRun:    true,
		Fetcher:   remoteFetcher(remoteHosts),
		Backups:   backups,
		Confirmer: confirmer,
		Out:       &out,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Done, report.State)
	assert.True(t, report.DryRun)
	assert.False(t, report.Changed())
	assert.Contains(t, out.String(), "+++ c.com: 3.3.3.3")
	confirmer.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	backups.AssertNotCalled(t, "WriteWithBackup", mock.Anything, mock.Anything)
}

func TestRun_LocalFailureSkipsFetch(t *testing.T) {
	fetcher := &MockFetcher{}

	report, err := NewUpdater(Config{
		HostsPath: filepath.Join(t.TempDir(), "missing"),
		Source:    testSource,
		Fetcher:   fetcher,
		Backups:   &MockBackups{},
	}).Run(context.Background())

	assert.ErrorIs(t, err, hosts.ErrIO)
	assert.Equal(t, Aborted, report.State)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestRun_RemoteFailure(t *testing.T) {
	path := writeLocal(t, localHosts)
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, testSource).Return(nil, errors.New("connection refused"))
	backups := &MockBackups{}

	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		Force:     true,
		Fetcher:   fetcher,
		Backups:   backups,
	}).Run(context.Background())

	assert.ErrorIs(t, err, hosts.ErrFetch)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, Aborted, report.State)
	assert.Nil(t, report.Diff)
	backups.AssertNotCalled(t, "WriteWithBackup", mock.Anything, mock.Anything)
}

func TestRun_EmptyRemote(t *testing.T) {
	path := writeLocal(t, localHosts)

	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		Force:     true,
		Fetcher:   remoteFetcher(""),
		Backups:   &MockBackups{},
	}).Run(context.Background())

	assert.ErrorIs(t, err, hosts.ErrFetch)
	assert.ErrorIs(t, err, hosts.ErrEmptyDocument)
	assert.Equal(t, Aborted, report.State)
}

func TestRun_ConfirmerError(t *testing.T) {
	path := writeLocal(t, localHosts)
	confirmer := &MockConfirmer{}
	confirmer.On("Confirm", mock.Anything, mock.Anything).Return(false, errors.New("tty gone"))
	backups := &MockBackups{}

	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		Fetcher:   remoteFetcher(remoteHosts),
		Backups:   backups,
		Confirmer: confirmer,
	}).Run(context.Background())

	assert.ErrorContains(t, err, "tty gone")
	assert.Equal(t, Aborted, report.State)
	backups.AssertNotCalled(t, "WriteWithBackup", mock.Anything, mock.Anything)
}

func TestRun_ExcludedAndWarnings(t *testing.T) {
	path := writeLocal(t, localHosts)
	remote := "9.9.9.9 b.com\nnot-an-ip c.com\n4.4.4.4 pinned.com\n"
	backups := &MockBackups{}

	var out bytes.Buffer
	report, err := NewUpdater(Config{
		HostsPath: path,
		Source:    testSource,
		DryRun:    true,
		Exclude:   []string{"pinned.com"},
		Fetcher:   remoteFetcher(remote),
		Backups:   backups,
		Out:       &out,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.False(t, report.Diff.Additions.Has("pinned.com"))
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "c.com")
	assert.Contains(t, out.String(), "!! c.com")
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Idle:      "idle",
		Loaded:    "loaded",
		Diffed:    "diffed",
		Confirmed: "confirmed",
		Merged:    "merged",
		Written:   "written",
		Done:      "done",
		Aborted:   "aborted",
		State(42): "state(42)",
	}
	for state, want := range tests {
		assert.Equal(t, want, state.String())
	}
}
