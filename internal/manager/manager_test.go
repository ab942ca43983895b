package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phpvhost/internal/certs"
	"phpvhost/internal/config"
	"phpvhost/internal/history"
	"phpvhost/internal/hostsfile"
	"phpvhost/internal/registry"
	"phpvhost/internal/vhost"
	"phpvhost/pkg/cmdutil"
)

// fakeRunner pretends to be mkcert and the reload command.
type fakeRunner struct {
	calls [][]string
}

func (f *fakeRunner) Run(ctx context.Context, opts cmdutil.ExecOptions, cmdParts []string) (*cmdutil.Result, error) {
	f.calls = append(f.calls, cmdParts)
	// Create the files mkcert was asked for.
	for i, arg := range cmdParts {
		if (arg == "-cert-file" || arg == "-key-file") && i+1 < len(cmdParts) {
			if err := os.WriteFile(cmdParts[i+1], []byte("pem"), 0644); err != nil {
				return nil, err
			}
		}
	}
	return &cmdutil.Result{}, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

// env assembles a manager over real collaborators rooted in a temp dir.
type env struct {
	mgr       *Manager
	store     *registry.Store
	hosts     *hostsfile.Reconciler
	vhostDir  string
	hostsPath string
	runner    *fakeRunner
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	t.Setenv("PHPVHOST_HOME", root)

	hostsPath := filepath.Join(root, "hosts")
	if err := os.WriteFile(hostsPath, []byte("127.0.0.1\tlocalhost\n"), 0644); err != nil {
		t.Fatal(err)
	}

	vhostDir := filepath.Join(root, "conf.d")
	if err := os.Mkdir(vhostDir, 0755); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	store := registry.NewStore(filepath.Join(root, "registry.json"))
	hosts := &hostsfile.Reconciler{Path: hostsPath}

	mgr := &Manager{
		Store: store,
		Certs: &certs.Provisioner{
			Dir:    filepath.Join(root, "certs"),
			Tool:   "mkcert",
			Runner: runner,
		},
		VHosts: &vhost.Generator{
			Settings: &config.Settings{
				VHostDir: vhostDir,
				LogDir:   filepath.Join(root, "logs"),
			},
			ReloadCmd: []string{"systemctl", "restart", "httpd"},
			Runner:    runner,
		},
		Hosts: hosts,
	}

	return &env{
		mgr:       mgr,
		store:     store,
		hosts:     hosts,
		vhostDir:  vhostDir,
		hostsPath: hostsPath,
		runner:    runner,
	}
}

// newProject creates a project directory, optionally with a public/ folder.
func newProject(t *testing.T, name string, withPublic bool) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if withPublic {
		if err := os.Mkdir(filepath.Join(dir, "public"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRegister_BlogScenario(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "blog", true)

	entry, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: project})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if entry.Domain != "blog.test" {
		t.Errorf("domain = %s, want blog.test", entry.Domain)
	}
	if entry.Docroot != filepath.Join(project, "public") {
		t.Errorf("docroot = %s, want %s", entry.Docroot, filepath.Join(project, "public"))
	}

	// Registry entry, vhost file and hosts entry must all exist.
	reg, err := e.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get("blog.test"); err != nil {
		t.Errorf("registry entry missing: %v", err)
	}
	if _, err := os.Stat(entry.VHostConfigPath); err != nil {
		t.Errorf("vhost file missing: %v", err)
	}
	has, err := e.hosts.Has("blog.test")
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Error("hosts entry missing")
	}

	// Status agrees.
	statuses, err := e.mgr.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Drifted() {
		t.Errorf("fresh registration reported as drifted: %+v", statuses[0])
	}
}

func TestRegister_DocrootFallsBackToProjectRoot(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "legacy", false)

	entry, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: project})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if entry.Docroot != project {
		t.Errorf("docroot = %s, want project root %s", entry.Docroot, project)
	}
}

func TestRegister_ExplicitEntryPoint(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "custom", false)
	if err := os.Mkdir(filepath.Join(project, "web"), 0755); err != nil {
		t.Fatal(err)
	}

	entry, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: project, EntryPoint: "web"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if entry.Docroot != filepath.Join(project, "web") {
		t.Errorf("docroot = %s", entry.Docroot)
	}

	// A missing entry point is rejected up front.
	other := newProject(t, "broken", false)
	if _, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: other, EntryPoint: "nope"}); err == nil {
		t.Error("expected error for missing entry point")
	}
}

func TestRegister_MissingProjectPath(t *testing.T) {
	e := newEnv(t)
	_, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: "/does/not/exist"})
	if err == nil {
		t.Fatal("expected error for missing project path")
	}
}

func TestRegister_DuplicateDomain(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "blog", true)
	ctx := context.Background()

	if _, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project}); err != nil {
		t.Fatal(err)
	}

	regBefore, _ := os.ReadFile(e.store.Path)
	hostsBefore, _ := os.ReadFile(e.hostsPath)

	_, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project})
	if !errors.Is(err, registry.ErrDuplicateDomain) {
		t.Fatalf("error = %v, want ErrDuplicateDomain", err)
	}

	regAfter, _ := os.ReadFile(e.store.Path)
	hostsAfter, _ := os.ReadFile(e.hostsPath)
	if string(regBefore) != string(regAfter) {
		t.Error("registry changed by rejected duplicate registration")
	}
	if string(hostsBefore) != string(hostsAfter) {
		t.Error("hosts file changed by rejected duplicate registration")
	}
}

func TestRegister_OverwriteReplacesEntry(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "blog", true)
	ctx := context.Background()

	if _, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project}); err != nil {
		t.Fatal(err)
	}

	entry, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project, EntryPoint: ".", Overwrite: true})
	if err != nil {
		t.Fatalf("overwrite Register() error = %v", err)
	}

	reg, _ := e.store.Load()
	got, err := reg.Get("blog.test")
	if err != nil {
		t.Fatal(err)
	}
	if got.Docroot != entry.Docroot {
		t.Errorf("registry docroot = %s, want %s", got.Docroot, entry.Docroot)
	}
}

// failingInstaller fails Install and records Uninstall calls.
type failingInstaller struct {
	uninstalled []string
}

func (f *failingInstaller) Install(ctx context.Context, domain, docroot, certPath, keyPath string) (string, error) {
	return "", fmt.Errorf("%w: disk full", vhost.ErrWriteFailure)
}

func (f *failingInstaller) Uninstall(ctx context.Context, confPath string) error {
	f.uninstalled = append(f.uninstalled, confPath)
	return nil
}

func TestRegister_RollbackOnVHostFailure(t *testing.T) {
	e := newEnv(t)
	e.mgr.VHosts = &failingInstaller{}
	project := newProject(t, "blog", true)

	_, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: project})
	if !errors.Is(err, vhost.ErrWriteFailure) {
		t.Fatalf("error = %v, want ErrWriteFailure", err)
	}

	reg, _ := e.store.Load()
	if reg.Has("blog.test") {
		t.Error("registry contains entry after failed install")
	}
	has, _ := e.hosts.Has("blog.test")
	if has {
		t.Error("hosts entry was added before the failing install step")
	}
}

// failingHosts fails Add.
type failingHosts struct{}

func (failingHosts) Add(domain string) error    { return fmt.Errorf("%w: /etc/hosts: permission denied", hostsfile.ErrUnwritable) }
func (failingHosts) Remove(domain string) error { return nil }
func (failingHosts) Has(domain string) (bool, error) { return false, nil }

func TestRegister_RollbackOnHostsFailure(t *testing.T) {
	e := newEnv(t)
	e.mgr.Hosts = failingHosts{}
	project := newProject(t, "blog", true)

	_, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: project})
	if !errors.Is(err, hostsfile.ErrUnwritable) {
		t.Fatalf("error = %v, want ErrUnwritable", err)
	}

	// The vhost file written in the previous step must be taken back out.
	if _, serr := os.Stat(filepath.Join(e.vhostDir, "blog.test.conf")); !os.IsNotExist(serr) {
		t.Error("dangling vhost config left after hosts failure")
	}
	reg, _ := e.store.Load()
	if reg.Has("blog.test") {
		t.Error("registry contains entry after failed registration")
	}
}

// failingStore delegates Load and fails Save.
type failingStore struct {
	*registry.Store
}

func (f failingStore) Save(reg *registry.Registry) error {
	return fmt.Errorf("failed to write registry: disk full")
}

func TestRegister_RollbackOnStoreFailure(t *testing.T) {
	e := newEnv(t)
	e.mgr.Store = failingStore{e.store}
	project := newProject(t, "blog", true)

	_, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: project})
	if err == nil {
		t.Fatal("expected error from failing store")
	}

	// Both artifacts must be reversed: nothing may exist outside the registry.
	if _, serr := os.Stat(filepath.Join(e.vhostDir, "blog.test.conf")); !os.IsNotExist(serr) {
		t.Error("vhost config left after registry save failure")
	}
	has, _ := e.hosts.Has("blog.test")
	if has {
		t.Error("hosts entry left after registry save failure")
	}
}

func TestRegister_OverwriteSaveFailureKeepsPriorArtifacts(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "blog", true)
	ctx := context.Background()

	prior, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project})
	if err != nil {
		t.Fatal(err)
	}

	e.mgr.Store = failingStore{e.store}
	_, err = e.mgr.Register(ctx, RegisterRequest{ProjectPath: project, EntryPoint: ".", Overwrite: true})
	if err == nil {
		t.Fatal("expected error from failing store")
	}

	// The prior registration survived the failed save, so its artifacts
	// must too: the fragment serves the old docroot and the hosts entry
	// stays.
	reg, lerr := e.store.Load()
	if lerr != nil {
		t.Fatal(lerr)
	}
	got, gerr := reg.Get("blog.test")
	if gerr != nil {
		t.Fatalf("prior registry entry lost: %v", gerr)
	}
	if got.Docroot != prior.Docroot {
		t.Errorf("registry docroot = %s, want prior %s", got.Docroot, prior.Docroot)
	}

	data, rerr := os.ReadFile(prior.VHostConfigPath)
	if rerr != nil {
		t.Fatalf("vhost config for registered domain removed: %v", rerr)
	}
	if !strings.Contains(string(data), `DocumentRoot "`+prior.Docroot+`"`) {
		t.Errorf("fragment does not serve the prior docroot:\n%s", data)
	}

	has, herr := e.hosts.Has("blog.test")
	if herr != nil {
		t.Fatal(herr)
	}
	if !has {
		t.Error("hosts entry for registered domain removed")
	}
}

func TestRemove(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "blog", true)
	ctx := context.Background()

	entry, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project})
	if err != nil {
		t.Fatal(err)
	}

	if err := e.mgr.Remove(ctx, "blog.test"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	reg, _ := e.store.Load()
	if _, err := reg.Get("blog.test"); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("Get() after Remove() error = %v, want ErrNotFound", err)
	}
	if _, serr := os.Stat(entry.VHostConfigPath); !os.IsNotExist(serr) {
		t.Error("vhost config still on disk")
	}
	has, _ := e.hosts.Has("blog.test")
	if has {
		t.Error("hosts entry still present")
	}

	// The certificate is deliberately kept for reuse.
	if _, serr := os.Stat(entry.CertPath); serr != nil {
		t.Error("certificate was deleted on remove")
	}
}

func TestRemove_NotFound(t *testing.T) {
	e := newEnv(t)
	err := e.mgr.Remove(context.Background(), "missing.test")
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("Remove() error = %v, want ErrNotFound", err)
	}
}

func TestRemove_VHostAlreadyDeleted(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "blog", true)
	ctx := context.Background()

	var warnings []string
	e.mgr.Warnf = func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	entry, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project})
	if err != nil {
		t.Fatal(err)
	}

	// Simulate manual deletion of the vhost file.
	if err := os.Remove(entry.VHostConfigPath); err != nil {
		t.Fatal(err)
	}

	if err := e.mgr.Remove(ctx, "blog.test"); err != nil {
		t.Fatalf("Remove() error = %v, best-effort cleanup must not fail", err)
	}

	reg, _ := e.store.Load()
	if reg.Has("blog.test") {
		t.Error("registry entry survived Remove()")
	}
	has, _ := e.hosts.Has("blog.test")
	if has {
		t.Error("hosts entry survived Remove()")
	}
	if len(warnings) == 0 {
		t.Error("missing vhost file should have been warned about")
	}
}

func TestStatus_DetectsDrift(t *testing.T) {
	e := newEnv(t)
	project := newProject(t, "blog", true)
	ctx := context.Background()

	entry, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project})
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(entry.VHostConfigPath); err != nil {
		t.Fatal(err)
	}

	statuses, err := e.mgr.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	st := statuses[0]
	if st.VHostFileExists {
		t.Error("deleted vhost file reported as existing")
	}
	if !st.HostsEntryExists {
		t.Error("hosts entry should still exist")
	}
	if !st.Drifted() {
		t.Error("drift not flagged")
	}

	// Status is read-only: it must not recreate the file.
	if _, serr := os.Stat(entry.VHostConfigPath); !os.IsNotExist(serr) {
		t.Error("status repaired drift")
	}
}

func TestRegister_RecordsHistory(t *testing.T) {
	e := newEnv(t)
	hist, err := history.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()
	e.mgr.History = hist

	project := newProject(t, "blog", true)
	ctx := context.Background()
	if _, err := e.mgr.Register(ctx, RegisterRequest{ProjectPath: project}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.Remove(ctx, "blog.test"); err != nil {
		t.Fatal(err)
	}

	records, err := hist.ListOperations(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(records))
	}
	if records[0].Action != history.ActionRemove || records[1].Action != history.ActionRegister {
		t.Errorf("unexpected actions: %s, %s", records[0].Action, records[1].Action)
	}
	for _, r := range records {
		if r.Status != history.StatusSuccess {
			t.Errorf("record %d status = %s", r.ID, r.Status)
		}
	}
}

func TestDeriveDomain(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"/home/u/blog", "blog.test", false},
		{"/home/u/my-app", "my-app.test", false},
		{"/home/u/.hidden", "", true},
	}

	for _, tt := range tests {
		got, err := DeriveDomain(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("DeriveDomain(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("DeriveDomain(%s) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestRegister_WarnsButSucceedsOnHistoryFailure(t *testing.T) {
	e := newEnv(t)
	e.mgr.History = brokenRecorder{}

	var warnings []string
	e.mgr.Warnf = func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	project := newProject(t, "blog", true)
	if _, err := e.mgr.Register(context.Background(), RegisterRequest{ProjectPath: project}); err != nil {
		t.Fatalf("Register() error = %v, history failure must not fail the operation", err)
	}

	found := false
	for _, w := range warnings {
		if strings.Contains(w, "history") {
			found = true
		}
	}
	if !found {
		t.Error("history failure was not warned about")
	}
}

type brokenRecorder struct{}

func (brokenRecorder) RecordOperation(ctx context.Context, record *history.OperationRecord) (int64, error) {
	return 0, fmt.Errorf("database is locked")
}
