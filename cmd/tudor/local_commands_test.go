package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tudor/internal/config"
	"tudor/internal/service"
)

func testConfig(t *testing.T, name string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), name)
	return &cfg
}

func runCLI(t *testing.T, cfg *config.Config, stdin string, args ...string) error {
	t.Helper()
	cmd := newRootCmd(cfg)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	return cmd.ExecuteContext(context.Background())
}

func TestUserAddExportImport(t *testing.T) {
	ctx := context.Background()
	src := testConfig(t, "src.db")

	if err := runCLI(t, src, "root-password\n", "user", "add", "Root@Example.com", "--password-stdin"); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if err := runCLI(t, src, "", "user", "add", "x@example.com"); err == nil {
		t.Fatal("expected --password-stdin to be required")
	}

	svc, _, closeSrc, err := localService(src, nil)
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	root, err := svc.Authenticate(ctx, "root@example.com", "root-password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !root.IsAdmin() {
		t.Fatal("expected the first user to be an admin")
	}
	parent, err := svc.CreateTask(ctx, root, service.TaskInput{Summary: "garden", Tags: []string{"outside"}})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	if _, err := svc.CreateTask(ctx, root, service.TaskInput{Summary: "mow lawn", ParentID: parent.ID()}); err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := closeSrc(); err != nil {
		t.Fatalf("close source: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "dump.yaml")
	if err := runCLI(t, src, "", "export", "--format", "yaml", "-o", exportPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(raw), "summary: mow lawn") {
		t.Fatalf("unexpected export:\n%s", raw)
	}

	dst := testConfig(t, "dst.db")
	if err := runCLI(t, dst, "", "import", "-i", exportPath); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := runCLI(t, dst, "", "import", "-i", exportPath); err == nil {
		t.Fatal("expected re-import to conflict with existing ids")
	}

	svc, _, closeDst, err := localService(dst, nil)
	if err != nil {
		t.Fatalf("open destination: %v", err)
	}
	defer closeDst()
	root, err = svc.Authenticate(ctx, "root@example.com", "root-password")
	if err != nil {
		t.Fatalf("imported credentials should still work: %v", err)
	}
	child, err := svc.GetTask(ctx, root, 2)
	if err != nil {
		t.Fatalf("get imported child: %v", err)
	}
	if child.Summary() != "mow lawn" || child.ParentID() != parent.ID() {
		t.Fatalf("unexpected imported child %q parent %d", child.Summary(), child.ParentID())
	}
}

func TestMigrateRejectsMemoryBackend(t *testing.T) {
	cfg := testConfig(t, "unused.db")
	cfg.Backend = config.BackendMemory
	if err := runCLI(t, cfg, "", "migrate"); err == nil {
		t.Fatal("expected migrate to refuse the memory backend")
	}
}

func TestConfigGetUnknownKey(t *testing.T) {
	cfg := testConfig(t, "unused.db")
	if err := runCLI(t, cfg, "", "config", "get", "nope"); err == nil {
		t.Fatal("expected unknown key error")
	}
}
