package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/network"
	"github.com/OFFIS-RIT/sciradar/pkg/window"
)

func TestFromEnvFileBackend(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("SNAPSHOT_BACKEND", "fs")
	t.Setenv("COOCCURRENCE_WORKERS", "3")

	datasets := filepath.Join(dir, "datasets")
	if err := os.MkdirAll(datasets, 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records := `{"id":"P1","date":"2016-01-10T00:00:00","authors":["Ann Lee","Bo Chen"]}
{"id":"P2","date":"2016-02-10T00:00:00","authors":["Bo Chen","Cy Diaz"]}
`
	if err := os.WriteFile(filepath.Join(datasets, "zika.jsonl"), []byte(records), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	env, err := FromEnv(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Workers != 3 || !env.UseCache {
		t.Fatalf("unexpected env %+v", env)
	}

	gen, err := env.Generator("zika")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := gen.Generate(ctx, network.Request{
		Dataset: "zika",
		Network: common.NetworkAuthorship,
		Start:   window.Month{Year: 2016, Month: 1},
		End:     window.Month{Year: 2016, Month: 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Result) != 2 {
		t.Fatalf("expected 2 analysed windows, got %d", len(out.Result))
	}

	report, err := env.Reports.GetReport(ctx, "zika", "authorship")
	if err != nil {
		t.Fatalf("expected report in blob store: %v", err)
	}
	if report["2016-1 to 2016-3"].EdgeCount != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := os.Stat(filepath.Join(dir, "networks", "zika_2016-1 to 2016-3_authorship.json")); err != nil {
		t.Fatalf("expected snapshot artifact on disk: %v", err)
	}
}

func TestFromEnvUnknownBackend(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("SNAPSHOT_BACKEND", "tape")
	if _, err := FromEnv(context.Background(), nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestGeneratorRejectsPathDataset(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("SNAPSHOT_BACKEND", "fs")
	env, err := FromEnv(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.Generator("../etc"); err == nil {
		t.Fatal("expected error for dataset containing a path")
	}
}

func TestFromEnvDatasetBackend(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("SNAPSHOT_BACKEND", "fs")

	t.Setenv("DATASET_BACKEND", "postgres")
	if _, err := FromEnv(context.Background(), nil); err == nil {
		t.Fatal("expected error for postgres datasets without a database")
	}

	t.Setenv("DATASET_BACKEND", "ftp")
	if _, err := FromEnv(context.Background(), nil); err == nil {
		t.Fatal("expected error for unknown dataset backend")
	}
}
