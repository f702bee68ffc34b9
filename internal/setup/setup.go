package setup

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/OFFIS-RIT/sciradar/internal/storage"
	"github.com/OFFIS-RIT/sciradar/internal/util"
	"github.com/OFFIS-RIT/sciradar/pkg/loader"
	"github.com/OFFIS-RIT/sciradar/pkg/loader/jsonl"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
	"github.com/OFFIS-RIT/sciradar/pkg/network"
	"github.com/OFFIS-RIT/sciradar/pkg/snapshot"
	"github.com/OFFIS-RIT/sciradar/pkg/store"
	"github.com/OFFIS-RIT/sciradar/pkg/store/fs"
	pgstore "github.com/OFFIS-RIT/sciradar/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Env bundles the stores shared by the CLI, the worker and the server.
type Env struct {
	DataDir   string
	Blobs     store.BlobStore
	Snapshots *snapshot.Cache
	Reports   store.ReportStore
	Workers   int
	UseCache  bool

	pool     *pgxpool.Pool
	source   string
	datasets store.BlobStore
}

// FromEnv reads DATA_DIR, SNAPSHOT_BACKEND, DATASET_BACKEND,
// COOCCURRENCE_WORKERS and USE_CACHE. pool may be nil, in which case reports
// live in the blob store only.
//
// DATASET_BACKEND selects where records come from: "postgres" (the default
// when pool is set), "fs" for "<DATA_DIR>/datasets/<dataset>.jsonl" (the
// default otherwise) or "s3" for "datasets/<dataset>.json" in AWS_BUCKET.
func FromEnv(ctx context.Context, pool *pgxpool.Pool) (*Env, error) {
	dataDir := util.GetEnvString("DATA_DIR", "data")

	var blobs store.BlobStore
	switch backend := util.GetEnvString("SNAPSHOT_BACKEND", "fs"); backend {
	case "fs":
		fileStore, err := fs.NewFileStore(filepath.Join(dataDir, "networks"), "")
		if err != nil {
			return nil, err
		}
		blobs = fileStore
	case "s3":
		s3Store, err := storage.NewS3StoreFromEnv(ctx, "networks")
		if err != nil {
			return nil, err
		}
		blobs = s3Store
	default:
		return nil, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", backend)
	}

	defaultSource := "fs"
	if pool != nil {
		defaultSource = "postgres"
	}
	var datasets store.BlobStore
	source := util.GetEnvString("DATASET_BACKEND", defaultSource)
	switch source {
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("DATASET_BACKEND=postgres needs a database")
		}
	case "fs":
	case "s3":
		s3Store, err := storage.NewS3StoreFromEnv(ctx, "datasets")
		if err != nil {
			return nil, err
		}
		datasets = s3Store
	default:
		return nil, fmt.Errorf("unknown DATASET_BACKEND %q", source)
	}

	var reports store.ReportStore = store.NewBlobReportStore(blobs)
	if pool != nil {
		reports = store.MultiReportStore{pgstore.NewReportStore(pool), reports}
	}

	env := &Env{
		DataDir:   dataDir,
		Blobs:     blobs,
		Snapshots: snapshot.NewCache(blobs),
		Reports:   reports,
		Workers:   util.GetEnvInt("COOCCURRENCE_WORKERS", 0),
		UseCache:  util.GetEnvBool("USE_CACHE", true),
		pool:      pool,
		source:    source,
		datasets:  datasets,
	}
	logger.Debug("[Setup] Stores ready", "data_dir", dataDir, "database", pool != nil, "workers", env.Workers)
	return env, nil
}

// Loader returns the publication source of dataset.
func (e *Env) Loader(dataset string) loader.PublicationLoader {
	switch e.source {
	case "postgres":
		return pgstore.NewPublicationStore(e.pool, dataset)
	case "s3":
		return jsonl.NewBlobLoader(e.datasets, dataset)
	default:
		return jsonl.NewFileLoader(filepath.Join(e.DataDir, "datasets", dataset+".jsonl"))
	}
}

// Generator satisfies queue.GeneratorFactory.
func (e *Env) Generator(dataset string) (*network.Generator, error) {
	if !store.ValidKey(dataset) {
		return nil, fmt.Errorf("invalid dataset name %q", dataset)
	}
	return e.GeneratorFor(e.Loader(dataset))
}

// GeneratorFor builds a generator over an explicit loader.
func (e *Env) GeneratorFor(l loader.PublicationLoader) (*network.Generator, error) {
	return network.NewGenerator(network.NewGeneratorParams{
		Loader:  l,
		Cache:   e.Snapshots,
		Reports: e.Reports,
		Workers: e.Workers,
	})
}
