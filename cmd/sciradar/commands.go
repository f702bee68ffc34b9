package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/sciradar/internal/setup"
	"github.com/OFFIS-RIT/sciradar/internal/util"
	"github.com/OFFIS-RIT/sciradar/pkg/analysis"
	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/loader"
	"github.com/OFFIS-RIT/sciradar/pkg/loader/jsonl"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
	"github.com/OFFIS-RIT/sciradar/pkg/network"
	pgstore "github.com/OFFIS-RIT/sciradar/pkg/store/pgx"
	"github.com/OFFIS-RIT/sciradar/pkg/window"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	dataset  string
	networks []string
	start    string
	end      string
	input    string
	output   string
	noCache  bool
	workers  int
	database string
}

type importOptions struct {
	dataset  string
	input    string
	database string
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "sciradar",
		Short:        "Builds growing co-occurrence networks from publication datasets",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newGenerateCmd(), newImportCmd(), newSchemaCmd())
	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build, cache and analyze the monthly windows of a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "dataset name")
	cmd.Flags().StringSliceVar(&opts.networks, "network", nil, "network types to build (default all)")
	cmd.Flags().StringVar(&opts.start, "start", "", "first month, e.g. 2016-1")
	cmd.Flags().StringVar(&opts.end, "end", "", "end month (exclusive), e.g. 2017-1")
	cmd.Flags().StringVar(&opts.input, "input", "", "JSON lines file to read records from instead of the configured source")
	cmd.Flags().StringVar(&opts.output, "output", "", "directory to write the analysis reports to")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "recompute every window even if a snapshot exists")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "co-occurrence workers (default COOCCURRENCE_WORKERS)")
	cmd.Flags().StringVar(&opts.database, "database", "", "Postgres URL (default DATABASE_URL)")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newImportCmd() *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON lines file of records into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "dataset name")
	cmd.Flags().StringVar(&opts.input, "input", "", "JSON lines file")
	cmd.Flags().StringVar(&opts.database, "database", "", "Postgres URL (default DATABASE_URL)")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the analysis report",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analysis.ReportSchema())
		},
	}
}

func parseNetworks(names []string) ([]common.NetworkType, error) {
	if len(names) == 0 {
		return common.NetworkTypes, nil
	}
	out := make([]common.NetworkType, 0, len(names))
	for _, name := range names {
		n, err := common.ParseNetworkType(name)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func openPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		url = util.GetEnv("DATABASE_URL")
	}
	if url == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	ctx := cmd.Context()

	networks, err := parseNetworks(opts.networks)
	if err != nil {
		return err
	}
	start, err := window.ParseMonth(opts.start)
	if err != nil {
		return err
	}
	end, err := window.ParseMonth(opts.end)
	if err != nil {
		return err
	}

	pool, err := openPool(ctx, opts.database)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	env, err := setup.FromEnv(ctx, pool)
	if err != nil {
		return err
	}
	if opts.workers > 0 {
		env.Workers = opts.workers
	}

	var source loader.PublicationLoader
	if opts.input != "" {
		source = jsonl.NewFileLoader(opts.input)
	} else {
		source = env.Loader(opts.dataset)
	}
	gen, err := env.GeneratorFor(source)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, n := range networks {
		outcome, err := gen.Generate(ctx, network.Request{
			Dataset:  opts.dataset,
			Network:  n,
			Start:    start,
			End:      end,
			UseCache: env.UseCache && !opts.noCache,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", n, err)
		}
		fmt.Fprintf(out, "%s: %d windows, %d analyzed, %d from cache\n",
			n, outcome.Windows, len(outcome.Result), outcome.CacheHits)
		if len(outcome.Failed) > 0 {
			fmt.Fprintf(out, "  failed: %s\n", strings.Join(outcome.Failed, ", "))
		}
		if len(outcome.Skipped) > 0 {
			fmt.Fprintf(out, "  empty: %s\n", strings.Join(outcome.Skipped, ", "))
		}

		if opts.output != "" {
			if err := writeReport(opts.output, opts.dataset, n, outcome.Result); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeReport(dir string, dataset string, n common.NetworkType, result analysis.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_analysis.json", dataset, n))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	if err := analysis.WriteReport(f, result); err != nil {
		return err
	}
	logger.Info("[CLI] Report written", "path", path)
	return nil
}

func runImport(cmd *cobra.Command, opts *importOptions) error {
	ctx := cmd.Context()

	url := opts.database
	if url == "" {
		url = util.GetEnv("DATABASE_URL")
	}
	if url == "" {
		return fmt.Errorf("import needs --database or DATABASE_URL")
	}
	if err := pgstore.Migrate(url, util.GetEnvString("MIGRATIONS_PATH", "migrations")); err != nil {
		return err
	}

	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.input, err)
	}
	records, err := jsonl.Parse(data)
	if err != nil {
		return err
	}

	pool, err := openPool(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	count, err := pgstore.NewPublicationStore(pool, opts.dataset).SavePublications(ctx, records)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d records into %s\n", count, opts.dataset)
	return nil
}
