package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"neocore/internal/blob"
	"neocore/internal/config"
	"neocore/internal/core"
	"neocore/internal/export"
	"neocore/internal/httpapi"
	"neocore/internal/ingest"
	"neocore/pkg/domain"
)

var (
	neoFile string
	cadFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "neocore",
	Short: "Explore near-Earth object close approaches",
	Long: `Neocore loads NASA's NEO catalog and close approach data, links them
in memory, and answers filtered queries over the close approaches.`,
	SilenceUsage: true,
}

func loadConfiguration() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return config.DefaultConfig()
	}
	cfg.ApplyEnv()
	return cfg
}

func sourcePaths(cfg *config.Config) (string, string) {
	neo := neoFile
	if neo == "" {
		neo = cfg.NEOFile
	}
	cad := cadFile
	if cad == "" {
		cad = cfg.CADFile
	}
	return neo, cad
}

func buildDatabase(cfg *config.Config) (*core.Database, error) {
	neoPath, cadPath := sourcePaths(cfg)
	neos, err := ingest.LoadNEOs(neoPath)
	if err != nil {
		return restoreFromCache(cfg, err)
	}
	approaches, err := ingest.LoadApproaches(cadPath)
	if err != nil {
		return restoreFromCache(cfg, err)
	}
	db := core.NewDatabase(neos, approaches)

	if cfg.CacheOnLoad {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		store, err := core.OpenSnapshotStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: snapshot cache unavailable: %v\n", err)
			return db, nil
		}
		defer func() { _ = store.Close() }()
		if err := store.Persist(ctx, db.Snapshot()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: snapshot cache write failed: %v\n", err)
		}
	}
	return db, nil
}

// restoreFromCache rebuilds the database from the snapshot store when the
// source files are unavailable. Linking is always recomputed on restore.
func restoreFromCache(cfg *config.Config, loadErr error) (*core.Database, error) {
	if !cfg.CacheOnLoad {
		return nil, loadErr
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := core.OpenSnapshotStore(ctx)
	if err != nil {
		return nil, loadErr
	}
	defer func() { _ = store.Close() }()
	snap, found, err := store.Load(ctx)
	if err != nil || !found {
		return nil, loadErr
	}
	fmt.Fprintf(os.Stderr, "Warning: source files unavailable (%v); using cached snapshot\n", loadErr)
	return core.RestoreDatabase(snap), nil
}

func newService(db *core.Database) *core.Service {
	opts := []core.Option{}
	if verbose {
		level := slog.LevelDebug
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		opts = append(opts, core.WithLogger(core.SlogLogger{L: slog.New(handler)}))
	}
	return core.NewService(db, opts...)
}

// queryFlags collects the filter options shared by query and export.
type queryFlags struct {
	date         string
	startDate    string
	endDate      string
	minDistance  float64
	maxDistance  float64
	minVelocity  float64
	maxVelocity  float64
	minDiameter  float64
	maxDiameter  float64
	hazardous    bool
	notHazardous bool
}

func (q *queryFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&q.date, "date", "", "Only approaches on this date (YYYY-MM-DD)")
	flags.StringVar(&q.startDate, "start-date", "", "Only approaches on or after this date (YYYY-MM-DD)")
	flags.StringVar(&q.endDate, "end-date", "", "Only approaches on or before this date (YYYY-MM-DD)")
	flags.Float64Var(&q.minDistance, "min-distance", 0, "Minimum approach distance in au")
	flags.Float64Var(&q.maxDistance, "max-distance", 0, "Maximum approach distance in au")
	flags.Float64Var(&q.minVelocity, "min-velocity", 0, "Minimum approach velocity in km/s")
	flags.Float64Var(&q.maxVelocity, "max-velocity", 0, "Maximum approach velocity in km/s")
	flags.Float64Var(&q.minDiameter, "min-diameter", 0, "Minimum NEO diameter in km")
	flags.Float64Var(&q.maxDiameter, "max-diameter", 0, "Maximum NEO diameter in km")
	flags.BoolVar(&q.hazardous, "hazardous", false, "Only potentially hazardous NEOs")
	flags.BoolVar(&q.notHazardous, "not-hazardous", false, "Only non-hazardous NEOs")
}

func (q *queryFlags) toFilters(cmd *cobra.Command) (domain.Filters, error) {
	var f domain.Filters

	dates := map[string]struct {
		raw    string
		target **domain.Date
	}{
		"date":       {q.date, &f.Date},
		"start-date": {q.startDate, &f.StartDate},
		"end-date":   {q.endDate, &f.EndDate},
	}
	for name, flag := range dates {
		if flag.raw == "" {
			continue
		}
		d, err := domain.ParseDate(flag.raw)
		if err != nil {
			return f, fmt.Errorf("invalid --%s: %v", name, err)
		}
		*flag.target = &d
	}

	floats := map[string]struct {
		value  float64
		target **float64
	}{
		"min-distance": {q.minDistance, &f.DistanceMin},
		"max-distance": {q.maxDistance, &f.DistanceMax},
		"min-velocity": {q.minVelocity, &f.VelocityMin},
		"max-velocity": {q.maxVelocity, &f.VelocityMax},
		"min-diameter": {q.minDiameter, &f.DiameterMin},
		"max-diameter": {q.maxDiameter, &f.DiameterMax},
	}
	for name, flag := range floats {
		if cmd.Flags().Changed(name) {
			v := flag.value
			*flag.target = &v
		}
	}

	if q.hazardous && q.notHazardous {
		return f, fmt.Errorf("--hazardous and --not-hazardous are mutually exclusive")
	}
	if q.hazardous {
		v := true
		f.Hazardous = &v
	}
	if q.notHazardous {
		v := false
		f.Hazardous = &v
	}
	return f, nil
}

func printNEO(neo *domain.NearEarthObject, withApproaches bool) {
	fmt.Println(neo)
	if !withApproaches {
		return
	}
	for _, a := range neo.Approaches {
		fmt.Printf("- %s\n", a)
	}
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Look up a single NEO by designation or name",
	RunE: func(cmd *cobra.Command, args []string) error {
		pdes, _ := cmd.Flags().GetString("pdes")
		name, _ := cmd.Flags().GetString("name")
		if (pdes == "") == (name == "") {
			return fmt.Errorf("exactly one of --pdes or --name is required")
		}

		db, err := buildDatabase(loadConfiguration())
		if err != nil {
			return err
		}
		svc := newService(db)

		var neo *domain.NearEarthObject
		if pdes != "" {
			neo, err = svc.LookupDesignation(cmd.Context(), pdes)
		} else {
			neo, err = svc.LookupName(cmd.Context(), name)
		}
		if err != nil {
			return err
		}
		printNEO(neo, verbose)
		return nil
	},
}

var queryFilterFlags queryFlags

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List close approaches matching a set of filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := queryFilterFlags.toFilters(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		outfile, _ := cmd.Flags().GetString("outfile")

		cfg := loadConfiguration()
		if !cmd.Flags().Changed("limit") && outfile == "" {
			limit = cfg.QueryLimit
		}

		db, err := buildDatabase(cfg)
		if err != nil {
			return err
		}
		matches := newService(db).Query(cmd.Context(), filters, limit)

		if outfile == "" {
			for _, a := range matches {
				fmt.Println(a)
			}
			return nil
		}

		format := export.FormatJSON
		if strings.EqualFold(filepath.Ext(outfile), ".csv") {
			format = export.FormatCSV
		}
		f, err := os.Create(outfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.Write(f, format, matches); err != nil {
			return err
		}
		fmt.Printf("Wrote %d approaches to %s\n", len(matches), outfile)
		return nil
	},
}

var exportFilterFlags queryFlags

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run an export job and store the artifacts in the blob store",
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := exportFilterFlags.toFilters(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		formatNames, _ := cmd.Flags().GetStringSlice("format")
		formats := make([]export.Format, 0, len(formatNames))
		for _, name := range formatNames {
			format, err := export.ParseFormat(name)
			if err != nil {
				return err
			}
			formats = append(formats, format)
		}

		db, err := buildDatabase(loadConfiguration())
		if err != nil {
			return err
		}
		store, err := blob.Open(cmd.Context())
		if err != nil {
			return err
		}

		worker := export.NewWorker(db, export.NewBlobObjectStore(store), nil)
		worker.Start()
		defer func() { _ = worker.Stop(context.Background()) }()

		record, err := worker.Enqueue(cmd.Context(), export.Input{
			Filters: filters,
			Limit:   limit,
			Formats: formats,
		})
		if err != nil {
			return err
		}

		deadline := time.Now().Add(2 * time.Minute)
		for {
			current, ok := worker.Get(record.ID)
			if !ok {
				return fmt.Errorf("export %s vanished", record.ID)
			}
			if current.Status == export.StatusFailed {
				return fmt.Errorf("export failed: %s", current.Error)
			}
			if current.Status == export.StatusSucceeded {
				for _, artifact := range current.Artifacts {
					fmt.Printf("%s\t%d rows\t%s\n", artifact.ID, artifact.Rows, artifact.URL)
				}
				return nil
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("export %s timed out", record.ID)
			}
			time.Sleep(50 * time.Millisecond)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfiguration()
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.ListenAddr
		}

		db, err := buildDatabase(cfg)
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		metrics := core.NewPrometheusMetricsRecorder(registry)
		handler := slog.NewTextHandler(os.Stderr, nil)
		svc := core.NewService(db,
			core.WithLogger(core.SlogLogger{L: slog.New(handler)}),
			core.WithMetrics(metrics),
		)

		store, err := blob.Open(cmd.Context())
		if err != nil {
			return err
		}
		worker := export.NewWorker(db, export.NewBlobObjectStore(store), nil)
		worker.UseMetrics(metrics)
		worker.Start()
		defer func() { _ = worker.Stop(context.Background()) }()

		api := httpapi.NewHandler(svc)
		api.Exports = worker

		mux := http.NewServeMux()
		mux.Handle("/api/v1/", api)
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		fmt.Printf("Listening on %s\n", addr)
		server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		return server.ListenAndServe()
	},
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Start an interactive query session",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := buildDatabase(loadConfiguration())
		if err != nil {
			return err
		}
		svc := newService(db)
		fmt.Printf("Loaded %d NEOs and %d close approaches.\n", db.NumNEOs(), db.NumApproaches())
		fmt.Println(`Commands: inspect <designation>, name <name>, query [max-distance] [limit], quit`)

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "quit", "exit", "q":
				return nil
			case "inspect", "i":
				if len(fields) < 2 {
					fmt.Println("usage: inspect <designation>")
					continue
				}
				neo, err := svc.LookupDesignation(cmd.Context(), fields[1])
				if err != nil {
					fmt.Println(err)
					continue
				}
				printNEO(neo, true)
			case "name", "n":
				if len(fields) < 2 {
					fmt.Println("usage: name <name>")
					continue
				}
				neo, err := svc.LookupName(cmd.Context(), strings.Join(fields[1:], " "))
				if err != nil {
					fmt.Println(err)
					continue
				}
				printNEO(neo, true)
			case "query":
				var filters domain.Filters
				limit := 10
				if len(fields) > 1 {
					var v float64
					if _, err := fmt.Sscanf(fields[1], "%g", &v); err != nil {
						fmt.Println("usage: query [max-distance] [limit]")
						continue
					}
					filters.DistanceMax = &v
				}
				if len(fields) > 2 {
					if _, err := fmt.Sscanf(fields[2], "%d", &limit); err != nil {
						fmt.Println("usage: query [max-distance] [limit]")
						continue
					}
				}
				for _, a := range svc.Query(cmd.Context(), filters, limit) {
					fmt.Println(a)
				}
			default:
				fmt.Printf("unknown command %q\n", fields[0])
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&neoFile, "neofile", "", "Path to the NEO CSV file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&cadFile, "cadfile", "", "Path to the close approach JSON file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	inspectCmd.Flags().String("pdes", "", "Primary designation to look up")
	inspectCmd.Flags().String("name", "", "IAU name to look up")

	queryFilterFlags.register(queryCmd)
	queryCmd.Flags().Int("limit", 0, "Maximum number of results (0 = config default)")
	queryCmd.Flags().String("outfile", "", "Write results to this file (.csv or .json)")

	exportFilterFlags.register(exportCmd)
	exportCmd.Flags().Int("limit", 0, "Maximum number of results (0 = unlimited)")
	exportCmd.Flags().StringSlice("format", nil, "Artifact formats (csv, json; default both)")

	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
