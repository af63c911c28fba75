package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeqfu/datakit/pkg/config"
	"github.com/mikeqfu/datakit/pkg/dbms"
	"github.com/mikeqfu/datakit/pkg/geom"
	"github.com/mikeqfu/datakit/pkg/logger"
	"github.com/mikeqfu/datakit/pkg/ops"
	"github.com/mikeqfu/datakit/pkg/store"
	"github.com/mikeqfu/datakit/pkg/text"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var logLevel string

	root := &cobra.Command{
		Use:   "datakit",
		Short: "Datakit - tabular data, coordinate and PostgreSQL utilities",
		Long: `Datakit is a toolbox for everyday data chores: converting tabular files
between formats, translating British national grid references, matching
messy text, downloading datasets and moving tables in and out of
PostgreSQL.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:       logLevel,
				Encoding:    "console",
				OutputPaths: []string{"stderr"},
			})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "error", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Datakit v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newConvertCmd())
	root.AddCommand(newGridCmd())
	root.AddCommand(newSimilarCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newDBCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a tabular file between formats",
		Long: `Convert a tabular file between the supported formats. The formats are
chosen by file extension (.csv, .json, .xlsx, .feather, .arrow, .gob),
optionally followed by a compression suffix (.gz, .zst, .lz4, .sz).

Example:
  datakit convert cities.csv cities.feather.zst`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := store.LoadTable(args[0])
			if err != nil {
				return err
			}
			if err := store.SaveTable(tbl, args[1]); err != nil {
				return err
			}
			fmt.Printf("Converted %s -> %s (%d rows)\n", args[0], args[1], tbl.NumRows())
			return nil
		},
	}
}

func newGridCmd() *cobra.Command {
	grid := &cobra.Command{
		Use:   "grid",
		Short: "Convert between WGS84 and the British national grid",
	}

	grid.AddCommand(&cobra.Command{
		Use:   "from-wgs84 <longitude> <latitude>",
		Short: "Convert WGS84 coordinates to OSGB36 easting/northing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lon, lat, err := parseCoordinatePair(args[0], args[1])
			if err != nil {
				return err
			}
			easting, northing := geom.WGS84ToOSGB36(lon, lat)
			fmt.Printf("%.3f\t%.3f\n", easting, northing)
			return nil
		},
	})

	grid.AddCommand(&cobra.Command{
		Use:   "to-wgs84 <easting> <northing>",
		Short: "Convert OSGB36 easting/northing to WGS84 coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			easting, northing, err := parseCoordinatePair(args[0], args[1])
			if err != nil {
				return err
			}
			lon, lat := geom.OSGB36ToWGS84(easting, northing)
			fmt.Printf("%.8f\t%.8f\n", lon, lat)
			return nil
		},
	})

	return grid
}

func parseCoordinatePair(first, second string) (float64, float64, error) {
	a, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid coordinate %q: %w", first, err)
	}
	b, err := strconv.ParseFloat(second, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid coordinate %q: %w", second, err)
	}
	return a, b, nil
}

func newSimilarCmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "similar <query> <candidate>...",
		Short: "Find the candidate most similar to a query string",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			match, err := text.FindSimilar(args[0], args[1:], text.Method(method))
			if err != nil {
				return err
			}
			fmt.Println(match)
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", string(text.MethodRatio),
		"Similarity method (ratio, edit_distance)")
	return cmd
}

func newDownloadCmd() *cobra.Command {
	var output string
	var retries int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			destination := output
			if destination == "" {
				destination = ops.FilenameFromURL(args[0])
				if destination == "" {
					return fmt.Errorf("cannot derive a filename from %q, use --output", args[0])
				}
			}
			return ops.Download(cmd.Context(), args[0], destination, ops.DownloadOptions{
				RetryMax: retries,
				Timeout:  timeout,
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (default: filename from the URL)")
	cmd.Flags().IntVar(&retries, "retries", 3, "Retry attempts on transient failures")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-attempt timeout")
	return cmd
}

// dbFlags carries the connection flags shared by the db subcommands.
type dbFlags struct {
	host     string
	port     int
	username string
	database string
	sslMode  string
	yes      bool
}

func (f *dbFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.host, "host", "localhost", "Server host")
	cmd.PersistentFlags().IntVar(&f.port, "port", 5432, "Server port")
	cmd.PersistentFlags().StringVarP(&f.username, "username", "U", "postgres", "User name")
	cmd.PersistentFlags().StringVarP(&f.database, "dbname", "d", "postgres", "Database name")
	cmd.PersistentFlags().StringVar(&f.sslMode, "sslmode", "prefer", "SSL mode")
	cmd.PersistentFlags().BoolVarP(&f.yes, "yes", "y", false, "Answer yes to all confirmation prompts")
}

// connect builds a connector from the flags, with PG* environment
// variables applied underneath. The password comes from PGPASSWORD or an
// interactive prompt.
func (f *dbFlags) connect(ctx context.Context) (*dbms.PostgresConnector, error) {
	profile := config.ConnectionProfile{
		Host:     f.host,
		Port:     f.port,
		Username: f.username,
		Database: f.database,
		SSLMode:  f.sslMode,
	}
	profile = profile.WithEnvOverrides()

	opts := []dbms.Option{}
	if f.yes {
		opts = append(opts, dbms.WithConfirm(dbms.ConfirmAll))
	}

	connector, err := dbms.NewPostgresConnector(profile, opts...)
	if err != nil {
		return nil, err
	}
	if err := connector.Connect(ctx); err != nil {
		return nil, err
	}
	return connector, nil
}

func newDBCmd() *cobra.Command {
	flags := &dbFlags{}

	db := &cobra.Command{
		Use:   "db",
		Short: "Move tables in and out of PostgreSQL",
	}
	flags.register(db)

	var ifExists string
	var chunkSize int

	importCmd := &cobra.Command{
		Use:   "import <file> <table>",
		Short: "Bulk-load a tabular file into a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := store.LoadTable(args[0])
			if err != nil {
				return err
			}
			policy, err := dbms.ParseIfExistsPolicy(ifExists)
			if err != nil {
				return err
			}

			connector, err := flags.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer connector.Close()

			schema, tableName := splitQualifiedTable(args[1])
			return connector.ImportTable(cmd.Context(), tbl, tableName, schema, dbms.ImportOptions{
				IfExists:  policy,
				ChunkSize: chunkSize,
				Confirm:   !flags.yes,
			})
		},
	}
	importCmd.Flags().StringVar(&ifExists, "if-exists", "fail",
		"What to do when the table exists (fail, replace, append)")
	importCmd.Flags().IntVar(&chunkSize, "chunk-size", 10000, "Rows per COPY batch (0 = one batch)")
	db.AddCommand(importCmd)

	var output string

	readCmd := &cobra.Command{
		Use:   "read <table>",
		Short: "Fetch a table and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connector, err := flags.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer connector.Close()

			schema, tableName := splitQualifiedTable(args[0])
			tbl, err := connector.ReadTable(cmd.Context(), tableName, schema)
			if err != nil {
				return err
			}
			if output == "" {
				output = tableName + ".csv"
			}
			if err := store.SaveTable(tbl, output); err != nil {
				return err
			}
			fmt.Printf("Wrote %d rows to %s\n", tbl.NumRows(), output)
			return nil
		},
	}
	readCmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default: <table>.csv)")
	db.AddCommand(readCmd)

	queryCmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query and write the result set to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connector, err := flags.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer connector.Close()

			tbl, err := connector.ReadQuery(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = "query.csv"
			}
			if err := store.SaveTable(tbl, output); err != nil {
				return err
			}
			fmt.Printf("Wrote %d rows to %s\n", tbl.NumRows(), output)
			return nil
		},
	}
	queryCmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default: query.csv)")
	db.AddCommand(queryCmd)

	dropCmd := &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connector, err := flags.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer connector.Close()

			schema, tableName := splitQualifiedTable(args[0])
			return connector.DropTable(cmd.Context(), tableName, schema, !flags.yes)
		},
	}
	db.AddCommand(dropCmd)

	return db
}

// splitQualifiedTable splits "schema.table" into its parts. A bare name
// gets an empty schema, which downstream defaults to "public".
func splitQualifiedTable(name string) (schema, table string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}
