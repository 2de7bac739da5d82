package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/akita-mos/batch"
	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/datarecording"
	"github.com/sarchlab/akita-mos/job"
	"github.com/sarchlab/akita-mos/monitoring"
	"github.com/sarchlab/akita-mos/sim/id"
	"github.com/sarchlab/akita-mos/tracing"
)

type runConfig struct {
	input        string
	output       string
	seed         int64
	traceDB      string
	clickHouse   string
	clickHouseDB string
	monitor      bool
	monitorPort  int
	openBrowser  bool
	logLevel     string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every job of a card deck.",
	Long: "`run --input deck.txt --output out.txt` loads each job of the " +
		"deck, runs it to termination, and prints its output followed by " +
		"its termination record.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBatch(readRunConfig(cmd), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("input", "-", "Card deck to read, - for standard input.")
	f.String("output", "-", "File to print to, - for standard output.")
	f.Int64("seed", 1, "Seed of the frame allocator.")
	f.String("trace-db", "",
		"Record execution events into this SQLite database (without suffix).")
	f.String("trace-clickhouse", "",
		"Record execution events into the ClickHouse server at host:port.")
	f.String("trace-clickhouse-db", "default",
		"ClickHouse database used with --trace-clickhouse.")
	f.Bool("monitor", false, "Serve the machine state over HTTP.")
	f.Int("monitor-port", 0, "Port of the monitor, 0 for a random port.")
	f.Bool("open-browser", false, "Open the monitor in a browser.")
	f.String("log-level", "warn", "Log level: debug, info, warn, or error.")
}

func readRunConfig(cmd *cobra.Command) runConfig {
	f := cmd.Flags()
	cfg := runConfig{}

	cfg.input, _ = f.GetString("input")
	cfg.output, _ = f.GetString("output")
	cfg.seed, _ = f.GetInt64("seed")
	cfg.traceDB, _ = f.GetString("trace-db")
	cfg.clickHouse, _ = f.GetString("trace-clickhouse")
	cfg.clickHouseDB, _ = f.GetString("trace-clickhouse-db")
	cfg.monitor, _ = f.GetBool("monitor")
	cfg.monitorPort, _ = f.GetInt("monitor-port")
	cfg.openBrowser, _ = f.GetBool("open-browser")
	cfg.logLevel, _ = f.GetString("log-level")

	return cfg
}

func runBatch(cfg runConfig, stdin io.Reader, stdout io.Writer) error {
	logger := logrus.StandardLogger()

	level, err := logrus.ParseLevel(cfg.logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	in, closeIn, err := openInput(cfg.input, stdin)
	if err != nil {
		return err
	}
	defer closeIn()

	out, closeOut, err := openOutput(cfg.output, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	sink := job.NewTextSink(out)
	runner := batch.MakeBuilder().
		WithSeed(cfg.seed).
		WithSink(sink).
		WithLogger(logger).
		Build("MOS")

	counter := tracing.NewCountTracer()
	tracing.CollectTrace(runner.CPU(), counter)
	tracing.CollectTrace(runner.CPU(), tracing.NewLogTracer(logger))

	if cfg.traceDB != "" {
		writer, err := datarecording.New(cfg.traceDB)
		if err != nil {
			return err
		}
		defer writer.Close()

		logger.WithField("file", writer.FileName()).Info("recording trace")
		tracing.CollectTrace(runner.CPU(),
			tracing.NewDBTracer(writer, id.NewUniqueIDGenerator()))
	}

	if cfg.clickHouse != "" {
		recorder, err := datarecording.NewClickHouseRecorder(
			datarecording.ClickHouseConfig{
				Addr:     cfg.clickHouse,
				Database: cfg.clickHouseDB,
				Username: os.Getenv(EnvPrefix + "CLICKHOUSE_USER"),
				Password: os.Getenv(EnvPrefix + "CLICKHOUSE_PASSWORD"),
			})
		if err != nil {
			return err
		}
		defer recorder.Close()

		tracing.CollectTrace(runner.CPU(),
			tracing.NewDBTracer(recorder, id.NewUniqueIDGenerator()))
	}

	if cfg.monitor {
		if err := startMonitor(cfg, runner); err != nil {
			return err
		}
	}

	results, runErr := runner.RunAll(job.NewLoader(in))

	if err := sink.Flush(); err != nil && runErr == nil {
		runErr = err
	}

	logger.WithFields(logrus.Fields{
		"jobs":        len(results),
		"page_faults": counter.Count(cpu.HookPosPageFault),
		"lines":       counter.Count(cpu.HookPosOutputLine),
	}).Info("batch finished")

	return runErr
}

func startMonitor(cfg runConfig, runner *batch.Runner) error {
	m := monitoring.NewMonitor().WithPortNumber(cfg.monitorPort)
	m.RegisterComponent(runner.CPU())
	m.RegisterStorage(runner.Storage())
	tracing.CollectTrace(runner.CPU(), m)

	url, err := m.StartServer()
	if err != nil {
		return err
	}

	if cfg.openBrowser {
		if err := m.OpenBrowser(url); err != nil {
			logrus.WithError(err).Warn("cannot open browser")
		}
	}

	return nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening deck: %w", err)
	}

	return f, func() { f.Close() }, nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}

	return f, func() { f.Close() }, nil
}
