// Command vlporacle checks vlp problems and answers separation queries
// against their objective polyhedron.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bartolsthoorn/vlporacle/config"
	"github.com/bartolsthoorn/vlporacle/oracle"
)

// version is set at build time.
var version = "dev"

type app struct {
	verbose    bool
	configPath string
	queries    []string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "vlporacle",
		Short: "Facet separation oracle for vlp problems",
		Long: `vlporacle loads a multi-objective linear program in vlp format and
answers separation queries against its objective polyhedron.

A query is a point of the objective space followed by a homogeneous
coordinate: 0 for a direction, nonzero for a finite point.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")

	checkCmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Load a problem and verify its interior point",
		Args:  cobra.ExactArgs(1),
		RunE:  a.check,
	}

	askCmd := &cobra.Command{
		Use:     "ask FILE",
		Short:   "Separate query points from the polyhedron",
		Example: `  vlporacle ask problem.vlp -q 1,0,0 -q 1,1,1`,
		Args:    cobra.ExactArgs(1),
		RunE:    a.ask,
	}
	askCmd.Flags().StringArrayVarP(&a.queries, "query", "q", nil, "Query x1,...,xn,h (repeatable)")
	_ = askCmd.MarkFlagRequired("query")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.Params()
			if err != nil {
				return err
			}
			backend := oracle.DefaultBackend(params, a.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "vlporacle %s (%s)\n", version, backend.Version())
			return nil
		},
	}

	root.AddCommand(checkCmd, askCmd, versionCmd)
	return root
}

func (a *app) setup() error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logger, err := a.cfg.Logging.Logger(a.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

// open loads and initializes the oracle for path. The returned bool is
// false when the polyhedron is empty.
func (a *app) open(ctx context.Context, path string) (*oracle.Oracle, bool, error) {
	opts, err := a.cfg.OracleOptions(a.logger)
	if err != nil {
		return nil, false, err
	}
	o, err := oracle.Load(path, opts...)
	if err != nil {
		return nil, false, err
	}
	if err := o.Initialize(ctx); err != nil {
		if errors.Is(err, oracle.ErrEmpty) {
			return o, false, nil
		}
		return nil, false, err
	}
	return o, true, nil
}

func (a *app) check(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	o, ok, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintln(out, "EMPTY")
		return nil
	}
	fmt.Fprintf(out, "OK %d objectives\n", o.NumObjectives())
	printStats(out, o.Stats())
	return nil
}

func (a *app) ask(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	o, ok, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintln(out, "EMPTY")
		return nil
	}

	for _, raw := range a.queries {
		q, err := parseQuery(raw)
		if err != nil {
			return err
		}
		ans, err := o.Ask(ctx, q)
		if err != nil {
			return err
		}
		if ans.Outcome != oracle.OutcomeFacet {
			fmt.Fprintln(out, ans.Outcome)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", ans.Outcome, formatFloats(ans.Facet))
	}
	if a.verbose {
		printStats(out, o.Stats())
	}
	return nil
}

func parseQuery(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	q := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid query %q: %w", s, err)
		}
		q[i] = v
	}
	return q, nil
}

func formatFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func printStats(w io.Writer, s oracle.Stats) {
	fmt.Fprintf(w, "calls=%d iterations=%d time=%d.%02ds solver=%q\n",
		s.Calls, s.Iterations, s.Hundredths()/100, s.Hundredths()%100, s.Version)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
