package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wms-platform/pick-ticket-service/internal/application"
	engineconfig "github.com/wms-platform/pick-ticket-service/internal/config"
	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/internal/infrastructure/tabular"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
)

type generateOptions struct {
	linesPath       string
	skuMasterPath   string
	configPath      string
	outPath         string
	excludedPath    string
	pickByOrderPath string
	from            string
	to              string
	kind            string
	strategy        string
	logLevel        string
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a pick ticket from order line and SKU master CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.linesPath, "lines", "", "Order lines CSV (required)")
	cmd.Flags().StringVar(&opts.skuMasterPath, "sku-master", "", "SKU master CSV (required)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Engine configuration YAML (default: built-in thresholds)")
	cmd.Flags().StringVar(&opts.outPath, "out", "-", "Pick ticket CSV output, - for stdout")
	cmd.Flags().StringVar(&opts.excludedPath, "excluded-out", "", "Excluded orders CSV output")
	cmd.Flags().StringVar(&opts.pickByOrderPath, "pick-by-order-out", "", "Oversize orders CSV output")
	cmd.Flags().StringVar(&opts.from, "from", "", "First delivery date to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.to, "to", "", "Last delivery date to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.kind, "kind", "all", "Rows to emit: all, single or multi")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Multi-line strategy override: scenario or capacity")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	_ = cmd.MarkFlagRequired("lines")
	_ = cmd.MarkFlagRequired("sku-master")

	return cmd
}

func (o generateOptions) runOptions() (domain.RunOptions, error) {
	var opts domain.RunOptions

	kind, err := domain.ParseOrderKind(o.kind)
	if err != nil {
		return opts, fmt.Errorf("invalid --kind: %w", err)
	}
	opts.OrderKind = kind

	if o.from != "" {
		from, err := time.Parse(domain.DateLayout, o.from)
		if err != nil {
			return opts, fmt.Errorf("invalid --from %q: want YYYY-MM-DD", o.from)
		}
		opts.DeliveryFrom = &from
	}
	if o.to != "" {
		to, err := time.Parse(domain.DateLayout, o.to)
		if err != nil {
			return opts, fmt.Errorf("invalid --to %q: want YYYY-MM-DD", o.to)
		}
		opts.DeliveryTo = &to
	}
	if opts.DeliveryFrom != nil && opts.DeliveryTo != nil && opts.DeliveryFrom.After(*opts.DeliveryTo) {
		return opts, fmt.Errorf("--from %s is after --to %s", o.from, o.to)
	}
	return opts, nil
}

func runGenerate(ctx context.Context, opts generateOptions, stdout, stderr io.Writer) error {
	runOpts, err := opts.runOptions()
	if err != nil {
		return err
	}

	cfg, err := engineconfig.Load(opts.configPath)
	if err != nil {
		return err
	}

	lines, err := readFile(opts.linesPath, tabular.ReadOrderLines)
	if err != nil {
		return err
	}
	master, err := readFile(opts.skuMasterPath, tabular.ReadSKUMaster)
	if err != nil {
		return err
	}

	logConfig := logging.DefaultConfig("pickticket-cli")
	logConfig.Level = logging.ParseLevel(opts.logLevel)
	logConfig.Output = stderr
	logger := logging.New(logConfig)

	service, err := application.NewPickTicketService(nil, cfg, nil, logger)
	if err != nil {
		return err
	}

	run, err := service.Run(ctx, application.GeneratePickTicketCommand{
		Source:   domain.RunSourceCLI,
		Lines:    lines,
		Master:   master,
		Options:  runOpts,
		Strategy: opts.strategy,
	})
	if err != nil {
		return err
	}

	outputs := []struct {
		path  string
		table string
	}{
		{opts.outPath, tabular.TablePrimary},
		{opts.excludedPath, tabular.TableExcluded},
		{opts.pickByOrderPath, tabular.TablePickByOrder},
	}
	for _, out := range outputs {
		if err := writeOutput(out.path, stdout, &run.Ticket, out.table); err != nil {
			return err
		}
	}

	summary := run.Ticket.Summary
	fmt.Fprintf(stderr, "%s: %s, %d orders, %d jobs, %d rows, %d excluded, %d pick-by-order (%s)\n",
		run.RunID, run.Status, summary.Orders, summary.Jobs, summary.Rows,
		summary.ExcludedOrders, len(run.Ticket.PickByOrder), summary.Strategy)
	for _, w := range run.Ticket.Warnings {
		fmt.Fprintln(stderr, "warning:", w)
	}
	return nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func writeOutput(path string, stdout io.Writer, ticket *domain.PickTicket, table string) error {
	switch path {
	case "":
		return nil
	case "-":
		return tabular.WriteTable(stdout, ticket, table)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tabular.WriteTable(f, ticket, table); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
