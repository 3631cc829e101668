// Command bondctl builds a bond catalog from a source and inspects it
// without starting the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"retailbonds/internal/app"
	"retailbonds/internal/catalog"
	"retailbonds/internal/config"
	apierrors "retailbonds/internal/errors"
	"retailbonds/internal/exporter"
	"retailbonds/internal/infrastructure"
	"retailbonds/internal/services"
	handlers "retailbonds/internal/transport/http"
	"retailbonds/internal/validation"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return 1
}

// cli carries what PersistentPreRunE prepared for the subcommands.
type cli struct {
	cfg       *config.Config
	logger    *slog.Logger
	catalog   *catalog.Catalog
	bonds     *services.BondService
	validator *validation.FileValidator
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "bondctl",
		Short:         "Inspect retail bond catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.load(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("source", "", "workbook file or record directory (overrides source.path)")
	root.PersistentFlags().String("kind", "", "source kind: workbook, directory or auto")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.listCmd(),
		c.showCmd(),
		c.csvCmd(),
		c.onCmd(),
		c.exportCmd(),
		c.validateCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")

	var err error
	if configFile != "" {
		c.cfg, err = config.LoadFile(configFile)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return apierrors.NewConfigError("failed to load config", err)
	}
	if source, _ := flags.GetString("source"); source != "" {
		c.cfg.Source.Path = source
	}
	if kind, _ := flags.GetString("kind"); kind != "" {
		c.cfg.Source.Kind = kind
	}
	if err := c.cfg.RequireSource(); err != nil {
		return apierrors.NewConfigError("no source", err)
	}

	level, _ := flags.GetString("log-level")
	c.logger = infrastructure.NewLoggerTo(cmd.ErrOrStderr(), level)

	src, specs := app.SourceFromConfig(c.cfg.Source)
	c.validator = validation.NewFileValidator(c.logger)
	if src, err = c.validator.ValidateSource(src); err != nil {
		return apierrors.ClassifyBuildError(err)
	}
	c.catalog, err = catalog.NewBuilder(c.logger, nil).Build(cmd.Context(), src, specs)
	if err != nil {
		return apierrors.ClassifyBuildError(err)
	}
	c.bonds = services.NewBondService(catalog.NewHolder(c.catalog), nil, c.logger)
	return nil
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List instruments in sale order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSERIES\tSALE START\tSALE END\tBUYOUT\tDAYS")
			for _, inst := range c.catalog.InSaleOrder() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
					inst.ID, inst.Series, inst.SaleStart, inst.SaleEnd, inst.BuyoutDate, len(inst.Values))
			}
			return tw.Flush()
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print an instrument with its daily values as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, ok := c.bonds.GetInstrument(cmd.Context(), args[0])
			if !ok {
				return apierrors.NewNotFoundError("instrument " + args[0])
			}
			return writeJSON(cmd.OutOrStdout(), handlers.NewInstrumentResponse(inst))
		},
	}
}

func (c *cli) csvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "csv <id>",
		Short: "Print an instrument's daily values as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, ok := c.bonds.GetInstrument(cmd.Context(), args[0])
			if !ok {
				return apierrors.NewNotFoundError("instrument " + args[0])
			}
			return exporter.WriteSeries(cmd.OutOrStdout(), inst)
		},
	}
}

func (c *cli) onCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "on <YYYY-MM-DD>",
		Short: "Print the instruments on sale on a date, one per series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, _ := cmd.Flags().GetString("series")
			buyout, _ := cmd.Flags().GetBool("buyout")

			lookup, what := c.bonds.InstrumentsOnSale, "instrument on sale on "
			if buyout {
				lookup, what = c.bonds.InstrumentsForBuyout, "instrument bought out on "
			}
			found, err := lookup(cmd.Context(), args[0], series)
			if err != nil {
				return apierrors.NewAppError(apierrors.ErrTypeValidation, "invalid date", err)
			}
			if len(found) == 0 {
				return apierrors.NewNotFoundError(what + args[0])
			}
			for _, inst := range found {
				fmt.Fprintln(cmd.OutOrStdout(), inst.ID)
			}
			return nil
		},
	}
	cmd.Flags().String("series", "", "only consider this series")
	cmd.Flags().Bool("buyout", false, "match buyout windows instead of sale windows")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one CSV file per instrument",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if err := c.validator.ValidateOutputDirectory(out); err != nil {
				return apierrors.NewStorageError("invalid output directory", err)
			}
			paths, err := exporter.NewCSVWriter(out, c.logger).ExportAll(cmd.Context(), c.catalog.InSaleOrder())
			if err != nil {
				return apierrors.NewStorageError("export failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d instruments to %s\n", len(paths), out)
			return nil
		},
	}
	cmd.Flags().String("out", "export", "output directory")
	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Build the catalog and report a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.bonds.CatalogSummary(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d instruments in %v from %s to %s (%s)\n",
				s.Instruments, s.Series, s.SaleFrom, s.SaleTo, s.Source)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bondctl %s (build %s)\n", app.Version, app.BuildID)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
