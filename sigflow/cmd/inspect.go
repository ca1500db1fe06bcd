package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/datarecording"
	"github.com/sarchlab/signalflow/netconfig"
	"github.com/sarchlab/signalflow/sim"
)

// checkNetwork builds a network without running it. Every entity named by a
// sensor is replaced with an empty one.
func checkNetwork(path string) (*netconfig.Document, *calc.Network, error) {
	doc, err := netconfig.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	b := netconfig.MakeBuilder().WithScheduler(sim.NewSerialEngine())
	for _, n := range doc.Nodes {
		if n.Kind == netconfig.KindSensor && n.Entity != "" {
			b = b.WithEntity(n.Entity, calc.NewMapEntity())
		}
	}

	network, err := b.Build(doc)
	if err != nil {
		return doc, nil, err
	}

	if err := network.PropagateUnits(); err != nil {
		return doc, nil, err
	}

	if err := network.Validate(); err != nil {
		return doc, nil, err
	}

	return doc, network, nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate NETWORK.yaml",
		Short: "Check a network without running it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, network, err := checkNetwork(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d controllers, %d nodes\n",
				args[0], len(network.Controllers()), len(network.Nodes()))

			return nil
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe NETWORK.yaml",
		Short: "Print the controllers and the update order of their nodes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, network, err := checkNetwork(args[0])
			if err != nil {
				return err
			}

			if err := network.EarlyInit(); err != nil {
				return err
			}

			return describe(cmd.OutOrStdout(), doc, network)
		},
	}
}

func describe(w io.Writer, doc *netconfig.Document, network *calc.Network) error {
	kinds := make(map[string]string, len(doc.Nodes))
	for _, n := range doc.Nodes {
		kinds[n.Name] = n.Kind
	}

	for _, spec := range doc.Controllers {
		c, _ := network.Controller(spec.Name)

		interval, maxTicks := "1", "unlimited"
		if spec.Interval != nil {
			interval = spec.Interval.String()
		} else if spec.Freq > 0 {
			interval = fmt.Sprintf("%g", float64(sim.Freq(spec.Freq).Period()))
		}

		if spec.MaxTicks != nil {
			maxTicks = spec.MaxTicks.String()
		}

		fmt.Fprintf(w, "%s: first tick %g, interval %s, max ticks %s\n",
			spec.Name, spec.FirstTick, interval, maxTicks)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  #\tNODE\tKIND\tIN\tOUT")

		for i, n := range c.BoundNodes() {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n",
				i+1, n.Name(), kinds[n.Name()], n.InputUnit(), n.OutputUnit())
		}

		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

func newHistoryCmd() *cobra.Command {
	var (
		node       string
		controller string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history RECORDING.sqlite3",
		Short: "Print the node values recorded by run --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := datarecording.NewReader(args[0])
			defer reader.Close()

			results, total, err := datarecording.QuerySweeps(
				context.Background(), reader, datarecording.SweepQuery{
					Controller: controller,
					Node:       node,
					Limit:      limit,
				})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TICK\tTIME\tCONTROLLER\tNODE\tVALUE\tUNIT")

			for _, e := range results {
				fmt.Fprintf(tw, "%d\t%g\t%s\t%s\t%g\t%s\n",
					e.Tick, e.Time, e.Controller, e.Node, e.Value, e.Unit)
			}

			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d rows\n", len(results), total)

			return nil
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Only show this node.")
	cmd.Flags().StringVar(&controller, "controller", "",
		"Only show the nodes of this controller.")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows.")

	return cmd
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the node kinds a network file can use.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, k := range netconfig.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}
