package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/signalflow/bridge"
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/netconfig"
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/simulation"
)

// MQTTEntityName is the entity name under which sensors find the MQTT-fed
// entity.
const MQTTEntityName = "mqtt"

type runOptions struct {
	monitor bool
	port    int
	open    bool

	record bool
	output string

	logSweeps bool
	logEvents bool

	kafkaBrokers string
	kafkaTopic   string

	mqttBroker  string
	mqttEntity  string
	mqttPublish string
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run NETWORK.yaml",
		Short: "Run a network until every controller stops.",
		Long: `Run a network until every controller stops. The final value ` +
			`of every node is printed. Sweeps can be recorded into SQLite, ` +
			`served on a monitoring page, and published to Kafka or MQTT.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetwork(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.monitor, "monitor", false,
		"Serve the monitoring web page while running.")
	f.IntVar(&opts.port, "port", envInt(EnvMonitorPort, 0),
		"Port of the monitoring server. A random port is used if unset.")
	f.BoolVar(&opts.open, "open", false,
		"Open the monitoring page in a browser.")
	f.BoolVar(&opts.record, "record", false,
		"Record every sweep into an SQLite file.")
	f.StringVar(&opts.output, "output", "",
		"Name of the SQLite file, without extension. Implies --record.")
	f.BoolVar(&opts.logSweeps, "log", false,
		"Print every sweep and node update to stderr.")
	f.BoolVar(&opts.logEvents, "log-events", false,
		"Print every engine event to stderr.")
	f.StringVar(&opts.kafkaBrokers, "kafka-brokers",
		envString(EnvKafkaBrokers, ""),
		"Comma-separated Kafka brokers to publish sweeps to.")
	f.StringVar(&opts.kafkaTopic, "kafka-topic",
		envString(EnvKafkaTopic, "signalflow.sweeps"),
		"Kafka topic to publish sweeps to.")
	f.StringVar(&opts.mqttBroker, "mqtt-broker",
		envString(EnvMQTTBroker, ""),
		"MQTT broker, as in tcp://localhost:1883.")
	f.StringVar(&opts.mqttEntity, "mqtt-entity", "",
		"Topic prefix whose messages feed the \"mqtt\" entity.")
	f.StringVar(&opts.mqttPublish, "mqtt-publish", "",
		"Topic prefix to publish node values to.")

	return cmd
}

func (o runOptions) simulationBuilder(cmd *cobra.Command) simulation.Builder {
	b := simulation.MakeBuilder()

	if !o.monitor {
		b = b.WithoutMonitoring()
	} else if o.port > 0 {
		b = b.WithMonitorPort(o.port)
	}

	if !o.record && o.output == "" {
		b = b.WithoutRecording()
	} else if o.output != "" {
		b = b.WithOutputFileName(o.output)
	}

	if o.logSweeps {
		b = b.WithSweepLog(cmd.ErrOrStderr())
	}

	if o.logEvents {
		b = b.WithEventLog(cmd.ErrOrStderr())
	}

	return b
}

func runNetwork(cmd *cobra.Command, path string, opts runOptions) error {
	doc, err := netconfig.LoadFile(path)
	if err != nil {
		return err
	}

	s := opts.simulationBuilder(cmd).Build()
	defer s.Terminate()

	nb := netconfig.MakeBuilder().WithScheduler(s.GetEngine())

	if opts.mqttBroker != "" {
		client, err := bridge.DialMQTT(opts.mqttBroker, "sigflow-"+s.ID())
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		nb, err = opts.wireMQTT(client, s, nb)
		if err != nil {
			return err
		}
	}

	if brokers := splitList(opts.kafkaBrokers); len(brokers) > 0 {
		publisher, err := bridge.NewKafkaPublisher(brokers, opts.kafkaTopic)
		if err != nil {
			return err
		}
		defer publisher.Close()

		s.AddObserver(publisher)
	}

	network, err := nb.Build(doc)
	if err != nil {
		return err
	}

	s.RegisterNetwork(network)

	if opts.open && s.MonitorURL() != "" {
		if err := browser.OpenURL(s.MonitorURL()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Cannot open browser: %v\n", err)
		}
	}

	if err := s.Run(); err != nil {
		return err
	}

	return printSummary(cmd.OutOrStdout(), network, s.GetEngine().CurrentTime())
}

func (o runOptions) wireMQTT(
	client mqtt.Client,
	s *simulation.Simulation,
	nb netconfig.Builder,
) (netconfig.Builder, error) {
	if o.mqttEntity != "" {
		entity, err := bridge.NewMQTTEntity(client, o.mqttEntity)
		if err != nil {
			return nb, err
		}

		nb = nb.WithEntity(MQTTEntityName, entity)
	}

	if o.mqttPublish != "" {
		s.AddObserver(bridge.NewMQTTPublisher(client, o.mqttPublish))
	}

	return nb, nil
}

func printSummary(w io.Writer, network *calc.Network, now sim.VTimeInSec) error {
	fmt.Fprintf(w, "Finished at t=%.10f\n", now)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tCONTROLLER\tVALUE\tUNIT")

	for _, n := range network.Nodes() {
		controller := "-"
		if c := n.Controller(); c != nil {
			controller = c.Name()
		}

		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n",
			n.Name(), controller, n.LastValue(), n.OutputUnit())
	}

	return tw.Flush()
}
