package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/golang/glog"

	"mousebot/config"
	"mousebot/host/link"
	"mousebot/host/serial"
	"mousebot/host/telemetry"
)

var (
	configPath = flag.String("config", "", "Robot description (YAML)")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config, ignored for USB CDC)")
	mqttURL    = flag.String("mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883 (overrides config)")
	timeout    = flag.Duration("timeout", time.Second, "Timeout for each command")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			glog.Exitf("%v", err)
		}
	}
	if *device != "" {
		cfg.Host.Device = *device
	}
	if *baud != 0 {
		cfg.Host.Baud = *baud
	}
	if *mqttURL != "" {
		cfg.Host.MQTTBroker = *mqttURL
	}

	port, err := serial.Open(&serial.Config{
		Device:      cfg.Host.Device,
		Baud:        cfg.Host.Baud,
		ReadTimeout: cfg.Host.ReadTimeout,
	})
	if err != nil {
		glog.Exitf("%v", err)
	}
	defer port.Close()
	if err := port.Flush(); err != nil {
		glog.Warningf("flush %s: %v", cfg.Host.Device, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := link.NewClient(port)
	initCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err = client.Init(initCtx)
	cancel()
	if err != nil {
		glog.Exitf("robot on %s is not answering: %v", cfg.Host.Device, err)
	}
	if v, err := client.Version(ctx); err == nil {
		glog.Infof("connected to %s on %s, firmware %s", cfg.Name, cfg.Host.Device, v)
	}

	var broker telemetry.Broker
	if cfg.Host.MQTTBroker != "" {
		mb, err := telemetry.DialMQTT(cfg.Host.MQTTBroker, cfg.Host.MQTTClientID)
		if err != nil {
			glog.Exitf("%v", err)
		}
		defer mb.Close()
		broker = mb
	}

	bridge := telemetry.NewBridge(client, broker, cfg.Host.TopicPrefix)
	bridge.Interval = cfg.Host.PollInterval
	bridge.Timeout = *timeout
	if broker != nil {
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				glog.Errorf("telemetry: %v", err)
			}
		}()
	}

	repl(ctx, client, bridge, os.Stdin, os.Stdout)
}

func repl(ctx context.Context, client *link.Client, bridge *telemetry.Bridge, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "Enter robot commands ('help' for host commands, 'quit' to exit):")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cctx, cancel := context.WithTimeout(ctx, *timeout)
		switch line {
		case "quit", "exit":
			cancel()
			client.Stop(ctx)
			return
		case "help":
			printHelp(out)
		case "state":
			s, err := bridge.Sample(cctx)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				break
			}
			b, _ := json.MarshalIndent(s, "", "  ")
			fmt.Fprintln(out, string(b))
		default:
			lines, err := client.Command(cctx, line)
			for _, l := range lines {
				fmt.Fprintln(out, l)
			}
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
		cancel()
	}
	if err := scanner.Err(); err != nil {
		glog.Errorf("reading input: %v", err)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nHost commands:")
	fmt.Fprintln(out, "  help        - Show this help message")
	fmt.Fprintln(out, "  state       - Read and print the robot state")
	fmt.Fprintln(out, "  quit/exit   - Stop the robot and exit")
	fmt.Fprintln(out, "Anything else is sent to the robot, e.g. 'T200,0', 'ea', 'b', '$$', 'x'.")
	fmt.Fprintln(out)
}
