package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joomcode/errorx"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"charge_point_tester/common"
	"charge_point_tester/config"
	"charge_point_tester/fixture"
	"charge_point_tester/flow"
	"charge_point_tester/notifier"
	natsnotifier "charge_point_tester/notifier/nats"
	"charge_point_tester/transport"
)

const (
	defaultEnvFile = ".env"
	flagEnvFile    = "env-file"
	flagLogLevel   = "log-level"
	flagStrict     = "strict"
)

var log *logrus.Logger

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cp-tester",
		Usage: "replay OCPP 1.6 charge point messages against a central system",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagEnvFile,
				Usage: "dotenv file with WEBSOCKET_URL and SEC_WEB_SOCKET_PROTOCOL",
				Value: defaultEnvFile,
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "override LOG_LEVEL",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "flow",
				Usage:     "replay a full charging session, skipping requests that cannot be sent",
				ArgsUsage: "<request_file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagStrict,
						Usage: "exit with an error when any step fails or is skipped",
					},
				},
				Action: runFlow,
			},
			singleMessageCommand("boot", common.BootNotification),
			singleMessageCommand("authorize", common.Authorize),
			singleMessageCommand("start", common.StartTransaction),
			singleMessageCommand("heartbeat", common.HeartBeat),
		},
	}
}

func singleMessageCommand(name string, action common.ActionKind) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     fmt.Sprintf("send a single %v request and validate the response", action),
		ArgsUsage: "<request_file>",
		Action: func(c *cli.Context) error {
			return runSingle(c, action)
		},
	}
}

func runFlow(c *cli.Context) error {
	cfg, records, err := prepare(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	report, err := replay(c.Context, cfg, records, flow.WithPolicy(flow.PolicySkip))
	if err != nil {
		return cli.Exit(err, 1)
	}
	if c.Bool(flagStrict) && !report.Clean() {
		return cli.Exit(fmt.Sprintf("%d of %d steps did not pass", len(report.Steps)-report.Count(flow.OutcomePassed), len(report.Steps)), 1)
	}
	return nil
}

// runSingle mirrors the standalone drivers: one request, and an invalid request
// closes the connection and fails the process.
func runSingle(c *cli.Context, action common.ActionKind) error {
	cfg, records, err := prepare(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if len(records) != 1 || records[0].Action != action {
		return cli.Exit(common.FixtureError.New("expected a single %v record", action), 1)
	}

	opts := []flow.Option{flow.WithPolicy(flow.PolicyAbort)}
	if action == common.StartTransaction {
		// No Authorize precedes a standalone StartTransaction; the driver vouches for its own idTag.
		if idTag, ok := records[0].Payload["idTag"].(string); ok {
			opts = append(opts, flow.WithState(common.FlowState{SavedIdTag: &idTag}))
		}
	}

	report, err := replay(c.Context, cfg, records, opts...)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if !report.Clean() {
		return cli.Exit(fmt.Sprintf("%v response validation failed: %s", action, report.Steps[0].Reason()), 1)
	}
	return nil
}

func prepare(c *cli.Context) (*config.Config, []*common.RequestRecord, error) {
	if c.NArg() < 1 {
		return nil, nil, fmt.Errorf("usage: %s %s <request_file>", c.App.Name, c.Command.Name)
	}

	cfg, err := config.Load(c.String(flagEnvFile))
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if c.IsSet(flagLogLevel) {
		level = c.String(flagLogLevel)
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, common.ConfigError.Wrap(err, "invalid log level")
	}
	log.SetLevel(lvl)

	records, err := fixture.Load(c.Args().First())
	if err != nil {
		return nil, nil, err
	}
	log.Infof("request messages loaded: %d", len(records))
	return cfg, records, nil
}

func replay(ctx context.Context, cfg *config.Config, records []*common.RequestRecord, opts ...flow.Option) (*flow.Report, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var n notifier.Notifier = notifier.Discard{}
	if cfg.NatsURL != "" {
		natsNotifier := natsnotifier.New(cfg.NatsSubject)
		if err := natsNotifier.Start(cfg.NatsURL); err != nil {
			return nil, errorx.Decorate(err, "cannot connect to NATS at %s", cfg.NatsURL)
		}
		defer natsNotifier.Stop()
		n = natsNotifier
	}

	entry := log.WithField("url", cfg.WebSocketURL)
	opts = append(opts,
		flow.WithSettleDelay(cfg.SettleDelay),
		flow.WithResponseTimeout(cfg.ResponseTimeout),
		flow.WithNotifier(n),
		flow.WithLogger(entry),
	)
	o := flow.New(transport.NewWebSocketClient(entry), records, opts...)

	report, err := o.Run(ctx, cfg.WebSocketURL, cfg.Protocol)
	if report != nil {
		entry.WithFields(logrus.Fields{
			"state":   report.State,
			"sent":    report.Sent,
			"passed":  report.Count(flow.OutcomePassed),
			"failed":  report.Count(flow.OutcomeFailed),
			"skipped": report.Count(flow.OutcomeSkipped),
		}).Info("run finished")
	}
	return report, err
}

func init() {
	log = logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
}
