package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mealtrack/internal/amqp"
	"mealtrack/internal/cli"
	"mealtrack/internal/log"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail record.created events from the message broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		if !cfg.EventsEnabled() {
			return errors.New("events are disabled: set AMQP_URL")
		}
		logger, err := cli.SetupLogger(cfg)
		if err != nil {
			return err
		}
		logger = logger.WithComponent(log.ComponentAMQP)

		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer client.Close()

		out := cmd.OutOrStdout()
		logger.Info("Waiting for record events", log.FieldQueue, cfg.AMQPQueue)
		err = client.ConsumeRecordCreated(ctx, func(msg *amqp.RecordCreatedMessage) error {
			label := fmt.Sprintf("%d cal", msg.Calories)
			if msg.Invalid {
				label = "Invalid"
			}
			_, werr := fmt.Fprintf(out, "#%d %s %s %s\n", msg.ID, msg.Date, msg.Meal, label)
			return werr
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
