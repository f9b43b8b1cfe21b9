package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/example/shop-service/internal/adapter/auth"
	"github.com/example/shop-service/internal/adapter/repo"
	"github.com/example/shop-service/internal/app"
	"github.com/example/shop-service/internal/config"
	"github.com/example/shop-service/internal/domain"
	"github.com/example/shop-service/internal/logging"
	"github.com/example/shop-service/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New("warn")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			pool, err := repo.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := repo.EnsureSchema(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create a user that can obtain tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, closeStore, err := app.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			u := domain.User{Username: username, Email: email}
			if err := (usecase.SetPassword{Hasher: auth.NewBcryptHasher()}).Execute(&u, password); err != nil {
				return err
			}
			if err := u.Validate(); err != nil {
				return err
			}
			if err := store.Repos.Users.Create(cmd.Context(), &u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", u.ID, u.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "login name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address for order confirmations")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// jobKinds maps the short names accepted on the command line to job names.
var jobKinds = map[string]string{
	"email":   domain.JobSendOrderConfirmation,
	"payment": domain.JobProcessPayment,
}

func enqueueCmd() *cobra.Command {
	var orderID, paymentID int64
	cmd := &cobra.Command{
		Use:       "enqueue (email|payment)",
		Short:     "Enqueue an order job on the configured broker",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"email", "payment"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ok := jobKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown job kind %q (want email or payment)", args[0])
			}
			if orderID <= 0 {
				return fmt.Errorf("--order is required")
			}
			return withBroker(cmd.Context(), func(q domain.JobQueue) error {
				h, err := q.Enqueue(cmd.Context(), name, domain.OrderJob{OrderID: orderID, PaymentID: paymentID})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s %s\n", h.Name, h.ID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&orderID, "order", 0, "order id")
	cmd.Flags().Int64Var(&paymentID, "payment", 0, "payment id (process_payment only)")
	return cmd
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: `Read {"name": ..., "payload": {...}} from stdin and enqueue it`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, payload, err := readJob(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withBroker(cmd.Context(), func(q domain.JobQueue) error {
				h, err := q.Enqueue(cmd.Context(), name, payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published %s %s (%d bytes)\n", h.Name, h.ID, len(payload))
				return nil
			})
		},
	}
}

func readJob(r io.Reader) (string, json.RawMessage, error) {
	var in struct {
		Name    string          `json:"name"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return "", nil, fmt.Errorf("read json from stdin: %w", err)
	}
	if in.Name == "" {
		return "", nil, fmt.Errorf("job name is required")
	}
	if len(in.Payload) == 0 {
		in.Payload = json.RawMessage(`{}`)
	}
	return in.Name, in.Payload, nil
}

// withBroker opens the configured broker queue. The memory backend only
// exists inside a running server, so it is refused here.
func withBroker(ctx context.Context, fn func(q domain.JobQueue) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if cfg.JobBackend == "memory" {
		return fmt.Errorf("JOB_BACKEND=memory has no broker; set it to stan or amqp")
	}
	q, closeQueue, err := app.OpenQueue(cfg, usecase.RunJob{Logger: logger}, logger)
	if err != nil {
		return err
	}
	defer closeQueue()
	return fn(q)
}
