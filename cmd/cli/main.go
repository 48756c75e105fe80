package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/gopayouts/internal/adapter/http/dto"
	postgresRepo "github.com/iho/gopayouts/internal/adapter/repository/postgres"
	"github.com/iho/gopayouts/internal/domain"
	"github.com/iho/gopayouts/internal/infrastructure/config"
	"github.com/iho/gopayouts/internal/infrastructure/postgres"
)

type options struct {
	baseURL string
	timeout time.Duration
	asJSON  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "payouts",
		Short:         "GoPayouts CLI tool",
		Long:          `A command line interface for running payout batches against the GoPayouts API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the GoPayouts API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Minute, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print the raw JSON response")

	rootCmd.AddCommand(runCmd(opts), reportCmd(opts), accountsCmd(), migrateCmd())

	return rootCmd
}

func runCmd(opts *options) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a payout batch for a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := domain.ParseWindow(start, end); err != nil {
				return err
			}

			q := url.Values{"start": {start}, "end": {end}}
			var batch dto.BatchResponse
			if err := getJSON(cmd.Context(), opts, "/api/v1/payouts?"+q.Encode(), &batch); err != nil {
				return err
			}

			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), batch)
			}
			printBatch(cmd.OutOrStdout(), &batch)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Window start (RFC3339 or YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&end, "end", "", "Window end (RFC3339 or YYYY-MM-DD, exclusive)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func reportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "report <key>",
		Short: "Show a stored settlement report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.ReportResponse
			if err := getJSON(cmd.Context(), opts, "/api/v1/reports/"+url.PathEscape(args[0]), &report); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func accountsCmd() *cobra.Command {
	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "Manage payout accounts",
	}

	var account domain.Account
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a vendor account",
		RunE: func(cmd *cobra.Command, args []string) error {
			directory, closeDB, err := openDirectory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			account.ID = postgresRepo.NewULIDGenerator().Generate()
			account.Active = true
			if err := directory.Create(cmd.Context(), &account); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), account.ID)
			return nil
		},
	}

	add.Flags().StringVar(&account.ExternalID, "external-id", "", "Vendor account id")
	add.Flags().StringVar(&account.ClientID, "client-id", "", "Client id used to order settlements")
	add.Flags().StringVar(&account.Name, "name", "", "Display name")
	add.Flags().StringVar(&account.Currency, "currency", "USD", "Default currency")
	_ = add.MarkFlagRequired("external-id")
	_ = add.MarkFlagRequired("client-id")

	accounts.AddCommand(add, setActiveCmd("enable", true), setActiveCmd("disable", false))
	return accounts
}

func setActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: "Include or exclude an account from payout runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory, closeDB, err := openDirectory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			return directory.SetActive(cmd.Context(), args[0], active)
		},
	}
}

func openDirectory(ctx context.Context) (*postgresRepo.AccountDirectory, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:     cfg.DatabaseURL,
		MaxConns:        1,
		ConnectTimeout:  cfg.DatabaseTimeout,
		ApplicationName: "payouts-cli",
	})
	if err != nil {
		return nil, nil, err
	}

	return postgresRepo.NewAccountDirectory(pool, postgresRepo.NewRetrier(zerolog.Nop())), pool.Close, nil
}

func migrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	migrator := func() (*postgres.Migrator, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, zerolog.New(os.Stderr)), nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			return m.Up()
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			return m.Down()
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", v, dirty)
			return nil
		},
	}

	migrate.AddCommand(up, down, version)
	return migrate
}

func getJSON(ctx context.Context, opts *options, path string, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.baseURL+path, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: opts.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("request failed (status %d): %s: %s", resp.StatusCode, apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func printBatch(w io.Writer, b *dto.BatchResponse) {
	fmt.Fprintf(w, "Batch %s (%s)\n", b.ID, b.Key)
	fmt.Fprintf(w, "Window: %s - %s\n", b.Window.Start.Format(time.RFC3339), b.Window.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Settlements: %d (errored: %d, sorted: %v)\n", len(b.Settlements), b.ErroredCount, b.Sorted)

	for _, s := range b.Settlements {
		status := "ok"
		if len(s.Errors) > 0 {
			status = truncate(s.Errors[0].Message, 40)
		}
		fmt.Fprintf(w, "  %-12s %-24s %12s %-4s %s\n", truncate(s.ClientID, 12), s.SettlementID, s.Amount.StringFixed(2), s.Currency, status)
	}

	for _, f := range b.FailedAccounts {
		fmt.Fprintf(w, "Failed account %s (client %s): %s\n", f.AccountID, f.ClientID, f.Message)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
