package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frameloft/deskhost"
)

func createRunCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start both services and supervise them until termination",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deskhost.LoadConfig(flags.ConfigPath)
			if err != nil {
				return err
			}
			h, err := deskhost.New(cfg)
			if err != nil {
				return err
			}

			// An unrecovered fault must still run the teardown
			// sequence before the process dies with status 1.
			defer func() {
				if r := recover(); r != nil {
					h.Fault(r)
					os.Exit(1)
				}
			}()

			if err := h.Run(cmd.Context()); err != nil {
				return fmt.Errorf("degraded start: %w", err)
			}
			return nil
		},
	}
}

// StatusFlags holds flags for the status command.
type StatusFlags struct {
	APIUrl  string
	Timeout time.Duration
}

func createStatusCommand(flags *GlobalFlags) *cobra.Command {
	sf := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running host's control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := sf.APIUrl
			if url == "" {
				cfg, err := deskhost.LoadConfig(flags.ConfigPath)
				if err != nil {
					return err
				}
				url = "http://" + cfg.Server.Listen
			}
			client := &http.Client{Timeout: sf.Timeout}
			resp, err := client.Get(url + "/status")
			if err != nil {
				return fmt.Errorf("host not reachable: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			var pretty json.RawMessage = body
			out, err := json.MarshalIndent(pretty, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&sf.APIUrl, "api-url", "", "control API base URL (default from config)")
	cmd.Flags().DurationVar(&sf.Timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}
