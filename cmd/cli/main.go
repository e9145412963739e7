package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bankledger-cli",
		Short: "bankledger operator CLI",
		Long:  `A command line interface for operating the bankledger service.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the bankledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	outboxCmd := &cobra.Command{
		Use:   "outbox",
		Short: "Outbox operations",
	}

	outboxCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show outbox record counts by status",
		Run: func(cmd *cobra.Command, args []string) {
			outboxStatus()
		},
	})

	snapshotCmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Balance snapshot operations",
	}

	var cutoff string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger a snapshot run (optionally at --cutoff)",
		Run: func(cmd *cobra.Command, args []string) {
			triggerSnapshots(cutoff)
		},
	}
	runCmd.Flags().StringVar(&cutoff, "cutoff", "", "Snapshot cutoff (RFC 3339); defaults to now")
	snapshotCmd.AddCommand(runCmd)

	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	ledgerCmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency()
		},
	})

	rootCmd.AddCommand(outboxCmd, snapshotCmd, ledgerCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func get(path string) (int, map[string]any) {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	return decode(resp)
}

func post(path string) (int, map[string]any) {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Post(baseURL+path, "application/json", strings.NewReader(""))
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	return decode(resp)
}

func decode(resp *http.Response) (int, map[string]any) {
	body, _ := io.ReadAll(resp.Body)

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n%s\n", err, string(body))
		os.Exit(1)
	}

	return resp.StatusCode, result
}

func outboxStatus() {
	status, result := get("/api/v1/outbox/status")
	if status != http.StatusOK {
		fmt.Printf("Request failed (status: %d): %v\n", status, result)
		os.Exit(1)
	}

	fmt.Printf("Pending:   %v\n", result["pending"])
	fmt.Printf("Processed: %v\n", result["processed"])
	fmt.Printf("Failed:    %v\n", result["failed"])

	if failed, ok := result["failed"].(float64); ok && failed > 0 {
		fmt.Println("WARNING: failed records require manual intervention")
		os.Exit(1)
	}
}

func triggerSnapshots(cutoff string) {
	path := "/api/v1/snapshots"
	if cutoff != "" {
		path += "?cutoff=" + url.QueryEscape(cutoff)
	}

	status, result := post(path)
	if status != http.StatusOK {
		fmt.Printf("Snapshot run failed (status: %d): %v\n", status, result)
		os.Exit(1)
	}

	fmt.Printf("Cutoff:  %v\n", result["cutoff"])
	fmt.Printf("Created: %v\n", result["created"])
	fmt.Printf("Skipped: %v\n", result["skipped"])
	fmt.Printf("Failed:  %v\n", result["failed"])
}

func checkConsistency() {
	status, result := get("/api/v1/ledger/consistency")
	if status != http.StatusOK {
		fmt.Printf("Consistency check FAILED (status: %d): %v\n", status, result)
		os.Exit(1)
	}

	fmt.Println("Consistency check PASSED")
	fmt.Printf("Consistent: %v\n", result["consistent"])
}
