package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

// configView is the part of a job's configuration shown by status
type configView struct {
	Problem  string    `json:"problem"`
	Strategy string    `json:"strategy"`
	MaxIters int       `json:"maxIters"`
	StepSize float64   `json:"stepSize"`
	Seed     *int64    `json:"seed"`
	Maximize bool      `json:"maximize"`
	X0       []float64 `json:"x0"`
}

// jobSummary is the subset of a job listing shown by status
type jobSummary struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	Cost        float64    `json:"cost"`
	InitialCost float64    `json:"initialCost"`
	Iterations  int        `json:"iterations"`
	Config      configView `json:"config"`
}

func listJobs(w io.Writer, url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []jobSummary
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	fmt.Fprintf(w, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(w, "Job ID: %s\n", job.ID)
		fmt.Fprintf(w, "  State: %s\n", job.State)
		fmt.Fprintf(w, "  Problem: %s\n", job.Config.Problem)
		fmt.Fprintf(w, "  Strategy: %s\n", job.Config.Strategy)
		if job.Iterations > 0 {
			fmt.Fprintf(w, "  Progress: %d/%d iterations\n", job.Iterations, job.Config.MaxIters)
			fmt.Fprintf(w, "  Cost: %.6g -> %.6g\n", job.InitialCost, job.Cost)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// jobStatus mirrors the server's status response
type jobStatus struct {
	jobSummary
	Point       []float64 `json:"point"`
	Converged   bool      `json:"converged"`
	Elapsed     float64   `json:"elapsed"`
	ItersPerSec float64   `json:"itersPerSec"`
	Error       string    `json:"error"`
}

func getJobStatus(w io.Writer, url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Fprintf(w, "Job: %s\n", status.ID)
	fmt.Fprintf(w, "State: %s\n", status.State)
	fmt.Fprintln(w)

	config := status.Config
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Problem: %s\n", config.Problem)
	fmt.Fprintf(w, "  Strategy: %s\n", config.Strategy)
	fmt.Fprintf(w, "  Iterations: %d\n", config.MaxIters)
	fmt.Fprintf(w, "  Step Size: %g\n", config.StepSize)
	if config.Seed != nil {
		fmt.Fprintf(w, "  Seed: %d\n", *config.Seed)
	}
	if config.Maximize {
		fmt.Fprintln(w, "  Direction: maximize")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Progress:")
	fmt.Fprintf(w, "  Iterations: %d\n", status.Iterations)
	if status.Iterations > 0 {
		fmt.Fprintf(w, "  Initial Cost: %.6g\n", status.InitialCost)
		fmt.Fprintf(w, "  Cost: %.6g\n", status.Cost)
		fmt.Fprintf(w, "  Point: %s\n", formatPoint(status.Point))
	}
	if status.Converged {
		fmt.Fprintln(w, "  Converged: yes")
	}

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(w, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if status.ItersPerSec > 0 {
		fmt.Fprintf(w, "  Throughput: %.0f iterations/sec\n", status.ItersPerSec)
	}

	if status.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", status.Error)
	}

	return nil
}
