package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/docvault/docvault/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
	asJSON    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dvctl",
	Short: "DocVault integrity CLI",
	Long: `dvctl is the command-line interface for the DocVault integrity service.

It queries Merkle roots, verifies documents against the audit ledger, and
inspects the anchored action trail.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.dvctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.dvctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "DocVault server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON instead of tables")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(merkleRootCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(rootsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithTimeout(15*time.Second))
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── status ───────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show integrity subsystem status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		st, err := newClient().Status(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(st)
		}

		mode := "real ledger"
		if st.SimulationMode {
			mode = "SIMULATION"
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "mode\t%s\n", mode)
		fmt.Fprintf(w, "connected\t%v\n", st.Connected)
		fmt.Fprintf(w, "documents\t%d\n", st.Documents)
		fmt.Fprintf(w, "merkle root\t%s\n", st.MerkleRoot)
		fmt.Fprintf(w, "queued\t%d\n", st.Queued)
		fmt.Fprintf(w, "processed\t%d\n", st.Processed)
		fmt.Fprintf(w, "dropped\t%d\n", st.Dropped)
		return w.Flush()
	},
}

// ── root ─────────────────────────────────────────────────────────────────────

var merkleRootCmd = &cobra.Command{
	Use:   "root",
	Short: "Print the current Merkle root",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		root, err := newClient().CurrentRoot(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(root)
		}
		if root.Empty {
			fmt.Println("(empty tree)")
			return nil
		}
		fmt.Printf("%s  (%d documents)\n", root.MerkleRoot, root.Documents)
		return nil
	},
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify <document-id>",
	Short: "Verify a document against the audit ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		rep, err := newClient().VerifyDocument(ctx, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(rep)
		}

		verdict := "FAILED"
		if rep.Verified {
			verdict = "verified"
		}
		fmt.Printf("%s: %s (stage=%s", rep.DocumentID, verdict, rep.Stage)
		if rep.Tier != "" {
			fmt.Printf(", tier=%s", rep.Tier)
		}
		fmt.Println(")")
		if rep.Tier == "timestamp" {
			fmt.Println("warning: timestamp-only match is weak evidence of integrity")
		}
		if rep.Simulated {
			fmt.Println("note: ledger is running in simulation mode")
		}
		if !rep.Verified {
			os.Exit(1)
		}
		return nil
	},
}

// ── roots ────────────────────────────────────────────────────────────────────

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "List anchored Merkle roots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		roots, err := newClient().HistoricalRoots(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(roots)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "POSITION\tTIMESTAMP\tROOT\tSIM")
		for _, r := range roots {
			fmt.Fprintf(w, "%d\t%s\t%s\t%v\n",
				r.Position, r.Timestamp.Format(time.RFC3339), r.Root, r.Simulated)
		}
		return w.Flush()
	},
}

// ── history ──────────────────────────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history <document-id>",
	Short: "Show the anchored action trail for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		records, err := newClient().DocumentHistory(ctx, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(records)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "POSITION\tACTION\tTIMESTAMP\tPAYLOAD HASH\tFLAGS")
		for _, r := range records {
			flags := ""
			if r.Simulated {
				flags = "sim"
			}
			if r.Err != "" {
				flags += " fallback"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				r.Position, r.Action, r.Timestamp.Format(time.RFC3339), short(r.PayloadHash), flags)
		}
		return w.Flush()
	},
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dvctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dvctl %s\n", version)
	},
}
