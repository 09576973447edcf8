package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	logPath string

	closeLog func()
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Execute runs the trocas command line.
func Execute() error {
	root := &cobra.Command{
		Use:          "trocas",
		Short:        "Clothing swap marketplace",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			closeLog, err = setupLogger(logPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeLog != nil {
				closeLog()
			}
		},
	}

	root.PersistentFlags().StringVarP(&dbPath, "db", "d", envOr("TROCAS_DB", "trocas.sqlite3"), "SQLite database path (env TROCAS_DB)")
	root.PersistentFlags().StringVarP(&logPath, "log", "l", envOr("TROCAS_LOG", ""), "also write logs to this file (env TROCAS_LOG)")

	root.AddCommand(serveCmd(), initCmd(), conflictsCmd())
	return root.Execute()
}
