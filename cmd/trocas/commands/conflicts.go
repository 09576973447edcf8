package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trocaroupa/trocas/internal/db"
	"github.com/trocaroupa/trocas/internal/troca"
)

func conflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List trocas frozen for manual review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbMissing(dbPath) {
				return fmt.Errorf("database %s does not exist", dbPath)
			}
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer database.Close()

			conflicts, err := troca.NewQuery(database).ListConflicts(cmd.Context())
			if err != nil {
				return err
			}
			if len(conflicts) == 0 {
				fmt.Println("No conflicts.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROPOSER\tRECEIVER\tOFFERED\tDESIRED\tUPDATED\tREASON")
			for _, t := range conflicts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d %s\t%d %s\t%s\t%s\n",
					t.ID, t.ProposerName, t.ReceiverName,
					t.OfferedItemID, t.OfferedItemName, t.DesiredItemID, t.DesiredItemName,
					t.UpdatedAt.Local().Format("2006-01-02 15:04"), t.ConflictReason)
			}
			return w.Flush()
		},
	}
}
