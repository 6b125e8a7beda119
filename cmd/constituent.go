package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// constituentCmd shows what is stored for one constituent.
var constituentCmd = &cobra.Command{
	Use:   "constituent [client_id] [external_id]",
	Short: "View a stored constituent, its action record and accreditations",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		clientID, externalID := args[0], args[1]
		a.logger.Info("Looking up constituent", zap.String("client_id", clientID), zap.String("external_id", externalID))

		detail, err := a.constituents.Service().Detail(cmd.Context(), clientID, externalID)
		if err != nil {
			return err
		}
		if detail == nil {
			return fmt.Errorf("constituent %s/%s not found", clientID, externalID)
		}

		c := detail.Constituent
		fmt.Println("\n--- Constituent Detail View ---")
		fmt.Printf("ID:             %s\n", c.ID)
		fmt.Printf("Client:         %s\n", c.ClientID)
		fmt.Printf("External ID:    %s\n", c.ExternalID)
		fmt.Printf("Active:         %v\n", c.Active)
		fmt.Printf("Fingerprint:    %s\n", c.Hash)
		if detail.ActionRecord != nil {
			fmt.Printf("Next Action:    %s\n", detail.ActionRecord.NextAction)
			fmt.Printf("Last Batch:     %s\n", detail.ActionRecord.BatchID)
		}
		fmt.Printf("Accreditations: %d\n", len(detail.Accreditations))
		fmt.Println("-------------------------------")
		printJSON(detail)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(constituentCmd)
}
