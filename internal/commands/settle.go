package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/budgetwise/internal/money"
	"github.com/mmynk/budgetwise/internal/settle"
)

func newSettleCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "settle [members.json]",
		Short: "Compute the payments that even out a group",
		Long: `Reads a JSON array of members, each with a name and the total they
contributed, and prints who owes whom. Reads standard input when no file is
given or the file is "-".

  echo '[{"name":"Alice","total":100},{"name":"Bob","total":0}]' | budgetwise settle
  Bob owes Alice 50.00`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening members: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runSettle(in, cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print settlements as JSON")

	return cmd
}

func runSettle(in io.Reader, out io.Writer, asJSON bool) error {
	var members []settle.Member
	if err := json.NewDecoder(in).Decode(&members); err != nil {
		return fmt.Errorf("decoding members: %w", err)
	}

	settlements, err := settle.SettleBalances(members)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(settlements)
	}

	if len(settlements) == 0 {
		_, err := fmt.Fprintln(out, "Everyone is settled up.")
		return err
	}
	for _, s := range settlements {
		amount, err := money.FromFloat(s.Amount)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s owes %s %s\n", s.From, s.To, amount); err != nil {
			return err
		}
	}
	return nil
}
