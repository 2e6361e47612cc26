package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var updcatCmd = &cobra.Command{
	Use:   "updcat <transaction-id> <category>",
	Short: "Recategorize a transaction and remember the choice for its description",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid transaction id %q", args[0])
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.CorrectCategory(cmd.Context(), id, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "row updated")
		return nil
	},
}

var budgetCmd = &cobra.Command{
	Use:   "budget <category> <amount>",
	Short: "Set a category's expected monthly spend",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		return a.engine.SetBudget(cmd.Context(), args[0], amount.Abs())
	},
}

var acctCmd = &cobra.Command{
	Use:   "acct",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		accounts, err := a.engine.ListAccounts(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-4s %-12s %-24s %8s\n", "Id", "Nickname", "Name", "Fid")
		fmt.Fprintln(out, "-----------------------------------------------------")
		for _, acct := range accounts {
			fmt.Fprintf(out, "%-4d %-12s %-24s %8d\n", acct.ID, acct.Nickname, acct.InstitutionName, acct.InstitutionExternalID)
		}
		return nil
	},
}

var acctRenameCmd = &cobra.Command{
	Use:     "rename <account-id> <nickname>",
	Aliases: []string{"update"},
	Short:   "Change an account's nickname",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account id %q", args[0])
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		return a.engine.RenameAccount(cmd.Context(), id, args[1])
	},
}

func init() {
	acctCmd.AddCommand(acctRenameCmd)
	rootCmd.AddCommand(updcatCmd, budgetCmd, acctCmd)
}
