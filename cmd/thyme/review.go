package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yurifrl/thyme/pkg/csv"
	"github.com/yurifrl/thyme/pkg/engine"
	"github.com/yurifrl/thyme/pkg/period"
)

var (
	underStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	overStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red

	title = cases.Title(language.English)
)

var listCmd = &cobra.Command{
	Use:   "list [filter] [month]",
	Short: "List transactions; 'list 10' is October, 'list coffee 10' filters it",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, month, err := listArgs(args)
		if err != nil {
			return err
		}
		start, end, err := period.MonthRange(time.Now(), month)
		if err != nil {
			return err
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		onlyNew, _ := cmd.Flags().GetBool("new")
		views, err := a.engine.ListTransactions(cmd.Context(), engine.ListOptions{
			Start:   start,
			End:     end,
			Filter:  filter,
			OnlyNew: onlyNew,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asCSV, _ := cmd.Flags().GetBool("csv"); asCSV {
			data, err := csv.Create(views)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}

		total := decimal.Zero
		for _, v := range views {
			total = total.Add(v.Amount)
			fmt.Fprintf(out, "%-5d %-8s %-10s %-30s %-20s %10s\n",
				v.ID, v.AccountNickname, v.Date.Format(time.DateOnly),
				shorten(v.Description, 29), title.String(v.CategoryName), v.Amount.StringFixed(2))
		}
		fmt.Fprintf(out, "%77s %10s\n", "Total", total.StringFixed(2))
		return nil
	},
}

// listArgs accepts [month], [filter] or [filter month].
func listArgs(args []string) (string, int, error) {
	switch len(args) {
	case 0:
		return "", 0, nil
	case 1:
		if month, ok := period.ParseMonth(args[0]); ok {
			return "", month, nil
		}
		return strings.ToLower(strings.TrimSpace(args[0])), 0, nil
	default:
		month, ok := period.ParseMonth(args[1])
		if !ok {
			return "", 0, fmt.Errorf("invalid month %q", args[1])
		}
		return strings.ToLower(strings.TrimSpace(args[0])), month, nil
	}
}

// shorten collapses runs of whitespace, title-cases and truncates.
func shorten(description string, n int) string {
	s := title.String(strings.Join(strings.Fields(description), " "))
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

var bycatCmd = &cobra.Command{
	Use:   "bycat [month]",
	Short: "Spend per category against its budget; 'bycat 10' is October",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		month := 0
		if len(args) == 1 {
			m, ok := period.ParseMonth(args[0])
			if !ok {
				return fmt.Errorf("invalid month %q", args[0])
			}
			month = m
		}
		start, end, err := period.MonthRange(time.Now(), month)
		if err != nil {
			return err
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.engine.BudgetReport(cmd.Context(), start, end)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, line := range report.Lines {
			if line.Excluded {
				continue
			}
			style := overStyle
			if line.Headroom.IsPositive() {
				style = underStyle
			}
			fmt.Fprintf(out, "%-30s %10s %8s %s\n",
				title.String(line.Category), line.Actual.StringFixed(2), line.Budget.StringFixed(0),
				style.Render(fmt.Sprintf("%10s", line.Headroom.StringFixed(2))))
		}
		fmt.Fprintf(out, "%-30s %10s %8s\n", "", report.TotalActual.StringFixed(2), report.TotalBudget.StringFixed(0))
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat",
	Short: "List categories and their monthly budgets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		categories, err := a.engine.ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range categories {
			fmt.Fprintf(out, "%-4d %-24s %8s\n", c.ID, c.Name, c.MonthlyBudget.StringFixed(2))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("new", false, "Only transactions added by the most recent import")
	listCmd.Flags().Bool("csv", false, "Print as CSV")

	rootCmd.AddCommand(listCmd, bycatCmd, catCmd)
}
