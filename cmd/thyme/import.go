package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/thyme/pkg/engine"
	"github.com/yurifrl/thyme/pkg/parser"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import one statement file (csv, txt, xls, qfx, ofx)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := prepare(cmd)
		if err != nil {
			return err
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		profile, _ := cmd.Flags().GetString("profile")
		account, _ := cmd.Flags().GetString("account")

		if dump, _ := cmd.Flags().GetBool("dump"); dump {
			return dumpDrafts(cmd.OutOrStdout(), a, path, data, profile)
		}

		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		defer a.close()

		summary, err := a.engine.ImportStatement(cmd.Context(), engine.Source{
			Name:     filepath.Base(path),
			Data:     data,
			Profile:  profile,
			Nickname: account,
		})
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

// dumpDrafts prints what the parser makes of a file without storing it.
func dumpDrafts(w io.Writer, a *app, path string, data []byte, profileName string) error {
	p := parser.New(a.logger)
	if parser.IsTagDocument(path) {
		st, err := p.ParseTagDocument(data)
		if err != nil {
			return err
		}
		_, err = pp.Fprintln(w, st)
		return err
	}

	profile, err := a.seed.Profile(profileName)
	if err != nil {
		return err
	}

	var batch *parser.Batch
	switch parser.DetectType(path) {
	case parser.Delimited:
		batch, err = p.ParseDelimited(data, profile)
	case parser.Spreadsheet:
		batch, err = p.ParseXLS(data, profile)
	default:
		return fmt.Errorf("%w: %s", engine.ErrUnsupportedFile, path)
	}
	if err != nil {
		return err
	}
	_, err = pp.Fprintln(w, batch)
	return err
}

func printSummary(w io.Writer, s *engine.Summary) {
	if s.Err != nil {
		fmt.Fprintf(w, "%-24s failed: %v\n", s.File, s.Err)
		return
	}
	fmt.Fprintf(w, "%-24s %-12s rows %4d  inserted %4d  duplicates %4d  skipped %4d",
		s.File, s.Account, s.Rows, s.Inserted, s.Duplicates, s.ParseFailures)
	if s.Inserted > 0 {
		fmt.Fprintf(w, "  %s..%s", s.Earliest.Format(time.DateOnly), s.Latest.Format(time.DateOnly))
	}
	fmt.Fprintln(w)
}

func init() {
	importCmd.Flags().StringP("profile", "p", "bofa", "Column profile for delimited and spreadsheet files")
	importCmd.Flags().StringP("account", "a", "", "Account nickname (default is the profile name)")
	importCmd.Flags().Bool("dump", false, "Print the parsed rows instead of importing them")

	rootCmd.AddCommand(importCmd)
}
