package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/errors"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe an error code",
		Long: `Describe an error code, or list every code when none is given.

Examples:
  optimist explain
  optimist explain C003`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listCodes(cmd.OutOrStdout())
				return nil
			}
			return explainCode(cmd.OutOrStdout(), args[0])
		},
	}
}

func listCodes(out io.Writer) {
	for _, code := range errors.Codes() {
		tmpl, _ := errors.Lookup(code)
		fmt.Fprintf(out, "  %s  %-8s %s\n", code, tmpl.Category, tmpl.Message)
	}
}

func explainCode(out io.Writer, code string) error {
	code = strings.ToUpper(code)
	tmpl, ok := errors.Lookup(code)
	if !ok {
		return errors.New("X002").
			WithDetailf("%s is not a registered code", code).
			WithSuggestion("Run optimist explain to list all codes")
	}

	fmt.Fprintf(out, "%s: %s\n\n", code, tmpl.Message)
	info(out, "Category: %s", tmpl.Category)
	info(out, "%s", tmpl.Detail)
	return nil
}
