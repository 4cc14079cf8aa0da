package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bundler/internal/errors"
)

func errorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code]...",
		Short: "List error codes",
		Long: `List the error codes vbundle reports, or describe the given codes.

Fatal errors abort the build. Non-fatal ones are reported as warnings.

Examples:
  vbundle errors
  vbundle errors B402 B405`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runErrors(cmd.OutOrStdout(), args)
		},
	}
}

func runErrors(w io.Writer, codes []string) error {
	if len(codes) == 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, code := range errors.GetAllCodes() {
			t, _ := errors.GetTemplate(code)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", code, t.Category, severity(t.Fatal), t.Message)
		}
		return tw.Flush()
	}

	for _, code := range codes {
		t, ok := errors.GetTemplate(code)
		if !ok {
			return errors.New("B500").
				WithDetail(fmt.Sprintf("unknown error code %q", code)).
				WithSuggestion("Run 'vbundle errors' to list the known codes")
		}
		fmt.Fprintf(w, "%s  %s (%s, %s)\n", code, t.Message, t.Category, severity(t.Fatal))
		if t.Detail != "" {
			fmt.Fprintf(w, "  %s\n", t.Detail)
		}
		fmt.Fprintf(w, "  %s\n\n", t.DocURL)
	}
	return nil
}

func severity(fatal bool) string {
	if fatal {
		return "fatal"
	}
	return "warning"
}
