package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/phf/observability"
	"github.com/tailored-agentic-units/phf/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered providers and hooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New()
		if err := registerBuiltins(reg, newLogger(), nil); err != nil {
			return err
		}
		printRegistry(cmd.OutOrStdout(), reg)
		return nil
	},
}

func printRegistry(w io.Writer, reg *registry.Registry) {
	fmt.Fprintln(w, "Providers:")
	for _, info := range reg.Providers() {
		fmt.Fprintf(w, "  %s%s\n", info.Name, aliasSuffix(info.Aliases))
	}
	fmt.Fprintln(w, "Hooks:")
	for _, info := range reg.Hooks() {
		fmt.Fprintf(w, "  %s%s\n", info.Name, aliasSuffix(info.Aliases))
	}
	fmt.Fprintln(w, "Observers:")
	for _, name := range observability.Names() {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

func aliasSuffix(aliases []string) string {
	if len(aliases) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s)", strings.Join(aliases, ", "))
}

func init() {
	rootCmd.AddCommand(listCmd)
}
