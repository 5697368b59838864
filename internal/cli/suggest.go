package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dartdash/internal/transport"
)

var suggestionKinds = map[string]transport.SuggestionKind{
	"host":        transport.SuggestHost,
	"process":     transport.SuggestProcess,
	"environment": transport.SuggestEnvironment,
}

func (a *app) suggestCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "suggest host|process|environment QUERY",
		Short:     "Print autocomplete suggestions, one per line",
		Long:      "Print autocomplete suggestions. Environment lookups are narrowed to --process.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"host", "process", "environment"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := suggestionKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown suggestion kind %q", args[0])
			}
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			q := transport.SuggestionQuery{Kind: kind, Query: args[1]}
			if kind == transport.SuggestEnvironment {
				q.DependsOn = cfg.Scope.Process
			}
			results, err := transport.NewClient(cfg).Suggest(cmd.Context(), q)
			if err != nil {
				return err
			}
			for _, s := range results {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
