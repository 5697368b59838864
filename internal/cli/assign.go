package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dartdash/internal/config"
	"dartdash/internal/transport"
	"dartdash/internal/wizard"
)

func (a *app) assignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "assign",
		Short: "Assign --process in --environment to --host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			w := assignWizard(cfg)
			defer w.Close()

			err = w.Submit(cmd.Context(), transport.NewClient(cfg))
			var invalid *wizard.ValidationError
			if errors.As(err, &invalid) {
				return invalid
			}
			notice, _ := w.Notice()
			if err != nil {
				return errors.New(notice.Text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), notice.Text)
			return nil
		},
	}
}

// assignWizard fills a wizard from the scope flags. With --process the
// dialog starts from the process, otherwise from the host.
func assignWizard(cfg config.Config) *wizard.Wizard {
	opts := wizard.Options{MinLength: cfg.Suggest.MinLength}
	if cfg.Scope.Process != "" {
		w := wizard.NewFromProcess(cfg.Scope.Process, cfg.Scope.Environment, opts)
		w.Set(wizard.FieldHost, cfg.Scope.Host)
		return w
	}
	w := wizard.NewFromHost(cfg.Scope.Host, opts)
	w.Set(wizard.FieldProcess, cfg.Scope.Process)
	w.Set(wizard.FieldEnvironment, cfg.Scope.Environment)
	return w
}
