package cli

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"audit-sentry/internal/collector"
	awscol "audit-sentry/internal/collector/aws"
	"audit-sentry/internal/collector/local"
)

func NewCollectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collectors",
		Short: "List registered collectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := collector.NewRegistry()
			if err := local.Register(reg); err != nil {
				return err
			}
			if err := awscol.Register(reg, awscol.Options{}); err != nil {
				return err
			}

			data := pterm.TableData{{"Category", "Name"}}
			for _, cat := range []collector.Category{collector.CategoryLocal, collector.CategoryAWS} {
				for _, name := range reg.Names(cat) {
					data = append(data, []string{string(cat), name})
				}
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
}
