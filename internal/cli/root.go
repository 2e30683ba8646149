package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"audit-sentry/internal/version"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "audit-sentry",
		Short:         "Compliance evidence collection for hosts and AWS accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewCollectCmd())
	cmd.AddCommand(NewCollectorsCmd())
	cmd.AddCommand(NewVersionCmd())

	cmd.SetVersionTemplate(fmt.Sprintf("%s (%s/%s)\n", version.Version, runtime.GOOS, runtime.GOARCH))
	cmd.Version = version.Version

	return cmd
}
