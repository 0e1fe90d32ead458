package app

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand はchatgateのルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして起動する。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "chatgate",
		Short:         "Session and authorization gateway for the chat front end",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(w)
		},
	}
	root.SetOut(w)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(w)
			},
		},
		newHealthcheckCommand(),
	)

	return root
}

// newHealthcheckCommand はdistroless環境でのDockerヘルスチェック用サブコマンドを生成する。
// 設定の読み込みは行わず、SERVER_PORTのみを参照する。
func newHealthcheckCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check that the local server answers /ping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck("http://localhost:" + port + "/ping")
		},
	}
	cmd.Flags().StringVar(&port, "port", defaultPort(), "server port to probe")
	return cmd
}

func defaultPort() string {
	if p := os.Getenv("SERVER_PORT"); p != "" {
		return p
	}
	return "8080"
}
