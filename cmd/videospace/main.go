package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot(os.Stdout)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command; out receives command output.
func buildRoot(out io.Writer) *cobra.Command {
	globalFlags := &GlobalFlags{}
	runFlags := &RunFlags{}
	apiFlags := &APIFlags{}
	historyFlags := &HistoryFlags{}

	vsCommand := command{global: globalFlags, out: out}

	root := createRootCommand(globalFlags)
	root.SetOut(out)

	root.AddCommand(
		createRunCommand(vsCommand, runFlags),
		createStartCommand(vsCommand, apiFlags),
		createStopCommand(vsCommand, apiFlags),
		createStatusCommand(vsCommand, apiFlags),
		createInfoCommand(vsCommand, apiFlags),
		createHistoryCommand(vsCommand, historyFlags),
		createOpenCommand(vsCommand, apiFlags),
		createSysinfoCommand(vsCommand, apiFlags),
		createDeepLinkCommand(vsCommand, apiFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "videospace",
		Short: "Video Space desktop shell",
		Long: `videospace runs the Video Space shell: it supervises the local video
server process, serves the shell's command API, and shows a tray menu.

Examples:
  videospace run                        # start the shell
  videospace run --no-tray --stop-on-exit
  videospace status                     # ask a running shell
  videospace open https://example.com
  videospace deeplink "video-space://open?url=https://example.com"`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createRunCommand(vs command, f *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the shell (supervisor, API, tray)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return vs.Run(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.APIListen, "api-listen", "", "API listen address (overrides config)")
	cmd.Flags().StringVar(&f.MetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	cmd.Flags().BoolVar(&f.NoTray, "no-tray", false, "run headless even when the tray is available")
	cmd.Flags().BoolVar(&f.NoAutoStart, "no-autostart", false, "do not start the server at launch")
	cmd.Flags().BoolVar(&f.StopOnExit, "stop-on-exit", false, "stop the server when the shell exits")
	return cmd
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "shell API URL (default from config, e.g. http://127.0.0.1:8787/api)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func createStartCommand(vs command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the video server",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return vs.Start(cmd.Context(), *f) },
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createStopCommand(vs command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the video server",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return vs.Stop(cmd.Context(), *f) },
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createStatusCommand(vs command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print whether the video server is running",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return vs.Status(cmd.Context(), *f) },
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createInfoCommand(vs command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print supervisor details as JSON",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return vs.Info(cmd.Context(), *f) },
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createHistoryCommand(vs command, f *HistoryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent start/stop events",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return vs.History(cmd.Context(), *f) },
	}
	addAPIFlags(cmd, &f.APIFlags)
	cmd.Flags().IntVar(&f.Limit, "limit", 20, "number of events")
	return cmd
}

func createOpenCommand(vs command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "Open a URL in the browser",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return vs.Open(cmd.Context(), *f, args[0]) },
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createSysinfoCommand(vs command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sysinfo",
		Short: "Print system information as JSON",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return vs.SystemInfo(cmd.Context(), *f) },
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createDeepLinkCommand(vs command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deeplink <url>",
		Short: "Hand a custom-scheme link to the running shell",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return vs.DeepLink(cmd.Context(), *f, args[0]) },
	}
	addAPIFlags(cmd, f)
	return cmd
}
