package main

import (
	"context"
	"strings"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/internal/cli"
	"github.com/aretw0/rewind/internal/presentation/tui"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/spf13/cobra"
)

const localSession = "local"

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Drive a machine interactively",
	Long: `Starts a prompt where events can be triggered and history navigated.
Without --session the history lives in memory and is lost on exit. With
--session it is saved to the configured store after every command, so the
session can be resumed later.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(args[0])
		if err != nil {
			return err
		}

		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")
		if sessionID == "" {
			// Nothing persists without a session name.
			_ = cmd.Flags().Set("store", "memory")
			sessionID = localSession
		}

		rt, err := newApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer rt.backend.Close()

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		if fresh {
			if err := rt.sessions.Delete(sc, sessionID); err != nil {
				return err
			}
		} else if _, err := rt.sessions.Load(sc, sessionID); err == nil {
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Resuming session '%s'", sessionID)
		}

		out := cmd.OutOrStdout()
		tui.PrintBanner(out, strings.TrimSpace(rewind.Version))

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			go watchConfig(sc, args[0], rt, rt.sessions.SetConfig)
		}

		repl := &cli.REPL{
			Sessions:  rt.sessions,
			SessionID: sessionID,
			In:        cmd.InOrStdin(),
			Out:       out,
		}
		if err := repl.Run(sc); err != nil {
			return err
		}
		if sig := sc.Signal(); sig != nil {
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Interrupted (%s)", sig)
		}
		return nil
	},
}

// watchConfig reloads the machine definition whenever the file changes.
func watchConfig(ctx context.Context, path string, rt *app, apply func(*domain.Config)) {
	if err := cli.WatchConfig(ctx, path, cli.DefaultDebounce, rt.logger, apply); err != nil && ctx.Err() == nil {
		rt.logger.Error("Config watcher stopped", "path", path, "err", err)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("session", "s", "", "Persist history under this session id")
	runCmd.Flags().Bool("fresh", false, "Discard any saved history for the session first")
	runCmd.Flags().BoolP("watch", "w", false, "Reload the machine when the file changes")
}
