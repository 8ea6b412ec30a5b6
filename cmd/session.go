package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/session"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/ui/prompt"
)

var abandonCmd = &cobra.Command{
	Use:   "abandon",
	Short: "Leave a practice session and accept its penalty",
	Long: "Leave a session before finishing it. The server is asked which words would\n" +
		"lose mastery and you confirm before anything is sent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, mode, err := sessionFlags(cmd)
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		forceOnFailure, _ := cmd.Flags().GetBool("force")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		out := cmd.OutOrStdout()
		var p session.Prompter = prompt.NewTerminal(cmd.InOrStdin(), out)
		if yes {
			onFailure := session.ChoiceCancel
			if forceOnFailure {
				onFailure = session.ChoiceForceReset
			}
			p = &prompt.Auto{Confirm: true, OnFailure: onFailure, Out: out}
		}

		m := d.newManager(p)
		if !m.Start(id, mode) {
			st := m.Snapshot()
			switch {
			case st.Completed:
				fmt.Fprintf(out, "Session %d is already completed; nothing to abandon.\n", id)
				return nil
			case st.Abandoned:
				fmt.Fprintf(out, "Session %d was already abandoned.\n", id)
				return nil
			}
			return fmt.Errorf("session %d could not be started", id)
		}

		decision, err := m.RequestAbandonment(cmd.Context())
		if err != nil {
			return fmt.Errorf("abandon session %d: %w", id, err)
		}
		switch decision {
		case session.Abandoned:
			fmt.Fprintf(out, "Session %d abandoned.\n", id)
		case session.ForceReset:
			fmt.Fprintf(out, "Session %d discarded locally; the server was not updated.\n", id)
		case session.Stay:
			fmt.Fprintf(out, "Session %d kept.\n", id)
		case session.AllowNavigation:
			fmt.Fprintf(out, "Session %d is already completed; nothing to abandon.\n", id)
		}
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Mark a session as completed",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, mode, err := sessionFlags(cmd)
		if err != nil {
			return err
		}

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		out := cmd.OutOrStdout()
		m := d.newManager(nil)
		if !m.Start(id, mode) {
			st := m.Snapshot()
			switch {
			case st.Completed:
				fmt.Fprintf(out, "Session %d was already completed.\n", id)
				return nil
			case st.Abandoned:
				return fmt.Errorf("session %d: %w", id, session.ErrAlreadyAbandoned)
			}
			return fmt.Errorf("session %d could not be started", id)
		}
		if err := m.Complete(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Session %d completed.\n", id)
		return nil
	},
}

func sessionFlags(cmd *cobra.Command) (int64, remote.Mode, error) {
	id, _ := cmd.Flags().GetInt64("session")
	if err := session.ValidateID(id); err != nil {
		return 0, "", err
	}
	rawMode, _ := cmd.Flags().GetString("mode")
	mode, err := remote.ParseMode(rawMode)
	if err != nil {
		return 0, "", err
	}
	return id, mode, nil
}

func init() {
	for _, c := range []*cobra.Command{abandonCmd, completeCmd} {
		c.Flags().Int64P("session", "s", 0, "Session ID")
		c.Flags().StringP("mode", "m", "practice", "Learning mode: detection or practice")
		_ = c.MarkFlagRequired("session")
	}
	abandonCmd.Flags().BoolP("yes", "y", false, "Confirm without prompting")
	abandonCmd.Flags().Bool("force", false, "With --yes, discard the session locally if the server call fails")
}
