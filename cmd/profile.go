package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/algotutor/internal/agent"
	"github.com/abhisek/algotutor/internal/chatbot"
	"github.com/abhisek/algotutor/internal/store"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show, list or reset stored student profiles",
}

// withProfiles opens the configured profile store and hands fn a Tutor
// that can read and reset profiles without an LLM.
func withProfiles(cmd *cobra.Command, fn func(t *agent.Tutor, repo store.ProfileRepo) error) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	rt := &runtime{store: st, closers: []func() error{st.Close}}
	defer rt.Close()

	repo, err := rt.profileRepo(cmd.Context())
	if err != nil {
		return err
	}
	return fn(agent.New(agent.Deps{Profiles: repo}, agent.DefaultConfig()), repo)
}

var profileShowCmd = &cobra.Command{
	Use:   "show [session]",
	Short: "Show what the tutor knows about a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := defaultSessionID
		if len(args) == 1 {
			id = args[0]
		}
		return withProfiles(cmd, func(t *agent.Tutor, _ store.ProfileRepo) error {
			snap, err := t.Profile(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("Session: %s\n", id)
			fmt.Println(chatbot.FormatProfile(snap))
			return nil
		})
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withProfiles(cmd, func(_ *agent.Tutor, repo store.ProfileRepo) error {
			recs, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No profiles stored.")
				return nil
			}
			fmt.Printf("%-32s  %-16s  %-16s  %-19s\n", "Session", "User", "State", "Updated")
			fmt.Println(strings.Repeat(rule, 90))
			for _, r := range recs {
				fmt.Printf("%-32s  %-16s  %-16s  %-19s\n",
					truncate(r.SessionID, 32), truncate(r.UserID, 16), r.State,
					r.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		})
	},
}

var profileResetCmd = &cobra.Command{
	Use:   "reset [session]",
	Short: "Forget a session's progress",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := defaultSessionID
		if len(args) == 1 {
			id = args[0]
		}
		return withProfiles(cmd, func(t *agent.Tutor, _ store.ProfileRepo) error {
			if err := t.Reset(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Session %s reset.\n", id)
			return nil
		})
	},
}

func init() {
	profileListCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileResetCmd)
}
