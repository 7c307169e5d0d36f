package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/passa-a-bola/web/internal/service"
)

var (
	likeLiked bool
	likeCount int
)

var likeCmd = &cobra.Command{
	Use:   "like POST_ID",
	Short: "Toggle the like on a feed post",
	Long: `Toggle the current user's like on a feed post.

The new state is predicted from --liked and --count (what the post card
currently shows) and reverted if the backend rejects the toggle.

Examples:
  passabola like 42 --count 7
  passabola like 42 --liked --count 8`,
	Args: cobra.ExactArgs(1),
	RunE: runLike,
}

func init() {
	likeCmd.Flags().BoolVar(&likeLiked, "liked", false, "the post is currently liked by you")
	likeCmd.Flags().IntVar(&likeCount, "count", 0, "current like count")
	rootCmd.AddCommand(likeCmd)
}

func runLike(cmd *cobra.Command, args []string) error {
	if likeCount < 0 {
		return fmt.Errorf("--count must not be negative")
	}

	return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
		state := service.NewOptimistic(service.LikeState{Liked: likeLiked, Count: likeCount})
		got, err := a.api.ToggleLike(cmd.Context(), args[0], state)
		if err != nil {
			return fmt.Errorf("like failed (kept liked=%t count=%d): %w", got.Liked, got.Count, err)
		}
		verb := "Unliked"
		if got.Liked {
			verb = "Liked"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s post %s (%d likes)\n", verb, args[0], got.Count)
		return nil
	})
}
