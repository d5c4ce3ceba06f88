package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/internal/service/collab"
	"github.com/zhouzirui/teamboard/internal/session"
)

var errSignedOut = errors.New("session ended, run `teamboard login` again")

func activitiesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activities",
		Aliases: []string{"inbox"},
		Short:   "Read your notification feed",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent activities, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acts, err := a.svc.ListActivities(cmd.Context())
			if err != nil {
				return err
			}
			unread := collab.UnreadCount(acts)
			acts = collab.SortActivities(acts, limit)
			view := struct {
				Unread     int              `json:"unread"`
				Activities []model.Activity `json:"activities"`
			}{unread, acts}
			now := time.Now()
			return a.out.render(view, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "%d unread\n", unread)
				row(tw, "ID", "", "WHEN", "MESSAGE")
				for _, act := range acts {
					row(tw, act.ID, unreadMark(act), collab.RelativeTime(act.CreatedAt, now), act.Message())
				}
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many activities (0 for all)")

	readCmd := &cobra.Command{
		Use:   "read ACTIVITY_ID",
		Short: "Mark an activity read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "activity")
			if err != nil {
				return err
			}
			if err := a.svc.MarkActivityRead(cmd.Context(), id); err != nil {
				return err
			}
			return a.out.message("Marked activity %d read", id)
		},
	}

	readAllCmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every activity read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.MarkAllActivitiesRead(cmd.Context()); err != nil {
				return err
			}
			return a.out.message("Marked all activities read")
		},
	}

	var interval time.Duration
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print new activities as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("invalid interval %s", interval)
			}
			return a.watchActivities(cmd.Context(), cmd.OutOrStdout(), interval)
		},
	}
	watchCmd.Flags().DurationVar(&interval, "interval", 15*time.Second, "Polling interval")

	cmd.AddCommand(listCmd, readCmd, readAllCmd, watchCmd)
	return cmd
}

func unreadMark(act model.Activity) string {
	if act.Unread() {
		return "*"
	}
	return ""
}

// watchActivities polls the feed until ctx is done or the session is ended
// by another process, for example `teamboard logout` in another shell.
func (a *app) watchActivities(ctx context.Context, w io.Writer, interval time.Duration) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		err := a.session.Watch(ctx, func(authenticated bool) {
			if !authenticated {
				cancel(errSignedOut)
				return
			}
			a.logger.Info("Session credential changed on disk")
		})
		if err != nil && !errors.Is(err, session.ErrNoFileStorage) {
			a.logger.Warn("Session watch stopped", "error", err)
		}
	}()

	var lastID int64
	poll := func() error {
		acts, err := a.svc.ListActivities(ctx)
		if err != nil {
			var apiErr *apiclient.Error
			if errors.As(err, &apiErr) && apiErr.Message == apiclient.MsgAuthExpired {
				return errSignedOut
			}
			if ctx.Err() == nil {
				a.logger.Warn("Polling activities failed", "error", err)
			}
			return nil
		}

		sorted := collab.SortActivities(acts, 0)
		now := time.Now()
		// Oldest first so the output reads top to bottom.
		for i := len(sorted) - 1; i >= 0; i-- {
			act := sorted[i]
			if act.ID <= lastID {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", collab.RelativeTime(act.CreatedAt, now), act.Message())
			lastID = act.ID
		}
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := poll(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			if cause := context.Cause(ctx); errors.Is(cause, errSignedOut) {
				return cause
			}
			return nil
		case <-ticker.C:
		}
	}
}

func invitationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invitations",
		Aliases: []string{"invites"},
		Short:   "Answer team, project and task invitations",
	}

	var all bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending invitations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			invs, err := a.svc.ListInvitations(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				invs = collab.PendingInvitations(invs)
			}
			return a.out.render(invs, func(tw *tabwriter.Writer) {
				row(tw, "ID", "FROM", "TO", "ROLE", "STATUS")
				for _, inv := range invs {
					to := fmt.Sprintf("%s %q", inv.InvitableType, inv.InvitableName)
					row(tw, inv.ID, inv.Inviter.Username, to, orDash(inv.Role), inv.Status)
				}
			})
		},
	}
	listCmd.Flags().BoolVar(&all, "all", false, "Include answered invitations")

	answer := func(use, short, done string, fn func(ctx context.Context, id int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " INVITATION_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "invitation")
				if err != nil {
					return err
				}
				if err := fn(cmd.Context(), id); err != nil {
					return err
				}
				return a.out.message("%s invitation %d", done, id)
			},
		}
	}

	cmd.AddCommand(listCmd,
		answer("accept", "Accept an invitation", "Accepted", func(ctx context.Context, id int64) error {
			return a.svc.AcceptInvitation(ctx, id)
		}),
		answer("decline", "Decline an invitation", "Declined", func(ctx context.Context, id int64) error {
			return a.svc.DeclineInvitation(ctx, id)
		}),
	)
	return cmd
}
