package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/internal/service/collab"
)

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func teamsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "teams",
		Aliases: []string{"team"},
		Short:   "Manage teams",
	}

	var query string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List your teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teams, err := a.svc.ListTeams(cmd.Context())
			if err != nil {
				return err
			}
			teams = collab.FilterTeams(teams, query)
			return a.out.render(teams, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME", "ROLE", "MEMBERS", "DESCRIPTION")
				for _, t := range teams {
					row(tw, t.ID, t.Name, orDash(t.Role), t.MembersCount, orDash(t.Description))
				}
			})
		},
	}
	listCmd.Flags().StringVarP(&query, "query", "q", "", "Only teams whose name or description contains this text")

	showCmd := &cobra.Command{
		Use:   "show TEAM_ID",
		Short: "Show a team and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "team")
			if err != nil {
				return err
			}
			team, err := a.svc.GetTeam(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.out.render(team, func(tw *tabwriter.Writer) {
				row(tw, "ID", team.ID)
				row(tw, "NAME", team.Name)
				row(tw, "DESCRIPTION", orDash(team.Description))
				row(tw, "ROLE", orDash(team.Role))
				memberRows(tw, team.Members)
			})
		},
	}

	var in model.TeamInput
	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			team, err := a.svc.CreateTeam(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.out.render(team, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME")
				row(tw, team.ID, team.Name)
			})
		},
	}
	createCmd.Flags().StringVarP(&in.Description, "description", "d", "", "Team description")

	var upd model.TeamInput
	updateCmd := &cobra.Command{
		Use:   "update TEAM_ID",
		Short: "Rename or describe a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "team")
			if err != nil {
				return err
			}
			team, err := a.svc.UpdateTeam(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			return a.out.render(team, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME", "DESCRIPTION")
				row(tw, team.ID, team.Name, orDash(team.Description))
			})
		},
	}
	updateCmd.Flags().StringVar(&upd.Name, "name", "", "New name")
	updateCmd.Flags().StringVarP(&upd.Description, "description", "d", "", "New description")

	deleteCmd := &cobra.Command{
		Use:   "delete TEAM_ID",
		Short: "Delete a team with its projects and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "team")
			if err != nil {
				return err
			}
			if err := a.svc.DeleteTeam(cmd.Context(), id); err != nil {
				return err
			}
			return a.out.message("Deleted team %d", id)
		},
	}

	cmd.AddCommand(listCmd, showCmd, createCmd, updateCmd, deleteCmd)
	cmd.AddCommand(memberCmds(a, "team", memberOps{
		invite: func(c *cobra.Command, id int64, in collab.MemberInvite) error {
			return a.svc.InviteTeamMember(c.Context(), id, in)
		},
		remove:  func(c *cobra.Command, id, user int64) error { return a.svc.RemoveTeamMember(c.Context(), id, user) },
		promote: func(c *cobra.Command, id, user int64) error { return a.svc.PromoteTeamMember(c.Context(), id, user) },
		demote:  func(c *cobra.Command, id, user int64) error { return a.svc.DemoteTeamMember(c.Context(), id, user) },
	})...)
	return cmd
}

func memberRows(tw *tabwriter.Writer, members []model.Member) {
	if len(members) == 0 {
		return
	}
	fmt.Fprintln(tw)
	row(tw, "MEMBER ID", "USERNAME", "ROLE")
	for _, m := range members {
		row(tw, m.ID, m.Username, orDash(m.Role))
	}
}

// memberOps binds the generic member subcommands to one resource kind.
type memberOps struct {
	// inviteVerb and defaultRole default to "invite" and member.
	inviteVerb  string
	defaultRole string

	invite  func(c *cobra.Command, id int64, in collab.MemberInvite) error
	remove  func(c *cobra.Command, id, userID int64) error
	promote func(c *cobra.Command, id, userID int64) error
	demote  func(c *cobra.Command, id, userID int64) error
}

func memberCmds(a *app, kind string, ops memberOps) []*cobra.Command {
	verb, defaultRole := ops.inviteVerb, ops.defaultRole
	if verb == "" {
		verb = "invite"
	}
	if defaultRole == "" {
		defaultRole = model.RoleMember
	}

	var role string
	invite := &cobra.Command{
		Use:   fmt.Sprintf("%s %s_ID USERNAME", verb, strings.ToUpper(kind)),
		Short: fmt.Sprintf("Add a user to a %s", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], kind)
			if err != nil {
				return err
			}
			if err := ops.invite(cmd, id, collab.MemberInvite{Username: args[1], Role: role}); err != nil {
				return err
			}
			return a.out.message("Added %s to %s %d as %s", args[1], kind, id, role)
		},
	}
	invite.Flags().StringVar(&role, "role", defaultRole, "Role to grant")

	action := func(verb, short string, fn func(c *cobra.Command, id, userID int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   fmt.Sprintf("%s %s_ID USER_ID", verb, strings.ToUpper(kind)),
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], kind)
				if err != nil {
					return err
				}
				userID, err := parseID(args[1], "user")
				if err != nil {
					return err
				}
				if err := fn(cmd, id, userID); err != nil {
					return err
				}
				return a.out.message("Done: %s user %d on %s %d", verb, userID, kind, id)
			},
		}
	}

	return []*cobra.Command{
		invite,
		action("remove-member", "Remove a member", ops.remove),
		action("promote", "Promote a member one role", ops.promote),
		action("demote", "Demote a member one role", ops.demote),
	}
}
