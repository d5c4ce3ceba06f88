package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/internal/service/collab"
)

func projectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Manage a team's projects",
	}

	var filter collab.ProjectFilter
	listCmd := &cobra.Command{
		Use:   "list TEAM_ID",
		Short: "List projects, archived ones last",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := parseID(args[0], "team")
			if err != nil {
				return err
			}
			projects, err := a.svc.ListProjects(cmd.Context(), teamID)
			if err != nil {
				return err
			}
			active, archived := filter.Apply(projects)
			view := struct {
				Active   []model.Project `json:"active"`
				Archived []model.Project `json:"archived"`
			}{active, archived}
			return a.out.render(view, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME", "STATUS", "TASKS", "MEMBERS")
				for _, p := range active {
					row(tw, p.ID, p.Name, orDash(p.Status), p.TasksCount, p.MembersCount)
				}
				for _, p := range archived {
					row(tw, p.ID, p.Name, p.Status, p.TasksCount, p.MembersCount)
				}
			})
		},
	}
	listCmd.Flags().StringVarP(&filter.Query, "query", "q", "", "Only projects whose name or description contains this text")
	listCmd.Flags().StringVar(&filter.Status, "status", "", "Only projects with this status (active, completed)")
	listCmd.Flags().BoolVar(&filter.HideCompleted, "hide-completed", false, "Hide completed projects")

	showCmd := &cobra.Command{
		Use:   "show PROJECT_ID",
		Short: "Show a project with members, comments, tags and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			p, err := a.svc.GetProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			for i := range p.Attachments {
				p.Attachments[i].URL = collab.AssetURL(a.cfg.Client.AssetURL, p.Attachments[i].URL)
			}
			return a.out.render(p, func(tw *tabwriter.Writer) {
				row(tw, "ID", p.ID)
				row(tw, "NAME", p.Name)
				row(tw, "STATUS", orDash(p.Status))
				row(tw, "DESCRIPTION", orDash(p.Description))
				memberRows(tw, p.Members)
				extrasRows(tw, p.Comments, p.Tags, p.Attachments)
			})
		},
	}

	var in model.ProjectInput
	createCmd := &cobra.Command{
		Use:   "create TEAM_ID NAME",
		Short: "Create a project in a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := parseID(args[0], "team")
			if err != nil {
				return err
			}
			in.Name = args[1]
			p, err := a.svc.CreateProject(cmd.Context(), teamID, in)
			if err != nil {
				return err
			}
			return a.out.render(p, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME", "STATUS")
				row(tw, p.ID, p.Name, orDash(p.Status))
			})
		},
	}
	createCmd.Flags().StringVarP(&in.Description, "description", "d", "", "Project description")
	createCmd.Flags().StringVar(&in.Status, "status", "", "Initial status")

	var upd model.ProjectInput
	updateCmd := &cobra.Command{
		Use:   "update PROJECT_ID",
		Short: "Change a project's name, description or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			p, err := a.svc.UpdateProject(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			return a.out.render(p, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME", "STATUS")
				row(tw, p.ID, p.Name, orDash(p.Status))
			})
		},
	}
	updateCmd.Flags().StringVar(&upd.Name, "name", "", "New name")
	updateCmd.Flags().StringVarP(&upd.Description, "description", "d", "", "New description")
	updateCmd.Flags().StringVar(&upd.Status, "status", "", "New status (active, completed, archived)")

	deleteCmd := &cobra.Command{
		Use:   "delete PROJECT_ID",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			if err := a.svc.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}
			return a.out.message("Deleted project %d", id)
		},
	}

	cmd.AddCommand(listCmd, showCmd, createCmd, updateCmd, deleteCmd)
	cmd.AddCommand(memberCmds(a, "project", memberOps{
		invite: func(c *cobra.Command, id int64, in collab.MemberInvite) error {
			return a.svc.InviteProjectMember(c.Context(), id, in)
		},
		remove:  func(c *cobra.Command, id, user int64) error { return a.svc.RemoveProjectMember(c.Context(), id, user) },
		promote: func(c *cobra.Command, id, user int64) error { return a.svc.PromoteProjectMember(c.Context(), id, user) },
		demote:  func(c *cobra.Command, id, user int64) error { return a.svc.DemoteProjectMember(c.Context(), id, user) },
	})...)
	return cmd
}

func extrasRows(tw *tabwriter.Writer, comments []model.Comment, tags []model.Tag, attachments []model.Attachment) {
	if len(tags) > 0 {
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = fmt.Sprintf("%s(#%d)", t.Name, t.ID)
		}
		row(tw, "TAGS", fmt.Sprint(names))
	}
	if len(comments) > 0 {
		fmt.Fprintln(tw)
		row(tw, "COMMENT ID", "AUTHOR", "CONTENT")
		for _, c := range comments {
			row(tw, c.ID, c.User.Username, c.Content)
		}
	}
	if len(attachments) > 0 {
		fmt.Fprintln(tw)
		row(tw, "ATTACHMENT ID", "FILENAME", "URL")
		for _, at := range attachments {
			row(tw, at.ID, at.Filename, at.URL)
		}
	}
}

// target resolves the --project / --task pair shared by comments, tags and
// attachments. Exactly one must be set.
type target struct {
	project int64
	task    int64
}

func (t *target) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&t.project, "project", 0, "Project id")
	cmd.Flags().Int64Var(&t.task, "task", 0, "Task id")
	cmd.MarkFlagsMutuallyExclusive("project", "task")
	cmd.MarkFlagsOneRequired("project", "task")
}

func commentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Comment on projects and tasks",
	}

	var to target
	addCmd := &cobra.Command{
		Use:   "add CONTENT",
		Short: "Add a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to.project != 0 {
				c, err := a.svc.AddProjectComment(cmd.Context(), to.project, args[0])
				if err != nil {
					return err
				}
				return a.out.render(c, func(tw *tabwriter.Writer) { commentRow(tw, c) })
			}

			task, err := a.svc.GetTask(cmd.Context(), to.task)
			if err != nil {
				return err
			}
			thread := newThread(task.Comments)
			c, err := a.svc.PostTaskComment(cmd.Context(), thread, to.task, args[0])
			if err != nil {
				return err
			}
			return a.out.render(c, func(tw *tabwriter.Writer) { commentRow(tw, c) })
		},
	}
	to.bind(addCmd)

	var editTo target
	editCmd := &cobra.Command{
		Use:   "edit COMMENT_ID CONTENT",
		Short: "Edit one of your comments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "comment")
			if err != nil {
				return err
			}
			var c model.Comment
			if editTo.project != 0 {
				c, err = a.svc.UpdateProjectComment(cmd.Context(), editTo.project, id, args[1])
			} else {
				c, err = a.svc.UpdateTaskComment(cmd.Context(), editTo.task, id, args[1])
			}
			if err != nil {
				return err
			}
			return a.out.render(c, func(tw *tabwriter.Writer) { commentRow(tw, c) })
		},
	}
	editTo.bind(editCmd)

	var delTo target
	deleteCmd := &cobra.Command{
		Use:   "delete COMMENT_ID",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "comment")
			if err != nil {
				return err
			}
			if delTo.project != 0 {
				err = a.svc.DeleteProjectComment(cmd.Context(), delTo.project, id)
			} else {
				err = a.svc.DeleteTaskComment(cmd.Context(), delTo.task, id)
			}
			if err != nil {
				return err
			}
			return a.out.message("Deleted comment %d", id)
		},
	}
	delTo.bind(deleteCmd)

	cmd.AddCommand(addCmd, editCmd, deleteCmd)
	return cmd
}

func commentRow(tw *tabwriter.Writer, c model.Comment) {
	row(tw, "ID", "AUTHOR", "CONTENT")
	row(tw, c.ID, c.User.Username, c.Content)
}

func tagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Tag projects and tasks",
	}

	var to target
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				tag model.Tag
				err error
			)
			if to.project != 0 {
				tag, err = a.svc.AddProjectTag(cmd.Context(), to.project, args[0])
			} else {
				tag, err = a.svc.PostTaskTag(cmd.Context(), newLabels(), to.task, args[0])
			}
			if err != nil {
				return err
			}
			return a.out.render(tag, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME")
				row(tw, tag.ID, tag.Name)
			})
		},
	}
	to.bind(addCmd)

	var rmTo target
	removeCmd := &cobra.Command{
		Use:   "remove TAG_ID",
		Short: "Remove a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "tag")
			if err != nil {
				return err
			}
			if rmTo.project != 0 {
				err = a.svc.RemoveProjectTag(cmd.Context(), rmTo.project, id)
			} else {
				err = a.svc.RemoveTaskTag(cmd.Context(), rmTo.task, id)
			}
			if err != nil {
				return err
			}
			return a.out.message("Removed tag %d", id)
		},
	}
	rmTo.bind(removeCmd)

	cmd.AddCommand(addCmd, removeCmd)
	return cmd
}

func attachmentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "Upload and download files",
	}

	var to target
	uploadCmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Attach a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			name := filepath.Base(args[0])
			var att model.Attachment
			if to.project != 0 {
				att, err = a.svc.AddProjectAttachment(cmd.Context(), to.project, name, f)
			} else {
				att, err = a.svc.AddTaskAttachment(cmd.Context(), to.task, name, f)
			}
			if err != nil {
				return err
			}
			att.URL = collab.AssetURL(a.cfg.Client.AssetURL, att.URL)
			return a.out.render(att, func(tw *tabwriter.Writer) {
				row(tw, "ID", "FILENAME", "URL")
				row(tw, att.ID, att.Filename, att.URL)
			})
		},
	}
	to.bind(uploadCmd)

	var dest string
	downloadCmd := &cobra.Command{
		Use:   "download TASK_ID ATTACHMENT_ID",
		Short: "Download a task attachment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			attID, err := parseID(args[1], "attachment")
			if err != nil {
				return err
			}

			path := dest
			if path == "" {
				path = fmt.Sprintf("attachment-%d", attID)
				task, err := a.svc.GetTask(cmd.Context(), taskID)
				if err != nil {
					return err
				}
				for _, at := range task.Attachments {
					if at.ID == attID && at.Filename != "" {
						path = filepath.Base(at.Filename)
					}
				}
			}

			f, err := os.Create(path)
			if err != nil {
				return err
			}
			n, err := a.svc.DownloadTaskAttachment(cmd.Context(), taskID, attID, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(path)
				return err
			}
			return a.out.message("Saved %s (%d bytes)", path, n)
		},
	}
	downloadCmd.Flags().StringVarP(&dest, "out", "O", "", "Destination file (default the attachment's filename)")

	var rmTo target
	removeCmd := &cobra.Command{
		Use:   "remove ATTACHMENT_ID",
		Short: "Remove an attachment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "attachment")
			if err != nil {
				return err
			}
			if rmTo.project != 0 {
				err = a.svc.RemoveProjectAttachment(cmd.Context(), rmTo.project, id)
			} else {
				err = a.svc.RemoveTaskAttachment(cmd.Context(), rmTo.task, id)
			}
			if err != nil {
				return err
			}
			return a.out.message("Removed attachment %d", id)
		},
	}
	rmTo.bind(removeCmd)

	cmd.AddCommand(uploadCmd, downloadCmd, removeCmd)
	return cmd
}
