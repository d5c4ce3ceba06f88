package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/internal/optimistic"
	"github.com/zhouzirui/teamboard/internal/service/collab"
)

func newThread(comments []model.Comment) *optimistic.List[model.Comment] {
	return optimistic.NewList(comments)
}

func newLabels() *optimistic.List[model.Tag] {
	return optimistic.NewList[model.Tag](nil)
}

func taskRows(tw *tabwriter.Writer, tasks []model.Task) {
	row(tw, "ID", "NAME", "STATUS", "PRIORITY", "DUE", "ASSIGNEE")
	for _, t := range tasks {
		assignee := "-"
		if t.Assignee != nil {
			assignee = t.Assignee.Username
		}
		row(tw, t.ID, t.DisplayName(), orDash(t.Status), orDash(t.Priority), orDash(t.DueDate), assignee)
	}
}

func taskInputFlags(cmd *cobra.Command, in *model.TaskInput, withName bool) {
	if withName {
		cmd.Flags().StringVar(&in.Name, "name", "", "New name")
	}
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "Description")
	cmd.Flags().StringVar(&in.Status, "status", "", "Status (todo, in_progress, done)")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "Priority (low, medium, high)")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "Due date (YYYY-MM-DD)")
}

func tasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage a project's tasks",
	}

	var filter collab.TaskFilter
	listCmd := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			tasks, err := a.svc.ListTasks(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			tasks = filter.Apply(tasks)
			return a.out.render(tasks, func(tw *tabwriter.Writer) { taskRows(tw, tasks) })
		},
	}
	listCmd.Flags().StringVarP(&filter.Query, "query", "q", "", "Only tasks whose name or description contains this text")
	listCmd.Flags().StringVar(&filter.Status, "status", "", "Only tasks with this status")
	listCmd.Flags().StringVar(&filter.Priority, "priority", "", "Only tasks with this priority")
	listCmd.Flags().BoolVar(&filter.HideDone, "hide-done", false, "Hide finished tasks")

	statsCmd := &cobra.Command{
		Use:   "stats PROJECT_ID",
		Short: "Count a project's tasks by status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			tasks, err := a.svc.ListTasks(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			stats := collab.SummarizeTasks(tasks)
			return a.out.render(stats, func(tw *tabwriter.Writer) {
				row(tw, "TOTAL", "TODO", "IN PROGRESS", "DONE")
				row(tw, stats.Total, stats.Todo, stats.InProgress, stats.Done)
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show TASK_ID",
		Short: "Show a task with its subtasks and activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			t, err := a.svc.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			for i := range t.Attachments {
				t.Attachments[i].URL = collab.AssetURL(a.cfg.Client.AssetURL, t.Attachments[i].URL)
			}
			return a.out.render(t, func(tw *tabwriter.Writer) {
				row(tw, "ID", t.ID)
				row(tw, "NAME", t.DisplayName())
				row(tw, "STATUS", orDash(t.Status))
				row(tw, "PRIORITY", orDash(t.Priority))
				row(tw, "DUE", orDash(t.DueDate))
				row(tw, "DESCRIPTION", orDash(t.Description))
				memberRows(tw, t.Members)
				extrasRows(tw, t.Comments, t.Tags, t.Attachments)
				if len(t.SubTasks) > 0 {
					fmt.Fprintln(tw)
					taskRows(tw, t.SubTasks)
				}
			})
		},
	}

	var in model.TaskInput
	createCmd := &cobra.Command{
		Use:   "create PROJECT_ID NAME",
		Short: "Create a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			in.Name = args[1]
			t, err := a.svc.CreateTask(cmd.Context(), projectID, in)
			if err != nil {
				return err
			}
			return a.out.render(t, func(tw *tabwriter.Writer) { taskRows(tw, []model.Task{t}) })
		},
	}
	taskInputFlags(createCmd, &in, false)

	var upd model.TaskInput
	updateCmd := &cobra.Command{
		Use:   "update TASK_ID",
		Short: "Change a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			t, err := a.svc.UpdateTask(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			return a.out.render(t, func(tw *tabwriter.Writer) { taskRows(tw, []model.Task{t}) })
		},
	}
	taskInputFlags(updateCmd, &upd, true)

	deleteCmd := &cobra.Command{
		Use:   "delete TASK_ID",
		Short: "Delete a task and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			if err := a.svc.DeleteTask(cmd.Context(), id); err != nil {
				return err
			}
			return a.out.message("Deleted task %d", id)
		},
	}

	cmd.AddCommand(listCmd, statsCmd, showCmd, createCmd, updateCmd, deleteCmd)
	cmd.AddCommand(memberCmds(a, "task", memberOps{
		inviteVerb:  "assign",
		defaultRole: model.RoleAssignee,
		invite: func(c *cobra.Command, id int64, in collab.MemberInvite) error {
			return a.svc.AssignTaskMember(c.Context(), id, in)
		},
		remove:  func(c *cobra.Command, id, user int64) error { return a.svc.RemoveTaskMember(c.Context(), id, user) },
		promote: func(c *cobra.Command, id, user int64) error { return a.svc.PromoteTaskMember(c.Context(), id, user) },
		demote:  func(c *cobra.Command, id, user int64) error { return a.svc.DemoteTaskMember(c.Context(), id, user) },
	})...)
	return cmd
}

func subtasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subtasks",
		Aliases: []string{"subtask"},
		Short:   "Manage a task's subtasks",
	}

	listCmd := &cobra.Command{
		Use:   "list TASK_ID",
		Short: "List subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			subs, err := a.svc.ListSubTasks(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			return a.out.render(subs, func(tw *tabwriter.Writer) { taskRows(tw, subs) })
		},
	}

	var in model.TaskInput
	createCmd := &cobra.Command{
		Use:   "create TASK_ID NAME",
		Short: "Create a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			in.Name = args[1]
			t, err := a.svc.CreateSubTask(cmd.Context(), taskID, in)
			if err != nil {
				return err
			}
			return a.out.render(t, func(tw *tabwriter.Writer) { taskRows(tw, []model.Task{t}) })
		},
	}
	taskInputFlags(createCmd, &in, false)

	var upd model.TaskInput
	updateCmd := &cobra.Command{
		Use:   "update SUBTASK_ID",
		Short: "Change a subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "subtask")
			if err != nil {
				return err
			}
			t, err := a.svc.UpdateSubTask(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			return a.out.render(t, func(tw *tabwriter.Writer) { taskRows(tw, []model.Task{t}) })
		},
	}
	taskInputFlags(updateCmd, &upd, true)

	deleteCmd := &cobra.Command{
		Use:   "delete SUBTASK_ID",
		Short: "Delete a subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "subtask")
			if err != nil {
				return err
			}
			if err := a.svc.DeleteSubTask(cmd.Context(), id); err != nil {
				return err
			}
			return a.out.message("Deleted subtask %d", id)
		},
	}

	var role string
	assignCmd := &cobra.Command{
		Use:   "assign SUBTASK_ID USERNAME",
		Short: "Assign a user to a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "subtask")
			if err != nil {
				return err
			}
			if err := a.svc.AssignSubTaskMember(cmd.Context(), id, args[1], role); err != nil {
				return err
			}
			return a.out.message("Assigned %s to subtask %d", args[1], id)
		},
	}
	assignCmd.Flags().StringVar(&role, "role", "", "Role to grant (default assignee)")

	unassignCmd := &cobra.Command{
		Use:   "unassign SUBTASK_ID USER_ID",
		Short: "Remove a user from a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "subtask")
			if err != nil {
				return err
			}
			userID, err := parseID(args[1], "user")
			if err != nil {
				return err
			}
			if err := a.svc.RemoveSubTaskMember(cmd.Context(), id, userID); err != nil {
				return err
			}
			return a.out.message("Removed user %d from subtask %d", userID, id)
		},
	}

	cmd.AddCommand(listCmd, createCmd, updateCmd, deleteCmd, assignCmd, unassignCmd)
	return cmd
}
