package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ldi/trellis/internal/db"
	"github.com/ldi/trellis/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server. snapshotPath is where export_snapshot
// writes when the tool call names no path of its own.
func NewServer(database *db.DB, snapshotPath string) *server.MCPServer {
	s := server.NewMCPServer("Trellis", "0.1.0")

	// Task Management
	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a new task. Name and description are optional; a task without them is still valid."),
		mcp.WithString("name", mcp.Description("Task name")),
		mcp.WithString("description", mcp.Description("Task description")),
	), createTaskHandler(database))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a task by uid, with the uids of its supertasks, subtasks, dependees and dependents."),
		mcp.WithNumber("uid", mcp.Description("Task uid"), mcp.Required()),
	), getTaskHandler(database))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks with optional filters. Filters match stored values only, so progress does not match non-concrete tasks."),
		mcp.WithString("progress", mcp.Description("Filter by progress (not started|in progress|completed)")),
		mcp.WithString("importance", mcp.Description("Filter by importance (low|medium|high)")),
	), listTasksHandler(database))

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Update a task's name or description. An omitted field is left unchanged; an empty string clears the field to absent."),
		mcp.WithNumber("uid", mcp.Description("Task uid"), mcp.Required()),
		mcp.WithString("name", mcp.Description("New name; empty string clears it")),
		mcp.WithString("description", mcp.Description("New description; empty string clears it")),
	), updateTaskHandler(database))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task. Fails while the task still has hierarchy or dependency relations."),
		mcp.WithNumber("uid", mcp.Description("Task uid"), mcp.Required()),
	), deleteTaskHandler(database))

	// Progress and Importance
	s.AddTool(mcp.NewTool("set_progress",
		mcp.WithDescription("Set the progress of a concrete task (a task with no subtasks)."),
		mcp.WithNumber("uid", mcp.Description("Task uid"), mcp.Required()),
		mcp.WithString("progress", mcp.Description("New progress (not started|in progress|completed)"), mcp.Required()),
	), setProgressHandler(database))

	s.AddTool(mcp.NewTool("set_importance",
		mcp.WithDescription("Set or clear a task's importance."),
		mcp.WithNumber("uid", mcp.Description("Task uid"), mcp.Required()),
		mcp.WithString("importance", mcp.Description("New importance (low|medium|high). Omit or pass an empty string to clear.")),
	), setImportanceHandler(database))

	// Hierarchy Management
	s.AddTool(mcp.NewTool("add_hierarchy",
		mcp.WithDescription("Make one task a subtask of another. The supertask stops carrying its own progress."),
		mcp.WithNumber("supertask_uid", mcp.Description("Uid of the supertask"), mcp.Required()),
		mcp.WithNumber("subtask_uid", mcp.Description("Uid of the subtask"), mcp.Required()),
	), addHierarchyHandler(database))

	s.AddTool(mcp.NewTool("remove_hierarchy",
		mcp.WithDescription("Remove a hierarchy between two tasks."),
		mcp.WithNumber("supertask_uid", mcp.Description("Uid of the supertask"), mcp.Required()),
		mcp.WithNumber("subtask_uid", mcp.Description("Uid of the subtask"), mcp.Required()),
	), removeHierarchyHandler(database))

	// Dependency Management
	s.AddTool(mcp.NewTool("add_dependency",
		mcp.WithDescription("Make one task depend on another. The dependent cannot start until the dependee is completed."),
		mcp.WithNumber("dependee_uid", mcp.Description("Uid of the task that must finish first"), mcp.Required()),
		mcp.WithNumber("dependent_uid", mcp.Description("Uid of the task that waits"), mcp.Required()),
	), addDependencyHandler(database))

	s.AddTool(mcp.NewTool("remove_dependency",
		mcp.WithDescription("Remove a dependency between two tasks."),
		mcp.WithNumber("dependee_uid", mcp.Description("Uid of the task that must finish first"), mcp.Required()),
		mcp.WithNumber("dependent_uid", mcp.Description("Uid of the task that waits"), mcp.Required()),
	), removeDependencyHandler(database))

	// Graph Queries
	s.AddTool(mcp.NewTool("next_tasks",
		mcp.WithDescription("Get the tasks that are ready to work on, ordered by the importance of the work they unblock."),
	), nextTasksHandler(database))

	s.AddTool(mcp.NewTool("export_graph",
		mcp.WithDescription("Get the complete task network (tasks, hierarchies, dependencies) as JSON."),
	), exportGraphHandler(database))

	// Snapshots
	s.AddTool(mcp.NewTool("export_snapshot",
		mcp.WithDescription("Write a snapshot of the task network to a JSONL file."),
		mcp.WithString("path", mcp.Description("Destination file (defaults to the configured snapshot path)")),
	), exportSnapshotHandler(database, snapshotPath))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func createTaskHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var name, description *string
		args, _ := request.Params.Arguments.(map[string]any)
		if n, ok := args["name"].(string); ok && n != "" {
			name = &n
		}
		if d, ok := args["description"].(string); ok && d != "" {
			description = &d
		}

		t, err := database.CreateTask(ctx, name, description)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(t)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func getTaskHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uid := mcp.ParseInt64(request, "uid", 0)

		t, err := database.GetTask(ctx, uid)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if t == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Task %d not found", uid)), nil
		}

		relations := map[string]func(context.Context, int64) ([]*models.Task, error){
			"supertask_uids": database.GetSupertasks,
			"subtask_uids":   database.GetSubtasks,
			"dependee_uids":  database.GetDependees,
			"dependent_uids": database.GetDependents,
		}
		out := map[string]any{"task": t}
		for key, fetch := range relations {
			tasks, err := fetch(ctx, uid)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			uids := make([]int64, 0, len(tasks))
			for _, rel := range tasks {
				uids = append(uids, rel.UID)
			}
			out[key] = uids
		}

		data, err := json.Marshal(out)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func listTasksHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var progress *models.Progress
		var importance *models.Importance
		args, _ := request.Params.Arguments.(map[string]any)
		if p, ok := args["progress"].(string); ok && p != "" {
			parsed, ok := models.ParseProgress(p)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid progress %q", p)), nil
			}
			progress = &parsed
		}
		if i, ok := args["importance"].(string); ok && i != "" {
			parsed, ok := models.ParseImportance(i)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid importance %q", i)), nil
			}
			importance = &parsed
		}

		tasks, err := database.ListTasks(ctx, progress, importance)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(map[string]any{"tasks": tasks})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func updateTaskHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uid := mcp.ParseInt64(request, "uid", 0)

		t, err := database.GetTask(ctx, uid)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if t == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Task %d not found", uid)), nil
		}

		// Only keys present in the request are touched. An empty string
		// clears the field rather than storing "".
		args, _ := request.Params.Arguments.(map[string]any)
		if name, ok := args["name"].(string); ok {
			if err := database.SetTaskName(ctx, uid, optional(name)); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		if description, ok := args["description"].(string); ok {
			if err := database.SetTaskDescription(ctx, uid, optional(description)); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		return mcp.NewToolResultText("Task updated successfully"), nil
	}
}

func deleteTaskHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uid := mcp.ParseInt64(request, "uid", 0)

		if err := database.DeleteTask(ctx, uid); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d deleted", uid)), nil
	}
}

func setProgressHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uid := mcp.ParseInt64(request, "uid", 0)
		progress := mcp.ParseString(request, "progress", "")

		parsed, ok := models.ParseProgress(progress)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid progress %q", progress)), nil
		}
		if err := database.SetTaskProgress(ctx, uid, parsed); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d progress set to %s", uid, parsed)), nil
	}
}

func setImportanceHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uid := mcp.ParseInt64(request, "uid", 0)
		importance := mcp.ParseString(request, "importance", "")

		var value *models.Importance
		if importance != "" {
			parsed, ok := models.ParseImportance(importance)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid importance %q", importance)), nil
			}
			value = &parsed
		}
		if err := database.SetTaskImportance(ctx, uid, value); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if value == nil {
			return mcp.NewToolResultText(fmt.Sprintf("Task %d importance cleared", uid)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d importance set to %s", uid, *value)), nil
	}
}

func addHierarchyHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		supertask := mcp.ParseInt64(request, "supertask_uid", 0)
		subtask := mcp.ParseInt64(request, "subtask_uid", 0)

		if err := database.CreateHierarchy(ctx, supertask, subtask); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d is now a subtask of task %d", subtask, supertask)), nil
	}
}

func removeHierarchyHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		supertask := mcp.ParseInt64(request, "supertask_uid", 0)
		subtask := mcp.ParseInt64(request, "subtask_uid", 0)

		if err := database.DeleteHierarchy(ctx, supertask, subtask); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d is no longer a subtask of task %d", subtask, supertask)), nil
	}
}

func addDependencyHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dependee := mcp.ParseInt64(request, "dependee_uid", 0)
		dependent := mcp.ParseInt64(request, "dependent_uid", 0)

		if err := database.CreateDependency(ctx, dependee, dependent); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d now depends on task %d", dependent, dependee)), nil
	}
}

func removeDependencyHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dependee := mcp.ParseInt64(request, "dependee_uid", 0)
		dependent := mcp.ParseInt64(request, "dependent_uid", 0)

		if err := database.DeleteDependency(ctx, dependee, dependent); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d no longer depends on task %d", dependent, dependee)), nil
	}
}

// rankedTask flattens a ranked task for tool output. The inherited
// importance is the highest importance among the incomplete tasks it
// unblocks, itself included.
type rankedTask struct {
	*models.Task
	InheritedImportance *models.Importance `json:"inherited_importance,omitempty"`
}

func nextTasksHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ranked, err := database.NextTasks(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		tasks := make([]rankedTask, 0, len(ranked))
		for _, r := range ranked {
			tasks = append(tasks, rankedTask{Task: r.Task, InheritedImportance: r.Importance})
		}
		data, err := json.Marshal(map[string]any{"tasks": tasks})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func exportGraphHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		network, err := database.GetNetwork(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(network)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func exportSnapshotHandler(database *db.DB, defaultPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := mcp.ParseString(request, "path", defaultPath)
		if path == "" {
			return mcp.NewToolResultError("No snapshot path configured and none given"), nil
		}

		if err := database.ExportSnapshot(ctx, path); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Snapshot written to %s", path)), nil
	}
}

// optional maps the empty string to an absent value.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
