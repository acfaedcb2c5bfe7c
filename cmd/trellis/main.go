package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/ldi/trellis/internal/config"
	"github.com/ldi/trellis/internal/db"
	"github.com/ldi/trellis/internal/editor"
	"github.com/ldi/trellis/internal/layout"
	"github.com/ldi/trellis/internal/mcp"
	"github.com/ldi/trellis/internal/server"
	"github.com/ldi/trellis/internal/task"
	"github.com/ldi/trellis/internal/ui"
	"github.com/ldi/trellis/pkg/models"
)

var (
	configPath   string
	dbPath       string
	snapshotPath string
	cfg          = config.Default()
)

// Swapped out by tests.
var (
	runMenu    = ui.RunMenu
	runBrowser = ui.RunBrowser
)

func main() {
	if err := execute(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute resolves the configuration, picks a command and runs it. With no
// command it opens the interactive menu and runs whatever was chosen there.
func execute(args []string, stderr io.Writer) error {
	flags := flag.NewFlagSet("trellis", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&configPath, "config", "", "Path to the config file")
	flags.StringVar(&dbPath, "db-path", "", "Path to the database file")
	flags.StringVar(&snapshotPath, "snapshot-path", "", "Path to the snapshot file")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: trellis [flags] <command> [arguments]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  init [dir]                Create the %s directory and database\n", config.DefaultDir)
		fmt.Fprintf(stderr, "  add [name]                Create a task\n")
		fmt.Fprintf(stderr, "  list                      List every task\n")
		fmt.Fprintf(stderr, "  show <uid>                Show one task in full\n")
		fmt.Fprintf(stderr, "  rename <uid> [name]       Set or clear a task name\n")
		fmt.Fprintf(stderr, "  describe <uid> [text]     Set or clear a task description\n")
		fmt.Fprintf(stderr, "  progress <uid> <value>    Set the progress of a concrete task\n")
		fmt.Fprintf(stderr, "  importance <uid> <value>  Set or clear the importance of a task\n")
		fmt.Fprintf(stderr, "  remove <uid>              Delete an isolated task\n")
		fmt.Fprintf(stderr, "  hierarchy <add|remove>    Connect or disconnect a supertask and subtask\n")
		fmt.Fprintf(stderr, "  dependency <add|remove>   Connect or disconnect a dependee and dependent\n")
		fmt.Fprintf(stderr, "  next                      List the tasks ready to start\n")
		fmt.Fprintf(stderr, "  status                    Summarise the task network\n")
		fmt.Fprintf(stderr, "  layout                    Print plane coordinates for a graph\n")
		fmt.Fprintf(stderr, "  snapshot <export|import>  Write or read a JSONL snapshot\n")
		fmt.Fprintf(stderr, "  browse                    Open the task browser\n")
		fmt.Fprintf(stderr, "  web                       Serve the web UI\n")
		fmt.Fprintf(stderr, "  mcp                       Serve the MCP tools on stdio\n")
		fmt.Fprintf(stderr, "\nRunning trellis with no command opens the interactive menu.\n\nFlags:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if snapshotPath == "" {
		snapshotPath = cfg.SnapshotPath
	}

	var command string
	var rest []string
	if flags.NArg() == 0 {
		selected, err := runMenu()
		if err != nil {
			return fmt.Errorf("failed to run menu: %w", err)
		}
		if selected == "" {
			return nil
		}
		command = selected
	} else {
		command = flags.Arg(0)
		rest = flags.Args()[1:]
	}

	switch command {
	case "init":
		return runInit(rest)
	case "add":
		return runAdd(rest)
	case "list":
		return runList(rest)
	case "show":
		return runShow(rest)
	case "rename":
		return runRename(rest)
	case "describe":
		return runDescribe(rest)
	case "progress":
		return runProgress(rest)
	case "importance":
		return runImportance(rest)
	case "remove":
		return runRemove(rest)
	case "hierarchy":
		return runHierarchy(rest)
	case "dependency":
		return runDependency(rest)
	case "next":
		return runNext(rest)
	case "status":
		return runStatus(rest)
	case "layout":
		return runLayout(rest)
	case "snapshot":
		return runSnapshot(rest)
	case "browse":
		return runBrowse(rest)
	case "web":
		return runWeb(rest)
	case "mcp":
		return runMCP(rest)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// openStore opens the database, runs migrations and attaches the
// auto-snapshot hook when the configuration asks for one.
func openStore(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, err
	}
	if cfg.AutoSnapshot {
		database.EnableAutoSnapshot(snapshotPath)
	}
	return database, nil
}

func parseUID(s string) (int64, error) {
	uid, err := strconv.ParseInt(s, 10, 64)
	if err != nil || uid <= 0 {
		return 0, fmt.Errorf("invalid task uid %q", s)
	}
	return uid, nil
}

func runInit(args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	trellisDir := filepath.Join(targetDir, config.DefaultDir)
	if err := os.MkdirAll(trellisDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", config.DefaultDir, err)
	}
	fmt.Printf("✓ Created %s/ directory\n", config.DefaultDir)

	gitignorePath := filepath.Join(trellisDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("trellis.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Printf("✓ Created %s/.gitignore\n", config.DefaultDir)

	// Paths still at their defaults follow the target directory.
	defaults := config.Default()
	finalDBPath := dbPath
	if dbPath == defaults.DBPath {
		finalDBPath = filepath.Join(trellisDir, "trellis.db")
	}
	finalSnapshotPath := snapshotPath
	if snapshotPath == defaults.SnapshotPath {
		finalSnapshotPath = filepath.Join(trellisDir, "snapshot.jsonl")
	}

	database, err := db.Open(finalDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Printf("✓ Initialized database at %s\n", finalDBPath)

	if _, err := os.Stat(finalSnapshotPath); err == nil {
		if err := database.ImportSnapshot(ctx, finalSnapshotPath); err != nil {
			return fmt.Errorf("failed to import snapshot: %w", err)
		}
		fmt.Printf("✓ Imported snapshot from %s\n", finalSnapshotPath)
	}

	fmt.Println("✓ Trellis initialized successfully")
	return nil
}

func runAdd(args []string) error {
	addFlags := flag.NewFlagSet("add", flag.ContinueOnError)
	description := addFlags.String("description", "", "Task description")
	if err := addFlags.Parse(args); err != nil {
		return err
	}

	// The form maps blank fields to absent, so an unnamed task stores no
	// name rather than an empty one.
	form := &editor.TaskForm{
		Name:        strings.Join(addFlags.Args(), " "),
		Description: *description,
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	created, err := database.CreateTask(ctx, form.NameValue(), form.DescriptionValue())
	if err != nil {
		return err
	}

	fmt.Printf("✓ Created task %s\n", taskLabel(created))
	return nil
}

func runList(args []string) error {
	listFlags := flag.NewFlagSet("list", flag.ContinueOnError)
	progressFilter := listFlags.String("progress", "", "Filter by stored progress")
	importanceFilter := listFlags.String("importance", "", "Filter by own importance")
	if err := listFlags.Parse(args); err != nil {
		return err
	}

	var progress *models.Progress
	if *progressFilter != "" {
		p, ok := models.ParseProgress(*progressFilter)
		if !ok {
			return fmt.Errorf("invalid progress %q, want %q, %q or %q", *progressFilter,
				models.ProgressNotStarted, models.ProgressInProgress, models.ProgressCompleted)
		}
		progress = &p
	}

	var importance *models.Importance
	if *importanceFilter != "" {
		i, ok := models.ParseImportance(*importanceFilter)
		if !ok {
			return fmt.Errorf("invalid importance %q, want low, medium or high", *importanceFilter)
		}
		importance = &i
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	tasks, err := database.ListTasks(ctx, progress, importance)
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-36s %-13s %-11s %s\n", "UID", "NAME", "PROGRESS", "IMPORTANCE", "UPDATED")
	fmt.Println(strings.Repeat("-", 88))
	for _, t := range tasks {
		name := t.DisplayName()
		if name == "" {
			name = "-"
		}
		progress := "inferred"
		if t.Progress != nil {
			progress = string(*t.Progress)
		}
		importance := "-"
		if t.Importance != nil {
			importance = string(*t.Importance)
		}
		fmt.Printf("%-6d %-36s %-13s %-11s %s\n", t.UID, name, progress, importance, humanize.Time(t.UpdatedAt))
	}
	return nil
}

func runShow(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("task uid required")
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	sys, err := database.LoadSystem(ctx)
	if err != nil {
		return err
	}
	if !sys.HasTask(uid) {
		return task.NotFoundError{UID: uid}
	}

	t := sys.Task(uid)
	progress, err := sys.Progress(uid)
	if err != nil {
		return err
	}
	importance, err := sys.EffectiveImportance(uid)
	if err != nil {
		return err
	}

	progressLine := string(progress)
	if t.Progress == nil {
		progressLine += " (inferred)"
	}
	importanceLine := "none"
	if importance != nil {
		importanceLine = string(*importance)
		if t.Importance == nil {
			importanceLine += " (inherited)"
		}
	}

	fmt.Println(taskLabel(t))
	fmt.Println()
	fmt.Printf("Progress:    %s\n", progressLine)
	fmt.Printf("Importance:  %s\n", importanceLine)
	fmt.Printf("Created:     %s\n", humanize.Time(t.CreatedAt))
	fmt.Printf("Updated:     %s\n", humanize.Time(t.UpdatedAt))

	if t.Description != nil {
		fmt.Printf("\n%s\n", *t.Description)
	}

	fmt.Println()
	fmt.Printf("Supertasks:  %s\n", relationLine(sys, sys.Supertasks(uid)))
	fmt.Printf("Subtasks:    %s\n", relationLine(sys, sys.Subtasks(uid)))
	fmt.Printf("Depends on:  %s\n", relationLine(sys, sys.Dependees(uid)))
	fmt.Printf("Blocks:      %s\n", relationLine(sys, sys.Dependents(uid)))
	return nil
}

func runRename(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("task uid required")
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}
	form := &editor.TaskForm{Name: strings.Join(args[1:], " ")}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SetTaskName(ctx, uid, form.NameValue()); err != nil {
		return err
	}
	if form.Name == "" {
		fmt.Printf("✓ Cleared name of task [%d]\n", uid)
	} else {
		fmt.Printf("✓ Renamed task [%d] to %s\n", uid, form.Name)
	}
	return nil
}

func runDescribe(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("task uid required")
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}
	form := &editor.TaskForm{Description: strings.Join(args[1:], " ")}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SetTaskDescription(ctx, uid, form.DescriptionValue()); err != nil {
		return err
	}
	if form.Description == "" {
		fmt.Printf("✓ Cleared description of task [%d]\n", uid)
	} else {
		fmt.Printf("✓ Updated description of task [%d]\n", uid)
	}
	return nil
}

func runProgress(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: trellis progress <uid> <not started|in progress|completed>")
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}
	value := strings.Join(args[1:], " ")
	progress, ok := models.ParseProgress(value)
	if !ok {
		return fmt.Errorf("invalid progress %q, want %q, %q or %q", value,
			models.ProgressNotStarted, models.ProgressInProgress, models.ProgressCompleted)
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SetTaskProgress(ctx, uid, progress); err != nil {
		return err
	}
	fmt.Printf("✓ Task [%d] is now %s\n", uid, progress)
	return nil
}

func runImportance(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: trellis importance <uid> <none|low|medium|high>")
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}
	form := &editor.TaskForm{Importance: args[1]}
	importance, ok := form.ImportanceValue()
	if !ok {
		return fmt.Errorf("invalid importance %q, want none, low, medium or high", args[1])
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SetTaskImportance(ctx, uid, importance); err != nil {
		return err
	}
	if importance == nil {
		fmt.Printf("✓ Task [%d] importance cleared\n", uid)
	} else {
		fmt.Printf("✓ Task [%d] importance set to %s\n", uid, *importance)
	}
	return nil
}

func runRemove(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("task uid required")
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.DeleteTask(ctx, uid); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted task [%d]\n", uid)
	return nil
}

func runHierarchy(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: trellis hierarchy <add|remove> <supertask-uid> <subtask-uid>")
		return nil
	}
	if len(args) != 3 {
		return fmt.Errorf("usage: trellis hierarchy %s <supertask-uid> <subtask-uid>", args[0])
	}
	super, err := parseUID(args[1])
	if err != nil {
		return err
	}
	sub, err := parseUID(args[2])
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	switch args[0] {
	case "add":
		if err := database.CreateHierarchy(ctx, super, sub); err != nil {
			return err
		}
		fmt.Printf("✓ Task [%d] is now a subtask of task [%d]\n", sub, super)
	case "remove":
		if err := database.DeleteHierarchy(ctx, super, sub); err != nil {
			return err
		}
		fmt.Printf("✓ Task [%d] is no longer a subtask of task [%d]\n", sub, super)
	default:
		return fmt.Errorf("unknown hierarchy command: %s", args[0])
	}
	return nil
}

func runDependency(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: trellis dependency <add|remove> <dependee-uid> <dependent-uid>")
		return nil
	}
	if len(args) != 3 {
		return fmt.Errorf("usage: trellis dependency %s <dependee-uid> <dependent-uid>", args[0])
	}
	dependee, err := parseUID(args[1])
	if err != nil {
		return err
	}
	dependent, err := parseUID(args[2])
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	switch args[0] {
	case "add":
		if err := database.CreateDependency(ctx, dependee, dependent); err != nil {
			return err
		}
		fmt.Printf("✓ Task [%d] now depends on task [%d]\n", dependent, dependee)
	case "remove":
		if err := database.DeleteDependency(ctx, dependee, dependent); err != nil {
			return err
		}
		fmt.Printf("✓ Task [%d] no longer depends on task [%d]\n", dependent, dependee)
	default:
		return fmt.Errorf("unknown dependency command: %s", args[0])
	}
	return nil
}

func runNext(args []string) error {
	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	ranked, err := database.NextTasks(ctx)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		fmt.Println("Nothing ready to start.")
		return nil
	}

	fmt.Println("Next up:")
	for i, r := range ranked {
		line := fmt.Sprintf("%d. %s", i+1, taskLabel(r.Task))
		if r.Importance != nil {
			line = fmt.Sprintf("%s (%s)", line, *r.Importance)
		}
		fmt.Printf("  %s\n", line)
	}
	return nil
}

func runStatus(args []string) error {
	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	sys, err := database.LoadSystem(ctx)
	if err != nil {
		return err
	}

	counts := make(map[models.Progress]int)
	for _, uid := range sys.Tasks() {
		progress, err := sys.Progress(uid)
		if err != nil {
			return err
		}
		counts[progress]++
	}
	ranked := sys.ActiveConcreteTasksByPriority()

	fmt.Println("Trellis Status")
	fmt.Println("==============")
	fmt.Printf("Total tasks:    %d\n", sys.Len())
	fmt.Printf("Ready to start: %d\n", len(ranked))

	fmt.Println("\nProgress:")
	fmt.Printf("  Not started: %d\n", counts[models.ProgressNotStarted])
	fmt.Printf("  In progress: %d\n", counts[models.ProgressInProgress])
	fmt.Printf("  Completed:   %d\n", counts[models.ProgressCompleted])

	if len(ranked) > 0 {
		fmt.Println("\nNext up:")
		for i, r := range ranked {
			if i >= 5 {
				break
			}
			line := taskLabel(r.Task)
			if r.Importance != nil {
				line = fmt.Sprintf("%s (%s)", line, *r.Importance)
			}
			fmt.Printf("  - %s\n", line)
		}
	}
	return nil
}

func runLayout(args []string) error {
	layoutFlags := flag.NewFlagSet("layout", flag.ContinueOnError)
	which := layoutFlags.String("graph", "hierarchy", "Graph to lay out (hierarchy or dependency)")
	orientationFlag := layoutFlags.String("orientation", cfg.Orientation, "Layer direction (vertical or horizontal)")
	if err := layoutFlags.Parse(args); err != nil {
		return err
	}

	orientation, ok := layout.ParseOrientation(*orientationFlag)
	if !ok {
		return fmt.Errorf("invalid orientation %q, want vertical or horizontal", *orientationFlag)
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	sys, err := database.LoadSystem(ctx)
	if err != nil {
		return err
	}

	var positions map[int64]layout.Point
	switch *which {
	case "hierarchy":
		positions = layout.Positions(sys.HierarchyGraph(), orientation)
	case "dependency":
		positions = layout.Positions(sys.DependencyGraph(), orientation)
	default:
		return fmt.Errorf("invalid graph %q, want hierarchy or dependency", *which)
	}

	uids := make([]int64, 0, len(positions))
	for uid := range positions {
		uids = append(uids, uid)
	}
	slices.Sort(uids)

	fmt.Printf("%-6s %8s %8s  %s\n", "UID", "X", "Y", "NAME")
	for _, uid := range uids {
		p := positions[uid]
		fmt.Printf("%-6d %8.2f %8.2f  %s\n", uid, p.X, p.Y, sys.Task(uid).DisplayName())
	}
	return nil
}

func runSnapshot(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: trellis snapshot <export|import> [path]")
		return nil
	}

	path := snapshotPath
	if len(args) > 1 {
		path = args[1]
	}

	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	switch args[0] {
	case "export":
		if err := database.ExportSnapshot(ctx, path); err != nil {
			return err
		}
		fmt.Printf("✓ Exported snapshot to %s\n", path)
	case "import":
		if err := database.ImportSnapshot(ctx, path); err != nil {
			return err
		}
		fmt.Printf("✓ Imported snapshot from %s\n", path)
	default:
		return fmt.Errorf("unknown snapshot command: %s", args[0])
	}
	return nil
}

func runBrowse(args []string) error {
	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	return runBrowser(database)
}

func runWeb(args []string) error {
	webFlags := flag.NewFlagSet("web", flag.ContinueOnError)
	addr := webFlags.String("addr", cfg.WebAddr, "Address to listen on")
	if err := webFlags.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	srv := server.NewServer(database)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(*addr)
	}()
	fmt.Printf("Serving the task board at http://%s\n", *addr)

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(args []string) error {
	ctx := context.Background()
	database, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	return mcp.Serve(mcp.NewServer(database, snapshotPath))
}

func taskLabel(t *models.Task) string {
	if name := t.DisplayName(); name != "" {
		return fmt.Sprintf("[%d] %s", t.UID, name)
	}
	return fmt.Sprintf("[%d]", t.UID)
}

func relationLine(sys *task.System, uids []int64) string {
	if len(uids) == 0 {
		return "(none)"
	}

	slices.Sort(uids)
	labels := make([]string, 0, len(uids))
	for _, uid := range uids {
		labels = append(labels, taskLabel(sys.Task(uid)))
	}
	return strings.Join(labels, ", ")
}
