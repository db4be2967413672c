package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/colors"
	"github.com/obask/taskonizer/pkg/config"
	"github.com/obask/taskonizer/pkg/export"
	"github.com/obask/taskonizer/pkg/model"
	"github.com/obask/taskonizer/pkg/orgmode"
	"github.com/obask/taskonizer/pkg/persist"
	"github.com/obask/taskonizer/pkg/selection"
	"github.com/obask/taskonizer/pkg/store"
	"github.com/obask/taskonizer/pkg/taskwarrior"
	"github.com/obask/taskonizer/pkg/util"
)

const usage = `usage: taskonizer [flags] <command> [args]

commands:
  add <title...>                 add a task (-category, -project)
  list [category]                show a list grouped by project (default Inbox)
  today                          show the Today list
  counts                         number of tasks per category
  done <id>                      toggle completion
  rename <id> <title...>         change a task title
  move <id> <category>           file a task under another category
  assign <id> [project]          set or clear the project of a task
  rm <id>                        delete a task
  project add|rename|rm|list     manage projects
  import taskwarrior [file|-]    import 'task export' output (runs task when no file)
  import org <file...>           import TODO/DONE headlines from Org files
  export [category]              write a list (-format, -out)
  browse [category]              select and edit tasks line by line

flags:
`

func main() {
	os.Exit(realMain())
}

// realMain returns the exit status so deferred saves run on every path
// after the store is open.
func realMain() int {
	// 1. Parse Flags
	categoryName := flag.String("category", "Inbox", "category for add")
	projectName := flag.String("project", "", "project name for add")
	format := flag.String("format", "json", "export format: "+strings.Join(export.Formats, "|"))
	out := flag.String("out", "", "export output path (stdout when empty)")
	setTodayPolicy := flag.String("set-today-policy", "", "save the Today policy: category|created")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// 2. Handle Set Today Policy
	if *setTodayPolicy != "" {
		policy, err := store.ParseTodayPolicy(*setTodayPolicy)
		if err != nil {
			log.Printf("Error: %v", err)
			return 1
		}
		if err := config.Update(func(c *config.Config) { c.TodayPolicy = policy }); err != nil {
			log.Printf("Error saving config: %v", err)
			return 1
		}
		fmt.Printf("Today policy set to: %s\n", policy)
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	// 3. Open the store
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Error loading config: %v", err)
		return 1
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Printf("Error opening task store: %v", err)
		return 1
	}
	defer closeStore()

	colorCache, err := colors.NewColorCache("")
	if err != nil {
		log.Printf("Warning: failed to load project colors: %v", err)
	} else {
		st.Subscribe(colorCache.HandleEvent)
		defer func() {
			if err := colorCache.Save(); err != nil {
				log.Printf("Warning: failed to save project colors: %v", err)
			}
		}()
	}

	// 4. Dispatch
	app := &app{st: st, colors: colorCache, stdout: os.Stdout}
	return exitCode(app.run(args, *categoryName, *projectName, *format, *out))
}

// exitCode logs err and maps it to a process status. A failed save is only a
// warning: the change was applied to the session.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, store.ErrPersistence):
		log.Printf("Warning: %v", err)
		return 0
	default:
		log.Printf("Error: %v", err)
		return 1
	}
}

func openStore(cfg *config.Config) (*store.TaskStore, func(), error) {
	var p store.Persister
	closer := func() {}
	if cfg.DSN != "" {
		sqlCtx, err := persist.NewSQLContext(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql store: %w", err)
		}
		p = sqlCtx
		closer = func() { sqlCtx.Close() }
	} else {
		fileCtx, err := persist.NewFileContext(cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		p = fileCtx
	}
	st := store.New(p, cfg.StoreOptions()...)
	if err := st.Load(); err != nil {
		closer()
		return nil, nil, err
	}
	return st, closer, nil
}

type app struct {
	st     *store.TaskStore
	colors *colors.ColorCache
	stdout io.Writer
}

func (a *app) run(args []string, categoryName, projectName, format, out string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		if len(rest) == 0 {
			return errors.New("add: missing title")
		}
		category, err := model.ParseCategory(categoryName)
		if err != nil {
			return err
		}
		var projectID *uuid.UUID
		if projectName != "" {
			p, ok := a.st.ProjectByName(projectName)
			if !ok {
				return fmt.Errorf("add: no project named %q", projectName)
			}
			projectID = &p.ID
		}
		t, err := a.st.CreateTask(strings.Join(rest, " "), category, projectID)
		if err == nil || errors.Is(err, store.ErrPersistence) {
			fmt.Fprintf(a.stdout, "Added %s %s\n", shortID(t.ID), t.Title)
		}
		return err

	case "list":
		category, err := categoryArg(rest)
		if err != nil {
			return err
		}
		a.printGroups(string(category), a.st.FilterByCategory(category))
		return nil

	case "today":
		a.printGroups(fmt.Sprintf("Today (%s)", a.st.TodayPolicy()), a.st.TodayView())
		return nil

	case "counts":
		for _, c := range model.AllCategories() {
			fmt.Fprintf(a.stdout, "%-9s %d\n", c, a.st.CountByCategory(c))
		}
		return nil

	case "done":
		id, err := a.taskArg(rest)
		if err != nil {
			return err
		}
		return a.st.ToggleCompletion(id)

	case "rename":
		id, err := a.taskArg(rest)
		if err != nil {
			return err
		}
		return a.st.RenameTask(id, strings.Join(rest[1:], " "))

	case "move":
		id, err := a.taskArg(rest)
		if err != nil {
			return err
		}
		if len(rest) < 2 {
			return errors.New("move: missing category")
		}
		category, err := model.ParseCategory(rest[1])
		if err != nil {
			return err
		}
		return a.st.SetCategory(id, category)

	case "assign":
		id, err := a.taskArg(rest)
		if err != nil {
			return err
		}
		if len(rest) < 2 {
			return a.st.AssignProject(id, nil)
		}
		pid, err := a.projectArg(rest[1:])
		if err != nil {
			return err
		}
		return a.st.AssignProject(id, &pid)

	case "rm":
		id, err := a.taskArg(rest)
		if err != nil {
			return err
		}
		return a.st.DeleteTask(id)

	case "project":
		return a.runProject(rest)

	case "import":
		return a.runImport(rest)

	case "export":
		category, err := categoryArg(rest)
		if err != nil {
			return err
		}
		var palette util.ColorSource
		if a.colors != nil {
			palette = a.colors
		}
		b, err := export.NewExporter(a.st, palette).Export(format, string(category), a.st.FilterByCategory(category))
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if out == "" {
			_, err = a.stdout.Write(b)
			return err
		}
		if err := os.WriteFile(out, b, 0644); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		fmt.Fprintf(a.stdout, "Exported -> %s\n", out)
		return nil

	case "browse":
		category, err := categoryArg(rest)
		if err != nil {
			return err
		}
		return a.browse(category, os.Stdin)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) runProject(args []string) error {
	if len(args) == 0 {
		return errors.New("project: missing subcommand")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		p, err := a.st.CreateProject(strings.Join(rest, " "))
		if err == nil || errors.Is(err, store.ErrPersistence) {
			fmt.Fprintf(a.stdout, "Added project %s %s\n", shortID(p.ID), p.Name)
		}
		return err
	case "rename":
		id, err := a.projectArg(rest)
		if err != nil {
			return err
		}
		return a.st.RenameProject(id, strings.Join(rest[1:], " "))
	case "rm":
		id, err := a.projectArg(rest)
		if err != nil {
			return err
		}
		return a.st.DeleteProject(id)
	case "list":
		for _, p := range a.st.Projects() {
			pid := p.ID
			color := ""
			if a.colors != nil {
				color = " color=" + a.colors.ColorID(&pid)
			}
			fmt.Fprintf(a.stdout, "%s %s%s\n", shortID(p.ID), p.Name, color)
		}
		return nil
	default:
		return fmt.Errorf("project: unknown subcommand %q", sub)
	}
}

func (a *app) runImport(args []string) error {
	if len(args) == 0 {
		return errors.New("import: missing source (taskwarrior|org)")
	}
	now := time.Now()
	var drafts []model.Draft
	switch args[0] {
	case "taskwarrior":
		client := taskwarrior.NewClient()
		var tasks []taskwarrior.Task
		var err error
		switch {
		case len(args) == 1:
			tasks, err = client.GetTasks(nil)
		case args[1] == "-":
			tasks, err = client.ParseTasks(os.Stdin)
		default:
			f, openErr := os.Open(args[1])
			if openErr != nil {
				return openErr
			}
			defer f.Close()
			tasks, err = client.ParseTasks(f)
		}
		if err != nil {
			return err
		}
		drafts = taskwarrior.Drafts(tasks, now)
	case "org":
		var err error
		drafts, err = orgmode.ParseFiles(args[1:], now)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("import: unknown source %q", args[0])
	}
	n, err := util.ImportDrafts(a.st, drafts)
	fmt.Fprintf(a.stdout, "Imported %d tasks\n", n)
	return err
}

func (a *app) printGroups(title string, tasks []model.Task) {
	fmt.Fprintf(a.stdout, "%s (%d)\n", title, len(tasks))
	for _, g := range a.st.GroupByProject(tasks) {
		fmt.Fprintf(a.stdout, "\n  %s\n", g.Name())
		for _, t := range g.Tasks {
			box := "[ ]"
			if t.IsCompleted {
				box = "[x]"
			}
			fmt.Fprintf(a.stdout, "  %s %s %s\n", box, shortID(t.ID), t.Title)
		}
	}
}

// browse reads one command per line: next, prev, edit, text <title>,
// commit, cancel, toggle, quit.
func (a *app) browse(category model.Category, in io.Reader) error {
	m := selection.New(a.st)
	unsubscribe := a.st.Subscribe(m.HandleEvent)
	defer unsubscribe()

	refresh := func() {
		var ids []uuid.UUID
		for _, g := range a.st.GroupByProject(a.st.FilterByCategory(category)) {
			for _, t := range g.Tasks {
				ids = append(ids, t.ID)
			}
		}
		m.SetItems(ids)
	}
	refresh()
	if err := m.SelectFirst(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	a.printSelection(m)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		verb, arg, _ := strings.Cut(line, " ")
		var err error
		switch verb {
		case "next", "j":
			m.MoveSelection(selection.Next)
		case "prev", "k":
			m.MoveSelection(selection.Prev)
		case "edit", "e":
			err = m.BeginEdit(m.State().TaskID)
		case "text", "t":
			err = m.UpdateDraft(arg)
		case "commit", "c":
			err = m.CommitEdit()
		case "cancel", "x":
			err = m.CancelEdit()
		case "toggle", "space":
			if m.State().Mode == selection.Selected {
				err = a.st.ToggleCompletion(m.State().TaskID)
			}
		case "quit", "q":
			return nil
		case "":
		default:
			err = fmt.Errorf("unknown browse command %q", verb)
		}
		if err != nil {
			fmt.Fprintf(a.stdout, "! %v\n", err)
		}
		refresh()
		a.printSelection(m)
	}
	return scanner.Err()
}

func (a *app) printSelection(m *selection.Machine) {
	s := m.State()
	switch s.Mode {
	case selection.Idle:
		fmt.Fprintln(a.stdout, "(nothing selected)")
	case selection.Selected:
		t, err := a.st.Task(s.TaskID)
		if err != nil {
			fmt.Fprintln(a.stdout, "(selection lost)")
			return
		}
		fmt.Fprintf(a.stdout, "> %s %s\n", shortID(t.ID), t.Title)
	case selection.Editing:
		fmt.Fprintf(a.stdout, "✎ %s %q\n", shortID(s.TaskID), s.Draft)
	}
}

func categoryArg(args []string) (model.Category, error) {
	if len(args) == 0 {
		return model.Inbox, nil
	}
	return model.ParseCategory(args[0])
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// taskArg resolves args[0] as a full id or a unique id prefix.
func (a *app) taskArg(args []string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, errors.New("missing task id")
	}
	var ids []uuid.UUID
	for _, t := range a.st.Tasks() {
		ids = append(ids, t.ID)
	}
	return resolveID(args[0], ids)
}

func (a *app) projectArg(args []string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, errors.New("missing project")
	}
	if p, ok := a.st.ProjectByName(args[0]); ok {
		return p.ID, nil
	}
	var ids []uuid.UUID
	for _, p := range a.st.Projects() {
		ids = append(ids, p.ID)
	}
	return resolveID(args[0], ids)
}

func resolveID(arg string, ids []uuid.UUID) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	var match uuid.UUID
	found := 0
	for _, id := range ids {
		if strings.HasPrefix(id.String(), strings.ToLower(arg)) {
			match = id
			found++
		}
	}
	switch found {
	case 0:
		return uuid.Nil, fmt.Errorf("no match for %q: %w", arg, store.ErrNotFound)
	case 1:
		return match, nil
	default:
		return uuid.Nil, fmt.Errorf("%q is ambiguous (%d matches)", arg, found)
	}
}
