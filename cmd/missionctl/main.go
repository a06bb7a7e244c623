package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/missionctl/missionctl/internal/automation"
	automationrepo "github.com/missionctl/missionctl/internal/automation/repositoryimpl"
	"github.com/missionctl/missionctl/internal/task"
	taskrepo "github.com/missionctl/missionctl/internal/task/repositoryimpl"
	"github.com/missionctl/missionctl/pkg/storage"
)

var (
	app = kingpin.New("missionctl", "Manage Mission Control task automation from the command line")

	dbPath  = app.Flag("db", "Path to the automation database").Envar("MISSIONCTL_AUTOMATION_DB_PATH").Default(".missionctl/automation.db").String()
	dataDir = app.Flag("data", "Document storage directory holding tasks").Envar("MISSIONCTL_STORAGE_BASE_DIR").Default(".missionctl/data").String()
	taskDB  = app.Flag("task-db", "Postgres URL of the task board; tasks are read from --data when empty").Envar("MISSIONCTL_TASK_DATABASE_URL").String()

	// Rule commands
	rulesCmd = app.Command("rules", "Automation rule commands")

	rulesListCmd = rulesCmd.Command("list", "List rules in evaluation order")

	rulesAddCmd      = rulesCmd.Command("add", "Create a rule")
	rulesAddName     = rulesAddCmd.Flag("name", "Rule name").String()
	rulesAddAssignTo = rulesAddCmd.Flag("assign-to", "Agent the rule assigns to").Required().String()
	rulesAddKeywords = rulesAddCmd.Flag("keyword", "Keyword matcher (repeatable)").Strings()
	rulesAddTags     = rulesAddCmd.Flag("tag", "Tag matcher (repeatable)").Strings()
	rulesAddProjects = rulesAddCmd.Flag("project", "Project matcher (repeatable)").Strings()
	rulesAddTypes    = rulesAddCmd.Flag("type", "Type matcher (repeatable)").Strings()
	rulesAddPriority = rulesAddCmd.Flag("priority", "Rule priority").Default("50").Int()
	rulesAddDisabled = rulesAddCmd.Flag("disabled", "Create the rule disabled").Bool()

	rulesDeleteCmd = rulesCmd.Command("delete", "Delete a rule")
	rulesDeleteID  = rulesDeleteCmd.Arg("id", "Rule ID").Required().String()

	// Routing commands
	previewCmd         = app.Command("preview", "Evaluate a draft task without storing anything")
	previewTitle       = previewCmd.Flag("title", "Task title").String()
	previewDescription = previewCmd.Flag("description", "Task description").String()
	previewTags        = previewCmd.Flag("tag", "Task tag (repeatable)").Strings()
	previewProject     = previewCmd.Flag("project", "Task project").String()
	previewType        = previewCmd.Flag("type", "Task type").String()
	previewOverride    = previewCmd.Flag("override", "Manual override agent").String()

	assignCmd    = app.Command("assign", "Run automation for a stored task and persist the decision")
	assignTaskID = assignCmd.Arg("task-id", "Task ID").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	db, err := automationrepo.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tasks, closeTasks, err := openTasks(ctx, *taskDB, *dataDir)
	if err != nil {
		return err
	}
	defer closeTasks()
	svc := automation.NewService(
		automationrepo.NewRuleRepository(db),
		automationrepo.NewMetadataRepository(db),
		automationrepo.NewDecisionRepository(db),
		task.NewAutomationStore(tasks),
	)

	switch command {
	case rulesListCmd.FullCommand():
		rules, err := svc.ListRules(ctx)
		if err != nil {
			return err
		}
		return printJSON(rules)

	case rulesAddCmd.FullCommand():
		enabled := !*rulesAddDisabled
		rule, err := svc.CreateRule(ctx, automation.RulePatch{
			Name:     optional(*rulesAddName),
			Enabled:  &enabled,
			Priority: rulesAddPriority,
			AssignTo: rulesAddAssignTo,
			Keywords: *rulesAddKeywords,
			Tags:     *rulesAddTags,
			Projects: *rulesAddProjects,
			Types:    *rulesAddTypes,
		})
		if err != nil {
			return err
		}
		return printJSON(rule)

	case rulesDeleteCmd.FullCommand():
		deleted, err := svc.DeleteRule(ctx, *rulesDeleteID)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("rule %s not found", *rulesDeleteID)
		}
		return printJSON(map[string]any{"deleted": true})

	case previewCmd.FullCommand():
		result, err := svc.Preview(ctx, automation.Draft{
			Title:          optional(*previewTitle),
			Description:    optional(*previewDescription),
			Tags:           *previewTags,
			Project:        optional(*previewProject),
			Type:           optional(*previewType),
			ManualOverride: optional(*previewOverride),
		})
		if err != nil {
			return err
		}
		return printJSON(result)

	case assignCmd.FullCommand():
		d, err := svc.AssignTask(ctx, *assignTaskID, nil)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("task %s not found", *assignTaskID)
		}
		return printJSON(d)
	}
	return fmt.Errorf("unknown command %q", command)
}

// openTasks picks the same task store the server uses: Postgres when a URL is
// given, the document storage directory otherwise.
func openTasks(ctx context.Context, databaseURL, dataDir string) (task.Repository, func(), error) {
	if databaseURL != "" {
		pg, err := taskrepo.NewPostgresRepository(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	st, err := storage.NewLocalStorage(dataDir)
	if err != nil {
		return nil, nil, err
	}
	return taskrepo.NewYAMLRepository(st), func() {}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
