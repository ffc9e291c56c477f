package cmd_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todoed/internal/shutdown"
	"todoed/internal/testutil"
)

// =============================================================================
// Root command
// =============================================================================

func TestHelp(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("--help")

	for _, want := range []string{"todoed", "list", "add", "toggle", "rm", "clear-completed", "login", "logout", "whoami", "version"} {
		testutil.AssertContains(t, stdout, want)
	}
}

func TestVersionFlag(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("--version")
	testutil.AssertContains(t, stdout, "todoed version")
}

func TestVersionCommand(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("version")
	testutil.AssertContains(t, stdout, "Version:")
	testutil.AssertContains(t, stdout, "Commit:")
	testutil.AssertNotContains(t, stdout, "Go Version:")

	stdout = cli.MustExecute("version", "-v")
	testutil.AssertContains(t, stdout, "Go Version:")
	testutil.AssertContains(t, stdout, "Platform:")
}

func TestVersionJSON(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("version", "--json")

	var resp struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if resp.Version == "" || resp.GoVersion == "" {
		t.Errorf("incomplete version response: %+v", resp)
	}
}

func TestEditorNeedsTerminal(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout, stderr := cli.ExecuteAndFail()

	testutil.AssertContains(t, stderr, "interactive terminal")
	testutil.AssertResultCode(t, stdout, testutil.ResultError)
}

func TestUnknownCommand(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("frobnicate")
	testutil.AssertContains(t, stderr, "unknown command")
}

func TestInvalidConfig(t *testing.T) {
	cli := testutil.NewCLITestWithConfig(t, "backend: carrier-pigeon\n")

	_, stderr := cli.ExecuteAndFail("list")
	testutil.AssertContains(t, stderr, "Error:")
}

func TestInvalidBackendFlag(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("list", "--backend", "carrier-pigeon")
	testutil.AssertContains(t, stderr, "carrier-pigeon")
}

func TestShutdownCancelsCommand(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.SetFullConfig("backend: file\nfile:\n  path: " + filepath.Join(cli.TmpDir(), "tasks.md") + "\n")

	mgr := shutdown.NewManager()
	mgr.Shutdown()
	cli.Config().Shutdown = mgr

	_, stderr := cli.ExecuteAndFail("list")
	testutil.AssertContains(t, stderr, "context canceled")
}

// =============================================================================
// Task commands (local backend)
// =============================================================================

func TestListEmpty(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("list")

	testutil.AssertContains(t, stdout, "No tasks.")
	testutil.AssertResultCode(t, stdout, testutil.ResultInfoOnly)
}

func TestAddAndList(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("add", "Buy", "milk")
	testutil.AssertContains(t, stdout, "Added task 1: Buy milk")
	testutil.AssertResultCode(t, stdout, testutil.ResultActionCompleted)

	cli.MustExecute("add", "Walk the dog")

	stdout = cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "1. [ ] Buy milk")
	testutil.AssertContains(t, stdout, "2. [ ] Walk the dog")
	testutil.AssertContains(t, stdout, "0 of 2 done")
}

func TestAddRejectsMultilineTitle(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("add", "one\ntwo")
	testutil.AssertContains(t, stderr, "single line")

	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "No tasks.")
}

func TestToggle(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	cli.MustExecute("add", "Walk the dog")

	stdout := cli.MustExecute("toggle", "2")
	testutil.AssertContains(t, stdout, "Completed task 2: Walk the dog")

	stdout = cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "2. [x] Walk the dog")
	testutil.AssertContains(t, stdout, "1 of 2 done")

	stdout = cli.MustExecute("toggle", "2")
	testutil.AssertContains(t, stdout, "Reopened task 2: Walk the dog")
}

func TestToggleInvalidNumber(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"not a number", "two", "invalid task number"},
		{"zero", "0", "task 0 does not exist"},
		{"past the end", "3", "task 3 does not exist (list has 1 tasks)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := testutil.NewCLITest(t)
			cli.MustExecute("add", "Buy milk")

			_, stderr := cli.ExecuteAndFail("toggle", tt.arg)
			testutil.AssertContains(t, stderr, tt.want)
			testutil.AssertContains(t, stderr, "Suggestion:")
		})
	}
}

func TestTaskNumberRequiredWithoutPrompt(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")

	_, stderr := cli.ExecuteAndFail("toggle")
	testutil.AssertContains(t, stderr, "task number required")
}

func TestTogglePromptsForTask(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	cli.MustExecute("add", "Walk the dog")

	cli.Config().NoPrompt = false
	cli.SetStdin("\n2\n")
	stdout := cli.MustExecute("toggle")

	testutil.AssertContains(t, stdout, "  1) - [ ] Buy milk")
	testutil.AssertContains(t, stdout, "Completed task 2: Walk the dog")
}

func TestRemovePromptFilters(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	cli.MustExecute("add", "Walk the dog")
	cli.MustExecute("add", "Buy bread")

	cli.Config().NoPrompt = false
	cli.SetStdin("dog\n")
	stdout := cli.MustExecute("rm")

	testutil.AssertContains(t, stdout, "Auto-selected: - [ ] Walk the dog")
	testutil.AssertContains(t, stdout, "Removed task 2: Walk the dog")
}

func TestTogglePromptCancelled(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	cli.MustExecute("add", "Walk the dog")

	cli.Config().NoPrompt = false
	cli.SetStdin("\n0\n")
	stdout := cli.MustExecute("toggle")
	testutil.AssertContains(t, stdout, "Cancelled")

	cli.Config().NoPrompt = true
	stdout = cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "0 of 2 done")
}

func TestAddPromptsForTitle(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("add")
	testutil.AssertContains(t, stderr, "task title required")

	cli.Config().NoPrompt = false
	cli.SetStdin("\nBuy milk\n")
	stdout := cli.MustExecute("add")
	testutil.AssertContains(t, stdout, "Title is required")
	testutil.AssertContains(t, stdout, "Added task 1: Buy milk")
}

func TestRemove(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	cli.MustExecute("add", "Walk the dog")
	cli.MustExecute("add", "Call mum")

	stdout := cli.MustExecute("rm", "2")
	testutil.AssertContains(t, stdout, "Removed task 2: Walk the dog")

	stdout = cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "1. [ ] Buy milk")
	testutil.AssertContains(t, stdout, "2. [ ] Call mum")
	testutil.AssertNotContains(t, stdout, "Walk the dog")
}

func TestRemoveAliases(t *testing.T) {
	for _, alias := range []string{"remove", "delete"} {
		t.Run(alias, func(t *testing.T) {
			cli := testutil.NewCLITest(t)
			cli.MustExecute("add", "Buy milk")

			stdout := cli.MustExecute(alias, "1")
			testutil.AssertContains(t, stdout, "Removed task 1: Buy milk")
		})
	}
}

func TestClearCompleted(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "a")
	cli.MustExecute("add", "b")
	cli.MustExecute("add", "c")
	cli.MustExecute("toggle", "1")
	cli.MustExecute("toggle", "3")

	stdout := cli.MustExecute("clear-completed")
	testutil.AssertContains(t, stdout, "Removed 2 completed task(s)")

	stdout = cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "1. [ ] b")
	testutil.AssertContains(t, stdout, "0 of 1 done")

	// Nothing left to clear
	stdout = cli.MustExecute("clear-completed")
	testutil.AssertContains(t, stdout, "Removed 0 completed task(s)")
}

func TestClearCompletedConfirmation(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "a")
	cli.MustExecute("toggle", "1")
	cli.Config().NoPrompt = false

	cli.SetStdin("n\n")
	stdout := cli.MustExecute("clear-completed")
	testutil.AssertContains(t, stdout, "Delete 1 completed task(s)? (y/n)")
	testutil.AssertContains(t, stdout, "Cancelled")

	cli.SetStdin("y\n")
	stdout = cli.MustExecute("clear-completed")
	testutil.AssertContains(t, stdout, "Removed 1 completed task(s)")
}

func TestListMarkdown(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	cli.MustExecute("add", "Walk the dog")
	cli.MustExecute("toggle", "1")

	stdout := cli.MustExecute("list", "--format", "markdown")

	testutil.AssertContains(t, stdout, "Tasks")
	testutil.AssertContains(t, stdout, "Buy milk")
	testutil.AssertContains(t, stdout, "1 of 2 done")
}

func TestListUnknownFormat(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("list", "-f", "yaml")
	testutil.AssertContains(t, stderr, "unknown format")
}

func TestPersistsAcrossRuns(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")

	if _, err := os.Stat(cli.Config().DBPath); err != nil {
		t.Fatalf("database not created: %v", err)
	}

	// A second helper pointed at the same files sees the task
	other := testutil.NewCLITest(t)
	other.Config().DBPath = cli.Config().DBPath
	stdout := other.MustExecute("list")
	testutil.AssertContains(t, stdout, "Buy milk")
}

// =============================================================================
// JSON output
// =============================================================================

func TestListJSON(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Buy milk")
	cli.MustExecute("add", "Walk the dog")
	cli.MustExecute("toggle", "2")

	stdout := cli.MustExecute("list", "--json")

	var resp struct {
		Tasks []struct {
			Number int    `json:"number"`
			Title  string `json:"title"`
			Done   bool   `json:"done"`
		} `json:"tasks"`
		Backend string `json:"backend"`
		Count   int    `json:"count"`
		Done    int    `json:"done"`
		Result  string `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if resp.Count != 2 || resp.Done != 1 {
		t.Errorf("count = %d, done = %d; want 2, 1", resp.Count, resp.Done)
	}
	if len(resp.Tasks) != 2 || resp.Tasks[1].Number != 2 || resp.Tasks[1].Title != "Walk the dog" || !resp.Tasks[1].Done {
		t.Errorf("tasks = %+v", resp.Tasks)
	}
	if resp.Result != testutil.ResultInfoOnly {
		t.Errorf("result = %q", resp.Result)
	}
	if resp.Backend == "" {
		t.Error("backend name missing")
	}
}

func TestEmptyListJSON(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("list", "--json")
	testutil.AssertContains(t, stdout, `"tasks":[]`)
}

func TestAddJSON(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("add", "Buy milk", "--json")

	var resp struct {
		Action string `json:"action"`
		Task   *struct {
			Number int    `json:"number"`
			Title  string `json:"title"`
		} `json:"task"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if resp.Action != "add" || resp.Task == nil || resp.Task.Number != 1 || resp.Task.Title != "Buy milk" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Result != testutil.ResultActionCompleted {
		t.Errorf("result = %q", resp.Result)
	}
}

func TestClearCompletedJSON(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "a")
	cli.MustExecute("toggle", "1")

	stdout := cli.MustExecute("clear-completed", "--json")
	testutil.AssertContains(t, stdout, `"removed":1`)
}

func TestErrorJSON(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout, _, code := cli.Execute("rm", "5", "--json")
	testutil.AssertExitCode(t, code, 1)

	var resp struct {
		Error  string `json:"error"`
		Code   int    `json:"code"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if resp.Result != testutil.ResultError || resp.Code != 1 {
		t.Errorf("response = %+v", resp)
	}
	if !strings.Contains(resp.Error, "task 5 does not exist") || strings.Contains(resp.Error, "Suggestion") {
		t.Errorf("error = %q", resp.Error)
	}
}

// =============================================================================
// File backend
// =============================================================================

func TestFileBackend(t *testing.T) {
	cli := testutil.NewCLITest(t)
	path := filepath.Join(cli.TmpDir(), "tasks.md")
	cli.SetFullConfig("backend: local\nfile:\n  path: " + path + "\n")

	cli.MustExecute("--backend", "file", "add", "Buy milk")
	cli.MustExecute("--backend", "file", "add", "Walk the dog")
	cli.MustExecute("--backend", "file", "toggle", "1")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("markdown file not written: %v", err)
	}
	testutil.AssertContains(t, string(data), "- [x] Buy milk")
	testutil.AssertContains(t, string(data), "- [ ] Walk the dog")

	// The local database is untouched
	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "No tasks.")
}

func TestFileBackendReadsHandEditedFile(t *testing.T) {
	cli := testutil.NewCLITest(t)
	path := filepath.Join(cli.TmpDir(), "tasks.md")
	cli.SetFullConfig("backend: file\nfile:\n  path: " + path + "\n")

	content := "# Groceries\n\n- [ ] eggs\n* [X] flour\nnot a task\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "1. [ ] eggs")
	testutil.AssertContains(t, stdout, "2. [x] flour")
	testutil.AssertContains(t, stdout, "1 of 2 done")
}

// =============================================================================
// Remote backend and sign-in
// =============================================================================

func TestSessionCommandsNeedRemote(t *testing.T) {
	for _, command := range []string{"login", "logout", "whoami"} {
		t.Run(command, func(t *testing.T) {
			cli := testutil.NewCLITest(t)

			_, stderr := cli.ExecuteAndFail(command)
			testutil.AssertContains(t, stderr, "does not need signing in")
		})
	}
}

func TestRemoteRequiresLogin(t *testing.T) {
	cli := testutil.NewCLITestWithRemote(t)

	_, stderr := cli.ExecuteAndFail("list")
	testutil.AssertContains(t, stderr, "not logged in")
	testutil.AssertContains(t, stderr, "todoed login")

	stdout := cli.MustExecute("whoami")
	testutil.AssertContains(t, stdout, "Not signed in")
}

func TestRemoteLoginFlow(t *testing.T) {
	cli := testutil.NewCLITestWithRemote(t)

	stdout := cli.MustExecute("login")
	testutil.AssertContains(t, stdout, "Signed in as "+testutil.DriveUser)
	if cli.Logins() != 1 {
		t.Errorf("sign-in ran %d times, want 1", cli.Logins())
	}

	// The stored token is reused
	stdout = cli.MustExecute("login")
	testutil.AssertContains(t, stdout, "Already signed in as "+testutil.DriveUser)
	if cli.Logins() != 1 {
		t.Errorf("sign-in ran %d times, want 1", cli.Logins())
	}

	stdout = cli.MustExecute("whoami", "--json")
	testutil.AssertContains(t, stdout, `"signed_in":true`)
	testutil.AssertContains(t, stdout, `"username":"`+testutil.DriveUser+`"`)

	stdout = cli.MustExecute("logout")
	testutil.AssertContains(t, stdout, "Signed out")

	stdout = cli.MustExecute("whoami")
	testutil.AssertContains(t, stdout, "Not signed in")

	// Signing out twice is fine
	cli.MustExecute("logout")
}

func TestRemoteTasks(t *testing.T) {
	cli := testutil.NewCLITestWithRemote(t)
	cli.MustExecute("login")

	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "No tasks.")

	cli.MustExecute("add", "Buy milk")
	cli.MustExecute("add", "Walk the dog")
	cli.MustExecute("toggle", "2")

	data, ok := cli.Drive.Document("todoed.json")
	if !ok {
		t.Fatal("document not created on the remote")
	}
	var tasks []struct {
		Title string `json:"title"`
		Done  bool   `json:"done"`
	}
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("remote document is not JSON: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "Buy milk" || tasks[0].Done || !tasks[1].Done {
		t.Errorf("remote tasks = %+v", tasks)
	}

	stdout = cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "2. [x] Walk the dog")
}

func TestRemoteReadsExistingDocument(t *testing.T) {
	cli := testutil.NewCLITestWithRemote(t)
	cli.Drive.PutDocument("todoed.json", []byte(`[{"title":"from another device","done":true}]`))
	cli.MustExecute("login")

	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "1. [x] from another device")
}

func TestRemoteInvalidDocument(t *testing.T) {
	cli := testutil.NewCLITestWithRemote(t)
	cli.Drive.PutDocument("todoed.json", []byte(`{"not":"a list"}`))
	cli.MustExecute("login")

	_, stderr := cli.ExecuteAndFail("list")
	testutil.AssertContains(t, stderr, "Error:")
}

func TestRemoteMissingClientSecrets(t *testing.T) {
	cli := testutil.NewCLITestWithRemote(t)
	cli.SetFullConfig("backend: remote\nremote:\n  client_secrets: " + filepath.Join(cli.TmpDir(), "missing.json") + "\n")

	cli.ExecuteAndFail("login")
	if cli.Logins() != 0 {
		t.Errorf("sign-in ran without client secrets")
	}
}
