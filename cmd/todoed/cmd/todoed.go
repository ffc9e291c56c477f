package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"google.golang.org/api/option"

	"todoed/backend"
	"todoed/backend/drive"
	"todoed/backend/file"
	"todoed/backend/sqlite"
	"todoed/internal/cli/prompt"
	"todoed/internal/config"
	"todoed/internal/credentials"
	"todoed/internal/markdown"
	"todoed/internal/ratelimit"
	"todoed/internal/session"
	"todoed/internal/shutdown"
	"todoed/internal/tasklist"
	"todoed/internal/tui"
	"todoed/internal/utils"
	"todoed/internal/watcher"
)

// Build information, set at build time
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds application configuration
type Config struct {
	NoPrompt   bool
	Verbose    bool
	ConfigPath string    // Path to config file; empty uses the XDG default
	DBPath     string    // Overrides local.path (for testing)
	Stdin      io.Reader // Prompt input; defaults to os.Stdin

	// Shutdown cancels commands on a signal and releases what the editor
	// opened. When nil, Execute uses its own and cleans up before returning.
	Shutdown *shutdown.Manager

	// Remote backend hooks (for testing)
	Keyring       credentials.Keyring
	Login         drive.LoginFunc
	ClientOptions []option.ClientOption
}

// cleanupTimeout bounds how long Execute waits for cleanups it owns.
const cleanupTimeout = 5 * time.Second

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Shutdown == nil {
		c.Shutdown = shutdown.NewManager()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()
			_ = c.Shutdown.Wait(ctx)
		}()
	}

	rootCmd := NewTodoEd(stdout, stderr, &c)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(c.Shutdown.Context()); err != nil {
		// Check if --json flag was passed to output error as JSON
		if containsJSONFlag(args) {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			// Emit ERROR result code in no-prompt mode
			if c.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// app carries what every command needs once flags are parsed.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	cfg        *Config
	conf       *config.Config
	jsonOutput bool
}

// NewTodoEd creates the root command with injectable IO
func NewTodoEd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}
	a := &app{stdout: stdout, stderr: stderr, cfg: cfg}

	cmd := &cobra.Command{
		Use:     "todoed",
		Short:   "A terminal todo list editor",
		Long:    "todoed edits a single todo list in the terminal and keeps it in a local database, a markdown file or your Google Drive.",
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			return a.runEditor(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/todoed/config.yaml)")
	cmd.PersistentFlags().String("backend", "", "Backend to use: local, file or remote")
	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newToggleCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newClearCompletedCmd(a))
	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// setup loads the configuration and applies global flags.
func (a *app) setup(cmd *cobra.Command) error {
	if noPrompt, _ := cmd.Flags().GetBool("no-prompt"); noPrompt {
		a.cfg.NoPrompt = true
	}
	a.jsonOutput, _ = cmd.Flags().GetBool("json")

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = a.cfg.ConfigPath
	}
	conf, err := config.Load(path)
	if err != nil {
		return err
	}

	backendName, _ := cmd.Flags().GetString("backend")
	verbose, _ := cmd.Flags().GetBool("verbose")
	conf.ApplyFlags(backendName, verbose || a.cfg.Verbose)
	if a.cfg.DBPath != "" {
		conf.Local.Path = a.cfg.DBPath
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	utils.GetLogger().Configure(conf.Logging.Level, conf.Logging.Format)
	a.conf = conf
	utils.Debugf("using %s backend", conf.Backend)
	return nil
}

func (a *app) stdin() io.Reader {
	if a.cfg.Stdin != nil {
		return a.cfg.Stdin
	}
	return os.Stdin
}

// getStore opens the configured backend. The session controller is non-nil
// only for backends that need a signed-in user. prompt receives the sign-in
// URL when a browser cannot be opened.
func (a *app) getStore(prompt io.Writer) (backend.Store, *session.Controller, error) {
	switch a.conf.Backend {
	case "local":
		path := a.conf.Local.Path
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, nil, fmt.Errorf("could not create data directory: %w", err)
			}
		}
		store, err := sqlite.New(path, a.conf.Local.Key)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case "file":
		store, err := file.New(file.Config{FilePath: a.conf.File.Path})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case "remote":
		oauthCfg, err := drive.LoadOAuthConfig(a.conf.Remote.ClientSecrets)
		if err != nil {
			return nil, nil, err
		}
		var credOpts []credentials.ManagerOption
		if a.cfg.Keyring != nil {
			credOpts = append(credOpts, credentials.WithKeyring(a.cfg.Keyring))
		}
		remote := drive.NewRemote(drive.RemoteOptions{
			Config: drive.Config{
				Document: a.conf.Remote.Document,
				Timeout:  a.conf.GetRemoteTimeout(),
			},
			OAuth:       oauthCfg,
			Credentials: credentials.NewManager(credOpts...),
			RateLimit: ratelimit.Config{
				RequestsPerSecond: a.conf.Remote.RequestsPerSecond,
				EnableJitter:      true,
				Backend:           "remote",
			},
			Login:         a.cfg.Login,
			Prompt:        prompt,
			ClientOptions: a.cfg.ClientOptions,
		})
		sess := session.New(remote)
		sess.OnLogin(func(u session.User) { utils.Infof("signed in as %s", u.Username) })
		sess.OnLogout(func() { utils.Infof("signed out") })
		return remote, sess, nil

	default:
		return nil, nil, utils.ErrUnknownBackend(a.conf.Backend)
	}
}

// openStore opens the backend for a one-shot command, restoring the stored
// session when the backend needs one.
func (a *app) openStore(ctx context.Context) (backend.Store, error) {
	store, sess, err := a.getStore(a.stderr)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return store, nil
	}

	ok, err := sess.Restore(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if !ok {
		_ = store.Close()
		return nil, utils.NotLoggedIn(store.Name())
	}
	return store, nil
}

// requireSession opens the backend and fails unless it has sign-in.
func (a *app) requireSession() (backend.Store, *session.Controller, error) {
	store, sess, err := a.getStore(a.stderr)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		_ = store.Close()
		return nil, nil, utils.WrapWithSuggestion(
			fmt.Errorf("the %s backend does not need signing in", store.Name()),
			"Use --backend remote or set 'backend: remote' in your config",
		)
	}
	return store, sess, nil
}

// runEditor starts the interactive editor. What it opens is released by
// the shutdown manager's cleanups, after the program has exited.
func (a *app) runEditor(ctx context.Context) error {
	out, ok := a.stdout.(*os.File)
	if !ok || !term.IsTerminal(int(out.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return utils.WrapWithSuggestion(
			errors.New("the editor needs an interactive terminal"),
			"Use 'todoed list', 'todoed add' and friends in scripts",
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cleanup := a.cleanupRegistry()

	// Log lines would draw over the UI.
	logFile, err := utils.OpenLogFile(a.conf.Logging.File)
	if err != nil {
		_, _ = fmt.Fprintf(a.stderr, "Warning: logging disabled: %v\n", err)
	}
	cleanup.RegisterCleanup("log file", func(context.Context) error {
		logFile.Close()
		return nil
	})

	notices := &tui.NoticeWriter{}
	store, sess, err := a.getStore(notices)
	if err != nil {
		return err
	}
	cleanup.RegisterCleanup("store", func(context.Context) error { return store.Close() })

	if fb, ok := store.(*file.Backend); ok {
		a.watchFile(fb, notices, cleanup)
	}

	model := tui.New(store, sess)
	model.SetContext(ctx)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(out))
	notices.Attach(p)

	utils.Infof("editor started with %s backend", store.Name())
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *app) cleanupRegistry() *shutdown.Manager {
	if a.cfg.Shutdown == nil {
		a.cfg.Shutdown = shutdown.NewManager()
	}
	return a.cfg.Shutdown
}

// watchFile posts a notice when the markdown file is changed by another
// program while the editor is open.
func (a *app) watchFile(fb *file.Backend, notices io.Writer, cleanup *shutdown.Manager) {
	w, err := watcher.New(watcher.Config{
		Path: fb.Path(),
		OnChange: func() {
			changed, err := fb.Changed()
			if err != nil {
				utils.Warnf("checking %s: %v", fb.Path(), err)
				return
			}
			if changed {
				_, _ = fmt.Fprintf(notices, "%s changed outside the editor; saving will overwrite it", filepath.Base(fb.Path()))
			}
		},
	})
	if err == nil {
		// The file may not exist yet; its directory must.
		_ = os.MkdirAll(filepath.Dir(fb.Path()), 0755)
		if err = w.Start(); err != nil {
			w.Stop()
		}
	}
	if err != nil {
		utils.Warnf("not watching %s: %v", fb.Path(), err)
		return
	}
	cleanup.RegisterCleanup("watcher", func(context.Context) error {
		w.Stop()
		return nil
	})
}

// --- One-shot commands ---

func newListCmd(a *app) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			return a.doList(cmd.Context(), format)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	listCmd.Flags().StringP("format", "f", "text", "Output format: text or markdown")
	return listCmd
}

func (a *app) doList(ctx context.Context, format string) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tasks, _, res := backend.LoadResult(ctx, store)
	if !res.OK() {
		return res.Err
	}
	counts := tasklist.New(tasks...).Counts()

	if a.jsonOutput {
		return outputTaskListJSON(tasks, counts, store.Name(), a.stdout)
	}

	switch format {
	case "markdown", "md":
		out, err := markdown.Render(tasks, terminalWidth(a.stdout))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(a.stdout, out)
	case "text", "":
		printTasks(tasks, counts, a.stdout)
	default:
		return fmt.Errorf("unknown format: %s (use text or markdown)", format)
	}

	if a.cfg.NoPrompt {
		_, _ = fmt.Fprintln(a.stdout, ResultInfoOnly)
	}
	return nil
}

func printTasks(tasks backend.TaskList, counts tasklist.Counts, stdout io.Writer) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(stdout, "No tasks.")
		return
	}
	width := len(fmt.Sprint(len(tasks)))
	for i, t := range tasks {
		_, _ = fmt.Fprintf(stdout, "%*d. [%s] %s\n", width, i+1, markdown.FormatStatusChar(t.Done), t.Title)
	}
	_, _ = fmt.Fprintf(stdout, "\n%d of %d done\n", counts.Done, counts.Total)
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add [title]",
		Short: "Append a task",
		Long:  "Append a task. Without a title, asks for one unless prompts are disabled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			title := strings.Join(args, " ")
			if len(args) == 0 {
				t, err := (&prompt.TitleReader{
					Reader:   a.stdin(),
					Writer:   a.stdout,
					NoPrompt: a.cfg.NoPrompt || a.jsonOutput,
				}).Run()
				if errors.Is(err, prompt.ErrNoPromptMode) {
					return errors.New("task title required in no-prompt mode")
				}
				if errors.Is(err, prompt.ErrSelectionCancelled) {
					_, _ = fmt.Fprintln(a.stdout, "Cancelled")
					return nil
				}
				if err != nil {
					return err
				}
				title = t
			}
			if err := utils.ValidateTitle(title); err != nil {
				return err
			}
			return a.doMutation(cmd.Context(), "add", func(_ *tasklist.List) (tasklist.Action, error) {
				return tasklist.Add(backend.Task{Title: title}), nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [n]",
		Short: "Mark task n done, or not done again",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			return a.doMutation(cmd.Context(), "toggle", func(l *tasklist.List) (tasklist.Action, error) {
				i, err := a.pickTask(l, args, "Toggle task")
				if err != nil {
					return tasklist.Action{}, err
				}
				return tasklist.Toggle(i), nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [n]",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete task n",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			return a.doMutation(cmd.Context(), "remove", func(l *tasklist.List) (tasklist.Action, error) {
				i, err := a.pickTask(l, args, "Delete task")
				if err != nil {
					return tasklist.Action{}, err
				}
				return tasklist.Remove(i), nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newClearCompletedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every done task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			return a.doMutation(cmd.Context(), "clear-completed", func(l *tasklist.List) (tasklist.Action, error) {
				done := l.Counts().Done
				if done > 0 && !a.cfg.NoPrompt && !a.jsonOutput {
					prompt := fmt.Sprintf("Delete %d completed task(s)?", done)
					if !utils.PromptYesNoWithReader(prompt, a.stdin(), a.stdout) {
						return tasklist.Action{}, errCancelled
					}
				}
				return tasklist.ClearCompleted(), nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

var errCancelled = errors.New("cancelled")

// pickTask resolves the task number argument, or asks for one when it is
// missing and prompts are allowed.
func (a *app) pickTask(l *tasklist.List, args []string, title string) (int, error) {
	if len(args) == 1 {
		return utils.ParseTaskNumber(args[0], l.Len())
	}

	i, err := (&prompt.TaskSelector{
		Tasks:    l.Snapshot(),
		Prompt:   title,
		Reader:   a.stdin(),
		Writer:   a.stdout,
		NoPrompt: a.cfg.NoPrompt || a.jsonOutput,
	}).Run()
	switch {
	case errors.Is(err, prompt.ErrNoPromptMode):
		return -1, errors.New("task number required in no-prompt mode")
	case errors.Is(err, prompt.ErrNoTasks):
		return -1, errors.New("no tasks")
	}
	return i, err
}

// doMutation loads the list, applies the action chosen by pick and saves.
func (a *app) doMutation(ctx context.Context, name string, pick func(*tasklist.List) (tasklist.Action, error)) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tasks, _, res := backend.LoadResult(ctx, store)
	if !res.OK() {
		return res.Err
	}
	l := tasklist.New(tasks...)

	action, err := pick(l)
	if errors.Is(err, errCancelled) || errors.Is(err, prompt.ErrSelectionCancelled) {
		_, _ = fmt.Fprintln(a.stdout, "Cancelled")
		return nil
	}
	if err != nil {
		return err
	}

	// Capture the target before it is removed.
	target, _ := l.At(action.Index)
	doneBefore := l.Counts().Done

	eff := l.Apply(action)
	if action.Kind != tasklist.KindClearCompleted && !eff.Applied {
		return utils.ErrTaskIndexOutOfRange(action.Index+1, l.Len())
	}

	if eff.Applied {
		if res := backend.SaveResult(ctx, store, l.Snapshot()); !res.OK() {
			return res.Err
		}
		utils.Debugf("%s: saved %d tasks to %s", name, l.Len(), store.Name())
	}

	var task backend.Task
	var index int
	var message string
	switch action.Kind {
	case tasklist.KindAdd:
		index = eff.Focus
		task, _ = l.At(index)
		message = fmt.Sprintf("Added task %d: %s", index+1, task.Title)
	case tasklist.KindToggle:
		index = action.Index
		task, _ = l.At(index)
		verb := "Reopened"
		if task.Done {
			verb = "Completed"
		}
		message = fmt.Sprintf("%s task %d: %s", verb, index+1, task.Title)
	case tasklist.KindRemove:
		index = action.Index
		task = target
		message = fmt.Sprintf("Removed task %d: %s", index+1, task.Title)
	case tasklist.KindClearCompleted:
		message = fmt.Sprintf("Removed %d completed task(s)", doneBefore)
	}

	if a.jsonOutput {
		resp := actionResponse{Action: name, Result: ResultActionCompleted}
		if action.Kind == tasklist.KindClearCompleted {
			resp.Removed = doneBefore
		} else {
			tj := toTaskJSON(index, task)
			resp.Task = &tj
		}
		return writeJSON(resp, a.stdout)
	}

	_, _ = fmt.Fprintln(a.stdout, message)
	if a.cfg.NoPrompt {
		_, _ = fmt.Fprintln(a.stdout, ResultActionCompleted)
	}
	return nil
}

// --- Session commands ---

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to the remote backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			store, sess, err := a.requireSession()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if ok, err := sess.Restore(ctx); err == nil && ok {
				user, _ := sess.User()
				return a.printUser(user, true, "Already signed in as")
			}
			if err := sess.Login(ctx); err != nil {
				return err
			}
			user, _ := sess.User()
			return a.printUser(user, true, "Signed in as")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			store, sess, err := a.requireSession()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := sess.Logout(cmd.Context()); err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(actionResponse{Action: "logout", Result: ResultActionCompleted}, a.stdout)
			}
			_, _ = fmt.Fprintln(a.stdout, "Signed out")
			if a.cfg.NoPrompt {
				_, _ = fmt.Fprintln(a.stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in remote user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			store, sess, err := a.requireSession()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ok, err := sess.Restore(cmd.Context())
			if err != nil {
				return err
			}
			user, _ := sess.User()
			return a.printUser(user, ok, "Signed in as")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func (a *app) printUser(user session.User, signedIn bool, prefix string) error {
	if a.jsonOutput {
		return writeJSON(userResponse{
			SignedIn:  signedIn,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
			Result:    ResultInfoOnly,
		}, a.stdout)
	}
	if signedIn {
		_, _ = fmt.Fprintf(a.stdout, "%s %s\n", prefix, user.Username)
	} else {
		_, _ = fmt.Fprintln(a.stdout, "Not signed in")
	}
	if a.cfg.NoPrompt {
		_, _ = fmt.Fprintln(a.stdout, ResultInfoOnly)
	}
	return nil
}

// --- Version ---

func newVersionCmd(a *app) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			jsonOutput, _ := cmd.Flags().GetBool("json")

			if jsonOutput {
				return writeJSON(versionResponse{
					Version:   Version,
					Commit:    Commit,
					BuildDate: BuildDate,
					GoVersion: runtime.Version(),
					Platform:  runtime.GOOS + "/" + runtime.GOARCH,
				}, a.stdout)
			}

			_, _ = fmt.Fprintf(a.stdout, "todoed\nVersion: %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildDate)
			if verbose {
				_, _ = fmt.Fprintf(a.stdout, "Go Version: %s\nPlatform: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	versionCmd.Flags().BoolP("verbose", "v", false, "Show build details")
	return versionCmd
}

// JSON output structures
type taskJSON struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Done   bool   `json:"done"`
}

type listTasksResponse struct {
	Tasks   []taskJSON `json:"tasks"`
	Backend string     `json:"backend"`
	Count   int        `json:"count"`
	Done    int        `json:"done"`
	Result  string     `json:"result"`
}

type actionResponse struct {
	Action  string    `json:"action"`
	Task    *taskJSON `json:"task,omitempty"`
	Removed int       `json:"removed,omitempty"`
	Result  string    `json:"result"`
}

type userResponse struct {
	SignedIn  bool   `json:"signed_in"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Result    string `json:"result"`
}

type versionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Result string `json:"result"`
}

func toTaskJSON(i int, t backend.Task) taskJSON {
	return taskJSON{Number: i + 1, Title: t.Title, Done: t.Done}
}

// outputTaskListJSON outputs tasks in JSON format
func outputTaskListJSON(tasks backend.TaskList, counts tasklist.Counts, backendName string, stdout io.Writer) error {
	jsonTasks := make([]taskJSON, 0, len(tasks))
	for i, t := range tasks {
		jsonTasks = append(jsonTasks, toTaskJSON(i, t))
	}

	return writeJSON(listTasksResponse{
		Tasks:   jsonTasks,
		Backend: backendName,
		Count:   counts.Total,
		Done:    counts.Done,
		Result:  ResultInfoOnly,
	}, stdout)
}

func writeJSON(v interface{}, stdout io.Writer) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
	return nil
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	response := errorResponse{
		Error:  utils.Short(err),
		Code:   1,
		Result: ResultError,
	}

	jsonBytes, _ := json.Marshal(response)
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
}
