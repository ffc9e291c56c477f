// Package testutil provides shared test utilities for CLI testing across packages.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"todoed/cmd/todoed/cmd"
	"todoed/internal/credentials"
)

// defaultTestConfig is the minimal config used by the test constructors to ensure isolation.
const defaultTestConfig = "# test config\nbackend: local\n"

// CLITest provides a test helper for running CLI commands in isolation.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	tmpDir     string
	configPath string
}

// NewCLITest creates a new CLI test helper with its own config file and
// SQLite database under a temporary directory.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Keep XDG lookups (log file, default paths) inside the test directory
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmpDir, "state"))

	if err := os.WriteFile(configPath, []byte(defaultTestConfig), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	cfg := &cmd.Config{
		NoPrompt:   true,
		DBPath:     filepath.Join(tmpDir, "test.db"),
		ConfigPath: configPath,
	}

	return &CLITest{
		t:          t,
		cfg:        cfg,
		tmpDir:     tmpDir,
		configPath: configPath,
	}
}

// NewCLITestWithConfig creates a CLI test helper whose config file holds
// the given YAML.
func NewCLITestWithConfig(t *testing.T, yamlContent string) *CLITest {
	t.Helper()
	c := NewCLITest(t)
	c.SetFullConfig(yamlContent)
	return c
}

// Config returns the test configuration.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// SetConfigValue appends a top-level key-value pair to the test config file.
func (c *CLITest) SetConfigValue(key, value string) {
	c.t.Helper()

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.t.Fatalf("failed to read config file: %v", err)
	}

	newConfig := string(data) + key + ": " + value + "\n"
	if err := os.WriteFile(c.configPath, []byte(newConfig), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// SetFullConfig replaces the entire config file with the given YAML content.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()

	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// ConfigPath returns the path to the config file.
func (c *CLITest) ConfigPath() string {
	return c.configPath
}

// SetStdin feeds prompt answers to the next commands.
func (c *CLITest) SetStdin(input string) {
	c.cfg.Stdin = strings.NewReader(input)
}

// Execute runs a CLI command with the given arguments and returns stdout, stderr, and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if exit code is non-zero.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// RemoteCLITest extends CLITest with a fake Drive server and an in-memory
// keyring for the remote backend.
type RemoteCLITest struct {
	*CLITest
	Drive   *DriveServer
	Keyring *credentials.MockKeyring
	logins  int
}

// NewCLITestWithRemote creates a CLI test helper configured for the remote
// backend. Sign-in returns a valid token without opening a browser.
func NewCLITestWithRemote(t *testing.T) *RemoteCLITest {
	t.Helper()

	c := NewCLITest(t)
	t.Setenv("TODOED_REMOTE_TOKEN", "")

	drv := StartDriveServer(t)
	secrets := filepath.Join(c.tmpDir, "client_secret.json")
	secretsJSON := `{"installed":{"client_id":"test-client","client_secret":"secret","auth_uri":"` +
		drv.URL + `/auth","token_uri":"` + drv.URL + `/token","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(secrets, []byte(secretsJSON), 0600); err != nil {
		t.Fatalf("failed to write client secrets: %v", err)
	}

	c.SetFullConfig("backend: remote\nremote:\n  client_secrets: " + secrets + "\n  timeout: 5s\n  requests_per_second: 0\n")

	r := &RemoteCLITest{CLITest: c, Drive: drv, Keyring: credentials.NewMockKeyring()}
	c.cfg.Keyring = r.Keyring
	c.cfg.ClientOptions = []option.ClientOption{option.WithEndpoint(drv.URL + "/drive/v3/")}
	c.cfg.Login = func(context.Context, *oauth2.Config) (*oauth2.Token, error) {
		r.logins++
		return &oauth2.Token{
			AccessToken:  DriveAccessToken,
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour),
		}, nil
	}
	return r
}

// Logins reports how many times the sign-in flow ran.
func (r *RemoteCLITest) Logins() int {
	return r.logins
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertExitCode fails the test if exit code doesn't match expected.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

// AssertResultCode verifies that the output ends with the expected result code.
func AssertResultCode(t *testing.T, output, expectedCode string) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		t.Errorf("expected result code %q but output is empty", expectedCode)
		return
	}
	lastLine := strings.TrimSpace(lines[len(lines)-1])
	if lastLine != expectedCode {
		t.Errorf("expected result code %q, got %q\nFull output:\n%s", expectedCode, lastLine, output)
	}
}

// Result code constants for convenience.
const (
	ResultActionCompleted = cmd.ResultActionCompleted
	ResultInfoOnly        = cmd.ResultInfoOnly
	ResultError           = cmd.ResultError
)
