package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/regis/pkg/errclass"
)

func executeCommand(root *cobra.Command, args ...string) (stdout string, err error) {
	// Capture os.Stdout since CLI uses fmt.Printf directly
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	root.SetArgs(args)
	err = root.Execute()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), err
}

// run executes args against a fresh root command.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommand(createTestRootCmd(), args...)
}

// mustRun executes args and fails the test on error.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "regis %s", strings.Join(args, " "))
	return out
}

func setupTestDir(t *testing.T) string {
	dir := t.TempDir()
	originalWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(originalWd)
	})
	return dir
}

// setupRegistry initializes a registry in a temp dir and logs in as the
// seeded administrator.
func setupRegistry(t *testing.T, initArgs ...string) string {
	t.Helper()
	dir := setupTestDir(t)
	mustRun(t, append([]string{"init"}, initArgs...)...)
	mustRun(t, "login", "admin", "--password", "admin")
	return dir
}

// createTestRootCmd creates a fresh root command for testing
func createTestRootCmd() *cobra.Command {
	jsonOutput = false
	noColor = false
	logLevel = ""

	cmd := &cobra.Command{
		Use:               rootCmd.Use,
		Short:             rootCmd.Short,
		Long:              rootCmd.Long,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupGlobals,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	for _, sub := range []*cobra.Command{
		initCmd, infoCmd, loginCmd, logoutCmd, whoamiCmd,
		listCmd, searchCmd, showCmd, addCmd, editCmd, deleteCmd,
		exportCmd, statsCmd, auditCmd, doctorCmd, configCmd, completionCmd,
	} {
		resetFlags(sub)
		cmd.AddCommand(sub)
	}
	return cmd
}

// resetFlags restores flag defaults left over from a previous execution.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func visitorSets(name string) []string {
	words := strings.Fields(name)
	return []string{
		"--set", "Name=" + name,
		"--set", "Phone=555-0100",
		"--set", "Email=" + strings.ToLower(words[0]) + "@example.org",
		"--set", "Address=Rua 1",
		"--set", "BirthDate=01/02/1990",
		"--set", "VisitDate=05/03/2024",
		"--set", "OriginChurch=Central",
		"--set", "Notes=first visit",
		"--set", "Family=" + words[len(words)-1],
	}
}

func memberSets(name, position string) []string {
	return []string{
		"--set", "Name=" + name,
		"--set", "Phone=555-0101",
		"--set", "Email=m@example.org",
		"--set", "BirthDate=01/02/1980",
		"--set", "Position=" + position,
		"--set", "Baptized=yes",
		"--set", "Address=Rua 2",
		"--set", "Family=Lima",
	}
}

func addVisitor(t *testing.T, name string) string {
	t.Helper()
	return mustRun(t, append([]string{"add", "visitor"}, visitorSets(name)...)...)
}

func TestRootCommand_Help(t *testing.T) {
	stdout, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "append-only audit log")
}

func TestRootCommand_JSONFlag(t *testing.T) {
	_, err := run(t, "--json", "--help")
	require.NoError(t, err)
	assert.True(t, jsonOutput)
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	setupTestDir(t)
	_, err := run(t, "--log-level", "loud", "info")
	assert.ErrorIs(t, err, errclass.ErrConfigInvalid)
}

func TestInitCommand_CreatesRegistry(t *testing.T) {
	dir := setupTestDir(t)
	stdout, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Initialized regis registry")
	assert.Contains(t, stdout, "Administrator: admin / admin")

	assert.FileExists(t, filepath.Join(dir, ".regis", "format_version"))
	assert.FileExists(t, filepath.Join(dir, ".regis", "config.yaml"))
	for _, name := range []string{"visitors", "members", "employees", "users", "audit_log", "id_sequence"} {
		assert.FileExists(t, filepath.Join(dir, "data", name+".csv"))
	}
}

func TestInitCommand_Subdirectory(t *testing.T) {
	dir := setupTestDir(t)
	mustRun(t, "init", "church")
	assert.FileExists(t, filepath.Join(dir, "church", ".regis", "format_version"))
}

func TestInitCommand_AlreadyInitialized(t *testing.T) {
	setupTestDir(t)
	mustRun(t, "init")
	_, err := run(t, "init")
	assert.ErrorIs(t, err, errclass.ErrValidation)
}

func TestInitCommand_SQLiteBackend(t *testing.T) {
	dir := setupRegistry(t, "--backend", "sqlite")
	assert.FileExists(t, filepath.Join(dir, "data", "registry.db"))
	assert.NoFileExists(t, filepath.Join(dir, "data", "users.csv"))

	addVisitor(t, "Ana Souza")
	stdout := mustRun(t, "list", "visitors")
	assert.Contains(t, stdout, "Ana Souza")
}

func TestInitCommand_InvalidBackend(t *testing.T) {
	setupTestDir(t)
	_, err := run(t, "init", "--backend", "mongo")
	assert.ErrorIs(t, err, errclass.ErrConfigInvalid)
	assert.NoFileExists(t, filepath.Join(".regis", "format_version"))
}

func TestInitCommand_JSON(t *testing.T) {
	setupTestDir(t)
	stdout, err := run(t, "--json", "init", "--hasher", "bcrypt")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "csv", result["backend"])
	assert.Equal(t, "bcrypt", result["hasher"])
	assert.Equal(t, true, result["seeded_admin"])
	assert.NotEmpty(t, result["store_id"])
}

func TestCommand_NotInRegistry(t *testing.T) {
	setupTestDir(t)
	_, err := run(t, "list", "visitors")
	require.ErrorIs(t, err, errclass.ErrNotFound)
	assert.Contains(t, err.Error(), "regis init")
}

func TestCommand_RequiresLogin(t *testing.T) {
	setupTestDir(t)
	mustRun(t, "init")

	for _, args := range [][]string{
		{"list", "visitors"},
		{"search", "members", "x"},
		{"show", "users", "1"},
		{"export", "users"},
		{"audit"},
		{"whoami"},
		{"logout"},
	} {
		_, err := run(t, args...)
		assert.ErrorIs(t, err, errclass.ErrNotLoggedIn, "regis %s", strings.Join(args, " "))
	}
}

func TestLoginCommand_FromStdin(t *testing.T) {
	setupTestDir(t)
	mustRun(t, "init")

	cmd := createTestRootCmd()
	cmd.SetIn(strings.NewReader("admin\n"))
	stdout, err := executeCommand(cmd, "login", "admin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged in as admin (admin)")

	stdout = mustRun(t, "whoami")
	assert.Contains(t, stdout, "admin (admin)")
	assert.Contains(t, stdout, "Session:")
}

func TestLoginCommand_WrongPassword(t *testing.T) {
	setupTestDir(t)
	mustRun(t, "init")

	_, err := run(t, "login", "admin", "--password", "nope")
	assert.ErrorIs(t, err, errclass.ErrAuthFailure)
	_, err = run(t, "login", "nobody", "--password", "admin")
	assert.ErrorIs(t, err, errclass.ErrAuthFailure)

	_, err = run(t, "whoami")
	assert.ErrorIs(t, err, errclass.ErrNotLoggedIn)
}

func TestLoginCommand_AlreadyLoggedIn(t *testing.T) {
	setupRegistry(t)
	_, err := run(t, "login", "admin", "--password", "admin")
	require.ErrorIs(t, err, errclass.ErrValidation)
	assert.Contains(t, err.Error(), "already logged in as admin")
}

func TestLogoutCommand(t *testing.T) {
	dir := setupRegistry(t)
	stdout := mustRun(t, "logout")
	assert.Contains(t, stdout, "Logged out admin")
	assert.NoFileExists(t, filepath.Join(dir, ".regis", "session.json"))

	_, err := run(t, "whoami")
	assert.ErrorIs(t, err, errclass.ErrNotLoggedIn)
}

func TestAddListShow(t *testing.T) {
	setupRegistry(t)

	stdout := addVisitor(t, "Ana Souza")
	assert.Contains(t, stdout, "Created visitor 1")
	stdout = addVisitor(t, "Bruno Lima")
	assert.Contains(t, stdout, "Created visitor 2")

	stdout = mustRun(t, "list", "visitors")
	assert.Contains(t, stdout, "Name")
	assert.Contains(t, stdout, "Ana Souza")
	assert.Contains(t, stdout, "Bruno Lima")
	assert.Less(t, strings.Index(stdout, "Ana Souza"), strings.Index(stdout, "Bruno Lima"))

	stdout = mustRun(t, "show", "visitor", "2")
	assert.Contains(t, stdout, "Bruno Lima")
	assert.Contains(t, stdout, "bruno@example.org")
}

func TestListCommand_Empty(t *testing.T) {
	setupRegistry(t)
	stdout := mustRun(t, "list", "employees")
	assert.Contains(t, stdout, "No employees.")
}

func TestListCommand_JSON(t *testing.T) {
	setupRegistry(t)
	addVisitor(t, "Ana Souza")

	stdout := mustRun(t, "--json", "list", "visitors")
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["ID"])
	assert.Equal(t, "Ana Souza", rows[0]["Name"])
	assert.Equal(t, "Souza", rows[0]["Family"])
}

func TestListCommand_UnknownKind(t *testing.T) {
	setupRegistry(t)
	_, err := run(t, "list", "visit")
	require.ErrorIs(t, err, errclass.ErrNotFound)
	assert.Contains(t, err.Error(), "Did you mean")
	assert.Contains(t, err.Error(), "visitors")
}

func TestAddCommand_Validation(t *testing.T) {
	setupRegistry(t)

	_, err := run(t, "add", "visitor", "--set", "Name=Ana")
	assert.ErrorIs(t, err, errclass.ErrValidation)

	_, err = run(t, append([]string{"add", "visitor", "--set", "Color=blue"}, visitorSets("Ana Souza")...)...)
	require.ErrorIs(t, err, errclass.ErrNotFound)
	assert.Contains(t, err.Error(), "Columns of visitors")

	_, err = run(t, append([]string{"add", "visitor", "--set", "ID=9"}, visitorSets("Ana Souza")...)...)
	assert.ErrorIs(t, err, errclass.ErrValidation)

	_, err = run(t, "add", "visitor", "--set", "Name")
	assert.ErrorIs(t, err, errclass.ErrValidation)

	stdout := mustRun(t, "list", "visitors")
	assert.Contains(t, stdout, "No visitors.")
}

func TestEditCommand(t *testing.T) {
	setupRegistry(t)
	addVisitor(t, "Ana Souza")

	stdout := mustRun(t, "edit", "visitor", "1", "--set", "phone=555-9999")
	assert.Contains(t, stdout, "Updated visitor 1")

	stdout = mustRun(t, "show", "visitor", "1")
	assert.Contains(t, stdout, "555-9999")
	assert.Contains(t, stdout, "Ana Souza")

	_, err := run(t, "edit", "visitor", "1")
	assert.ErrorIs(t, err, errclass.ErrValidation)
	_, err = run(t, "edit", "visitor", "7", "--set", "Phone=1")
	assert.ErrorIs(t, err, errclass.ErrNotFound)
	_, err = run(t, "edit", "visitor", "one", "--set", "Phone=1")
	assert.ErrorIs(t, err, errclass.ErrValidation)
}

func TestDeleteCommand_IDNotReused(t *testing.T) {
	setupRegistry(t)
	addVisitor(t, "Ana Souza")
	addVisitor(t, "Bruno Lima")

	stdout := mustRun(t, "delete", "visitor", "2")
	assert.Contains(t, stdout, "Deleted visitor 2")
	_, err := run(t, "show", "visitor", "2")
	assert.ErrorIs(t, err, errclass.ErrNotFound)
	_, err = run(t, "delete", "visitor", "2")
	assert.ErrorIs(t, err, errclass.ErrNotFound)

	stdout = addVisitor(t, "Carla Dias")
	assert.Contains(t, stdout, "Created visitor 3")
}

func TestSearchCommand(t *testing.T) {
	setupRegistry(t)
	addVisitor(t, "Ana Souza")
	addVisitor(t, "Bruno Lima")

	stdout := mustRun(t, "search", "visitors", "SOUZA")
	assert.Contains(t, stdout, "Ana Souza")
	assert.NotContains(t, stdout, "Bruno Lima")

	stdout = mustRun(t, "search", "visitors", "bruno", "lima")
	assert.Contains(t, stdout, "Bruno Lima")

	stdout = mustRun(t, "search", "visitors", "nobody")
	assert.Contains(t, stdout, "No visitors.")

	stdout = mustRun(t, "search", "visitors")
	assert.Contains(t, stdout, "Ana Souza")
	assert.Contains(t, stdout, "Bruno Lima")
}

func TestUsers_SecretRedacted(t *testing.T) {
	dir := setupRegistry(t)
	mustRun(t, "add", "user", "--set", "Username=ana", "--set", "PasswordHash=s3cret", "--set", "Role=full")

	raw, err := os.ReadFile(filepath.Join(dir, "data", "users.csv"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")

	stdout := mustRun(t, "list", "users")
	assert.Contains(t, stdout, "********")
	assert.Contains(t, stdout, "ana")
	for _, line := range strings.Split(string(raw), "\n")[1:] {
		if fields := strings.Split(line, ","); len(fields) == 4 {
			assert.NotContains(t, stdout, fields[2])
		}
	}

	stdout = mustRun(t, "search", "users", "admin")
	assert.Contains(t, stdout, "********")
}

func TestUsers_DuplicateUsername(t *testing.T) {
	setupRegistry(t)
	_, err := run(t, "add", "user", "--set", "Username=admin", "--set", "PasswordHash=x", "--set", "Role=full")
	assert.ErrorIs(t, err, errclass.ErrValidation)
	_, err = run(t, "add", "user", "--set", "Username=ana", "--set", "PasswordHash=x", "--set", "Role=owner")
	assert.ErrorIs(t, err, errclass.ErrValidation)
}

func TestUsers_EditKeepsPassword(t *testing.T) {
	setupRegistry(t)
	mustRun(t, "edit", "user", "1", "--set", "Username=root")
	mustRun(t, "logout")

	stdout := mustRun(t, "login", "root", "--password", "admin")
	assert.Contains(t, stdout, "Logged in as root")
}

func TestUsers_ChangePassword(t *testing.T) {
	setupRegistry(t)
	mustRun(t, "edit", "user", "1", "--set", "PasswordHash=n3w")
	mustRun(t, "logout")

	_, err := run(t, "login", "admin", "--password", "admin")
	assert.ErrorIs(t, err, errclass.ErrAuthFailure)
	mustRun(t, "login", "admin", "--password", "n3w")
}

func TestRoles_ReadOnlyDenied(t *testing.T) {
	setupRegistry(t)
	addVisitor(t, "Ana Souza")
	mustRun(t, "add", "user", "--set", "Username=rita", "--set", "PasswordHash=pw", "--set", "Role=readonly")
	mustRun(t, "logout")
	mustRun(t, "login", "rita", "--password", "pw")

	stdout := mustRun(t, "list", "visitors")
	assert.Contains(t, stdout, "Ana Souza")

	_, err := run(t, append([]string{"add", "visitor"}, visitorSets("Bruno Lima")...)...)
	assert.ErrorIs(t, err, errclass.ErrPermissionDenied)
	_, err = run(t, "edit", "visitor", "1", "--set", "Phone=1")
	assert.ErrorIs(t, err, errclass.ErrPermissionDenied)
	_, err = run(t, "delete", "visitor", "1")
	assert.ErrorIs(t, err, errclass.ErrPermissionDenied)

	stdout = mustRun(t, "show", "visitor", "1")
	assert.Contains(t, stdout, "555-0100")
}

// editSessionRole rewrites the role stored in the session file in place.
func editSessionRole(t *testing.T, dir, role string) {
	t.Helper()
	path := filepath.Join(dir, ".regis", "session.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var session map[string]any
	require.NoError(t, json.Unmarshal(data, &session))
	session["role"] = role
	data, err = json.Marshal(session)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func TestRoles_SessionRoleReadFromUsersTable(t *testing.T) {
	dir := setupRegistry(t)
	mustRun(t, "add", "user", "--set", "Username=rita", "--set", "PasswordHash=pw", "--set", "Role=readonly")
	mustRun(t, "logout")
	mustRun(t, "login", "rita", "--password", "pw")
	editSessionRole(t, dir, "admin")

	_, err := run(t, append([]string{"add", "visitor"}, visitorSets("Bruno Lima")...)...)
	assert.ErrorIs(t, err, errclass.ErrPermissionDenied)
	_, err = run(t, "config", "set", "output.format", "json")
	assert.ErrorIs(t, err, errclass.ErrPermissionDenied)

	stdout := mustRun(t, "whoami")
	assert.Contains(t, stdout, "rita (readonly)")
}

func TestRoles_DeletedAccountSessionRefused(t *testing.T) {
	dir := setupRegistry(t)
	mustRun(t, "add", "user", "--set", "Username=rita", "--set", "PasswordHash=pw", "--set", "Role=full")
	mustRun(t, "logout")
	mustRun(t, "login", "rita", "--password", "pw")
	path := filepath.Join(dir, ".regis", "session.json")
	stale, err := os.ReadFile(path)
	require.NoError(t, err)

	mustRun(t, "logout")
	mustRun(t, "login", "admin", "--password", "admin")
	mustRun(t, "delete", "user", "2")
	mustRun(t, "logout")
	require.NoError(t, os.WriteFile(path, stale, 0600))

	_, err = run(t, "list", "visitors")
	require.ErrorIs(t, err, errclass.ErrNotLoggedIn)
	assert.Contains(t, err.Error(), "account no longer exists")
	_, err = run(t, "whoami")
	assert.ErrorIs(t, err, errclass.ErrNotLoggedIn)
}

func TestRoles_FullCannotManageUsers(t *testing.T) {
	setupRegistry(t)
	mustRun(t, "add", "user", "--set", "Username=fred", "--set", "PasswordHash=pw", "--set", "Role=full")
	mustRun(t, "logout")
	mustRun(t, "login", "fred", "--password", "pw")

	stdout := addVisitor(t, "Ana Souza")
	assert.Contains(t, stdout, "Created visitor 1")
	mustRun(t, "list", "users")

	_, err := run(t, "add", "user", "--set", "Username=x", "--set", "PasswordHash=pw", "--set", "Role=admin")
	assert.ErrorIs(t, err, errclass.ErrPermissionDenied)
	_, err = run(t, "delete", "user", "1")
	assert.ErrorIs(t, err, errclass.ErrPermissionDenied)
}

func TestExportCommand_Stdout(t *testing.T) {
	setupRegistry(t)
	addVisitor(t, "Ana Souza")

	stdout := mustRun(t, "export", "visitors")
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Name,Phone,Email,Address,BirthDate,VisitDate,OriginChurch,Notes,Family", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,Ana Souza,555-0100,"))

	stdout = mustRun(t, "export", "users")
	assert.Contains(t, stdout, "1,admin,********,admin")
}

func TestExportCommand_FileAndFormat(t *testing.T) {
	dir := setupRegistry(t)
	addVisitor(t, "Ana Souza")

	out := filepath.Join(dir, "visitors.json")
	mustRun(t, "export", "visitor", "--format", "json", "-o", out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana Souza", rows[0]["Name"])

	_, err = run(t, "export", "visitors", "--format", "xml")
	assert.ErrorIs(t, err, errclass.ErrValidation)
	_, err = run(t, "export", "pets")
	assert.ErrorIs(t, err, errclass.ErrNotFound)
}

func TestExportCommand_JSONFlagDefaultsToJSON(t *testing.T) {
	setupRegistry(t)
	stdout := mustRun(t, "--json", "export", "users")
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "********", rows[0]["PasswordHash"])
}

func TestExportCommand_AuditLog(t *testing.T) {
	setupRegistry(t)
	stdout := mustRun(t, "export", "audit_log")
	assert.True(t, strings.HasPrefix(stdout, "Actor,Action,Timestamp\n"))
	assert.Contains(t, stdout, "admin,login succeeded,")
}

func TestStatsCommand(t *testing.T) {
	setupRegistry(t)
	for _, m := range [][2]string{{"Ana", "Deacon"}, {"Bia", "Elder"}, {"Caio", "Deacon"}} {
		mustRun(t, append([]string{"add", "member"}, memberSets(m[0], m[1])...)...)
	}

	stdout := mustRun(t, "stats", "members", "position")
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "COUNT")
	assert.Contains(t, lines[1], "Deacon")
	assert.Contains(t, lines[1], "2")
	assert.Contains(t, lines[2], "Elder")

	_, err := run(t, "stats", "users", "PasswordHash")
	assert.ErrorIs(t, err, errclass.ErrValidation)
	_, err = run(t, "stats", "members", "Shoe")
	assert.ErrorIs(t, err, errclass.ErrNotFound)
}

func TestStatsCommand_JSON(t *testing.T) {
	setupRegistry(t)
	mustRun(t, append([]string{"add", "member"}, memberSets("Ana", "Deacon")...)...)

	stdout := mustRun(t, "--json", "stats", "members", "Position")
	var result struct {
		Total  int `json:"total"`
		Counts []struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Counts, 1)
	assert.Equal(t, "Deacon", result.Counts[0].Value)
}

func TestAuditCommand(t *testing.T) {
	setupRegistry(t)
	addVisitor(t, "Ana Souza")
	mustRun(t, "edit", "visitor", "1", "--set", "Notes=second visit")
	mustRun(t, "delete", "visitor", "1")

	stdout := mustRun(t, "audit")
	assert.Contains(t, stdout, "login succeeded")
	assert.Contains(t, stdout, "create visitor 1")
	assert.Contains(t, stdout, "update visitor 1")
	assert.Contains(t, stdout, "delete visitor 1")

	stdout = mustRun(t, "audit", "-n", "1")
	assert.Contains(t, stdout, "delete visitor 1")
	assert.NotContains(t, stdout, "create visitor 1")

	stdout = mustRun(t, "--json", "audit", "-n", "0")
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "admin", entries[0]["actor"])
}

func TestAuditCommand_ReadOnlyMutationNotAudited(t *testing.T) {
	setupRegistry(t)
	mustRun(t, "add", "user", "--set", "Username=rita", "--set", "PasswordHash=pw", "--set", "Role=readonly")
	mustRun(t, "logout")
	mustRun(t, "login", "rita", "--password", "pw")

	_, err := run(t, append([]string{"add", "visitor"}, visitorSets("Ana Souza")...)...)
	require.ErrorIs(t, err, errclass.ErrPermissionDenied)

	stdout := mustRun(t, "audit", "-n", "0")
	assert.NotContains(t, stdout, "create visitor")
	assert.Contains(t, stdout, "create user 2")
}

func TestDoctorCommand_Healthy(t *testing.T) {
	setupTestDir(t)
	mustRun(t, "init")
	stdout := mustRun(t, "doctor")
	assert.Contains(t, stdout, "Registry is healthy.")
}

func TestDoctorCommand_HeaderMismatch(t *testing.T) {
	dir := setupRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "members.csv"), []byte("ID,Name\n"), 0644))

	stdout, err := run(t, "doctor")
	assert.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, stdout, "members header")
}

func TestDoctorCommand_Strict(t *testing.T) {
	dir := setupRegistry(t)
	addVisitor(t, "Ana Souza")
	f, err := os.OpenFile(filepath.Join(dir, "data", "visitors.csv"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("1,Copy,1,e,a,b,v,o,n,f\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	stdout := mustRun(t, "doctor")
	assert.Contains(t, stdout, "[warning]")

	_, err = run(t, "doctor", "--strict")
	assert.ErrorIs(t, err, errUnhealthy)

	stdout, err = run(t, "--json", "doctor", "--strict")
	assert.ErrorIs(t, err, errUnhealthy)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, false, result["healthy"])
}

func TestInfoCommand(t *testing.T) {
	setupRegistry(t)
	addVisitor(t, "Ana Souza")

	stdout := mustRun(t, "info")
	assert.Contains(t, stdout, "Registry:")
	assert.Contains(t, stdout, "visitors: 1")
	assert.Contains(t, stdout, "users: 1")

	stdout = mustRun(t, "--json", "info")
	var result struct {
		Backend string         `json:"backend"`
		Rows    map[string]int `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "csv", result.Backend)
	assert.Equal(t, 1, result.Rows["visitors"])
	assert.Equal(t, 2, result.Rows["audit_log"])
}

func TestConfigCommand(t *testing.T) {
	setupRegistry(t)

	stdout := mustRun(t, "config", "show")
	assert.Contains(t, stdout, "storage.backend: csv")
	assert.Contains(t, stdout, "security.audit_failed_logins: false")

	stdout = mustRun(t, "config", "get", "security.hasher")
	assert.Equal(t, "sha256\n", stdout)

	stdout = mustRun(t, "config", "set", "security.audit_failed_logins", "true")
	assert.Contains(t, stdout, "Set security.audit_failed_logins = true")
	stdout = mustRun(t, "config", "get", "security.audit_failed_logins")
	assert.Equal(t, "true\n", stdout)

	_, err := run(t, "config", "set", "security.hasher", "md5")
	assert.ErrorIs(t, err, errclass.ErrConfigInvalid)
	_, err = run(t, "config", "get", "nope")
	assert.ErrorIs(t, err, errclass.ErrConfigInvalid)
}

func TestConfigCommand_SetRequiresAdmin(t *testing.T) {
	setupRegistry(t)
	mustRun(t, "add", "user", "--set", "Username=fred", "--set", "PasswordHash=pw", "--set", "Role=full")
	mustRun(t, "logout")

	_, err := run(t, "config", "set", "output.format", "json")
	assert.ErrorIs(t, err, errclass.ErrNotLoggedIn)

	mustRun(t, "login", "fred", "--password", "pw")
	_, err = run(t, "config", "set", "output.format", "json")
	assert.ErrorIs(t, err, errclass.ErrPermissionDenied)
}

func TestConfigCommand_FailedLoginsAudited(t *testing.T) {
	setupRegistry(t)
	mustRun(t, "config", "set", "security.audit_failed_logins", "true")
	mustRun(t, "logout")

	_, err := run(t, "login", "admin", "--password", "wrong")
	require.ErrorIs(t, err, errclass.ErrAuthFailure)
	mustRun(t, "login", "admin", "--password", "admin")

	stdout := mustRun(t, "audit")
	assert.Contains(t, stdout, "login failed")
}

func TestConfigCommand_OutputFormatJSON(t *testing.T) {
	setupRegistry(t)
	mustRun(t, "config", "set", "output.format", "json")

	stdout := mustRun(t, "whoami")
	var session map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &session))
	assert.Equal(t, "admin", session["username"])
}

func TestCompletionCommand(t *testing.T) {
	stdout, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "regis")

	_, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestOutputJSON(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	err := outputJSON(map[string]int{"n": 1})
	w.Close()
	os.Stdout = oldStdout
	require.NoError(t, err)

	var buf bytes.Buffer
	io.Copy(&buf, r)
	assert.Equal(t, "{\n  \"n\": 1\n}\n", buf.String())
}
