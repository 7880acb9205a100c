package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExecutor records commands and answers from a table.
type recordingExecutor struct {
	commands []string
	sudo     []string
	fail     map[string]error
}

func (r *recordingExecutor) Run(_ context.Context, command string) (Result, error) {
	r.commands = append(r.commands, command)
	if err := r.fail[command]; err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func (r *recordingExecutor) Sudo(_ context.Context, command string) (Result, error) {
	r.sudo = append(r.sudo, command)
	return Result{}, nil
}

func (r *recordingExecutor) Exists(ctx context.Context, path string) (bool, error) {
	return exists(ctx, r, path)
}

func (r *recordingExecutor) Host() string { return "example.com" }

// =============================================================================
// Dir Tests
// =============================================================================

func TestDir_PrefixesCommands(t *testing.T) {
	rec := &recordingExecutor{}
	exec := Dir(rec, "/srv/app")

	_, err := exec.Run(context.Background(), "git status")
	require.NoError(t, err)
	_, err = exec.Sudo(context.Background(), "make install")
	require.NoError(t, err)

	assert.Equal(t, []string{"cd /srv/app && git status"}, rec.commands)
	assert.Equal(t, []string{"cd /srv/app && make install"}, rec.sudo)
	assert.Equal(t, "example.com", exec.Host())
}

func TestDir_KeepsHomeExpandable(t *testing.T) {
	rec := &recordingExecutor{}

	_, err := Dir(rec, "~/sites/app").Run(context.Background(), "ls")
	require.NoError(t, err)

	assert.Equal(t, []string{"cd ~/sites/app && ls"}, rec.commands)
}

func TestDir_QuotesSpaces(t *testing.T) {
	rec := &recordingExecutor{}

	_, err := Dir(rec, "/srv/my app").Run(context.Background(), "ls")
	require.NoError(t, err)

	quoted, err := Quote("/srv/my app")
	require.NoError(t, err)
	assert.Equal(t, []string{"cd " + quoted + " && ls"}, rec.commands)
	assert.NotEqual(t, "/srv/my app", quoted)
}

func TestDir_Nested(t *testing.T) {
	rec := &recordingExecutor{}

	_, err := Dir(Dir(rec, "/srv"), "app").Run(context.Background(), "ls")
	require.NoError(t, err)

	assert.Equal(t, []string{"cd /srv && cd app && ls"}, rec.commands)
}

// =============================================================================
// Exists Tests
// =============================================================================

func TestExists(t *testing.T) {
	rec := &recordingExecutor{fail: map[string]error{
		"test -e /missing": &CommandError{Host: "example.com", Command: "test -e /missing", ExitCode: 1},
		"test -e /broken":  errors.New("connection reset"),
	}}
	ctx := context.Background()

	ok, err := rec.Exists(ctx, "/present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rec.Exists(ctx, "/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = rec.Exists(ctx, "/broken")
	assert.EqualError(t, err, "connection reset")
}

func TestExists_InsideDir(t *testing.T) {
	rec := &recordingExecutor{}

	ok, err := Dir(rec, "/srv").Exists(context.Background(), "app")
	require.NoError(t, err)

	assert.True(t, ok)
	assert.Equal(t, []string{"cd /srv && test -e app"}, rec.commands)
}

// =============================================================================
// CommandError Tests
// =============================================================================

func TestCommandError(t *testing.T) {
	err := &CommandError{Host: "example.com", Command: "docker pull x", ExitCode: 1, Stderr: "not found\n"}

	assert.Equal(t, `example.com: command "docker pull x" exited with status 1: not found`, err.Error())
	assert.True(t, errors.Is(err, ErrCommandFailed))

	noStderr := &CommandError{Host: "h", Command: "false", ExitCode: 1}
	assert.Equal(t, `h: command "false" exited with status 1`, noStderr.Error())
}
