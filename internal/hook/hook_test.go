package hook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	preperrors "git.home.luguber.info/inful/repoprep/internal/errors"
	"git.home.luguber.info/inful/repoprep/internal/executor"
)

type fakeRunner struct {
	specs []executor.Spec
	res   *executor.Result
	err   error
}

func (f *fakeRunner) Run(_ context.Context, spec executor.Spec) (*executor.Result, error) {
	f.specs = append(f.specs, spec)
	if f.res == nil {
		return &executor.Result{}, f.err
	}
	return f.res, f.err
}

func TestRunEmptyCommandIsNoop(t *testing.T) {
	runner := &fakeRunner{}
	h := New(runner, "/build/ws", nil)

	require.NoError(t, h.Run(context.Background(), ""))
	assert.Empty(t, runner.specs)
}

func TestRunExecutesViaShell(t *testing.T) {
	runner := &fakeRunner{}
	env := map[string]string{"ARTIFACT_DIR": "/artifacts"}
	h := New(runner, "/build/ws", env)

	require.NoError(t, h.Run(context.Background(), "make prepare && ls"))
	require.Len(t, runner.specs, 1)
	spec := runner.specs[0]
	assert.Equal(t, "sh", spec.Program)
	assert.Equal(t, []string{"-c", "make prepare && ls"}, spec.Args)
	assert.Equal(t, "/build/ws", spec.Dir)
	assert.Equal(t, env, spec.Env)
}

func TestRunFailurePropagatesExitCode(t *testing.T) {
	runner := &fakeRunner{
		res: &executor.Result{ExitCode: 7},
		err: &executor.ExitError{Cmd: "sh -c false", Code: 7},
	}
	h := New(runner, "/build/ws", nil)

	err := h.Run(context.Background(), "false")
	require.Error(t, err)
	assert.True(t, preperrors.IsCategory(err, preperrors.CategoryHook))

	adapter := preperrors.NewCLIErrorAdapter(false, nil)
	assert.Equal(t, 7, adapter.ExitCodeFor(err))
}
