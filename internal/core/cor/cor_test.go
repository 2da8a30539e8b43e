// Copyright 2025 Jason Sherman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cor_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/zeebo/assert"
)

// appendCommand records its execution and forwards an annotated copy of
// its input so piping between commands can be observed.
type appendCommand struct {
	cor.BaseCommand
	ran *[]string
	err error
}

func newAppendCommand(name string, ran *[]string, err error) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), ran: ran, err: err}
}

func (c *appendCommand) Execute(context cor.Context) {
	*c.ran = append(*c.ran, c.GetName())
	if c.err != nil {
		context.AddError(c.GetName(), c.err)
		return
	}
	in, _ := context.Get(c.GetInputParam()).(string)
	context.Add(c.GetOutputParam(), in+"|"+c.GetName())
}

func newSeededContext(seed string) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, seed)
	return ctx
}

func TestChainPipesOutputToInput(t *testing.T) {
	ran := make([]string, 0)
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(newAppendCommand("first", &ran, nil))
	chain.AddCommand(newAppendCommand("second", &ran, nil))

	ctx := newSeededContext("seed")
	defer ctx.Close()
	chain.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.DeepEqual(t, []string{"first", "second"}, ran)
	assert.Equal(t, "seed|first|second", ctx.Get(cor.CtxIn))
}

func TestChainStopsOnFirstError(t *testing.T) {
	ran := make([]string, 0)
	boom := errors.New("boom")
	chain := cor.NewBaseChain("stop")
	chain.AddCommand(newAppendCommand("first", &ran, boom))
	chain.AddCommand(newAppendCommand("second", &ran, nil))

	ctx := newSeededContext("seed")
	defer ctx.Close()
	chain.Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.DeepEqual(t, []string{"first"}, ran)
	assert.Equal(t, boom, ctx.FirstError())
}

func TestChainContinueOnFailureRunsEveryCommand(t *testing.T) {
	ran := make([]string, 0)
	chain := cor.NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(newAppendCommand("first", &ran, errors.New("boom")))
	chain.AddCommand(newAppendCommand("second", &ran, nil))

	ctx := newSeededContext("seed")
	defer ctx.Close()
	chain.Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.DeepEqual(t, []string{"first", "second"}, ran)
}

func TestChainSkipsCommandWithoutInput(t *testing.T) {
	ran := make([]string, 0)
	chain := cor.NewBaseChain("skip")
	chain.AddCommand(newAppendCommand("needs-input", &ran, nil))

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	defer ctx.Close()
	chain.Execute(ctx)

	// Skipped, not failed.
	assert.False(t, ctx.HasErrors())
	assert.Equal(t, 0, len(ran))
}

func TestFirstErrorKeepsInsertionOrder(t *testing.T) {
	ctx := cor.NewBaseContext()
	first := errors.New("first failure")
	ctx.AddError("alpha", first)
	ctx.AddError("beta", errors.New("second failure"))
	// Re-recording under an existing key must not reorder.
	ctx.AddError("alpha", errors.New("replacement"))

	assert.Equal(t, 2, len(ctx.GetErrors()))
	assert.Equal(t, "replacement", ctx.FirstError().Error())
}

func TestCloseRemovesTempFiles(t *testing.T) {
	ctx := cor.NewBaseContext()

	f, err := os.CreateTemp(t.TempDir(), "cleanup-*.tmp")
	assert.NoError(t, err)
	assert.NoError(t, f.Close())

	ctx.AddTempFile(f.Name())
	ctx.AddTempFile("/nonexistent/already-gone.tmp")
	ctx.Close()

	_, err = os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, len(ctx.GetTempFiles()))
}
