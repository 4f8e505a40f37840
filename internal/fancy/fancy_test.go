package fancy_test

import (
	"testing"

	"github.com/atlanticdynamic/scriptgate/internal/fancy"
	"github.com/stretchr/testify/assert"
)

func TestTree(t *testing.T) {
	tree := fancy.Tree()
	tree.Root("Root Node")
	tree.Child("Child Node")

	out := tree.String()
	assert.Contains(t, out, "Root Node")
	assert.Contains(t, out, "Child Node")
}

func TestBranchNode(t *testing.T) {
	out := fancy.BranchNode("Schedules", "(2)").String()
	assert.Contains(t, out, "Schedules")
	assert.Contains(t, out, "(2)")
}

func TestComponentTrees(t *testing.T) {
	sched := fancy.ScheduleTree("nightly")
	sched.AddChild("Interval: 1h0m0s")
	assert.Contains(t, sched.String(), "nightly")
	assert.Contains(t, sched.String(), "Interval: 1h0m0s")

	fn := fancy.FunctionTree("double")
	fn.AddChild(fancy.ScriptText("text/starlark"))
	assert.Contains(t, fn.String(), "double")
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a much longer string", 10, "a much ..."},
		{"tiny", 2, "tiny"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, fancy.TruncateString(tt.in, tt.max))
		})
	}
}
