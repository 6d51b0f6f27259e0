package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

func TestLocalPythonFileAdapter_ParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"single assignment", "total = a + b\n"},
		{"no trailing newline", "total = a + b"},
		{"comments and blank lines", "# header\n\nimport os  # trailing\n\n\nx = (  a +\n    b )  # why\n"},
		{"crlf line endings", "x = 1\r\ny = x * 2\r\n"},
		{"function with decorators", "@cache\ndef f(a, *, b=2):\n    \"\"\"doc\"\"\"\n    return a+b\n"},
		{"line continuation", "value = first + \\\n    second\n"},
		{"leading whitespace lines", "\n\n   \nx = 1\n"},
	}

	adapter := NewLocalPythonFileAdapter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := adapter.Parse(context.Background(), "mod.py", []byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.src, unit.Text())
			assert.Equal(t, "mod.py", unit.Path)
		})
	}
}

func TestLocalPythonFileAdapter_ParseStructure(t *testing.T) {
	src := "import os\n\nannual_savings = results.get(\"annual_savings\", 0)\n"

	unit, err := NewLocalPythonFileAdapter().Parse(context.Background(), "calc.py", []byte(src))
	require.NoError(t, err)

	stmts := unit.Root.NamedChildren()
	require.Len(t, stmts, 2)
	assert.Equal(t, "import_statement", stmts[0].Kind())
	assert.Equal(t, "expression_statement", stmts[1].Kind())
	assert.Equal(t, 3, stmts[1].Line())

	var assignment *syntax.Node

	unit.Root.Walk(func(n *syntax.Node) bool {
		if n.Kind() == "assignment" && assignment == nil {
			assignment = n
		}

		return true
	})

	require.NotNil(t, assignment)
	assert.Equal(t, "annual_savings", assignment.ChildByField("left").Text())
	assert.Equal(t, "call", assignment.ChildByField("right").Kind())
}

func TestLocalPythonFileAdapter_ParseSyntaxError(t *testing.T) {
	_, err := NewLocalPythonFileAdapter().Parse(context.Background(), "broken.py", []byte("def broken(:\n    pass\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyntax))
	assert.Contains(t, err.Error(), "line 1")
}
