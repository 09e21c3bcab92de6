package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `using System.Windows;

namespace Demo
{
    public class Gauge : Control
    {
        public static readonly DependencyProperty ValueProperty =
            DependencyProperty.Register("Value", typeof(double), typeof(Gauge));

        public static void OnValueChanged(DependencyObject d, DependencyPropertyChangedEventArgs e)
        {
        }
    }
}
`

func parseSample(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := Parse(context.Background(), "Gauge.cs", []byte(sampleSource), 0)
	require.NoError(t, err)
	return snap
}

func TestParse_Snapshot(t *testing.T) {
	snap := parseSample(t)
	assert.False(t, snap.HasErrors())
	assert.Equal(t, uint64(0), snap.Generation)
	assert.Equal(t, "compilation_unit", snap.Root().Type())

	next, err := snap.Next(context.Background(), []byte(sampleSource))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next.Generation)
	assert.Equal(t, snap.Fingerprint(), next.Fingerprint())
}

func TestNodeHelpers(t *testing.T) {
	snap := parseSample(t)
	src := snap.Source

	fields := FindAll(snap.Root(), "field_declaration")
	require.Len(t, fields, 1)
	field := fields[0]

	t.Run("Modifiers", func(t *testing.T) {
		assert.Equal(t, []string{"public", "static", "readonly"}, Modifiers(field, src))
		assert.True(t, HasModifier(field, src, "static"))
		assert.False(t, HasModifier(field, src, "const"))
	})

	t.Run("Declaration", func(t *testing.T) {
		vd := VariableDeclaration(field)
		require.NotNil(t, vd)
		assert.Equal(t, "DependencyProperty", snap.Text(DeclaredType(vd)))
		decls := Declarators(vd)
		require.Len(t, decls, 1)
		assert.Equal(t, "ValueProperty", DeclaratorName(decls[0], src))

		init := Initializer(decls[0])
		require.NotNil(t, init)
		assert.Equal(t, "invocation_expression", init.Type())

		recv, method := InvocationTarget(init, src)
		assert.Equal(t, "DependencyProperty", snap.Text(recv))
		assert.Equal(t, "Register", method)

		args := ArgumentValues(init)
		require.Len(t, args, 3)
		assert.Equal(t, `"Value"`, snap.Text(args[0]))
		assert.Equal(t, "double", snap.Text(TypeofOperand(args[1])))
		assert.Equal(t, "Gauge", snap.Text(TypeofOperand(args[2])))
	})

	t.Run("Parameters", func(t *testing.T) {
		methods := FindAll(snap.Root(), "method_declaration")
		require.Len(t, methods, 1)
		params := Parameters(methods[0])
		require.Len(t, params, 2)
		assert.Equal(t, "DependencyObject", snap.Text(DeclaredType(params[0])))
		assert.Equal(t, "e", Name(params[1], src))
	})
}

func TestArgumentName(t *testing.T) {
	src := `class Host
{
    void Wire()
    {
        AddHandler(ClickEvent, OnClick, handledEventsToo: true);
    }
}
`
	snap, err := Parse(context.Background(), "Host.cs", []byte(src), 0)
	require.NoError(t, err)
	calls := FindAll(snap.Root(), "invocation_expression")
	require.Len(t, calls, 1)

	args := Arguments(calls[0])
	require.Len(t, args, 3)
	assert.Equal(t, "", ArgumentName(args[0], snap.Source))
	assert.Equal(t, "", ArgumentName(args[1], snap.Source))
	assert.Equal(t, "handledEventsToo", ArgumentName(args[2], snap.Source))
	assert.Equal(t, "true", snap.Text(ArgumentValue(args[2])))
}

func TestSnapshot_Locate(t *testing.T) {
	snap := parseSample(t)
	field := FindAll(snap.Root(), "field_declaration")[0]
	anchor := AnchorOf(field)
	assert.Equal(t, uint32(7), anchor.Line)

	found := snap.Locate(anchor)
	require.NotNil(t, found)
	assert.Equal(t, field.StartByte(), found.StartByte())

	t.Run("Kind mismatch", func(t *testing.T) {
		assert.Nil(t, snap.Locate(Anchor{Range: anchor.Range, Kind: "method_declaration"}))
	})
	t.Run("Out of range", func(t *testing.T) {
		assert.Nil(t, snap.Locate(Anchor{Range: Range{Start: 1, End: 100000}, Kind: "field_declaration"}))
	})
}

func TestApplyEdits(t *testing.T) {
	src := []byte("abcdef")

	out, err := ApplyEdits(src, []Edit{
		{Start: 4, End: 6, Text: "XY", Expect: "ef"},
		{Start: 0, End: 1, Text: "_"},
		Insert(3, "+"),
	})
	require.NoError(t, err)
	assert.Equal(t, "_bc+dXY", string(out))

	_, err = ApplyEdits(src, []Edit{{Start: 0, End: 3}, {Start: 2, End: 4}})
	assert.Error(t, err, "overlapping edits must be rejected")

	_, err = ApplyEdits(src, []Edit{{Start: 0, End: 2, Expect: "zz"}})
	assert.Error(t, err, "guarded edits must see the expected text")
}

func TestLineSpan(t *testing.T) {
	src := []byte("a\n    stmt;\nb")
	r := LineSpan(src, Range{Start: 6, End: 11})
	assert.Equal(t, "    stmt;\n", string(src[r.Start:r.End]))

	inline := []byte("x = 1; stmt;")
	r = LineSpan(inline, Range{Start: 7, End: 12})
	assert.Equal(t, "stmt;", string(inline[r.Start:r.End]))

	assert.Equal(t, "    ", Indentation(src, 8))
	assert.Equal(t, "\t", IndentUnit("\t\t"))
}

func TestFingerprint(t *testing.T) {
	assert.Len(t, Fingerprint([]byte("x")), 16)
	assert.Equal(t, TextKey("a  b\n c"), TextKey("a b c"))
	assert.Equal(t, "List<int>", Compact("List< int >"))
}
