package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"avport/internal/catalog"
	"avport/internal/fixerr"
	"avport/internal/semantic"
	"avport/internal/syntax"
	"avport/internal/typemap"
	"avport/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedScope []string

func (s fixedScope) Resolve(workspace.Scope, string) ([]string, error) {
	return s, nil
}

type failingStore struct {
	*workspace.MemoryStore
}

func (s failingStore) Write(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func newOrchestrator(t *testing.T, files map[string]string, opts ...Option) (*Orchestrator, *workspace.MemoryStore) {
	t.Helper()
	data := map[string][]byte{}
	var paths []string
	for p, src := range files {
		data[p] = []byte(src)
		paths = append(paths, p)
	}
	sort.Strings(paths)
	store := workspace.NewMemoryStore(data)
	o := New(catalog.Default(), semantic.NewDefaultResolver(typemap.Default()), fixedScope(paths), store, opts...)
	return o, store
}

func content(t *testing.T, store *workspace.MemoryStore, path string) string {
	t.Helper()
	data, ok := store.Content(path)
	require.True(t, ok)
	return string(data)
}

// remaining analyzes src and returns the rule ids still reported.
func remaining(t *testing.T, path, src string, ids ...string) []string {
	t.Helper()
	snap, err := syntax.Parse(context.Background(), path, []byte(src), 0)
	require.NoError(t, err)
	sc := semantic.NewContext(snap, semantic.NewDefaultResolver(typemap.Default()))
	var out []string
	for _, f := range catalog.Default().Analyze(sc, catalog.NewFilter(ids...)) {
		out = append(out, f.RuleID)
	}
	return out
}

func solutionRequest(ids ...string) FixRequest {
	return FixRequest{Scope: workspace.ScopeSolution, DiagnosticIDs: ids}
}

const propertyWithCallback = `using System.Windows;

namespace Demo
{
    public class Gauge : FrameworkElement
    {
        public static readonly DependencyProperty ValueProperty =
            DependencyProperty.Register("Value", typeof(double), typeof(Gauge), new PropertyMetadata(0.0, OnValueChanged));

        private static void OnValueChanged(DependencyObject d, DependencyPropertyChangedEventArgs e)
        {
        }
    }
}
`

func TestScenario_PropertyWithCallback(t *testing.T) {
	o, store := newOrchestrator(t, map[string]string{"Gauge.cs": propertyWithCallback})

	out, err := o.Run(context.Background(), solutionRequest())
	require.NoError(t, err)
	assert.Empty(t, out.Failures)
	assert.Equal(t, 1, out.PerDiagnosticIDCounts["AVP003"])
	assert.Equal(t, 1, out.PerDiagnosticIDCounts["AVP005"])
	assert.Equal(t, []string{"Gauge.cs"}, out.ModifiedFiles)

	got := content(t, store, "Gauge.cs")
	assert.Contains(t, got, "public static readonly StyledProperty<double> ValueProperty =")
	assert.Contains(t, got, `AvaloniaProperty.Register<Gauge, double>("Value", 0.0);`)
	assert.Contains(t, got, "static Gauge()")
	assert.Contains(t, got, "ValueProperty.Changed.AddClassHandler<Gauge>(OnValueChanged);")
	assert.Contains(t, got, "OnValueChanged(AvaloniaObject d, AvaloniaPropertyChangedEventArgs e)")
	assert.NotContains(t, got, "DependencyProperty")
	assert.NotContains(t, got, "PropertyMetadata")
	assert.NotContains(t, got, "using System.Windows;")

	assert.Empty(t, remaining(t, "Gauge.cs", got, "AVP003"))
}

const instanceHandler = `using System.Windows;

namespace Demo
{
    public class Host
    {
        public void Attach()
        {
            AddHandler(ClickEvent, new RoutedEventHandler(OnClick));
            AddHandler(ClickEvent, new RoutedEventHandler(OnClick), true);
            RemoveHandler(ClickEvent, new RoutedEventHandler(OnClick));
        }
    }
}
`

func TestScenario_InstanceHandler(t *testing.T) {
	o, store := newOrchestrator(t, map[string]string{"Host.cs": instanceHandler})

	out, err := o.Run(context.Background(), solutionRequest("AVP011", "AVP012"))
	require.NoError(t, err)
	assert.Empty(t, out.Failures)
	assert.Equal(t, map[string]int{"AVP011": 2, "AVP012": 1}, out.PerDiagnosticIDCounts)
	assert.Equal(t, 3, out.AppliedCount)

	got := content(t, store, "Host.cs")
	assert.Contains(t, got, "AddHandler(ClickEvent, OnClick);")
	assert.Contains(t, got, "AddHandler(ClickEvent, OnClick, handledEventsToo: true);")
	assert.Contains(t, got, "RemoveHandler(ClickEvent, OnClick);")
	assert.NotContains(t, got, "new RoutedEventHandler")
}

func TestRun_StaticConstructorOrder(t *testing.T) {
	src := `using System.Windows;

class Card
{
    public static readonly DependencyProperty AProperty = DependencyProperty.Register("A", typeof(int), typeof(Card), new PropertyMetadata(0, OnAChanged));
    public static readonly DependencyProperty BProperty = DependencyProperty.Register("B", typeof(int), typeof(Card), new PropertyMetadata(0, OnBChanged));

    static void OnAChanged(DependencyObject d, DependencyPropertyChangedEventArgs e) { }
    static void OnBChanged(DependencyObject d, DependencyPropertyChangedEventArgs e) { }
}
`
	o, store := newOrchestrator(t, map[string]string{"Card.cs": src})
	out, err := o.Run(context.Background(), solutionRequest("AVP003"))
	require.NoError(t, err)
	assert.Empty(t, out.Failures)
	assert.Equal(t, 2, out.AppliedCount)

	got := content(t, store, "Card.cs")
	assert.Equal(t, 1, strings.Count(got, "static Card()"))
	bField := strings.Index(got, "BProperty =")
	ctor := strings.Index(got, "static Card()")
	aHandler := strings.Index(got, "AProperty.Changed.AddClassHandler<Card>(OnAChanged);")
	bHandler := strings.Index(got, "BProperty.Changed.AddClassHandler<Card>(OnBChanged);")
	require.True(t, bField >= 0 && ctor >= 0 && aHandler >= 0 && bHandler >= 0, got)
	assert.Less(t, bField, ctor, "constructor follows the fields")
	assert.Less(t, ctor, aHandler)
	assert.Less(t, aHandler, bHandler, "handlers keep declaration order")
}

const addOwnerDoc = `using System.Windows;
using System.Windows.Controls;

namespace Demo
{
    public class MyControl
    {
        public static readonly RoutedEvent ClickEvent = Button.ClickEvent.AddOwner(typeof(MyControl));
    }
}
`

func TestScenario_AddOwner(t *testing.T) {
	o, store := newOrchestrator(t, map[string]string{"MyControl.cs": addOwnerDoc})

	out, err := o.Run(context.Background(), solutionRequest())
	require.NoError(t, err)
	assert.Empty(t, out.Failures)
	assert.Equal(t, 1, out.PerDiagnosticIDCounts["AVP015"])

	got := content(t, store, "MyControl.cs")
	assert.Contains(t, got, `public static readonly RoutedEvent<RoutedEventArgs> ClickEvent = RoutedEvent.Register<MyControl, RoutedEventArgs>("Click", RoutingStrategies.Bubble);`)
	assert.NotContains(t, got, "AddOwner")
	assert.Contains(t, got, "using Avalonia.Interactivity;")
	assert.Contains(t, got, "using Avalonia.Controls;")
}

const telemetryDoc = `using System;
using MS.Internal.Telemetry.PresentationFramework;

namespace Demo
{
    public class Dial
    {
        public Dial()
        {
            ControlsTraceLogger.AddControl(TelemetryControls.Dial);
        }

        public int Value { get; set; }
    }
}
`

func TestScenario_TelemetryRemoval(t *testing.T) {
	o, store := newOrchestrator(t, map[string]string{"Dial.cs": telemetryDoc})

	out, err := o.Run(context.Background(), solutionRequest())
	require.NoError(t, err)
	assert.Empty(t, out.Failures)
	assert.Equal(t, map[string]int{"AVP016": 1, "AVP007": 1}, out.PerDiagnosticIDCounts)

	got := content(t, store, "Dial.cs")
	assert.NotContains(t, got, "ControlsTraceLogger")
	assert.NotContains(t, got, "MS.Internal.Telemetry")
	assert.NotContains(t, got, "public Dial()")
	assert.Contains(t, got, "using System;")
	assert.Contains(t, got, "public int Value { get; set; }")
}

// ruleFixtures holds one document per diagnostic id together with a
// fragment the converted document must contain.
var ruleFixtures = []struct {
	id   string
	src  string
	want string
}{
	{"AVP001", `using System.Windows;
class Card
{
    public static readonly DependencyProperty TitleProperty = DependencyProperty.Register("Title", typeof(string), typeof(Card));
}
`, `public static readonly StyledProperty<string> TitleProperty = AvaloniaProperty.Register<Card, string>("Title");`},
	{"AVP002", `using System.Windows;
class Grid2
{
    public static readonly DependencyProperty RowProperty = DependencyProperty.RegisterAttached("Row", typeof(int), typeof(Grid2), new PropertyMetadata(0));
}
`, `AttachedProperty<int> RowProperty = AvaloniaProperty.RegisterAttached<Grid2, AvaloniaObject, int>("Row", 0);`},
	{"AVP003", propertyWithCallback, "ValueProperty.Changed.AddClassHandler<Gauge>(OnValueChanged);"},
	{"AVP004", `using System.Windows;
class Card
{
    public static readonly DependencyProperty SizeProperty = DependencyProperty.Register("Size", typeof(double), typeof(Card), new FrameworkPropertyMetadata(1.0, FrameworkPropertyMetadataOptions.AffectsMeasure));
}
`, "AffectsMeasure<Card>(SizeProperty);"},
	{"AVP005", `using System.Windows;
class Card
{
    static void OnChanged(DependencyObject d, DependencyPropertyChangedEventArgs e)
    {
    }
}
`, "static void OnChanged(AvaloniaObject d, AvaloniaPropertyChangedEventArgs e)"},
	{"AVP006", `using System.Windows.Controls;
class Card : UserControl
{
}
`, "class Card : Avalonia.Controls.UserControl"},
	{"AVP007", `using System.Windows.Media;
class Card
{
}
`, "using Avalonia.Media;"},
	{"AVP008", `using MS.Internal.WindowsBase;
[FriendAccessAllowed]
class Card
{
}
`, "class Card"},
	{"AVP009", `using System.Windows;
class Card
{
    public static readonly RoutedEvent SelectedEvent = EventManager.RegisterRoutedEvent("Selected", RoutingStrategy.Bubble, typeof(RoutedEventHandler), typeof(Card));
}
`, `RoutedEvent<RoutedEventArgs> SelectedEvent = RoutedEvent.Register<Card, RoutedEventArgs>("Selected", RoutingStrategies.Bubble);`},
	{"AVP010", `using System.Windows;
class Card
{
    public event RoutedEventHandler Selected
    {
        add { AddHandler(SelectedEvent, value); }
        remove { RemoveHandler(SelectedEvent, value); }
    }
}
`, "add => AddHandler(SelectedEvent, value);"},
	{"AVP011", instanceHandler, "AddHandler(ClickEvent, OnClick, handledEventsToo: true);"},
	{"AVP012", instanceHandler, "RemoveHandler(ClickEvent, OnClick);"},
	{"AVP013", `using System.Windows;
class Card
{
    void Select()
    {
        RaiseEvent(new RoutedEventArgs(SelectedEvent));
    }
}
`, "RaiseEvent(new RoutedEventArgs(SelectedEvent, this));"},
	{"AVP014", `using System.Windows;
using System.Windows.Input;
class Card
{
    static Card()
    {
        EventManager.RegisterClassHandler(typeof(Card), Mouse.MouseDownEvent, new MouseButtonEventHandler(OnMouseDown), true);
    }
}
`, "Mouse.MouseDownEvent.AddClassHandler<Card>((s, e) => OnMouseDown(s, e), handledEventsToo: true);"},
	{"AVP015", addOwnerDoc, `RoutedEvent.Register<MyControl, RoutedEventArgs>("Click", RoutingStrategies.Bubble)`},
	{"AVP016", `using MS.Utility;
class Card
{
    void Layout()
    {
        EventTrace.EasyTraceEvent(EventTrace.Keyword.KeywordGeneral, EventTrace.Event.LayoutBegin);
        Measure();
    }
}
`, "Measure();"},
	{"AVP017", `class Card
{
    protected override int EffectiveValuesInitialSize
    {
        get { return 42; }
    }

    public int Count { get; set; }
}
`, "public int Count { get; set; }"},
	{"AVP018", `class Card
{
    public static readonly StyledProperty<double> SizeProperty = AvaloniaProperty.Register<Card, double>("Size");

    public double Size
    {
        get { return (double)GetValue(SizeProperty); }
    }
}
`, "get { return GetValue(SizeProperty); }"},
	{"AVP019", `using System.Windows;
class Card
{
    static Card()
    {
        SizeProperty.OverrideMetadata(typeof(Card), new PropertyMetadata(2.0));
    }
}
`, "SizeProperty.OverrideDefaultValue<Card>(2.0);"},
}

func TestRuleFixtures_CoverCatalog(t *testing.T) {
	var ids []string
	for _, f := range ruleFixtures {
		ids = append(ids, f.id)
	}
	assert.Equal(t, catalog.Default().IDs(), ids)
}

func TestRoundTripClosurePerID(t *testing.T) {
	for _, tc := range ruleFixtures {
		t.Run(tc.id, func(t *testing.T) {
			require.Contains(t, remaining(t, "Doc.cs", tc.src, tc.id), tc.id)

			o, store := newOrchestrator(t, map[string]string{"Doc.cs": tc.src})
			out, err := o.Run(context.Background(), solutionRequest(tc.id))
			require.NoError(t, err)
			assert.Empty(t, out.Failures)
			assert.Positive(t, out.PerDiagnosticIDCounts[tc.id])

			got := content(t, store, "Doc.cs")
			assert.Contains(t, got, tc.want)
			assert.Empty(t, remaining(t, "Doc.cs", got, tc.id))
		})
	}
}

func TestIdempotence(t *testing.T) {
	files := map[string]string{}
	for _, tc := range ruleFixtures {
		files[tc.id+".cs"] = tc.src
	}
	o, store := newOrchestrator(t, files)

	first, err := o.Run(context.Background(), solutionRequest())
	require.NoError(t, err)
	assert.Positive(t, first.AppliedCount)

	sum := 0
	for _, n := range first.PerDiagnosticIDCounts {
		sum += n
	}
	assert.Equal(t, first.AppliedCount, sum)

	snapshot := map[string]string{}
	for p := range files {
		snapshot[p] = content(t, store, p)
	}

	second, err := o.Run(context.Background(), solutionRequest())
	require.NoError(t, err)
	assert.Zero(t, second.AppliedCount)
	assert.Empty(t, second.ModifiedFiles)
	for p, want := range snapshot {
		assert.Equal(t, want, content(t, store, p), p)
	}
}

func TestModeEquivalence(t *testing.T) {
	files := map[string]string{
		"a/Gauge.cs":     propertyWithCallback,
		"a/Host.cs":      instanceHandler,
		"b/MyControl.cs": addOwnerDoc,
		"b/Dial.cs":      telemetryDoc,
	}

	type run struct {
		outcome *FixOutcome
		files   map[string]string
	}
	runs := map[Mode]run{}
	for _, mode := range []Mode{ModeSequential, ModeParallel, ModeFixAll} {
		o, store := newOrchestrator(t, files, WithJobs(3))
		req := solutionRequest()
		req.Mode = mode
		out, err := o.Run(context.Background(), req)
		require.NoError(t, err)

		got := map[string]string{}
		for p := range files {
			got[p] = content(t, store, p)
		}
		runs[mode] = run{outcome: out, files: got}
	}

	base := runs[ModeSequential]
	for _, mode := range []Mode{ModeParallel, ModeFixAll} {
		r := runs[mode]
		assert.Equal(t, base.outcome.AppliedCount, r.outcome.AppliedCount, mode)
		assert.Equal(t, base.outcome.PerDiagnosticIDCounts, r.outcome.PerDiagnosticIDCounts, mode)
		assert.Equal(t, base.outcome.ModifiedFiles, r.outcome.ModifiedFiles, mode)
		assert.Equal(t, base.files, r.files, mode)
	}
	assert.Equal(t, []string{"a/Gauge.cs", "a/Host.cs", "b/Dial.cs", "b/MyControl.cs"}, base.outcome.ModifiedFiles)
}

const partlyMalformed = `using System.Windows;

class Card
{
    public static readonly DependencyProperty AProperty = DependencyProperty.Register("A", typeof(int), typeof(Card), CreateMetadata());

    public static readonly DependencyProperty BProperty = DependencyProperty.Register("B", typeof(int), typeof(Card));
}
`

func TestRun_SkipsFailedFindings(t *testing.T) {
	for _, mode := range []Mode{ModeSequential, ModeParallel, ModeFixAll} {
		t.Run(string(mode), func(t *testing.T) {
			o, store := newOrchestrator(t, map[string]string{"Card.cs": partlyMalformed})
			req := solutionRequest()
			req.Mode = mode
			out, err := o.Run(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, 1, out.AppliedCount)
			require.Len(t, out.Failures, 1)
			assert.Equal(t, fixerr.MalformedPattern, out.Failures[0].Code)
			assert.Equal(t, "AVP001", out.Failures[0].RuleID)
			assert.Equal(t, "Card.cs", out.Failures[0].Path)

			got := content(t, store, "Card.cs")
			assert.Contains(t, got, `StyledProperty<int> BProperty = AvaloniaProperty.Register<Card, int>("B");`)
			assert.Contains(t, got, "CreateMetadata()")
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	o, store := newOrchestrator(t, map[string]string{"Host.cs": instanceHandler})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := o.Run(ctx, solutionRequest())
	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	assert.Zero(t, out.AppliedCount)
	assert.Empty(t, store.Written())
}

// cancellingStore cancels the run after its first successful write.
type cancellingStore struct {
	*workspace.MemoryStore
	cancel context.CancelFunc
	writes *atomic.Int32
}

func (s cancellingStore) Write(ctx context.Context, path string, content []byte) error {
	if err := s.MemoryStore.Write(ctx, path, content); err != nil {
		return err
	}
	s.writes.Add(1)
	s.cancel()
	return nil
}

func TestRun_CancelledMidRun(t *testing.T) {
	files := map[string]string{
		"a/Gauge.cs":     propertyWithCallback,
		"a/Host.cs":      instanceHandler,
		"b/MyControl.cs": addOwnerDoc,
		"b/Dial.cs":      telemetryDoc,
	}
	data := map[string][]byte{}
	for p, src := range files {
		data[p] = []byte(src)
	}
	paths := []string{"a/Gauge.cs", "a/Host.cs", "b/Dial.cs", "b/MyControl.cs"}

	for _, mode := range []Mode{ModeSequential, ModeParallel} {
		t.Run(string(mode), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			mem := workspace.NewMemoryStore(data)
			store := cancellingStore{MemoryStore: mem, cancel: cancel, writes: &atomic.Int32{}}
			o := New(catalog.Default(), semantic.NewDefaultResolver(typemap.Default()), fixedScope(paths), store, WithJobs(2))

			req := solutionRequest()
			req.Mode = mode
			out, err := o.Run(ctx, req)
			require.NoError(t, err)
			assert.True(t, out.Cancelled)
			assert.Empty(t, out.Failures)
			assert.Equal(t, int(store.writes.Load()), out.AppliedCount)
			assert.GreaterOrEqual(t, out.AppliedCount, 1)
			assert.LessOrEqual(t, out.AppliedCount, 2)
			if mode == ModeSequential {
				assert.Equal(t, 1, out.AppliedCount)
				assert.Len(t, out.Documents, 1)
			}

			assert.Equal(t, mem.Written(), out.ModifiedFiles)
			for _, p := range paths {
				if !slices.Contains(out.ModifiedFiles, p) {
					assert.Equal(t, files[p], content(t, mem, p), p)
				}
			}
		})
	}
}

func TestRun_PersistenceFailure(t *testing.T) {
	store := workspace.NewMemoryStore(map[string][]byte{"Host.cs": []byte(instanceHandler)})
	o := New(catalog.Default(), semantic.NewDefaultResolver(typemap.Default()), fixedScope{"Host.cs"}, failingStore{store})

	out, err := o.Run(context.Background(), solutionRequest("AVP011"))
	require.NoError(t, err)
	assert.Zero(t, out.AppliedCount)
	assert.Empty(t, out.ModifiedFiles)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, fixerr.PersistenceFailure, out.Failures[0].Code)
	assert.Contains(t, out.Failures[0].Reason, "disk full")
}

func TestRun_IterationCeiling(t *testing.T) {
	o, _ := newOrchestrator(t, map[string]string{"Host.cs": instanceHandler}, WithMaxIterations(1))

	out, err := o.Run(context.Background(), solutionRequest("AVP011"))
	require.NoError(t, err)
	assert.Equal(t, 1, out.AppliedCount)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, fixerr.NotConverged, out.Failures[0].Code)
}

func TestRun_InvalidRequest(t *testing.T) {
	o, _ := newOrchestrator(t, map[string]string{"Host.cs": instanceHandler})

	_, err := o.Run(context.Background(), solutionRequest("AVP999"))
	assert.ErrorIs(t, err, fixerr.ErrInvalidRequest)

	_, err = o.Run(context.Background(), FixRequest{Scope: workspace.ScopeDocument})
	assert.ErrorIs(t, err, fixerr.ErrInvalidRequest)
}

func TestRun_ChangedSince(t *testing.T) {
	changed := func(ctx context.Context, ref string) ([]string, error) {
		assert.Equal(t, "main", ref)
		return []string{"Host.cs"}, nil
	}
	started := -1
	progress := 0
	o, store := newOrchestrator(t, map[string]string{
		"Host.cs":  instanceHandler,
		"Gauge.cs": propertyWithCallback,
	}, WithChangedFiles(changed),
		WithStart(func(n int) { started = n }),
		WithProgress(func(DocumentResult) { progress++ }))

	req := solutionRequest()
	req.ChangedSince = "main"
	out, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, started, "start reports the filtered document count")
	assert.Equal(t, started, progress)
	assert.Equal(t, []string{"Host.cs"}, out.ModifiedFiles)
	assert.Equal(t, []string{"Host.cs"}, store.Written())

	o, _ = newOrchestrator(t, map[string]string{"Host.cs": instanceHandler})
	_, err = o.Run(context.Background(), req)
	assert.ErrorIs(t, err, fixerr.ErrInvalidRequest)
}

func TestRun_ProgressAndNotes(t *testing.T) {
	var seen []string
	src := `using System.Windows;
class Card
{
    public static readonly RoutedEvent PingEvent = Widget.PingEvent.AddOwner(typeof(Card));
}
`
	o, _ := newOrchestrator(t, map[string]string{"Card.cs": src}, WithProgress(func(r DocumentResult) {
		seen = append(seen, r.Path)
	}))

	out, err := o.Run(context.Background(), solutionRequest("AVP015"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Card.cs"}, seen)
	require.Len(t, out.Notes, 1)
	assert.Equal(t, "AVP015", out.Notes[0].RuleID)
	assert.Contains(t, out.Notes[0].Text, string(fixerr.UnresolvedType))
	require.Len(t, out.Documents, 1)
	assert.Equal(t, 1, out.Documents[0].Iterations)
}

func TestRun_DiskWorkspace(t *testing.T) {
	root := t.TempDir()
	write := func(rel, body string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	write("App/App.csproj", `<Project Sdk="Microsoft.NET.Sdk"></Project>`)
	write("App/Host.cs", instanceHandler)

	sln, err := workspace.LoadSolution(root, workspace.LoadOptions{})
	require.NoError(t, err)

	o := New(catalog.Default(), semantic.NewDefaultResolver(typemap.Default()), sln, workspace.NewDiskStore())
	out, err := o.Run(context.Background(), FixRequest{Scope: workspace.ScopeProject, Target: "App", DiagnosticIDs: []string{"AVP011"}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.AppliedCount)
	require.Len(t, out.ModifiedFiles, 1)
	assert.Equal(t, "Host.cs", filepath.Base(out.ModifiedFiles[0]))
}
