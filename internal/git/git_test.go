package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/src/Gauge.cs b/src/Gauge.cs
index 1111111..2222222 100644
--- a/src/Gauge.cs
+++ b/src/Gauge.cs
@@ -3,0 +4,2 @@ namespace Demo
+using System.Windows;
+using System.Windows.Controls;
@@ -10 +12 @@ public class Gauge
-    old
+    new
diff --git a/src/Dial.cs b/src/Dial.cs
index 3333333..4444444 100644
--- a/src/Dial.cs
+++ b/src/Dial.cs
@@ -7,2 +6,0 @@ public class Dial
-    a
-    b
`

func TestParseDiff(t *testing.T) {
	changes, err := parseDiff([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "src/Gauge.cs", changes[0].Path)
	assert.Equal(t, []int{4, 5, 12}, changes[0].ChangedLines)
	assert.True(t, changes[0].Touches(12))
	assert.False(t, changes[0].Touches(6))

	assert.Equal(t, "src/Dial.cs", changes[1].Path)
	assert.Equal(t, []int{7}, changes[1].ChangedLines)
}
