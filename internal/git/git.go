package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ChangedFile is a document touched since a base ref, with the new-side
// line numbers of its changed hunks.
type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// Regex for chunk header: @@ -oldStart,oldLen +newStart,newLen @@
var chunkHeader = regexp.MustCompile(`^@@ \-\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// GetChangedFiles runs git diff in dir and returns the changed C# files with
// absolute paths.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	top, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	root := strings.TrimSpace(string(top))

	output, err := run(ctx, dir, "diff", "-U0", baseRef, "--", "*.cs")
	if err != nil {
		return nil, err
	}
	changes, err := parseDiff(output)
	if err != nil {
		return nil, err
	}
	for i := range changes {
		changes[i].Path = filepath.Join(root, filepath.FromSlash(changes[i].Path))
	}
	return changes, nil
}

// ChangedPaths returns the absolute paths of C# files changed since baseRef.
func ChangedPaths(ctx context.Context, dir, baseRef string) ([]string, error) {
	changes, err := GetChangedFiles(ctx, dir, baseRef)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	return paths, nil
}

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return output, nil
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var changes []ChangedFile
	var currentFile *ChangedFile

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git") {
			// a/path/to/file b/path/to/file; the b/ side is the new version
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				if currentFile != nil {
					changes = append(changes, *currentFile)
				}
				currentFile = &ChangedFile{Path: strings.TrimPrefix(parts[3], "b/"), ChangedLines: []int{}}
			}
			continue
		}

		if currentFile == nil || !strings.HasPrefix(line, "@@") {
			continue
		}
		matches := chunkHeader.FindStringSubmatch(line)
		if len(matches) < 2 {
			continue
		}
		startLine, _ := strconv.Atoi(matches[1])
		count := 1
		if len(matches) > 2 && matches[2] != "" {
			count, _ = strconv.Atoi(matches[2])
		}
		// A zero count is a pure deletion; the line after it counts as touched.
		if count == 0 {
			currentFile.ChangedLines = append(currentFile.ChangedLines, startLine+1)
			continue
		}
		for i := 0; i < count; i++ {
			currentFile.ChangedLines = append(currentFile.ChangedLines, startLine+i)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}

	if currentFile != nil {
		changes = append(changes, *currentFile)
	}
	return changes, nil
}

// Touches reports whether line (1-based) is among the changed lines.
func (c ChangedFile) Touches(line int) bool {
	for _, l := range c.ChangedLines {
		if l == line {
			return true
		}
	}
	return false
}
