package filesystem

import (
	"strings"

	"github.com/weberc2/blockfs/pkg/object"
	. "github.com/weberc2/blockfs/pkg/types"
)

// parsePath splits an absolute path into its components. A trailing
// separator marks that the path must resolve to a directory.
func parsePath(path string) ([]string, bool, error) {
	if path == "" || path[0] != '/' || strings.Contains(path, "//") {
		return nil, false, &PathError{Path: path, Err: InvalidPathErr}
	}
	if path == "/" {
		return nil, false, nil
	}

	requireDir := strings.HasSuffix(path, "/")
	components := strings.Split(strings.TrimSuffix(path[1:], "/"), "/")
	for _, component := range components {
		if err := object.ValidateName(component); err != nil {
			return nil, false, &PathError{Path: path, Err: InvalidPathErr}
		}
	}
	return components, requireDir, nil
}

// canonical renders components as a rooted path without a trailing
// separator; no components is the root.
func canonical(components []string) string {
	return "/" + strings.Join(components, "/")
}

// ancestors returns the canonical paths of every prefix of `components`,
// shortest first, excluding the root and including the full path.
func ancestors(components []string) []string {
	paths := make([]string, len(components))
	for i := range components {
		paths[i] = canonical(components[:i+1])
	}
	return paths
}

func split(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(path[1:], "/")
}
