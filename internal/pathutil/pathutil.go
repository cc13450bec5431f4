// Package pathutil implements the "Path utilities" component of
// spec.md §2: parent-of-path and join-two-paths helpers, normalized at
// the entry layer the way spec.md §9 requires ("edge cases '/' and
// trailing-slash inputs should be normalized at the entry layer").
package pathutil

import "strings"

// Split divides an absolute path into its parent directory and
// basename. Split("/") returns ("/", "/") — the root has no parent of
// its own, mirroring the original source's convention for the path
// that terminates the walk (original_source's get_parent/append).
func Split(path string) (parent, base string) {
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/", "/"
	}
	i := strings.LastIndexByte(path, '/')
	base = path[i+1:]
	if i == 0 {
		return "/", base
	}
	return path[:i], base
}

// Join appends child to parent, normalizing the case where parent
// already ends in "/" (the root) so the result never contains a
// doubled slash — the same normalization original_source's append()
// applies to its left operand.
func Join(parent, child string) string {
	if strings.HasSuffix(parent, "/") {
		return parent + child
	}
	return parent + "/" + child
}

// Clean normalizes a caller-supplied path: empty or "/" map to "/";
// any trailing slash is stripped.
func Clean(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}
