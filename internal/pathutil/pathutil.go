// Package pathutil resolves user-supplied remote paths against a session root.
//
// Remote paths are always forward-slash separated, regardless of the local
// platform. Windows separators in caller input are normalized first.
package pathutil

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// Separator is the remote path separator.
	Separator = "/"

	currentDirPrefix = "./"
)

// Normalize replaces Windows separators with forward slashes.
func Normalize(p string) string {
	return strings.ReplaceAll(p, `\`, Separator)
}

// Root converts the working directory reported by a remote server into a
// session root. One trailing separator is stripped, so a server root of "/"
// yields "" and relative paths resolve to "/name".
func Root(pwd string) string {
	return strings.TrimSuffix(Normalize(pwd), Separator)
}

// Resolve returns the absolute form of p. Absolute paths are returned with a
// single trailing separator removed. Relative paths have a leading "./"
// removed and are joined onto root.
func Resolve(p, root string) string {
	p = Normalize(p)
	if path.IsAbs(p) {
		return trimOne(p)
	}
	p = strings.TrimPrefix(p, currentDirPrefix)
	if p == "" || p == "." {
		if root == "" {
			return Separator
		}
		return root
	}
	return root + Separator + trimOne(p)
}

// ObjectKey converts p into an object store key. Keys never begin with a
// separator, so leading "/" and "./" are dropped along with one trailing
// separator.
func ObjectKey(p string) string {
	p = strings.TrimPrefix(Normalize(p), currentDirPrefix)
	p = strings.TrimLeft(p, Separator)
	return strings.TrimSuffix(p, Separator)
}

// DirPrefix returns p with exactly one trailing separator. The empty path
// stays empty so it still addresses the whole bucket.
func DirPrefix(p string) string {
	if p == "" {
		return ""
	}
	return strings.TrimRight(p, Separator) + Separator
}

// Child joins name onto dir.
func Child(dir, name string) string {
	dir = Normalize(dir)
	if dir == Separator {
		return Separator + name
	}
	dir = strings.TrimSuffix(dir, Separator)
	if dir == "" {
		return name
	}
	return dir + Separator + name
}

// Parent returns everything before the last separator of p, after dropping
// a trailing separator. It returns "" when p has no parent component.
func Parent(p string) string {
	p = strings.TrimSuffix(Normalize(p), Separator)
	i := strings.LastIndex(p, Separator)
	if i < 0 {
		return ""
	}
	if i == 0 {
		return Separator
	}
	return p[:i]
}

// Base returns the last element of p.
func Base(p string) string {
	p = strings.TrimSuffix(Normalize(p), Separator)
	if i := strings.LastIndex(p, Separator); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Ext returns the text after the last dot of name. Names whose only dot is
// leading (".bashrc") or trailing ("file.") have no extension.
func Ext(name string) string {
	i := strings.LastIndex(name, ".")
	if i > 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return ""
}

// Hidden reports whether name is dot-prefixed.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func trimOne(p string) string {
	if len(p) > 1 {
		return strings.TrimSuffix(p, Separator)
	}
	return p
}

// EncodeName returns name as valid UTF-8 in Unicode NFC form. Invalid byte
// sequences become U+FFFD, and decomposed names written by macOS match the
// composed names most servers store.
func EncodeName(name string) string {
	return norm.NFC.String(strings.ToValidUTF8(name, "\uFFFD"))
}
