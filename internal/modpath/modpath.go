package modpath

import "strings"

// Exports is the sentinel dependency name a factory can use to export
// itself before all of its dependencies resolve. It is not a module and
// never resolves to one.
const Exports = "exports"

// IsRelative reports whether id needs resolving against a referrer.
// Anything that does not start with "./" or "../" is already absolute.
func IsRelative(id string) bool {
	return strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../")
}

// Resolve turns a relative module identifier into an absolute one, using
// the identifier of the referencing module as the anchor. The function is
// pure: the same pair of inputs always yields the same output.
//
// The sentinel Exports and absolute identifiers are returned unchanged.
// Otherwise the directory portion of the referrer becomes the base, and
// the directory segments of id are walked left to right: "." is a no-op,
// ".." pops one segment off the base, and any other segment is appended.
// Popping an already-empty base makes the remaining unprocessed directory
// segments the new base verbatim and stops the walk. The basename of id
// is always appended last.
func Resolve(referrer, id string) string {
	if id == Exports || !IsRelative(id) {
		return id
	}

	base := strings.Split(referrer, "/")
	base = base[:len(base)-1]

	segs := strings.Split(id, "/")
	name := segs[len(segs)-1]
	dirs := segs[:len(segs)-1]

	for i := 0; i < len(dirs); i++ {
		switch dirs[i] {
		case ".":
			// no-op
		case "..":
			if len(base) > 0 {
				base = base[:len(base)-1]
				continue
			}
			// Nothing left to pop against; the rest of the directory
			// segments stand on their own.
			base = append([]string(nil), dirs[i+1:]...)
			i = len(dirs)
		default:
			base = append(base, dirs[i])
		}
	}

	return strings.Join(append(base, name), "/")
}
