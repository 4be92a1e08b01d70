package report

// TextPosition represents the position of a significant piece of text in a
// namespace file.  Namespace files are line oriented so only a line number is
// tracked.  Line numbers are one-indexed.
type TextPosition struct {
	Line int
}
