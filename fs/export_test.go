package fs

// SetRename replaces the rename step of atomic writes, for simulating a
// crash between writing the temp file and moving it into place.
func SetRename(s *ResultStore, fn func(oldpath, newpath string) error) {
	s.rename = fn
}
