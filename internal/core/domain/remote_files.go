package domain

// RemoteFiles maps original filenames to remote handles in upload order.
// Putting an existing filename replaces its handle and keeps its position.
type RemoteFiles struct {
	order  []string
	byName map[string]RemoteFile
}

func NewRemoteFiles() *RemoteFiles {
	return &RemoteFiles{byName: make(map[string]RemoteFile)}
}

func (f *RemoteFiles) Put(file RemoteFile) {
	if _, ok := f.byName[file.Filename]; !ok {
		f.order = append(f.order, file.Filename)
	}
	f.byName[file.Filename] = file
}

func (f *RemoteFiles) Get(filename string) (RemoteFile, bool) {
	if f == nil {
		return RemoteFile{}, false
	}
	file, ok := f.byName[filename]
	return file, ok
}

func (f *RemoteFiles) Len() int {
	if f == nil {
		return 0
	}
	return len(f.order)
}

// Filenames returns the distinct filenames in first-upload order.
func (f *RemoteFiles) Filenames() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Files returns the handles in the same order as Filenames.
func (f *RemoteFiles) Files() []RemoteFile {
	if f == nil {
		return nil
	}
	out := make([]RemoteFile, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.byName[name])
	}
	return out
}
