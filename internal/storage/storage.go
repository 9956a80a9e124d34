package storage

// Store groups the record stores sharing one state directory.
type Store struct {
	Files      *FileStore
	Night      *NightStore
	Weekly     *WeeklyStore
	ConfigMeta *ConfigMetaStore
}

// New opens the stores rooted at dir. Nothing is read or created until a
// record is first accessed.
func New(dir string) *Store {
	files := NewFileStore(dir)
	return &Store{
		Files:      files,
		Night:      NewNightStore(files),
		Weekly:     NewWeeklyStore(files),
		ConfigMeta: NewConfigMetaStore(files),
	}
}
