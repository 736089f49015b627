package component

import (
	"path"
	"strings"

	"github.com/l1jgo/inkgraph/internal/core/arena"
)

// Audio is an imported sound file. It is identified by its path relative to
// the project root and by its content hash, so a file renamed outside the
// editor can be found again.
type Audio struct {
	Name   string // file name including extension
	Folder arena.Handle[Folder]
	Path   string // relative, slash separated
	Hash   string // hex BLAKE2b-256 of the file contents
	Size   int64
}

func (a *Audio) ResourceName() string                  { return a.Name }
func (a *Audio) SetResourceName(name string)           { a.Name = name }
func (a *Audio) ResourceFolder() *arena.Handle[Folder] { return &a.Folder }

var audioExts = map[string]bool{".wav": true, ".ogg": true, ".mp3": true, ".flac": true}

// IsAudioFile reports whether a file name has a supported audio extension.
func IsAudioFile(name string) bool {
	return audioExts[strings.ToLower(path.Ext(name))]
}
