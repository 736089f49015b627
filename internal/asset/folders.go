package asset

import (
	"fmt"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/undo"
	"github.com/l1jgo/inkgraph/internal/project"
)

// maxFolderDepth bounds subtree walks.
const maxFolderDepth = 256

// AddFolder creates a subfolder of parent. Its directory appears at the next
// save.
func (l *Library) AddFolder(parent arena.Handle[component.Folder], name string) (arena.Handle[component.Folder], *undo.Action, error) {
	p, ok := l.proj.Folders.Get(parent)
	if !ok {
		return arena.Handle[component.Folder]{}, nil, fmt.Errorf("add folder: parent %s: %w", parent, ErrNotFound)
	}
	if name != "" && !validName(name) {
		return arena.Handle[component.Folder]{}, nil, fmt.Errorf("add folder %q: %w", name, ErrInvalid)
	}
	name = Dedupe(name, folderNames(l.proj, p, 0))
	return l.proj.SubFolders.AddAtIndex(parent, &component.Folder{Name: name}, -1)
}

// subtree collects the assets and resources below folder h.
type subtree struct {
	graphics []arena.Handle[component.Graphic]
	palettes []arena.Handle[component.Palette]
	audio    []arena.Handle[component.Audio]
}

func (l *Library) collect(h arena.Handle[component.Folder], depth int, out *subtree) {
	f, ok := l.proj.Folders.Get(h)
	if !ok || depth > maxFolderDepth {
		return
	}
	for _, o := range f.Graphics {
		out.graphics = append(out.graphics, o.Handle)
	}
	for _, o := range f.Palettes {
		out.palettes = append(out.palettes, o.Handle)
	}
	for _, o := range f.Audio {
		out.audio = append(out.audio, o.Handle)
	}
	for _, o := range f.Folders {
		l.collect(o.Handle, depth+1, out)
	}
}

// DeleteFolder unlinks a folder with everything below it. Asset files in
// the subtree are deleted and resource files quarantined right away; undo
// brings the resource files back, the asset files are rewritten by the next
// save. The root folder cannot be deleted.
func (l *Library) DeleteFolder(h arena.Handle[component.Folder]) (*undo.Action, error) {
	if h == l.proj.Root() {
		return nil, fmt.Errorf("delete folder: root: %w", ErrInvalid)
	}
	if !l.proj.Folders.Has(h.Key) {
		return nil, nil
	}
	var st subtree
	l.collect(h, 0, &st)
	cells := make([]*trashCell, 0, len(st.audio))
	for _, ah := range st.audio {
		if a, ok := l.proj.Audio.Get(ah); ok {
			cells = append(cells, &trashCell{rel: a.Path})
		}
	}

	purge := func() {
		for _, gh := range st.graphics {
			if g, ok := l.proj.Graphics.Get(gh); ok {
				l.removeAssetFile(project.GraphicRoot(gh), g)
			}
		}
		for _, ph := range st.palettes {
			if p, ok := l.proj.Palettes.Get(ph); ok {
				l.removeAssetFile(project.PaletteRoot(ph), p)
			}
		}
		for _, c := range cells {
			c.out(l)
		}
	}
	restore := func() {
		for i := len(cells) - 1; i >= 0; i-- {
			cells[i].back(l)
		}
	}

	purge()
	del, err := l.proj.SubFolders.Delete(h)
	if del == nil {
		restore()
		return nil, err
	}
	return undo.New("folder delete", undo.Step{Redo: purge, Undo: restore}).Append(del), nil
}
