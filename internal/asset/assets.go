package asset

import (
	"fmt"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/undo"
	"github.com/l1jgo/inkgraph/internal/edge"
)

// assetPtr constrains the pointer type of an asset kind.
type assetPtr[A any] interface {
	*A
	component.Asset
}

func rootOf[A any](e *edge.Edge[component.Folder, A], h arena.Handle[A]) arena.RootRef {
	return arena.RootRef{Kind: e.Children.Kind(), Key: h.Key}
}

// siblingNames lists the names of the other assets of the same kind in
// folder.
func siblingNames[A any, PA assetPtr[A]](e *edge.Edge[component.Folder, A], folder arena.Handle[component.Folder], skip arena.Key) []string {
	var names []string
	for _, h := range e.ChildHandles(folder) {
		if h.Key == skip {
			continue
		}
		if obj, ok := e.Children.Get(h); ok {
			names = append(names, PA(obj).AssetName())
		}
	}
	return names
}

// AddAsset links obj into folder under a deduplicated name. The file is not
// written until the next save; undo removes whatever file a save in between
// may have produced.
func AddAsset[A any, PA assetPtr[A]](l *Library, e *edge.Edge[component.Folder, A], folder arena.Handle[component.Folder], obj PA) (arena.Handle[A], *undo.Action, error) {
	if !l.proj.Folders.Has(folder.Key) {
		return arena.Handle[A]{}, nil, fmt.Errorf("add %s: folder %s: %w", e.Name, folder, ErrNotFound)
	}
	if name := obj.AssetName(); name != "" && !validName(name) {
		return arena.Handle[A]{}, nil, fmt.Errorf("add %s %q: %w", e.Name, name, ErrInvalid)
	}
	obj.SetAssetName(Dedupe(obj.AssetName(), siblingNames[A, PA](e, folder, 0)))
	h, act, err := e.AddAtIndex(folder, (*A)(obj), -1)
	if err != nil {
		return arena.Handle[A]{}, nil, err
	}
	root := rootOf(e, h)
	act.Push(undo.Step{
		Undo: func() {
			if cur, ok := e.Children.Get(h); ok {
				l.removeAssetFile(root, PA(cur))
			}
		},
	})
	return h, act, nil
}

// DeleteAsset unlinks h and removes its file right away. Redo removes the
// file again; undo does nothing to files since the next save rewrites the
// relinked asset.
func DeleteAsset[A any, PA assetPtr[A]](l *Library, e *edge.Edge[component.Folder, A], h arena.Handle[A]) (*undo.Action, error) {
	obj, ok := e.Children.Get(h)
	if !ok {
		return nil, nil
	}
	root := rootOf(e, h)
	l.removeAssetFile(root, PA(obj))
	del, err := e.Delete(h)
	if del == nil {
		return nil, err
	}
	file := undo.Step{
		Redo: func() {
			if cur, ok := e.Children.Get(h); ok {
				l.removeAssetFile(root, PA(cur))
			}
		},
	}
	return undo.New(e.Name+" delete", file).Append(del), nil
}

// renameStep changes the name of h, dropping the file stored under the old
// name first. Both directions go through it.
func renameStep[A any, PA assetPtr[A]](l *Library, e *edge.Edge[component.Folder, A], h arena.Handle[A], from, to string) undo.Step {
	root := rootOf(e, h)
	apply := func(name string) {
		cur, ok := e.Children.GetMut(h)
		if !ok {
			return
		}
		l.removeAssetFile(root, PA(cur))
		PA(cur).SetAssetName(name)
	}
	return undo.Step{
		Redo: func() { apply(to) },
		Undo: func() { apply(from) },
	}
}

// RenameAsset renames h, deduplicated against its siblings. The stale file
// is deleted now and again on undo and redo, so the next save regenerates
// it under whatever name is current.
func RenameAsset[A any, PA assetPtr[A]](l *Library, e *edge.Edge[component.Folder, A], h arena.Handle[A], name string) (*undo.Action, error) {
	obj, ok := e.Children.Get(h)
	if !ok {
		return nil, fmt.Errorf("rename %s %s: %w", e.Name, h, ErrNotFound)
	}
	if !validName(name) {
		return nil, fmt.Errorf("rename %s %q: %w", e.Name, name, ErrInvalid)
	}
	old := PA(obj).AssetName()
	next := Dedupe(name, siblingNames[A, PA](e, *PA(obj).AssetFolder(), h.Key))
	if next == old {
		return nil, nil
	}
	step := renameStep[A, PA](l, e, h, old, next)
	step.Redo()
	return undo.New(e.Name+" rename", step), nil
}

// TransferAsset moves h to the end of folder, renaming it when the name is
// taken there.
func TransferAsset[A any, PA assetPtr[A]](l *Library, e *edge.Edge[component.Folder, A], h arena.Handle[A], folder arena.Handle[component.Folder]) (*undo.Action, error) {
	obj, ok := e.Children.Get(h)
	if !ok {
		return nil, fmt.Errorf("transfer %s %s: %w", e.Name, h, ErrNotFound)
	}
	if *PA(obj).AssetFolder() == folder {
		return nil, nil
	}
	if !l.proj.Folders.Has(folder.Key) {
		return nil, fmt.Errorf("transfer %s: folder %s: %w", e.Name, folder, ErrNotFound)
	}
	root := rootOf(e, h)
	stale := func() {
		if cur, ok := e.Children.Get(h); ok {
			l.removeAssetFile(root, PA(cur))
		}
	}
	old := PA(obj).AssetName()
	next := Dedupe(old, siblingNames[A, PA](e, folder, h.Key))

	stale()
	move, err := e.Transfer(h, folder)
	if err != nil || move == nil {
		return nil, err
	}
	act := undo.New(e.Name+" transfer", undo.Step{Redo: stale, Undo: stale}).Append(move)
	if next != old {
		step := renameStep[A, PA](l, e, h, old, next)
		step.Redo()
		act.Push(step)
	}
	return act, nil
}

// The typed entry points below fix the edge for each asset kind.

func (l *Library) AddGraphic(folder arena.Handle[component.Folder], g *component.Graphic) (arena.Handle[component.Graphic], *undo.Action, error) {
	return AddAsset(l, l.proj.FolderGraphics, folder, g)
}

func (l *Library) AddPalette(folder arena.Handle[component.Folder], p *component.Palette) (arena.Handle[component.Palette], *undo.Action, error) {
	return AddAsset(l, l.proj.FolderPalettes, folder, p)
}

func (l *Library) DeleteGraphic(h arena.Handle[component.Graphic]) (*undo.Action, error) {
	return DeleteAsset[component.Graphic, *component.Graphic](l, l.proj.FolderGraphics, h)
}

func (l *Library) DeletePalette(h arena.Handle[component.Palette]) (*undo.Action, error) {
	return DeleteAsset[component.Palette, *component.Palette](l, l.proj.FolderPalettes, h)
}

func (l *Library) RenameGraphic(h arena.Handle[component.Graphic], name string) (*undo.Action, error) {
	return RenameAsset[component.Graphic, *component.Graphic](l, l.proj.FolderGraphics, h, name)
}

func (l *Library) RenamePalette(h arena.Handle[component.Palette], name string) (*undo.Action, error) {
	return RenameAsset[component.Palette, *component.Palette](l, l.proj.FolderPalettes, h, name)
}

func (l *Library) TransferGraphic(h arena.Handle[component.Graphic], folder arena.Handle[component.Folder]) (*undo.Action, error) {
	return TransferAsset[component.Graphic, *component.Graphic](l, l.proj.FolderGraphics, h, folder)
}

func (l *Library) TransferPalette(h arena.Handle[component.Palette], folder arena.Handle[component.Folder]) (*undo.Action, error) {
	return TransferAsset[component.Palette, *component.Palette](l, l.proj.FolderPalettes, h, folder)
}
