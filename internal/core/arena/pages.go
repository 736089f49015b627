package arena

// RootRef names the root asset whose file holds an object's pages.
type RootRef struct {
	Kind Kind
	Key  Key
}

func (r RootRef) IsZero() bool { return r.Key == 0 }

// Location is where a persisted object lives: which asset file and the first
// page of its chain.
type Location struct {
	Root RootRef
	Page uint64
}

// PageIndex maps arena keys to persisted page chains. Only the save/load
// orchestrator reads or writes it.
type PageIndex struct {
	m map[Key]Location
}

func NewPageIndex() *PageIndex {
	return &PageIndex{m: make(map[Key]Location)}
}

func (p *PageIndex) Get(k Key) (Location, bool) {
	loc, ok := p.m[k]
	return loc, ok
}

func (p *PageIndex) Set(k Key, loc Location) { p.m[k] = loc }

func (p *PageIndex) Delete(k Key) { delete(p.m, k) }

func (p *PageIndex) Len() int { return len(p.m) }

// DropRoot forgets every entry stored in the given asset file.
func (p *PageIndex) DropRoot(root RootRef) {
	for k, loc := range p.m {
		if loc.Root == root {
			delete(p.m, k)
		}
	}
}
