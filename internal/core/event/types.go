package event

// Edit session events.

type ActionApplied struct {
	Name  string
	Steps int
}

type ActionUndone struct {
	Name string
}

type ActionRedone struct {
	Name string
}

type ProjectSaved struct {
	Dir      string
	Files    int
	Objects  int
	Problems int
}

type ProjectLoaded struct {
	Dir      string
	Objects  int
	Problems int
}
