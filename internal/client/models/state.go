package models

// NoteState is the {title, text} pair captured when an edit session opens.
type NoteState struct {
	Title string
	Text  string
}

// Change describes how an edit session differs from its opening state.
type Change int

const (
	ChangeNone Change = iota
	ChangeTitle
	ChangeText
	ChangeBoth
)

// Compare classifies next against the opening state s.
func (s NoteState) Compare(next NoteState) Change {
	titleChanged := s.Title != next.Title
	textChanged := s.Text != next.Text
	switch {
	case titleChanged && textChanged:
		return ChangeBoth
	case titleChanged:
		return ChangeTitle
	case textChanged:
		return ChangeText
	default:
		return ChangeNone
	}
}

// Patch builds the partial-update body for a single-field change.
func (c Change) Patch(next NoteState) NotePatch {
	switch c {
	case ChangeTitle:
		return NotePatch{Title: &next.Title}
	case ChangeText:
		return NotePatch{Description: &next.Text}
	case ChangeBoth:
		return NotePatch{Title: &next.Title, Description: &next.Text}
	default:
		return NotePatch{}
	}
}
