package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/feed"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
)

// List shows the first page of the feed for the current search.
func (a *App) List(ctx context.Context) error {
	err := a.feed.Load(ctx)
	return a.showFeed(err, 0)
}

// More loads the next page and prints only the new rows.
func (a *App) More(ctx context.Context) error {
	before := a.feed.Snapshot()
	if !before.HasMore() {
		fmt.Fprintln(a.out, "No more notes")
		return nil
	}
	err := a.feed.OnScroll(ctx, len(before.Items)-1)
	return a.showFeed(err, len(before.Items))
}

// Search submits query. An empty query prompts for one.
func (a *App) Search(ctx context.Context, query string) error {
	if query == "" {
		var err error
		if query, err = getSimpleText(a.reader, "Search by title", a.out); err != nil {
			return err
		}
	}
	if query == "" {
		return a.ClearSearch(ctx)
	}
	err := a.feed.SubmitQuery(ctx, query)
	return a.showFeed(err, 0)
}

// ClearSearch returns to the unfiltered list.
func (a *App) ClearSearch(ctx context.Context) error {
	err := a.feed.QueryChanged(ctx, "")
	return a.showFeed(err, 0)
}

func (a *App) showFeed(err error, from int) error {
	if errors.Is(err, feed.ErrFetchInProgress) {
		fmt.Fprintln(a.out, "Still loading, try again in a moment")
		return err
	}

	st := a.feed.Snapshot()
	switch {
	case errors.Is(err, feed.ErrNothingToShow):
		fmt.Fprintln(a.out, "No notes yet. Create one with 'new'.")
		return err
	case err != nil:
		return a.fail(err)
	}

	if st.Filter != "" {
		fmt.Fprintf(a.out, "Search: %q\n", st.Filter)
	}
	if from == 0 && len(st.Items) == 0 {
		fmt.Fprintln(a.out, "Nothing found")
		return nil
	}
	if from < len(st.Items) {
		printItems(a.out, st.Items[from:])
	}
	if st.Source == feed.SourceLocal {
		fmt.Fprintln(a.out, "(offline: showing local copy)")
	}
	if st.HasMore() {
		fmt.Fprintln(a.out, "Type 'more' for the next page")
	}
	return nil
}

func printItems(w io.Writer, items []models.NoteItem) {
	for _, it := range items {
		mark := ""
		if it.Pending {
			mark = " *"
		}
		fmt.Fprintf(w, "%6d  %-32s  %s%s\n", it.Ref.DisplayID(), truncate(it.Title, 32), it.LastEdited(), mark)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Show prints one note.
func (a *App) Show(ctx context.Context, id string) error {
	ref, err := a.askRef(id, "Enter note id to show")
	if err != nil {
		return err
	}

	opened, err := a.notes.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, services.ErrNoteNotFound) {
			fmt.Fprintln(a.out, "Note not found")
			return err
		}
		return a.fail(err)
	}

	item := opened.Record.Item()
	fmt.Fprintf(a.out, "# %s\n\n%s\n\n", item.Title, item.Description)
	fmt.Fprintf(a.out, "Last edited: %s\n", item.LastEdited())
	if item.CreatorName != "" {
		fmt.Fprintf(a.out, "Author: %s\n", item.CreatorName)
	}
	if item.Pending {
		fmt.Fprintln(a.out, "Not synced yet")
	}
	return nil
}

// New prompts for a title and a text and creates the note.
func (a *App) New(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Text", a.out)
	if err != nil {
		return err
	}

	rec, err := a.notes.Create(ctx, title, text)
	if err != nil {
		if errors.Is(err, services.ErrEmptyNote) {
			fmt.Fprintln(a.out, "Title and Description can't be empty")
			return err
		}
		return a.fail(err)
	}

	if rec.IsSynced {
		fmt.Fprintf(a.out, "Created note %d\n", rec.Ref().DisplayID())
	} else {
		fmt.Fprintf(a.out, "Saved note %d locally, it will be uploaded on the next sync\n", rec.Ref().DisplayID())
	}
	return nil
}

// Edit opens a note, asks for new values and saves whatever changed.
func (a *App) Edit(ctx context.Context, id string) error {
	ref, err := a.askRef(id, "Enter note id to edit")
	if err != nil {
		return err
	}

	opened, err := a.notes.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, services.ErrNoteNotFound) {
			fmt.Fprintln(a.out, "Note not found")
			return err
		}
		return a.fail(err)
	}

	title, err := GetTextOrKeep(a.reader, "Title", opened.State.Title, a.out)
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Text (empty keeps the current text)", a.out)
	if err != nil {
		return err
	}
	if text == "" {
		text = opened.State.Text
	}

	outcome, err := a.notes.SaveChanges(ctx, opened, models.NoteState{Title: title, Text: text})
	if err != nil {
		return a.fail(err)
	}

	switch outcome {
	case services.OutcomeNoop:
		fmt.Fprintln(a.out, "Nothing changed")
	case services.OutcomeSynced:
		fmt.Fprintln(a.out, "Saved")
	case services.OutcomeSavedLocally:
		fmt.Fprintln(a.out, "Saved locally, it will be uploaded on the next sync")
	case services.OutcomeDropped:
		fmt.Fprintln(a.out, "The note was deleted in the meantime, changes discarded")
	}
	return nil
}

// Delete removes a note.
func (a *App) Delete(ctx context.Context, id string) error {
	ref, err := a.askRef(id, "Enter note id to delete")
	if err != nil {
		return err
	}

	res, err := a.notes.Delete(ctx, ref)
	if err != nil {
		if errors.Is(err, services.ErrNoteNotFound) {
			fmt.Fprintln(a.out, "Note not found")
			return err
		}
		return a.fail(err)
	}

	if res.Outcome == services.OutcomeSavedLocally {
		fmt.Fprintln(a.out, "Deleted locally, the server will be updated on the next sync")
	} else {
		fmt.Fprintln(a.out, "Deleted")
	}
	if res.Remaining == 0 {
		fmt.Fprintln(a.out, "No notes left. Create one with 'new'.")
	}
	return nil
}

func (a *App) askRef(arg, prompt string) (models.NoteRef, error) {
	if strings.TrimSpace(arg) == "" {
		var err error
		if arg, err = getSimpleText(a.reader, prompt, a.out); err != nil {
			return models.NoteRef{}, err
		}
	}
	ref, err := parseNoteRef(arg)
	if err != nil {
		fmt.Fprintln(a.out, err)
		return models.NoteRef{}, err
	}
	return ref, nil
}
