// Package services holds the client's application logic: note editing with
// offline fallback, the sync passes, authentication and backups.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

var (
	// ErrEmptyNote is returned when a note is created without a title or a
	// description.
	ErrEmptyNote = fmt.Errorf("%w: Title and Description can't be empty", common.ErrorValidation)
	// ErrNoteNotFound means the note exists neither locally nor remotely.
	ErrNoteNotFound = fmt.Errorf("note %w", common.ErrorNotFound)
)

// OwnerProvider names the account that owns the local notes.
type OwnerProvider interface {
	Username() string
}

// Outcome tells the caller where a write ended up.
type Outcome int

const (
	// OutcomeNoop means nothing had to be written.
	OutcomeNoop Outcome = iota
	// OutcomeSynced means the server accepted the write.
	OutcomeSynced
	// OutcomeSavedLocally means the write is stored locally and will be
	// pushed by the next sync.
	OutcomeSavedLocally
	// OutcomeDropped means the target record vanished while the write was
	// in flight.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSynced:
		return "synced"
	case OutcomeSavedLocally:
		return "saved locally"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unchanged"
	}
}

// OpenedNote is an edit session: the record as loaded plus the state it was
// opened with.
type OpenedNote struct {
	Record *models.LocalNote
	State  models.NoteState
}

type DeleteResult struct {
	Outcome Outcome
	// Remaining is the owner's record count after the deletion.
	Remaining int
}

type NoteService interface {
	Create(ctx context.Context, title, description string) (*models.LocalNote, error)
	Open(ctx context.Context, ref models.NoteRef) (*OpenedNote, error)
	SaveChanges(ctx context.Context, opened *OpenedNote, next models.NoteState) (Outcome, error)
	Delete(ctx context.Context, ref models.NoteRef) (*DeleteResult, error)
	Count(ctx context.Context) (int, error)
	// Materialize stores server notes locally so they are available offline.
	// Records with pending local changes are left alone.
	Materialize(ctx context.Context, notes []models.Note) error
	// LocalPage is the offline read path of the feed.
	LocalPage(ctx context.Context, filter string, limit, offset int) ([]*models.LocalNote, error)
}

type noteService struct {
	client client.NoteAPI
	db     *sql.DB
	owner  OwnerProvider
	logger logging.Logger
	now    func() time.Time
}

func NewNoteService(c client.NoteAPI, db *sql.DB, owner OwnerProvider, logger logging.Logger) NoteService {
	return &noteService{client: c, db: db, owner: owner, logger: logger.With("component", "notes"), now: time.Now}
}

func (s *noteService) repo(db dbx.DBTX) notes.Repository {
	return notes.NewSQLiteRepository(db)
}

// fallsBackLocally reports whether a failed remote write should be kept
// locally.
func fallsBackLocally(err error) bool {
	return client.UseLocalCopy(err)
}

func (s *noteService) Create(ctx context.Context, title, description string) (*models.LocalNote, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return nil, ErrEmptyNote
	}

	note, err := s.client.Create(ctx, models.NoteInput{Title: title, Description: description})
	if err == nil {
		rec := models.LocalFromServer(*note)
		if rec.CreatorUsername == "" {
			rec.CreatorUsername = s.owner.Username()
		}
		if _, err := s.repo(s.db).Insert(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
	if !fallsBackLocally(err) {
		return nil, err
	}

	s.logger.Info(ctx, "server unreachable, note stored locally", "error", err)
	now := models.FormatTimestamp(s.now())
	rec := &models.LocalNote{
		Title:           title,
		Description:     description,
		CreatedAt:       &now,
		UpdatedAt:       &now,
		CreatorUsername: s.owner.Username(),
	}
	if _, err := s.repo(s.db).Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *noteService) Open(ctx context.Context, ref models.NoteRef) (*OpenedNote, error) {
	repo := s.repo(s.db)

	var (
		rec *models.LocalNote
		err error
	)
	switch ref.Kind {
	case models.RefLocal:
		rec, err = repo.GetByLocalID(ctx, ref.ID)
	case models.RefRemote:
		rec, err = repo.GetByServerID(ctx, ref.ID)
	default:
		return nil, fmt.Errorf("%w: invalid note reference", common.ErrorValidation)
	}
	if err != nil {
		return nil, err
	}

	if rec == nil && ref.IsRemote() {
		note, err := s.client.Get(ctx, ref.ID)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, ErrNoteNotFound
			}
			return nil, err
		}
		if err := s.Materialize(ctx, []models.Note{*note}); err != nil {
			return nil, err
		}
		if rec, err = repo.GetByServerID(ctx, ref.ID); err != nil {
			return nil, err
		}
	}
	if rec == nil || rec.IsDeleted {
		return nil, ErrNoteNotFound
	}

	return &OpenedNote{
		Record: rec,
		State:  models.NoteState{Title: rec.Title, Text: rec.Description},
	}, nil
}

// SaveChanges closes an edit session. Both fields changed means a full
// update, one field a partial update carrying only that field, none no
// write at all.
func (s *noteService) SaveChanges(ctx context.Context, opened *OpenedNote, next models.NoteState) (Outcome, error) {
	change := opened.State.Compare(next)
	if change == models.ChangeNone {
		return OutcomeNoop, nil
	}

	repo := s.repo(s.db)
	rec, err := repo.GetByLocalID(ctx, opened.Record.LocalID)
	if err != nil {
		return OutcomeNoop, err
	}
	if rec == nil || rec.IsDeleted {
		s.logger.Debug(ctx, "edit target disappeared, dropping", "ref", opened.Record.Ref())
		return OutcomeDropped, nil
	}

	if rec.ServerID == nil {
		s.applyLocally(rec, change, next)
		if err := repo.Update(ctx, rec); err != nil {
			return OutcomeNoop, err
		}
		opened.Record, opened.State = rec, next
		return OutcomeSavedLocally, nil
	}

	var note *models.Note
	switch {
	case change == models.ChangeBoth:
		note, err = s.client.Update(ctx, *rec.ServerID, models.NoteInput{Title: next.Title, Description: next.Text})
	case !rec.IsSynced:
		// Pending local edits of the untouched field go out with this one.
		merged := rec.Clone()
		s.applyLocally(merged, change, next)
		note, err = s.client.Update(ctx, *rec.ServerID, models.NoteInput{Title: merged.Title, Description: merged.Description})
	default:
		note, err = s.client.PartialUpdate(ctx, *rec.ServerID, change.Patch(next))
	}

	outcome := OutcomeSynced
	switch {
	case err == nil:
		rec.ApplyServer(*note)
	case fallsBackLocally(err):
		s.logger.Info(ctx, "server unreachable, edit stored locally", "ref", rec.Ref(), "error", err)
		s.applyLocally(rec, change, next)
		outcome = OutcomeSavedLocally
	default:
		return OutcomeNoop, err
	}

	if err := repo.Update(ctx, rec); err != nil {
		return OutcomeNoop, err
	}
	opened.Record, opened.State = rec, next
	return outcome, nil
}

func (s *noteService) applyLocally(rec *models.LocalNote, change models.Change, next models.NoteState) {
	if change == models.ChangeTitle || change == models.ChangeBoth {
		rec.Title = next.Title
	}
	if change == models.ChangeText || change == models.ChangeBoth {
		rec.Description = next.Text
	}
	now := models.FormatTimestamp(s.now())
	rec.UpdatedAt = &now
	rec.IsSynced = false
}

func (s *noteService) Delete(ctx context.Context, ref models.NoteRef) (*DeleteResult, error) {
	repo := s.repo(s.db)

	var (
		rec *models.LocalNote
		err error
	)
	if ref.IsLocal() {
		rec, err = repo.GetByLocalID(ctx, ref.ID)
	} else {
		rec, err = repo.GetByServerID(ctx, ref.ID)
	}
	if err != nil {
		return nil, err
	}

	outcome, err := s.delete(ctx, repo, ref, rec)
	if err != nil {
		return nil, err
	}

	remaining, err := repo.CountByOwner(ctx, s.owner.Username())
	if err != nil {
		return nil, err
	}
	return &DeleteResult{Outcome: outcome, Remaining: remaining}, nil
}

func (s *noteService) delete(ctx context.Context, repo notes.Repository, ref models.NoteRef, rec *models.LocalNote) (Outcome, error) {
	if ref.IsLocal() && rec == nil {
		return OutcomeNoop, ErrNoteNotFound
	}

	// Never pushed: nothing on the server to delete.
	if rec != nil && rec.ServerID == nil {
		return OutcomeSynced, repo.Delete(ctx, rec.LocalID)
	}

	serverID := ref.ID
	if rec != nil {
		serverID = *rec.ServerID
	}

	err := s.client.Delete(ctx, serverID)
	switch {
	case err == nil || client.IsNotFound(err):
		return OutcomeSynced, repo.DeleteByServerID(ctx, serverID)
	case fallsBackLocally(err):
		s.logger.Info(ctx, "server unreachable, note marked for deletion", "server_id", serverID, "error", err)
		if rec == nil {
			rec = &models.LocalNote{ServerID: &serverID, CreatorUsername: s.owner.Username()}
			rec.IsDeleted = true
			_, err := repo.Insert(ctx, rec)
			return OutcomeSavedLocally, err
		}
		rec.IsDeleted = true
		rec.IsSynced = false
		return OutcomeSavedLocally, repo.Update(ctx, rec)
	default:
		return OutcomeNoop, err
	}
}

func (s *noteService) Count(ctx context.Context) (int, error) {
	return s.repo(s.db).CountByOwner(ctx, s.owner.Username())
}

func (s *noteService) Materialize(ctx context.Context, ns []models.Note) error {
	if len(ns) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for _, n := range ns {
			existing, err := repo.GetByServerID(ctx, n.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				if _, err := repo.Insert(ctx, models.LocalFromServer(n)); err != nil {
					return err
				}
				continue
			}
			if !existing.IsSynced {
				continue
			}
			existing.ApplyServer(n)
			if err := repo.Update(ctx, existing); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *noteService) LocalPage(ctx context.Context, filter string, limit, offset int) ([]*models.LocalNote, error) {
	repo := s.repo(s.db)
	if filter == "" {
		return repo.GetActivePage(ctx, s.owner.Username(), limit, offset)
	}
	return repo.GetFilteredPage(ctx, s.owner.Username(), filter, limit, offset)
}
