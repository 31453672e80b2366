package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
)

// DefaultPageSize is used when a list request does not name a page size.
const DefaultPageSize = 6

type NoteInput struct {
	Title       string
	Description string
}

// NotePage is one page of a listing plus the total number of matches.
type NotePage struct {
	Count   int
	Page    int
	Size    int
	Results []models.Note
}

// HasNext reports whether a page follows this one.
func (p *NotePage) HasNext() bool {
	return p.Page*p.Size < p.Count
}

type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	maxPageSize int
}

func NewNoteService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *NoteService {
	maxPageSize := cfg.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &NoteService{db: db, repomanager: m, maxPageSize: maxPageSize}
}

// List returns page (1-based) of the user's notes, newest first. A
// non-empty title keeps notes whose title contains it, ignoring case.
// Pages past the end, other than an empty first page, are
// common.ErrorNotFound.
func (s *NoteService) List(ctx context.Context, userID int64, page, pageSize int, title string) (*NotePage, error) {
	if page < 1 {
		return nil, common.ErrorNotFound
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > s.maxPageSize:
		pageSize = s.maxPageSize
	}

	out := &NotePage{Page: page, Size: pageSize}
	err := dbx.WithTx(ctx, s.db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Notes(tx)

		count, err := repo.Count(ctx, userID, title)
		if err != nil {
			return err
		}
		offset := (page - 1) * pageSize
		if page > 1 && offset >= count {
			return common.ErrorNotFound
		}

		notes, err := repo.List(ctx, userID, title, pageSize, offset)
		if err != nil {
			return err
		}
		out.Count, out.Results = count, notes
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return out, nil
}

func (s *NoteService) Create(ctx context.Context, userID int64, in NoteInput) (*models.Note, error) {
	if err := validateInput(in, ""); err != nil {
		return nil, err
	}
	note, err := s.repomanager.Notes(s.db).Create(ctx, userID, in.Title, in.Description)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// BulkCreate stores all notes in one transaction and returns them in input
// order. Nothing is stored if any input is invalid.
func (s *NoteService) BulkCreate(ctx context.Context, userID int64, in []NoteInput) ([]models.Note, error) {
	v := &validator{}
	for i, n := range in {
		if err := validateInput(n, fmt.Sprintf("[%d].", i)); err != nil {
			v.details = append(v.details, err.(*ValidationError).Details...)
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) ([]models.Note, error) {
		repo := s.repomanager.Notes(tx)
		out := make([]models.Note, 0, len(in))
		for i, n := range in {
			note, err := repo.Create(ctx, userID, n.Title, n.Description)
			if err != nil {
				return nil, fmt.Errorf("failed to create note %d of %d: %w", i+1, len(in), err)
			}
			out = append(out, *note)
		}
		return out, nil
	})
}

func (s *NoteService) Get(ctx context.Context, userID, id int64) (*models.Note, error) {
	return s.repomanager.Notes(s.db).Get(ctx, userID, id)
}

// Update replaces both fields.
func (s *NoteService) Update(ctx context.Context, userID, id int64, in NoteInput) (*models.Note, error) {
	if err := validateInput(in, ""); err != nil {
		return nil, err
	}
	return s.repomanager.Notes(s.db).Update(ctx, userID, id, models.NoteFields{Title: &in.Title, Description: &in.Description})
}

// PartialUpdate changes only the given fields. An empty patch still bumps
// updated_at.
func (s *NoteService) PartialUpdate(ctx context.Context, userID, id int64, fields models.NoteFields) (*models.Note, error) {
	v := &validator{}
	v.require(fields.Title == nil || !blank(*fields.Title), "title: This field may not be blank.")
	v.require(fields.Description == nil || !blank(*fields.Description), "description: This field may not be blank.")
	if err := v.err(); err != nil {
		return nil, err
	}
	return s.repomanager.Notes(s.db).Update(ctx, userID, id, fields)
}

func (s *NoteService) Delete(ctx context.Context, userID, id int64) error {
	return s.repomanager.Notes(s.db).Delete(ctx, userID, id)
}

func validateInput(in NoteInput, prefix string) error {
	v := &validator{}
	v.require(!blank(in.Title), prefix+"title: This field may not be blank.")
	v.require(!blank(in.Description), prefix+"description: This field may not be blank.")
	return v.err()
}
