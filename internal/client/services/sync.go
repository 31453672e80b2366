package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// ErrBulkMismatch is returned when the bulk-create response does not have one
// note per submitted record, so results cannot be paired by position.
var ErrBulkMismatch = errors.New("bulk create returned a different number of notes")

// PassResult counts what one sync pass did.
type PassResult struct {
	Pushed  int
	Failed  int
	Skipped int
}

type SyncReport struct {
	Creations PassResult
	Deletes   PassResult
	Updates   PassResult
}

// Pending reports whether anything is left for a later run.
func (r *SyncReport) Pending() bool {
	return r.Creations.Failed+r.Deletes.Failed+r.Updates.Failed+r.Deletes.Skipped+r.Updates.Skipped > 0
}

// SyncService pushes local changes to the server. Every pass reads its work
// from the store, so a pass can be rerun at any time; records that failed
// keep their flags and are picked up next time.
type SyncService interface {
	PushCreations(ctx context.Context) (PassResult, error)
	PushDeletes(ctx context.Context) (PassResult, error)
	PushUpdates(ctx context.Context) (PassResult, error)
	// SyncAll runs the three passes concurrently.
	SyncAll(ctx context.Context) (*SyncReport, error)
}

type syncService struct {
	client client.NoteAPI
	db     *sql.DB
	logger logging.Logger

	// One run of each pass at a time. A caller arriving while a pass runs
	// waits for it and then finds the records it already pushed.
	creating sync.Mutex
	deleting sync.Mutex
	updating sync.Mutex
}

func NewSyncService(c client.NoteAPI, db *sql.DB, logger logging.Logger) SyncService {
	return &syncService{client: c, db: db, logger: logger.With("component", "sync")}
}

func (s *syncService) repo(db dbx.DBTX) notes.Repository {
	return notes.NewSQLiteRepository(db)
}

func (s *syncService) SyncAll(ctx context.Context) (*SyncReport, error) {
	var (
		g      errgroup.Group
		report SyncReport
	)

	g.Go(func() (err error) {
		report.Creations, err = s.PushCreations(ctx)
		return err
	})
	g.Go(func() (err error) {
		report.Deletes, err = s.PushDeletes(ctx)
		return err
	})
	g.Go(func() (err error) {
		report.Updates, err = s.PushUpdates(ctx)
		return err
	})

	err := g.Wait()
	s.logger.Info(ctx, "sync finished",
		"created", report.Creations.Pushed,
		"deleted", report.Deletes.Pushed,
		"updated", report.Updates.Pushed,
		"pending", report.Pending(),
	)
	return &report, err
}

// PushCreations sends every never-pushed record in one bulk request and
// pairs the i-th returned note with the i-th record. Any failure leaves all
// records untouched.
func (s *syncService) PushCreations(ctx context.Context) (PassResult, error) {
	s.creating.Lock()
	defer s.creating.Unlock()

	var res PassResult

	pending, err := s.repo(s.db).GetUnsyncedCreations(ctx)
	if err != nil {
		return res, err
	}
	if len(pending) == 0 {
		return res, nil
	}

	inputs := make([]models.NoteInput, len(pending))
	for i, rec := range pending {
		inputs[i] = models.NoteInput{Title: rec.Title, Description: rec.Description}
	}

	created, err := s.client.BulkCreate(ctx, inputs)
	if err != nil {
		res.Failed = len(pending)
		s.logger.Warn(ctx, "bulk create failed", "records", len(pending), "error", err)
		return res, fmt.Errorf("push creations: %w", err)
	}
	if len(created) != len(pending) {
		res.Failed = len(pending)
		s.logger.Error(ctx, "bulk create response mismatch", "sent", len(pending), "received", len(created))
		return res, fmt.Errorf("push creations: %w (sent %d, got %d)", ErrBulkMismatch, len(pending), len(created))
	}

	var orphans []int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for i, sent := range pending {
			current, err := repo.GetByLocalID(ctx, sent.LocalID)
			if err != nil {
				return err
			}
			// Deleted meanwhile, or already paired with another server note.
			if current == nil || current.ServerID != nil {
				orphans = append(orphans, created[i].ID)
				continue
			}
			if current.Title == sent.Title && current.Description == sent.Description {
				current.ApplyServer(created[i])
			} else {
				// Edited while the request was in flight: keep the edit as a
				// pending update of the new server note.
				id := created[i].ID
				current.ServerID = &id
				current.IsSynced = false
			}
			if err := repo.Update(ctx, current); err != nil {
				return err
			}
			res.Pushed++
		}
		return nil
	})
	if err != nil {
		return PassResult{Failed: len(pending)}, fmt.Errorf("push creations: %w", err)
	}

	for _, id := range orphans {
		if err := s.client.Delete(ctx, id); err != nil && !client.IsNotFound(err) {
			s.logger.Warn(ctx, "failed to delete orphaned note", "server_id", id, "error", err)
		}
	}
	return res, nil
}

// PushDeletes confirms every tombstone with the server, one request per
// record. A 404 counts as confirmed. Tombstones without a server id cannot
// be pushed and are skipped.
func (s *syncService) PushDeletes(ctx context.Context) (PassResult, error) {
	s.deleting.Lock()
	defer s.deleting.Unlock()

	var res PassResult
	repo := s.repo(s.db)

	pending, err := repo.GetPendingDeletes(ctx)
	if err != nil {
		return res, err
	}

	for _, rec := range pending {
		if rec.ServerID == nil {
			res.Skipped++
			continue
		}
		if err := s.client.Delete(ctx, *rec.ServerID); err != nil && !client.IsNotFound(err) {
			res.Failed++
			s.logger.Warn(ctx, "delete not pushed", "server_id", *rec.ServerID, "error", err)
			continue
		}
		if err := repo.Delete(ctx, rec.LocalID); err != nil {
			return res, err
		}
		res.Pushed++
	}
	return res, nil
}

// PushUpdates sends a full update for every edited record. The record is
// only marked synced if it is still the version that was sent and has not
// been deleted in the meantime.
func (s *syncService) PushUpdates(ctx context.Context) (PassResult, error) {
	s.updating.Lock()
	defer s.updating.Unlock()

	var res PassResult

	pending, err := s.repo(s.db).GetUnsyncedUpdates(ctx)
	if err != nil {
		return res, err
	}

	for _, sent := range pending {
		note, err := s.client.Update(ctx, *sent.ServerID, models.NoteInput{Title: sent.Title, Description: sent.Description})
		if err != nil {
			res.Failed++
			s.logger.Warn(ctx, "update not pushed", "server_id", *sent.ServerID, "error", err)
			continue
		}

		applied, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
			repo := s.repo(tx)
			current, err := repo.GetByLocalID(ctx, sent.LocalID)
			if err != nil || current == nil {
				return false, err
			}
			if current.IsDeleted || !current.SameContent(sent) {
				return false, nil
			}
			current.ApplyServer(*note)
			return true, repo.Update(ctx, current)
		})
		if err != nil {
			return res, err
		}
		if applied {
			res.Pushed++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}
