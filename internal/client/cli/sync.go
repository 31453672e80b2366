package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/feed"
)

// Sync pushes all pending local changes and refreshes the list if it was
// showing an error.
func (a *App) Sync(ctx context.Context) error {
	report, err := a.feed.Refresh(ctx)
	if report != nil {
		fmt.Fprintf(a.out, "Uploaded %d new, %d updated, %d deleted\n",
			report.Creations.Pushed, report.Updates.Pushed, report.Deletes.Pushed)
		if report.Pending() {
			fmt.Fprintln(a.out, "Some changes are still pending, they will be retried later")
		}
	}
	if err != nil && !errors.Is(err, feed.ErrNothingToShow) {
		return a.fail(err)
	}
	return nil
}

// Backup uploads a snapshot of the local notes to the configured bucket.
func (a *App) Backup(ctx context.Context) error {
	if a.config.Backup.Bucket == "" {
		fmt.Fprintln(a.out, "Backups are not configured (set backup.bucket)")
		return nil
	}
	key, err := a.backup.Export(ctx)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Backup stored as %s\n", key)
	return nil
}
