package app

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/service"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/taskpool"
	"github.com/aussiebroadwan/zujuan/pkg/slogx"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
)

// TasksFromListing makes one task per listing record, labelled with the
// record text and referring to its link.
func TasksFromListing(records []zujuansdk.ListingRecord) []domain.TaskDescriptor {
	tasks := make([]domain.TaskDescriptor, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, domain.TaskDescriptor{Label: rec.Text, Ref: rec.Href})
	}
	return tasks
}

// PaperTask opens the page each task refers to with sess and logs its title.
func PaperTask(views *service.ViewService, sess domain.Session) taskpool.TaskFunc {
	return func(ctx context.Context, task domain.TaskDescriptor) error {
		title, err := views.PaperTitle(ctx, sess, task.Ref)
		if err != nil {
			return fmt.Errorf("open %s: %w", task.Ref, err)
		}
		slogx.FromContext(ctx).InfoContext(ctx, "paper opened", "label", task.Label, "title", title)
		return nil
	}
}
