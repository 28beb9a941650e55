package sheets

import (
	"context"
	"fmt"

	"amazon_rank_sync/internal/retry"

	"github.com/rs/zerolog/log"
)

// Locator maps a human-readable sheet title to the backend's sheet id.
type Locator struct {
	service Service
	read    retry.Config
}

func NewLocator(service Service, read retry.Config) *Locator {
	return &Locator{service: service, read: read}
}

func (l *Locator) list(ctx context.Context) ([]Sheet, error) {
	list, err := retry.WithRetry(ctx, l.read, func(ctx context.Context) ([]Sheet, error) {
		return l.service.ListSheets(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	return list, nil
}

func find(list []Sheet, title string) (Sheet, bool) {
	for _, s := range list {
		if s.Title == title {
			return s, true
		}
	}
	return Sheet{}, false
}

func titles(list []Sheet) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Title)
	}
	return out
}

// ResolveSheetID returns the id of the sheet whose title is exactly title.
func (l *Locator) ResolveSheetID(ctx context.Context, title string) (string, error) {
	list, err := l.list(ctx)
	if err != nil {
		return "", err
	}
	s, ok := find(list, title)
	if !ok {
		return "", &SheetNotFoundError{Title: title, Available: titles(list)}
	}
	return s.ID, nil
}

// EnsureSheetExists creates the sheet when no sheet has the given title.
func (l *Locator) EnsureSheetExists(ctx context.Context, title string) error {
	_, err := l.ensure(ctx, title)
	return err
}

func (l *Locator) ensure(ctx context.Context, title string) (Sheet, error) {
	list, err := l.list(ctx)
	if err != nil {
		return Sheet{}, err
	}
	if s, ok := find(list, title); ok {
		return s, nil
	}

	log.Info().Str("title", title).Msg("Sheet not found, creating it")
	if err := l.service.AddSheet(ctx, title); err != nil {
		return Sheet{}, &SheetCreateError{Title: title, Err: err}
	}

	list, err = l.list(ctx)
	if err != nil {
		return Sheet{}, err
	}
	s, ok := find(list, title)
	if !ok {
		return Sheet{}, &SheetCreateError{Title: title, Err: fmt.Errorf("sheet missing after create, existing titles=%v", titles(list))}
	}
	return s, nil
}

// Resolve returns the run's sheet reference, creating the sheet first when
// create is set.
func (l *Locator) Resolve(ctx context.Context, title string, create bool) (Ref, error) {
	var (
		sheet Sheet
		err   error
	)
	if create {
		sheet, err = l.ensure(ctx, title)
	} else {
		var id string
		id, err = l.ResolveSheetID(ctx, title)
		sheet = Sheet{ID: id, Title: title}
	}
	if err != nil {
		return Ref{}, err
	}
	return Ref{Sheet: sheet, Mode: l.service.Addressing()}, nil
}
