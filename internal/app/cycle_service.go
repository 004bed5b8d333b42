package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/autopost/internal/core/item"
	"github.com/example/autopost/internal/core/ledger"
	"github.com/example/autopost/internal/ports/primary"
	"github.com/example/autopost/internal/ports/secondary"
)

// CycleOptions tunes a CycleServiceImpl.
type CycleOptions struct {
	CaptionTemplate string
	// ResetCorruptState continues from an empty state instead of failing
	// when the stored state cannot be parsed.
	ResetCorruptState bool
	// DryRun selects and renders the next item but never publishes or saves.
	DryRun bool
}

// CycleServiceImpl implements primary.CycleService.
type CycleServiceImpl struct {
	source    secondary.ItemSource
	store     secondary.StateStore
	publisher primary.Publisher
	opts      CycleOptions
	logger    *logrus.Logger

	now   func() time.Time
	newID func() string
}

// NewCycleService creates a cycle service. publisher may be nil for
// read-only use (Status, MarkPosted, dry runs).
func NewCycleService(
	source secondary.ItemSource,
	store secondary.StateStore,
	publisher primary.Publisher,
	opts CycleOptions,
	logger *logrus.Logger,
) *CycleServiceImpl {
	if opts.CaptionTemplate == "" {
		opts.CaptionTemplate = item.DefaultCaptionTemplate
	}
	return &CycleServiceImpl{
		source:    source,
		store:     store,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// RunCycle posts at most one pending item.
func (s *CycleServiceImpl) RunCycle(ctx context.Context) (*primary.CycleOutcome, error) {
	out := &primary.CycleOutcome{CycleID: s.newID(), Started: s.now()}
	log := s.logger.WithField("cycle_id", out.CycleID)
	done := func(status primary.CycleStatus) {
		out.Status = status
		out.Finished = s.now()
	}

	if s.publisher == nil && !s.opts.DryRun {
		done(primary.CycleFailed)
		return out, primary.ErrNoPublisher
	}

	// 1. Load posted state
	state, err := s.loadState(ctx, log)
	if err != nil {
		done(primary.CycleFailed)
		return out, err
	}

	// 2. Pending items, oldest first
	items, err := s.source.ListCandidates(ctx)
	if err != nil {
		done(primary.CycleFailed)
		return out, fmt.Errorf("failed to list %s: %w", s.source.Describe(), err)
	}
	pending := ledger.Pending(items, state)
	log.WithFields(logrus.Fields{
		"listed":  len(items),
		"posted":  state.Len(),
		"pending": len(pending),
	}).Debug("listed candidates")

	if len(pending) == 0 {
		log.Info("nothing to post")
		done(primary.CycleNothingToPost)
		return out, nil
	}

	// 3. Fetch the first item whose content is still there
	var (
		media  *secondary.Media
		chosen item.Item
	)
	for _, it := range pending {
		m, err := s.source.FetchContent(ctx, it)
		if errors.Is(err, secondary.ErrContentUnavailable) {
			log.WithFields(logrus.Fields{"item_id": it.ID, "error": err}).Warn("content unavailable, skipping")
			out.Skipped = append(out.Skipped, it.ID)
			continue
		}
		if err != nil {
			done(primary.CycleFailed)
			return out, fmt.Errorf("failed to fetch %s: %w", it.ID, err)
		}
		media, chosen = m, it
		break
	}
	if media == nil {
		done(primary.CycleAllSkipped)
		return out, fmt.Errorf("%w (%d skipped)", primary.ErrAllSkipped, len(out.Skipped))
	}
	defer func() {
		if err := media.Close(); err != nil {
			log.WithError(err).Warn("failed to release staged media")
		}
	}()

	out.ItemID = chosen.ID
	out.ItemName = chosen.Name
	out.Caption = item.RenderCaption(s.opts.CaptionTemplate, chosen)
	log = log.WithField("item_id", chosen.ID)

	if s.opts.DryRun {
		log.WithFields(logrus.Fields{"name": chosen.Name, "caption": out.Caption}).Info("dry run: would post")
		done(primary.CycleDryRun)
		return out, nil
	}

	// 4. Publish
	log.WithField("bytes", media.Size).Info("publishing")
	postID, err := s.publisher.Publish(ctx, media, out.Caption)
	if err != nil {
		done(primary.CycleFailed)
		return out, fmt.Errorf("failed to publish %s: %w", chosen.ID, err)
	}
	out.PostID = postID

	// 5. Commit. The post is live; the save must not be abandoned on cancel.
	next := ledger.MarkPosted(state, chosen.ID, ledger.PostRecord{
		PostedAt:       s.now().UTC(),
		PlatformPostID: postID,
	})
	if err := s.store.Save(context.WithoutCancel(ctx), next); err != nil {
		if !primary.IsFatal(err) {
			err = fmt.Errorf("%w: %w", secondary.ErrStoreUnavailable, err)
		}
		log.WithFields(logrus.Fields{"post_id": postID, "error": err}).
			Error("posted but failed to record; reconcile with 'autopost mark' before the next cycle")
		done(primary.CycleFailed)
		return out, fmt.Errorf("item %s posted as %s but not recorded in %s: %w",
			chosen.ID, postID, s.store.Location(), err)
	}

	log.WithField("post_id", postID).Info("posted")
	done(primary.CyclePosted)
	return out, nil
}

// Status joins the current listing with the posted state.
func (s *CycleServiceImpl) Status(ctx context.Context) (*primary.StatusReport, error) {
	state, err := s.loadState(ctx, s.logger.WithField("op", "status"))
	if err != nil {
		return nil, err
	}
	items, err := s.source.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.source.Describe(), err)
	}

	report := &primary.StatusReport{
		Source: s.source.Describe(),
		State:  s.store.Location(),
		Items:  make([]*primary.ItemStatus, 0, len(items)),
	}
	listed := make(map[string]bool, len(items))
	for _, it := range items {
		listed[it.ID] = true
		st := &primary.ItemStatus{ID: it.ID, Name: it.Name, OrderingKey: it.OrderingKey}
		if rec, ok := state.Record(it.ID); ok {
			st.Posted = true
			st.PostedAt = rec.PostedAt
			st.PlatformPostID = rec.PlatformPostID
			report.Posted++
		} else {
			report.Pending++
			if report.Next == nil {
				report.Next = st
			}
		}
		report.Items = append(report.Items, st)
	}
	for _, rec := range state.Records() {
		if !listed[rec.ItemID] {
			report.Orphaned++
		}
	}
	return report, nil
}

// MarkPosted records itemID as posted without publishing. Already posted
// items are left untouched.
func (s *CycleServiceImpl) MarkPosted(ctx context.Context, itemID, platformPostID string) error {
	log := s.logger.WithFields(logrus.Fields{"op": "mark", "item_id": itemID})

	state, err := s.loadState(ctx, log)
	if err != nil {
		return err
	}
	if ledger.IsPosted(state, itemID) {
		log.Info("already posted")
		return nil
	}

	items, err := s.source.ListCandidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s.source.Describe(), err)
	}
	found := false
	for _, it := range items {
		if it.ID == itemID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", primary.ErrUnknownItem, itemID)
	}

	next := ledger.MarkPosted(state, itemID, ledger.PostRecord{
		PostedAt:       s.now().UTC(),
		PlatformPostID: platformPostID,
		Source:         ledger.SourceManual,
	})
	if err := s.store.Save(context.WithoutCancel(ctx), next); err != nil {
		if !primary.IsFatal(err) {
			err = fmt.Errorf("%w: %w", secondary.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("failed to record %s: %w", itemID, err)
	}
	log.Info("marked as posted")
	return nil
}

func (s *CycleServiceImpl) loadState(ctx context.Context, log *logrus.Entry) (ledger.State, error) {
	state, err := s.store.Load(ctx)
	switch {
	case err == nil:
		return state, nil
	case secondary.IsCancellation(err):
		return ledger.State{}, err
	case errors.Is(err, secondary.ErrStoreCorrupt) && s.opts.ResetCorruptState:
		log.WithError(err).Warn("posted state is corrupt; continuing from empty state")
		return ledger.New(), nil
	case primary.IsFatal(err):
		return ledger.State{}, err
	default:
		return ledger.State{}, fmt.Errorf("%w: %w", secondary.ErrStoreUnavailable, err)
	}
}

// Ensure CycleServiceImpl implements the interface
var _ primary.CycleService = (*CycleServiceImpl)(nil)
