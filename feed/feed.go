// Package feed aggregates recent uploads across a user's followed creators
// into a single reverse-chronological feed with per-creator statuses.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/zixifan/bili-helper/biliapi"
	"github.com/zixifan/bili-helper/telemetry"
)

// Source is the subset of the Bilibili client the aggregator needs (for tests/mocks).
type Source interface {
	ListFollowings(ctx context.Context, vmid, sessdata string, maxPages int) ([]biliapi.Following, error)
	ListUploads(ctx context.Context, mid string, cutoff int64, sessdata string, maxPages int) ([]biliapi.Upload, error)
}

// Status is the terminal per-creator outcome of one aggregation run.
type Status string

const (
	StatusUpdated   Status = "updated"
	StatusNoUpdates Status = "no_updates"
	StatusAPIFailed Status = "api_failed"
)

// Update is one feed entry: an upload tagged with its creator.
type Update struct {
	biliapi.Upload
	CreatorName string `json:"creator"`
	CreatorMID  string `json:"creator_mid"`
	Special     bool   `json:"special"`
}

// CreatorStatus records the outcome for one creator in a run.
type CreatorStatus struct {
	CreatorName string `json:"creator"`
	CreatorMID  string `json:"creator_mid"`
	Status      Status `json:"status"`
	Count       int    `json:"count"`
}

const (
	defaultFollowingsMaxPages = 2
	defaultUploadsMaxPages    = 2
)

// Aggregator runs following-updates aggregation against a Source with
// configurable page bounds. The zero bounds fall back to two pages per path.
type Aggregator struct {
	Src                Source
	FollowingsMaxPages int
	UploadsMaxPages    int
}

func (a Aggregator) followingsPages() int {
	if a.FollowingsMaxPages > 0 {
		return a.FollowingsMaxPages
	}
	return defaultFollowingsMaxPages
}

func (a Aggregator) uploadsPages() int {
	if a.UploadsMaxPages > 0 {
		return a.UploadsMaxPages
	}
	return defaultUploadsMaxPages
}

// Cutoff returns the lower time bound (unix seconds) for an interval of
// intervalHours ending now. Intervals below one hour are clamped to one hour.
func Cutoff(now time.Time, intervalHours int) int64 {
	if intervalHours < 1 {
		intervalHours = 1
	}
	return now.Unix() - int64(intervalHours)*3600
}

// Aggregate lists the creators followed by mid and merges their recent uploads
// into one feed. limit caps the feed after sorting; limit <= 0 means no cap.
func (a Aggregator) Aggregate(ctx context.Context, mid, sessdata string, intervalHours, limit int) ([]Update, []CreatorStatus, error) {
	followings, err := a.Src.ListFollowings(ctx, mid, sessdata, a.followingsPages())
	if err != nil {
		telemetry.IncCounter(telemetry.AggregationFailures)
		return nil, nil, err
	}
	cutoff := Cutoff(time.Now(), intervalHours)
	updates, statuses := a.AggregateSince(ctx, followings, cutoff, sessdata, limit)
	return updates, statuses, nil
}

// Targets builds a standalone creator set from explicit ids, for callers that
// aggregate without a followings listing (debug tooling, ad-hoc runs).
func Targets(mids []string) []biliapi.Following {
	return lo.Map(mids, func(mid string, _ int) biliapi.Following {
		return biliapi.Following{Name: mid, MID: mid}
	})
}

// AggregateSince fetches each creator's uploads at or after cutoff and merges
// them. A failed fetch for one creator is recorded as api_failed and does not
// abort the batch; every creator yields exactly one status. The merged feed is
// sorted descending by creation time (ties keep followings order) and the
// optional cap is applied only after the sort.
func (a Aggregator) AggregateSince(ctx context.Context, creators []biliapi.Following, cutoff int64, sessdata string, limit int) ([]Update, []CreatorStatus) {
	telemetry.IncCounter(telemetry.AggregationRuns)
	telemetry.SetCreatorCount(len(creators))

	var (
		updates  []Update
		statuses = make([]CreatorStatus, 0, len(creators))
	)
	start := time.Now()
	for _, creator := range creators {
		uploads, err := a.Src.ListUploads(ctx, creator.MID, cutoff, sessdata, a.uploadsPages())
		if err != nil {
			slog.Warn("creator fetch failed", slog.String("mid", creator.MID), slog.Any("err", err))
			telemetry.IncCounter(telemetry.CreatorsFailed)
			statuses = append(statuses, CreatorStatus{
				CreatorName: creator.Name,
				CreatorMID:  creator.MID,
				Status:      StatusAPIFailed,
			})
			continue
		}
		status := StatusNoUpdates
		if len(uploads) > 0 {
			status = StatusUpdated
		}
		statuses = append(statuses, CreatorStatus{
			CreatorName: creator.Name,
			CreatorMID:  creator.MID,
			Status:      status,
			Count:       len(uploads),
		})
		for _, u := range uploads {
			updates = append(updates, Update{
				Upload:      u,
				CreatorName: creator.Name,
				CreatorMID:  creator.MID,
				Special:     creator.Special,
			})
		}
	}
	if telemetry.AggregationDuration != nil {
		telemetry.AggregationDuration.Observe(time.Since(start).Seconds())
	}

	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Created > updates[j].Created
	})
	if limit > 0 && len(updates) > limit {
		updates = updates[:limit]
	}
	return updates, statuses
}

// CountByStatus tallies statuses for digests and logging.
func CountByStatus(statuses []CreatorStatus) map[Status]int {
	return lo.CountValuesBy(statuses, func(s CreatorStatus) Status { return s.Status })
}
