package postgres

// SQL statements for the analytics core. Statements used on the hot paths
// (event append, ad selection, counter increments) are prepared at adapter
// construction; job-path statements run ad hoc.

const (
	// querySaveEvent appends one immutable event. occurred_at and seq are
	// assigned by the database so per-process timestamps stay monotone
	// non-decreasing regardless of caller clocks.
	querySaveEvent = `
		INSERT INTO events (tool_id, kind, duration_seconds, share_channel, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq, occurred_at
	`

	// queryWindowCounts computes the per-tool counters for one aggregation
	// window in a single pass. $3 is the dwell-time floor: shorter duration
	// events are stored but never counted.
	queryWindowCounts = `
		SELECT
			tool_id,
			COUNT(*) FILTER (WHERE kind = 'view'),
			COUNT(*) FILTER (WHERE kind = 'click'),
			COUNT(*) FILTER (WHERE kind = 'share'),
			COALESCE(AVG(duration_seconds) FILTER (WHERE kind = 'duration' AND duration_seconds >= $3), 0.0)
		FROM events
		WHERE occurred_at >= $1 AND occurred_at <= $2
		GROUP BY tool_id
	`

	queryCountEvents      = `SELECT COUNT(*) FROM events`
	queryCountEventsSince = `SELECT COUNT(*) FROM events WHERE occurred_at >= $1`
	queryBreakdownByKind  = `SELECT kind, COUNT(*) FROM events GROUP BY kind`
	queryOldestRemaining  = `SELECT MIN(occurred_at) FROM events`
	queryEventsTableSize  = `SELECT pg_total_relation_size('events')`
	queryBreakdownOlder   = `SELECT kind, COUNT(*) FROM events WHERE occurred_at < $1 GROUP BY kind`
	queryDeleteOlder      = `DELETE FROM events WHERE occurred_at < $1`

	// queryUpsertWindow get-or-creates the stats row and overwrites the
	// window counters plus the cached score. Rank columns are deliberately
	// untouched: ranks are written only by the ranking phase.
	queryUpsertWindow = `
		INSERT INTO tool_stats (
			tool_id, week_views, week_clicks, week_shares,
			week_avg_duration, week_score, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tool_id) DO UPDATE SET
			week_views        = EXCLUDED.week_views,
			week_clicks       = EXCLUDED.week_clicks,
			week_shares       = EXCLUDED.week_shares,
			week_avg_duration = EXCLUDED.week_avg_duration,
			week_score        = EXCLUDED.week_score,
			updated_at        = EXCLUDED.updated_at
	`

	queryListAllStats = `
		SELECT
			tool_id, week_views, week_clicks, week_shares,
			week_avg_duration, week_score, current_rank, prev_rank, updated_at
		FROM tool_stats
	`

	querySaveRanks = `
		UPDATE tool_stats
		SET current_rank = $2, prev_rank = $3, updated_at = $4
		WHERE tool_id = $1
	`

	// queryListRanked joins the ranked snapshot with catalog display
	// attributes. Optional platform/tool_type filters are appended by the
	// adapter before the ORDER BY.
	queryListRankedBase = `
		SELECT
			s.tool_id, s.week_views, s.week_clicks, s.week_shares,
			s.week_avg_duration, s.week_score, s.current_rank, s.prev_rank, s.updated_at,
			t.id, t.slug, t.name, t.platform, t.tool_type, t.created_at
		FROM tool_stats s
		JOIN tools t ON t.id = s.tool_id
		WHERE s.current_rank IS NOT NULL
	`

	queryGetAd = `
		SELECT
			id, name, markup, placement, priority, weight,
			starts_at, ends_at, impressions, clicks, active, created_at
		FROM ad_creatives
		WHERE id = $1
	`

	// queryListEligibleAds preserves the priority ordering (priority asc,
	// weight desc, newest first) so the priority strategy can take the head.
	queryListEligibleAds = `
		SELECT
			id, name, markup, placement, priority, weight,
			starts_at, ends_at, impressions, clicks, active, created_at
		FROM ad_creatives
		WHERE placement = $1
		  AND active
		  AND (starts_at IS NULL OR starts_at <= $2)
		  AND (ends_at IS NULL OR ends_at >= $2)
		ORDER BY priority ASC, weight DESC, created_at DESC
	`

	queryListAdsByPlacement = `
		SELECT
			id, name, markup, placement, priority, weight,
			starts_at, ends_at, impressions, clicks, active, created_at
		FROM ad_creatives
		WHERE ($1 = '' OR placement = $1)
		ORDER BY placement, priority ASC, created_at DESC
	`

	// Counter increments are single atomic UPDATEs; the read-modify-write
	// happens inside the database, so concurrent requests never lose counts.
	queryIncrementImpressions = `UPDATE ad_creatives SET impressions = impressions + 1 WHERE id = $1`
	queryIncrementClicks      = `UPDATE ad_creatives SET clicks = clicks + 1 WHERE id = $1`

	queryGetTool   = `SELECT id, slug, name, platform, tool_type, created_at FROM tools WHERE id = $1`
	queryListTools = `SELECT id, slug, name, platform, tool_type, created_at FROM tools ORDER BY id`
)
