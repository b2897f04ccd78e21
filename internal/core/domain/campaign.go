package domain

// Campaign is one broadcast of a message to the subscribers of a bot. Only
// active campaigns are eligible for claiming. Message must not change once
// deliveries exist for the campaign; otherwise statistics would no longer
// describe what was actually sent.
type Campaign struct {
	ID      int64
	BotID   int64
	Title   string
	Message string
	Active  bool
}

// CampaignAggregatedStatistics is the per-campaign delivery state
// distribution shown on operator dashboards. TimedOut is derived, not
// stored: in-progress deliveries older than the reclaim threshold are
// reported here instead of Pending. In-progress deliveries within the
// threshold are counted only in Users.
type CampaignAggregatedStatistics struct {
	Users     int64
	Delivered int64
	Errors    int64
	Pending   int64
	TimedOut  int64
}
