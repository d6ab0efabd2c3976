package domain

import "sort"

// CoauthorAggregate summarizes joint work with one coauthor. It is derived
// from the publication set on each read and never persisted independently.
type CoauthorAggregate struct {
	Name                 string `json:"name"`
	PID                  string `json:"pid,omitempty"`
	PublicationsTogether int    `json:"publications_together"`
}

// VenueAggregate summarizes how often a researcher published at one venue.
type VenueAggregate struct {
	Venue string `json:"venue"`
	Count int    `json:"count"`
	Rank  string `json:"core_rank"`
}

// TopicAggregate counts how often a topic appears across all publications.
type TopicAggregate struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// CoauthorAggregates derives the coauthor list from the profile's
// publications, excluding the profile owner's own name, sorted descending by
// joint publication count. Ties keep discovery order. The pids map supplies
// optional external identifiers per coauthor name and may be nil.
func (r *ResearcherProfile) CoauthorAggregates(pids map[string]string) []CoauthorAggregate {
	counts := make(map[string]int)
	var order []string
	for i := range r.Publications {
		for _, name := range r.Publications[i].Coauthors {
			if name == "" || name == r.Name {
				continue
			}
			if _, seen := counts[name]; !seen {
				order = append(order, name)
			}
			counts[name]++
		}
	}

	aggregates := make([]CoauthorAggregate, 0, len(order))
	for _, name := range order {
		aggregates = append(aggregates, CoauthorAggregate{
			Name:                 name,
			PID:                  pids[name],
			PublicationsTogether: counts[name],
		})
	}
	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].PublicationsTogether > aggregates[j].PublicationsTogether
	})
	return aggregates
}

// VenueAggregates derives the venue breakdown from the profile's
// publications, sorted descending by publication count. The rank of each
// venue is taken from the first publication observed at that venue.
func (r *ResearcherProfile) VenueAggregates() []VenueAggregate {
	counts := make(map[string]int)
	ranks := make(map[string]string)
	var order []string
	for i := range r.Publications {
		venue := r.Publications[i].Venue
		if venue == "" {
			venue = VenueUnknown
		}
		if _, seen := counts[venue]; !seen {
			order = append(order, venue)
			rank := r.Publications[i].VenueRank
			if rank == "" {
				rank = VenueUnknown
			}
			ranks[venue] = rank
		}
		counts[venue]++
	}

	aggregates := make([]VenueAggregate, 0, len(order))
	for _, venue := range order {
		aggregates = append(aggregates, VenueAggregate{
			Venue: venue,
			Count: counts[venue],
			Rank:  ranks[venue],
		})
	}
	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].Count > aggregates[j].Count
	})
	return aggregates
}

// TopicAggregates derives the topic frequency table from the profile's
// publications, sorted descending by count with insertion order preserved
// among ties.
func (r *ResearcherProfile) TopicAggregates() []TopicAggregate {
	counts := make(map[string]int)
	var order []string
	for i := range r.Publications {
		for _, topic := range r.Publications[i].Topics {
			if topic == "" {
				continue
			}
			if _, seen := counts[topic]; !seen {
				order = append(order, topic)
			}
			counts[topic]++
		}
	}

	aggregates := make([]TopicAggregate, 0, len(order))
	for _, topic := range order {
		aggregates = append(aggregates, TopicAggregate{Topic: topic, Count: counts[topic]})
	}
	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].Count > aggregates[j].Count
	})
	return aggregates
}
