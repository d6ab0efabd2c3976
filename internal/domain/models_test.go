package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublication_Valid(t *testing.T) {
	tests := []struct {
		name string
		pub  Publication
		want bool
	}{
		{
			name: "valid publication",
			pub:  Publication{Title: "Real Paper", Year: 2019},
			want: true,
		},
		{
			name: "empty title",
			pub:  Publication{Title: "", Year: 2020},
			want: false,
		},
		{
			name: "whitespace title",
			pub:  Publication{Title: "   ", Year: 2020},
			want: false,
		},
		{
			name: "zero year",
			pub:  Publication{Title: "Some Paper", Year: 0},
			want: false,
		},
		{
			name: "negative year",
			pub:  Publication{Title: "Some Paper", Year: -1},
			want: false,
		},
		{
			name: "home page placeholder",
			pub:  Publication{Title: "Home Page", Year: 2021},
			want: false,
		},
		{
			name: "home page placeholder with trailing period",
			pub:  Publication{Title: "Home Page.", Year: 2021},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pub.Valid())
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "deep learning", NormalizeTitle("  Deep Learning. "))
	assert.Equal(t, "deep learning", NormalizeTitle("Deep Learning"))
	assert.Equal(t, "", NormalizeTitle("   "))
}

func TestResearcherProfile_AddPublication(t *testing.T) {
	t.Run("exclusion invariant", func(t *testing.T) {
		profile := &ResearcherProfile{PID: "h/TestAuthor", Name: "Test Author"}

		assert.False(t, profile.AddPublication(Publication{Title: "", Year: 2020}))
		assert.False(t, profile.AddPublication(Publication{Title: "Home Page", Year: 0}))
		assert.True(t, profile.AddPublication(Publication{Title: "Real Paper", Year: 2019}))

		require.Len(t, profile.Publications, 1)
		assert.Equal(t, "Real Paper", profile.Publications[0].Title)
	})

	t.Run("duplicate normalized titles rejected", func(t *testing.T) {
		profile := &ResearcherProfile{PID: "h/TestAuthor", Name: "Test Author"}

		assert.True(t, profile.AddPublication(Publication{Title: "Graph Attention Networks", Year: 2018}))
		assert.False(t, profile.AddPublication(Publication{Title: "graph attention networks.", Year: 2018}))

		assert.Len(t, profile.Publications, 1)
	})
}

func TestResearcherProfile_AddAffiliation(t *testing.T) {
	profile := &ResearcherProfile{}

	profile.AddAffiliation("MIT")
	profile.AddAffiliation("  ")
	profile.AddAffiliation("Stanford University")
	profile.AddAffiliation("MIT")

	assert.Equal(t, []string{"MIT", "Stanford University"}, profile.Affiliations)
}

func TestResearcherProfile_SetDescription(t *testing.T) {
	profile := &ResearcherProfile{}

	profile.SetDescription("A researcher in distributed systems.")
	profile.SetDescription("Something else entirely.")

	assert.Equal(t, "A researcher in distributed systems.", profile.Description)
}

func TestResearcherProfile_CoauthorAggregates(t *testing.T) {
	profile := &ResearcherProfile{
		Name: "Alice Zhang",
		Publications: []Publication{
			{Title: "Paper A", Year: 2020, Coauthors: []string{"Bob Lee", "Carol Wu"}},
			{Title: "Paper B", Year: 2021, Coauthors: []string{"Bob Lee"}},
			{Title: "Paper C", Year: 2022, Coauthors: []string{"Carol Wu", "Alice Zhang"}},
		},
	}

	aggregates := profile.CoauthorAggregates(map[string]string{"Bob Lee": "l/BobLee"})

	require.Len(t, aggregates, 2)
	assert.Equal(t, "Bob Lee", aggregates[0].Name)
	assert.Equal(t, "l/BobLee", aggregates[0].PID)
	assert.Equal(t, 2, aggregates[0].PublicationsTogether)
	assert.Equal(t, "Carol Wu", aggregates[1].Name)

	// The owner never appears in their own coauthor list.
	for _, agg := range aggregates {
		assert.NotEqual(t, profile.Name, agg.Name)
	}
}

func TestResearcherProfile_VenueAggregates(t *testing.T) {
	profile := &ResearcherProfile{
		Publications: []Publication{
			{Title: "Paper A", Year: 2020, Venue: "NeurIPS", VenueRank: "A*"},
			{Title: "Paper B", Year: 2021, Venue: "NeurIPS", VenueRank: "A*"},
			{Title: "Paper C", Year: 2022, Venue: "Workshop X"},
		},
	}

	aggregates := profile.VenueAggregates()

	require.Len(t, aggregates, 2)
	assert.Equal(t, VenueAggregate{Venue: "NeurIPS", Count: 2, Rank: "A*"}, aggregates[0])
	assert.Equal(t, VenueAggregate{Venue: "Workshop X", Count: 1, Rank: VenueUnknown}, aggregates[1])
}

func TestResearcherProfile_TopicAggregates(t *testing.T) {
	profile := &ResearcherProfile{
		Publications: []Publication{
			{Title: "Paper A", Year: 2020, Topics: []string{"graph learning", "attention"}},
			{Title: "Paper B", Year: 2021, Topics: []string{"graph learning"}},
		},
	}

	aggregates := profile.TopicAggregates()

	require.Len(t, aggregates, 2)
	assert.Equal(t, TopicAggregate{Topic: "graph learning", Count: 2}, aggregates[0])
	assert.Equal(t, TopicAggregate{Topic: "attention", Count: 1}, aggregates[1])
}
