package city

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(GenConfig{Seed: "S", Districts: 8})
	b := Generate(GenConfig{Seed: "S", Districts: 8})

	require.Equal(t, a.Order, b.Order)
	for _, slug := range a.Order {
		assert.Equal(t, a.Districts[slug], b.Districts[slug], slug)
	}
}

func TestGenerateCivicDistricts(t *testing.T) {
	m := Generate(GenConfig{Seed: "S", Districts: 4})

	for _, slug := range []string{SlugCentral, SlugJail, SlugHospital} {
		d := m.Get(slug)
		require.NotNil(t, d, slug)
		assert.True(t, d.Civic)
	}

	// Civic districts are never claimable.
	for _, slug := range m.Claimable() {
		assert.False(t, m.Districts[slug].Civic)
	}
	assert.Len(t, m.Claimable(), 4)
}

func TestGenerateJobsDeterministic(t *testing.T) {
	m := Generate(GenConfig{Seed: "S", Districts: 4})
	d := m.Get(m.Claimable()[0])

	a := GenerateJobs(d, "S", 10, 3)
	b := GenerateJobs(d, "S", 10, 3)
	assert.Equal(t, a, b)

	for _, job := range a {
		assert.Equal(t, d.Slug, job.Zone)
		assert.Positive(t, job.Wage)
		assert.Positive(t, job.Duration)
	}
}

func TestGenerateJobsSkipsCivic(t *testing.T) {
	m := Generate(GenConfig{Seed: "S", Districts: 4})
	assert.Nil(t, GenerateJobs(m.Get(SlugJail), "S", 1, 3))
}
