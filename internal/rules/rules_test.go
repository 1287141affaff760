package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxOnBracketTable(t *testing.T) {
	r := Default()

	cases := map[int64]int64{
		0:     0,
		500:   25,
		1000:  75,
		2500:  300,
		5000:  800,
		10000: 1800,
	}
	for wealth, want := range cases {
		assert.Equal(t, want, r.TaxOn(wealth), "wealth %d", wealth)
	}
}

func TestTaxOnNegativeWealth(t *testing.T) {
	assert.Zero(t, Default().TaxOn(-100))
}

func TestTaxOnInsideFirstBracket(t *testing.T) {
	// 5% of 300 = 15.
	assert.Equal(t, int64(15), Default().TaxOn(300))
}

func TestArrestChanceMonotonic(t *testing.T) {
	r := Default()

	assert.Zero(t, r.ArrestChance(0))
	assert.Zero(t, r.ArrestChance(r.ArrestThreshold))
	assert.Greater(t, r.ArrestChance(70), 0.0)
	assert.Greater(t, r.ArrestChance(100), r.ArrestChance(70))
}

func TestValidateRejectsBadBrackets(t *testing.T) {
	r := Default()
	r.TaxBrackets = []TaxBracket{{Threshold: 100, Rate: 0.1}, {Threshold: 100, Rate: 0.2}}
	assert.Error(t, r.Validate())

	r.TaxBrackets = nil
	assert.Error(t, r.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("move_ticks: 9\nheal_cost: 75\n"), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), r.MoveTicks)
	assert.Equal(t, int64(75), r.HealCost)
	// Untouched keys keep defaults.
	assert.Equal(t, Default().TaxIntervalTicks, r.TaxIntervalTicks)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crime_chance_cap: 1.5\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
