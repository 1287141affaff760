// Package rules holds the static economic rule tables: tax brackets, crime
// odds and rewards, heat constants, durations. Values ship as compiled-in
// defaults and can be overridden from a YAML file at startup.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TaxBracket taxes the portion of wealth above Threshold (up to the next
// bracket's threshold) at Rate. Brackets are sorted ascending by threshold.
type TaxBracket struct {
	Threshold int64   `yaml:"threshold"`
	Rate      float64 `yaml:"rate"`
}

// CrimeSpec defines one solo crime category.
type CrimeSpec struct {
	BaseChance    float64 `yaml:"base_chance"`
	SkillBonus    float64 `yaml:"skill_bonus"` // per level of the keyed skill
	Skill         string  `yaml:"skill"`
	RewardMin     int64   `yaml:"reward_min"`
	RewardMax     int64   `yaml:"reward_max"`
	HeatOnSuccess float64 `yaml:"heat_on_success"`
	HeatOnFailure float64 `yaml:"heat_on_failure"`
	DamageMin     int     `yaml:"damage_min"`
	DamageMax     int     `yaml:"damage_max"`
}

// Rules is the full tunable rule set.
type Rules struct {
	// Taxation.
	TaxBrackets        []TaxBracket `yaml:"tax_brackets"`
	TaxIntervalTicks   uint64       `yaml:"tax_interval_ticks"`
	TaxGraceTicks      uint64       `yaml:"tax_grace_ticks"`
	EvasionSeizureRate float64      `yaml:"evasion_seizure_rate"` // fraction of cash seized
	EvasionRepPenalty  int          `yaml:"evasion_rep_penalty"`
	EvasionSentenceMin uint64       `yaml:"evasion_sentence_min"`
	EvasionSentenceMax uint64       `yaml:"evasion_sentence_max"`

	// Heat and arrests.
	HeatCap            float64 `yaml:"heat_cap"`
	HeatDecayIdle      float64 `yaml:"heat_decay_idle"`
	HeatDecayBusy      float64 `yaml:"heat_decay_busy"`
	HeatDecayConfined  float64 `yaml:"heat_decay_confined"` // jailed or hospitalized
	DisguiseDecayBonus float64 `yaml:"disguise_decay_bonus"`
	ArrestThreshold    float64 `yaml:"arrest_threshold"`
	ArrestSlope        float64 `yaml:"arrest_slope"` // probability per heat point over threshold
	SentenceMin        uint64  `yaml:"sentence_min"`
	SentenceMax        uint64  `yaml:"sentence_max"`
	FineRate           float64 `yaml:"fine_rate"` // fine = heat * rate, bounded by cash

	// Crime categories, solo and cooperative.
	Crimes            map[string]CrimeSpec `yaml:"crimes"`
	CrimeChanceCap    float64              `yaml:"crime_chance_cap"`
	RobBaseChance     float64              `yaml:"rob_base_chance"`
	RobSkillBonus     float64              `yaml:"rob_skill_bonus"`
	RobMaxTakeRate    float64              `yaml:"rob_max_take_rate"` // fraction of victim cash
	RobHeatOnSuccess  float64              `yaml:"rob_heat_on_success"`
	RobHeatOnFailure  float64              `yaml:"rob_heat_on_failure"`
	RobDamageMin      int                  `yaml:"rob_damage_min"`
	RobDamageMax      int                  `yaml:"rob_damage_max"`
	CoopBonusPerExtra float64              `yaml:"coop_bonus_per_extra"`
	CoopBonusCap      float64              `yaml:"coop_bonus_cap"`
	CoopSameGangBonus float64              `yaml:"coop_same_gang_bonus"`
	CoopStealthWeight float64              `yaml:"coop_stealth_weight"` // per average stealth level
	CoopRewardFactor  float64              `yaml:"coop_reward_factor"`  // amplifier over solo reward
	CoopExpiryTicks   uint64               `yaml:"coop_expiry_ticks"`
	CoopMaxCrew       int                  `yaml:"coop_max_crew"`
	CoopMinCrew       int                  `yaml:"coop_min_crew"`

	// Territory.
	TerritoryClaimCost     int64   `yaml:"territory_claim_cost"`
	TerritoryIncome        int64   `yaml:"territory_income"`
	TerritoryStrengthGain  float64 `yaml:"territory_strength_gain"`
	TerritoryStrengthDecay float64 `yaml:"territory_strength_decay"`
	TerritoryWeakThreshold float64 `yaml:"territory_weak_threshold"`

	// Property and rent.
	RentIntervalTicks uint64 `yaml:"rent_interval_ticks"`
	RentGraceTicks    uint64 `yaml:"rent_grace_ticks"`

	// Friendship decay.
	FriendDecayEvery  uint64 `yaml:"friend_decay_every"`
	FriendIdleWindow  uint64 `yaml:"friend_idle_window"`
	FriendDecayStep   int    `yaml:"friend_decay_step"`
	FriendInitial     int    `yaml:"friend_initial"`
	FriendStrengthCap int    `yaml:"friend_strength_cap"`

	// Delayed command durations.
	MoveTicks     uint64 `yaml:"move_ticks"`
	HealTicks     uint64 `yaml:"heal_ticks"`
	RestTicks     uint64 `yaml:"rest_ticks"`
	HealCost      int64  `yaml:"heal_cost"`
	HospitalTicks uint64 `yaml:"hospital_ticks"` // forced stay after health hits 0

	// Misc costs and lifetimes.
	BusinessStartCost int64  `yaml:"business_start_cost"`
	GangCreateCost    int64  `yaml:"gang_create_cost"`
	DisguiseCost      int64  `yaml:"disguise_cost"`
	DisguiseTicks     uint64 `yaml:"disguise_ticks"`
	BountyTicks       uint64 `yaml:"bounty_ticks"`
	BountyMin         int64  `yaml:"bounty_min"`
	StartingCash      int64  `yaml:"starting_cash"`

	// NPC population.
	NPCCount     int     `yaml:"npc_count"`
	NPCActChance float64 `yaml:"npc_act_chance"`
}

// Default returns the shipped rule set.
func Default() *Rules {
	return &Rules{
		TaxBrackets: []TaxBracket{
			{Threshold: 0, Rate: 0.05},
			{Threshold: 500, Rate: 0.10},
			{Threshold: 1000, Rate: 0.15},
			{Threshold: 2500, Rate: 0.20},
		},
		TaxIntervalTicks:   200,
		TaxGraceTicks:      50,
		EvasionSeizureRate: 0.25,
		EvasionRepPenalty:  20,
		EvasionSentenceMin: 20,
		EvasionSentenceMax: 60,

		HeatCap:            100,
		HeatDecayIdle:      1.0,
		HeatDecayBusy:      0.5,
		HeatDecayConfined:  2.0,
		DisguiseDecayBonus: 1.5,
		ArrestThreshold:    60,
		ArrestSlope:        0.01,
		SentenceMin:        10,
		SentenceMax:        40,
		FineRate:           2.0,

		Crimes: map[string]CrimeSpec{
			"PICKPOCKET": {BaseChance: 0.80, SkillBonus: 0.02, Skill: "stealth", RewardMin: 10, RewardMax: 40, HeatOnSuccess: 5, HeatOnFailure: 10, DamageMin: 2, DamageMax: 8},
			"THEFT":      {BaseChance: 0.70, SkillBonus: 0.03, Skill: "stealth", RewardMin: 25, RewardMax: 90, HeatOnSuccess: 8, HeatOnFailure: 16, DamageMin: 5, DamageMax: 15},
			"BURGLARY":   {BaseChance: 0.55, SkillBonus: 0.04, Skill: "stealth", RewardMin: 60, RewardMax: 200, HeatOnSuccess: 12, HeatOnFailure: 24, DamageMin: 8, DamageMax: 25},
			"HEIST":      {BaseChance: 0.35, SkillBonus: 0.04, Skill: "stealth", RewardMin: 150, RewardMax: 600, HeatOnSuccess: 20, HeatOnFailure: 35, DamageMin: 15, DamageMax: 40},
		},
		CrimeChanceCap:    0.95,
		RobBaseChance:     0.50,
		RobSkillBonus:     0.03,
		RobMaxTakeRate:    0.30,
		RobHeatOnSuccess:  10,
		RobHeatOnFailure:  18,
		RobDamageMin:      5,
		RobDamageMax:      20,
		CoopBonusPerExtra: 0.05,
		CoopBonusCap:      0.20,
		CoopSameGangBonus: 0.10,
		CoopStealthWeight: 0.02,
		CoopRewardFactor:  1.5,
		CoopExpiryTicks:   30,
		CoopMaxCrew:       6,
		CoopMinCrew:       2,

		TerritoryClaimCost:     500,
		TerritoryIncome:        25,
		TerritoryStrengthGain:  2,
		TerritoryStrengthDecay: 5,
		TerritoryWeakThreshold: 30,

		RentIntervalTicks: 100,
		RentGraceTicks:    30,

		FriendDecayEvery:  50,
		FriendIdleWindow:  200,
		FriendDecayStep:   10,
		FriendInitial:     50,
		FriendStrengthCap: 100,

		MoveTicks:     3,
		HealTicks:     5,
		RestTicks:     4,
		HealCost:      50,
		HospitalTicks: 8,

		BusinessStartCost: 1000,
		GangCreateCost:    2000,
		DisguiseCost:      300,
		DisguiseTicks:     100,
		BountyTicks:       500,
		BountyMin:         100,
		StartingCash:      500,

		NPCCount:     20,
		NPCActChance: 0.3,
	}
}

// Load reads a YAML override file on top of the defaults.
// Absent keys keep their default values.
func Load(path string) (*Rules, error) {
	r := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// Validate rejects rule sets the engine cannot run on.
func (r *Rules) Validate() error {
	if len(r.TaxBrackets) == 0 {
		return fmt.Errorf("no tax brackets")
	}
	for i := 1; i < len(r.TaxBrackets); i++ {
		if r.TaxBrackets[i].Threshold <= r.TaxBrackets[i-1].Threshold {
			return fmt.Errorf("tax brackets not ascending at index %d", i)
		}
	}
	if r.CrimeChanceCap <= 0 || r.CrimeChanceCap > 1 {
		return fmt.Errorf("crime chance cap %v outside (0, 1]", r.CrimeChanceCap)
	}
	if r.CoopMinCrew < 2 || r.CoopMaxCrew < r.CoopMinCrew {
		return fmt.Errorf("coop crew bounds invalid: min %d max %d", r.CoopMinCrew, r.CoopMaxCrew)
	}
	return nil
}

// TaxOn applies the progressive brackets to total wealth. Each bracket
// taxes the portion of wealth between its threshold and the next bracket's
// threshold (or wealth, whichever is smaller). The sum is floored to an
// integer by int64 truncation.
func (r *Rules) TaxOn(wealth int64) int64 {
	if wealth <= 0 {
		return 0
	}
	total := 0.0
	for i, b := range r.TaxBrackets {
		if wealth <= b.Threshold {
			break
		}
		upper := wealth
		if i+1 < len(r.TaxBrackets) && r.TaxBrackets[i+1].Threshold < wealth {
			upper = r.TaxBrackets[i+1].Threshold
		}
		total += float64(upper-b.Threshold) * b.Rate
	}
	return int64(total)
}

// ArrestChance is 0 at or below the threshold and rises linearly above it,
// capped at 1.
func (r *Rules) ArrestChance(heat float64) float64 {
	if heat <= r.ArrestThreshold {
		return 0
	}
	p := (heat - r.ArrestThreshold) * r.ArrestSlope
	if p > 1 {
		p = 1
	}
	return p
}
