package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/blockrow/internal/engine"
)

func TestParseCommandDecodesArgs(t *testing.T) {
	cases := []struct {
		kind string
		args string
		want engine.Command
	}{
		{"MOVE", `{"dest":"d03"}`, engine.Move{Dest: "d03"}},
		{"TAKE_JOB", `{"job_id":"d01-5-0"}`, engine.TakeJob{JobID: "d01-5-0"}},
		{"HEAL", ``, engine.Heal{}},
		{"REST", `{}`, engine.Rest{}},
		{"PAY_TAX", ``, engine.PayTax{}},
		{"BUY", `{"business_id":"b1","item_id":"lockpick","qty":2}`,
			engine.Buy{BusinessID: "b1", ItemID: "lockpick", Qty: 2}},
		{"GIFT", `{"target_id":"a2","amount":50}`,
			engine.Gift{TargetID: "a2", Amount: 50}},
		{"CRIME", `{"category":"THEFT"}`, engine.Crime{Category: "THEFT"}},
		{"INITIATE_COOP", `{"category":"HEIST","min_crew":3}`,
			engine.InitiateCoop{Category: "HEIST", MinCrew: 3}},
		{"PLACE_BOUNTY", `{"target_id":"a9","amount":200}`,
			engine.PlaceBounty{TargetID: "a9", Amount: 200}},
		{"BUY_DISGUISE", ``, engine.BuyDisguise{}},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			cmd, err := parseCommand(tc.kind, json.RawMessage(tc.args))
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmd)
			assert.Equal(t, tc.kind, cmd.Kind())
		})
	}
}

func TestParseCommandRejectsUnknownKind(t *testing.T) {
	_, err := parseCommand("TELEPORT", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEPORT")
}

func TestParseCommandRejectsMalformedArgs(t *testing.T) {
	_, err := parseCommand("MOVE", json.RawMessage(`{"dest":42}`))
	require.Error(t, err)
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/status", nil)
	r.RemoteAddr = "10.0.0.1:4242"
	assert.Equal(t, "10.0.0.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(r))
}

func TestRateLimiterWindowExhaustion(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"))
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per IP")
}

func TestQueryLimitBounds(t *testing.T) {
	for query, want := range map[string]int{
		"":             100,
		"limit=25":     25,
		"limit=0":      100,
		"limit=-5":     100,
		"limit=9999":   100,
		"limit=potato": 100,
	} {
		r := httptest.NewRequest("GET", "/api/v1/events?"+query, nil)
		assert.Equal(t, want, queryLimit(r, 100), "query %q", query)
	}
}
