package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextCronRun(t *testing.T) {
	after := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)

	// Daily at 03:00 from midday lands on the next morning
	next, err := nextCronRun("0 3 * * *", after)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), next)

	_, err = nextCronRun("not a cron expr", after)
	assert.Error(t, err)
}

func TestRecordLink(t *testing.T) {
	assert.Equal(t, "/leads/abc", recordLink(ObjectLead, "abc"))
	assert.Equal(t, "/opportunitys/o1", recordLink(ObjectOpportunity, "o1"))
}

func TestEnvString(t *testing.T) {
	env := map[string]interface{}{"owner_id": "u1", "score": 50}
	assert.Equal(t, "u1", envString(env, "owner_id"))
	assert.Equal(t, "", envString(env, "score"))
	assert.Equal(t, "", envString(env, "missing"))
}
