package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kesh-io/satchel/config"
)

func TestResolvedNamePrefixesBareNamesWithRemote(t *testing.T) {
	assert.Equal(t, "local/latest", resolvedName("local", "latest"))
}

func TestResolvedNameLeavesResolverExpressionsAlone(t *testing.T) {
	assert.Equal(t, "other/latest", resolvedName("local", "other/latest"))
	assert.Equal(t, "abc123^", resolvedName("local", "abc123^"))
	assert.Equal(t, "abc123:a/b", resolvedName("local", "abc123:a/b"))
}

func TestResolvedNameWithNoRemotePassesThrough(t *testing.T) {
	assert.Equal(t, "latest", resolvedName("", "latest"))
}

func TestScheduleIntervalMinutesDefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, int64(1440), scheduleIntervalMinutes(config.RemoteConfig{}))
	assert.Equal(t, int64(60), scheduleIntervalMinutes(config.RemoteConfig{Schedule: config.ScheduleConfig{Interval: 60}}))
}

func TestLoopIntervalConvertsSecondsToDuration(t *testing.T) {
	c := &config.C{Scheduler: config.SchedulerConfig{LoopInterval: 30}}
	assert.Equal(t, 30*time.Second, loopInterval(c))
}
