package main

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kesh-io/satchel/config"
	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/remote"
)

// remoteFor builds a remote.Method for the named remote from the loaded
// configuration.
func remoteFor(c *config.C, name string) (remote.Method, config.RemoteConfig, error) {
	rc, ok := c.Remotes[name]
	if !ok {
		return nil, config.RemoteConfig{}, errors.Errorf("satchel: unknown remote %q", name)
	}
	m, err := remote.New(remote.MethodConfig{
		Method:   rc.Method,
		Includes: rc.Includes,
		Excludes: rc.Excludes,
		Root:     rc.Root,
		Server:   rc.Server,
		Login:    rc.Login,
		Password: rc.Password,
		KeyFile:  rc.SSHKey,
		Profile:  rc.Profile,
		Region:   rc.Region,
		Bucket:   rc.Bucket,
		Prefix:   rc.Prefix,
	})
	return m, rc, err
}

// resolvedName builds the pool.Resolve expression for name as captured
// under remote's label namespace: every backup the walker or scheduler
// produces is labeled "<remote>/<label>", so a bare name is first tried
// there. A name that is already a full resolver expression (contains a
// "/" path separator, a parent-hop "^", or a sub-path ":") is passed
// through unchanged instead, so labels outside the remote's own
// namespace and literal refs keep working.
func resolvedName(remoteName, name string) string {
	if remoteName == "" || strings.ContainsAny(name, "/^:") {
		return name
	}
	return remoteName + "/" + name
}

func scheduleIntervalMinutes(rc config.RemoteConfig) int64 {
	if rc.Schedule.Interval <= 0 {
		return 1440
	}
	return rc.Schedule.Interval
}

func loopInterval(c *config.C) time.Duration {
	return time.Duration(c.Scheduler.LoopInterval) * time.Second
}

// formatTime renders a timestamp the way every CLI output command does.
func formatTime(ts object.Timestamp) string {
	return ts.Time.Local().Format(time.RFC3339)
}
