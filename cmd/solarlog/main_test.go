package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockFor(t *testing.T) {
	dir := t.TempDir()

	lock, err := lockFor(dir, "192.168.1.20")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "solarlog-192.168.1.20.pid"), string(lock))

	lock, err = lockFor(dir, "http://gw.local:8080/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "solarlog-http___gw.local_8080_.pid"), string(lock))
}

func TestLockForSameProcess(t *testing.T) {
	dir := t.TempDir()

	lock, err := lockFor(dir, "10.0.0.1")
	require.NoError(t, err)
	require.NoError(t, lock.TryLock())
	defer lock.Unlock()

	other, err := lockFor(dir, "10.0.0.1")
	require.NoError(t, err)
	// the pid file is ours, so a second lock in the same process succeeds
	assert.NoError(t, other.TryLock())

	unrelated, err := lockFor(dir, "10.0.0.2")
	require.NoError(t, err)
	assert.NoError(t, unrelated.TryLock())
	assert.NoError(t, unrelated.Unlock())
}
