//go:build crbdebug

package crb

const debugChecks = true
