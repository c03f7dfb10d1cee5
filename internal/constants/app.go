package constants

import (
	"time"
)

// Stage transfer defaults
const (
	// DefaultParallelism - connection count handed to each transport client.
	// Matches the partition fan-out used by the compute engine's default
	// executor configuration.
	DefaultParallelism = 4

	// DefaultDownloadRetries - attempt budget for the resilient download
	// controller. A budget of 1 or less disables in-memory materialization
	// and returns the raw stream from a single attempt.
	DefaultDownloadRetries = 10

	// DownloadBackoffUnit - linear backoff step between download attempts.
	// Attempt N sleeps N * DownloadBackoffUnit before the next try.
	DownloadBackoffUnit = time.Second

	// RandomStageDirLength - length of the generated directory name used
	// when a partitioned upload is not given an explicit target directory.
	RandomStageDirLength = 10
)

// Transport client settings
const (
	// TransportRetryMax - bounded retry count applied at the HTTP layer.
	// SDK-level retries are disabled so transfers are retried exactly once
	// per policy, not once per layer.
	TransportRetryMax = 3

	// TransportRetryWaitMin / TransportRetryWaitMax - backoff bounds for
	// the HTTP retry policy.
	TransportRetryWaitMin = 1 * time.Second
	TransportRetryWaitMax = 30 * time.Second

	// HTTPDialTimeout - fixed connect timeout for all transport clients.
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - TCP keep-alive interval.
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle connections are kept in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - extended for slow networks.
	HTTPTLSHandshakeTimeout = 10 * time.Second

	// HTTPExpectContinueTimeout - for HTTP 100-continue.
	HTTPExpectContinueTimeout = 1 * time.Second
)

// DefaultRegion is used for S3 clients when the credential set carries no
// explicit region.
const DefaultRegion = "us-east-1"
