// Package bootstrap assembles a running directory sync from configuration:
// the model registry with its relationships, the local stores, the directory
// gateway and the scheduler.
package bootstrap
