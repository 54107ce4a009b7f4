// Package mock provides a scriptable backend test double for the ai
// package. It lets pool, session and client behavior be exercised without
// a live inference service: failures, empty responses and custom content
// can all be scripted per call.
package mock
