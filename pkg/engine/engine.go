// Package engine owns execution records and runs submitted scripts
// asynchronously.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/device"
	"github.com/screengrid-dev/screengrid/pkg/logger"
	"github.com/screengrid-dev/screengrid/pkg/ocr"
	"github.com/screengrid-dev/screengrid/pkg/scripts"
)

// ClientProvider yields the device client for a device ID. Called at
// dispatch time so a broken device fails the record, not the submit.
type ClientProvider func(deviceID string) (device.Client, error)

// Config configures the engine.
type Config struct {
	// RecordCapacity bounds the LRU record store
	RecordCapacity int
	// DefaultTimeout applies when the timeout variable is absent
	DefaultTimeout time.Duration
}

const defaultRecordCapacity = 1024

// Engine dispatches script executions and serves record snapshots.
type Engine struct {
	registry       *scripts.Registry
	ocr            *ocr.Registry
	clients        ClientProvider
	records        *lru.Cache[string, *record]
	defaultTimeout time.Duration
}

// record is the engine-owned live state of one execution. All reads and
// writes go through its mutex; callers only ever receive copies.
type record struct {
	mu  sync.Mutex
	rec core.ExecutionRecord
}

// New creates the engine.
func New(cfg Config, registry *scripts.Registry, ocrRegistry *ocr.Registry, clients ClientProvider) *Engine {
	capacity := cfg.RecordCapacity
	if capacity <= 0 {
		capacity = defaultRecordCapacity
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// lru.New only fails for non-positive sizes, which are clamped above
	records, _ := lru.New[string, *record](capacity)

	return &Engine{
		registry:       registry,
		ocr:            ocrRegistry,
		clients:        clients,
		records:        records,
		defaultTimeout: timeout,
	}
}

// Submit registers an execution and dispatches it on its own goroutine.
// It returns as soon as the record exists; progress is observed through
// Snapshot.
func (e *Engine) Submit(deviceID, scriptName string, variables map[string]interface{}) (string, error) {
	handler, ok := e.registry.Get(scriptName)
	if !ok {
		return "", core.ErrUnknownScript.
			WithMessage(fmt.Sprintf("script %q is not registered", scriptName)).
			WithDetails(map[string]interface{}{"available": e.registry.Names()})
	}

	vars := make(map[string]interface{}, len(variables))
	for k, v := range variables {
		vars[k] = v
	}

	id := newExecutionID()
	r := &record{
		rec: core.ExecutionRecord{
			ExecutionID: id,
			DeviceID:    deviceID,
			ScriptName:  scriptName,
			Variables:   vars,
			Status:      core.StatusPending,
			CreatedAt:   time.Now(),
		},
	}
	e.records.Add(id, r)

	logger.Info("execution %s submitted: script=%s device=%s", id, scriptName, deviceID)
	go e.run(r, handler)

	return id, nil
}

// Snapshot returns a consistent copy of one record. Status and result are
// always read together.
func (e *Engine) Snapshot(executionID string) (*core.ExecutionRecord, error) {
	r, ok := e.records.Get(executionID)
	if !ok {
		return nil, core.ErrNotFound.
			WithMessage(fmt.Sprintf("execution %q not found", executionID))
	}
	snap := r.snapshot()
	return &snap, nil
}

// List returns snapshots of every retained record, newest submissions
// last.
func (e *Engine) List() []core.ExecutionRecord {
	keys := e.records.Keys()
	out := make([]core.ExecutionRecord, 0, len(keys))
	for _, key := range keys {
		if r, ok := e.records.Peek(key); ok {
			out = append(out, r.snapshot())
		}
	}
	return out
}

// run drives one execution to a terminal state exactly once. The handler
// keeps running past a timeout; its eventual result is discarded rather
// than cancelled, since the device operation underneath cannot be safely
// aborted midway.
func (e *Engine) run(r *record, handler scripts.Handler) {
	r.transition(core.StatusRunning)

	timeout := timeoutFromVariables(r.rec.Variables, e.defaultTimeout)

	client, err := e.clients(r.rec.DeviceID)
	if err != nil {
		r.finalize(core.StatusFailed, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	sctx := scripts.NewContext(context.Background(), r.rec.DeviceID, r.rec.ExecutionID, r.rec.Variables, client, e.ocr)

	done := make(chan *scripts.Result, 1)
	go func() {
		done <- handler(sctx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		resultMap := result.ToMap()
		if result.Success {
			r.finalize(core.StatusCompleted, resultMap)
		} else {
			if _, ok := resultMap["error"]; !ok {
				resultMap["error"] = result.Message
			}
			r.finalize(core.StatusFailed, resultMap)
		}
	case <-timer.C:
		if r.finalize(core.StatusFailed, map[string]interface{}{
			"success": false,
			"error":   "timeout",
		}) {
			logger.Warn("execution %s timed out after %s", r.rec.ExecutionID, timeout)
		}
	}
}

// transition moves a non-terminal record to the given state.
func (r *record) transition(status core.ExecStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.rec.Status.IsTerminal() {
		r.rec.Status = status
	}
}

// finalize performs the exactly-once terminal transition. A record that is
// already terminal stays untouched and finalize reports false.
func (r *record) finalize(status core.ExecStatus, result map[string]interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec.Status.IsTerminal() {
		return false
	}

	now := time.Now()
	r.rec.Status = status
	r.rec.Result = result
	r.rec.CompletedAt = &now
	return true
}

// snapshot copies the record under its lock.
func (r *record) snapshot() core.ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.rec
	snap.Variables = copyMap(r.rec.Variables)
	snap.Result = copyMap(r.rec.Result)
	if r.rec.CompletedAt != nil {
		completed := *r.rec.CompletedAt
		snap.CompletedAt = &completed
	}
	return snap
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// newExecutionID builds a time-prefixed opaque ID, unique for the process
// lifetime.
func newExecutionID() string {
	return fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// timeoutFromVariables reads the timeout variable in seconds.
func timeoutFromVariables(vars map[string]interface{}, fallback time.Duration) time.Duration {
	value, exists := vars["timeout"]
	if !exists {
		return fallback
	}
	switch v := value.(type) {
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	case string:
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return fallback
}
