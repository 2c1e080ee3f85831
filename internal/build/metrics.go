package build

import (
	"sync"
	"time"
)

// BuildMetrics tracks component build outcomes
type BuildMetrics struct {
	totalBuilds      int64
	successfulBuilds int64
	failedBuilds     int64
	stylesWritten    int64
	totalDuration    time.Duration
	mutex            sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of BuildMetrics
type MetricsSnapshot struct {
	TotalBuilds      int64         `json:"total_builds" yaml:"total_builds"`
	SuccessfulBuilds int64         `json:"successful_builds" yaml:"successful_builds"`
	FailedBuilds     int64         `json:"failed_builds" yaml:"failed_builds"`
	StylesWritten    int64         `json:"styles_written" yaml:"styles_written"`
	AverageDuration  time.Duration `json:"average_duration" yaml:"average_duration"`
	TotalDuration    time.Duration `json:"total_duration" yaml:"total_duration"`
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordBuild records a build result in the metrics
func (bm *BuildMetrics) RecordBuild(result BuildResult) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.totalBuilds++
	bm.totalDuration += result.Duration

	if result.Error != nil {
		bm.failedBuilds++
	} else {
		bm.successfulBuilds++
	}
}

// recordStylesWritten counts a compiled stylesheet written back to disk
func (bm *BuildMetrics) recordStylesWritten() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.stylesWritten++
}

// Snapshot returns a copy of the current metrics
func (bm *BuildMetrics) Snapshot() MetricsSnapshot {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	snap := MetricsSnapshot{
		TotalBuilds:      bm.totalBuilds,
		SuccessfulBuilds: bm.successfulBuilds,
		FailedBuilds:     bm.failedBuilds,
		StylesWritten:    bm.stylesWritten,
		TotalDuration:    bm.totalDuration,
	}
	if bm.totalBuilds > 0 {
		snap.AverageDuration = bm.totalDuration / time.Duration(bm.totalBuilds)
	}
	return snap
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.totalBuilds = 0
	bm.successfulBuilds = 0
	bm.failedBuilds = 0
	bm.stylesWritten = 0
	bm.totalDuration = 0
}

// SuccessRate returns the success rate as a percentage
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalBuilds == 0 {
		return 0.0
	}

	return float64(s.SuccessfulBuilds) / float64(s.TotalBuilds) * 100.0
}
