package world

import (
	"time"

	"go.uber.org/zap"
)

// PathProgress returns the transport's cursor into its path period.
func (o *Object) PathProgress() time.Duration { return o.pathProgress }

// StopFrame returns the index of the stop frame the transport last
// stopped at.
func (o *Object) StopFrame() int { return o.stopFrame }

// updateTransport advances the path cursor while the transport is moving and
// flips the periodic visual bit that keeps clients animating. Path time keeps
// accruing while parked at a frame; resume folds it back into the cursor.
func (o *Object) updateTransport(diff time.Duration) {
	tp := o.tmpl.Transport
	if tp == nil || tp.PeriodMs == 0 {
		return
	}
	if o.visualState != VisualTransportActive {
		o.stoppedTime += diff
		return
	}
	period := time.Duration(tp.PeriodMs) * time.Millisecond
	o.pathProgress = (o.pathProgress + diff) % period

	o.visualToggle += diff
	if o.visualToggle >= transportToggleInterval {
		o.visualToggle -= transportToggleInterval
		o.transportOpen = !o.transportOpen
		o.m.Notifier.ForceStateUpdate(o)
	}
}

// SetTransportState moves the transport between "following its path" and
// "stopped at frame k". Stopping snaps the cursor to the frame's path offset;
// resuming folds the time spent stopped back into the cursor, so path time
// runs continuously across the stop.
func (o *Object) SetTransportState(state VisualState) {
	if !o.IsTransport() || o.visualState == state {
		return
	}
	tp := o.tmpl.Transport
	if tp == nil {
		return
	}

	if state == VisualTransportActive {
		if o.visualState >= VisualTransportStopped && tp.PeriodMs > 0 {
			period := time.Duration(tp.PeriodMs) * time.Millisecond
			o.pathProgress = (o.pathProgress + o.stoppedTime) % period
		}
		o.stoppedTime = 0
		o.visualToggle = 0
		o.visualState = state
	} else {
		k := int(state - VisualTransportStopped)
		if k < 0 || k >= MaxTransportStopFrames || k >= len(tp.StopFrames) {
			o.m.log.Warn("transport stop frame out of range",
				zap.Int32("kind_id", o.tmpl.KindID), zap.Int("frame", k))
			return
		}
		o.pathProgress = time.Duration(tp.StopFrames[k]) * time.Millisecond
		o.stoppedTime = 0
		o.stopFrame = k
		o.visualState = state
	}
	o.ai.OnStateChanged(o.visualState)
	o.m.Notifier.ForceStateUpdate(o)
}

// nearestStopFrame returns the index of the stop frame closest to the
// current path cursor, measured along the circular path.
func (o *Object) nearestStopFrame() int {
	tp := o.tmpl.Transport
	if tp == nil || len(tp.StopFrames) == 0 {
		return 0
	}
	period := int64(tp.PeriodMs)
	cursor := int64(o.pathProgress / time.Millisecond)

	best, bestDist := 0, int64(-1)
	for i, frame := range tp.StopFrames {
		d := cursor - int64(frame)
		if d < 0 {
			d = -d
		}
		if period > 0 && period-d < d {
			d = period - d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
