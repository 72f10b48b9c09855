package engine

import (
	"fmt"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// start handles a Start request on the loop goroutine.
func (e *Engine) start(req StartRequest) Outcome {
	if !e.ready {
		return e.ignore(GuardNotReady, "media sources are still loading", true)
	}
	if e.state == Playing {
		return e.ignore(GuardAlreadyPlaying, "already playing; pause or stop first", false)
	}

	// Snapshot the commands so later edits never reach a running session.
	commands := make([]ir.Command, len(req.Commands))
	for i, c := range req.Commands {
		commands[i] = c.Clone()
	}
	plan := compiler.CompileRange(commands, req.EndMs)
	if plan.Empty() {
		return e.ignore(GuardEmptyPlan, "nothing to play", true)
	}

	var out Outcome
	if skipped := compiler.DegenerateIndices(commands); len(skipped) > 0 {
		out.Skipped = skipped
		out.Warnings = append(out.Warnings, e.warn(GuardDegenerateCommand,
			fmt.Sprintf("skipped commands without a positive duration: %v", skipped)))
	}

	resume := e.positionMs
	if req.ResumeFromMs != nil {
		resume = *req.ResumeFromMs
	}
	if !(resume >= 0) || resume >= plan.End() {
		out.Warnings = append(out.Warnings, e.warn(GuardInvalidResumeTarget,
			fmt.Sprintf("resume point %v is outside [0, %v); restarting from 0", resume, plan.End())))
		out.Restarted = true
		resume = 0
	}

	hash, err := ir.PlanHash(plan)
	if err != nil {
		e.logger.Warn("plan hash failed", "error", err)
	}
	var endMs *float64
	if req.EndMs != nil {
		v := *req.EndMs
		endMs = &v
	}
	e.session = Session{
		ID:        e.sessionIDs.Generate(),
		StartedAt: e.clock.Now(),
		ResumeMs:  resume,
		EndMs:     endMs,
		Restarted: out.Restarted,
		Commands:  commands,
		Plan:      plan,
		PlanHash:  hash,
	}
	e.plan = plan
	e.commands = commands
	e.resumeMs = resume
	e.firstDispatch = true

	e.tracer.SessionStarted(e.session)
	e.transition(Playing, "start", resume)
	e.logger.Info("playback started",
		"session_id", e.session.ID,
		"resume_ms", resume,
		"plan_end_ms", plan.End(),
		"frames", len(plan.Frames()),
	)
	e.metrics.startHandled("started")

	e.advance(plan.FrameAt(resume))
	if e.state == Playing {
		e.armReadout()
	}

	out.Started = true
	out.SessionID = e.session.ID
	out.ResumedFromMs = resume
	return out
}

func (e *Engine) ignore(code GuardCode, message string, notify bool) Outcome {
	e.logger.Info("start ignored", "code", string(code), "reason", message)
	if notify {
		e.notifier.Notify(string(code), message)
	}
	e.metrics.startHandled(string(code))
	return Outcome{Guard: &GuardError{Code: code, Message: message}}
}

func (e *Engine) warn(code GuardCode, message string) *GuardError {
	e.logger.Warn("start adjusted", "code", string(code), "reason", message)
	e.notifier.Notify(string(code), message)
	return &GuardError{Code: code, Message: message}
}

// advance dispatches the frame whose first action is at index i and arms
// the timer for the next one.
//
// Frame i's source commands are all issued before its timer is armed.
func (e *Engine) advance(i int) {
	group := e.plan.Group(i)
	frameStart := group[0].Start
	offset := frameStart
	if e.firstDispatch {
		offset = e.resumeMs
	}

	// Re-base the anchor at every boundary so timer lateness never
	// accumulates across frames.
	e.frame = i
	e.anchorTime = e.clock.Now()
	e.anchorOffset = offset

	next := e.plan.GroupEnd(i)
	terminal := next == len(e.plan.Actions)

	visible := ir.NoCommand
	if !terminal {
		visible = e.issue(group, offset)
	}
	e.tracer.Dispatched(Dispatch{
		SessionID:  e.session.ID,
		Seq:        e.seq.Next(),
		At:         e.anchorTime,
		FrameIndex: i,
		FrameStart: frameStart,
		OffsetMs:   offset,
		Visible:    visible,
		Actions:    group,
		Terminal:   terminal,
	})
	e.metrics.frameDispatched(terminal)
	e.logger.Debug("frame dispatched",
		"session_id", e.session.ID,
		"frame_start", frameStart,
		"offset_ms", offset,
		"visible", visible,
		"actions", len(group),
	)

	if terminal {
		e.finish(frameStart)
		return
	}

	e.firstDispatch = false
	e.armFrame(group[0].End-offset, next)
	e.publish()
}

// issue sends one frame's commands to every source and returns the visible
// command index.
func (e *Engine) issue(group []ir.PlanAction, offset float64) int {
	byIndex := make(map[int]ir.PlanAction, len(group))
	visible := ir.NoCommand
	var overlay *ir.Overlay
	for _, a := range group {
		if a.IsBlack() {
			continue
		}
		if a.CommandIndex >= len(e.sources) {
			e.logger.Warn("no media source for command", "command_index", a.CommandIndex)
			continue
		}
		byIndex[a.CommandIndex] = a
		if a.ShowVideo {
			visible = a.CommandIndex
			overlay = a.Overlay
		}
	}

	for idx, src := range e.sources {
		a, ok := byIndex[idx]
		switch {
		case !ok, a.PauseRequested:
			e.pauseSource(idx)

		case a.PlayFromStart || e.firstDispatch:
			// Mid-frame resume enters the source at trimStart+elapsed*rate.
			c := e.commands[idx]
			src.Seek(c.SourceOffsetMs(offset) / 1000)
			src.SetVolume(c.Volume)
			src.SetPlaybackRate(c.Rate())
			src.Play()
			e.playing[idx] = true

		default:
			if !e.playing[idx] {
				src.Play()
				e.playing[idx] = true
			}
		}
		src.SetVisible(idx == visible || e.showAll)
	}

	e.backdrop.SetVisible(visible == ir.NoCommand)
	e.overlay.Update(overlay)
	return visible
}

func (e *Engine) pauseSource(idx int) {
	if e.playing[idx] {
		e.sources[idx].Pause()
		e.playing[idx] = false
	}
}

// halt pauses and hides every source regardless of tracked state, shows the
// backdrop and clears the overlay.
func (e *Engine) halt() {
	for idx, src := range e.sources {
		src.Pause()
		src.SetVisible(false)
		e.playing[idx] = false
	}
	e.backdrop.SetVisible(true)
	e.overlay.Update(nil)
}

// finish ends the session at the sentinel.
func (e *Engine) finish(atMs float64) {
	e.cancelTimers()
	e.halt()
	e.positionMs = atMs
	e.transition(Stopped, "end", atMs)
	e.sink.Position(atMs)
	e.logger.Info("playback reached end", "session_id", e.session.ID, "position_ms", atMs)
	e.publish()
}

func (e *Engine) pause(reason string) {
	if e.state != Playing {
		return
	}
	pos := e.livePosition()
	e.cancelTimers()
	for idx := range e.sources {
		e.pauseSource(idx)
	}
	e.positionMs = pos
	e.transition(Paused, reason, pos)
	e.sink.Position(pos)
	e.logger.Info("playback paused", "session_id", e.session.ID, "position_ms", pos)
	e.publish()
}

func (e *Engine) stop() {
	if e.state == Stopped {
		e.positionMs = 0
		e.publish()
		return
	}
	e.cancelTimers()
	e.halt()
	e.positionMs = 0
	e.transition(Stopped, "stop", 0)
	e.sink.Position(0)
	e.logger.Info("playback stopped", "session_id", e.session.ID)
	e.publish()
}

func (e *Engine) seek(ms float64) {
	target := ms
	if !(target > 0) {
		target = 0
	}
	if e.state != Playing {
		e.positionMs = target
		e.sink.Position(target)
		e.publish()
		return
	}

	e.pause("seek")
	out := e.start(StartRequest{
		ResumeFromMs: &target,
		Commands:     e.session.Commands,
		EndMs:        e.session.EndMs,
	})
	if !out.Started {
		e.logger.Warn("seek could not restart playback", "target_ms", target, "guard", out.Err())
	}
}
