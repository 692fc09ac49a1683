package stage

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/differentiation"
	"github.com/dsrhaslab/paio-stage/internal/rules"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// Stage is the top-level object an interface layer embeds to turn
// intercepted I/O requests into enforced ones. It owns the Core registry,
// the stage's identity (Info), and the ready/shutdown lifecycle flags an
// interface layer polls before/after submitting requests (spec.md §4.9).
type Stage struct {
	core *Core
	info Info

	ready    atomic.Bool
	shutdown atomic.Bool
}

// NewStage constructs a Stage with channels channels pre-created (using
// default options), matching the original's convenience constructor. Each
// pre-created channel routes on workflow_id alone, selecting channel i for
// requests carrying workflow_id == i; callers wanting a different selector
// scheme should create channels explicitly through housekeeping rules
// instead.
func NewStage(channels int, stageName, stageOpt string) *Stage {
	s := &Stage{
		core: NewCore(),
		info: NewInfo(stageName, stageOpt),
	}
	for i := 0; i < channels; i++ {
		tuple := differentiation.ChannelDifferentiationTuple{WorkflowID: int64(i)}
		if st := s.core.CreateChannel(int64(i), differentiation.SelectWorkflowID, tuple); st.IsError() {
			slog.Error("stage: failed to pre-create default channel", "channel_id", i)
		}
	}
	s.ready.Store(true)
	return s
}

// NewStageFromRuleFiles constructs a Stage and loads its housekeeping,
// differentiation, and enforcement rules from the given files. A missing
// differentiation or enforcement file is tolerated (not every deployment
// needs both); a missing housekeeping file is an error, since without it
// no channels would ever be created.
func NewStageFromRuleFiles(stageName, stageOpt, housekeepingPath, differentiationPath, enforcementPath string) (*Stage, error) {
	s := &Stage{core: NewCore(), info: NewInfo(stageName, stageOpt)}

	parser := rules.NewParser()
	if _, err := parser.ParseFile(housekeepingPath); err != nil {
		return nil, fmt.Errorf("stage: loading housekeeping rules: %w", err)
	}
	if differentiationPath != "" {
		if _, err := parser.ParseFile(differentiationPath); err != nil {
			slog.Warn("stage: differentiation rules file not loaded", "error", err)
		}
	}
	if enforcementPath != "" {
		if _, err := parser.ParseFile(enforcementPath); err != nil {
			slog.Warn("stage: enforcement rules file not loaded", "error", err)
		}
	}

	s.core.LoadRules(parser.Result())
	s.ready.Store(true)
	return s, nil
}

// IsReady reports whether the Stage has finished its setup and can accept
// requests.
func (s *Stage) IsReady() bool { return s.ready.Load() }

// MarkReady flips the ready flag, matching the control-plane's stage_ready
// operation (spec.md §4.10).
func (s *Stage) MarkReady() {
	s.ready.Store(true)
	slog.Info("stage: marked ready by control plane", "name", s.info.Name)
}

// IsInterrupted reports whether the Stage has been shut down.
func (s *Stage) IsInterrupted() bool { return s.shutdown.Load() }

// Shutdown marks the Stage interrupted, ceasing enforcement of new
// requests (existing in-flight requests still complete).
func (s *Stage) Shutdown() {
	s.shutdown.Store(true)
	slog.Info("stage: shutdown requested", "name", s.info.Name)
}

// SetDescription updates the Stage's Info description.
func (s *Stage) SetDescription(description string) {
	s.info.Description = description
}

// Info returns a copy of the Stage's identity metadata.
func (s *Stage) Info() Info { return s.info }

// Core returns the Stage's Channel/EnforcementObject registry, for the
// networking layer to apply control-plane operations against.
func (s *Stage) Core() *Core { return s.core }

// EnforceRequest submits an intercepted I/O request for enforcement. It
// returns status.NotSupported if the Stage is not ready or has been shut
// down, without touching the registry.
func (s *Stage) EnforceRequest(ctx core.Context, buffer []byte, async bool) (core.Result, status.Status) {
	if !s.ready.Load() || s.shutdown.Load() {
		return core.Result{}, status.NotSupported()
	}
	return s.core.EnforceRequest(ctx, buffer, async)
}

// String renders the Stage's identity and registry summary for debugging.
func (s *Stage) String() string {
	return fmt.Sprintf("PaioStage {%s, ready=%t, interrupted=%t}\n%s",
		s.info, s.ready.Load(), s.shutdown.Load(), s.core.String())
}
