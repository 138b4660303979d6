// Package session implements the per-peer Conn, per-client Sess, and
// per-channel Ch state machines of spec.md §3 and §4.4, plus the latching
// input-event/pipeline-event flag bits of spec.md §7.
package session

// InputEvent is a latching flag bit recorded on a Conn/Sess, cleared on
// each RT_ACKNOWLEDGE response (spec.md §7).
type InputEvent uint32

const (
	InputNew InputEvent = 1 << iota
	InputOrder
	InputSeqErrNotIncremented
	InputSeqErrDuplicate
	InputSeqErrMissing
	InputMVErr
	InputOvErr
	InputLAErr
	InputBPErr
	InputCCErr
	InputIRAErr
)

// PipelineEvent is a latching per-channel flag bit (spec.md §7).
type PipelineEvent uint32

const (
	PipelineRouted PipelineEvent = 1 << iota
	PipelineClosed
	PipelineSMErr
	PipelineBsyErr
	PipelineFrgErr
	PipelineCfgErr
	PipelineCktErr
	PipelineDCMErr
	PipelineCtyErr
	PipelineMclErr
	PipelineRguErr
	PipelinePvlErr
	PipelineDviErr
	PipelineIapErr
)

// FlagSet accumulates latching bits and clears them atomically on read,
// matching the ack-then-clear protocol of spec.md §4.8/§7.
type FlagSet[T ~uint32] struct {
	bits T
}

// Set ORs f into the accumulated bits.
func (s *FlagSet[T]) Set(f T) {
	s.bits |= f
}

// Has reports whether f is currently set.
func (s *FlagSet[T]) Has(f T) bool {
	return s.bits&f != 0
}

// DrainAndClear returns the accumulated bits and clears them, for use when
// synthesizing an acknowledgement.
func (s *FlagSet[T]) DrainAndClear() T {
	b := s.bits
	s.bits = 0
	return b
}
