// Package statemachine defines the canonical disclosure-ladder state space and
// the explicit transition allow-list. Pure validation only, no I/O.
//
// Two historical step vocabularies are unified here. The disclosure ladder is
// the spine; the AI-analysis ladder maps onto it as follows:
//
//	initial             -> profile_request
//	photo_pending       -> photo_requested
//	biodata_opened      -> full_data_approved
//	ai_analyzing        -> ai_analyzing            (kept)
//	ai_recommendation…  -> ai_recommendation_ready (kept)
//
// and contributes the post-chat milestones meeting_scheduled, marriage_intent,
// and closed.
package statemachine

// Step is one state of the match progression ladder.
type Step string

const (
	// Mutual-approval handshake steps: one side has agreed, the other has not.
	// Either one feeds the disclosure ladder through a profile request, or
	// straight into chatting when the counterpart approves in kind.
	StepRequesterApproved Step = "requester_approved"
	StepTargetApproved    Step = "target_approved"

	// Disclosure ladder.
	StepProfileRequest    Step = "profile_request"
	StepProfileViewed     Step = "profile_viewed"
	StepPhotoRequested    Step = "photo_requested"
	StepPhotoApproved     Step = "photo_approved"
	StepFullDataRequested Step = "full_data_requested"
	StepFullDataApproved  Step = "full_data_approved"

	// AI-analysis gate.
	StepAIAnalyzing           Step = "ai_analyzing"
	StepAIRecommendationReady Step = "ai_recommendation_ready"

	// Post-disclosure milestones.
	StepChatting         Step = "chatting"
	StepMeetingScheduled Step = "meeting_scheduled"
	StepMarriageIntent   Step = "marriage_intent"

	// Absorbing terminal states.
	StepRejected Step = "rejected"
	StepBlocked  Step = "blocked"
	StepClosed   Step = "closed"
)

// transitions is the single source of truth for legality. Anything not listed
// is illegal; terminal states have no entry.
var transitions = map[Step][]Step{
	StepRequesterApproved: {StepProfileRequest, StepChatting, StepRejected, StepBlocked},
	StepTargetApproved:    {StepProfileRequest, StepChatting, StepRejected, StepBlocked},

	StepProfileRequest:    {StepProfileViewed, StepRejected, StepBlocked},
	StepProfileViewed:     {StepPhotoRequested, StepRejected, StepBlocked},
	StepPhotoRequested:    {StepPhotoApproved, StepRejected, StepBlocked},
	StepPhotoApproved:     {StepFullDataRequested, StepRejected, StepBlocked},
	StepFullDataRequested: {StepFullDataApproved, StepRejected, StepBlocked},
	StepFullDataApproved:  {StepAIAnalyzing, StepChatting, StepRejected, StepBlocked},

	StepAIAnalyzing:           {StepAIRecommendationReady, StepBlocked},
	StepAIRecommendationReady: {StepChatting, StepRejected, StepBlocked},

	StepChatting:         {StepMeetingScheduled, StepClosed, StepBlocked},
	StepMeetingScheduled: {StepMarriageIntent, StepClosed, StepBlocked},
	StepMarriageIntent:   {StepClosed, StepBlocked},
}

// CanTransition reports whether from -> to is on the allow-list.
func CanTransition(from, to Step) bool {
	for _, legal := range transitions[from] {
		if legal == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a step has no legal outgoing transitions.
func IsTerminal(step Step) bool {
	return len(transitions[step]) == 0
}

// Steps lists every known step.
func Steps() []Step {
	return []Step{
		StepRequesterApproved, StepTargetApproved,
		StepProfileRequest, StepProfileViewed,
		StepPhotoRequested, StepPhotoApproved,
		StepFullDataRequested, StepFullDataApproved,
		StepAIAnalyzing, StepAIRecommendationReady,
		StepChatting, StepMeetingScheduled, StepMarriageIntent,
		StepRejected, StepBlocked, StepClosed,
	}
}

// LegalTargets returns a copy of the allow-list entry for a step.
func LegalTargets(from Step) []Step {
	return append([]Step(nil), transitions[from]...)
}
