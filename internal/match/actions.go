package match

import (
	sm "taaruf/internal/match/statemachine"
	dErrors "taaruf/pkg/domain-errors"
)

// Action is one of the closed set of named operations a participant can
// dispatch against a match.
type Action string

const (
	ActionLike                  Action = "like"
	ActionRequestProfile        Action = "request_profile"
	ActionApproveProfile        Action = "approve_profile"
	ActionRequestPhoto          Action = "request_photo"
	ActionApprovePhoto          Action = "approve_photo"
	ActionRequestFullBiodata    Action = "request_full_biodata"
	ActionApproveFullBiodata    Action = "approve_full_biodata"
	ActionRequestAIAnalysis     Action = "request_ai_analysis"
	ActionCompleteAIAnalysis    Action = "complete_ai_analysis"
	ActionStartChatting         Action = "start_chatting"
	ActionAcceptRecommendation  Action = "accept_recommendation"
	ActionScheduleMeeting       Action = "schedule_meeting"
	ActionDeclareMarriageIntent Action = "declare_marriage_intent"
	ActionClose                 Action = "close"
	ActionRejectProfile         Action = "reject_profile"
	ActionRejectPhoto           Action = "reject_photo"
	ActionRejectFullBiodata     Action = "reject_full_biodata"
	ActionBlock                 Action = "block"
)

// Spec declares what a single action does: the one (from,to) transition it
// performs and the authorization rule it carries. The orchestrator validates
// the transition against the state machine allow-list before persisting.
type Spec struct {
	Action Action
	From   sm.Step
	To     sm.Step

	// CounterpartOnly restricts the action to the party that did not open
	// the currently pending gate (the receiving side of a request).
	CounterpartOnly bool

	// OpensGate marks actions that start a new disclosure gate; the actor is
	// recorded as the gate opener.
	OpensGate bool

	// Event is the notification event type emitted on success.
	Event string
}

// Resolve maps a raw action name to its Spec. The switch is the closed set:
// adding an action means adding a case, and anything else is invalid.
func Resolve(name string) (Spec, error) {
	switch Action(name) {
	case ActionLike:
		// Handled by the mutual-approval coordinator; carries no ladder
		// transition of its own.
		return Spec{Action: ActionLike}, nil
	case ActionRequestProfile:
		// From is dynamic: either handshake step enters the disclosure
		// ladder here, bounded by the allow-list.
		return Spec{Action: ActionRequestProfile, To: sm.StepProfileRequest,
			OpensGate: true, Event: "profile_requested"}, nil
	case ActionApproveProfile:
		return Spec{Action: ActionApproveProfile, From: sm.StepProfileRequest, To: sm.StepProfileViewed,
			CounterpartOnly: true, Event: "profile_approved"}, nil
	case ActionRequestPhoto:
		return Spec{Action: ActionRequestPhoto, From: sm.StepProfileViewed, To: sm.StepPhotoRequested,
			OpensGate: true, Event: "photo_requested"}, nil
	case ActionApprovePhoto:
		return Spec{Action: ActionApprovePhoto, From: sm.StepPhotoRequested, To: sm.StepPhotoApproved,
			CounterpartOnly: true, Event: "photo_approved"}, nil
	case ActionRequestFullBiodata:
		return Spec{Action: ActionRequestFullBiodata, From: sm.StepPhotoApproved, To: sm.StepFullDataRequested,
			OpensGate: true, Event: "full_biodata_requested"}, nil
	case ActionApproveFullBiodata:
		return Spec{Action: ActionApproveFullBiodata, From: sm.StepFullDataRequested, To: sm.StepFullDataApproved,
			CounterpartOnly: true, Event: "full_biodata_approved"}, nil
	case ActionRequestAIAnalysis:
		return Spec{Action: ActionRequestAIAnalysis, From: sm.StepFullDataApproved, To: sm.StepAIAnalyzing,
			Event: "ai_analysis_started"}, nil
	case ActionCompleteAIAnalysis:
		return Spec{Action: ActionCompleteAIAnalysis, From: sm.StepAIAnalyzing, To: sm.StepAIRecommendationReady,
			Event: "ai_recommendation_ready"}, nil
	case ActionStartChatting:
		return Spec{Action: ActionStartChatting, From: sm.StepFullDataApproved, To: sm.StepChatting,
			Event: "match_active"}, nil
	case ActionAcceptRecommendation:
		return Spec{Action: ActionAcceptRecommendation, From: sm.StepAIRecommendationReady, To: sm.StepChatting,
			Event: "match_active"}, nil
	case ActionScheduleMeeting:
		return Spec{Action: ActionScheduleMeeting, From: sm.StepChatting, To: sm.StepMeetingScheduled,
			Event: "meeting_scheduled"}, nil
	case ActionDeclareMarriageIntent:
		return Spec{Action: ActionDeclareMarriageIntent, From: sm.StepMeetingScheduled, To: sm.StepMarriageIntent,
			Event: "marriage_intent"}, nil
	case ActionClose:
		return Spec{Action: ActionClose, From: sm.StepMarriageIntent, To: sm.StepClosed,
			Event: "match_closed"}, nil
	case ActionRejectProfile:
		return Spec{Action: ActionRejectProfile, From: sm.StepProfileRequest, To: sm.StepRejected,
			CounterpartOnly: true, Event: "match_rejected"}, nil
	case ActionRejectPhoto:
		return Spec{Action: ActionRejectPhoto, From: sm.StepPhotoRequested, To: sm.StepRejected,
			CounterpartOnly: true, Event: "match_rejected"}, nil
	case ActionRejectFullBiodata:
		return Spec{Action: ActionRejectFullBiodata, From: sm.StepFullDataRequested, To: sm.StepRejected,
			CounterpartOnly: true, Event: "match_rejected"}, nil
	case ActionBlock:
		// From is dynamic: any non-terminal step may transition to blocked.
		return Spec{Action: ActionBlock, To: sm.StepBlocked, Event: "match_blocked"}, nil
	default:
		return Spec{}, dErrors.New(dErrors.CodeInvalidAction, "unknown action: "+name)
	}
}

// StatusFor derives the coarse status implied by a step.
func StatusFor(step sm.Step) Status {
	switch step {
	case sm.StepRejected:
		return StatusRejected
	case sm.StepBlocked:
		return StatusBlocked
	case sm.StepChatting, sm.StepMeetingScheduled, sm.StepMarriageIntent, sm.StepClosed:
		return StatusApproved
	default:
		return StatusPending
	}
}
