package session

// State is the active-conversation sub-machine. Transitions:
//
//	NoUser -> NoConversation        login / hydration
//	NoConversation -> Loading       SelectConversation issued
//	Loading -> Ready                open + history both succeeded
//	Loading -> NoConversation       either call failed
//	any -> NoUser                   logout
//
// Ready self-transitions on sends and push arrivals.
type State int

const (
	StateNoUser State = iota
	StateNoConversation
	StateConversationLoading
	StateConversationReady
)

func (s State) String() string {
	switch s {
	case StateNoUser:
		return "no_user"
	case StateNoConversation:
		return "no_conversation"
	case StateConversationLoading:
		return "conversation_loading"
	case StateConversationReady:
		return "conversation_ready"
	default:
		return "unknown"
	}
}
