package session

import "fmt"

// Wire text reproduced verbatim from spec.md §4.4/§4.5/§8 and, for the
// cases spec.md leaves to "a ... message" without pinning exact wording,
// from original_source/app/server.py (see SPEC_FULL.md §10).

const (
	msgGreeting        = "Hi! Write your username."
	msgUsernameTaken   = "Username is already in use, try another one:"
	msgNoClients       = "No available clients."
	msgNoRequests      = "You not have chat requests"
	msgNoActiveChat    = "You do not have active chats."
	msgNoActiveChatEnd = "You have no active chat now."
	msgNotInAnyChat    = "You are not consistent with any chat."
)

func msgConnectSelf() string {
	return "Client is trying to connect to itself."
}

func msgAlreadyInChatWith(peer string) string {
	return fmt.Sprintf("You already in chat with %s.", peer)
}

func msgClientMayBeDisconnected() string {
	return "Client may be disconnected."
}

func msgWantsToChat(initiator string) string {
	return fmt.Sprintf("%s wants to start a chat with you.", initiator)
}

func msgApproveOrDeclineSelf(verb string) string {
	return fmt.Sprintf("You are trying to %s a chat with yourself.", verb)
}

func msgCallerAlreadyActive(peer string) string {
	return fmt.Sprintf("You already has an active chat with %s.", peer)
}

func msgInitiatorAlreadyActive(name string) string {
	return fmt.Sprintf("%s already has an active chat.", name)
}

func msgNoRequestFrom(name string) string {
	return fmt.Sprintf("You have no chat request from %s.", name)
}

func msgStartedChatWith(peer string) string {
	return fmt.Sprintf("You started a chat with %s.", peer)
}

func msgDeclinedFrom(initiator string) string {
	return fmt.Sprintf("You declined a chat request from %s.", initiator)
}

func msgDeclinedYourRequest(target string) string {
	return fmt.Sprintf("%s declined your chat request.", target)
}

func msgChatEnded(peer string) string {
	return fmt.Sprintf("Chat with %s ended.", peer)
}

func msgDialogWith(peer string) string {
	return fmt.Sprintf("You have active chat with %s.", peer)
}

func msgUnknownCommand(raw string) string {
	return fmt.Sprintf("Unknown command: %s.", raw)
}

func msgInvalidArgs() string {
	return "Invalid command args."
}

// helpText renders the command table, in table order, matching
// Commands.display in app/enums.py: "/name <arg>, <arg> - description".
func helpText() string {
	out := "Available commands:\n"
	for _, c := range commandTable {
		out += c.usage() + "\n"
	}
	return trimTrailingNewline(out)
}

func trimTrailingNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}
