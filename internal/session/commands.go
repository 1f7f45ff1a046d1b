package session

import (
	"fmt"
	"strings"

	"github.com/pankaj/chat-relay/internal/registry"
)

// outbound is one reply line addressed to one client, the dispatcher's
// only form of output. A command produces zero or more of these and
// performs its registry mutation (if any) purely synchronously — no
// suspension happens here; the caller drains outbound one write-Want at
// a time.
type outbound struct {
	to   *registry.Client
	text string
}

// commandDescriptor is one row of the command table in spec.md §4.5,
// grounded on app/enums.py's Commands enum (name, argument names,
// description) and app/server.py's __execute_* handlers.
type commandDescriptor struct {
	name        string
	argNames    []string
	description string
	handle      func(s *Session, caller *registry.Client, args []string) []outbound
}

func (c commandDescriptor) usage() string {
	if len(c.argNames) == 0 {
		return fmt.Sprintf("/%s - %s", c.name, c.description)
	}
	quoted := make([]string, len(c.argNames))
	for i, a := range c.argNames {
		quoted[i] = "<" + a + ">"
	}
	return fmt.Sprintf("/%s %s - %s", c.name, strings.Join(quoted, ", "), c.description)
}

// commandTable is built once; order matters only for /help's rendering.
var commandTable = []commandDescriptor{
	{name: "clients", description: "Get client list for connection", handle: cmdClients},
	{name: "connect", argNames: []string{"username"}, description: "Connect to another client", handle: cmdConnect},
	{name: "disconnect", description: "Disconnect from current dialog", handle: cmdDisconnect},
	{name: "dialog", description: "Show username of current dialogue partner", handle: cmdDialog},
	{name: "approve", argNames: []string{"username"}, description: "Start chat with <username>", handle: cmdApprove},
	{name: "decline", argNames: []string{"username"}, description: "Decline chat with <username>", handle: cmdDecline},
	{name: "requests", description: "Get all chat requests", handle: cmdRequests},
	{name: "help", description: "Commands list.", handle: cmdHelp},
}

var commandsByName = func() map[string]commandDescriptor {
	m := make(map[string]commandDescriptor, len(commandTable))
	for _, c := range commandTable {
		m[c.name] = c
	}
	return m
}()

// dispatch resolves a parsed command line to a handler, validates its
// arity, and runs it. Unknown names and arity mismatches are reported to
// the caller alone, with no registry mutation — spec.md §4.5.
func dispatch(s *Session, caller *registry.Client, name string, args []string) []outbound {
	desc, ok := commandsByName[name]
	if !ok {
		return []outbound{{to: caller, text: msgUnknownCommand(name)}}
	}
	if len(args) != len(desc.argNames) {
		return []outbound{{to: caller, text: msgInvalidArgs()}}
	}
	return desc.handle(s, caller, args)
}

func cmdHelp(s *Session, caller *registry.Client, _ []string) []outbound {
	return []outbound{{to: caller, text: helpText()}}
}

func cmdClients(s *Session, caller *registry.Client, _ []string) []outbound {
	names := s.clients.Registered(caller)
	if len(names) == 0 {
		return []outbound{{to: caller, text: msgNoClients}}
	}
	return []outbound{{to: caller, text: strings.Join(names, "\n")}}
}

func cmdConnect(s *Session, caller *registry.Client, args []string) []outbound {
	targetName := args[0]

	if caller.Name == targetName {
		return []outbound{{to: caller, text: msgConnectSelf()}}
	}

	if active, ok := s.chats.ActiveOf(caller); ok {
		peer := active.Peer(caller)
		return []outbound{{to: caller, text: msgAlreadyInChatWith(peer.Name)}}
	}

	target, ok := s.clients.FindByName(targetName)
	if !ok {
		return []outbound{{to: caller, text: msgClientMayBeDisconnected()}}
	}

	s.chats.Add(caller, target)
	return []outbound{{to: target, text: msgWantsToChat(caller.Name)}}
}

func cmdDisconnect(s *Session, caller *registry.Client, _ []string) []outbound {
	active, ok := s.chats.ActiveOf(caller)
	if !ok {
		return []outbound{{to: caller, text: msgNoActiveChatEnd}}
	}

	s.chats.Remove(active)

	peer := active.Peer(caller)
	return []outbound{
		{to: caller, text: msgChatEnded(peer.Name)},
		{to: peer, text: msgChatEnded(caller.Name)},
	}
}

func cmdDialog(s *Session, caller *registry.Client, _ []string) []outbound {
	active, ok := s.chats.ActiveOf(caller)
	if !ok {
		return []outbound{{to: caller, text: msgNoActiveChat}}
	}
	peer := active.Peer(caller)
	return []outbound{{to: caller, text: msgDialogWith(peer.Name)}}
}

func cmdApprove(s *Session, caller *registry.Client, args []string) []outbound {
	initiatorName := args[0]

	if caller.Name == initiatorName {
		return []outbound{{to: caller, text: msgApproveOrDeclineSelf("approve")}}
	}

	if active, ok := s.chats.ActiveOf(caller); ok {
		peer := active.Peer(caller)
		return []outbound{{to: caller, text: msgCallerAlreadyActive(peer.Name)}}
	}

	initiator, ok := s.clients.FindByName(initiatorName)
	if !ok {
		return []outbound{{to: caller, text: msgNoRequestFrom(initiatorName)}}
	}

	// Open question resolved per spec.md §9: the still-pending request is
	// retained (not deleted) when the initiator already holds an active
	// chat, so a later /disconnect by the initiator allows a retry.
	if _, ok := s.chats.ActiveOf(initiator); ok {
		return []outbound{{to: caller, text: msgInitiatorAlreadyActive(initiator.Name)}}
	}

	pending, ok := s.chats.Pending(initiator, caller)
	if !ok {
		return []outbound{{to: caller, text: msgNoRequestFrom(initiatorName)}}
	}

	s.chats.Approve(pending)
	return []outbound{
		{to: pending.Initiator, text: msgStartedChatWith(pending.Target.Name)},
		{to: pending.Target, text: msgStartedChatWith(pending.Initiator.Name)},
	}
}

func cmdDecline(s *Session, caller *registry.Client, args []string) []outbound {
	initiatorName := args[0]

	if caller.Name == initiatorName {
		return []outbound{{to: caller, text: msgApproveOrDeclineSelf("decline")}}
	}

	initiator, ok := s.clients.FindByName(initiatorName)
	if !ok {
		return []outbound{{to: caller, text: msgNoRequestFrom(initiatorName)}}
	}

	pending, ok := s.chats.Pending(initiator, caller)
	if !ok {
		return []outbound{{to: caller, text: msgNoRequestFrom(initiatorName)}}
	}

	s.chats.Remove(pending)
	return []outbound{
		{to: pending.Target, text: msgDeclinedFrom(pending.Initiator.Name)},
		{to: pending.Initiator, text: msgDeclinedYourRequest(pending.Target.Name)},
	}
}

func cmdRequests(s *Session, caller *registry.Client, _ []string) []outbound {
	pending := s.chats.PendingTargeting(caller)
	if len(pending) == 0 {
		return []outbound{{to: caller, text: msgNoRequests}}
	}

	var b strings.Builder
	b.WriteString("Chat requests from:\n")
	for i, chat := range pending {
		fmt.Fprintf(&b, "%d. %s\n", i+1, chat.Initiator.Name)
	}
	return []outbound{{to: caller, text: trimTrailingNewline(b.String())}}
}
