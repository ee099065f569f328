package notify

import (
	"net/url"
	"strings"

	"linotify/internal/event"
)

// ConsoleBaseURL is the root of the provider's web console.
const ConsoleBaseURL = "https://cloud.linode.com/"

// ResourceType is the closed set of entity kinds with a dedicated console page.
type ResourceType int

const (
	ResourceOther ResourceType = iota
	ResourceLinode
	ResourceSSHKey
	ResourceToken
	ResourceStackScript
)

// ParseResourceType maps an entity type to its console route. Unlisted
// types are ResourceOther.
func ParseResourceType(raw string) ResourceType {
	switch strings.TrimSpace(raw) {
	case "linode":
		return ResourceLinode
	case "user_ssh_key":
		return ResourceSSHKey
	case "token":
		return ResourceToken
	case "stackscript":
		return ResourceStackScript
	default:
		return ResourceOther
	}
}

// DefaultButton points at the console landing page.
func DefaultButton() Button {
	return Button{Label: "Launch Console", URL: ConsoleBaseURL}
}

// ButtonFor resolves the call-to-action for an entity. Routes that embed the
// entity id fall back to the console landing page when the id is missing.
func ButtonFor(e event.Entity) Button {
	switch ParseResourceType(e.Type) {
	case ResourceLinode:
		if e.ID == "" {
			return DefaultButton()
		}
		return Button{Label: "View Linode", URL: ConsoleBaseURL + "linodes/" + url.PathEscape(e.ID)}
	case ResourceSSHKey:
		return Button{Label: "View SSH Keys", URL: ConsoleBaseURL + "profile/keys"}
	case ResourceToken:
		return Button{Label: "View API Tokens", URL: ConsoleBaseURL + "profile/tokens"}
	case ResourceStackScript:
		if e.ID == "" {
			return DefaultButton()
		}
		return Button{Label: "View StackScript", URL: ConsoleBaseURL + "stackscripts/" + url.PathEscape(e.ID)}
	default:
		return DefaultButton()
	}
}
