// Package channel defines the platform and interaction vocabulary shared by
// every pipeline module.
package channel

// Platform identifies the social-messaging channel an event arrived on.
type Platform string

const (
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformWhatsApp  Platform = "WHATSAPP"
	PlatformTikTok    Platform = "TIKTOK"
)

// Valid reports whether the platform is one the pipeline understands.
func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformFacebook, PlatformWhatsApp, PlatformTikTok:
		return true
	}
	return false
}

// InteractionType classifies an inbound event.
type InteractionType string

const (
	TypeComment    InteractionType = "COMMENT"
	TypeDM         InteractionType = "DM"
	TypeLike       InteractionType = "LIKE"
	TypeShare      InteractionType = "SHARE"
	TypeStoryReply InteractionType = "STORY_REPLY"
	TypeMention    InteractionType = "MENTION"
)

// Verb is the mutation intent a normalized event carries.
type Verb string

const (
	VerbAdd    Verb = "add"
	VerbEdit   Verb = "edit"
	VerbRemove Verb = "remove"
)

// CustomerStatus is the lead temperature derived from the decayed score.
type CustomerStatus string

const (
	StatusCold      CustomerStatus = "COLD"
	StatusWarm      CustomerStatus = "WARM"
	StatusHot       CustomerStatus = "HOT"
	StatusConverted CustomerStatus = "CONVERTED"
)
