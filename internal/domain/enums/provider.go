package enums

type SocialProvider string

const (
	ProviderGoogle   SocialProvider = "google"
	ProviderFacebook SocialProvider = "facebook"
)

func (p SocialProvider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderFacebook:
		return true
	}
	return false
}
