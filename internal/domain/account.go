package domain

// AccountRequest carries everything a provider needs to create the first mailbox.
type AccountRequest struct {
	UserID     string
	Provider   Provider
	Domain     DomainName
	LocalPart  string
	GivenName  string
	FamilyName string
	Password   string
}

// PrimaryEmail is the address the provider is asked to create.
func (r AccountRequest) PrimaryEmail() string {
	return r.LocalPart + "@" + string(r.Domain)
}

// Account is the provider's answer to a successful creation.
type Account struct {
	PrimaryEmail string
	ProviderID   string
}
