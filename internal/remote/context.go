package remote

// AccountContext identifies which provider account and credential scope a
// call is made under. It is passed explicitly on every fetch so that
// concurrent calls for different accounts or API versions cannot interfere
// through shared state.
type AccountContext struct {
	AccountID  string
	APIKey     string
	APIVersion string
	Livemode   bool
}
