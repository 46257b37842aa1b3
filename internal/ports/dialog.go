package ports

// SFTPProfileForm holds the fields of an SFTP profile edited interactively.
type SFTPProfileForm struct {
	Name        string
	Host        string
	Port        int
	User        string
	KeyPath     string
	PasswordEnv string
	Confirmed   bool
}

// ObjectStoreProfileForm holds the fields of an object store profile
// edited interactively.
type ObjectStoreProfileForm struct {
	Name               string
	Provider           string
	Endpoint           string
	Region             string
	Bucket             string
	AccessKeyID        string
	AccessKeySecretEnv string
	Confirmed          bool
}

// DialogProvider abstracts interactive user dialogs.
// Implementations may use TUI forms or test fakes.
type DialogProvider interface {
	// Interactive reports whether a user can answer prompts.
	Interactive() bool

	// Secret asks for a secret without echoing it.
	Secret(title, description string) (string, error)

	// SFTPProfileForm lets the user confirm or edit a profile. Confirmed is
	// true when the user accepted.
	SFTPProfileForm(prefill SFTPProfileForm) (SFTPProfileForm, error)

	// ObjectStoreProfileForm is the object store counterpart.
	ObjectStoreProfileForm(prefill ObjectStoreProfileForm) (ObjectStoreProfileForm, error)
}
